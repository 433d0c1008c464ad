package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Position represents a held lot as reported by the account snapshot.
type Position struct {
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name,omitempty"`
	Quantity     int64           `json:"quantity"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Profit       decimal.Decimal `json:"profit"`
	ProfitPct    decimal.Decimal `json:"profit_pct"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// DisplayPosition is a Position with the live quote folded in.
// It is derived on every render and never written back.
type DisplayPosition struct {
	Position
	MarketValue   decimal.Decimal `json:"market_value"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Live          bool            `json:"live"`
}

// TradeRecord represents an executed trade on the simulated account.
type TradeRecord struct {
	ID        string          `json:"id"`
	Symbol    string          `json:"symbol"`
	Side      Side            `json:"side"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Amount    decimal.Decimal `json:"amount"`
	Profit    decimal.Decimal `json:"profit"` // realized, sells only
	Reason    string          `json:"reason,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}
