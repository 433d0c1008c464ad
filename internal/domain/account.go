package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountSnapshot holds the server-computed account aggregates.
type AccountSnapshot struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	InitialCapital decimal.Decimal `json:"initial_capital"`
	CurrentCapital decimal.Decimal `json:"current_capital"`
	RealizedProfit decimal.Decimal `json:"realized_profit"`
	WinRate        decimal.Decimal `json:"win_rate"`
	TotalTrades    int64           `json:"total_trades"`
	WinningTrades  int64           `json:"winning_trades"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// Valuation is the derived portfolio aggregate.
type Valuation struct {
	PositionValue    decimal.Decimal `json:"position_value"`
	TotalAssets      decimal.Decimal `json:"total_assets"`
	UnrealizedProfit decimal.Decimal `json:"unrealized_profit"`
	TotalReturnPct   decimal.Decimal `json:"total_return_pct"`
}

// DashboardView is everything the presentation layer renders.
type DashboardView struct {
	Account        AccountSnapshot   `json:"account"`
	Positions      []DisplayPosition `json:"positions"`
	Valuation      Valuation         `json:"valuation"`
	Records        []TradeRecord     `json:"records"`
	TradingTime    bool              `json:"trading_time"`
	PollIntervalMs int64             `json:"poll_interval_ms"`
	LastUpdated    time.Time         `json:"last_updated"`
	SnapshotAt     time.Time         `json:"snapshot_at"`
}
