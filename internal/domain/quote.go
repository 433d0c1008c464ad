package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Quote is the latest market data for one symbol.
type Quote struct {
	Symbol        string          `json:"symbol"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	ChangePercent decimal.Decimal `json:"change_percent"`
}

// Valid reports whether the quote carries a usable price.
func (q Quote) Valid() bool {
	return q.CurrentPrice.IsPositive()
}

// NormalizeSymbol is the single key normalization used for every quote
// lookup and merge.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
