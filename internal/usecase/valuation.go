package usecase

import (
	"github.com/shopspring/decimal"
	"github.com/vitos/paper_dashboard/internal/domain"
)

// QuoteLookup is the read side of the quote cache.
type QuoteLookup interface {
	Get(symbol string) (domain.Quote, bool)
}

var hundred = decimal.NewFromInt(100)

// PositionWithLiveQuote folds a live quote into a position for display.
// Without a usable quote the snapshot figures are passed through untouched.
func PositionWithLiveQuote(pos domain.Position, quotes QuoteLookup) domain.DisplayPosition {
	dp := domain.DisplayPosition{Position: pos}

	q, ok := quotes.Get(pos.Symbol)
	if ok && q.Valid() {
		qty := decimal.NewFromInt(pos.Quantity)
		dp.CurrentPrice = q.CurrentPrice
		dp.ChangePercent = q.ChangePercent
		dp.Profit = q.CurrentPrice.Sub(pos.CostPrice).Mul(qty)
		if pos.CostPrice.IsPositive() {
			dp.ProfitPct = q.CurrentPrice.Div(pos.CostPrice).Sub(decimal.NewFromInt(1)).Mul(hundred)
		}
		dp.Live = true
	}

	dp.MarketValue = effectivePrice(pos, quotes).Mul(decimal.NewFromInt(pos.Quantity))
	return dp
}

// DisplayPositions applies PositionWithLiveQuote to every position, keeping order.
func DisplayPositions(positions []domain.Position, quotes QuoteLookup) []domain.DisplayPosition {
	out := make([]domain.DisplayPosition, 0, len(positions))
	for _, p := range positions {
		out = append(out, PositionWithLiveQuote(p, quotes))
	}
	return out
}

// PortfolioValuation derives the aggregate figures. It is a pure function of
// its inputs.
func PortfolioValuation(positions []domain.Position, quotes QuoteLookup, account domain.AccountSnapshot) domain.Valuation {
	positionValue := decimal.Zero
	unrealized := decimal.Zero

	for _, p := range positions {
		qty := decimal.NewFromInt(p.Quantity)
		price := effectivePrice(p, quotes)
		positionValue = positionValue.Add(qty.Mul(price))
		unrealized = unrealized.Add(price.Sub(p.CostPrice).Mul(qty))
	}

	v := domain.Valuation{
		PositionValue:    positionValue,
		TotalAssets:      account.CurrentCapital.Add(positionValue),
		UnrealizedProfit: unrealized,
	}
	if account.InitialCapital.IsPositive() {
		v.TotalReturnPct = v.TotalAssets.Div(account.InitialCapital).
			Sub(decimal.NewFromInt(1)).
			Mul(hundred).
			Round(4)
	}
	return v
}

// effectivePrice: live quote -> snapshot price -> cost price.
func effectivePrice(p domain.Position, quotes QuoteLookup) decimal.Decimal {
	if q, ok := quotes.Get(p.Symbol); ok && q.Valid() {
		return q.CurrentPrice
	}
	if p.CurrentPrice.IsPositive() {
		return p.CurrentPrice
	}
	return p.CostPrice
}
