package usecase

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/vitos/paper_dashboard/internal/domain"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPositionWithLiveQuote_UsesLivePrice(t *testing.T) {
	cache := NewQuoteCache()
	cache.Merge(map[string]domain.Quote{"x": {CurrentPrice: d("11"), ChangePercent: d("2.5")}})

	pos := domain.Position{Symbol: "X", Quantity: 100, CostPrice: d("10"), CurrentPrice: d("10")}
	dp := PositionWithLiveQuote(pos, cache)

	assert.True(t, dp.Live)
	assert.True(t, dp.CurrentPrice.Equal(d("11")))
	assert.True(t, dp.Profit.Equal(d("100")), "profit %s", dp.Profit)
	assert.True(t, dp.ProfitPct.Equal(d("10")), "profit pct %s", dp.ProfitPct)
	assert.True(t, dp.MarketValue.Equal(d("1100")))
	assert.True(t, dp.ChangePercent.Equal(d("2.5")))

	// Caller data untouched.
	assert.True(t, pos.CurrentPrice.Equal(d("10")))
}

func TestPositionWithLiveQuote_NoQuotePassesThrough(t *testing.T) {
	cache := NewQuoteCache()
	pos := domain.Position{
		Symbol:       "X",
		Quantity:     100,
		CostPrice:    d("10"),
		CurrentPrice: d("9.5"),
		Profit:       d("-50"),
		ProfitPct:    d("-5"),
	}

	dp := PositionWithLiveQuote(pos, cache)

	assert.False(t, dp.Live)
	assert.Equal(t, pos.CurrentPrice, dp.CurrentPrice)
	assert.Equal(t, pos.Profit, dp.Profit)
	assert.Equal(t, pos.ProfitPct, dp.ProfitPct)
}

func TestPositionWithLiveQuote_NonPositiveQuoteIgnored(t *testing.T) {
	cache := NewQuoteCache()
	cache.Merge(map[string]domain.Quote{"X": {CurrentPrice: decimal.Zero}})
	pos := domain.Position{Symbol: "X", Quantity: 1, CostPrice: d("10"), CurrentPrice: d("12"), Profit: d("2"), ProfitPct: d("20")}

	dp := PositionWithLiveQuote(pos, cache)

	assert.False(t, dp.Live)
	assert.True(t, dp.Profit.Equal(d("2")))
	assert.True(t, dp.MarketValue.Equal(d("12")))
}

func TestPortfolioValuation_FallbackChain(t *testing.T) {
	cache := NewQuoteCache()
	account := domain.AccountSnapshot{CurrentCapital: d("1000")}

	t.Run("snapshot price", func(t *testing.T) {
		positions := []domain.Position{{Symbol: "X", Quantity: 10, CostPrice: d("5"), CurrentPrice: d("6")}}
		v := PortfolioValuation(positions, cache, account)
		assert.True(t, v.PositionValue.Equal(d("60")), "position value %s", v.PositionValue)
		assert.True(t, v.TotalAssets.Equal(d("1060")), "total assets %s", v.TotalAssets)
	})

	t.Run("cost price", func(t *testing.T) {
		positions := []domain.Position{{Symbol: "X", Quantity: 10, CostPrice: d("5")}}
		v := PortfolioValuation(positions, cache, account)
		assert.True(t, v.PositionValue.Equal(d("50")))
		assert.True(t, v.UnrealizedProfit.IsZero())
	})

	t.Run("live quote wins", func(t *testing.T) {
		live := NewQuoteCache()
		live.Merge(map[string]domain.Quote{"x": quote("7")})
		positions := []domain.Position{{Symbol: "X", Quantity: 10, CostPrice: d("5"), CurrentPrice: d("6")}}
		v := PortfolioValuation(positions, live, account)
		assert.True(t, v.PositionValue.Equal(d("70")))
		assert.True(t, v.UnrealizedProfit.Equal(d("20")))
	})
}

func TestPortfolioValuation_TotalReturn(t *testing.T) {
	cache := NewQuoteCache()
	account := domain.AccountSnapshot{InitialCapital: d("1000"), CurrentCapital: d("500")}
	positions := []domain.Position{{Symbol: "X", Quantity: 100, CostPrice: d("5"), CurrentPrice: d("6")}}

	v := PortfolioValuation(positions, cache, account)
	assert.True(t, v.TotalAssets.Equal(d("1100")))
	assert.True(t, v.TotalReturnPct.Equal(d("10")), "return %s", v.TotalReturnPct)

	v = PortfolioValuation(positions, cache, domain.AccountSnapshot{CurrentCapital: d("500")})
	assert.True(t, v.TotalReturnPct.IsZero())
}

func TestPortfolioValuation_Idempotent(t *testing.T) {
	cache := NewQuoteCache()
	cache.Merge(map[string]domain.Quote{"A": quote("3.33"), "B": quote("0")})
	account := domain.AccountSnapshot{InitialCapital: d("10000"), CurrentCapital: d("1234.56")}
	positions := []domain.Position{
		{Symbol: "A", Quantity: 300, CostPrice: d("3.1"), CurrentPrice: d("3.2")},
		{Symbol: "b", Quantity: 7, CostPrice: d("11"), CurrentPrice: d("12.01")},
		{Symbol: "C", Quantity: 0, CostPrice: d("1")},
	}

	first := PortfolioValuation(positions, cache, account)
	second := PortfolioValuation(positions, cache, account)

	assert.Equal(t, first.PositionValue.String(), second.PositionValue.String())
	assert.Equal(t, first.TotalAssets.String(), second.TotalAssets.String())
	assert.Equal(t, first.UnrealizedProfit.String(), second.UnrealizedProfit.String())
	assert.Equal(t, first.TotalReturnPct.String(), second.TotalReturnPct.String())
	assert.True(t, first.PositionValue.Equal(d("1083.07")), "position value %s", first.PositionValue)
}
