package usecase

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitos/paper_dashboard/internal/domain"
)

func quote(price string) domain.Quote {
	return domain.Quote{CurrentPrice: decimal.RequireFromString(price)}
}

func TestQuoteCache_CaseInsensitiveLookup(t *testing.T) {
	cache := NewQuoteCache()
	cache.Merge(map[string]domain.Quote{"AAPL": quote("190.5")})

	q, ok := cache.Get("aapl")
	require.True(t, ok)
	assert.Equal(t, "AAPL", q.Symbol)
	assert.True(t, q.CurrentPrice.Equal(decimal.RequireFromString("190.5")))

	cache.Merge(map[string]domain.Quote{" msft ": quote("400")})
	_, ok = cache.Get("MSFT")
	assert.True(t, ok)
}

func TestQuoteCache_MergeReplacesEverything(t *testing.T) {
	cache := NewQuoteCache()
	cache.Merge(map[string]domain.Quote{"A": quote("1")})
	cache.Merge(map[string]domain.Quote{"B": quote("2")})

	_, ok := cache.Get("A")
	assert.False(t, ok, "A should be gone after a full replace")

	_, ok = cache.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 1, cache.Len())
}

func TestQuoteCache_AllReturnsCopy(t *testing.T) {
	cache := NewQuoteCache()
	cache.Merge(map[string]domain.Quote{"a": quote("1")})

	all := cache.All()
	delete(all, "A")

	assert.Equal(t, 1, cache.Len())
}
