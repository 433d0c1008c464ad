package usecase

import (
	"sync"

	"github.com/vitos/paper_dashboard/internal/domain"
)

// QuoteCache holds the quotes of the last successful poll.
type QuoteCache struct {
	mu     sync.RWMutex
	quotes map[string]domain.Quote
}

func NewQuoteCache() *QuoteCache {
	return &QuoteCache{quotes: make(map[string]domain.Quote)}
}

// Merge replaces the whole cache with newQuotes. Symbols missing from
// newQuotes are dropped.
func (c *QuoteCache) Merge(newQuotes map[string]domain.Quote) {
	next := make(map[string]domain.Quote, len(newQuotes))
	for symbol, q := range newQuotes {
		key := domain.NormalizeSymbol(symbol)
		q.Symbol = key
		next[key] = q
	}

	c.mu.Lock()
	c.quotes = next
	c.mu.Unlock()
}

func (c *QuoteCache) Get(symbol string) (domain.Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quotes[domain.NormalizeSymbol(symbol)]
	return q, ok
}

// All returns a copy of the cached quotes.
func (c *QuoteCache) All() map[string]domain.Quote {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]domain.Quote, len(c.quotes))
	for k, v := range c.quotes {
		out[k] = v
	}
	return out
}

func (c *QuoteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.quotes)
}
