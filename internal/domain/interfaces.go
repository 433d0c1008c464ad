package domain

import "context"

// QuoteSource fetches quotes for a set of symbols.
type QuoteSource interface {
	GetQuotes(ctx context.Context, symbols []string) (map[string]Quote, error)
}

// SnapshotClient is the account-snapshot API consumed by the dashboard.
type SnapshotClient interface {
	QuoteSource
	GetAccount(ctx context.Context) (*AccountSnapshot, []Position, error)
	GetTradeRecords(ctx context.Context, limit int) ([]TradeRecord, error)
}

// AccountRepository defines storage operations for the simulated account.
type AccountRepository interface {
	GetAccount(ctx context.Context) (*AccountSnapshot, error)
	SaveAccount(ctx context.Context, account *AccountSnapshot) error

	ListPositions(ctx context.Context) ([]Position, error)
	GetPosition(ctx context.Context, symbol string) (*Position, error)
	SavePosition(ctx context.Context, position *Position) error
	DeletePosition(ctx context.Context, symbol string) error
}

// TradeRepository defines storage operations for trade records.
type TradeRepository interface {
	SaveTrade(ctx context.Context, record *TradeRecord) error
	ListTrades(ctx context.Context, limit int) ([]TradeRecord, error)
}

// QuoteRepository defines storage operations for the simulated market.
type QuoteRepository interface {
	SaveQuote(ctx context.Context, quote *Quote) error
	GetQuotes(ctx context.Context, symbols []string) (map[string]Quote, error)
	ListQuotes(ctx context.Context) ([]Quote, error)
}
