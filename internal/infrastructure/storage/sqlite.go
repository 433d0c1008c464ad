package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/vitos/paper_dashboard/internal/domain"
)

var ErrNotFound = errors.New("not found")

// DefaultAccountID is the single simulated account.
const DefaultAccountID = "default"

type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

var (
	_ domain.AccountRepository = (*SQLiteStore)(nil)
	_ domain.TradeRepository   = (*SQLiteStore)(nil)
	_ domain.QuoteRepository   = (*SQLiteStore)(nil)
)

type SQLiteStore struct {
	db   *sql.DB
	conn dbtx
}

// busyTimeoutMs lets a writer wait for a concurrent transaction instead of
// failing with "database is locked".
const busyTimeoutMs = 5000

func dsn(dbPath string) string {
	if dbPath == ":memory:" {
		return dbPath
	}
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_busy_timeout=%d", dbPath, sep, busyTimeoutMs)
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn(dbPath))
	if err != nil {
		return nil, err
	}
	if dbPath == ":memory:" {
		// every pooled connection would get its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &SQLiteStore{db: db, conn: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS account (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			initial_capital TEXT NOT NULL,
			current_capital TEXT NOT NULL,
			realized_profit TEXT NOT NULL DEFAULT '0',
			total_trades INTEGER NOT NULL DEFAULT 0,
			winning_trades INTEGER NOT NULL DEFAULT 0,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS positions (
			symbol TEXT PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			quantity INTEGER NOT NULL,
			cost_price TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS trades (
			id TEXT PRIMARY KEY,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			quantity INTEGER NOT NULL,
			price TEXT NOT NULL,
			amount TEXT NOT NULL,
			profit TEXT NOT NULL DEFAULT '0',
			reason TEXT NOT NULL DEFAULT '',
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_trades_created_at ON trades(created_at);`,
		`CREATE TABLE IF NOT EXISTS quotes (
			symbol TEXT PRIMARY KEY,
			current_price TEXT NOT NULL,
			prev_close TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

// WithTx runs fn against a store bound to a single transaction.
func (s *SQLiteStore) WithTx(ctx context.Context, fn func(tx *SQLiteStore) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(&SQLiteStore{db: s.db, conn: tx}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// AccountRepository Implementation

func (s *SQLiteStore) GetAccount(ctx context.Context) (*domain.AccountSnapshot, error) {
	query := `SELECT id, name, initial_capital, current_capital, realized_profit, total_trades, winning_trades, updated_at FROM account WHERE id = ?`
	row := s.conn.QueryRowContext(ctx, query, DefaultAccountID)

	var a domain.AccountSnapshot
	err := row.Scan(&a.ID, &a.Name, &a.InitialCapital, &a.CurrentCapital, &a.RealizedProfit, &a.TotalTrades, &a.WinningTrades, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if a.TotalTrades > 0 {
		a.WinRate = decimal.NewFromInt(a.WinningTrades * 100).Div(decimal.NewFromInt(a.TotalTrades)).Round(2)
	}
	return &a, nil
}

func (s *SQLiteStore) SaveAccount(ctx context.Context, a *domain.AccountSnapshot) error {
	query := `INSERT INTO account (id, name, initial_capital, current_capital, realized_profit, total_trades, winning_trades, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(id) DO UPDATE SET
			  name=excluded.name,
			  initial_capital=excluded.initial_capital,
			  current_capital=excluded.current_capital,
			  realized_profit=excluded.realized_profit,
			  total_trades=excluded.total_trades,
			  winning_trades=excluded.winning_trades,
			  updated_at=excluded.updated_at`
	_, err := s.conn.ExecContext(ctx, query,
		DefaultAccountID, a.Name, a.InitialCapital, a.CurrentCapital, a.RealizedProfit, a.TotalTrades, a.WinningTrades, a.UpdatedAt)
	return err
}

func (s *SQLiteStore) ListPositions(ctx context.Context) ([]domain.Position, error) {
	query := `SELECT symbol, name, quantity, cost_price, updated_at FROM positions ORDER BY symbol`
	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var p domain.Position
		if err := rows.Scan(&p.Symbol, &p.Name, &p.Quantity, &p.CostPrice, &p.UpdatedAt); err != nil {
			return nil, err
		}
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

func (s *SQLiteStore) GetPosition(ctx context.Context, symbol string) (*domain.Position, error) {
	query := `SELECT symbol, name, quantity, cost_price, updated_at FROM positions WHERE symbol = ?`
	row := s.conn.QueryRowContext(ctx, query, symbol)

	var p domain.Position
	err := row.Scan(&p.Symbol, &p.Name, &p.Quantity, &p.CostPrice, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *SQLiteStore) SavePosition(ctx context.Context, p *domain.Position) error {
	query := `INSERT INTO positions (symbol, name, quantity, cost_price, updated_at)
			  VALUES (?, ?, ?, ?, ?)
			  ON CONFLICT(symbol) DO UPDATE SET
			  name=excluded.name,
			  quantity=excluded.quantity,
			  cost_price=excluded.cost_price,
			  updated_at=excluded.updated_at`
	_, err := s.conn.ExecContext(ctx, query, p.Symbol, p.Name, p.Quantity, p.CostPrice, p.UpdatedAt)
	return err
}

func (s *SQLiteStore) DeletePosition(ctx context.Context, symbol string) error {
	_, err := s.conn.ExecContext(ctx, "DELETE FROM positions WHERE symbol = ?", symbol)
	return err
}

// TradeRepository Implementation

func (s *SQLiteStore) SaveTrade(ctx context.Context, r *domain.TradeRecord) error {
	query := `INSERT INTO trades (id, symbol, side, quantity, price, amount, profit, reason, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.conn.ExecContext(ctx, query,
		r.ID, r.Symbol, r.Side, r.Quantity, r.Price, r.Amount, r.Profit, r.Reason, r.CreatedAt)
	return err
}

func (s *SQLiteStore) ListTrades(ctx context.Context, limit int) ([]domain.TradeRecord, error) {
	query := `SELECT id, symbol, side, quantity, price, amount, profit, reason, created_at FROM trades ORDER BY created_at DESC, rowid DESC LIMIT ?`
	rows, err := s.conn.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.TradeRecord
	for rows.Next() {
		var r domain.TradeRecord
		if err := rows.Scan(&r.ID, &r.Symbol, &r.Side, &r.Quantity, &r.Price, &r.Amount, &r.Profit, &r.Reason, &r.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// QuoteRepository Implementation

// SaveQuote updates the last price. A symbol seen for the first time uses
// that price as its previous close.
func (s *SQLiteStore) SaveQuote(ctx context.Context, q *domain.Quote) error {
	query := `INSERT INTO quotes (symbol, current_price, prev_close, updated_at)
			  VALUES (?, ?, ?, CURRENT_TIMESTAMP)
			  ON CONFLICT(symbol) DO UPDATE SET
			  current_price=excluded.current_price,
			  updated_at=excluded.updated_at`
	_, err := s.conn.ExecContext(ctx, query, q.Symbol, q.CurrentPrice, q.CurrentPrice)
	return err
}

// RollPrevClose makes the current prices the reference for change_percent.
func (s *SQLiteStore) RollPrevClose(ctx context.Context) error {
	_, err := s.conn.ExecContext(ctx, `UPDATE quotes SET prev_close = current_price`)
	return err
}

func (s *SQLiteStore) GetQuotes(ctx context.Context, symbols []string) (map[string]domain.Quote, error) {
	out := make(map[string]domain.Quote, len(symbols))
	if len(symbols) == 0 {
		return out, nil
	}

	args := make([]interface{}, len(symbols))
	for i, sym := range symbols {
		args[i] = sym
	}
	query := `SELECT symbol, current_price, prev_close FROM quotes WHERE symbol IN (?` + strings.Repeat(",?", len(symbols)-1) + `)`
	quotes, err := s.queryQuotes(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	for _, q := range quotes {
		out[q.Symbol] = q
	}
	return out, nil
}

func (s *SQLiteStore) ListQuotes(ctx context.Context) ([]domain.Quote, error) {
	return s.queryQuotes(ctx, `SELECT symbol, current_price, prev_close FROM quotes ORDER BY symbol`)
}

func (s *SQLiteStore) queryQuotes(ctx context.Context, query string, args ...interface{}) ([]domain.Quote, error) {
	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotes []domain.Quote
	for rows.Next() {
		var q domain.Quote
		var prevClose decimal.Decimal
		if err := rows.Scan(&q.Symbol, &q.CurrentPrice, &prevClose); err != nil {
			return nil, err
		}
		if prevClose.IsPositive() {
			q.ChangePercent = q.CurrentPrice.Div(prevClose).Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(100)).Round(2)
		}
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}
