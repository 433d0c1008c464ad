// Package sandbox implements a simulated account behind the account-snapshot
// API: an SQLite-backed ledger, manual trade execution and a random-walk
// market that only moves during trading time.
package sandbox

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/vitos/paper_dashboard/internal/domain"
	"github.com/vitos/paper_dashboard/internal/infrastructure/storage"
	"github.com/vitos/paper_dashboard/internal/usecase"
	"go.uber.org/zap"
)

var (
	ErrInvalidTrade         = errors.New("invalid trade")
	ErrNoQuote              = errors.New("no quote for symbol")
	ErrInsufficientCapital  = errors.New("insufficient capital")
	ErrInsufficientQuantity = errors.New("insufficient position quantity")
)

// maxDrift is the largest relative move applied per drift step.
var maxDrift = decimal.RequireFromString("0.002")

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
	tick    = decimal.RequireFromString("0.01")
)

type TradeRequest struct {
	Symbol   string      `json:"symbol"`
	Side     domain.Side `json:"side"`
	Quantity int64       `json:"quantity"`
	Reason   string      `json:"reason"`
}

type Service struct {
	store    *storage.SQLiteStore
	calendar *usecase.MarketCalendar
	logger   *zap.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	timeNow func() time.Time // For testing
	newID   func() string
}

func NewService(store *storage.SQLiteStore, calendar *usecase.MarketCalendar, logger *zap.Logger) *Service {
	return &Service{
		store:    store,
		calendar: calendar,
		logger:   logger.Named("sandbox"),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		timeNow:  time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// Seed creates the account and any missing quotes. Existing data is kept.
func (s *Service) Seed(ctx context.Context, initialCapital decimal.Decimal, quotes []domain.Quote) error {
	return s.store.WithTx(ctx, func(tx *storage.SQLiteStore) error {
		if _, err := tx.GetAccount(ctx); errors.Is(err, storage.ErrNotFound) {
			account := &domain.AccountSnapshot{
				Name:           "Paper account",
				InitialCapital: initialCapital,
				CurrentCapital: initialCapital,
				UpdatedAt:      s.timeNow(),
			}
			if err := tx.SaveAccount(ctx, account); err != nil {
				return fmt.Errorf("seed account: %w", err)
			}
		} else if err != nil {
			return err
		}

		symbols := make([]string, 0, len(quotes))
		for _, q := range quotes {
			symbols = append(symbols, domain.NormalizeSymbol(q.Symbol))
		}
		existing, err := tx.GetQuotes(ctx, symbols)
		if err != nil {
			return err
		}
		for _, q := range quotes {
			q.Symbol = domain.NormalizeSymbol(q.Symbol)
			if _, ok := existing[q.Symbol]; ok || !q.Valid() {
				continue
			}
			if err := tx.SaveQuote(ctx, &q); err != nil {
				return fmt.Errorf("seed quote %s: %w", q.Symbol, err)
			}
		}
		return nil
	})
}

// Snapshot returns the account with positions marked to the current quotes.
func (s *Service) Snapshot(ctx context.Context) (*domain.AccountSnapshot, []domain.Position, error) {
	account, err := s.store.GetAccount(ctx)
	if err != nil {
		return nil, nil, err
	}
	positions, err := s.store.ListPositions(ctx)
	if err != nil {
		return nil, nil, err
	}

	symbols := make([]string, 0, len(positions))
	for _, p := range positions {
		symbols = append(symbols, p.Symbol)
	}
	quotes, err := s.store.GetQuotes(ctx, symbols)
	if err != nil {
		return nil, nil, err
	}

	for i := range positions {
		p := &positions[i]
		p.CurrentPrice = p.CostPrice
		if q, ok := quotes[p.Symbol]; ok && q.Valid() {
			p.CurrentPrice = q.CurrentPrice
		}
		qty := decimal.NewFromInt(p.Quantity)
		p.Profit = p.CurrentPrice.Sub(p.CostPrice).Mul(qty)
		if p.CostPrice.IsPositive() {
			p.ProfitPct = p.CurrentPrice.Div(p.CostPrice).Sub(one).Mul(hundred).Round(2)
		}
	}
	return account, positions, nil
}

func (s *Service) Records(ctx context.Context, limit int) ([]domain.TradeRecord, error) {
	if limit <= 0 {
		limit = usecase.DefaultRecordLimit
	}
	return s.store.ListTrades(ctx, limit)
}

func (s *Service) Quotes(ctx context.Context, symbols []string) (map[string]domain.Quote, error) {
	normalized := make([]string, 0, len(symbols))
	for _, sym := range symbols {
		if sym = domain.NormalizeSymbol(sym); sym != "" {
			normalized = append(normalized, sym)
		}
	}
	return s.store.GetQuotes(ctx, normalized)
}

// ExecuteTrade fills a market order at the current quote. Buys average into
// the cost price; sells realize profit against it and count towards the win
// rate.
func (s *Service) ExecuteTrade(ctx context.Context, req TradeRequest) (*domain.TradeRecord, error) {
	symbol := domain.NormalizeSymbol(req.Symbol)
	if symbol == "" || req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: symbol and positive quantity required", ErrInvalidTrade)
	}
	if req.Side != domain.SideBuy && req.Side != domain.SideSell {
		return nil, fmt.Errorf("%w: side %q", ErrInvalidTrade, req.Side)
	}

	var record *domain.TradeRecord
	err := s.store.WithTx(ctx, func(tx *storage.SQLiteStore) error {
		quotes, err := tx.GetQuotes(ctx, []string{symbol})
		if err != nil {
			return err
		}
		q, ok := quotes[symbol]
		if !ok || !q.Valid() {
			return fmt.Errorf("%w: %s", ErrNoQuote, symbol)
		}

		account, err := tx.GetAccount(ctx)
		if err != nil {
			return err
		}

		now := s.timeNow()
		qty := decimal.NewFromInt(req.Quantity)
		amount := q.CurrentPrice.Mul(qty)
		record = &domain.TradeRecord{
			ID:        s.newID(),
			Symbol:    symbol,
			Side:      req.Side,
			Quantity:  req.Quantity,
			Price:     q.CurrentPrice,
			Amount:    amount,
			Reason:    req.Reason,
			CreatedAt: now,
		}

		pos, err := tx.GetPosition(ctx, symbol)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return err
		}

		switch req.Side {
		case domain.SideBuy:
			if account.CurrentCapital.LessThan(amount) {
				return ErrInsufficientCapital
			}
			if pos == nil {
				pos = &domain.Position{Symbol: symbol, CostPrice: q.CurrentPrice}
			} else {
				held := decimal.NewFromInt(pos.Quantity)
				pos.CostPrice = pos.CostPrice.Mul(held).Add(amount).Div(held.Add(qty)).Round(4)
			}
			pos.Quantity += req.Quantity
			pos.UpdatedAt = now
			if err := tx.SavePosition(ctx, pos); err != nil {
				return err
			}
			account.CurrentCapital = account.CurrentCapital.Sub(amount)

		case domain.SideSell:
			if pos == nil || pos.Quantity < req.Quantity {
				return ErrInsufficientQuantity
			}
			record.Profit = q.CurrentPrice.Sub(pos.CostPrice).Mul(qty)
			pos.Quantity -= req.Quantity
			pos.UpdatedAt = now
			if pos.Quantity == 0 {
				err = tx.DeletePosition(ctx, symbol)
			} else {
				err = tx.SavePosition(ctx, pos)
			}
			if err != nil {
				return err
			}
			account.CurrentCapital = account.CurrentCapital.Add(amount)
			account.RealizedProfit = account.RealizedProfit.Add(record.Profit)
			account.TotalTrades++
			if record.Profit.IsPositive() {
				account.WinningTrades++
			}
		}

		account.UpdatedAt = now
		if err := tx.SaveAccount(ctx, account); err != nil {
			return err
		}
		return tx.SaveTrade(ctx, record)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Trade executed",
		zap.String("symbol", record.Symbol),
		zap.String("side", string(record.Side)),
		zap.Int64("quantity", record.Quantity),
		zap.String("price", record.Price.String()))
	return record, nil
}

// Drift moves every quote by a small random step. Outside trading time the
// market is frozen.
func (s *Service) Drift(ctx context.Context) error {
	if !s.calendar.IsTradingTime(s.timeNow()) {
		return nil
	}

	quotes, err := s.store.ListQuotes(ctx)
	if err != nil {
		return err
	}
	for _, q := range quotes {
		next := q.CurrentPrice.Mul(one.Add(maxDrift.Mul(s.step()))).Round(2)
		if next.LessThan(tick) {
			next = tick
		}
		q.CurrentPrice = next
		if err := s.store.SaveQuote(ctx, &q); err != nil {
			return err
		}
	}
	return nil
}

// step returns a uniform value in [-1, 1).
func (s *Service) step() decimal.Decimal {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return decimal.NewFromFloat(s.rng.Float64()*2 - 1)
}

// Start schedules the price drift and the daily close roll. Stop the
// returned cron to shut them down.
func (s *Service) Start(ctx context.Context, driftSchedule string) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(s.calendar.Location()))

	if _, err := c.AddFunc(driftSchedule, func() {
		if err := s.Drift(ctx); err != nil {
			s.logger.Error("Price drift failed", zap.Error(err))
		}
	}); err != nil {
		return nil, fmt.Errorf("drift schedule %q: %w", driftSchedule, err)
	}

	// After the afternoon session, today's last price becomes tomorrow's
	// reference.
	if _, err := c.AddFunc("5 15 * * MON-FRI", func() {
		if err := s.store.RollPrevClose(ctx); err != nil {
			s.logger.Error("Close roll failed", zap.Error(err))
		}
	}); err != nil {
		return nil, err
	}

	c.Start()
	s.logger.Info("Sandbox market started", zap.String("drift_schedule", driftSchedule))
	return c, nil
}
