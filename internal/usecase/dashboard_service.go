package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vitos/paper_dashboard/internal/domain"
	"go.uber.org/zap"
)

const DefaultRecordLimit = 50

// DashboardService owns the last authoritative account snapshot and
// publishes the derived view whenever the snapshot or the quote cache
// changes.
type DashboardService struct {
	client      domain.SnapshotClient
	poller      *QuotePoller
	cache       *QuoteCache
	calendar    *MarketCalendar
	logger      *zap.Logger
	recordLimit int

	mu          sync.RWMutex
	account     domain.AccountSnapshot
	positions   []domain.Position
	records     []domain.TradeRecord
	snapshotAt  time.Time
	subscribers []func(domain.DashboardView)

	timeNow func() time.Time // For testing
}

func NewDashboardService(
	client domain.SnapshotClient,
	poller *QuotePoller,
	cache *QuoteCache,
	calendar *MarketCalendar,
	logger *zap.Logger,
) *DashboardService {
	s := &DashboardService{
		client:      client,
		poller:      poller,
		cache:       cache,
		calendar:    calendar,
		logger:      logger.Named("dashboard"),
		recordLimit: DefaultRecordLimit,
		timeNow:     time.Now,
	}
	poller.OnUpdate(func(time.Time) { s.publish() })
	return s
}

func (s *DashboardService) SetRecordLimit(limit int) {
	if limit > 0 {
		s.recordLimit = limit
	}
}

// Start starts the quote poller and refreshes the snapshot immediately and
// then every refreshInterval until ctx is done.
func (s *DashboardService) Start(ctx context.Context, refreshInterval time.Duration) {
	s.poller.Start(ctx)

	go func() {
		if err := s.Refresh(ctx); err != nil {
			s.logger.Error("Failed to load initial snapshot", zap.Error(err))
		}
		if refreshInterval <= 0 {
			return
		}

		ticker := time.NewTicker(refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Refresh(ctx); err != nil {
					s.logger.Error("Failed to refresh snapshot", zap.Error(err))
				}
			}
		}
	}()
}

// Refresh replaces the snapshot with a fresh copy from the API. On failure
// the previous snapshot stays in place.
func (s *DashboardService) Refresh(ctx context.Context) error {
	account, positions, err := s.client.GetAccount(ctx)
	if err != nil {
		return fmt.Errorf("fetch account: %w", err)
	}
	records, err := s.client.GetTradeRecords(ctx, s.recordLimit)
	if err != nil {
		return fmt.Errorf("fetch trade records: %w", err)
	}

	held := make([]domain.Position, 0, len(positions))
	var symbols []string
	for _, p := range positions {
		p.Symbol = domain.NormalizeSymbol(p.Symbol)
		held = append(held, p)
		if p.Quantity > 0 {
			symbols = append(symbols, p.Symbol)
		}
	}

	s.mu.Lock()
	if account != nil {
		s.account = *account
	}
	s.positions = held
	s.records = records
	s.snapshotAt = s.timeNow()
	s.mu.Unlock()

	s.poller.SetSymbols(symbols)
	s.publish()
	return nil
}

// View derives the dashboard view from the current snapshot and quote cache.
func (s *DashboardService) View() domain.DashboardView {
	s.mu.RLock()
	account := s.account
	positions := s.positions
	records := append([]domain.TradeRecord(nil), s.records...)
	snapshotAt := s.snapshotAt
	s.mu.RUnlock()

	return domain.DashboardView{
		Account:        account,
		Positions:      DisplayPositions(positions, s.cache),
		Valuation:      PortfolioValuation(positions, s.cache, account),
		Records:        records,
		TradingTime:    s.calendar.IsTradingTime(s.timeNow()),
		PollIntervalMs: s.poller.Interval().Milliseconds(),
		LastUpdated:    s.poller.LastUpdated(),
		SnapshotAt:     snapshotAt,
	}
}

// Subscribe registers fn to receive every published view.
func (s *DashboardService) Subscribe(fn func(domain.DashboardView)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, fn)
}

func (s *DashboardService) publish() {
	s.mu.RLock()
	subs := append([]func(domain.DashboardView){}, s.subscribers...)
	s.mu.RUnlock()
	if len(subs) == 0 {
		return
	}

	view := s.View()
	for _, fn := range subs {
		fn(view)
	}
}
