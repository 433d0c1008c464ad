package usecase

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/vitos/paper_dashboard/internal/domain"
	"go.uber.org/zap"
)

const (
	TradingPollInterval    = 1 * time.Second
	IdlePollInterval       = 30 * time.Second
	DefaultCadenceSchedule = "@every 1m"
)

type PollerConfig struct {
	TradingInterval time.Duration
	IdleInterval    time.Duration
	// RequestTimeout bounds a single quote request. Zero means the current
	// poll interval.
	RequestTimeout  time.Duration
	CadenceSchedule string
}

func (c PollerConfig) withDefaults() PollerConfig {
	if c.TradingInterval <= 0 {
		c.TradingInterval = TradingPollInterval
	}
	if c.IdleInterval <= 0 {
		c.IdleInterval = IdlePollInterval
	}
	if c.CadenceSchedule == "" {
		c.CadenceSchedule = DefaultCadenceSchedule
	}
	return c
}

// QuotePoller refreshes the QuoteCache for the current symbol set.
//
// Two timers run while the poller is started and has symbols: a fast loop
// firing PollOnce every interval, and a cron supervisor that re-evaluates the
// market calendar and restarts the fast loop when the interval changes.
// At most one quote request is in flight at any time.
type QuotePoller struct {
	source   domain.QuoteSource
	cache    *QuoteCache
	calendar *MarketCalendar
	cfg      PollerConfig
	logger   *zap.Logger

	mu          sync.Mutex
	symbols     []string
	interval    time.Duration
	inFlight    bool
	generation  uint64
	seq         uint64
	appliedSeq  uint64
	lastUpdated time.Time
	listeners   []func(time.Time)

	started    bool
	baseCtx    context.Context
	stopFast   context.CancelFunc
	supervisor *cron.Cron

	timeNow func() time.Time // For testing
}

func NewQuotePoller(source domain.QuoteSource, cache *QuoteCache, calendar *MarketCalendar, cfg PollerConfig, logger *zap.Logger) *QuotePoller {
	p := &QuotePoller{
		source:   source,
		cache:    cache,
		calendar: calendar,
		cfg:      cfg.withDefaults(),
		logger:   logger.Named("quote_poller"),
		timeNow:  time.Now,
	}
	p.interval = p.intervalFor(p.timeNow())
	return p
}

func (p *QuotePoller) intervalFor(t time.Time) time.Duration {
	if p.calendar.IsTradingTime(t) {
		return p.cfg.TradingInterval
	}
	return p.cfg.IdleInterval
}

// OnUpdate registers a listener called after every successful merge.
func (p *QuotePoller) OnUpdate(fn func(updatedAt time.Time)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listeners = append(p.listeners, fn)
}

// Start arms the timers if there are symbols to poll. Cancelling ctx has the
// same effect as Stop.
func (p *QuotePoller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.baseCtx = ctx
	p.interval = p.intervalFor(p.timeNow())
	if len(p.symbols) > 0 {
		p.armLocked()
	}
	p.mu.Unlock()

	go func() {
		<-ctx.Done()
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.baseCtx == ctx {
			p.stopLocked()
		}
	}()
}

// Stop cancels both timers. A request already on the wire is left to finish
// but its response is discarded.
func (p *QuotePoller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *QuotePoller) stopLocked() {
	if !p.started {
		return
	}
	p.started = false
	p.disarmLocked()
	p.generation++
	p.inFlight = false
	p.logger.Info("Quote poller stopped")
}

// SetSymbols replaces the symbol set. Transitions between empty and
// non-empty arm or disarm the timers.
func (p *QuotePoller) SetSymbols(symbols []string) {
	seen := make(map[string]bool, len(symbols))
	next := make([]string, 0, len(symbols))
	for _, s := range symbols {
		key := domain.NormalizeSymbol(s)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		next = append(next, key)
	}
	sort.Strings(next)

	p.mu.Lock()
	defer p.mu.Unlock()
	wasEmpty := len(p.symbols) == 0
	p.symbols = next
	if !wasEmpty && len(next) == 0 {
		// Nothing is held any more; a response still on the wire is stale.
		p.generation++
		p.inFlight = false
	}
	if !p.started {
		return
	}
	switch {
	case wasEmpty && len(next) > 0:
		p.interval = p.intervalFor(p.timeNow())
		p.armLocked()
	case !wasEmpty && len(next) == 0:
		p.disarmLocked()
	}
}

// PollOnce issues a single quote request for the current symbol set and
// merges the result into the cache. It returns immediately when a previous
// request is still in flight or there is nothing to poll. Failures are
// logged and dropped; the next tick retries.
func (p *QuotePoller) PollOnce(ctx context.Context) {
	p.mu.Lock()
	if p.inFlight || len(p.symbols) == 0 {
		p.mu.Unlock()
		return
	}
	p.inFlight = true
	p.seq++
	seq, gen := p.seq, p.generation
	symbols := append([]string(nil), p.symbols...)
	timeout := p.cfg.RequestTimeout
	if timeout <= 0 {
		timeout = p.interval
	}
	p.mu.Unlock()

	defer p.release(gen)

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	quotes, err := p.source.GetQuotes(reqCtx, symbols)
	if err != nil {
		p.logger.Debug("Quote poll failed", zap.Strings("symbols", symbols), zap.Error(err))
		return
	}

	p.mu.Lock()
	if gen != p.generation || seq < p.appliedSeq {
		p.mu.Unlock()
		p.logger.Debug("Dropping stale quote response", zap.Uint64("seq", seq), zap.Uint64("generation", gen))
		return
	}
	p.cache.Merge(quotes)
	p.appliedSeq = seq
	now := p.timeNow()
	p.lastUpdated = now
	listeners := append([]func(time.Time){}, p.listeners...)
	p.mu.Unlock()

	for _, fn := range listeners {
		fn(now)
	}
}

func (p *QuotePoller) release(gen uint64) {
	p.mu.Lock()
	if gen == p.generation {
		p.inFlight = false
	}
	p.mu.Unlock()
}

// reevaluateCadence is the supervisor job.
func (p *QuotePoller) reevaluateCadence() {
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.intervalFor(p.timeNow())
	if next == p.interval {
		return
	}
	p.logger.Info("Poll cadence changed", zap.Duration("from", p.interval), zap.Duration("to", next))
	p.interval = next
	if p.stopFast != nil {
		p.stopFast()
		p.startFastLocked()
	}
}

func (p *QuotePoller) armLocked() {
	if p.stopFast != nil {
		return
	}
	p.startFastLocked()

	c := cron.New()
	if _, err := c.AddFunc(p.cfg.CadenceSchedule, p.reevaluateCadence); err != nil {
		p.logger.Error("Invalid cadence schedule", zap.String("schedule", p.cfg.CadenceSchedule), zap.Error(err))
	}
	c.Start()
	p.supervisor = c

	p.logger.Info("Quote poller armed", zap.Duration("interval", p.interval), zap.Strings("symbols", p.symbols))
}

func (p *QuotePoller) disarmLocked() {
	if p.stopFast != nil {
		p.stopFast()
		p.stopFast = nil
	}
	if p.supervisor != nil {
		// Not waiting on the returned context: a running supervisor job may be
		// blocked on p.mu.
		p.supervisor.Stop()
		p.supervisor = nil
	}
}

func (p *QuotePoller) startFastLocked() {
	fastCtx, cancel := context.WithCancel(p.baseCtx)
	p.stopFast = cancel
	go p.runFast(fastCtx, p.baseCtx, p.interval)
}

func (p *QuotePoller) runFast(ctx, reqCtx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	go p.PollOnce(reqCtx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			go p.PollOnce(reqCtx)
		}
	}
}

func (p *QuotePoller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

func (p *QuotePoller) LastUpdated() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastUpdated
}

func (p *QuotePoller) Symbols() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.symbols...)
}

func (p *QuotePoller) armed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopFast != nil && p.supervisor != nil
}
