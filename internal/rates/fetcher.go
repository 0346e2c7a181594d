package rates

import (
	"context"
	"sync"
	"time"

	"github.com/dalfonso89/display-currency-engine/internal/clock"
	"github.com/dalfonso89/display-currency-engine/internal/logger"
	"github.com/dalfonso89/display-currency-engine/internal/models"
	"github.com/dalfonso89/display-currency-engine/internal/state"
)

type legValue struct {
	rate      float64
	fetchedAt time.Time
}

// Fetcher wraps a Source with the process-wide minimum-interval throttle and
// a last-known-value store. A leg fetched recently is served from memory
// without consuming the throttle window, so a multi-leg composition does not
// starve the legs resolved after the first. A call skipped by the throttle
// reuses the previous value for that currency, however old, instead of
// issuing new I/O; that is a deliberate availability/cost trade-off, not an
// error.
type Fetcher struct {
	source   Source
	active   *state.Active
	clk      clock.Clock
	log      *logger.Logger
	window   time.Duration
	reuseTTL time.Duration

	mu        sync.RWMutex
	lastKnown map[models.CurrencyCode]legValue
}

func NewFetcher(source Source, active *state.Active, clk clock.Clock, log *logger.Logger, window, reuseTTL time.Duration) *Fetcher {
	return &Fetcher{
		source:    source,
		active:    active,
		clk:       clk,
		log:       log,
		window:    window,
		reuseTTL:  reuseTTL,
		lastKnown: make(map[models.CurrencyCode]legValue),
	}
}

// PivotRate resolves one currency's rate against the pivot, issuing at most
// one outbound request. No two outbound requests ever leave this process
// closer together than the throttle window, regardless of call rate.
func (f *Fetcher) PivotRate(ctx context.Context, currency models.CurrencyCode) (float64, error) {
	now := f.clk.Now()

	if value, ok := f.lastKnownLeg(currency); ok && now.Sub(value.fetchedAt) < f.reuseTTL {
		return value.rate, nil
	}

	if !f.active.ReserveRequest(now, f.window) {
		if value, ok := f.lastKnownLeg(currency); ok {
			f.log.Debugf("pivot fetch for %s throttled, reusing last known rate %v", currency, value.rate)
			return value.rate, nil
		}
		return 0, models.NewError(models.ErrorTypeThrottled, nil, "pivot fetch for %s throttled with no previous value", currency)
	}

	rate, err := f.source.PivotRate(ctx, currency)
	if err != nil {
		// The upstream is degraded; a previous value, even one whose
		// cache entry has gone stale, beats blocking every pair that
		// routes through this leg.
		if value, ok := f.lastKnownLeg(currency); ok {
			f.log.Warnf("pivot fetch for %s failed, falling back to last known rate: %v", currency, err)
			return value.rate, nil
		}
		f.log.Warnf("pivot fetch for %s failed with no fallback: %v", currency, err)
		return 0, err
	}

	f.mu.Lock()
	f.lastKnown[currency] = legValue{rate: rate, fetchedAt: now}
	f.mu.Unlock()
	return rate, nil
}

func (f *Fetcher) lastKnownLeg(currency models.CurrencyCode) (legValue, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	value, ok := f.lastKnown[currency]
	return value, ok
}
