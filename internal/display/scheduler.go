package display

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dalfonso89/display-currency-engine/internal/clock"
	"github.com/dalfonso89/display-currency-engine/internal/logger"
	"github.com/dalfonso89/display-currency-engine/internal/models"
	"github.com/dalfonso89/display-currency-engine/internal/rates"
)

// RateResolver composes a rate between two currencies, typically the pivot
// converter.
type RateResolver interface {
	Rate(ctx context.Context, from, to models.CurrencyCode) (float64, error)
}

// RefreshStats summarizes one refresh pass.
type RefreshStats struct {
	DistinctPairs int `json:"distinct_pairs"`
	ResolvedPairs int `json:"resolved_pairs"`
	FailedPairs   int `json:"failed_pairs"`
	Published     int `json:"published"`
	Untouched     int `json:"untouched"`
}

// Scheduler is the batch refresh coordinator. A refresh computes the minimal
// distinct-pair set across all bindings, resolves each pair exactly once and
// republishes every binding, so N on-page prices cost "number of distinct
// source currencies" resolutions instead of N.
type Scheduler struct {
	registry *Registry
	cache    *rates.Cache
	resolver RateResolver
	clk      clock.Clock
	log      *logger.Logger

	debounce      time.Duration
	maxConcurrent int
	activeFn      func() models.CurrencyCode

	mu      sync.Mutex
	pending clock.Timer
}

func NewScheduler(registry *Registry, cache *rates.Cache, resolver RateResolver, clk clock.Clock, log *logger.Logger, debounce time.Duration, maxConcurrent int, activeFn func() models.CurrencyCode) *Scheduler {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Scheduler{
		registry:      registry,
		cache:         cache,
		resolver:      resolver,
		clk:           clk,
		log:           log,
		debounce:      debounce,
		maxConcurrent: maxConcurrent,
		activeFn:      activeFn,
	}
}

// ResolvePair resolves one directional pair with cache precedence: a cache
// hit below the hard TTL short-circuits the converter. On a converter
// failure a stale-but-not-evicted cache entry is still served. A successful
// composition is written back in both directions, each computed through the
// pivot rather than by inversion, so the two directions never drift apart
// through floating-point asymmetry.
func (s *Scheduler) ResolvePair(ctx context.Context, from, to models.CurrencyCode) (float64, error) {
	if from == to {
		return 1, nil
	}

	pair := models.Pair{From: from, To: to}
	entry, freshness, hit := s.cache.Get(pair)
	if hit && freshness == rates.Fresh {
		return entry.Rate, nil
	}

	rate, err := s.resolver.Rate(ctx, from, to)
	if err != nil {
		if hit {
			s.log.Debugf("composition for %s unavailable, serving stale cached rate: %v", pair, err)
			return entry.Rate, nil
		}
		return 0, err
	}

	if putErr := s.cache.Put(pair, rate); putErr != nil {
		return 0, putErr
	}
	if inverse, invErr := s.resolver.Rate(ctx, to, from); invErr == nil {
		if putErr := s.cache.Put(pair.Reverse(), inverse); putErr != nil {
			s.log.Warnf("failed to cache inverse direction for %s: %v", pair, putErr)
		}
	}
	return rate, nil
}

// RefreshAll resolves every distinct (source, active) pair once, in
// parallel, then republishes formatted values to all bindings. A binding
// whose pair failed to resolve is left unmodified with a single diagnostic
// log line.
func (s *Scheduler) RefreshAll(ctx context.Context, active models.CurrencyCode) RefreshStats {
	sources := s.registry.SourcesNeeding(active)
	stats := RefreshStats{DistinctPairs: len(sources)}

	var resolvedMu sync.Mutex
	resolved := make(map[models.CurrencyCode]float64, len(sources))

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.maxConcurrent)
	for _, source := range sources {
		source := source
		group.Go(func() error {
			rate, err := s.ResolvePair(groupCtx, source, active)
			if err != nil {
				s.log.Warnf("pair %s->%s left unresolved: %v", source, active, err)
				return nil
			}
			resolvedMu.Lock()
			resolved[source] = rate
			resolvedMu.Unlock()
			return nil
		})
	}
	_ = group.Wait()

	stats.ResolvedPairs = len(resolved)
	stats.FailedPairs = stats.DistinctPairs - stats.ResolvedPairs

	for _, binding := range s.registry.Bindings() {
		if binding.SourceCurrency == active {
			// Same currency: format directly, no conversion and no
			// rate lookup.
			s.registry.Publish(binding.ID, FormatAmount(binding.SourceAmount, active, binding.Format))
			stats.Published++
			continue
		}
		rate, ok := resolved[binding.SourceCurrency]
		if !ok {
			stats.Untouched++
			continue
		}
		s.registry.Publish(binding.ID, FormatAmount(binding.SourceAmount*rate, active, binding.Format))
		stats.Published++
	}

	s.log.Debugf("refresh for %s: %d distinct pairs, %d resolved, %d published, %d untouched",
		active, stats.DistinctPairs, stats.ResolvedPairs, stats.Published, stats.Untouched)
	return stats
}

// RequestRefresh schedules a refresh after the debounce window, replacing
// any pending request. Bindings registered during late page construction
// coalesce into a single pass instead of each triggering its own.
func (s *Scheduler) RequestRefresh(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.pending.Stop()
	}
	s.pending = s.clk.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		s.pending = nil
		s.mu.Unlock()
		s.RefreshAll(ctx, s.activeFn())
	})
}

// Stop cancels any pending debounced refresh.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}
