package display

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dalfonso89/display-currency-engine/internal/clock"
	"github.com/dalfonso89/display-currency-engine/internal/models"
	"github.com/dalfonso89/display-currency-engine/internal/rates"
	"github.com/dalfonso89/display-currency-engine/internal/testutils"
)

// tableResolver composes rates from a fixed pivot-leg table and counts
// resolutions per pair.
type tableResolver struct {
	mu    sync.Mutex
	legs  map[models.CurrencyCode]float64
	calls map[models.Pair]int
}

func newTableResolver(legs map[models.CurrencyCode]float64) *tableResolver {
	return &tableResolver{legs: legs, calls: make(map[models.Pair]int)}
}

func (r *tableResolver) Rate(ctx context.Context, from, to models.CurrencyCode) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls[models.Pair{From: from, To: to}]++
	fromLeg, fromOK := r.legs[from]
	toLeg, toOK := r.legs[to]
	if !fromOK || !toOK {
		return 0, models.NewError(models.ErrorTypeRateUnavailable, nil, "no leg for %s or %s", from, to)
	}
	return fromLeg / toLeg, nil
}

func (r *tableResolver) totalCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0
	for _, count := range r.calls {
		total += count
	}
	return total
}

type schedulerFixture struct {
	registry  *Registry
	cache     *rates.Cache
	resolver  *tableResolver
	scheduler *Scheduler
	fake      *clock.Fake
}

func newSchedulerFixture(legs map[models.CurrencyCode]float64, active models.CurrencyCode) *schedulerFixture {
	fake := clock.NewFake()
	registry := NewRegistry(supportedForTest)
	cache := rates.NewCache(fake, testutils.MockLogger(), 5*time.Minute, 10*time.Minute, 2*time.Minute)
	resolver := newTableResolver(legs)
	scheduler := NewScheduler(registry, cache, resolver, fake, testutils.MockLogger(),
		300*time.Millisecond, 4, func() models.CurrencyCode { return active })
	return &schedulerFixture{registry: registry, cache: cache, resolver: resolver, scheduler: scheduler, fake: fake}
}

func TestScheduler_RefreshAll_Scenario(t *testing.T) {
	// Three bindings, two distinct source currencies, active USD, pivot
	// legs EUR=2.0 and USD=1.0. The EUR bindings convert at 2.0; the USD
	// binding formats directly with no rate lookup.
	fixture := newSchedulerFixture(map[models.CurrencyCode]float64{"EUR": 2.0, "USD": 1.0}, "USD")
	for _, binding := range testutils.MockBindings() {
		if _, err := fixture.registry.Register(binding); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	stats := fixture.scheduler.RefreshAll(context.Background(), "USD")

	if stats.DistinctPairs != 1 {
		t.Errorf("DistinctPairs = %d, want 1", stats.DistinctPairs)
	}
	if stats.Published != 3 {
		t.Errorf("Published = %d, want 3", stats.Published)
	}

	want := map[string]string{
		"price-1": "200.00",
		"price-2": "100.00",
		"price-3": "10.00",
	}
	for _, binding := range fixture.registry.Bindings() {
		if binding.Rendered != want[binding.ID] {
			t.Errorf("binding %s rendered %q, want %q", binding.ID, binding.Rendered, want[binding.ID])
		}
	}

	// The identity pair never reaches the resolver.
	fixture.resolver.mu.Lock()
	identityCalls := fixture.resolver.calls[models.Pair{From: "USD", To: "USD"}]
	fixture.resolver.mu.Unlock()
	if identityCalls != 0 {
		t.Errorf("identity pair resolved %d times, want 0", identityCalls)
	}
}

func TestScheduler_BatchingProperty(t *testing.T) {
	// Many bindings over few currencies: the resolver sees one resolution
	// per distinct pair direction, independent of binding count.
	fixture := newSchedulerFixture(map[models.CurrencyCode]float64{"EUR": 2.0, "GBP": 2.5, "USD": 1.0}, "USD")
	for i := 0; i < 20; i++ {
		currency := models.CurrencyCode("EUR")
		if i%2 == 1 {
			currency = "GBP"
		}
		if _, err := fixture.registry.Register(models.DisplayBinding{SourceAmount: float64(i + 1), SourceCurrency: currency}); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	stats := fixture.scheduler.RefreshAll(context.Background(), "USD")

	if stats.DistinctPairs != 2 {
		t.Errorf("DistinctPairs = %d, want 2", stats.DistinctPairs)
	}
	if stats.Published != 20 {
		t.Errorf("Published = %d, want 20", stats.Published)
	}
	// Two forward resolutions plus their cached inverse directions.
	if calls := fixture.resolver.totalCalls(); calls > 4 {
		t.Errorf("resolver calls = %d for 20 bindings, want at most 4", calls)
	}
}

func TestScheduler_CacheHitShortCircuits(t *testing.T) {
	fixture := newSchedulerFixture(map[models.CurrencyCode]float64{"EUR": 2.0, "USD": 1.0}, "USD")
	if _, err := fixture.registry.Register(models.DisplayBinding{SourceAmount: 100, SourceCurrency: "EUR"}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	fixture.scheduler.RefreshAll(context.Background(), "USD")
	callsAfterFirst := fixture.resolver.totalCalls()

	fixture.scheduler.RefreshAll(context.Background(), "USD")
	if calls := fixture.resolver.totalCalls(); calls != callsAfterFirst {
		t.Errorf("resolver calls grew from %d to %d on a warm cache, want no growth", callsAfterFirst, calls)
	}
}

func TestScheduler_BothDirectionsCached(t *testing.T) {
	fixture := newSchedulerFixture(map[models.CurrencyCode]float64{"EUR": 2.0, "USD": 1.0}, "USD")

	if _, err := fixture.scheduler.ResolvePair(context.Background(), "EUR", "USD"); err != nil {
		t.Fatalf("ResolvePair() error = %v", err)
	}

	forward, _, hitForward := fixture.cache.Get(models.Pair{From: "EUR", To: "USD"})
	reverse, _, hitReverse := fixture.cache.Get(models.Pair{From: "USD", To: "EUR"})
	if !hitForward || !hitReverse {
		t.Fatalf("cache hits forward=%v reverse=%v, want both", hitForward, hitReverse)
	}
	if forward.Rate != 2.0 {
		t.Errorf("forward rate = %v, want 2.0", forward.Rate)
	}
	if reverse.Rate != 0.5 {
		t.Errorf("reverse rate = %v, want 0.5", reverse.Rate)
	}
}

func TestScheduler_FailedPairLeavesBindingUntouched(t *testing.T) {
	fixture := newSchedulerFixture(map[models.CurrencyCode]float64{"USD": 1.0}, "USD")
	for _, binding := range testutils.MockBindings() {
		if _, err := fixture.registry.Register(binding); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	stats := fixture.scheduler.RefreshAll(context.Background(), "USD")

	if stats.FailedPairs != 1 {
		t.Errorf("FailedPairs = %d, want 1", stats.FailedPairs)
	}
	if stats.Untouched != 2 {
		t.Errorf("Untouched = %d, want 2", stats.Untouched)
	}
	for _, binding := range fixture.registry.Bindings() {
		switch binding.SourceCurrency {
		case "EUR":
			if binding.Rendered != "" {
				t.Errorf("EUR binding rendered %q despite unresolved pair", binding.Rendered)
			}
		case "USD":
			if binding.Rendered != "10.00" {
				t.Errorf("USD binding rendered %q, want 10.00", binding.Rendered)
			}
		}
	}
}

func TestScheduler_StaleCacheServedOnFailure(t *testing.T) {
	fixture := newSchedulerFixture(map[models.CurrencyCode]float64{"EUR": 2.0, "USD": 1.0}, "USD")

	if _, err := fixture.scheduler.ResolvePair(context.Background(), "EUR", "USD"); err != nil {
		t.Fatalf("ResolvePair() error = %v", err)
	}

	// Age the entry past the soft TTL, then take the upstream away.
	fixture.fake.Advance(6 * time.Minute)
	fixture.resolver.mu.Lock()
	delete(fixture.resolver.legs, "EUR")
	fixture.resolver.mu.Unlock()

	rate, err := fixture.scheduler.ResolvePair(context.Background(), "EUR", "USD")
	if err != nil {
		t.Fatalf("ResolvePair() with degraded resolver error = %v, want stale reuse", err)
	}
	if rate != 2.0 {
		t.Errorf("ResolvePair() = %v, want stale 2.0", rate)
	}

	// Past the hard TTL the stale entry is gone and the failure surfaces.
	fixture.fake.Advance(5 * time.Minute)
	if _, err := fixture.scheduler.ResolvePair(context.Background(), "EUR", "USD"); err == nil {
		t.Errorf("ResolvePair() past hard TTL expected error, got nil")
	}
}

func TestScheduler_DebouncedRefresh(t *testing.T) {
	fixture := newSchedulerFixture(map[models.CurrencyCode]float64{"EUR": 2.0, "USD": 1.0}, "USD")
	fixture.registry.SetOnChange(func() {
		fixture.scheduler.RequestRefresh(context.Background())
	})

	// A burst of registrations during page construction coalesces into
	// one refresh pass after the debounce window.
	for _, binding := range testutils.MockBindings() {
		if _, err := fixture.registry.Register(binding); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
		fixture.fake.Advance(50 * time.Millisecond)
	}

	if calls := fixture.resolver.totalCalls(); calls != 0 {
		t.Fatalf("resolver called %d times before debounce elapsed, want 0", calls)
	}

	fixture.fake.Advance(300 * time.Millisecond)

	if calls := fixture.resolver.totalCalls(); calls == 0 {
		t.Fatal("resolver never called after debounce elapsed")
	}
	for _, binding := range fixture.registry.Bindings() {
		if binding.Rendered == "" {
			t.Errorf("binding %s not rendered after debounced refresh", binding.ID)
		}
	}
}
