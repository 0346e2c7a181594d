// Package engine wires the display-currency components into one explicitly
// constructed object owned by the page/session lifetime. Nothing here is a
// package-level global; independent engines (multi-tenant use) can coexist.
package engine

import (
	"context"

	"github.com/dalfonso89/display-currency-engine/internal/clock"
	"github.com/dalfonso89/display-currency-engine/internal/config"
	"github.com/dalfonso89/display-currency-engine/internal/display"
	"github.com/dalfonso89/display-currency-engine/internal/logger"
	"github.com/dalfonso89/display-currency-engine/internal/models"
	"github.com/dalfonso89/display-currency-engine/internal/prefs"
	"github.com/dalfonso89/display-currency-engine/internal/rates"
	"github.com/dalfonso89/display-currency-engine/internal/selector"
	"github.com/dalfonso89/display-currency-engine/internal/state"
)

// Engine is the assembled display-currency subsystem.
type Engine struct {
	Config    *config.Config
	Log       *logger.Logger
	Clock     clock.Clock
	State     *state.Active
	Cache     *rates.Cache
	Source    rates.Source
	Fetcher   *rates.Fetcher
	Converter *rates.Converter
	Registry  *display.Registry
	Scheduler *display.Scheduler
	Selector  *selector.Controller
	Local     *prefs.LocalStore
}

// Options carry the injectable collaborators. Zero values select the real
// implementations.
type Options struct {
	Clock    clock.Clock
	Source   rates.Source
	Snapshot prefs.PageSnapshot
	Local    *prefs.LocalStore
}

// New builds and wires an engine. The active currency is resolved once, at
// construction, from the ordered preference sources.
func New(cfg *config.Config, log *logger.Logger, opts Options) *Engine {
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	source := opts.Source
	if source == nil {
		source = rates.NewHTTPSource(cfg, log)
	}
	local := opts.Local
	if local == nil {
		local = prefs.NewLocalStore("")
	}

	resolver := prefs.NewResolver(
		prefs.Sources(opts.Snapshot, local),
		models.CurrencyCode(cfg.DefaultCurrency),
		log,
	)
	active := state.New(resolver.Resolve())

	supported := func(code models.CurrencyCode) bool {
		return cfg.IsSupported(string(code))
	}

	cache := rates.NewCache(clk, log, cfg.RateSoftTTL, cfg.RateHardTTL, cfg.SweepInterval)
	fetcher := rates.NewFetcher(source, active, clk, log, cfg.ThrottleWindow, cfg.RateSoftTTL)
	converter := rates.NewConverter(models.CurrencyCode(cfg.PivotCurrency), fetcher, log)
	registry := display.NewRegistry(supported)
	scheduler := display.NewScheduler(registry, cache, converter, clk, log,
		cfg.DebounceWindow, cfg.MaxConcurrentResolutions, active.Currency)

	controller := selector.NewController(
		active,
		selector.NewBus(log),
		selector.NewPanelGroup(),
		prefs.NewStoreClient(cfg, log),
		local,
		func(ctx context.Context, currency models.CurrencyCode) {
			scheduler.RefreshAll(ctx, currency)
		},
		supported,
		clk,
		log,
		cfg.ThrottleWindow,
	)

	e := &Engine{
		Config:    cfg,
		Log:       log,
		Clock:     clk,
		State:     active,
		Cache:     cache,
		Source:    source,
		Fetcher:   fetcher,
		Converter: converter,
		Registry:  registry,
		Scheduler: scheduler,
		Selector:  controller,
		Local:     local,
	}

	// Late-arriving bindings coalesce into one debounced refresh pass.
	registry.SetOnChange(func() {
		scheduler.RequestRefresh(context.Background())
	})

	return e
}

// Start launches the periodic cache sweep.
func (e *Engine) Start() {
	e.Cache.Start()
	e.Log.Infof("display-currency engine started, active currency %s, pivot %s",
		e.State.Currency(), e.Config.PivotCurrency)
}

// Stop halts background work. In-flight fetches are not cancelled; their
// results land in the cache and are simply available to nobody.
func (e *Engine) Stop() {
	e.Scheduler.Stop()
	e.Selector.Stop()
	e.Cache.Stop()
}
