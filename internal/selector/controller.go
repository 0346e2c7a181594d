package selector

import (
	"context"
	"sync"
	"time"

	"github.com/dalfonso89/display-currency-engine/internal/clock"
	"github.com/dalfonso89/display-currency-engine/internal/logger"
	"github.com/dalfonso89/display-currency-engine/internal/models"
	"github.com/dalfonso89/display-currency-engine/internal/prefs"
	"github.com/dalfonso89/display-currency-engine/internal/state"
)

// PreferenceStore persists the selection for authenticated sessions.
type PreferenceStore interface {
	Enabled() bool
	SaveCurrency(ctx context.Context, currency models.CurrencyCode) error
}

// Controller owns the selectCurrency operation. A selection arriving before
// the throttle window has elapsed since the previous applied switch is
// deferred to fire after the remaining wait, never dropped: the user's final
// selection is always honored exactly once.
type Controller struct {
	active    *state.Active
	bus       *Bus
	panels    *PanelGroup
	store     PreferenceStore
	local     *prefs.LocalStore
	refresh   func(ctx context.Context, active models.CurrencyCode)
	supported func(models.CurrencyCode) bool
	clk       clock.Clock
	log       *logger.Logger
	window    time.Duration

	mu              sync.Mutex
	lastApplied     time.Time
	pendingTimer    clock.Timer
	pendingCurrency models.CurrencyCode
}

func NewController(
	active *state.Active,
	bus *Bus,
	panels *PanelGroup,
	store PreferenceStore,
	local *prefs.LocalStore,
	refresh func(ctx context.Context, active models.CurrencyCode),
	supported func(models.CurrencyCode) bool,
	clk clock.Clock,
	log *logger.Logger,
	window time.Duration,
) *Controller {
	return &Controller{
		active:    active,
		bus:       bus,
		panels:    panels,
		store:     store,
		local:     local,
		refresh:   refresh,
		supported: supported,
		clk:       clk,
		log:       log,
		window:    window,
	}
}

// Panels exposes the picker coordination surface.
func (c *Controller) Panels() *PanelGroup {
	return c.panels
}

// Bus exposes the currency-changed notification channel.
func (c *Controller) Bus() *Bus {
	return c.bus
}

// SelectCurrency switches the active display currency. Selecting the panel's
// entry also dismisses the pickers. Invalid currencies are rejected before
// any state changes.
func (c *Controller) SelectCurrency(ctx context.Context, currency models.CurrencyCode) error {
	if currency == "" || !c.supported(currency) {
		return models.NewError(models.ErrorTypeInvalidBinding, nil, "unsupported display currency %q", currency)
	}
	c.panels.Dismiss()

	now := c.clk.Now()
	c.mu.Lock()
	if !c.lastApplied.IsZero() {
		if elapsed := now.Sub(c.lastApplied); elapsed < c.window {
			// Defer to the end of the window. A still-newer selection
			// replaces the pending one; the timer fires once.
			c.pendingCurrency = currency
			if c.pendingTimer == nil {
				remaining := c.window - elapsed
				c.pendingTimer = c.clk.AfterFunc(remaining, func() {
					c.applyPending(ctx)
				})
				c.log.Debugf("currency switch to %s deferred for %v", currency, remaining)
			} else {
				c.log.Debugf("pending currency switch replaced with %s", currency)
			}
			c.mu.Unlock()
			return nil
		}
	}
	c.mu.Unlock()

	c.apply(ctx, currency, now)
	return nil
}

func (c *Controller) applyPending(ctx context.Context) {
	c.mu.Lock()
	currency := c.pendingCurrency
	c.pendingTimer = nil
	c.pendingCurrency = ""
	c.mu.Unlock()
	if currency == "" {
		return
	}
	c.apply(ctx, currency, c.clk.Now())
}

func (c *Controller) apply(ctx context.Context, currency models.CurrencyCode, now time.Time) {
	c.mu.Lock()
	c.lastApplied = now
	c.mu.Unlock()

	c.active.SetCurrency(currency)
	if c.local != nil {
		c.local.Set(string(currency))
	}

	// Fire-and-forget persistence; a failed write never blocks the
	// in-memory switch.
	if c.store != nil && c.store.Enabled() {
		go func() {
			if err := c.store.SaveCurrency(context.WithoutCancel(ctx), currency); err != nil {
				c.log.Warnf("failed to persist currency preference %s: %v", currency, err)
			}
		}()
	}

	c.refresh(ctx, currency)
	c.bus.Publish(models.CurrencyChanged{Currency: currency})
	c.log.Infof("active display currency switched to %s", currency)
}

// Stop cancels any pending deferred selection.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pendingTimer != nil {
		c.pendingTimer.Stop()
		c.pendingTimer = nil
		c.pendingCurrency = ""
	}
}
