// Package state holds the active-currency state shared by the fetcher and
// the selector. It is an explicitly constructed object owned by the engine,
// not a package-level global, so independent engine instances can coexist.
package state

import (
	"sync"
	"time"

	"github.com/dalfonso89/display-currency-engine/internal/models"
)

// Active tracks the currently selected display currency and the timestamp of
// the last outbound rate request. All mutation goes through this struct; the
// mutex makes the multi-threaded rendition safe.
type Active struct {
	mu            sync.RWMutex
	currency      models.CurrencyCode
	lastRequestAt time.Time
}

func New(initial models.CurrencyCode) *Active {
	return &Active{currency: initial}
}

func (a *Active) Currency() models.CurrencyCode {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.currency
}

func (a *Active) SetCurrency(currency models.CurrencyCode) {
	a.mu.Lock()
	a.currency = currency
	a.mu.Unlock()
}

// LastRequestAt returns the timestamp of the last outbound rate request.
func (a *Active) LastRequestAt() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastRequestAt
}

// ReserveRequest atomically checks the minimum-interval throttle and, when
// allowed, stamps now as the last outbound request time. It reports whether
// the caller may issue an outbound fetch. The check-and-stamp is a single
// critical section so no two fetches can ever be reserved inside one window.
func (a *Active) ReserveRequest(now time.Time, window time.Duration) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.lastRequestAt.IsZero() && now.Sub(a.lastRequestAt) < window {
		return false
	}
	a.lastRequestAt = now
	return true
}
