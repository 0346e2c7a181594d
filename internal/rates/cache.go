package rates

import (
	"sync"
	"time"

	"github.com/dalfonso89/display-currency-engine/internal/clock"
	"github.com/dalfonso89/display-currency-engine/internal/logger"
	"github.com/dalfonso89/display-currency-engine/internal/models"
)

// Freshness describes the age class of a cache hit.
type Freshness int

const (
	// Fresh entries are younger than the soft TTL.
	Fresh Freshness = iota
	// Stale entries are between the soft and hard TTL: still usable for
	// immediate display, eligible for refresh. The caller decides.
	Stale
)

// Cache is a time-bounded store of directional pair rates. Entries older
// than the hard TTL are never returned and are purged by a periodic sweep
// rather than on every read, to bound sweep cost.
type Cache struct {
	log *logger.Logger
	clk clock.Clock

	softTTL       time.Duration
	hardTTL       time.Duration
	sweepInterval time.Duration

	mu      sync.RWMutex
	entries map[models.Pair]models.ExchangeRate

	sweepTicker clock.Ticker
	stopSweep   chan struct{}
	stopOnce    sync.Once
}

// NewCache creates a cache. Start must be called to begin the periodic sweep.
func NewCache(clk clock.Clock, log *logger.Logger, softTTL, hardTTL, sweepInterval time.Duration) *Cache {
	return &Cache{
		log:           log,
		clk:           clk,
		softTTL:       softTTL,
		hardTTL:       hardTTL,
		sweepInterval: sweepInterval,
		entries:       make(map[models.Pair]models.ExchangeRate),
		stopSweep:     make(chan struct{}),
	}
}

// Get returns the cached rate for a pair if its age is below the hard TTL.
// The Freshness result tells the caller whether the entry is past the soft
// TTL and should be refreshed when the throttle allows.
func (c *Cache) Get(pair models.Pair) (models.ExchangeRate, Freshness, bool) {
	c.mu.RLock()
	entry, exists := c.entries[pair]
	c.mu.RUnlock()
	if !exists {
		return models.ExchangeRate{}, Fresh, false
	}

	age := c.clk.Now().Sub(entry.ResolvedAt)
	if age >= c.hardTTL {
		// Evictable; never returned. The sweep will purge it.
		return models.ExchangeRate{}, Fresh, false
	}
	if age >= c.softTTL {
		return entry, Stale, true
	}
	return entry, Fresh, true
}

// Put inserts or overwrites a pair rate, stamping the current time.
// Non-positive rates violate the cache invariant and are rejected.
func (c *Cache) Put(pair models.Pair, rate float64) error {
	if rate <= 0 {
		return models.NewError(models.ErrorTypeRateUnavailable, nil, "refusing non-positive rate %v for %s", rate, pair)
	}
	c.mu.Lock()
	c.entries[pair] = models.ExchangeRate{
		Pair:       pair,
		Rate:       rate,
		ResolvedAt: c.clk.Now(),
	}
	c.mu.Unlock()
	return nil
}

// Sweep removes all entries older than the hard TTL and returns how many
// were purged. Sweeping never forces a refresh; a stale value already on
// screen stays there until the next natural refresh trigger.
func (c *Cache) Sweep() int {
	now := c.clk.Now()
	c.mu.Lock()
	purged := 0
	for pair, entry := range c.entries {
		if now.Sub(entry.ResolvedAt) >= c.hardTTL {
			delete(c.entries, pair)
			purged++
		}
	}
	c.mu.Unlock()
	return purged
}

// Len reports the number of entries currently stored, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Start launches the periodic sweep goroutine.
func (c *Cache) Start() {
	c.sweepTicker = c.clk.NewTicker(c.sweepInterval)
	go func() {
		for {
			select {
			case <-c.sweepTicker.C():
				if purged := c.Sweep(); purged > 0 {
					c.log.Debugf("rate cache sweep purged %d entries", purged)
				}
			case <-c.stopSweep:
				c.sweepTicker.Stop()
				return
			}
		}
	}()
}

// Stop halts the sweep goroutine.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopSweep)
	})
}
