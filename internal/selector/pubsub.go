// Package selector exposes the active-currency change operation and the UI
// panel coordination around it.
package selector

import (
	"sync"

	"github.com/dalfonso89/display-currency-engine/internal/logger"
	"github.com/dalfonso89/display-currency-engine/internal/models"
)

// Bus is the currency-changed notification channel: an explicit observer
// list instead of an ambient event bus, so subscribers can be exercised
// headlessly. Delivery is best-effort; a subscriber that is not draining its
// channel is skipped, never blocked on.
type Bus struct {
	log *logger.Logger

	mu          sync.Mutex
	subscribers map[int]chan models.CurrencyChanged
	nextID      int
}

func NewBus(log *logger.Logger) *Bus {
	return &Bus{
		log:         log,
		subscribers: make(map[int]chan models.CurrencyChanged),
	}
}

// Subscribe registers an observer and returns its channel plus a cancel
// function. The channel is buffered so one pending notification never
// requires an active reader.
func (b *Bus) Subscribe() (<-chan models.CurrencyChanged, func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	ch := make(chan models.CurrencyChanged, 4)
	b.subscribers[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if existing, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(existing)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish fans a notification out to every subscriber.
func (b *Bus) Publish(notification models.CurrencyChanged) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subscribers {
		select {
		case ch <- notification:
		default:
			b.log.Warnf("dropping currency-changed notification for slow subscriber %d", id)
		}
	}
}

// Subscribers reports the current observer count.
func (b *Bus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}
