// Package display tracks the on-page value bindings and keeps them in sync
// with the active display currency through coordinated batch refreshes.
package display

import (
	"sync"

	"github.com/google/uuid"

	"github.com/dalfonso89/display-currency-engine/internal/models"
)

// Registry owns the set of display bindings for the lifetime of a page view.
// Registering a binding never triggers an immediate resolution; that would
// cause an update storm while a page registers dozens of bindings in quick
// succession. The scheduler pulls the minimal distinct-pair set instead.
type Registry struct {
	supported func(models.CurrencyCode) bool

	mu       sync.RWMutex
	bindings map[string]models.DisplayBinding
	onChange func()
}

// NewRegistry creates a registry. supported decides which currency codes are
// accepted at registration time.
func NewRegistry(supported func(models.CurrencyCode) bool) *Registry {
	return &Registry{
		supported: supported,
		bindings:  make(map[string]models.DisplayBinding),
	}
}

// SetOnChange installs a callback fired after every successful register or
// unregister. The engine wires this to the debounced refresh request.
func (r *Registry) SetOnChange(fn func()) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// Register adds a binding and returns its ID, generating one when the caller
// supplied none. Malformed bindings (non-positive amount, unknown currency)
// are rejected and never enter a refresh batch.
func (r *Registry) Register(binding models.DisplayBinding) (string, error) {
	if binding.SourceAmount <= 0 {
		return "", models.NewError(models.ErrorTypeInvalidBinding, nil, "binding amount must be positive, got %v", binding.SourceAmount)
	}
	if binding.SourceCurrency == "" || !r.supported(binding.SourceCurrency) {
		return "", models.NewError(models.ErrorTypeInvalidBinding, nil, "unknown source currency %q", binding.SourceCurrency)
	}
	if binding.ID == "" {
		binding.ID = uuid.NewString()
	}

	r.mu.Lock()
	r.bindings[binding.ID] = binding
	onChange := r.onChange
	r.mu.Unlock()

	if onChange != nil {
		onChange()
	}
	return binding.ID, nil
}

// Unregister removes a binding, reporting whether it existed.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	_, existed := r.bindings[id]
	delete(r.bindings, id)
	onChange := r.onChange
	r.mu.Unlock()

	if existed && onChange != nil {
		onChange()
	}
	return existed
}

// Bindings returns a snapshot of all registered bindings.
func (r *Registry) Bindings() []models.DisplayBinding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	snapshot := make([]models.DisplayBinding, 0, len(r.bindings))
	for _, binding := range r.bindings {
		snapshot = append(snapshot, binding)
	}
	return snapshot
}

// Len reports the number of registered bindings.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bindings)
}

// SourcesNeeding returns the distinct source currencies among all bindings
// whose source differs from the given display currency. Registration order
// is irrelevant; the result is an unordered set.
func (r *Registry) SourcesNeeding(currency models.CurrencyCode) []models.CurrencyCode {
	r.mu.RLock()
	defer r.mu.RUnlock()
	seen := make(map[models.CurrencyCode]struct{})
	for _, binding := range r.bindings {
		if binding.SourceCurrency != currency {
			seen[binding.SourceCurrency] = struct{}{}
		}
	}
	sources := make([]models.CurrencyCode, 0, len(seen))
	for source := range seen {
		sources = append(sources, source)
	}
	return sources
}

// Publish stores a binding's rendered output. The binding's declared value
// is never touched.
func (r *Registry) Publish(id, rendered string) {
	r.mu.Lock()
	if binding, exists := r.bindings[id]; exists {
		binding.Rendered = rendered
		r.bindings[id] = binding
	}
	r.mu.Unlock()
}
