// Package prefs resolves the active display currency at startup and
// persists the user's choice to the preference store.
package prefs

import (
	"strings"
	"sync"

	"github.com/dalfonso89/display-currency-engine/internal/logger"
	"github.com/dalfonso89/display-currency-engine/internal/models"
)

// Source yields a candidate display currency. An empty value means this
// source has nothing to offer and the next one is tried.
type Source interface {
	Name() string
	Lookup() string
}

// FuncSource adapts a lookup function into a Source.
type FuncSource struct {
	name   string
	lookup func() string
}

func NewFuncSource(name string, lookup func() string) *FuncSource {
	return &FuncSource{name: name, lookup: lookup}
}

func (s *FuncSource) Name() string   { return s.name }
func (s *FuncSource) Lookup() string { return s.lookup() }

// PageSnapshot carries the already-rendered page state the resolver reads.
// No network I/O is involved.
type PageSnapshot struct {
	SymbolText       string
	MobileSymbolText string
	ServerPreference string
}

// LocalStore is the cached local preference, the fourth resolver source.
type LocalStore struct {
	mu    sync.RWMutex
	value string
}

func NewLocalStore(initial string) *LocalStore {
	return &LocalStore{value: initial}
}

func (s *LocalStore) Get() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

func (s *LocalStore) Set(value string) {
	s.mu.Lock()
	s.value = value
	s.mu.Unlock()
}

// Sources builds the resolver source list in strict priority order:
// rendered symbol element, its mobile variant, the server-rendered
// preference marker, then the cached local preference.
func Sources(snapshot PageSnapshot, local *LocalStore) []Source {
	return []Source{
		NewFuncSource("symbol-element", func() string { return snapshot.SymbolText }),
		NewFuncSource("mobile-symbol-element", func() string { return snapshot.MobileSymbolText }),
		NewFuncSource("server-preference", func() string { return snapshot.ServerPreference }),
		NewFuncSource("local-preference", local.Get),
	}
}

// Resolver determines the active display currency from an ordered source
// list. It never fails: when every source is empty the hard-coded default
// wins.
type Resolver struct {
	sources  []Source
	fallback models.CurrencyCode
	log      *logger.Logger
}

func NewResolver(sources []Source, fallback models.CurrencyCode, log *logger.Logger) *Resolver {
	return &Resolver{sources: sources, fallback: fallback, log: log}
}

// Resolve tries each source in order and returns the first non-empty value,
// normalized to upper case.
func (r *Resolver) Resolve() models.CurrencyCode {
	for _, source := range r.sources {
		value := strings.ToUpper(strings.TrimSpace(source.Lookup()))
		if value != "" {
			r.log.Debugf("display currency %s resolved from %s", value, source.Name())
			return models.CurrencyCode(value)
		}
	}
	r.log.Debugf("no preference source yielded a currency, defaulting to %s", r.fallback)
	return r.fallback
}
