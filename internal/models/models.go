package models

import "time"

// CurrencyCode is a short currency identifier such as "EUR", "USD" or the
// platform's native token symbol.
type CurrencyCode string

// Pair is a directional currency pair. "EUR→USD" and "USD→EUR" are distinct
// pairs and are cached independently.
type Pair struct {
	From CurrencyCode
	To   CurrencyCode
}

func (p Pair) Reverse() Pair {
	return Pair{From: p.To, To: p.From}
}

func (p Pair) String() string {
	return string(p.From) + "->" + string(p.To)
}

// ExchangeRate is a resolved rate for a directional pair. Rate is always > 0.
type ExchangeRate struct {
	Pair       Pair
	Rate       float64
	ResolvedAt time.Time
}

// FormatOptions control how a binding's converted amount is rendered.
// A Precision of -1 selects the per-currency default.
type FormatOptions struct {
	Symbol      string `json:"symbol"`
	Precision   int    `json:"precision"`
	Thousand    string `json:"thousand"`
	Decimal     string `json:"decimal"`
	SymbolAfter bool   `json:"symbol_after"`
}

// DisplayBinding is a page element's declared monetary value, tracked so it
// can be re-rendered whenever the active display currency changes. The
// binding itself is immutable after registration; only its rendered output
// is republished.
type DisplayBinding struct {
	ID             string        `json:"id"`
	SourceAmount   float64       `json:"source_amount"`
	SourceCurrency CurrencyCode  `json:"source_currency"`
	Format         FormatOptions `json:"format"`
	Rendered       string        `json:"rendered,omitempty"`
}

// RateSourceResponse is the wire payload of the external rate service:
// GET /api/currency/rate/{code}. The payload is untrusted; a missing data
// section or success=false means the rate is unavailable.
type RateSourceResponse struct {
	Success bool `json:"success"`
	Data    struct {
		RateToAlgo float64 `json:"rate_to_algo"`
	} `json:"data"`
}

// CurrencyChanged is the notification payload published after a successful
// currency switch.
type CurrencyChanged struct {
	Currency CurrencyCode `json:"currency"`
}

// HealthCheck is the service health response.
type HealthCheck struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Uptime    string    `json:"uptime"`
}

// ErrorResponse is the generic HTTP error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
