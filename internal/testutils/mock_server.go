package testutils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

// MockRateServer is an httptest server speaking the rate-source protocol:
// GET /api/currency/rate/{code} -> { success, data: { rate_to_algo } }.
// It counts requests per currency so tests can assert throttle and batching
// properties.
type MockRateServer struct {
	server *httptest.Server

	mu       sync.Mutex
	rates    map[string]float64
	failing  bool
	garbled  bool
	requests map[string]int
}

// NewMockRateServer starts a server preloaded with a small pivot-rate table.
func NewMockRateServer() *MockRateServer {
	mock := &MockRateServer{
		rates: map[string]float64{
			"ALGO": 1.0,
			"USD":  1.0,
			"EUR":  2.0,
			"GBP":  2.5,
			"JPY":  0.01,
		},
		requests: make(map[string]int),
	}
	mock.server = httptest.NewServer(http.HandlerFunc(mock.handler))
	return mock
}

func (m *MockRateServer) handler(w http.ResponseWriter, r *http.Request) {
	currency := strings.ToUpper(strings.TrimPrefix(r.URL.Path, "/api/currency/rate/"))

	m.mu.Lock()
	m.requests[currency]++
	failing := m.failing
	garbled := m.garbled
	rate, known := m.rates[currency]
	m.mu.Unlock()

	if failing {
		http.Error(w, "upstream down", http.StatusServiceUnavailable)
		return
	}
	if garbled {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"success": tru`))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if !known {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": false})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data":    map[string]float64{"rate_to_algo": rate},
	})
}

// URL returns the server base URL.
func (m *MockRateServer) URL() string {
	return m.server.URL
}

// Close shuts the server down.
func (m *MockRateServer) Close() {
	m.server.Close()
}

// SetRate installs or replaces a pivot rate.
func (m *MockRateServer) SetRate(currency string, rate float64) {
	m.mu.Lock()
	m.rates[currency] = rate
	m.mu.Unlock()
}

// SetFailing toggles 503 responses for every request.
func (m *MockRateServer) SetFailing(failing bool) {
	m.mu.Lock()
	m.failing = failing
	m.mu.Unlock()
}

// SetGarbled toggles malformed JSON responses.
func (m *MockRateServer) SetGarbled(garbled bool) {
	m.mu.Lock()
	m.garbled = garbled
	m.mu.Unlock()
}

// Requests reports how many requests arrived for a currency.
func (m *MockRateServer) Requests(currency string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[currency]
}

// TotalRequests reports how many requests arrived in total.
func (m *MockRateServer) TotalRequests() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, count := range m.requests {
		total += count
	}
	return total
}
