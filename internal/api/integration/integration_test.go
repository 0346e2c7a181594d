//go:build integration

package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dalfonso89/display-currency-engine/internal/api"
	"github.com/dalfonso89/display-currency-engine/internal/engine"
	"github.com/dalfonso89/display-currency-engine/internal/models"
	"github.com/dalfonso89/display-currency-engine/internal/testutils"
)

// IntegrationTestSuite provides shared setup for integration tests
type IntegrationTestSuite struct {
	server *httptest.Server
	engine *engine.Engine
	source *testutils.MockRateServer
}

// NewIntegrationTestSuite creates a new integration test suite
func NewIntegrationTestSuite() *IntegrationTestSuite {
	// Create mock rate source
	source := testutils.NewMockRateServer()

	// Create test configuration pointed at the mock source. The fetch
	// throttle is shrunk so concurrent resolution converges quickly on
	// the real clock.
	cfg := testutils.MockConfig()
	cfg.RateServiceBaseURL = source.URL()
	cfg.ThrottleWindow = time.Millisecond
	cfg.DebounceWindow = time.Millisecond
	cfg.RateLimitEnabled = false // Disable rate limiting for integration tests

	eng := engine.New(cfg, testutils.MockLogger(), engine.Options{})

	// Setup Gin router
	gin.SetMode(gin.TestMode)
	handlers := api.NewHandlers(eng, testutils.MockLogger())
	server := httptest.NewServer(handlers.SetupRoutes())

	return &IntegrationTestSuite{
		server: server,
		engine: eng,
		source: source,
	}
}

// Close cleans up the test suite
func (suite *IntegrationTestSuite) Close() {
	if suite.server != nil {
		suite.server.Close()
	}
	if suite.engine != nil {
		suite.engine.Stop()
	}
	if suite.source != nil {
		suite.source.Close()
	}
}

// primeRate resolves a pair until the throttle has released both pivot legs
func (suite *IntegrationTestSuite) primeRate(t *testing.T, from, to string) {
	t.Helper()
	url := fmt.Sprintf("%s/api/v1/rate?from=%s&to=%s", suite.server.URL, from, to)
	for attempt := 0; attempt < 50; attempt++ {
		resp, err := http.Get(url)
		if err != nil {
			t.Fatalf("prime request error: %v", err)
		}
		statusCode := resp.StatusCode
		resp.Body.Close()
		if statusCode == http.StatusOK {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("rate %s->%s never resolved", from, to)
}

// TestConcurrentDisplayRequests tests the display endpoint with high concurrent load
func TestConcurrentDisplayRequests(t *testing.T) {
	suite := NewIntegrationTestSuite()
	defer suite.Close()

	for _, binding := range testutils.MockBindings() {
		payload, _ := json.Marshal(binding)
		resp, err := http.Post(suite.server.URL+"/api/v1/bindings", "application/json", bytes.NewReader(payload))
		if err != nil {
			t.Fatalf("register error: %v", err)
		}
		resp.Body.Close()
	}
	suite.primeRate(t, "EUR", "USD")

	const numRequests = 100
	const concurrency = 20

	results := make(chan error, numRequests)
	semaphore := make(chan struct{}, concurrency)

	var wg sync.WaitGroup
	for i := 0; i < numRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			resp, err := http.Get(suite.server.URL + "/api/v1/display")
			if err != nil {
				results <- err
				return
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				results <- fmt.Errorf("unexpected status code: %d", resp.StatusCode)
				return
			}

			var display map[string]interface{}
			if err := json.NewDecoder(resp.Body).Decode(&display); err != nil {
				results <- err
				return
			}
			if _, ok := display["bindings"]; !ok {
				results <- fmt.Errorf("missing 'bindings' field")
				return
			}

			results <- nil
		}()
	}

	wg.Wait()
	close(results)

	// Check results
	errorCount := 0
	for err := range results {
		if err != nil {
			errorCount++
			t.Logf("Request error: %v", err)
		}
	}

	if errorCount > 0 {
		t.Errorf("Expected 0 errors, got %d", errorCount)
	}
}

// TestCacheConsistency tests resolved rates under concurrent load
func TestCacheConsistency(t *testing.T) {
	suite := NewIntegrationTestSuite()
	defer suite.Close()

	suite.primeRate(t, "EUR", "USD")

	const numRequests = 200
	const concurrency = 30

	results := make(chan float64, numRequests)
	semaphore := make(chan struct{}, concurrency)

	var wg sync.WaitGroup
	for i := 0; i < numRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			resp, err := http.Get(suite.server.URL + "/api/v1/rate?from=EUR&to=USD")
			if err != nil {
				t.Logf("Request error: %v", err)
				return
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Logf("Unexpected status: %d", resp.StatusCode)
				return
			}

			var response struct {
				Rate float64 `json:"rate"`
			}
			if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
				t.Logf("Decode error: %v", err)
				return
			}

			results <- response.Rate
		}()
	}

	wg.Wait()
	close(results)

	// Every response within the cache TTL must agree
	totalCount := 0
	for rate := range results {
		totalCount++
		if rate != 2.0 {
			t.Errorf("EUR->USD rate = %v, want 2.0", rate)
		}
	}
	if totalCount != numRequests {
		t.Errorf("Got %d successful responses, want %d", totalCount, numRequests)
	}
}

// TestCurrencySwitchFlow tests the full select-then-render user journey
func TestCurrencySwitchFlow(t *testing.T) {
	suite := NewIntegrationTestSuite()
	defer suite.Close()

	for _, binding := range testutils.MockBindings() {
		payload, _ := json.Marshal(binding)
		resp, err := http.Post(suite.server.URL+"/api/v1/bindings", "application/json", bytes.NewReader(payload))
		if err != nil {
			t.Fatalf("register error: %v", err)
		}
		resp.Body.Close()
	}
	suite.primeRate(t, "USD", "EUR")

	payload, _ := json.Marshal(models.CurrencyChanged{Currency: "EUR"})
	request, _ := http.NewRequest(http.MethodPut, suite.server.URL+"/api/v1/currency", bytes.NewReader(payload))
	request.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(request)
	if err != nil {
		t.Fatalf("select error: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("PUT /api/v1/currency status = %d, want %d", resp.StatusCode, http.StatusAccepted)
	}

	// The switch may be throttle-deferred; poll until it lands
	deadline := time.Now().Add(time.Second)
	for suite.engine.State.Currency() != "EUR" {
		if time.Now().After(deadline) {
			t.Fatal("currency switch never applied")
		}
		time.Sleep(5 * time.Millisecond)
	}

	resp, err = http.Get(suite.server.URL + "/api/v1/display")
	if err != nil {
		t.Fatalf("display error: %v", err)
	}
	defer resp.Body.Close()

	var display struct {
		Currency models.CurrencyCode     `json:"currency"`
		Bindings []models.DisplayBinding `json:"bindings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&display); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if display.Currency != "EUR" {
		t.Errorf("display currency = %v, want EUR", display.Currency)
	}
	// 10 USD at EUR pivot rate 2.0 and USD 1.0 renders as 5.00
	for _, binding := range display.Bindings {
		if binding.ID == "price-3" && binding.Rendered != "5.00" {
			t.Errorf("price-3 rendered = %q, want 5.00", binding.Rendered)
		}
	}
}

// TestStressLoad tests the service under extreme load
func TestStressLoad(t *testing.T) {
	suite := NewIntegrationTestSuite()
	defer suite.Close()

	suite.primeRate(t, "EUR", "USD")

	const numRequests = 500
	const concurrency = 100

	results := make(chan error, numRequests)
	semaphore := make(chan struct{}, concurrency)

	var wg sync.WaitGroup
	startTime := time.Now()

	for i := 0; i < numRequests; i++ {
		wg.Add(1)
		go func(requestID int) {
			defer wg.Done()
			semaphore <- struct{}{}        // Acquire
			defer func() { <-semaphore }() // Release

			resp, err := http.Get(suite.server.URL + "/api/v1/currency")
			if err != nil {
				results <- fmt.Errorf("request %d: %v", requestID, err)
				return
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				results <- fmt.Errorf("request %d: status %d", requestID, resp.StatusCode)
				return
			}

			var response models.CurrencyChanged
			if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
				results <- fmt.Errorf("request %d: decode error %v", requestID, err)
				return
			}

			results <- nil
		}(i)
	}

	wg.Wait()
	close(results)

	duration := time.Since(startTime)
	t.Logf("Stress test completed in %v", duration)

	// Check results
	errorCount := 0
	for err := range results {
		if err != nil {
			errorCount++
			t.Logf("Stress test error: %v", err)
		}
	}

	errorRate := float64(errorCount) / float64(numRequests)
	if errorRate > 0.05 { // Allow 5% error rate under stress
		t.Errorf("Error rate too high: %.2f%% (%d/%d)", errorRate*100, errorCount, numRequests)
	}

	t.Logf("Stress test results: %d requests, %d errors (%.2f%%), duration: %v",
		numRequests, errorCount, errorRate*100, duration)
}
