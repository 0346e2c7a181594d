package prefs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dalfonso89/display-currency-engine/internal/config"
	"github.com/dalfonso89/display-currency-engine/internal/logger"
	"github.com/dalfonso89/display-currency-engine/internal/models"
)

// StoreClient persists the display-currency preference for authenticated
// sessions: PUT /user/preferences/currency with {"currency": "..."}.
// Failures are logged, never retried and never surfaced to the user; the
// in-memory switch stands regardless.
type StoreClient struct {
	configuration *config.Config
	log           *logger.Logger
	httpClient    *http.Client
}

func NewStoreClient(configuration *config.Config, log *logger.Logger) *StoreClient {
	return &StoreClient{
		configuration: configuration,
		log:           log,
		httpClient:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Enabled reports whether a preference store is configured for this session.
func (c *StoreClient) Enabled() bool {
	return c.configuration.PreferenceStoreBaseURL != "" && c.configuration.SessionToken != ""
}

// SaveCurrency writes the preference. Callers treat this as fire-and-forget.
func (c *StoreClient) SaveCurrency(ctx context.Context, currency models.CurrencyCode) error {
	if !c.Enabled() {
		return nil
	}

	body, err := json.Marshal(models.CurrencyChanged{Currency: currency})
	if err != nil {
		return models.NewError(models.ErrorTypePreferencePersist, err, "failed to encode preference body")
	}

	url := c.configuration.PreferenceStoreBaseURL + "/user/preferences/currency"
	request, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(body))
	if err != nil {
		return models.NewError(models.ErrorTypePreferencePersist, err, "failed to build preference request")
	}
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", "Bearer "+c.configuration.SessionToken)

	response, err := c.httpClient.Do(request)
	if err != nil {
		return models.NewError(models.ErrorTypePreferencePersist, err, "preference store request failed")
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return models.NewError(models.ErrorTypePreferencePersist, fmt.Errorf("status %d", response.StatusCode), "preference store rejected write")
	}
	return nil
}
