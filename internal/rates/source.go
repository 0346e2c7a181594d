package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dalfonso89/display-currency-engine/internal/config"
	"github.com/dalfonso89/display-currency-engine/internal/logger"
	"github.com/dalfonso89/display-currency-engine/internal/models"
)

// Source is the external rate service boundary: one pivot-relative rate per
// call. Implementations must normalize every failure mode (network, non-2xx,
// malformed payload) to ErrorTypeRateUnavailable and never panic.
type Source interface {
	PivotRate(ctx context.Context, currency models.CurrencyCode) (float64, error)
	HealthCheck(ctx context.Context) error
}

// HTTPSource fetches pivot rates over HTTP:
// GET {base}/api/currency/rate/{code} -> { success, data: { rate_to_algo } }.
type HTTPSource struct {
	configuration *config.Config
	log           *logger.Logger
	httpClient    *http.Client
}

func NewHTTPSource(configuration *config.Config, log *logger.Logger) *HTTPSource {
	httpTransport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 100,
		IdleConnTimeout:     90 * time.Second,
		DisableCompression:  false,
	}
	return &HTTPSource{
		configuration: configuration,
		log:           log,
		httpClient:    &http.Client{Timeout: configuration.RateServiceTimeout, Transport: httpTransport},
	}
}

// PivotRate issues exactly one outbound request for the currency's rate
// against the pivot.
func (source *HTTPSource) PivotRate(ctx context.Context, currency models.CurrencyCode) (float64, error) {
	url := fmt.Sprintf("%s/api/currency/rate/%s", source.configuration.RateServiceBaseURL, currency)

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, models.NewError(models.ErrorTypeRateUnavailable, err, "failed to build rate request for %s", currency)
	}

	response, err := source.httpClient.Do(request)
	if err != nil {
		return 0, models.NewError(models.ErrorTypeRateUnavailable, err, "rate request failed for %s", currency)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return 0, models.NewError(models.ErrorTypeRateUnavailable, nil, "rate service returned status %d for %s", response.StatusCode, currency)
	}

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return 0, models.NewError(models.ErrorTypeRateUnavailable, err, "failed to read rate response for %s", currency)
	}

	var payload models.RateSourceResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return 0, models.NewError(models.ErrorTypeRateUnavailable, err, "malformed rate payload for %s", currency)
	}
	if !payload.Success || payload.Data.RateToAlgo <= 0 {
		return 0, models.NewError(models.ErrorTypeRateUnavailable, nil, "rate service reported no usable rate for %s", currency)
	}

	return payload.Data.RateToAlgo, nil
}

// HealthCheck probes the rate service with the pivot currency itself.
func (source *HTTPSource) HealthCheck(ctx context.Context) error {
	_, err := source.PivotRate(ctx, models.CurrencyCode(source.configuration.PivotCurrency))
	return err
}
