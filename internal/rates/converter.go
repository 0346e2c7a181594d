package rates

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/dalfonso89/display-currency-engine/internal/logger"
	"github.com/dalfonso89/display-currency-engine/internal/models"
)

// PivotFetcher is the leg-resolution dependency of the converter.
type PivotFetcher interface {
	PivotRate(ctx context.Context, currency models.CurrencyCode) (float64, error)
}

// Converter computes a rate between two arbitrary currencies by composing
// two pivot-relative legs. Concurrent resolutions of the same leg are
// coalesced with singleflight so a batch refresh touching several pairs
// fetches each leg at most once.
type Converter struct {
	pivot   models.CurrencyCode
	fetcher PivotFetcher
	log     *logger.Logger

	legGroup singleflight.Group
}

func NewConverter(pivot models.CurrencyCode, fetcher PivotFetcher, log *logger.Logger) *Converter {
	return &Converter{
		pivot:   pivot,
		fetcher: fetcher,
		log:     log,
	}
}

// Rate returns the multiplier converting an amount in from-units to
// to-units. A pivot leg reports how many pivot units one unit of the
// currency is worth, so
//
//	rate(from, to) = leg(from) / leg(to)
//
// Identity pairs short-circuit all I/O. If either needed leg is unavailable
// the whole composition is absent; there is no partial result.
func (cv *Converter) Rate(ctx context.Context, from, to models.CurrencyCode) (float64, error) {
	if from == to {
		return 1, nil
	}
	if from == cv.pivot {
		toLeg, err := cv.pivotLeg(ctx, to)
		if err != nil {
			return 0, err
		}
		return 1 / toLeg, nil
	}
	if to == cv.pivot {
		return cv.pivotLeg(ctx, from)
	}

	fromLeg, err := cv.pivotLeg(ctx, from)
	if err != nil {
		return 0, err
	}
	toLeg, err := cv.pivotLeg(ctx, to)
	if err != nil {
		return 0, err
	}
	return fromLeg / toLeg, nil
}

// Convert applies Rate to an amount. No rounding happens here; rounding
// belongs to the formatting step.
func (cv *Converter) Convert(ctx context.Context, amount float64, from, to models.CurrencyCode) (float64, error) {
	rate, err := cv.Rate(ctx, from, to)
	if err != nil {
		return 0, err
	}
	return amount * rate, nil
}

func (cv *Converter) pivotLeg(ctx context.Context, currency models.CurrencyCode) (float64, error) {
	result, err, shared := cv.legGroup.Do(string(currency), func() (interface{}, error) {
		return cv.fetcher.PivotRate(ctx, currency)
	})
	if err != nil {
		return 0, err
	}
	if shared {
		cv.log.Debugf("pivot leg %s shared across concurrent resolutions", currency)
	}
	return result.(float64), nil
}
