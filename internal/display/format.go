package display

import (
	"github.com/leekchan/accounting"
	"github.com/shopspring/decimal"

	"github.com/dalfonso89/display-currency-engine/internal/models"
)

// defaultPrecision overrides the two-digit default for currencies that need
// more (crypto pivots) or fewer (zero-decimal fiat) digits.
var defaultPrecision = map[models.CurrencyCode]int{
	"ALGO": 6,
	"BTC":  8,
	"ETH":  8,
	"JPY":  0,
}

// PrecisionFor returns the display precision for a currency, honoring an
// explicit option when one is set.
func PrecisionFor(currency models.CurrencyCode, opts models.FormatOptions) int {
	if opts.Precision >= 0 {
		return opts.Precision
	}
	if precision, ok := defaultPrecision[currency]; ok {
		return precision
	}
	return 2
}

// FormatAmount renders an amount in the given currency with locale-aware
// separators and symbol placement. Rounding happens here and only here.
func FormatAmount(amount float64, currency models.CurrencyCode, opts models.FormatOptions) string {
	thousand := opts.Thousand
	if thousand == "" {
		thousand = ","
	}
	decimalSep := opts.Decimal
	if decimalSep == "" {
		decimalSep = "."
	}
	format := "%s%v"
	if opts.SymbolAfter {
		format = "%v %s"
	}

	formatter := accounting.Accounting{
		Symbol:    opts.Symbol,
		Precision: PrecisionFor(currency, opts),
		Thousand:  thousand,
		Decimal:   decimalSep,
		Format:    format,
	}
	return formatter.FormatMoneyDecimal(decimal.NewFromFloat(amount))
}
