package validation

import (
	"regexp"

	"github.com/shopspring/decimal"
)

// Currency codes are ISO 4217 style: exactly three uppercase letters.
var currencyRe = regexp.MustCompile(`^[A-Z]{3}$`)

func IsValidCurrency(code string) bool {
	return currencyRe.MatchString(code)
}

// IsPositiveVolume reports whether v is strictly greater than zero.
func IsPositiveVolume(v decimal.Decimal) bool {
	return v.Sign() > 0
}

// IsValidGHGReduction checks an emissions-reduction percentage is in [0, 100].
func IsValidGHGReduction(pct decimal.Decimal) bool {
	return pct.Sign() >= 0 && pct.LessThanOrEqual(decimal.NewFromInt(100))
}

// IsPlausibleYear bounds delivery/allocation years to the contracting horizon.
func IsPlausibleYear(year int) bool {
	return year >= 2020 && year <= 2060
}
