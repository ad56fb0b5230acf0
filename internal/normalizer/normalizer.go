// Package normalizer converts order amounts into the CAD reporting unit.
package normalizer

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Static rate table. Unrecognized currencies fall back to defaultRate
// so normalization is total: there is no failure mode here, malformed
// input is rejected upstream during deserialization.
var rates = map[string]decimal.Decimal{
	"USD": decimal.RequireFromString("1.35"),
	"CAD": decimal.NewFromInt(1),
}

var defaultRate = decimal.NewFromInt(1)

// Rate returns the conversion rate for a currency code, case-insensitive.
func Rate(currency string) decimal.Decimal {
	if rate, ok := rates[strings.ToUpper(currency)]; ok {
		return rate
	}
	return defaultRate
}

// ToCAD converts an amount in the given currency to CAD, rounded to two
// decimal places.
func ToCAD(currency string, amount decimal.Decimal) decimal.Decimal {
	return amount.Mul(Rate(currency)).Round(2)
}
