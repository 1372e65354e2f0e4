// Package money holds currency metadata and decimal helpers. Amounts are never floats.
package money

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Base currency that every static rate is expressed in.
const Base = "UGX"

type currency struct {
	Symbol     string
	Name       string
	MinorUnits int32
	// rate is how many UGX one unit is worth.
	rate          decimal.Decimal
	symbolLeading bool
}

var currencies = map[string]currency{
	"UGX": {Symbol: "UGX", Name: "Ugandan Shilling", MinorUnits: 0, rate: decimal.NewFromInt(1)},
	"USD": {Symbol: "$", Name: "US Dollar", MinorUnits: 2, rate: decimal.NewFromInt(3750), symbolLeading: true},
	"KES": {Symbol: "KES", Name: "Kenyan Shilling", MinorUnits: 2, rate: decimal.NewFromInt(29)},
	"TZS": {Symbol: "TZS", Name: "Tanzanian Shilling", MinorUnits: 2, rate: decimal.RequireFromString("1.5")},
	"RWF": {Symbol: "RWF", Name: "Rwandan Franc", MinorUnits: 0, rate: decimal.RequireFromString("2.9")},
	"EUR": {Symbol: "€", Name: "Euro", MinorUnits: 2, rate: decimal.NewFromInt(4100), symbolLeading: true},
	"GBP": {Symbol: "£", Name: "British Pound", MinorUnits: 2, rate: decimal.NewFromInt(4800), symbolLeading: true},
}

// Normalize upper-cases and trims a currency code.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// IsValid reports whether code is a supported currency.
func IsValid(code string) bool {
	_, ok := currencies[Normalize(code)]
	return ok
}

// MinorUnits returns the number of decimal places used by code. Unknown codes use 2.
func MinorUnits(code string) int32 {
	if c, ok := currencies[Normalize(code)]; ok {
		return c.MinorUnits
	}
	return 2
}

// Round rounds amount half away from zero to the currency's minor unit.
func Round(amount decimal.Decimal, code string) decimal.Decimal {
	return amount.Round(MinorUnits(code))
}

// Convert moves amount from one currency to another through the base currency.
// Unknown currencies are treated as the base currency.
func Convert(amount decimal.Decimal, from, to string) decimal.Decimal {
	from, to = Normalize(from), Normalize(to)
	if from == to {
		return amount
	}
	fromRate := rateOf(from)
	toRate := rateOf(to)
	return amount.Mul(fromRate).Div(toRate).Round(2)
}

func rateOf(code string) decimal.Decimal {
	if c, ok := currencies[code]; ok {
		return c.rate
	}
	return decimal.NewFromInt(1)
}

// Format renders amount for display, e.g. "$1,200.00" or "UGX 1,500,000".
func Format(amount decimal.Decimal, code string) string {
	code = Normalize(code)
	c, ok := currencies[code]
	if !ok {
		return fmt.Sprintf("%s %s", code, groupThousands(amount.StringFixed(2)))
	}
	if c.symbolLeading {
		return c.Symbol + groupThousands(amount.StringFixed(2))
	}
	return c.Symbol + " " + groupThousands(amount.StringFixed(c.MinorUnits))
}

func groupThousands(s string) string {
	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}
	intPart, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, frac = s[:i], s[i:]
	}
	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	return sign + b.String() + frac
}
