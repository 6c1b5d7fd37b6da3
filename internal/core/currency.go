// Package core holds the canonical transaction type, the aggregation
// engine and currency display helpers. It has no I/O.
package core

import (
	"strconv"
	"strings"
)

// DefaultCurrency is assumed for records that carry no currency code.
const DefaultCurrency = "NGN"

// currencySymbols maps the supported ISO-4217 codes to display symbols.
var currencySymbols = map[string]string{
	"NGN": "₦",
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
}

// SupportedCurrencies lists the codes offered in the currency picker,
// default first.
func SupportedCurrencies() []string {
	return []string{"NGN", "USD", "EUR", "GBP"}
}

// CurrencySymbol returns the display symbol for a code, falling back to
// the code itself for currencies without a known symbol.
func CurrencySymbol(code string) string {
	if s, ok := currencySymbols[code]; ok {
		return s
	}
	return code
}

// FormatCurrency renders an amount with its currency symbol, thousands
// separators and at most two decimal places.
//
//	FormatCurrency(1234.5, "USD") == "$1,234.5"
//	FormatCurrency(1000000, "NGN") == "₦1,000,000"
func FormatCurrency(amount float64, code string) string {
	symbol, ok := currencySymbols[code]
	if !ok {
		symbol = code + " "
	}

	neg := amount < 0
	if neg {
		amount = -amount
	}

	s := strconv.FormatFloat(amount, 'f', 2, 64)
	intPart, fracPart, _ := strings.Cut(s, ".")
	fracPart = strings.TrimRight(fracPart, "0")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(symbol)
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if fracPart != "" {
		b.WriteByte('.')
		b.WriteString(fracPart)
	}
	return b.String()
}
