package core

import "testing"

func TestFormatCurrency(t *testing.T) {
	cases := []struct {
		amount float64
		code   string
		out    string
	}{
		{1234.5, "USD", "$1,234.5"},
		{1000000, "NGN", "₦1,000,000"},
		{0, "EUR", "€0"},
		{12.349, "GBP", "£12.35"},
		{-250.75, "USD", "-$250.75"},
		{99, "CHF", "CHF 99"}, // unknown symbol falls back to the code
	}
	for _, tc := range cases {
		if got := FormatCurrency(tc.amount, tc.code); got != tc.out {
			t.Fatalf("FormatCurrency(%v, %q) = %q, expected %q", tc.amount, tc.code, got, tc.out)
		}
	}
}

func TestCurrencySymbol(t *testing.T) {
	if got := CurrencySymbol("NGN"); got != "₦" {
		t.Fatalf("expected ₦, got %q", got)
	}
	if got := CurrencySymbol("JPY"); got != "JPY" {
		t.Fatalf("expected fallback to code, got %q", got)
	}
}
