package core

import (
	"math"
	"testing"
	"time"
)

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Description: "groceries",
		Amount:      25.50,
		Type:        Expense,
		Category:    "food",
		Date:        "2024-01-01",
		Currency:    "USD",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Description: "", Amount: 1, Type: Expense, Date: "2024-01-01"},
		{Description: "a", Amount: 0, Type: Expense, Date: "2024-01-01"},
		{Description: "a", Amount: -5, Type: Expense, Date: "2024-01-01"},
		{Description: "a", Amount: math.NaN(), Type: Expense, Date: "2024-01-01"},
		{Description: "a", Amount: math.Inf(1), Type: Expense, Date: "2024-01-01"},
		{Description: "a", Amount: math.Inf(-1), Type: Income, Date: "2024-01-01"},
		{Description: "a", Amount: 1, Type: "transfer", Date: "2024-01-01"},
		{Description: "a", Amount: 1, Type: Income, Date: "not-a-date"},
	}
	for i, txn := range bads {
		if err := txn.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestNormalizeDefaults(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	got := Normalize(Transaction{Description: "x", Amount: 10}, now)
	if got.Type != Expense {
		t.Fatalf("expected default type expense, got %q", got.Type)
	}
	if got.Date == "" {
		t.Fatalf("expected date defaulted to now")
	}
	if got.Currency != DefaultCurrency {
		t.Fatalf("expected default currency %s, got %q", DefaultCurrency, got.Currency)
	}
	if got.Category != CategoryOthers {
		t.Fatalf("expected category %q, got %q", CategoryOthers, got.Category)
	}
	if !got.CreatedAt.Equal(now) {
		t.Fatalf("expected createdAt defaulted to now")
	}
}

func TestNormalizeKeepsExplicitFields(t *testing.T) {
	now := time.Now()
	in := Transaction{
		Description: "salary",
		Amount:      100,
		Type:        Income,
		Category:    "income",
		Date:        "2024-03-05",
		Currency:    "EUR",
		CreatedAt:   now.Add(-time.Hour),
	}
	got := Normalize(in, now)
	if got != in {
		t.Fatalf("normalize mutated a complete record: %+v != %+v", got, in)
	}
}

func TestDayKey(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"2024-01-01", "2024-01-01", true},
		{"2024-01-01T10:30:00Z", "2024-01-01", true},
		{"2024-01-01T10:30:00", "2024-01-01", true},
		{" 2024-02-29 ", "2024-02-29", true},
		{"garbage", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := DayKey(tc.in)
		if ok != tc.ok || got != tc.out {
			t.Fatalf("DayKey(%q) = (%q, %v), expected (%q, %v)", tc.in, got, ok, tc.out, tc.ok)
		}
	}
}
