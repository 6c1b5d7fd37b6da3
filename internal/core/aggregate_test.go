package core

import (
	"math"
	"reflect"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestAggregateSingleExpense(t *testing.T) {
	txns := []Transaction{
		{Amount: 100, Type: Expense, Category: "food", Date: "2024-01-01", Currency: "USD"},
	}
	res := Aggregate(txns, "USD", nil)

	if !almostEqual(res.Expenses, 100) || !almostEqual(res.Income, 0) || !almostEqual(res.Balance, -100) {
		t.Fatalf("totals = %+v", res)
	}
	if !almostEqual(res.CategoryTotals["food"], 100) {
		t.Fatalf("categoryTotals = %v", res.CategoryTotals)
	}
	if !almostEqual(res.DailyTotals["2024-01-01"], 100) {
		t.Fatalf("dailyTotals = %v", res.DailyTotals)
	}
}

func TestAggregateEmpty(t *testing.T) {
	res := Aggregate(nil, "NGN", nil)
	if res.Balance != 0 || res.Income != 0 || res.Expenses != 0 {
		t.Fatalf("expected zero totals, got %+v", res)
	}
	if len(res.CategoryTotals) != 0 || len(res.DailyTotals) != 0 {
		t.Fatalf("expected empty buckets, got %+v", res)
	}
}

func TestAggregateIncomeOnly(t *testing.T) {
	txns := []Transaction{
		{Amount: 50, Type: Income, Date: "2024-01-01", Currency: "NGN"},
		{Amount: 70, Type: Income, Date: "2024-01-02", Currency: "NGN"},
	}
	res := Aggregate(txns, "NGN", nil)
	if res.Expenses != 0 {
		t.Fatalf("expected zero expenses, got %v", res.Expenses)
	}
	if !almostEqual(res.Balance, res.Income) || !almostEqual(res.Income, 120) {
		t.Fatalf("income=%v balance=%v", res.Income, res.Balance)
	}
	if len(res.CategoryTotals) != 0 {
		t.Fatalf("income must not bucket into categories: %v", res.CategoryTotals)
	}
}

func TestAggregateConversion(t *testing.T) {
	// Rates fetched with base=USD: 1 USD buys 1600 NGN.
	rates := map[string]float64{"NGN": 1600}
	txns := []Transaction{
		{Amount: 1600, Type: Expense, Category: "transport", Date: "2024-01-01", Currency: "NGN"},
		{Amount: 10, Type: Expense, Category: "transport", Date: "2024-01-01", Currency: "USD"},
	}
	res := Aggregate(txns, "USD", rates)
	if !almostEqual(res.Expenses, 11) {
		t.Fatalf("expected 11 USD, got %v", res.Expenses)
	}
}

func TestAggregateUnconvertiblePassthrough(t *testing.T) {
	// No rate for EUR: the raw amount passes through unchanged.
	txns := []Transaction{
		{Amount: 42, Type: Expense, Category: "others", Date: "2024-01-01", Currency: "EUR"},
	}
	res := Aggregate(txns, "USD", map[string]float64{})
	if !almostEqual(res.Expenses, 42) {
		t.Fatalf("expected passthrough 42, got %v", res.Expenses)
	}
}

func TestAggregateBadDateCountsInTotalsOnly(t *testing.T) {
	txns := []Transaction{
		{Amount: 30, Type: Expense, Category: "food", Date: "not-a-date", Currency: "NGN"},
	}
	res := Aggregate(txns, "NGN", nil)
	if !almostEqual(res.Expenses, 30) || !almostEqual(res.CategoryTotals["food"], 30) {
		t.Fatalf("bad-date record must still hit totals: %+v", res)
	}
	if len(res.DailyTotals) != 0 {
		t.Fatalf("bad-date record must be skipped from daily buckets: %v", res.DailyTotals)
	}
}

func TestAggregateIdempotent(t *testing.T) {
	txns := []Transaction{
		{Amount: 10, Type: Expense, Category: "food", Date: "2024-01-01", Currency: "NGN"},
		{Amount: 200, Type: Income, Date: "2024-01-02", Currency: "NGN"},
	}
	a := Aggregate(txns, "NGN", nil)
	b := Aggregate(txns, "NGN", nil)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("aggregate is not idempotent: %+v vs %+v", a, b)
	}
}

func TestAggregateMissingCategoryDefaultsToOthers(t *testing.T) {
	txns := []Transaction{
		{Amount: 5, Type: Expense, Date: "2024-01-01", Currency: "NGN"},
	}
	res := Aggregate(txns, "NGN", nil)
	if !almostEqual(res.CategoryTotals[CategoryOthers], 5) {
		t.Fatalf("expected others bucket, got %v", res.CategoryTotals)
	}
}
