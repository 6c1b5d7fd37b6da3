// Package views builds template-friendly view models from the
// controller snapshot. Everything here is pure: no I/O, no locks,
// deterministic output for a given input.
package views

import (
	"sort"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/rates"
)

// categoryClasses maps transaction categories to the CSS class used by
// the list indicator. Unknown categories fall back to "utility".
var categoryClasses = map[string]string{
	"income":        "income",
	"housing":       "utility",
	"groceries":     "food",
	"entertainment": "entertainment",
	"food":          "food",
	"transport":     "transport",
	"shopping":      "shopping",
	"fitness":       "gym",
	"medical":       "medical",
	"others":        "others",
}

// piePalette matches the category chart segment order.
var piePalette = []string{
	"#FF6384", "#36A2EB", "#FFCE56", "#4BC0C0",
	"#9966FF", "#FF9F40", "#10B981", "#F59E0B",
}

const noDataColor = "#E5E7EB"

// CategoryClass returns the indicator class for a category.
func CategoryClass(category string) string {
	if c, ok := categoryClasses[category]; ok {
		return c
	}
	return "utility"
}

// Summary is the three stat cards at the top of the dashboard.
type Summary struct {
	Balance  string
	Income   string
	Expenses string
}

func BuildSummary(result core.Result, currency string) Summary {
	return Summary{
		Balance:  core.FormatCurrency(result.Balance, currency),
		Income:   core.FormatCurrency(result.Income, currency),
		Expenses: core.FormatCurrency(result.Expenses, currency),
	}
}

// TxRow is one rendered transaction line. Amount carries the sign
// prefix; the raw converted value is kept for sorting and data attrs.
type TxRow struct {
	ID          string
	Description string
	Category    string
	Class       string
	Date        string
	Amount      string
	Value       float64
	Income      bool
}

// BuildRows converts transactions into the display currency and
// formats them. Conversion divides by the rate of the source currency
// when one is known; otherwise the raw amount passes through.
func BuildRows(txns []core.Transaction, currency string, table rates.RateTable) []TxRow {
	rows := make([]TxRow, 0, len(txns))
	for _, t := range txns {
		amount := t.Amount
		if t.Currency != currency {
			if r, ok := table[t.Currency]; ok && r != 0 {
				amount = t.Amount / r
			}
		}

		isIncome := t.Type == core.Income
		sign := "-"
		if isIncome {
			sign = "+"
		}

		rows = append(rows, TxRow{
			ID:          t.ID,
			Description: t.Description,
			Category:    t.Category,
			Class:       CategoryClass(t.Category),
			Date:        t.Date,
			Amount:      sign + core.FormatCurrency(amount, currency),
			Value:       amount,
			Income:      isIncome,
		})
	}
	return rows
}

// RecentLimit is how many rows the dashboard list shows by default.
const RecentLimit = 5

// Recent returns the head of the list for the dashboard partial.
func Recent(rows []TxRow, showAll bool) []TxRow {
	if showAll || len(rows) <= RecentLimit {
		return rows
	}
	return rows[:RecentLimit]
}

// CategorySlice is one pie segment with its share of total spending.
type CategorySlice struct {
	Label   string
	Amount  string
	Value   float64
	Percent int
	Color   string
}

// CategoryChart is the spending-by-category breakdown. When there is
// no expense data a single neutral placeholder segment is emitted.
type CategoryChart struct {
	Slices  []CategorySlice
	HasData bool
}

func BuildCategoryChart(totals map[string]float64, currency string) CategoryChart {
	if len(totals) == 0 {
		return CategoryChart{
			Slices: []CategorySlice{{Label: "No Data", Percent: 100, Color: noDataColor}},
		}
	}

	labels := make([]string, 0, len(totals))
	var sum float64
	for label, v := range totals {
		labels = append(labels, label)
		sum += v
	}
	// Largest first; ties break alphabetically so output is stable.
	sort.Slice(labels, func(i, j int) bool {
		if totals[labels[i]] != totals[labels[j]] {
			return totals[labels[i]] > totals[labels[j]]
		}
		return labels[i] < labels[j]
	})

	slices := make([]CategorySlice, 0, len(labels))
	for i, label := range labels {
		v := totals[label]
		percent := 0
		if sum > 0 {
			percent = int(v/sum*100 + 0.5)
		}
		slices = append(slices, CategorySlice{
			Label:   label,
			Amount:  core.FormatCurrency(v, currency),
			Value:   v,
			Percent: percent,
			Color:   piePalette[i%len(piePalette)],
		})
	}
	return CategoryChart{Slices: slices, HasData: true}
}

// WeeklyBar is one day in the weekly spending chart.
type WeeklyBar struct {
	Day     string // short weekday name
	Key     string // YYYY-MM-DD
	Amount  string
	Value   float64
	Percent int // bar height relative to the busiest day
}

// WeeklyChart covers the seven days ending today.
type WeeklyChart struct {
	Bars    []WeeklyBar
	HasData bool
}

func BuildWeeklyChart(dailyTotals map[string]float64, currency string, now time.Time) WeeklyChart {
	if len(dailyTotals) == 0 {
		return WeeklyChart{}
	}

	var max float64
	bars := make([]WeeklyBar, 0, 7)
	for i := 6; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		key := day.Format("2006-01-02")
		v := dailyTotals[key]
		if v > max {
			max = v
		}
		bars = append(bars, WeeklyBar{
			Day:    day.Format("Mon"),
			Key:    key,
			Amount: core.FormatCurrency(v, currency),
			Value:  v,
		})
	}
	for i := range bars {
		if max > 0 {
			bars[i].Percent = int(bars[i].Value/max*100 + 0.5)
		}
	}
	return WeeklyChart{Bars: bars, HasData: true}
}

// IncomeExpenseChart compares income and expenses over the last 30
// days, converted into the display currency.
type IncomeExpenseChart struct {
	Income    string
	Expenses  string
	IncomeV   float64
	ExpensesV float64
	HasData   bool
}

func BuildIncomeExpenseChart(txns []core.Transaction, currency string, table rates.RateTable, now time.Time) IncomeExpenseChart {
	var income, expenses float64
	var counted bool
	cutoff := now.AddDate(0, 0, -30)

	for _, t := range txns {
		when, ok := parseDate(t.Date)
		if !ok || when.After(now) || when.Before(cutoff) {
			continue
		}

		amount := t.Amount
		if t.Currency != currency {
			if r, ok := table[t.Currency]; ok && r != 0 {
				amount = t.Amount / r
			}
		}

		counted = true
		if t.Type == core.Income {
			income += amount
		} else {
			expenses += amount
		}
	}

	return IncomeExpenseChart{
		Income:    core.FormatCurrency(income, currency),
		Expenses:  core.FormatCurrency(expenses, currency),
		IncomeV:   income,
		ExpensesV: expenses,
		HasData:   counted,
	}
}

// Sort fields and directions for the transaction list.
const (
	SortDate   = "date"
	SortAmount = "amount"

	DirAsc  = "asc"
	DirDesc = "desc"
)

// Query narrows and orders the full transaction list.
type Query struct {
	Search   string // case-insensitive substring on description
	Category string // exact match, empty means all
	Sort     string // SortDate or SortAmount
	Dir      string // DirAsc or DirDesc
}

// Filter applies the query to the raw transactions before row
// building, mirroring how the list page narrows results.
func Filter(txns []core.Transaction, q Query) []core.Transaction {
	needle := strings.ToLower(q.Search)
	out := make([]core.Transaction, 0, len(txns))
	for _, t := range txns {
		if needle != "" && !strings.Contains(strings.ToLower(t.Description), needle) {
			continue
		}
		if q.Category != "" && t.Category != q.Category {
			continue
		}
		out = append(out, t)
	}

	field := q.Sort
	if field == "" {
		field = SortDate
	}
	desc := q.Dir != DirAsc

	sort.SliceStable(out, func(i, j int) bool {
		switch field {
		case SortAmount:
			if desc {
				return out[i].Amount > out[j].Amount
			}
			return out[i].Amount < out[j].Amount
		default:
			if desc {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
	})
	return out
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05", time.RFC3339Nano} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
