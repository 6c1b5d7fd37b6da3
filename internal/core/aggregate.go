package core

// Result is the output of one full aggregation pass. It is recomputed
// wholesale on every input change; there is no incremental update.
type Result struct {
	Balance  float64
	Income   float64
	Expenses float64
	// CategoryTotals buckets expense records by category.
	CategoryTotals map[string]float64
	// DailyTotals buckets expense records by ISO day (YYYY-MM-DD).
	DailyTotals map[string]float64
}

// Aggregate sums a transaction set into display totals for targetCurrency.
//
// rates holds conversion multipliers expressed as units of foreign
// currency per one unit of targetCurrency (the rate service fetches them
// with base=targetCurrency), so a foreign amount is divided by its rate.
// A record in an unconvertible currency passes through unchanged; the
// resulting total is then under- or over-stated, which callers accept.
//
// A record whose date does not parse still counts toward income/expense
// and category totals but is skipped from daily bucketing.
func Aggregate(transactions []Transaction, targetCurrency string, rates map[string]float64) Result {
	res := Result{
		CategoryTotals: make(map[string]float64),
		DailyTotals:    make(map[string]float64),
	}

	for _, txn := range transactions {
		from := txn.Currency
		if from == "" {
			from = DefaultCurrency
		}

		converted := txn.Amount
		if from != targetCurrency {
			if rate, ok := rates[from]; ok && rate != 0 {
				converted = txn.Amount / rate
			}
		}

		if txn.Type == Income {
			res.Income += converted
			continue
		}

		res.Expenses += converted

		cat := txn.Category
		if cat == "" {
			cat = CategoryOthers
		}
		res.CategoryTotals[cat] += converted

		if day, ok := DayKey(txn.Date); ok {
			res.DailyTotals[day] += converted
		}
	}

	res.Balance = res.Income - res.Expenses
	return res
}
