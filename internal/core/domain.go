package core

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	Income  TxnType = "income"
	Expense TxnType = "expense"
)

// CategoryOthers is the bucket for records without a category.
const CategoryOthers = "others"

// Categories lists the selectable transaction categories in form order.
func Categories() []string {
	return []string{
		"income", "housing", "groceries", "entertainment", "food",
		"transport", "shopping", "fitness", "medical", CategoryOthers,
	}
}

type (
	TxnType string

	// Transaction is the canonical record every consumer works with.
	// Amount is always denominated in Currency, never pre-converted at rest.
	Transaction struct {
		ID          string    `json:"id,omitempty"`
		Description string    `json:"description"`
		Amount      float64   `json:"amount"`
		Type        TxnType   `json:"type"`
		Category    string    `json:"category"`
		Date        string    `json:"date"` // ISO-8601 date as entered
		Currency    string    `json:"currency"`
		CreatedAt   time.Time `json:"createdAt"` // sync/ordering key
		UserID      string    `json:"userId"`
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidDate      = errors.New("invalid date")
)

// Validate checks a transaction as entered through the add form.
// Stored records may be looser than this; they go through Normalize instead.
func (t Transaction) Validate() error {
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	// NaN fails every comparison, so check it explicitly. A single
	// non-finite amount would poison every aggregate built from it.
	if math.IsNaN(t.Amount) || math.IsInf(t.Amount, 0) || t.Amount <= 0 {
		return ErrInvalidAmount
	}
	switch t.Type {
	case Income, Expense:
	default:
		return ErrInvalidType
	}
	if _, err := time.Parse("2006-01-02", t.Date); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// Normalize fills the fields stored records are allowed to miss, producing
// the canonical shape. Guest-entered data in particular may lack type or
// date. Runs once at the source boundary; downstream code assumes it ran.
func Normalize(t Transaction, now time.Time) Transaction {
	if t.Type != Income {
		t.Type = Expense
	}
	if strings.TrimSpace(t.Date) == "" {
		t.Date = now.UTC().Format(time.RFC3339)
	}
	if strings.TrimSpace(t.Currency) == "" {
		t.Currency = DefaultCurrency
	}
	if strings.TrimSpace(t.Category) == "" {
		t.Category = CategoryOthers
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	return t
}

// DayKey reduces a stored date string to its ISO day (YYYY-MM-DD).
// Returns false when the date does not parse under any accepted layout.
func DayKey(date string) (string, bool) {
	date = strings.TrimSpace(date)
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05", time.RFC3339Nano} {
		if t, err := time.Parse(layout, date); err == nil {
			return t.UTC().Format("2006-01-02"), true
		}
	}
	return "", false
}
