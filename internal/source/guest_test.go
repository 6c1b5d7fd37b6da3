package source

import (
	"context"
	"path/filepath"
	"testing"

	"fintrack/internal/bus"
	"fintrack/internal/core"
	"fintrack/internal/kvstore"
)

func openStore(t *testing.T) *kvstore.Store {
	t.Helper()
	s, err := kvstore.Open(filepath.Join(t.TempDir(), "guest.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGuestAddInsertsAtHead(t *testing.T) {
	g := NewGuestSource(openStore(t), bus.New())
	ctx := context.Background()

	first := core.Transaction{Description: "first", Amount: 10, Type: core.Expense, Date: "2024-01-01", Currency: "NGN"}
	second := core.Transaction{Description: "second", Amount: 20, Type: core.Expense, Date: "2024-01-02", Currency: "NGN"}

	if err := g.Add(ctx, first); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := g.Add(ctx, second); err != nil {
		t.Fatalf("add: %v", err)
	}

	txns, err := g.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txns) != 2 || txns[0].Description != "second" || txns[1].Description != "first" {
		t.Fatalf("expected most-recent-first, got %+v", txns)
	}
}

func TestGuestListNormalizesMalformedRecords(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	// Simulate partially malformed guest-entered data at rest.
	err := store.SetJSON(ctx, kvstore.KeyGuestTransactions, []map[string]any{
		{"description": "no type or date", "amount": 5},
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	g := NewGuestSource(store, bus.New())
	txns, err := g.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(txns) != 1 {
		t.Fatalf("expected 1 record, got %d", len(txns))
	}
	got := txns[0]
	if got.Type != core.Expense || got.Date == "" || got.Currency != core.DefaultCurrency || got.Category != core.CategoryOthers {
		t.Fatalf("record not normalized: %+v", got)
	}
}

func TestGuestSubscribeDeliversInitialAndUpdates(t *testing.T) {
	b := bus.New()
	g := NewGuestSource(openStore(t), b)
	ctx := context.Background()

	var deliveries [][]core.Transaction
	cancel, err := g.Subscribe(ctx, func(txns []core.Transaction) {
		deliveries = append(deliveries, txns)
	})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	if len(deliveries) != 1 || len(deliveries[0]) != 0 {
		t.Fatalf("expected one empty initial delivery, got %d", len(deliveries))
	}

	if err := g.Add(ctx, core.Transaction{Description: "x", Amount: 1, Type: core.Expense, Date: "2024-01-01", Currency: "NGN"}); err != nil {
		t.Fatalf("add: %v", err)
	}

	if len(deliveries) != 2 || len(deliveries[1]) != 1 {
		t.Fatalf("expected full-replace delivery after add, got %d deliveries", len(deliveries))
	}

	// After cancel, no further deliveries.
	cancel()
	b.Publish(bus.GuestTransactionsUpdated{})
	if len(deliveries) != 2 {
		t.Fatalf("delivery after cancel: %d", len(deliveries))
	}
}
