package source

import (
	"context"
	"sync"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/remote"
)

type fakeLister struct {
	mu    sync.Mutex
	txns  []core.Transaction
	calls int
}

func (f *fakeLister) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	out := make([]core.Transaction, len(f.txns))
	copy(out, f.txns)
	return out, nil
}

func (f *fakeLister) set(txns []core.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txns = txns
}

// fakeFeed hands messages pushed via send to the active consumer.
type fakeFeed struct {
	msgs chan *remote.ChangeMessage
}

func newFakeFeed() *fakeFeed {
	return &fakeFeed{msgs: make(chan *remote.ChangeMessage)}
}

func (f *fakeFeed) Consume(ctx context.Context, handler func(*remote.ChangeMessage) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-f.msgs:
			if err := handler(msg); err != nil {
				return err
			}
		}
	}
}

func (f *fakeFeed) send(t *testing.T, msg *remote.ChangeMessage) {
	t.Helper()
	select {
	case f.msgs <- msg:
	case <-time.After(time.Second):
		t.Fatal("no consumer picked up change message")
	}
}

func collectDeliveries() (func([]core.Transaction), func() [][]core.Transaction) {
	var mu sync.Mutex
	var deliveries [][]core.Transaction
	deliver := func(txns []core.Transaction) {
		mu.Lock()
		defer mu.Unlock()
		deliveries = append(deliveries, txns)
	}
	snapshot := func() [][]core.Transaction {
		mu.Lock()
		defer mu.Unlock()
		out := make([][]core.Transaction, len(deliveries))
		copy(out, deliveries)
		return out
	}
	return deliver, snapshot
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestSyncedSubscribeDeliversInitialThenFullReplace(t *testing.T) {
	lister := &fakeLister{}
	lister.set([]core.Transaction{
		{ID: "t1", Description: "old", Amount: 1, Type: core.Expense, Date: "2024-01-01", Currency: "NGN"},
	})
	feed := newFakeFeed()
	src := NewSyncedSource(lister, feed, "u1")

	deliver, snapshot := collectDeliveries()
	cancel, err := src.Subscribe(context.Background(), deliver)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	got := snapshot()
	if len(got) != 1 || len(got[0]) != 1 || got[0][0].ID != "t1" {
		t.Fatalf("expected initial delivery with t1, got %+v", got)
	}

	lister.set([]core.Transaction{
		{ID: "t2", Description: "new", Amount: 2, Type: core.Expense, Date: "2024-01-02", Currency: "NGN"},
		{ID: "t1", Description: "old", Amount: 1, Type: core.Expense, Date: "2024-01-01", Currency: "NGN"},
	})
	feed.send(t, &remote.ChangeMessage{Collection: "transactions", UserID: "u1"})

	waitFor(t, func() bool { return len(snapshot()) == 2 })
	got = snapshot()
	if len(got[1]) != 2 || got[1][0].ID != "t2" {
		t.Fatalf("expected full replacement, got %+v", got[1])
	}
}

func TestSyncedSubscribeIgnoresOtherUsersAndCollections(t *testing.T) {
	lister := &fakeLister{}
	feed := newFakeFeed()
	src := NewSyncedSource(lister, feed, "u1")

	deliver, snapshot := collectDeliveries()
	cancel, err := src.Subscribe(context.Background(), deliver)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()

	feed.send(t, &remote.ChangeMessage{Collection: "transactions", UserID: "other"})
	feed.send(t, &remote.ChangeMessage{Collection: "settings", UserID: "u1"})
	feed.send(t, &remote.ChangeMessage{Collection: "transactions", UserID: "u1"})

	waitFor(t, func() bool { return len(snapshot()) == 2 })
	lister.mu.Lock()
	calls := lister.calls
	lister.mu.Unlock()
	// Initial query plus one re-query for the matching message only.
	if calls != 2 {
		t.Fatalf("expected 2 list calls, got %d", calls)
	}
}

func TestSyncedCancelStopsDeliveries(t *testing.T) {
	lister := &fakeLister{}
	feed := newFakeFeed()
	src := NewSyncedSource(lister, feed, "u1")

	deliver, snapshot := collectDeliveries()
	cancel, err := src.Subscribe(context.Background(), deliver)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	cancel()

	// Give the consumer a moment to observe cancellation.
	time.Sleep(50 * time.Millisecond)

	select {
	case feed.msgs <- &remote.ChangeMessage{Collection: "transactions", UserID: "u1"}:
		t.Fatal("consumer still draining feed after cancel")
	case <-time.After(50 * time.Millisecond):
	}
	if len(snapshot()) != 1 {
		t.Fatalf("expected only initial delivery, got %d", len(snapshot()))
	}
}
