package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/bus"
	"fintrack/internal/core"
	"fintrack/internal/kvstore"
)

// GuestSource keeps the guest transaction list in the durable local
// store under one fixed key. New records go to the head; the list is
// unpaginated and grows without bound.
type GuestSource struct {
	store *kvstore.Store
	bus   *bus.Bus
	now   func() time.Time
}

func NewGuestSource(store *kvstore.Store, b *bus.Bus) *GuestSource {
	return &GuestSource{store: store, bus: b, now: time.Now}
}

func (g *GuestSource) List(ctx context.Context) ([]core.Transaction, error) {
	var raw []core.Transaction
	if _, err := g.store.GetJSON(ctx, kvstore.KeyGuestTransactions, &raw); err != nil {
		return nil, fmt.Errorf("read guest transactions: %w", err)
	}

	// Guest-entered data may be partially malformed; normalize here so
	// downstream consumers never see missing type or date.
	now := g.now()
	txns := make([]core.Transaction, len(raw))
	for i, t := range raw {
		txns[i] = core.Normalize(t, now)
	}
	return txns, nil
}

// Add inserts a transaction at the head of the list and announces the
// change on the bus.
func (g *GuestSource) Add(ctx context.Context, txn core.Transaction) error {
	var txns []core.Transaction
	if _, err := g.store.GetJSON(ctx, kvstore.KeyGuestTransactions, &txns); err != nil {
		return fmt.Errorf("read guest transactions: %w", err)
	}

	txn = core.Normalize(txn, g.now())
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	txns = append([]core.Transaction{txn}, txns...)

	if err := g.store.SetJSON(ctx, kvstore.KeyGuestTransactions, txns); err != nil {
		return fmt.Errorf("save guest transactions: %w", err)
	}

	g.bus.Publish(bus.GuestTransactionsUpdated{})
	return nil
}

func (g *GuestSource) Subscribe(ctx context.Context, deliver func([]core.Transaction)) (func(), error) {
	initial, err := g.List(ctx)
	if err != nil {
		return nil, err
	}
	deliver(initial)

	cancel := g.bus.Subscribe(func(evt bus.Event) {
		if _, ok := evt.(bus.GuestTransactionsUpdated); !ok {
			return
		}
		txns, err := g.List(ctx)
		if err != nil {
			slog.WarnContext(ctx, "Guest list re-read failed, skipping delivery", "error", err)
			return
		}
		deliver(txns)
	})
	return cancel, nil
}
