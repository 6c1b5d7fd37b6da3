// Package worker watches the remote store for changes and announces
// them on the change feed. The store itself has no push channel, so
// the poller periodically fingerprints each user's collections and
// publishes a change message whenever a fingerprint moves.
package worker

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/remote"
)

// Store is the slice of the remote API the poller reads.
// *remote.Client satisfies it.
type Store interface {
	ListUsers(ctx context.Context) ([]remote.User, error)
	ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
	GetSettings(ctx context.Context, userID string) (remote.Settings, bool, error)
}

// Publisher announces detected changes. *remote.Feed satisfies it.
type Publisher interface {
	PublishChange(ctx context.Context, collection, userID string) error
}

type Poller struct {
	store    Store
	txnPub   Publisher
	setPub   Publisher
	interval time.Duration

	// fingerprint per user and collection, keyed "collection/userID"
	seen map[string]string
}

// NewPoller watches the store on the given interval. Transaction and
// settings changes go out on separate publishers because each feed has
// its own queue.
func NewPoller(store Store, txnPub, setPub Publisher, interval time.Duration) *Poller {
	return &Poller{
		store:    store,
		txnPub:   txnPub,
		setPub:   setPub,
		interval: interval,
		seen:     make(map[string]string),
	}
}

// Run polls until ctx is cancelled. The first sweep seeds fingerprints
// without publishing, so a worker restart does not replay every
// collection as changed.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.sweep(ctx, false); err != nil {
		slog.WarnContext(ctx, "Initial sweep failed", "error", err)
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.sweep(ctx, true); err != nil {
				slog.WarnContext(ctx, "Sweep failed", "error", err)
			}
		}
	}
}

// sweep fingerprints every user's collections, publishing changes when
// publish is set.
func (p *Poller) sweep(ctx context.Context, publish bool) error {
	users, err := p.store.ListUsers(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	for _, u := range users {
		if err := p.checkTransactions(ctx, u.ID, publish); err != nil {
			slog.WarnContext(ctx, "Transaction check failed", "error", err, "user_id", u.ID)
		}
		if err := p.checkSettings(ctx, u.ID, publish); err != nil {
			slog.WarnContext(ctx, "Settings check failed", "error", err, "user_id", u.ID)
		}
	}
	return nil
}

func (p *Poller) checkTransactions(ctx context.Context, userID string, publish bool) error {
	txns, err := p.store.ListTransactions(ctx, userID)
	if err != nil {
		return err
	}
	return p.track(ctx, "transactions", userID, txns, publish, p.txnPub)
}

func (p *Poller) checkSettings(ctx context.Context, userID string, publish bool) error {
	settings, ok, err := p.store.GetSettings(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return p.track(ctx, "settings", userID, settings, publish, p.setPub)
}

// track updates the stored fingerprint and publishes when it changed.
func (p *Poller) track(ctx context.Context, collection, userID string, data any, publish bool, pub Publisher) error {
	fp, err := fingerprint(data)
	if err != nil {
		return err
	}

	key := collection + "/" + userID
	prev, known := p.seen[key]
	p.seen[key] = fp

	if !publish || (known && prev == fp) {
		return nil
	}
	// Unknown key during a publishing sweep means the user appeared
	// after startup; announce so clients pick up their data.
	if err := pub.PublishChange(ctx, collection, userID); err != nil {
		return fmt.Errorf("publish %s change: %w", collection, err)
	}
	slog.InfoContext(ctx, "Change published", "collection", collection, "user_id", userID)
	return nil
}

func fingerprint(data any) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
