package source

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/remote"
)

// TransactionLister is the query half of the remote store.
// *remote.Client satisfies it.
type TransactionLister interface {
	ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error)
}

// SyncedSource reads the remote transaction collection filtered by the
// owning user, ordered by creation timestamp descending. Every change
// message on the feed triggers a full re-query and a full-replace
// delivery; deliveries are never diffs and never coalesced.
type SyncedSource struct {
	client TransactionLister
	feed   ChangeFeed
	userID string
	now    func() time.Time
}

func NewSyncedSource(client TransactionLister, feed ChangeFeed, userID string) *SyncedSource {
	return &SyncedSource{client: client, feed: feed, userID: userID, now: time.Now}
}

func (s *SyncedSource) List(ctx context.Context) ([]core.Transaction, error) {
	raw, err := s.client.ListTransactions(ctx, s.userID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}

	now := s.now()
	txns := make([]core.Transaction, len(raw))
	for i, t := range raw {
		txns[i] = core.Normalize(t, now)
	}
	return txns, nil
}

func (s *SyncedSource) Subscribe(ctx context.Context, deliver func([]core.Transaction)) (func(), error) {
	initial, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	deliver(initial)

	// Without a feed the initial query is all we can offer.
	if s.feed == nil {
		return func() {}, nil
	}

	cctx, cancel := context.WithCancel(ctx)
	go func() {
		err := s.feed.Consume(cctx, func(msg *remote.ChangeMessage) error {
			if msg.Collection != "transactions" || msg.UserID != s.userID {
				return nil
			}
			txns, err := s.List(cctx)
			if err != nil {
				// Degrade silently: log and stop updating this round.
				slog.WarnContext(cctx, "Re-query after change failed", "error", err, "user_id", s.userID)
				return nil
			}
			deliver(txns)
			return nil
		})
		if err != nil && cctx.Err() == nil {
			slog.ErrorContext(cctx, "Transaction subscription ended", "error", err, "user_id", s.userID)
		}
	}()

	return cancel, nil
}
