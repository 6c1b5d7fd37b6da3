// Package source abstracts over the two transaction origins: the local
// guest list and the remote live-synced collection. Both variants hand
// the aggregation engine the same shape, a normalized most-recent-first
// transaction list, and both deliver full replacements on change rather
// than diffs.
package source

import (
	"context"

	"fintrack/internal/core"
	"fintrack/internal/remote"
)

// Source yields normalized transactions. Exactly one variant is active
// per session; switching sessions must cancel the previous subscription
// before opening a new one.
type Source interface {
	// List returns the current full transaction set, most recent first.
	List(ctx context.Context) ([]core.Transaction, error)

	// Subscribe delivers the current list once, then the complete
	// re-ordered list again after every underlying change (at least once
	// per change, full replace). The returned cancel func stops
	// delivery; calling it is required before re-subscribing.
	Subscribe(ctx context.Context, deliver func([]core.Transaction)) (cancel func(), err error)
}

// ChangeFeed is the live-subscription half of the remote store.
// *remote.Feed satisfies it.
type ChangeFeed interface {
	Consume(ctx context.Context, handler func(*remote.ChangeMessage) error) error
}
