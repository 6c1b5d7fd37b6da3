// Package bus is the process-wide publish/subscribe channel the views
// react to. Delivery is synchronous in the publisher's goroutine, to any
// number of subscribers, with no ordering guarantee across subscribers
// and no coalescing: rapid successive publishes each fan out in full.
package bus

import "sync"

// Event payloads. One canonical schema per event; publishers and
// subscribers share these types.
type (
	// CurrencyChanged announces a new display currency.
	CurrencyChanged struct {
		Code   string
		Symbol string
	}

	ThemeChanged struct {
		Theme string
	}

	UserChanged struct {
		Action string // "login", "logout", "guest"
		UserID string
	}

	// GuestTransactionsUpdated fires after the guest transaction list
	// changed in local storage. No payload.
	GuestTransactionsUpdated struct{}
)

type Event any

type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Event)
}

func New() *Bus {
	return &Bus{subs: make(map[int]func(Event))}
}

// Subscribe registers fn for every published event. The returned cancel
// func removes the subscription; it is safe to call more than once.
func (b *Bus) Subscribe(fn func(Event)) (cancel func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// Publish delivers evt to all current subscribers. Subscribers run in the
// caller's goroutine; a subscriber must not block.
func (b *Bus) Publish(evt Event) {
	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.subs))
	for _, fn := range b.subs {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(evt)
	}
}
