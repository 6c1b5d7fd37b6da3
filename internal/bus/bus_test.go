package bus

import "testing"

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	b := New()

	var got1, got2 []Event
	b.Subscribe(func(e Event) { got1 = append(got1, e) })
	b.Subscribe(func(e Event) { got2 = append(got2, e) })

	b.Publish(CurrencyChanged{Code: "USD", Symbol: "$"})
	b.Publish(ThemeChanged{Theme: "dark"})

	if len(got1) != 2 || len(got2) != 2 {
		t.Fatalf("expected 2 events each, got %d and %d", len(got1), len(got2))
	}
	if cc, ok := got1[0].(CurrencyChanged); !ok || cc.Code != "USD" || cc.Symbol != "$" {
		t.Fatalf("unexpected first event: %+v", got1[0])
	}
}

func TestCancelStopsDelivery(t *testing.T) {
	b := New()

	var count int
	cancel := b.Subscribe(func(Event) { count++ })

	b.Publish(GuestTransactionsUpdated{})
	cancel()
	cancel() // second cancel is a no-op
	b.Publish(GuestTransactionsUpdated{})

	if count != 1 {
		t.Fatalf("expected 1 delivery, got %d", count)
	}
}

func TestNoCoalescing(t *testing.T) {
	b := New()

	var codes []string
	b.Subscribe(func(e Event) {
		if cc, ok := e.(CurrencyChanged); ok {
			codes = append(codes, cc.Code)
		}
	})

	// Rapid successive currency changes each fire in full.
	for _, c := range []string{"USD", "EUR", "GBP"} {
		b.Publish(CurrencyChanged{Code: c})
	}
	if len(codes) != 3 || codes[0] != "USD" || codes[2] != "GBP" {
		t.Fatalf("expected all three publishes delivered, got %v", codes)
	}
}

func TestSubscribeDuringPublishDoesNotDeadlock(t *testing.T) {
	b := New()
	b.Subscribe(func(Event) {
		// Subscribing from inside a handler must not deadlock.
		b.Subscribe(func(Event) {})
	})
	b.Publish(ThemeChanged{Theme: "light"})
}
