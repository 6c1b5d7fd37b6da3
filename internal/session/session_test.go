package session

import (
	"context"
	"path/filepath"
	"testing"

	"fintrack/internal/core"
	"fintrack/internal/kvstore"
)

func openStore(t *testing.T) *kvstore.Store {
	t.Helper()
	s, err := kvstore.Open(filepath.Join(t.TempDir(), "s.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionLifecycle(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	s, err := Load(ctx, store)
	if err != nil || s != nil {
		t.Fatalf("expected no session, got %+v err=%v", s, err)
	}

	guest, err := StartGuest(ctx, store)
	if err != nil || !guest.Guest || guest.ID == "" {
		t.Fatalf("start guest: %+v err=%v", guest, err)
	}

	s, err = Load(ctx, store)
	if err != nil || s == nil || !s.Guest {
		t.Fatalf("expected guest session, got %+v err=%v", s, err)
	}

	// Login replaces the guest session; the two are mutually exclusive.
	if err := SaveLogged(ctx, store, Session{ID: "u1", Name: "Ada Lovelace", Email: "ada@example.com"}); err != nil {
		t.Fatalf("save logged: %v", err)
	}
	s, err = Load(ctx, store)
	if err != nil || s == nil || s.Guest || s.ID != "u1" {
		t.Fatalf("expected logged session, got %+v err=%v", s, err)
	}
	if got := s.DisplayName(); got != "Ada" {
		t.Fatalf("display name = %q", got)
	}

	if err := Clear(ctx, store); err != nil {
		t.Fatalf("clear: %v", err)
	}
	s, _ = Load(ctx, store)
	if s != nil {
		t.Fatalf("expected cleared session, got %+v", s)
	}
}

func TestCurrencyAndThemeDefaults(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	if got := Currency(ctx, store); got != core.DefaultCurrency {
		t.Fatalf("default currency = %q", got)
	}
	if err := SetCurrency(ctx, store, "EUR"); err != nil {
		t.Fatalf("set currency: %v", err)
	}
	if got := Currency(ctx, store); got != "EUR" {
		t.Fatalf("currency = %q", got)
	}

	if got := Theme(ctx, store); got != "light" {
		t.Fatalf("default theme = %q", got)
	}
	if err := SetTheme(ctx, store, "dark"); err != nil {
		t.Fatalf("set theme: %v", err)
	}
	if got := Theme(ctx, store); got != "dark" {
		t.Fatalf("theme = %q", got)
	}
}
