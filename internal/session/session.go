// Package session tracks the active identity: either an authenticated
// user or a locally-only guest, never both. The record lives in the
// durable local store and is lost when that store is cleared.
package session

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/kvstore"
)

type Session struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Guest bool   `json:"guest,omitempty"`
}

// DisplayName is the short name shown in the nav bar.
func (s *Session) DisplayName() string {
	if s == nil {
		return ""
	}
	name := s.Name
	if name == "" && s.Guest {
		name = "Guest"
	}
	if name == "" {
		name = s.Email
	}
	if name == "" {
		return "User"
	}
	return strings.Fields(name)[0]
}

// Load returns the active session, preferring a logged-in user over a
// guest. Returns nil when neither exists.
func Load(ctx context.Context, store *kvstore.Store) (*Session, error) {
	var s Session
	ok, err := store.GetJSON(ctx, kvstore.KeyLoggedUser, &s)
	if err != nil {
		return nil, fmt.Errorf("load logged user: %w", err)
	}
	if ok {
		return &s, nil
	}
	ok, err = store.GetJSON(ctx, kvstore.KeyGuestSession, &s)
	if err != nil {
		return nil, fmt.Errorf("load guest session: %w", err)
	}
	if ok {
		return &s, nil
	}
	return nil, nil
}

// SaveLogged stores an authenticated session, replacing any guest one.
func SaveLogged(ctx context.Context, store *kvstore.Store, s Session) error {
	s.Guest = false
	if err := store.SetJSON(ctx, kvstore.KeyLoggedUser, s); err != nil {
		return fmt.Errorf("save logged user: %w", err)
	}
	return store.Delete(ctx, kvstore.KeyGuestSession)
}

// StartGuest creates and stores a fresh guest session.
func StartGuest(ctx context.Context, store *kvstore.Store) (*Session, error) {
	s := Session{ID: uuid.NewString(), Name: "Guest", Guest: true}
	if err := store.SetJSON(ctx, kvstore.KeyGuestSession, s); err != nil {
		return nil, fmt.Errorf("save guest session: %w", err)
	}
	return &s, nil
}

// Clear removes both session records (logout).
func Clear(ctx context.Context, store *kvstore.Store) error {
	if err := store.Delete(ctx, kvstore.KeyLoggedUser); err != nil {
		return err
	}
	return store.Delete(ctx, kvstore.KeyGuestSession)
}

// Currency returns the persisted display currency, defaulting to
// core.DefaultCurrency.
func Currency(ctx context.Context, store *kvstore.Store) string {
	var code string
	if ok, err := store.GetJSON(ctx, kvstore.KeyUserCurrency, &code); err == nil && ok && code != "" {
		return code
	}
	return core.DefaultCurrency
}

func SetCurrency(ctx context.Context, store *kvstore.Store, code string) error {
	return store.SetJSON(ctx, kvstore.KeyUserCurrency, code)
}

// Theme returns the persisted theme preference, defaulting to "light".
func Theme(ctx context.Context, store *kvstore.Store) string {
	var theme string
	if ok, err := store.GetJSON(ctx, kvstore.KeyUserTheme, &theme); err == nil && ok && theme != "" {
		return theme
	}
	return "light"
}

func SetTheme(ctx context.Context, store *kvstore.Store, theme string) error {
	return store.SetJSON(ctx, kvstore.KeyUserTheme, theme)
}
