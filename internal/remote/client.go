// Package remote talks to the synced document store: a JSON-over-HTTP
// collection API plus an AMQP change feed for live subscriptions. The
// store keys documents by generated ID and orders transaction queries by
// their creation timestamp.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/core"
)

// User is a document in the users collection.
type User struct {
	ID           string `json:"id,omitempty"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	PasswordHash string `json:"password"` // hex SHA-256
}

// Settings is the per-user settings document, written via merge-upsert.
type Settings struct {
	Theme    string `json:"theme,omitempty"`
	Currency string `json:"currency,omitempty"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// CreateTransaction stores a transaction document and returns its id.
// Missing id and createdAt are assigned here; the store treats both as
// opaque.
func (c *Client) CreateTransaction(ctx context.Context, txn core.Transaction) (string, error) {
	if txn.ID == "" {
		txn.ID = uuid.NewString()
	}
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now().UTC()
	}
	if err := c.post(ctx, "/transactions", txn, nil); err != nil {
		return "", fmt.Errorf("create transaction: %w", err)
	}
	return txn.ID, nil
}

// ListTransactions returns all transactions owned by userID, most recent
// first by creation timestamp.
func (c *Client) ListTransactions(ctx context.Context, userID string) ([]core.Transaction, error) {
	var out struct {
		Documents []core.Transaction `json:"documents"`
	}
	if err := c.get(ctx, "/transactions?userId="+url.QueryEscape(userID), &out); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	// The store orders by createdAt; re-sort defensively so callers can
	// rely on most-recent-first regardless of transport.
	sort.SliceStable(out.Documents, func(i, j int) bool {
		return out.Documents[i].CreatedAt.After(out.Documents[j].CreatedAt)
	})
	return out.Documents, nil
}

// FindUserByEmail returns the user registered under email, or nil.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*User, error) {
	var out struct {
		Documents []User `json:"documents"`
	}
	if err := c.get(ctx, "/users?email="+url.QueryEscape(email), &out); err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if len(out.Documents) == 0 {
		return nil, nil
	}
	return &out.Documents[0], nil
}

// ListUsers returns every registered user. The change poller walks
// this list to watch each user's collections.
func (c *Client) ListUsers(ctx context.Context) ([]User, error) {
	var out struct {
		Documents []User `json:"documents"`
	}
	if err := c.get(ctx, "/users", &out); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return out.Documents, nil
}

// CreateUser registers a new user document and returns its id.
func (c *Client) CreateUser(ctx context.Context, u User) (string, error) {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if err := c.post(ctx, "/users", u, nil); err != nil {
		return "", fmt.Errorf("create user: %w", err)
	}
	return u.ID, nil
}

// GetSettings reads the per-user settings document. The second result is
// false when no document exists yet.
func (c *Client) GetSettings(ctx context.Context, userID string) (Settings, bool, error) {
	var s Settings
	err := c.get(ctx, "/users/"+url.PathEscape(userID)+"/settings", &s)
	if err != nil {
		if isNotFound(err) {
			return Settings{}, false, nil
		}
		return Settings{}, false, fmt.Errorf("get settings: %w", err)
	}
	return s, true, nil
}

// MergeSettings merge-upserts the given fields into the per-user settings
// document; fields absent from patch are left untouched.
func (c *Client) MergeSettings(ctx context.Context, userID string, patch Settings) error {
	u := c.baseURL + "/users/" + url.PathEscape(userID) + "/settings"
	body, err := json.Marshal(patch)
	if err != nil {
		return fmt.Errorf("encode settings patch: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, u, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build settings request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("merge settings: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("merge settings: unexpected status %d", resp.StatusCode)
	}
	return nil
}

type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

func isNotFound(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code == http.StatusNotFound
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %w", path, &statusError{code: resp.StatusCode})
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("POST %s: %w", path, &statusError{code: resp.StatusCode})
	}
	if out == nil {
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
