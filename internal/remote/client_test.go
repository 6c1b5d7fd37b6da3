package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fintrack/internal/core"
)

func TestCreateTransactionAssignsIDAndCreatedAt(t *testing.T) {
	var received core.Transaction
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/transactions" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	id, err := c.CreateTransaction(context.Background(), core.Transaction{
		Description: "rent",
		Amount:      500,
		Type:        core.Expense,
		Currency:    "USD",
		UserID:      "u1",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == "" || received.ID != id {
		t.Fatalf("expected generated id to round-trip, got %q / %q", id, received.ID)
	}
	if received.CreatedAt.IsZero() {
		t.Fatalf("expected createdAt assigned")
	}
}

func TestListTransactionsOrdersMostRecentFirst(t *testing.T) {
	older := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(time.Hour)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("userId"); got != "u1" {
			t.Errorf("userId = %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"documents": []core.Transaction{
				{ID: "a", CreatedAt: older},
				{ID: "b", CreatedAt: newer},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	got, err := c.ListTransactions(context.Background(), "u1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "a" {
		t.Fatalf("expected createdAt-descending order, got %+v", got)
	}
}

func TestFindUserByEmail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("email") {
		case "a@b.c":
			json.NewEncoder(w).Encode(map[string]any{
				"documents": []User{{ID: "u1", Name: "Ada", Email: "a@b.c"}},
			})
		default:
			json.NewEncoder(w).Encode(map[string]any{"documents": []User{}})
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	u, err := c.FindUserByEmail(context.Background(), "a@b.c")
	if err != nil || u == nil || u.ID != "u1" {
		t.Fatalf("expected user u1, got %+v err=%v", u, err)
	}

	u, err = c.FindUserByEmail(context.Background(), "nobody@x.y")
	if err != nil || u != nil {
		t.Fatalf("expected nil for unknown email, got %+v err=%v", u, err)
	}
}

func TestGetSettingsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	_, ok, err := c.GetSettings(context.Background(), "u1")
	if err != nil {
		t.Fatalf("missing settings doc is not an error: %v", err)
	}
	if ok {
		t.Fatalf("expected ok=false for missing document")
	}
}

func TestMergeSettingsSendsPatch(t *testing.T) {
	var gotMethod, gotPath string
	var patch Settings
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath = r.Method, r.URL.Path
		json.NewDecoder(r.Body).Decode(&patch)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	err := c.MergeSettings(context.Background(), "u1", Settings{Currency: "EUR"})
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if gotMethod != http.MethodPatch || gotPath != "/users/u1/settings" {
		t.Fatalf("unexpected request %s %s", gotMethod, gotPath)
	}
	if patch.Currency != "EUR" || patch.Theme != "" {
		t.Fatalf("unexpected patch %+v", patch)
	}
}
