// Package rates fetches and caches foreign-exchange rates.
//
// The provider speaks GET /latest?base=<code>&symbols=<csv> and answers
// {"rates": {"CODE": number, ...}}. Results are cached per
// (base, sorted targets) key for one hour, and the cache is persisted in
// the durable local store so it survives restarts. A failed fetch
// degrades to the last cached rates for that exact key, or to an empty
// table; it never surfaces as an error. There is no retry and no backoff;
// callers are written to tolerate an empty or partial table at all times.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// RateTable maps a currency code to its rate relative to the base the
// table was fetched under. Missing keys mean "no conversion available".
type RateTable map[string]float64

// Staleness is how long a cached table stays valid.
const Staleness = time.Hour

const cacheKey = "fx_rates_cache_v1"

// CacheStore is the durable key-value storage the rate cache lives in.
// *kvstore.Store satisfies it.
type CacheStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

type cacheEntry struct {
	TS    int64     `json:"ts"` // unix millis of the fetch
	Rates RateTable `json:"rates"`
}

type Service struct {
	baseURL string
	client  *http.Client
	store   CacheStore

	mu     sync.Mutex
	cache  map[string]cacheEntry
	loaded bool

	now func() time.Time
}

func NewService(baseURL string, store CacheStore) *Service {
	return &Service{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  http.DefaultClient,
		store:   store,
		cache:   make(map[string]cacheEntry),
		now:     time.Now,
	}
}

// FetchRates returns conversion rates for targets relative to base.
// A cache hit younger than Staleness answers without network access.
// On miss or stale entry it issues exactly one request; on failure it
// falls back to the stale entry if one exists, else an empty table.
func (s *Service) FetchRates(ctx context.Context, base string, targets []string) RateTable {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadLocked(ctx)

	key := entryKey(base, targets)
	now := s.now()

	if entry, ok := s.cache[key]; ok && now.Sub(time.UnixMilli(entry.TS)) < Staleness {
		return entry.Rates
	}

	rates, err := s.request(ctx, base, targets)
	if err != nil {
		slog.WarnContext(ctx, "Rate fetch failed, falling back to cache",
			"base", base, "targets", strings.Join(targets, ","), "error", err)
		if entry, ok := s.cache[key]; ok {
			return entry.Rates
		}
		return RateTable{}
	}

	s.cache[key] = cacheEntry{TS: now.UnixMilli(), Rates: rates}
	s.persistLocked(ctx)
	return rates
}

// Convert converts amount from one currency to another. Identity
// conversions return the amount untouched with no rate lookup. A missing
// rate degrades to the original amount; Convert never fails.
func (s *Service) Convert(ctx context.Context, amount float64, from, to string) float64 {
	if from == to {
		return amount
	}
	rates := s.FetchRates(ctx, from, []string{to})
	rate, ok := rates[to]
	if !ok || rate == 0 {
		slog.WarnContext(ctx, "No conversion rate available, passing amount through",
			"from", from, "to", to)
		return amount
	}
	return amount * rate
}

func (s *Service) request(ctx context.Context, base string, targets []string) (RateTable, error) {
	u := s.baseURL + "/latest?base=" + url.QueryEscape(base)
	if len(targets) > 0 {
		u += "&symbols=" + url.QueryEscape(strings.Join(targets, ","))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build rate request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch rates: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rate response: %w", err)
	}

	var parsed struct {
		Rates RateTable `json:"rates"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode rate response: %w", err)
	}
	if parsed.Rates == nil {
		parsed.Rates = RateTable{}
	}
	return parsed.Rates, nil
}

// loadLocked pulls the persisted cache into memory once.
func (s *Service) loadLocked(ctx context.Context) {
	if s.loaded || s.store == nil {
		s.loaded = true
		return
	}
	s.loaded = true

	raw, ok, err := s.store.Get(ctx, cacheKey)
	if err != nil {
		slog.WarnContext(ctx, "Failed loading persisted rate cache", "error", err)
		return
	}
	if !ok {
		return
	}
	if err := json.Unmarshal([]byte(raw), &s.cache); err != nil {
		slog.WarnContext(ctx, "Discarding corrupt persisted rate cache", "error", err)
		s.cache = make(map[string]cacheEntry)
	}
}

func (s *Service) persistLocked(ctx context.Context) {
	if s.store == nil {
		return
	}
	raw, err := json.Marshal(s.cache)
	if err != nil {
		slog.WarnContext(ctx, "Failed encoding rate cache", "error", err)
		return
	}
	if err := s.store.Set(ctx, cacheKey, string(raw)); err != nil {
		slog.WarnContext(ctx, "Failed persisting rate cache", "error", err)
	}
}

// entryKey builds the cache key: base plus the sorted target codes.
func entryKey(base string, targets []string) string {
	sorted := append([]string(nil), targets...)
	sort.Strings(sorted)
	return base + "_" + strings.Join(sorted, ",")
}
