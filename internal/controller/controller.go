// Package controller owns all mutable application state: the active
// session, the display currency, the active transaction source and its
// subscription, the latest transaction list and the aggregation built
// from it. Handlers read state through Snapshot and mutate it through
// the exported operations; nothing else holds state.
package controller

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"fintrack/internal/bus"
	"fintrack/internal/core"
	"fintrack/internal/kvstore"
	"fintrack/internal/rates"
	"fintrack/internal/remote"
	"fintrack/internal/session"
	"fintrack/internal/source"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrNoSession          = errors.New("no active session")
)

// RemoteStore is the slice of the remote API the controller needs.
// *remote.Client satisfies it.
type RemoteStore interface {
	source.TransactionLister
	CreateTransaction(ctx context.Context, txn core.Transaction) (string, error)
	FindUserByEmail(ctx context.Context, email string) (*remote.User, error)
	CreateUser(ctx context.Context, u remote.User) (string, error)
	GetSettings(ctx context.Context, userID string) (remote.Settings, bool, error)
	MergeSettings(ctx context.Context, userID string, patch remote.Settings) error
}

// ChangePublisher announces writes so other listeners re-query.
// *remote.Feed satisfies it.
type ChangePublisher interface {
	PublishChange(ctx context.Context, collection, userID string) error
}

// RateFetcher is satisfied by *rates.Service.
type RateFetcher interface {
	FetchRates(ctx context.Context, base string, targets []string) rates.RateTable
}

// Snapshot is a point-in-time copy of the controller state. It shares
// nothing with the controller and is safe to render from.
type Snapshot struct {
	Session      *session.Session
	Currency     string
	Symbol       string
	Theme        string
	Transactions []core.Transaction
	Rates        rates.RateTable
	Result       core.Result
}

type Controller struct {
	store        *kvstore.Store
	bus          *bus.Bus
	rates        RateFetcher
	remote       RemoteStore
	txnFeed      source.ChangeFeed
	settingsFeed source.ChangeFeed
	publisher    ChangePublisher

	// appCtx outlives any single request; subscriptions and rate
	// refreshes run against it, never against a handler's context.
	appCtx context.Context

	mu        sync.Mutex
	sess      *session.Session
	currency  string
	theme     string
	src       source.Source
	guest     *source.GuestSource
	cancelSub func()
	txns      []core.Transaction
	lastRates rates.RateTable
	result    core.Result

	onUpdate func()
}

func New(store *kvstore.Store, b *bus.Bus, fetcher RateFetcher, remoteStore RemoteStore, txnFeed, settingsFeed source.ChangeFeed, publisher ChangePublisher) *Controller {
	return &Controller{
		store:        store,
		bus:          b,
		rates:        fetcher,
		remote:       remoteStore,
		txnFeed:      txnFeed,
		settingsFeed: settingsFeed,
		publisher:    publisher,
		appCtx:       context.Background(),
		currency:     core.DefaultCurrency,
		theme:        "light",
		lastRates:    rates.RateTable{},
	}
}

// SetOnUpdate registers a hook invoked after every state refresh.
// Must be called before Start.
func (c *Controller) SetOnUpdate(fn func()) {
	c.onUpdate = fn
}

// Start restores the persisted session and preferences, attaches the
// matching transaction source and begins reacting to currency changes
// and remote settings updates. It returns once the initial state is
// loaded; watchers run until ctx is cancelled.
func (c *Controller) Start(ctx context.Context) error {
	c.appCtx = ctx

	sess, err := session.Load(ctx, c.store)
	if err != nil {
		return fmt.Errorf("restore session: %w", err)
	}

	c.mu.Lock()
	c.sess = sess
	c.currency = session.Currency(ctx, c.store)
	c.theme = session.Theme(ctx, c.store)
	c.mu.Unlock()

	if sess != nil {
		if err := c.attachSource(); err != nil {
			return err
		}
	}

	c.bus.Subscribe(func(evt bus.Event) {
		if _, ok := evt.(bus.CurrencyChanged); ok {
			c.recompute(c.appCtx)
		}
	})

	if c.settingsFeed != nil {
		go c.watchSettings(ctx)
	}

	// Announce the restored display currency so subscribers start from
	// a known state.
	c.mu.Lock()
	code := c.currency
	c.mu.Unlock()
	c.bus.Publish(bus.CurrencyChanged{Code: code, Symbol: core.CurrencySymbol(code)})
	return nil
}

// Snapshot copies the current state for rendering.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	txns := make([]core.Transaction, len(c.txns))
	copy(txns, c.txns)
	table := make(rates.RateTable, len(c.lastRates))
	for k, v := range c.lastRates {
		table[k] = v
	}

	var sess *session.Session
	if c.sess != nil {
		s := *c.sess
		sess = &s
	}

	return Snapshot{
		Session:      sess,
		Currency:     c.currency,
		Symbol:       core.CurrencySymbol(c.currency),
		Theme:        c.theme,
		Transactions: txns,
		Rates:        table,
		Result:       c.result,
	}
}

// SetCurrency persists the display currency, publishes the change and
// pushes it to the remote settings document for logged-in users.
func (c *Controller) SetCurrency(ctx context.Context, code string) error {
	return c.applyCurrency(ctx, code, true)
}

func (c *Controller) applyCurrency(ctx context.Context, code string, pushRemote bool) error {
	c.mu.Lock()
	if code == c.currency {
		c.mu.Unlock()
		return nil
	}
	c.currency = code
	sess := c.sess
	c.mu.Unlock()

	if err := session.SetCurrency(ctx, c.store, code); err != nil {
		return fmt.Errorf("save currency: %w", err)
	}

	if pushRemote && sess != nil && !sess.Guest {
		if err := c.remote.MergeSettings(ctx, sess.ID, remote.Settings{Currency: code}); err != nil {
			slog.WarnContext(ctx, "Currency not synced to remote settings", "error", err)
		}
	}

	// Publish outside the lock; subscribers re-enter the controller.
	c.bus.Publish(bus.CurrencyChanged{Code: code, Symbol: core.CurrencySymbol(code)})
	return nil
}

// SetTheme persists the theme preference and announces it.
func (c *Controller) SetTheme(ctx context.Context, theme string) error {
	c.mu.Lock()
	c.theme = theme
	sess := c.sess
	c.mu.Unlock()

	if err := session.SetTheme(ctx, c.store, theme); err != nil {
		return fmt.Errorf("save theme: %w", err)
	}
	if sess != nil && !sess.Guest {
		if err := c.remote.MergeSettings(ctx, sess.ID, remote.Settings{Theme: theme}); err != nil {
			slog.WarnContext(ctx, "Theme not synced to remote settings", "error", err)
		}
	}
	c.bus.Publish(bus.ThemeChanged{Theme: theme})
	return nil
}

// AddTransaction validates and normalizes the record, then routes it
// to the guest store or the remote store depending on the session.
func (c *Controller) AddTransaction(ctx context.Context, txn core.Transaction) error {
	c.mu.Lock()
	sess := c.sess
	guest := c.guest
	c.mu.Unlock()

	if sess == nil {
		return ErrNoSession
	}
	if err := txn.Validate(); err != nil {
		return err
	}

	if sess.Guest {
		return guest.Add(ctx, txn)
	}

	txn.UserID = sess.ID
	if _, err := c.remote.CreateTransaction(ctx, txn); err != nil {
		return fmt.Errorf("create transaction: %w", err)
	}
	if c.publisher != nil {
		if err := c.publisher.PublishChange(ctx, "transactions", sess.ID); err != nil {
			slog.WarnContext(ctx, "Change not announced, views may lag", "error", err)
		}
	}
	return nil
}

// Login verifies the password against the stored hash, restores the
// user's remote settings and switches the active source.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	user, err := c.remote.FindUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}
	if user == nil || user.PasswordHash != hashPassword(password) {
		return ErrInvalidCredentials
	}

	sess := session.Session{ID: user.ID, Name: user.Name, Email: user.Email}
	if err := session.SaveLogged(ctx, c.store, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	c.mu.Lock()
	c.sess = &sess
	c.mu.Unlock()

	if settings, ok, err := c.remote.GetSettings(ctx, user.ID); err != nil {
		slog.WarnContext(ctx, "Remote settings not loaded, keeping local preferences", "error", err)
	} else if ok {
		if settings.Currency != "" {
			if err := c.applyCurrency(ctx, settings.Currency, false); err != nil {
				return err
			}
		}
		if settings.Theme != "" {
			c.mu.Lock()
			c.theme = settings.Theme
			c.mu.Unlock()
			if err := session.SetTheme(ctx, c.store, settings.Theme); err != nil {
				return fmt.Errorf("save theme: %w", err)
			}
		}
	}

	if err := c.attachSource(); err != nil {
		return err
	}
	c.bus.Publish(bus.UserChanged{Action: "login", UserID: user.ID})
	return nil
}

// Register creates the user with a hashed password, seeds the remote
// settings document and logs the new user in.
func (c *Controller) Register(ctx context.Context, name, email, password string) error {
	existing, err := c.remote.FindUserByEmail(ctx, email)
	if err != nil {
		return fmt.Errorf("look up user: %w", err)
	}
	if existing != nil {
		return ErrEmailTaken
	}

	id, err := c.remote.CreateUser(ctx, remote.User{
		Name:         name,
		Email:        email,
		PasswordHash: hashPassword(password),
	})
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}

	patch := remote.Settings{Name: name, Email: email}
	if err := c.remote.MergeSettings(ctx, id, patch); err != nil {
		slog.WarnContext(ctx, "Initial settings not saved", "error", err, "user_id", id)
	}

	sess := session.Session{ID: id, Name: name, Email: email}
	if err := session.SaveLogged(ctx, c.store, sess); err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	c.mu.Lock()
	c.sess = &sess
	c.mu.Unlock()

	if err := c.attachSource(); err != nil {
		return err
	}
	c.bus.Publish(bus.UserChanged{Action: "register", UserID: id})
	return nil
}

// ContinueAsGuest starts a local-only session backed by the durable
// local store.
func (c *Controller) ContinueAsGuest(ctx context.Context) error {
	sess, err := session.StartGuest(ctx, c.store)
	if err != nil {
		return fmt.Errorf("start guest session: %w", err)
	}

	c.mu.Lock()
	c.sess = sess
	c.mu.Unlock()

	if err := c.attachSource(); err != nil {
		return err
	}
	c.bus.Publish(bus.UserChanged{Action: "guest", UserID: sess.ID})
	return nil
}

// Logout clears the session and detaches the source. Guest data stays
// in the local store for the next guest session.
func (c *Controller) Logout(ctx context.Context) error {
	if err := session.Clear(ctx, c.store); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}

	c.mu.Lock()
	cancel := c.cancelSub
	c.cancelSub = nil
	c.sess = nil
	c.src = nil
	c.guest = nil
	c.txns = nil
	c.result = core.Result{}
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	c.bus.Publish(bus.UserChanged{Action: "logout"})
	c.notify()
	return nil
}

// UpdateProfile saves the display name to the remote settings document.
func (c *Controller) UpdateProfile(ctx context.Context, name string) error {
	c.mu.Lock()
	sess := c.sess
	c.mu.Unlock()

	if sess == nil || sess.Guest {
		return ErrNoSession
	}
	if err := c.remote.MergeSettings(ctx, sess.ID, remote.Settings{Name: name}); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	// Snapshot readers copy through the shared pointer, so never write
	// to it in place.
	updated := *sess
	updated.Name = name
	if err := session.SaveLogged(ctx, c.store, updated); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	c.mu.Lock()
	c.sess = &updated
	c.mu.Unlock()
	return nil
}

// attachSource cancels any existing subscription and subscribes to the
// source matching the current session. The old subscription is always
// cancelled before the new one is created. Subscriptions run against
// the app context so they survive the request that triggered them.
func (c *Controller) attachSource() error {
	ctx := c.appCtx
	c.mu.Lock()
	cancel := c.cancelSub
	c.cancelSub = nil
	sess := c.sess
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if sess == nil {
		return nil
	}

	var src source.Source
	var guest *source.GuestSource
	if sess.Guest {
		guest = source.NewGuestSource(c.store, c.bus)
		src = guest
	} else {
		src = source.NewSyncedSource(c.remote, c.txnFeed, sess.ID)
	}

	newCancel, err := src.Subscribe(ctx, func(txns []core.Transaction) {
		c.mu.Lock()
		c.txns = txns
		c.mu.Unlock()
		c.recompute(ctx)
	})
	if err != nil {
		return fmt.Errorf("subscribe to transactions: %w", err)
	}

	c.mu.Lock()
	c.src = src
	c.guest = guest
	c.cancelSub = newCancel
	c.mu.Unlock()
	return nil
}

// recompute refreshes rates for the currencies present in the list and
// rebuilds the aggregation. The transaction list itself is not
// re-queried; only rates and derived totals change.
func (c *Controller) recompute(ctx context.Context) {
	c.mu.Lock()
	txns := make([]core.Transaction, len(c.txns))
	copy(txns, c.txns)
	currency := c.currency
	c.mu.Unlock()

	targets := distinctCurrencies(txns)
	table := rates.RateTable{}
	if len(targets) > 0 {
		table = c.rates.FetchRates(ctx, currency, targets)
	}

	result := core.Aggregate(txns, currency, table)

	c.mu.Lock()
	c.lastRates = table
	c.result = result
	c.mu.Unlock()

	c.notify()
}

// watchSettings follows the settings change feed and picks up currency
// changes made on other devices.
func (c *Controller) watchSettings(ctx context.Context) {
	err := c.settingsFeed.Consume(ctx, func(msg *remote.ChangeMessage) error {
		c.mu.Lock()
		sess := c.sess
		c.mu.Unlock()

		if msg.Collection != "settings" || sess == nil || sess.Guest || msg.UserID != sess.ID {
			return nil
		}

		settings, ok, err := c.remote.GetSettings(ctx, sess.ID)
		if err != nil {
			slog.WarnContext(ctx, "Settings re-query failed", "error", err)
			return nil
		}
		if !ok || settings.Currency == "" {
			return nil
		}
		return c.applyCurrency(ctx, settings.Currency, false)
	})
	if err != nil && ctx.Err() == nil {
		slog.ErrorContext(ctx, "Settings watcher ended", "error", err)
	}
}

func (c *Controller) notify() {
	if c.onUpdate != nil {
		c.onUpdate()
	}
}

func distinctCurrencies(txns []core.Transaction) []string {
	seen := make(map[string]bool, 4)
	var out []string
	for _, t := range txns {
		if t.Currency == "" || seen[t.Currency] {
			continue
		}
		seen[t.Currency] = true
		out = append(out, t.Currency)
	}
	return out
}

func hashPassword(password string) string {
	sum := sha256.Sum256([]byte(password))
	return hex.EncodeToString(sum[:])
}
