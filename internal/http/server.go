package http

import (
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/olahol/melody"

	"fintrack/internal/controller"
	applog "fintrack/internal/log"
	appweb "fintrack/web"
)

type Server struct {
	http.Server
	ctrl        *controller.Controller
	templates   *template.Template
	rateLimiter *rateLimiter
	ws          *melody.Melody

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run
// http.Server. The controller must have been started already.
func NewServer(addr string, ctrl *controller.Controller) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		ctrl:        ctrl,
		rateLimiter: newRateLimiter(),
		ws:          newWebsocket(),
	}

	// Parse embedded templates at startup.
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		slog.Warn("Failed parsing templates", "error", err)
	}
	s.templates = t

	// Static assets (served from embedded FS)
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("/static/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", "public, max-age=3600, immutable")
			static.ServeHTTP(w, r)
		}))
	} else {
		slog.Warn("Failed to mount embedded static FS", "error", err)
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	// Pages
	mux.HandleFunc("/", s.withSecurityHeaders(s.requireSession(s.handleDashboard)))
	mux.HandleFunc("/transactions", s.withSecurityHeaders(s.handleTransactions))
	mux.HandleFunc("/insights", s.withSecurityHeaders(s.requireSession(s.handleInsights)))
	mux.HandleFunc("/add", s.withSecurityHeaders(s.requireSession(s.handleAddPage)))
	mux.HandleFunc("/settings", s.withSecurityHeaders(s.handleSettings))
	mux.HandleFunc("/login", s.withSecurityHeaders(s.handleLoginPage))
	mux.HandleFunc("/register", s.withSecurityHeaders(s.handleRegisterPage))

	// Auth actions
	mux.HandleFunc("/auth/login", s.withSecurityHeaders(s.handleLogin))
	mux.HandleFunc("/auth/register", s.withSecurityHeaders(s.handleRegister))
	mux.HandleFunc("/auth/guest", s.withSecurityHeaders(s.handleGuest))
	mux.HandleFunc("/logout", s.withSecurityHeaders(s.handleLogout))

	// UI partials
	mux.HandleFunc("/ui/summary", s.withSecurityHeaders(s.requireSession(s.handleSummaryPartial)))
	mux.HandleFunc("/ui/recent", s.withSecurityHeaders(s.requireSession(s.handleRecentPartial)))
	mux.HandleFunc("/ui/category-chart", s.withSecurityHeaders(s.requireSession(s.handleCategoryChartPartial)))
	mux.HandleFunc("/ui/weekly-chart", s.withSecurityHeaders(s.requireSession(s.handleWeeklyChartPartial)))
	mux.HandleFunc("/ui/income-expense-chart", s.withSecurityHeaders(s.requireSession(s.handleIncomeExpensePartial)))
	mux.HandleFunc("/ui/transaction-list", s.withSecurityHeaders(s.requireSession(s.handleTransactionListPartial)))

	// WebSocket refresh channel
	mux.HandleFunc("/ws", s.handleWS)

	return s
}

// newWebsocket configures the refresh broadcast channel.
func newWebsocket() *melody.Melody {
	m := melody.New()
	m.Config.MaxMessageSize = 1024
	m.Config.PingPeriod = 30 * time.Second
	m.Config.PongWait = 60 * time.Second

	m.HandleError(func(sess *melody.Session, err error) {
		slog.Warn("WebSocket error", "error", err, applog.FieldComponent, applog.ComponentHTTP)
	})
	return m
}

// BroadcastRefresh tells connected pages that state changed and views
// should be re-fetched. Wire it to the controller's update hook.
func (s *Server) BroadcastRefresh() {
	if err := s.ws.Broadcast([]byte(`{"type":"refresh"}`)); err != nil {
		slog.Warn("Refresh broadcast failed", "error", err)
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if err := s.ws.HandleRequest(w, r); err != nil {
		slog.WarnContext(r.Context(), "WebSocket upgrade failed", "error", err)
	}
}

// Shutdown gracefully shuts down the server and cleanup routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		if s.ws != nil {
			_ = s.ws.Close()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		clientIP := extractClientIP(r)
		requestID := generateRequestID()

		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		r = r.WithContext(ctx)

		slog.InfoContext(ctx, "Request started",
			"request_id", requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP,
			applog.FieldUserAgent, r.Header.Get("User-Agent"))

		// Rate limit writes only; reads are cheap local renders.
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			slog.WarnContext(ctx, "Rate limit exceeded",
				applog.FieldClientIP, clientIP, applog.FieldMethod, r.Method, applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; script-src 'self' https://unpkg.com; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self' ws: wss:")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		slog.InfoContext(ctx, "Request completed",
			"request_id", requestID,
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, duration.Milliseconds(),
			applog.FieldClientIP, clientIP)
	}
}

// requireSession redirects to the login page when nobody is signed in,
// guest or otherwise.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.ctrl.Snapshot().Session == nil {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next(w, r)
	}
}

type ctxKey string

const requestIDKey ctxKey = "request_id"

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
