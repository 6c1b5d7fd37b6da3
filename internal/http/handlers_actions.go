package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"fintrack/internal/controller"
	"fintrack/internal/core"
)

const actionTimeout = 10 * time.Second

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), actionTimeout)
	defer cancel()

	if err := r.ParseForm(); err != nil {
		slog.ErrorContext(ctx, "Parse form error", "error", err, "path", r.URL.Path)
		redirectAddError(w, r, "Invalid request format")
		return
	}

	amount, err := parseAmount(r.Form.Get("amount"))
	if err != nil {
		redirectAddError(w, r, "Enter a valid amount")
		return
	}

	txn := core.Transaction{
		Description: sanitizeInput(r.Form.Get("description")),
		Amount:      amount,
		Type:        core.TxnType(r.Form.Get("type")),
		Category:    sanitizeInput(r.Form.Get("category")),
		Date:        sanitizeInput(r.Form.Get("date")),
		Currency:    sanitizeInput(r.Form.Get("currency")),
	}
	if txn.Currency == "" {
		txn.Currency = s.ctrl.Snapshot().Currency
	}

	if err := s.ctrl.AddTransaction(ctx, txn); err != nil {
		switch {
		case errors.Is(err, controller.ErrNoSession):
			http.Redirect(w, r, "/login", http.StatusSeeOther)
		case errors.Is(err, core.ErrInvalidAmount),
			errors.Is(err, core.ErrEmptyDescription),
			errors.Is(err, core.ErrInvalidType),
			errors.Is(err, core.ErrInvalidDate):
			redirectAddError(w, r, err.Error())
		default:
			slog.ErrorContext(ctx, "Transaction create failed", "error", err)
			redirectAddError(w, r, "Could not save transaction")
		}
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func redirectAddError(w http.ResponseWriter, r *http.Request, msg string) {
	http.Redirect(w, r, "/add?error="+url.QueryEscape(msg), http.StatusSeeOther)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), actionTimeout)
	defer cancel()

	if err := r.ParseForm(); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	if currency := sanitizeInput(r.Form.Get("currency")); currency != "" {
		if err := s.ctrl.SetCurrency(ctx, currency); err != nil {
			slog.ErrorContext(ctx, "Currency update failed", "error", err)
			http.Error(w, "could not save currency", http.StatusInternalServerError)
			return
		}
	}
	if theme := sanitizeInput(r.Form.Get("theme")); theme != "" {
		if err := s.ctrl.SetTheme(ctx, theme); err != nil {
			slog.ErrorContext(ctx, "Theme update failed", "error", err)
			http.Error(w, "could not save theme", http.StatusInternalServerError)
			return
		}
	}
	if name := sanitizeInput(r.Form.Get("name")); name != "" {
		if err := s.ctrl.UpdateProfile(ctx, name); err != nil && !errors.Is(err, controller.ErrNoSession) {
			slog.ErrorContext(ctx, "Profile update failed", "error", err)
			http.Error(w, "could not save profile", http.StatusInternalServerError)
			return
		}
	}

	http.Redirect(w, r, "/settings?saved=1", http.StatusSeeOther)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), actionTimeout)
	defer cancel()

	if err := r.ParseForm(); err != nil {
		s.renderLogin(w, r, "Invalid request format")
		return
	}

	email := sanitizeInput(r.Form.Get("email"))
	password := r.Form.Get("password")
	if email == "" || password == "" {
		s.renderLogin(w, r, "Email and password are required")
		return
	}

	if err := s.ctrl.Login(ctx, email, password); err != nil {
		if errors.Is(err, controller.ErrInvalidCredentials) {
			s.renderLogin(w, r, "Invalid email or password")
			return
		}
		slog.ErrorContext(ctx, "Login failed", "error", err)
		s.renderLogin(w, r, "Sign in failed, try again")
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), actionTimeout)
	defer cancel()

	if err := r.ParseForm(); err != nil {
		s.renderRegister(w, r, "Invalid request format")
		return
	}

	name := sanitizeInput(r.Form.Get("name"))
	email := sanitizeInput(r.Form.Get("email"))
	password := r.Form.Get("password")
	if name == "" || email == "" || password == "" {
		s.renderRegister(w, r, "All fields are required")
		return
	}
	if len(password) < 6 {
		s.renderRegister(w, r, "Password must be at least 6 characters")
		return
	}

	if err := s.ctrl.Register(ctx, name, email, password); err != nil {
		if errors.Is(err, controller.ErrEmailTaken) {
			s.renderRegister(w, r, "That email is already registered")
			return
		}
		slog.ErrorContext(ctx, "Registration failed", "error", err)
		s.renderRegister(w, r, "Registration failed, try again")
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleGuest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), actionTimeout)
	defer cancel()

	if err := s.ctrl.ContinueAsGuest(ctx); err != nil {
		slog.ErrorContext(ctx, "Guest session failed", "error", err)
		s.renderLogin(w, r, "Could not start a guest session")
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), actionTimeout)
	defer cancel()

	if err := s.ctrl.Logout(ctx); err != nil {
		slog.ErrorContext(ctx, "Logout failed", "error", err)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
