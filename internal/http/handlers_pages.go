package http

import (
	"net/http"
	"time"

	"fintrack/internal/controller"
	"fintrack/internal/core"
	"fintrack/internal/views"
)

// page carries the fields every template's chrome needs.
type page struct {
	Title      string
	Theme      string
	Currency   string
	Symbol     string
	UserName   string
	Guest      bool
	LoggedIn   bool
	Currencies []string
}

func (s *Server) pageData(title string, snap controller.Snapshot) page {
	p := page{
		Title:      title,
		Theme:      snap.Theme,
		Currency:   snap.Currency,
		Symbol:     snap.Symbol,
		Currencies: core.SupportedCurrencies(),
	}
	if snap.Session != nil {
		p.UserName = snap.Session.DisplayName()
		p.Guest = snap.Session.Guest
		p.LoggedIn = true
	}
	return p
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	snap := s.ctrl.Snapshot()
	rows := views.BuildRows(snap.Transactions, snap.Currency, snap.Rates)

	data := struct {
		page
		Summary  views.Summary
		Rows     []views.TxRow
		ShowAll  bool
		HasMore  bool
		Category views.CategoryChart
		Weekly   views.WeeklyChart
	}{
		page:     s.pageData("Dashboard", snap),
		Summary:  views.BuildSummary(snap.Result, snap.Currency),
		Rows:     views.Recent(rows, false),
		HasMore:  len(rows) > views.RecentLimit,
		Category: views.BuildCategoryChart(snap.Result.CategoryTotals, snap.Currency),
		Weekly:   views.BuildWeeklyChart(snap.Result.DailyTotals, snap.Currency, time.Now()),
	}
	s.render(w, r, "dashboard.html", data)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		s.handleCreateTransaction(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	snap := s.ctrl.Snapshot()
	if snap.Session == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}
	q := listQuery(r)
	filtered := views.Filter(snap.Transactions, q)

	data := struct {
		page
		Rows       []views.TxRow
		Query      views.Query
		Categories []string
	}{
		page:       s.pageData("Transactions", snap),
		Rows:       views.BuildRows(filtered, snap.Currency, snap.Rates),
		Query:      q,
		Categories: core.Categories(),
	}
	s.render(w, r, "transactions.html", data)
}

func (s *Server) handleInsights(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	snap := s.ctrl.Snapshot()
	now := time.Now()

	data := struct {
		page
		Summary       views.Summary
		Category      views.CategoryChart
		Weekly        views.WeeklyChart
		IncomeExpense views.IncomeExpenseChart
	}{
		page:          s.pageData("Insights", snap),
		Summary:       views.BuildSummary(snap.Result, snap.Currency),
		Category:      views.BuildCategoryChart(snap.Result.CategoryTotals, snap.Currency),
		Weekly:        views.BuildWeeklyChart(snap.Result.DailyTotals, snap.Currency, now),
		IncomeExpense: views.BuildIncomeExpenseChart(snap.Transactions, snap.Currency, snap.Rates, now),
	}
	s.render(w, r, "insights.html", data)
}

func (s *Server) handleAddPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	snap := s.ctrl.Snapshot()
	data := struct {
		page
		Categories []string
		Today      string
		Error      string
	}{
		page:       s.pageData("Add Transaction", snap),
		Categories: core.Categories(),
		Today:      time.Now().Format("2006-01-02"),
		Error:      r.URL.Query().Get("error"),
	}
	s.render(w, r, "add_transaction.html", data)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		s.handleUpdateSettings(w, r)
		return
	}
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	snap := s.ctrl.Snapshot()
	if snap.Session == nil {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	data := struct {
		page
		Email string
		Saved bool
	}{
		page:  s.pageData("Settings", snap),
		Email: snap.Session.Email,
		Saved: r.URL.Query().Get("saved") == "1",
	}
	s.render(w, r, "settings.html", data)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.ctrl.Snapshot().Session != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.renderLogin(w, r, "")
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, errMsg string) {
	data := struct {
		page
		Error string
	}{
		page:  s.pageData("Sign In", s.ctrl.Snapshot()),
		Error: errMsg,
	}
	s.render(w, r, "login.html", data)
}

func (s *Server) handleRegisterPage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.ctrl.Snapshot().Session != nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.renderRegister(w, r, "")
}

func (s *Server) renderRegister(w http.ResponseWriter, r *http.Request, errMsg string) {
	data := struct {
		page
		Error string
	}{
		page:  s.pageData("Create Account", s.ctrl.Snapshot()),
		Error: errMsg,
	}
	s.render(w, r, "register.html", data)
}

// listQuery reads search, filter and sort parameters for the
// transaction list.
func listQuery(r *http.Request) views.Query {
	q := views.Query{
		Search:   sanitizeInput(r.URL.Query().Get("q")),
		Category: sanitizeInput(r.URL.Query().Get("category")),
		Sort:     r.URL.Query().Get("sort"),
		Dir:      r.URL.Query().Get("dir"),
	}
	if q.Sort != views.SortAmount {
		q.Sort = views.SortDate
	}
	if q.Dir != views.DirAsc {
		q.Dir = views.DirDesc
	}
	return q
}
