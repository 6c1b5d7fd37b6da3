package http

import (
	"net/http"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/views"
)

// Partial handlers return HTML fragments the pages swap in without a
// full reload. Each one renders from the current snapshot only.

func (s *Server) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	snap := s.ctrl.Snapshot()
	data := struct {
		Summary views.Summary
	}{
		Summary: views.BuildSummary(snap.Result, snap.Currency),
	}
	s.render(w, r, "summary_cards", data)
}

func (s *Server) handleRecentPartial(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	snap := s.ctrl.Snapshot()
	rows := views.BuildRows(snap.Transactions, snap.Currency, snap.Rates)
	showAll := r.URL.Query().Get("all") == "1"

	data := struct {
		Rows    []views.TxRow
		ShowAll bool
		HasMore bool
	}{
		Rows:    views.Recent(rows, showAll),
		ShowAll: showAll,
		HasMore: len(rows) > views.RecentLimit,
	}
	s.render(w, r, "recent_transactions", data)
}

func (s *Server) handleCategoryChartPartial(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	snap := s.ctrl.Snapshot()
	data := struct {
		Category views.CategoryChart
	}{
		Category: views.BuildCategoryChart(snap.Result.CategoryTotals, snap.Currency),
	}
	s.render(w, r, "category_chart", data)
}

func (s *Server) handleWeeklyChartPartial(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	snap := s.ctrl.Snapshot()
	data := struct {
		Weekly   views.WeeklyChart
		Currency string
	}{
		Weekly:   views.BuildWeeklyChart(snap.Result.DailyTotals, snap.Currency, time.Now()),
		Currency: snap.Currency,
	}
	s.render(w, r, "weekly_chart", data)
}

func (s *Server) handleIncomeExpensePartial(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	snap := s.ctrl.Snapshot()
	data := struct {
		IncomeExpense views.IncomeExpenseChart
	}{
		IncomeExpense: views.BuildIncomeExpenseChart(snap.Transactions, snap.Currency, snap.Rates, time.Now()),
	}
	s.render(w, r, "income_expense_chart", data)
}

func (s *Server) handleTransactionListPartial(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	snap := s.ctrl.Snapshot()
	q := listQuery(r)
	filtered := views.Filter(snap.Transactions, q)

	data := struct {
		Rows       []views.TxRow
		Query      views.Query
		Categories []string
	}{
		Rows:       views.BuildRows(filtered, snap.Currency, snap.Rates),
		Query:      q,
		Categories: core.Categories(),
	}
	s.render(w, r, "transaction_list", data)
}
