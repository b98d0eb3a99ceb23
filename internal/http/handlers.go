package http

import (
	"bytes"
	"context"
	"net/http"
	"strconv"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/export"
	applog "fintrack/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().JSON(map[string]string{"status": "ok"}).Write(w)
}

// handleReady checks that the transaction file can be read
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready == nil {
		NewHTMXResponse().JSON(map[string]string{"status": "ready"}).Write(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := s.ready(ctx); err != nil {
		applog.FromContext(ctx).WarnContext(ctx, "Readiness check failed", applog.FieldError, err)
		NewHTMXResponse().
			Status(http.StatusServiceUnavailable).
			JSON(map[string]string{"status": "not_ready", "error": err.Error()}).
			Write(w)
		return
	}
	NewHTMXResponse().JSON(map[string]string{"status": "ready"}).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.querier.ListAll(r.Context())
	if err != nil {
		s.fail(w, r, err, applog.OpList)
		return
	}
	NewHTMXResponse().JSON(txs).Write(w)
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}

	tx, err := s.mutator.Create(r.Context(), p.createInput())
	if err != nil {
		s.fail(w, r, err, applog.OpCreate)
		return
	}

	NewHTMXResponse().
		Status(http.StatusCreated).
		TriggerTransactionsChanged(applog.OpCreate, tx.ID).
		TriggerFormReset().
		TriggerSuccessNotification("Transaction added").
		JSON(tx).
		Write(w)
}

type updateResponse struct {
	ID       string   `json:"id"`
	Row      core.Row `json:"row"`
	Warnings []string `json:"warnings"`
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		NotFoundError("Transaction not found").Write(w)
		return
	}

	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}

	res, err := s.mutator.Update(r.Context(), id, p.updateInput())
	if err != nil {
		s.fail(w, r, err, applog.OpUpdate)
		return
	}

	idStr := strconv.FormatInt(id, 10)
	b := NewHTMXResponse().TriggerTransactionsChanged(applog.OpUpdate, idStr)
	if len(res.Warnings) > 0 {
		b.TriggerNotification(NotificationWarning, res.Warnings[0], 5000)
	} else {
		b.TriggerSuccessNotification("Transaction updated")
	}
	warnings := res.Warnings
	if warnings == nil {
		warnings = []string{}
	}
	b.JSON(updateResponse{ID: idStr, Row: res.Row, Warnings: warnings}).Write(w)
}

type deleteResponse struct {
	ID      string `json:"id"`
	Removed bool   `json:"removed"`
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	raw := r.PathValue("id")
	id, ok := parseID(r)
	if !ok {
		// No row can match; the file is left alone.
		NewHTMXResponse().
			TriggerNotification(NotificationInfo, "Transaction not found", 3000).
			JSON(deleteResponse{ID: raw, Removed: false}).
			Write(w)
		return
	}

	removed, err := s.mutator.Delete(r.Context(), id)
	if err != nil {
		s.fail(w, r, err, applog.OpDelete)
		return
	}

	b := NewHTMXResponse()
	if removed {
		b.TriggerTransactionsChanged(applog.OpDelete, raw).TriggerSuccessNotification("Transaction deleted")
	} else {
		b.TriggerNotification(NotificationInfo, "Transaction not found", 3000)
	}
	b.JSON(deleteResponse{ID: raw, Removed: removed}).Write(w)
}

type summaryResponse struct {
	core.Summary
	Categories []core.CategoryAmount `json:"categories"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := s.querier.Summarize(r.Context())
	if err != nil {
		s.fail(w, r, err, applog.OpSummary)
		return
	}
	NewHTMXResponse().JSON(summaryResponse{Summary: sum, Categories: sum.Categories()}).Write(w)
}

type searchResponse struct {
	Mode    string            `json:"mode"`
	Results []core.Row        `json:"results"`
	Skipped []core.Diagnostic `json:"skipped,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var p *RequestBodyParser
	if r.Method == http.MethodGet {
		p = NewQueryParser(r.URL.Query())
	} else {
		p = NewRequestBodyParser(r)
	}
	if err := p.Parse(); err != nil {
		BadRequestError("Invalid request body").Write(w)
		return
	}

	params := p.searchParams()
	if r.Method == http.MethodGet && params.Mode == "" {
		// Opening the search page without a query.
		NewHTMXResponse().JSON(searchResponse{Results: []core.Row{}}).Write(w)
		return
	}

	res, err := s.querier.Search(r.Context(), params)
	if err != nil {
		s.fail(w, r, err, applog.OpSearch)
		return
	}

	applog.FromContext(r.Context()).DebugContext(r.Context(), "Search completed",
		applog.FieldSearchMode, params.Mode,
		applog.FieldCount, len(res.Rows))
	NewHTMXResponse().JSON(searchResponse{Mode: params.Mode, Results: res.Rows, Skipped: res.Skipped}).Write(w)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	txs, err := s.querier.ListAll(ctx)
	if err != nil {
		s.fail(w, r, err, applog.OpExport)
		return
	}
	sum, err := s.querier.Summarize(ctx)
	if err != nil {
		s.fail(w, r, err, applog.OpExport)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, txs, sum); err != nil {
		s.fail(w, r, err, applog.OpExport)
		return
	}

	NewHTMXResponse().
		Header("Content-Type", export.ContentType).
		Header("Content-Disposition", `attachment; filename="transactions.xlsx"`).
		Header("Content-Length", strconv.Itoa(buf.Len())).
		Body(buf.Bytes()).
		Write(w)
}

// fail writes the error response for err and logs unexpected failures.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, op string) {
	ctx := r.Context()
	if status := statusForError(err); status == http.StatusInternalServerError {
		applog.NewStructuredLogger(applog.FromContext(ctx)).
			LogError(ctx, "Request failed", err, applog.ComponentHTTP, op, nil)
	} else {
		applog.FromContext(ctx).DebugContext(ctx, "Request rejected",
			applog.FieldOperation, op,
			applog.FieldStatusCode, status,
			applog.FieldError, err)
	}
	ErrorFrom(err).Write(w)
}
