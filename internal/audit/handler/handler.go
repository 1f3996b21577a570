package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"arbiter/internal/audit"
	"arbiter/internal/audit/service"
	dErrors "arbiter/pkg/domain-errors"
	"arbiter/pkg/platform/httputil"
)

// Handler exposes the audit trail over HTTP. All endpoints are read-only;
// entries are only ever written by the services that emit them.
type Handler struct {
	service *service.Service
	logger  *slog.Logger
}

func New(service *service.Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/audit", h.handleList)
	r.Get("/audit/stats", h.handleStats)
	r.Get("/audit/export", h.handleExport)
	r.Get("/audit/{auditID}", h.handleGet)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filters, err := filtersFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	page := audit.Page{
		Limit:  intQuery(r, "limit"),
		Offset: intQuery(r, "offset"),
	}

	entries, err := h.service.List(r.Context(), filters, page)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := filtersFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = service.FormatJSON
	}

	entries, err := h.service.Export(r.Context(), filters, format)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	filename := fmt.Sprintf("audit-export-%s.%s", time.Now().UTC().Format("20060102-150405"), format)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	if format == service.FormatCSV {
		w.Header().Set("Content-Type", "text/csv")
		if err := service.WriteCSV(w, entries); err != nil {
			h.logger.ErrorContext(r.Context(), "csv export write failed", "error", err)
		}
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.Get(r.Context(), chi.URLParam(r, "auditID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, entry)
}

func filtersFromQuery(r *http.Request) (audit.Filters, error) {
	q := r.URL.Query()
	filters := audit.Filters{
		DecisionID: q.Get("decision_id"),
		ActionType: audit.ActionType(q.Get("action_type")),
		Actor:      audit.Actor(q.Get("actor")),
	}

	if raw := q.Get("since"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return audit.Filters{}, dErrors.New(dErrors.CodeBadRequest, "since must be an RFC 3339 timestamp")
		}
		filters.Since = ts
	}
	if raw := q.Get("until"); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return audit.Filters{}, dErrors.New(dErrors.CodeBadRequest, "until must be an RFC 3339 timestamp")
		}
		filters.Until = ts
	}
	return filters, nil
}

func intQuery(r *http.Request, key string) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
