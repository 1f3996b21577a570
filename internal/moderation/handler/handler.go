package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"arbiter/internal/moderation"
	"arbiter/internal/policy"
	dErrors "arbiter/pkg/domain-errors"
	"arbiter/pkg/platform/httputil"
	"arbiter/pkg/platform/middleware/auth"
)

// Service defines the decision operations the HTTP layer needs.
type Service interface {
	Get(ctx context.Context, decisionID string) (moderation.Decision, error)
	List(ctx context.Context, filters moderation.Filters, page moderation.Page) ([]moderation.Decision, error)
	Stats(ctx context.Context) (moderation.Stats, error)
	Review(ctx context.Context, decisionID string, approved bool, notes string) (moderation.Decision, error)
	Overturn(ctx context.Context, decisionID, reason string) (moderation.Decision, error)
}

// Handler wires decision endpoints to the moderation service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts read endpoints; RegisterAdmin mounts review and overturn
// so the router can wrap them in the admin auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/moderation/decisions", h.handleList)
	r.Get("/moderation/decisions/stats", h.handleStats)
	r.Get("/moderation/decisions/{decisionID}", h.handleGet)
}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/moderation/decisions/{decisionID}/review", h.handleReview)
	r.Post("/moderation/decisions/{decisionID}/overturn", h.handleOverturn)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	filters, err := filtersFromQuery(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page := moderation.Page{
		Limit:  intQuery(r, "limit"),
		Offset: intQuery(r, "offset"),
	}

	decisions, err := h.service.List(r.Context(), filters, page)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, decisions)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	decision, err := h.service.Get(r.Context(), chi.URLParam(r, "decisionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, decision)
}

type reviewRequest struct {
	Approved bool   `json:"approved"`
	Notes    string `json:"notes"`
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	decisionID := chi.URLParam(r, "decisionID")

	req, ok := httputil.Decode[reviewRequest](w, r)
	if !ok {
		return
	}

	decision, err := h.service.Review(ctx, decisionID, req.Approved, req.Notes)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "decision reviewed",
		"decision_id", decisionID,
		"approved", req.Approved,
		"actor", auth.Actor(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, lifecycleResponse(decision))
}

type overturnRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) handleOverturn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	decisionID := chi.URLParam(r, "decisionID")

	req, ok := httputil.Decode[overturnRequest](w, r)
	if !ok {
		return
	}

	decision, err := h.service.Overturn(ctx, decisionID, req.Reason)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "decision overturned",
		"decision_id", decisionID,
		"actor", auth.Actor(ctx),
	)
	httputil.WriteJSON(w, http.StatusOK, lifecycleResponse(decision))
}

func lifecycleResponse(d moderation.Decision) map[string]any {
	return map[string]any{
		"status":      "success",
		"decision_id": d.ID,
		"new_status":  d.Status,
	}
}

func filtersFromQuery(r *http.Request) (moderation.Filters, error) {
	q := r.URL.Query()
	filters := moderation.Filters{
		RoomID:        q.Get("room_id"),
		ParticipantID: q.Get("participant_id"),
		Action:        moderation.Action(q.Get("action")),
		Status:        moderation.Status(q.Get("status")),
	}
	if raw := q.Get("classification"); raw != "" {
		filters.Classification = policy.Category(raw)
	}

	var err error
	if filters.MinConfidence, err = confidenceQuery(q.Get("min_confidence")); err != nil {
		return moderation.Filters{}, err
	}
	if filters.MaxConfidence, err = confidenceQuery(q.Get("max_confidence")); err != nil {
		return moderation.Filters{}, err
	}
	return filters, nil
}

func confidenceQuery(raw string) (*float64, error) {
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || v > 1 {
		return nil, dErrors.New(dErrors.CodeBadRequest, "confidence bounds must be numbers in [0, 1]")
	}
	return &v, nil
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
