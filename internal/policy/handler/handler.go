package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"arbiter/internal/policy"
	"arbiter/pkg/platform/httputil"
	"arbiter/pkg/platform/middleware/request"
)

// Service defines the registry operations the HTTP layer needs.
type Service interface {
	Get(ctx context.Context, policyID string) (policy.Policy, error)
	List(ctx context.Context) ([]policy.Policy, error)
	Update(ctx context.Context, policyID string, update policy.Update) (policy.Policy, error)
	Toggle(ctx context.Context, policyID string) (policy.Policy, error)
}

// Handler wires policy endpoints to the registry.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts read endpoints; RegisterAdmin mounts the mutating ones so
// the router can wrap them in the admin auth middleware.
func (h *Handler) Register(r chi.Router) {
	r.Get("/policies", h.handleList)
	r.Get("/policies/{policyID}", h.handleGet)
}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Put("/policies/{policyID}", h.handleUpdate)
	r.Post("/policies/{policyID}/toggle", h.handleToggle)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	policies, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, policies)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "policyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	policyID := chi.URLParam(r, "policyID")

	update, ok := httputil.Decode[policy.Update](w, r)
	if !ok {
		return
	}

	p, err := h.service.Update(ctx, policyID, update)
	if err != nil {
		h.logger.WarnContext(ctx, "policy update rejected",
			"request_id", request.GetRequestID(ctx),
			"policy_id", policyID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Toggle(r.Context(), chi.URLParam(r, "policyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"policy_id": p.ID,
		"enabled":   p.Enabled,
	})
}
