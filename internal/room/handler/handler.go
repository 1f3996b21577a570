package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"arbiter/internal/moderation"
	"arbiter/internal/room"
	"arbiter/internal/room/service"
	"arbiter/pkg/platform/httputil"
)

// Service defines the room and webhook operations the HTTP layer needs.
type Service interface {
	HandleWebhook(ctx context.Context, event service.WebhookEvent) (service.WebhookResult, error)
	Simulate(ctx context.Context, content service.SimulatedContent) (*moderation.Decision, error)
	Get(ctx context.Context, roomID string) (room.Room, error)
	List(ctx context.Context, status room.Status, limit, offset int) ([]room.Room, error)
	Participants(ctx context.Context, roomID string) ([]room.Participant, error)
	Stats(ctx context.Context) (room.Stats, error)
	End(ctx context.Context, roomID string) (room.Room, error)
}

// Handler wires room and webhook endpoints to the room service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/rooms", h.handleList)
	r.Get("/rooms/stats", h.handleStats)
	r.Get("/rooms/{roomID}", h.handleGet)
	r.Get("/rooms/{roomID}/participants", h.handleParticipants)

	r.Post("/webhooks/livekit", h.handleWebhook)
	r.Post("/webhooks/simulate", h.handleSimulate)
}

func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Delete("/rooms/{roomID}", h.handleEnd)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rooms, err := h.service.List(r.Context(), room.Status(q.Get("status")), intParam(q.Get("limit")), intParam(q.Get("offset")))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rooms)
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
	rm, err := h.service.Get(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, rm)
}

func (h *Handler) handleParticipants(w http.ResponseWriter, r *http.Request) {
	participants, err := h.service.Participants(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, participants)
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	rm, err := h.service.End(r.Context(), chi.URLParam(r, "roomID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"room_id": rm.ID,
	})
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	event, ok := httputil.Decode[service.WebhookEvent](w, r)
	if !ok {
		return
	}

	result, err := h.service.HandleWebhook(r.Context(), event)
	if err != nil {
		h.logger.WarnContext(r.Context(), "webhook rejected", "event", event.Event, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) handleSimulate(w http.ResponseWriter, r *http.Request) {
	content, ok := httputil.Decode[service.SimulatedContent](w, r)
	if !ok {
		return
	}

	decision, err := h.service.Simulate(r.Context(), content)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":         "processed",
		"decision_id":    decision.ID,
		"classification": decision.Classification,
		"confidence":     decision.ConfidenceScore,
		"action":         decision.Action,
	})
}

func intParam(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
