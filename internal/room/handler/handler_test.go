package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbiter/internal/broadcast"
	"arbiter/internal/moderation"
	"arbiter/internal/platform/logger"
	"arbiter/internal/policy"
	"arbiter/internal/room"
	"arbiter/internal/room/service"
	"arbiter/internal/room/store"
)

type stubModerator struct{}

func (stubModerator) Moderate(_ context.Context, input moderation.Input) (*moderation.Decision, error) {
	return &moderation.Decision{
		ID:             "dec-stub",
		RoomID:         input.RoomID,
		Classification: policy.CategoryNone,
		Action:         moderation.ActionNone,
		Status:         moderation.StatusPending,
		ContentType:    input.ContentType,
	}, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	log := logger.NewNop()
	svc := service.New(store.NewRooms(), store.NewParticipants(), stubModerator{}, broadcast.Nop{}, log)

	r := chi.NewRouter()
	r.Route("/api", func(api chi.Router) {
		h := New(svc, log)
		h.Register(api)
		h.RegisterAdmin(api)
	})
	return r
}

func postJSON(t *testing.T, router http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandler_WebhookRoomStarted(t *testing.T) {
	router := newTestRouter(t)

	rec := postJSON(t, router, "/api/webhooks/livekit", `{"event": "room_started", "room": {"sid": "RM_1", "name": "standup"}}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result service.WebhookResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "processed", result.Status)
	assert.Equal(t, "RM_1", result.RoomID)

	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, httptest.NewRequest(http.MethodGet, "/api/rooms/RM_1", nil))
	require.Equal(t, http.StatusOK, getRec.Code)

	var rm room.Room
	require.NoError(t, json.Unmarshal(getRec.Body.Bytes(), &rm))
	assert.Equal(t, "standup", rm.Name)
}

func TestHandler_WebhookMissingRoomData(t *testing.T) {
	router := newTestRouter(t)

	rec := postJSON(t, router, "/api/webhooks/livekit", `{"event": "room_started"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_WebhookUnknownEvent(t *testing.T) {
	router := newTestRouter(t)

	rec := postJSON(t, router, "/api/webhooks/livekit", `{"event": "egress_started"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var result service.WebhookResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "ignored", result.Status)
}

func TestHandler_Simulate(t *testing.T) {
	router := newTestRouter(t)

	rec := postJSON(t, router, "/api/webhooks/simulate", `{
		"room_id": "RM_sim",
		"participant_id": "PA_sim",
		"participant_identity": "tester",
		"content": "hello there"
	}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status     string `json:"status"`
		DecisionID string `json:"decision_id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "processed", resp.Status)
	assert.Equal(t, "dec-stub", resp.DecisionID)
}

func TestHandler_ListAndStats(t *testing.T) {
	router := newTestRouter(t)

	require.Equal(t, http.StatusOK, postJSON(t, router, "/api/webhooks/livekit", `{"event": "room_started", "room": {"sid": "RM_1", "name": "one"}}`).Code)
	require.Equal(t, http.StatusOK, postJSON(t, router, "/api/webhooks/livekit", `{"event": "room_started", "room": {"sid": "RM_2", "name": "two"}}`).Code)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rooms?status=active", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var rooms []room.Room
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rooms))
	assert.Len(t, rooms, 2)

	statsRec := httptest.NewRecorder()
	router.ServeHTTP(statsRec, httptest.NewRequest(http.MethodGet, "/api/rooms/stats", nil))
	require.Equal(t, http.StatusOK, statsRec.Code)

	var stats room.Stats
	require.NoError(t, json.Unmarshal(statsRec.Body.Bytes(), &stats))
	assert.Equal(t, 2, stats.TotalRooms)
	assert.Equal(t, 2, stats.ActiveRooms)
}

func TestHandler_EndRoom(t *testing.T) {
	router := newTestRouter(t)

	require.Equal(t, http.StatusOK, postJSON(t, router, "/api/webhooks/livekit", `{"event": "room_started", "room": {"sid": "RM_1", "name": "one"}}`).Code)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/rooms/RM_1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	again := httptest.NewRecorder()
	router.ServeHTTP(again, httptest.NewRequest(http.MethodDelete, "/api/rooms/RM_1", nil))
	assert.Equal(t, http.StatusConflict, again.Code)
}

func TestHandler_ParticipantsRoomNotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/rooms/RM_missing/participants", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
