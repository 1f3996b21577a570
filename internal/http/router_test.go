package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audithandler "arbiter/internal/audit/handler"
	"arbiter/internal/audit/ledger"
	auditservice "arbiter/internal/audit/service"
	"arbiter/internal/broadcast"
	"arbiter/internal/broadcast/ws"
	jwttoken "arbiter/internal/jwt_token"
	"arbiter/internal/moderation"
	"arbiter/internal/moderation/engine"
	"arbiter/internal/moderation/executor"
	moderationhandler "arbiter/internal/moderation/handler"
	"arbiter/internal/moderation/oracle"
	"arbiter/internal/moderation/pipeline"
	moderationservice "arbiter/internal/moderation/service"
	decisionstore "arbiter/internal/moderation/store"
	"arbiter/internal/platform/logger"
	policyhandler "arbiter/internal/policy/handler"
	policyservice "arbiter/internal/policy/service"
	policystore "arbiter/internal/policy/store"
	roomhandler "arbiter/internal/room/handler"
	roomservice "arbiter/internal/room/service"
	roomstore "arbiter/internal/room/store"
)

func newTestServer(t *testing.T) (http.Handler, *jwttoken.JWTService) {
	t.Helper()

	log := logger.NewNop()
	policies := policystore.NewInMemory()
	require.NoError(t, policyservice.Seed(context.Background(), policies))

	trail := ledger.NewAppendOnly()
	auditor := auditservice.New(trail, broadcast.Nop{}, log)
	registry := policyservice.New(policies, auditor, log)

	decisions := decisionstore.NewInMemory()
	exec := executor.New(decisions, auditor, broadcast.Nop{}, log)
	pipe := pipeline.New(oracle.Disabled{}, oracle.Disabled{}, engine.NewDecider(policies), exec, nil, log)
	moderator := moderationservice.New(pipe, decisions, auditor, broadcast.Nop{}, nil, log, 4)

	rooms := roomservice.New(roomstore.NewRooms(), roomstore.NewParticipants(), moderator, broadcast.Nop{}, log)

	jwtService := jwttoken.NewJWTService("test-signing-key", "arbiter")

	router := New(Handlers{
		Moderation: moderationhandler.New(moderator, log),
		Policy:     policyhandler.New(registry, log),
		Audit:      audithandler.New(auditor, log),
		Room:       roomhandler.New(rooms, log),
	}, Options{
		TokenValidator: jwtService,
		EventStream:    ws.NewHub(8, log),
		Logger:         log,
	})
	return router, jwtService
}

func TestRouter_Health(t *testing.T) {
	router, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestRouter_Index(t *testing.T) {
	router, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "arbiter")
}

func TestRouter_Metrics(t *testing.T) {
	router, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_PublicReads(t *testing.T) {
	router, _ := newTestServer(t)

	for _, path := range []string{
		"/api/policies",
		"/api/moderation/decisions",
		"/api/moderation/decisions/stats",
		"/api/audit",
		"/api/audit/stats",
		"/api/rooms",
		"/api/rooms/stats",
	} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRouter_AdminRequiresToken(t *testing.T) {
	router, jwtService := newTestServer(t)

	body := `{"warn_threshold": 0.45}`

	// No token.
	req := httptest.NewRequest(http.MethodPut, "/api/policies/policy-spam", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Garbage token.
	req = httptest.NewRequest(http.MethodPut, "/api/policies/policy-spam", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Valid admin token.
	token, err := jwtService.GenerateAdminToken("reviewer-1", time.Hour)
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodPut, "/api/policies/policy-spam", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_WebhookToDecisionFlow(t *testing.T) {
	router, _ := newTestServer(t)

	// With the oracle disabled the pipeline fails safe: the simulated content
	// still produces a recorded no-action decision.
	simBody := `{
		"room_id": "RM_flow",
		"participant_id": "PA_flow",
		"participant_identity": "alice",
		"content": "hello"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/simulate", strings.NewReader(simBody))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		DecisionID string            `json:"decision_id"`
		Action     moderation.Action `json:"action"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.DecisionID)
	assert.Equal(t, moderation.ActionNone, resp.Action)

	getRec := httptest.NewRecorder()
	router.ServeHTTP(getRec, httptest.NewRequest(http.MethodGet, "/api/moderation/decisions/"+resp.DecisionID, nil))
	assert.Equal(t, http.StatusOK, getRec.Code)

	auditRec := httptest.NewRecorder()
	router.ServeHTTP(auditRec, httptest.NewRequest(http.MethodGet, "/api/audit?decision_id="+resp.DecisionID, nil))
	assert.Equal(t, http.StatusOK, auditRec.Code)
	assert.Contains(t, auditRec.Body.String(), "decision_created")
}
