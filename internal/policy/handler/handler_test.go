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

	"arbiter/internal/audit/ledger"
	auditservice "arbiter/internal/audit/service"
	"arbiter/internal/broadcast"
	"arbiter/internal/policy"
	policyservice "arbiter/internal/policy/service"
	"arbiter/internal/policy/store"
	"arbiter/internal/platform/logger"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	log := logger.NewNop()
	policies := store.NewInMemory()
	require.NoError(t, policyservice.Seed(context.Background(), policies))

	auditor := auditservice.New(ledger.NewAppendOnly(), broadcast.Nop{}, log)
	registry := policyservice.New(policies, auditor, log)

	r := chi.NewRouter()
	r.Route("/api", func(api chi.Router) {
		h := New(registry, log)
		h.Register(api)
		h.RegisterAdmin(api)
	})
	return r
}

func TestHandler_List(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/policies", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var policies []policy.Policy
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &policies))
	assert.Len(t, policies, len(policy.Categories()))
}

func TestHandler_Get(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/policies/policy-spam", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var p policy.Policy
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, policy.CategorySpam, p.Category)
}

func TestHandler_GetNotFound(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/policies/policy-nope", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandler_Update(t *testing.T) {
	router := newTestRouter(t)

	body := strings.NewReader(`{"warn_threshold": 0.3, "description": "tightened"}`)
	req := httptest.NewRequest(http.MethodPut, "/api/policies/policy-spam", body)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var p policy.Policy
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &p))
	assert.Equal(t, 0.3, p.WarnThreshold)
	assert.Equal(t, "tightened", p.Description)
}

func TestHandler_UpdateInvalidThresholds(t *testing.T) {
	router := newTestRouter(t)

	body := strings.NewReader(`{"warn_threshold": 1.5}`)
	req := httptest.NewRequest(http.MethodPut, "/api/policies/policy-spam", body)
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_UpdateMalformedBody(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPut, "/api/policies/policy-spam", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_Toggle(t *testing.T) {
	router := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/policies/policy-spam/toggle", nil))

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status   string `json:"status"`
		PolicyID string `json:"policy_id"`
		Enabled  bool   `json:"enabled"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "policy-spam", resp.PolicyID)
	assert.False(t, resp.Enabled)
}
