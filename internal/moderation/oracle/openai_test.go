package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbiter/internal/policy"
	dErrors "arbiter/pkg/domain-errors"
)

func chatServer(t *testing.T, content string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, float64(0), req["temperature"])

		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": content}},
			},
		})
	}))
}

func newClient(baseURL string) *OpenAI {
	return NewOpenAI(OpenAIConfig{APIKey: "test-key", Model: "gpt-4o-mini", BaseURL: baseURL})
}

func TestOpenAI_Classify(t *testing.T) {
	srv := chatServer(t, `{"category": "HARASSMENT", "reasoning": "targeted insults"}`)
	defer srv.Close()

	result, err := newClient(srv.URL).Classify(context.Background(), "you are worthless")
	require.NoError(t, err)
	assert.Equal(t, policy.CategoryHarassment, result.Category)
	assert.Equal(t, "targeted insults", result.Reasoning)
}

func TestOpenAI_ClassifyUnknownCategory(t *testing.T) {
	srv := chatServer(t, `{"category": "profanity", "reasoning": "made-up label"}`)
	defer srv.Close()

	result, err := newClient(srv.URL).Classify(context.Background(), "some content")
	require.NoError(t, err)
	assert.Equal(t, policy.CategoryNone, result.Category)
}

func TestOpenAI_ClassifyMalformedJSON(t *testing.T) {
	srv := chatServer(t, `sure! here's the JSON you asked for`)
	defer srv.Close()

	_, err := newClient(srv.URL).Classify(context.Background(), "some content")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
}

func TestOpenAI_ScoreConfidence(t *testing.T) {
	srv := chatServer(t, `{"confidence": 0.82, "factors": "explicit threat"}`)
	defer srv.Close()

	score, err := newClient(srv.URL).ScoreConfidence(context.Background(), "content", policy.CategoryViolence, "threatens harm")
	require.NoError(t, err)
	assert.Equal(t, 0.82, score.Confidence)
	assert.Equal(t, "explicit threat", score.Factors)
}

func TestOpenAI_ScoreConfidenceClamped(t *testing.T) {
	srv := chatServer(t, `{"confidence": 1.7, "factors": "overenthusiastic"}`)
	defer srv.Close()

	score, err := newClient(srv.URL).ScoreConfidence(context.Background(), "content", policy.CategorySpam, "bulk links")
	require.NoError(t, err)
	assert.Equal(t, 1.0, score.Confidence)
}

func TestOpenAI_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newClient(srv.URL).Classify(context.Background(), "content")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
}
