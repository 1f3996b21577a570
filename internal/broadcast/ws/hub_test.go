package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"arbiter/internal/platform/logger"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", want, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub := NewHub(8, logger.NewNop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	first := dial(t, srv)
	second := dial(t, srv)
	waitForClients(t, hub, 2)

	hub.Broadcast(context.Background(), "moderation:decision", map[string]string{"decision_id": "dec-1"})

	for _, conn := range []*websocket.Conn{first, second} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err)

		var envelope Envelope
		require.NoError(t, json.Unmarshal(raw, &envelope))
		assert.Equal(t, "moderation:decision", envelope.Type)
		assert.False(t, envelope.Timestamp.IsZero())

		data, ok := envelope.Data.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "dec-1", data["decision_id"])
	}
}

func TestHub_DisconnectPrunesClient(t *testing.T) {
	hub := NewHub(8, logger.NewNop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, srv)
	waitForClients(t, hub, 1)

	require.NoError(t, conn.Close())
	waitForClients(t, hub, 0)
}

func TestHub_BroadcastWithNoClients(t *testing.T) {
	hub := NewHub(8, logger.NewNop())

	// Must not panic or block.
	hub.Broadcast(context.Background(), "audit:entry", map[string]string{"audit_id": "audit-1"})
	assert.Zero(t, hub.ClientCount())
}
