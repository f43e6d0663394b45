package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	gws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"visionestate/listing-portal/listing-portal-backend/internal/notifications"
	"visionestate/listing-portal/listing-portal-backend/internal/verification"
	"visionestate/listing-portal/listing-portal-backend/pkg/workflows"
)

func dial(t *testing.T, m *Manager, propertyID uuid.UUID) *gws.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := m.HandleConnection(w, r, propertyID, "s-1")
		assert.NoError(t, err)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := gws.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForConnections(t *testing.T, m *Manager, propertyID uuid.UUID, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		return m.GetPropertyConnections(propertyID) == n
	}, time.Second, 10*time.Millisecond)
}

func TestPublishReachesWatchingConnection(t *testing.T) {
	m := NewManager(nil, nil)
	defer m.Close()

	watched := uuid.New()
	conn := dial(t, m, watched)
	waitForConnections(t, m, watched, 1)

	tl, err := workflows.ProjectTimeline(workflows.StatusAwaitingPayment, "")
	require.NoError(t, err)
	require.NoError(t, m.Publish(context.Background(), verification.Event{
		PropertyID: watched,
		Action:     workflows.ActionConfirm,
		From:       workflows.StatusAIComplete,
		To:         workflows.StatusAwaitingPayment,
		Timestamp:  time.Now().UTC(),
		Timeline:   tl,
	}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg notifications.WebSocketMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, notifications.WSMessageTypeTimeline, msg.Type)
	assert.Equal(t, watched.String(), msg.PropertyID)

	var data struct {
		To       workflows.Status   `json:"to"`
		Timeline workflows.Timeline `json:"timeline"`
	}
	require.NoError(t, json.Unmarshal(msg.Data, &data))
	assert.Equal(t, workflows.StatusAwaitingPayment, data.To)
	assert.Equal(t, tl.Current, data.Timeline.Current)
}

func TestPublishSkipsOtherProperties(t *testing.T) {
	m := NewManager(nil, nil)
	defer m.Close()

	watched := uuid.New()
	conn := dial(t, m, watched)
	waitForConnections(t, m, watched, 1)

	require.NoError(t, m.SendToProperty(uuid.New(), notifications.WebSocketMessage{Type: notifications.WSMessageTypeStatus}))
	require.NoError(t, m.SendToProperty(watched, notifications.WebSocketMessage{Type: notifications.WSMessageTypePing}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg notifications.WebSocketMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, notifications.WSMessageTypePing, msg.Type)
}

func TestDisconnectUnregisters(t *testing.T) {
	m := NewManager(nil, nil)
	defer m.Close()

	watched := uuid.New()
	conn := dial(t, m, watched)
	waitForConnections(t, m, watched, 1)
	assert.Equal(t, 1, m.GetConnectionCount())

	conn.Close()
	waitForConnections(t, m, watched, 0)
}
