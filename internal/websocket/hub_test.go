package websocket

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/nearu/nearu-backend/internal/feed"
	"github.com/nearu/nearu-backend/internal/logging"
	"github.com/nearu/nearu-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	logging.Init(logging.Config{Level: "info", Format: "console", Output: io.Discard})
}

type nearbyUpdate struct {
	Type string              `json:"type"`
	Data []models.NearbyUser `json:"data"`
}

func startHub(t *testing.T, nearby NearbyFunc) (*Hub, chan feed.Event, *httptest.Server) {
	t.Helper()
	hub := NewHub(nearby)
	events := make(chan feed.Event, 8)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = hub.Run(ctx, events)
		close(done)
	}()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(w, r, r.URL.Query().Get("user"))
	}))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return hub, events, srv
}

func dial(t *testing.T, srv *httptest.Server, user string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + user
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readUpdate(t *testing.T, conn *websocket.Conn) nearbyUpdate {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg nearbyUpdate
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHub_SendsNearbyOnConnectAndChange(t *testing.T) {
	var calls atomic.Int32
	nearby := func(_ context.Context, userID string) ([]models.NearbyUser, error) {
		n := calls.Add(1)
		return []models.NearbyUser{{UserID: "other-of-" + userID, DistanceMeters: float64(n)}}, nil
	}
	hub, events, srv := startHub(t, nearby)

	conn := dial(t, srv, "alice")
	first := readUpdate(t, conn)
	assert.Equal(t, MessageTypeNearby, first.Type)
	require.Len(t, first.Data, 1)
	assert.Equal(t, "other-of-alice", first.Data[0].UserID)
	assert.Equal(t, 1, hub.ClientCount())

	events <- feed.Event{Type: feed.EventLocation, UserID: "bob"}
	second := readUpdate(t, conn)
	require.Len(t, second.Data, 1)
	assert.Greater(t, second.Data[0].DistanceMeters, first.Data[0].DistanceMeters)
}

func TestHub_PingPong(t *testing.T) {
	_, _, srv := startHub(t, func(context.Context, string) ([]models.NearbyUser, error) {
		return []models.NearbyUser{}, nil
	})

	conn := dial(t, srv, "alice")
	readUpdate(t, conn)

	require.NoError(t, conn.WriteJSON(Message{Type: MessageTypePing}))
	msg := readUpdate(t, conn)
	assert.Equal(t, MessageTypePong, msg.Type)
}

func TestHub_UnregistersClosedClients(t *testing.T) {
	hub, _, srv := startHub(t, func(context.Context, string) ([]models.NearbyUser, error) {
		return nil, errors.New("storage down")
	})

	conn := dial(t, srv, "alice")
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}
