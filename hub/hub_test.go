package hub

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveHub registers every upgraded connection under the role and uid query
// parameters and drains it.
func serveHub(t *testing.T, h *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		uid, _ := strconv.ParseUint(r.URL.Query().Get("uid"), 10, 64)
		h.Register(conn, r.URL.Query().Get("role"), uint(uid))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
		h.Unregister(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, role string, uid uint) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?role=" + role + "&uid=" + strconv.Itoa(int(uid))
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestBroadcastReachesClients(t *testing.T) {
	h := New()
	srv := serveHub(t, h)

	a := dial(t, srv, "admin", 1)
	defer a.Close()
	b := dial(t, srv, "worker", 2)
	defer b.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 2 }, time.Second, 5*time.Millisecond)

	require.NoError(t, h.Broadcast(EventTaskEscalation, map[string]int{"task_id": 42}))

	for _, conn := range []*websocket.Conn{a, b} {
		var msg struct {
			Event string         `json:"event"`
			Data  map[string]int `json:"data"`
		}
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&msg))
		assert.Equal(t, EventTaskEscalation, msg.Event)
		assert.Equal(t, 42, msg.Data["task_id"])
	}
}

func TestSendToUserSkipsOtherClients(t *testing.T) {
	h := New()
	srv := serveHub(t, h)

	owner := dial(t, srv, "admin", 1)
	defer owner.Close()
	otherAdmin := dial(t, srv, "admin", 5)
	defer otherAdmin.Close()
	// worker whose user id collides with the owner's
	worker := dial(t, srv, "worker", 1)
	defer worker.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 3 }, time.Second, 5*time.Millisecond)

	n, err := h.SendToUser(context.Background(), "admin", 1, EventTaskEscalation, map[string]int{"task_id": 42})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var msg Message
	require.NoError(t, owner.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, owner.ReadJSON(&msg))
	assert.Equal(t, EventTaskEscalation, msg.Event)

	for _, conn := range []*websocket.Conn{otherAdmin, worker} {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
		_, _, err := conn.ReadMessage()
		assert.Error(t, err, "nothing should arrive")
	}
}

func TestStalledPeerIsDropped(t *testing.T) {
	h := New()
	srv := serveHub(t, h)

	// never reads
	stalled := dial(t, srv, "admin", 1)
	defer stalled.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	big := strings.Repeat("x", 1<<20)
	for i := 0; i < 64 && h.ClientCount() > 0; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		start := time.Now()
		_, err := h.SendToUser(ctx, "admin", 1, EventTaskEscalation, big)
		cancel()
		require.NoError(t, err)
		require.Less(t, time.Since(start), 2*time.Second, "a send must not outlive its deadline")
	}
	assert.Zero(t, h.ClientCount(), "a peer that stops reading is dropped")
}

func TestClientDisconnectUnregisters(t *testing.T) {
	h := New()
	srv := serveHub(t, h)

	conn := dial(t, srv, "worker", 2)
	require.Eventually(t, func() bool { return h.ClientCount() == 1 }, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, 5*time.Millisecond)

	assert.NoError(t, h.Broadcast(EventDashboardUpdate, nil))
}

func TestBroadcastUnmarshalableData(t *testing.T) {
	h := New()
	assert.Error(t, h.Broadcast(EventTaskUpdate, make(chan int)))
}

func TestNilHubTaskUpdate(t *testing.T) {
	var h *Hub
	assert.NotPanics(t, func() { h.BroadcastTaskUpdate(struct{}{}) })
}
