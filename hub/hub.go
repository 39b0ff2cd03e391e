package hub

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/yeremiapane/cleanshift/utils"
)

// Event types
const (
	EventTaskUpdate      = "task_update"
	EventTaskEscalation  = "task_escalation"
	EventWorkerUpdate    = "worker_update"
	EventPropertyUpdate  = "property_update"
	EventDashboardUpdate = "dashboard_update"
)

// writeWait bounds a single write to a peer.
const writeWait = 10 * time.Second

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type client struct {
	role   string
	userID uint
	// gorilla connections allow a single concurrent writer
	mu sync.Mutex
}

// Hub holds the live dashboard connections (admin, worker) and fans events out to them.
type Hub struct {
	clients *xsync.Map[*websocket.Conn, *client]
}

func New() *Hub {
	return &Hub{
		clients: xsync.NewMap[*websocket.Conn, *client](),
	}
}

// Register adds a connection for the authenticated user with its role.
func (h *Hub) Register(conn *websocket.Conn, role string, userID uint) {
	h.clients.Store(conn, &client{role: role, userID: userID})
}

// Unregister removes the connection and closes it.
func (h *Hub) Unregister(conn *websocket.Conn) {
	if _, ok := h.clients.LoadAndDelete(conn); ok {
		conn.Close()
	}
}

func (h *Hub) ClientCount() int {
	return h.clients.Size()
}

// Broadcast sends the event to every connection. A connection that cannot be
// written to is dropped; that is not an error for the caller.
func (h *Hub) Broadcast(event string, data interface{}) error {
	_, err := h.send(context.Background(), event, data, func(*client) bool { return true })
	return err
}

// SendToUser sends the event only to the connections of userID with role and
// reports how many received it. Writes give up at ctx's deadline.
func (h *Hub) SendToUser(ctx context.Context, role string, userID uint, event string, data interface{}) (int, error) {
	return h.send(ctx, event, data, func(c *client) bool {
		return c.role == role && c.userID == userID
	})
}

func (h *Hub) send(ctx context.Context, event string, data interface{}, match func(*client) bool) (int, error) {
	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		return 0, fmt.Errorf("marshal %s event: %w", event, err)
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		sent int
		dead []*websocket.Conn
	)
	h.clients.Range(func(conn *websocket.Conn, c *client) bool {
		if !match(c) {
			return true
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.mu.Lock()
			err := conn.SetWriteDeadline(deadline)
			if err == nil {
				err = conn.WriteMessage(websocket.TextMessage, payload)
			}
			c.mu.Unlock()

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				utils.ErrorLogger.Printf("Error sending %s to %s client: %v", event, c.role, err)
				dead = append(dead, conn)
				return
			}
			sent++
		}()
		return true
	})
	wg.Wait()

	for _, conn := range dead {
		h.Unregister(conn)
	}
	return sent, nil
}

// BroadcastTaskUpdate is a convenience for task lifecycle changes; errors are only logged.
func (h *Hub) BroadcastTaskUpdate(task interface{}) {
	if h == nil {
		return
	}
	if err := h.Broadcast(EventTaskUpdate, task); err != nil {
		utils.ErrorLogger.Printf("Error broadcasting task update: %v", err)
	}
}
