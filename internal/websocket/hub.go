// Package websocket pushes session snapshots to browser clients.
package websocket

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"mentor-chat/internal/conversation"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// writeWait bounds how long a slow subscriber can hold up a broadcast.
const writeWait = 5 * time.Second

// client serializes writes to one connection; gorilla allows a single writer.
type client struct {
	mu        sync.Mutex
	conn      *websocket.Conn
	writeWait time.Duration
}

func (c *client) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.conn.SetWriteDeadline(time.Now().Add(c.writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

type Hub struct {
	mu          sync.RWMutex
	connections map[uuid.UUID][]*client
	store       *conversation.Store
	writeWait   time.Duration
}

func NewHub(store *conversation.Store) *Hub {
	return &Hub{
		connections: make(map[uuid.UUID][]*client),
		store:       store,
		writeWait:   writeWait,
	}
}

// HandleWebSocket subscribes the caller to one session. The current snapshot
// is sent right after the upgrade.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid session ID", http.StatusBadRequest)
		return
	}

	var session *conversation.Controller
	if h.store != nil {
		if session, err = h.store.Get(sessionID); err != nil {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("WebSocket upgrade failed", "session_id", sessionID.String(), "error", err)
		return
	}

	c := h.registerConnection(sessionID, conn)
	if session != nil {
		h.sendTo(c, NewStateMessage(session.Snapshot()))
	}

	// Keep connection alive and handle disconnect
	go func() {
		defer h.unregisterConnection(sessionID, c)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

func (h *Hub) registerConnection(sessionID uuid.UUID, conn *websocket.Conn) *client {
	c := &client{conn: conn, writeWait: h.writeWait}

	h.mu.Lock()
	h.connections[sessionID] = append(h.connections[sessionID], c)
	total := len(h.connections[sessionID])
	h.mu.Unlock()

	slog.Info("WebSocket connected", "session_id", sessionID.String(), "total", total)
	return c
}

func (h *Hub) unregisterConnection(sessionID uuid.UUID, c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c.conn.Close()

	conns := h.connections[sessionID]
	for i, existing := range conns {
		if existing == c {
			h.connections[sessionID] = append(conns[:i], conns[i+1:]...)
			break
		}
	}
	if len(h.connections[sessionID]) == 0 {
		delete(h.connections, sessionID)
	}

	slog.Info("WebSocket disconnected", "session_id", sessionID.String())
}

// Publish broadcasts a state change. It has the signature of a store observer.
func (h *Hub) Publish(snap conversation.Snapshot) {
	h.SendToSession(snap.ID, NewStateMessage(snap))
}

// SendToSession sends msg to every connection watching sessionID.
func (h *Hub) SendToSession(sessionID uuid.UUID, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("WebSocket message encoding failed", "session_id", sessionID.String(), "error", err)
		return
	}
	h.broadcast(sessionID, data)
}

// CloseSession drops every connection watching sessionID.
func (h *Hub) CloseSession(sessionID uuid.UUID) {
	h.mu.RLock()
	conns := append([]*client(nil), h.connections[sessionID]...)
	h.mu.RUnlock()

	for _, c := range conns {
		c.conn.Close()
	}
}

// Connections reports how many clients watch sessionID.
func (h *Hub) Connections(sessionID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[sessionID])
}

func (h *Hub) broadcast(sessionID uuid.UUID, data []byte) {
	h.mu.RLock()
	conns := append([]*client(nil), h.connections[sessionID]...)
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.write(data); err != nil {
			// A timed-out gorilla connection is unusable; the read loop
			// unregisters it once the close lands.
			slog.Warn("WebSocket write failed", "session_id", sessionID.String(), "error", err)
			c.conn.Close()
		}
	}
}

func (h *Hub) sendTo(c *client, msg interface{}) {
	data, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := c.write(data); err != nil {
		slog.Warn("WebSocket write failed", "error", err)
	}
}
