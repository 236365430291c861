// Package events streams session updates to connected clients over
// WebSocket. Each user only ever sees their own sessions.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"

	"docpilot/internal/domain"
)

const writeTimeout = 2 * time.Second

// Event is one frame on the session feed.
type Event struct {
	Type    string               `json:"type"`
	Session *domain.AgentSession `json:"session,omitempty"`
}

// Hub tracks active WebSocket connections per user and fans session
// updates out to them. Slow or closed connections are dropped, never
// allowed to block a publisher.
type Hub struct {
	mu     sync.RWMutex
	active map[string]map[*websocket.Conn]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{active: make(map[string]map[*websocket.Conn]struct{})}
}

// Register adds a connection for a user.
func (h *Hub) Register(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.active[userID]; !exists {
		h.active[userID] = make(map[*websocket.Conn]struct{})
	}
	h.active[userID][conn] = struct{}{}
	slog.Info("event feed registered", "user_id", userID)
}

// Unregister removes a connection for a user.
func (h *Hub) Unregister(userID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.active[userID]; ok {
		if _, exists := conns[conn]; exists {
			delete(conns, conn)
			if len(conns) == 0 {
				delete(h.active, userID)
			}
			slog.Info("event feed unregistered", "user_id", userID)
		}
	}
}

// Active returns the number of connections registered for a user.
func (h *Hub) Active(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.active[userID])
}

// SessionUpdated broadcasts a session_updated frame to the owning
// user's connections. Implements session.EventPublisher.
func (h *Hub) SessionUpdated(session *domain.AgentSession) {
	payload, err := json.Marshal(Event{Type: "session_updated", Session: session})
	if err != nil {
		slog.Error("failed to encode session event", "error", err, "session_id", session.ID)
		return
	}

	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.active[session.UserID]))
	for conn := range h.active[session.UserID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	// Each write runs on its own goroutine so one stalled connection
	// never delays the publisher or the user's other connections.
	for _, conn := range conns {
		go h.writeOrDrop(session.UserID, conn, payload)
	}
}

func (h *Hub) writeOrDrop(userID string, conn *websocket.Conn, payload []byte) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := conn.Write(ctx, websocket.MessageText, payload); err != nil {
		slog.Debug("dropping slow event feed connection", "user_id", userID, "error", err)
		_ = conn.Close(websocket.StatusPolicyViolation, "write timeout")
		h.Unregister(userID, conn)
	}
}
