// Package notification is the user-facing message plane: persisted
// notifications plus real-time fan-out over websockets.
package notification

import (
	"log"
	"sync"

	"github.com/google/uuid"
)

// session is one connected websocket client. All writes go through the
// send channel; the write pump owns the connection.
type session struct {
	id     string
	userID string // empty for anonymous listeners
	send   chan []byte
}

// Hub tracks connected sessions and fans event payloads out to them.
type Hub struct {
	mu       sync.RWMutex
	sessions map[string]*session
	byUser   map[string]map[string]*session
	logger   *log.Logger
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]*session),
		byUser:   make(map[string]map[string]*session),
		logger:   log.New(log.Writer(), "[Hub] ", log.LstdFlags),
	}
}

func (h *Hub) register(userID string) *session {
	s := &session{
		id:     uuid.NewString(),
		userID: userID,
		send:   make(chan []byte, sendBuffer),
	}
	h.mu.Lock()
	h.sessions[s.id] = s
	if userID != "" {
		if h.byUser[userID] == nil {
			h.byUser[userID] = make(map[string]*session)
		}
		h.byUser[userID][s.id] = s
	}
	h.mu.Unlock()
	h.logger.Printf("session %s connected (user=%q, total=%d)", s.id, userID, h.SessionCount())
	return s
}

func (h *Hub) unregister(s *session) {
	h.mu.Lock()
	if _, ok := h.sessions[s.id]; ok {
		delete(h.sessions, s.id)
		if s.userID != "" {
			delete(h.byUser[s.userID], s.id)
			if len(h.byUser[s.userID]) == 0 {
				delete(h.byUser, s.userID)
			}
		}
		close(s.send)
	}
	h.mu.Unlock()
	h.logger.Printf("session %s disconnected", s.id)
}

// Broadcast sends a payload to every session. Sessions with a full buffer
// are dropped; a client that cannot keep up reconnects.
func (h *Hub) Broadcast(payload []byte) {
	h.mu.RLock()
	var stale []*session
	for _, s := range h.sessions {
		select {
		case s.send <- payload:
		default:
			stale = append(stale, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range stale {
		h.logger.Printf("dropping slow session %s", s.id)
		h.unregister(s)
	}
}

// SendToUser sends a payload to every session of one user.
func (h *Hub) SendToUser(userID string, payload []byte) {
	h.mu.RLock()
	var stale []*session
	for _, s := range h.byUser[userID] {
		select {
		case s.send <- payload:
		default:
			stale = append(stale, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range stale {
		h.unregister(s)
	}
}

// SessionCount returns the number of connected sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
