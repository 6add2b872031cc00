package notification

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/assetflow/backend/internal/domain"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	writeWait  = 10 * time.Second
	maxMsgSize = 4096
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Browser clients connect cross-origin from the SPA host.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// TokenVerifier resolves a bearer token to claims. Satisfied by the auth
// service; kept as an interface so the hub has no auth dependency.
type TokenVerifier interface {
	Verify(token string) (*domain.UserClaims, error)
}

// ServeWS upgrades the request and registers a session. The token rides a
// query parameter because browser websocket clients cannot set headers; a
// missing or invalid token downgrades to an anonymous broadcast-only
// session rather than rejecting the connection.
func (h *Hub) ServeWS(verifier TokenVerifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			h.logger.Printf("upgrade failed: %v", err)
			return
		}

		userID := ""
		if token := r.URL.Query().Get("token"); token != "" && verifier != nil {
			if claims, err := verifier.Verify(token); err == nil {
				userID = claims.UserID
			} else {
				h.logger.Printf("rejected token on ws connect: %v", err)
			}
		}

		s := h.register(userID)
		// Two goroutines with strict ownership: writePump is the only
		// writer, readPump the only reader. This removes write races
		// between pings and fan-out.
		go h.writePump(s, conn)
		go h.readPump(s, conn)
	}
}

func (h *Hub) writePump(s *session, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case payload, ok := <-s.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
			// Drain whatever queued up while we were writing.
			n := len(s.send)
			for i := 0; i < n; i++ {
				if err := conn.WriteMessage(websocket.TextMessage, <-s.send); err != nil {
					return
				}
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) readPump(s *session, conn *websocket.Conn) {
	defer func() {
		h.unregister(s)
		conn.Close()
	}()

	conn.SetReadLimit(maxMsgSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// Clients are listen-only; inbound frames just keep the connection
	// alive until error or close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Printf("session %s read error: %v", s.id, err)
			}
			return
		}
	}
}
