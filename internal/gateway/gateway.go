// Package gateway is the WebSocket endpoint connected clients use to
// observe ticket and message events. Clients authenticate on the
// handshake, then drive their own room membership with join/leave
// frames; the server never evicts a member except on disconnect.
package gateway

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/david0ql/helpdeskd/internal/auth"
	"github.com/david0ql/helpdeskd/internal/broadcast"
	"github.com/david0ql/helpdeskd/internal/presence"
	"github.com/david0ql/helpdeskd/internal/store"
)

// clientFrame is a room membership request from a connected client.
type clientFrame struct {
	Action   string `json:"action"`
	TicketID string `json:"ticketId,omitempty"`
	Status   string `json:"status,omitempty"`
}

// Handler upgrades observer connections and bridges them into the hub.
type Handler struct {
	hub      *broadcast.Hub
	tracker  *presence.Tracker
	verifier *auth.Verifier
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// New creates the WebSocket handler. allowedOrigins is the whitelist
// checked on upgrade; an empty list accepts same-host requests only.
func New(hub *broadcast.Hub, tracker *presence.Tracker, verifier *auth.Verifier, allowedOrigins []string, logger *zap.Logger) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Handler{
		hub:      hub,
		tracker:  tracker,
		verifier: verifier,
		logger:   logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin]
			},
		},
	}
}

// wsSink serializes hub frames onto one WebSocket connection.
type wsSink struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSink) Send(f broadcast.Frame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(f)
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Authentication happens before the upgrade; a bad token never
	// reaches the hub or touches presence.
	userID, err := h.verifier.Verify(r.URL.Query().Get("token"))
	if err != nil {
		h.logger.Warn("rejected observer handshake", zap.Error(err))
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	h.tracker.Connect(userID)
	connID := h.hub.Register(&wsSink{conn: conn})
	h.logger.Info("observer connected", zap.Int64("user", userID), zap.Int64("conn", connID))

	defer func() {
		h.hub.Unregister(connID)
		h.tracker.Disconnect(userID)
		_ = conn.Close()
		h.logger.Info("observer disconnected", zap.Int64("user", userID), zap.Int64("conn", connID))
	}()

	for {
		var frame clientFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		h.tracker.Touch(userID)
		h.handleFrame(connID, frame)
	}
}

func (h *Handler) handleFrame(connID int64, frame clientFrame) {
	switch frame.Action {
	case "joinChatBox":
		if id, err := strconv.ParseInt(frame.TicketID, 10, 64); err == nil {
			h.hub.Join(connID, broadcast.TicketRoom(id))
		}
	case "leaveChatBox":
		if id, err := strconv.ParseInt(frame.TicketID, 10, 64); err == nil {
			h.hub.Leave(connID, broadcast.TicketRoom(id))
		}
	case "joinTickets":
		if store.ValidStatus(frame.Status) {
			h.hub.Join(connID, broadcast.StatusRoom(frame.Status))
		}
	case "leaveTickets":
		if store.ValidStatus(frame.Status) {
			h.hub.Leave(connID, broadcast.StatusRoom(frame.Status))
		}
	case "joinNotification":
		h.hub.Join(connID, broadcast.RoomNotification)
	case "leaveNotification":
		h.hub.Leave(connID, broadcast.RoomNotification)
	default:
		h.logger.Debug("ignoring unknown frame action", zap.String("action", frame.Action))
	}
}
