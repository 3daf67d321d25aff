// internal/handlers/websocket/websocket.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"frontdesk-gateway/internal/domain/auth"
	wstypes "frontdesk-gateway/internal/domain/websocket"
	"frontdesk-gateway/internal/middleware"
	"frontdesk-gateway/internal/pkg/response"
	"frontdesk-gateway/internal/service/monitor"
	ws "frontdesk-gateway/internal/websocket"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// The session cookie authenticates the socket, so only same-origin pages may
// open one. A nil CheckOrigin makes gorilla enforce that.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// SessionLookup resolves the live session behind a verified cookie.
type SessionLookup interface {
	CurrentSession(ctx context.Context, sessionID string) (*auth.Session, error)
}

type WebSocketHandler struct {
	hub      *ws.Hub
	sessions SessionLookup
	monitor  *monitor.Monitor
	logger   *zap.Logger
}

func NewWebSocketHandler(hub *ws.Hub, sessions SessionLookup, mon *monitor.Monitor, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		sessions: sessions,
		monitor:  mon,
		logger:   logger,
	}
}

// HandleConnection upgrades an authenticated page and starts watching its
// session. Must run after AuthMiddleware.Auth.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	sid, ok := middleware.GetSessionID(c)
	if !ok {
		response.Unauthorized(c, "not authenticated")
		return
	}

	sess, err := h.sessions.CurrentSession(c.Request.Context(), sid)
	if err != nil {
		h.logger.Debug("websocket rejected: no live session",
			zap.String("session_id", sid),
			zap.String("ip", c.ClientIP()),
			zap.Error(err),
		)
		response.Unauthorized(c, "session expired or invalid")
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("ip", c.ClientIP()), zap.Error(err))
		return
	}

	client := ws.NewClient(h.hub, conn, &ws.ClientAuth{
		UserID:    sess.UserID,
		SessionID: sess.ID,
		Role:      string(sess.Role),
	}, h.logger)

	if !h.hub.Attach(client) {
		conn.Close()
		return
	}

	userID := sess.UserID
	watch := h.monitor.Watch(client.Context(), sess.ID, func(n auth.Notice) {
		h.hub.NotifySession(userID, sid, n)
	})
	client.SetToucher(watch)

	h.logger.Info("websocket client connected",
		zap.String("user_id", sess.UserID),
		zap.String("session_id", sess.ID),
		zap.String("role", string(sess.Role)),
	)

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, wstypes.ConnectedData{
		UserID:    sess.UserID,
		SessionID: sess.ID,
		Role:      string(sess.Role),
		Expires:   sess.ExpiresAt,
	}))

	go client.WritePump()
	go client.ReadPump()
}

// GetStats returns WebSocket connection statistics (admin only)
func (h *WebSocketHandler) GetStats(c *gin.Context) {
	stats := map[string]interface{}{
		"total_connections": h.hub.TotalClients(),
		"timestamp":         time.Now(),
	}

	response.Success(c, http.StatusOK, "WebSocket stats", stats)
}
