package handler

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	openapi_types "github.com/oapi-codegen/runtime/types"
	"github.com/vcscsvcscs/raredx/apps/backend/pkg/api"
	"go.uber.org/zap"
)

// StreamOptions tunes the WebSocket state stream
type StreamOptions struct {
	WriteTimeout time.Duration
	PongWait     time.Duration
	PingInterval time.Duration
}

// DefaultStreamOptions pings well inside the pong deadline
func DefaultStreamOptions() StreamOptions {
	return StreamOptions{
		WriteTimeout: 10 * time.Second,
		PongWait:     60 * time.Second,
		PingInterval: 54 * time.Second,
	}
}

// maxClientMessage caps frames read from the client; it only sends control
// frames.
const maxClientMessage = 512

// GetIntakeStream upgrades to a WebSocket and pushes the session view after
// every state change. The stream ends when the client goes away or the
// session is deleted.
func (h *IntakeHandler) GetIntakeStream(c *gin.Context, sessionId openapi_types.UUID) {
	session, ok := h.lookup(c, sessionId)
	if !ok {
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// the upgrader has already replied
		h.logger.Warn("websocket upgrade failed", zap.Error(err), zap.String("session_id", session.ID))
		return
	}
	defer conn.Close()

	release := h.service.Watch(session)
	defer release()

	updates, unsubscribe := session.Controller().Subscribe()
	defer unsubscribe()

	logger := h.logger.With(zap.String("session_id", session.ID))
	logger.Info("state stream opened")
	defer logger.Info("state stream closed")

	done := make(chan struct{})
	go h.readPump(conn, done)

	initial := sessionView(session)
	if err := h.writeView(conn, initial); err != nil {
		logger.Warn("failed to send initial state", zap.Error(err))
		return
	}
	lastVersion := initial.State.Version

	ticker := time.NewTicker(h.stream.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				conn.SetWriteDeadline(time.Now().Add(h.stream.WriteTimeout))
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
				return
			}
			if snap.Version <= lastVersion {
				continue
			}
			if err := h.writeView(conn, viewOf(session, snap)); err != nil {
				logger.Warn("failed to send state", zap.Error(err))
				return
			}
			lastVersion = snap.Version
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(h.stream.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (h *IntakeHandler) writeView(conn *websocket.Conn, view api.SessionResponse) error {
	conn.SetWriteDeadline(time.Now().Add(h.stream.WriteTimeout))
	return conn.WriteJSON(view)
}

// readPump consumes control frames so pongs and close are processed
func (h *IntakeHandler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxClientMessage)
	conn.SetReadDeadline(time.Now().Add(h.stream.PongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(h.stream.PongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("state stream read failed", zap.Error(err))
			}
			return
		}
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		return slices.Contains(allowed, "*") || slices.Contains(allowed, origin)
	}
}

