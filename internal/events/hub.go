// Package events streams studio state changes to browser tabs over WebSocket.
package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/ashureev/agent-studio/internal/identity"
	"github.com/ashureev/agent-studio/internal/studio"
)

const writeTimeout = 5 * time.Second

// Source publishes studio events. *studio.Studio satisfies it.
type Source interface {
	Subscribe(buffer int) (<-chan studio.Event, func())
}

// Hub tracks one connection per operator tab and forwards every studio
// event to it.
type Hub struct {
	source        Source
	allowedOrigin string
	isDev         bool
	logger        *slog.Logger

	mu     sync.RWMutex
	active map[string]map[string]*websocket.Conn
}

// NewHub creates a hub fed by source.
func NewHub(source Source, allowedOrigin string, isDev bool, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		source:        source,
		allowedOrigin: allowedOrigin,
		isDev:         isDev,
		logger:        logger,
		active:        make(map[string]map[string]*websocket.Conn),
	}
}

// GetActive returns the connection for an operator tab.
func (h *Hub) GetActive(operatorID, sessionID string) *websocket.Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if sessions, ok := h.active[operatorID]; ok {
		return sessions[sessionID]
	}
	return nil
}

// Count returns the number of open connections.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, sessions := range h.active {
		n += len(sessions)
	}
	return n
}

// Register adds a connection, closing any previous one for the same tab.
func (h *Hub) Register(operatorID, sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.active[operatorID]; !exists {
		h.active[operatorID] = make(map[string]*websocket.Conn)
	}
	if existing, exists := h.active[operatorID][sessionID]; exists && existing != conn {
		_ = existing.Close(websocket.StatusNormalClosure, "session replaced")
	}
	h.active[operatorID][sessionID] = conn
	h.logger.Info("event stream registered", "operator_id", operatorID, "session_id", sessionID)
}

// Unregister removes conn if it is still the current one for the tab.
func (h *Hub) Unregister(operatorID, sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sessions, ok := h.active[operatorID]; ok {
		if current, exists := sessions[sessionID]; exists && current == conn {
			delete(sessions, sessionID)
			if len(sessions) == 0 {
				delete(h.active, operatorID)
			}
			h.logger.Info("event stream unregistered", "operator_id", operatorID, "session_id", sessionID)
		}
	}
}

// CloseAll terminates every open stream.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for operatorID, sessions := range h.active {
		for sid, conn := range sessions {
			_ = conn.Close(websocket.StatusGoingAway, "server shutting down")
			h.logger.Info("event stream closed", "operator_id", operatorID, "session_id", sid)
		}
	}
	h.active = make(map[string]map[string]*websocket.Conn)
}

type clientMessage struct {
	Type string `json:"type"`
}

// ServeHTTP upgrades the request and streams events until either side closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	operatorID := identity.OperatorIDFromContext(r.Context())
	sessionID := identity.SessionIDFromContext(r.Context())

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		h.logger.Error("failed to accept websocket", "error", err, "operator_id", operatorID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "stream ended"); closeErr != nil {
			h.logger.Debug("failed to close websocket", "error", closeErr, "operator_id", operatorID)
		}
	}()

	h.Register(operatorID, sessionID, ws)
	defer h.Unregister(operatorID, sessionID, ws)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	events, unsubscribe := h.source.Subscribe(128)
	defer unsubscribe()

	pongs := make(chan struct{}, 1)
	go func() {
		defer cancel()
		h.readLoop(ctx, ws, pongs, operatorID)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case <-pongs:
			if err := h.writeJSON(ctx, ws, map[string]string{"type": "pong"}); err != nil {
				h.logger.Debug("failed to send pong", "error", err)
				return
			}
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := h.writeJSON(ctx, ws, ev); err != nil {
				if ctx.Err() == nil {
					h.logger.Debug("event stream write error", "error", err, "operator_id", operatorID)
				}
				return
			}
		}
	}
}

func (h *Hub) readLoop(ctx context.Context, ws *websocket.Conn, pongs chan<- struct{}, operatorID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				h.logger.Debug("event stream closed by client", "operator_id", operatorID)
			} else if ctx.Err() == nil {
				h.logger.Warn("event stream read error", "error", err, "operator_id", operatorID)
			}
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Type == "ping" {
			select {
			case pongs <- struct{}{}:
			default:
			}
		}
	}
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if h.isDev {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" || h.allowedOrigin == "*" || origin == h.allowedOrigin {
		return true
	}
	h.logger.Warn("websocket origin rejected", "origin", origin, "allowed", h.allowedOrigin)
	return false
}

func (h *Hub) writeJSON(ctx context.Context, ws *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return ws.Write(writeCtx, websocket.MessageText, data)
}
