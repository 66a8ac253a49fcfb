package handlers

import (
	"context"
	"net/http"

	"dm-relay/internal/config"
	"dm-relay/internal/presence"
	"dm-relay/internal/session"
	ws "dm-relay/internal/websocket"
	"dm-relay/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

type WebSocketHandlers struct {
	baseCtx  context.Context
	hub      *ws.Hub
	manager  *session.Manager
	cfg      config.WebSocketConfig
	upgrader websocket.Upgrader
}

// NewWebSocketHandlers serves connections whose event handling runs under
// baseCtx rather than the request context, which ends once the handler
// returns.
func NewWebSocketHandlers(baseCtx context.Context, hub *ws.Hub, manager *session.Manager, cfg config.WebSocketConfig) *WebSocketHandlers {
	return &WebSocketHandlers{
		baseCtx: baseCtx,
		hub:     hub,
		manager: manager,
		cfg:     cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	l := logger.Ctx(r.Context())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		l.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	id := presence.ConnectionID(uuid.NewString())
	client := ws.NewClient(id, h.hub, conn, h.cfg)

	// join the hub first so the client sees presence broadcasts
	h.hub.Register(client)
	sess := h.manager.Connect(id)

	go client.WritePump()
	go client.ReadPump(logger.WithLogger(h.baseCtx, l), sess)
}
