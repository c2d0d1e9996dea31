package server

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/pegboard/mastermind/internal/channel"
	"github.com/pegboard/mastermind/internal/chat"
	"github.com/pegboard/mastermind/internal/protocol"
	"github.com/pegboard/mastermind/internal/registry"
)

// WSHandler upgrades client connections and pumps their envelopes into the
// registry. One connection carries at most one participant; identity is
// established by the first hello.
type WSHandler struct {
	registry *registry.Registry
	chat     *chat.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWSHandler creates the websocket endpoint handler
func NewWSHandler(reg *registry.Registry, chatHub *chat.Hub, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		registry: reg,
		chat:     chatHub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger.With(slog.String("component", "ws")),
	}
}

func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}

	ch := channel.NewWS(conn, h.logger)
	h.chat.Register(ch)

	var p *registry.Participant
	readErr := ch.ReadLoop(func(env protocol.Envelope) {
		if p == nil {
			if env.Kind != protocol.KindHello {
				h.logger.Warn("dropping message before hello", slog.String("kind", string(env.Kind)))
				return
			}
			var hello protocol.HelloPayload
			if err := env.Decode(&hello); err != nil {
				h.logger.Warn("malformed hello", slog.String("error", err.Error()))
				return
			}
			resolved, err := h.registry.Resolve(r.Context(), hello.Token, hello.DisplayName, ch)
			if err != nil {
				h.logger.Error("failed to resolve participant", slog.String("error", err.Error()))
				ch.Close()
				return
			}
			p = resolved
			return
		}

		switch env.Kind {
		case protocol.KindHello:
			// Identity is fixed for the life of the connection
		case protocol.KindChat:
			var msg protocol.ChatPayload
			if err := env.Decode(&msg); err != nil {
				h.logger.Warn("malformed chat message", slog.String("error", err.Error()))
				return
			}
			h.chat.Say(p.DisplayName(), msg.Text)
		default:
			h.registry.HandleMessage(p, env)
		}
	})

	h.chat.Unregister(ch)
	if p != nil {
		h.registry.HandleDisconnect(p, ch)
	}
	ch.Close()

	if readErr != nil && !websocket.IsCloseError(readErr, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		h.logger.Debug("connection closed", slog.String("error", readErr.Error()))
	}
}
