package chat

import (
	"log/slog"
	"sync"

	"github.com/pegboard/mastermind/internal/channel"
	"github.com/pegboard/mastermind/internal/protocol"
)

// Hub fans chat messages out to every connected channel. Chat is best-effort
// and sits outside the reliable command protocol; a dropped line is not
// retried.
type Hub struct {
	members map[channel.Channel]bool
	mu      sync.RWMutex
	logger  *slog.Logger

	register   chan channel.Channel
	unregister chan channel.Channel
	broadcast  chan protocol.Envelope
	done       chan struct{}
}

// NewHub creates a chat hub. Call Run to start its event loop.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		members:    make(map[channel.Channel]bool),
		logger:     logger.With(slog.String("component", "chat")),
		register:   make(chan channel.Channel),
		unregister: make(chan channel.Channel),
		broadcast:  make(chan protocol.Envelope, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	h.logger.Info("chat hub started")
	for {
		select {
		case ch := <-h.register:
			h.mu.Lock()
			h.members[ch] = true
			memberCount := len(h.members)
			h.mu.Unlock()
			h.logger.Debug("chat member joined", slog.Int("total_members", memberCount))

		case ch := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.members[ch]; ok {
				delete(h.members, ch)
				memberCount := len(h.members)
				h.mu.Unlock()
				h.logger.Debug("chat member left", slog.Int("total_members", memberCount))
			} else {
				h.mu.Unlock()
			}

		case env := <-h.broadcast:
			h.mu.RLock()
			droppedCount := 0
			for ch := range h.members {
				if err := ch.Send(env); err != nil {
					droppedCount++
				}
			}
			h.mu.RUnlock()
			if droppedCount > 0 {
				h.logger.Warn("chat broadcast partial failure", slog.Int("dropped", droppedCount))
			}

		case <-h.done:
			h.mu.Lock()
			memberCount := len(h.members)
			h.members = make(map[channel.Channel]bool)
			h.mu.Unlock()
			h.logger.Info("chat hub stopped", slog.Int("disconnected_members", memberCount))
			return
		}
	}
}

// Register adds a connection to the hub
func (h *Hub) Register(ch channel.Channel) {
	select {
	case h.register <- ch:
	case <-h.done:
	}
}

// Unregister removes a connection from the hub
func (h *Hub) Unregister(ch channel.Channel) {
	select {
	case h.unregister <- ch:
	case <-h.done:
	}
}

// Say broadcasts one chat line to every member, the sender included
func (h *Hub) Say(from, text string) {
	env, err := protocol.NewEnvelope(protocol.KindChat, protocol.ChatPayload{
		From: from,
		Text: text,
	})
	if err != nil {
		h.logger.Error("failed to encode chat message", slog.String("error", err.Error()))
		return
	}
	select {
	case h.broadcast <- env:
	default:
		h.logger.Warn("chat broadcast dropped - hub buffer full")
	}
}

// Close shuts down the hub
func (h *Hub) Close() {
	close(h.done)
}

// MemberCount returns the number of connected members
func (h *Hub) MemberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.members)
}
