package channel

import (
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/pegboard/mastermind/internal/protocol"
)

// WSChannel adapts a websocket connection to the Channel interface.
// Outbound envelopes go through a buffered send channel drained by a write
// pump, so Send never blocks on a slow socket.
type WSChannel struct {
	conn   *websocket.Conn
	send   chan protocol.Envelope
	done   chan struct{}
	closed sync.Once
	logger *slog.Logger
}

var _ Channel = (*WSChannel)(nil)

// NewWS wraps a websocket connection and starts its write pump
func NewWS(conn *websocket.Conn, logger *slog.Logger) *WSChannel {
	c := &WSChannel{
		conn:   conn,
		send:   make(chan protocol.Envelope, 32),
		done:   make(chan struct{}),
		logger: logger,
	}
	go c.writePump()
	return c
}

// Send queues an envelope for delivery
func (c *WSChannel) Send(env protocol.Envelope) error {
	select {
	case c.send <- env:
		return nil
	case <-c.done:
		return ErrClosed
	}
}

// ReadLoop decodes inbound envelopes and hands each to sink until the
// connection fails or is closed. It returns the read error; the caller owns
// disconnect handling.
func (c *WSChannel) ReadLoop(sink func(protocol.Envelope)) error {
	for {
		var env protocol.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			return err
		}
		sink(env)
	}
}

// Close shuts down the channel and the underlying connection
func (c *WSChannel) Close() error {
	var err error
	c.closed.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *WSChannel) writePump() {
	for {
		select {
		case env := <-c.send:
			if err := c.conn.WriteJSON(env); err != nil {
				c.logger.Debug("write failed, closing channel",
					slog.String("kind", string(env.Kind)),
					slog.String("error", err.Error()))
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
