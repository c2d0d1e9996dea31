package testutil

import (
	"sync"

	"github.com/pegboard/mastermind/internal/channel"
	"github.com/pegboard/mastermind/internal/protocol"
)

// FakeChannel is an in-memory Channel for tests. Sent envelopes are exposed
// on Out so a test can script the far end of the connection.
type FakeChannel struct {
	Out chan protocol.Envelope

	mu     sync.Mutex
	closed bool
}

var _ channel.Channel = (*FakeChannel)(nil)

// NewFakeChannel creates a fake channel with a generous outbound buffer
func NewFakeChannel() *FakeChannel {
	return &FakeChannel{Out: make(chan protocol.Envelope, 128)}
}

func (c *FakeChannel) Send(env protocol.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return channel.ErrClosed
	}
	c.Out <- env
	return nil
}

func (c *FakeChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Sent drains and returns every envelope sent so far
func (c *FakeChannel) Sent() []protocol.Envelope {
	var out []protocol.Envelope
	for {
		select {
		case env := <-c.Out:
			out = append(out, env)
		default:
			return out
		}
	}
}
