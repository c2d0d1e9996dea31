package channel

import (
	"errors"

	"github.com/pegboard/mastermind/internal/protocol"
)

// Channel is a bidirectional named-message transport for one connection
// instance. Sending never blocks on the peer; inbound traffic is pushed to
// whoever runs the transport's read loop.
type Channel interface {
	Send(env protocol.Envelope) error
	Close() error
}

var (
	// ErrClosed is returned when sending on a closed channel
	ErrClosed = errors.New("channel closed")
)
