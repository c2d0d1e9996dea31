package channel

import (
	"sync"

	"github.com/pegboard/mastermind/internal/protocol"
)

// Outbox is a Channel decorator that survives transport replacement. While
// detached it queues outgoing envelopes; Attach flushes the queue in order on
// the new transport. The client uses it to carry pending traffic across a
// reconnect, mirroring the server registry's channel rebinding.
type Outbox struct {
	mu     sync.Mutex
	ch     Channel
	queued []protocol.Envelope
	closed bool
}

var _ Channel = (*Outbox)(nil)

// NewOutbox creates a detached outbox
func NewOutbox() *Outbox {
	return &Outbox{}
}

// Attach binds a live transport, replacing any previous one, and flushes
// queued envelopes in arrival order. A flush failure leaves the unsent
// remainder queued for the next attach.
func (o *Outbox) Attach(ch Channel) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	o.ch = ch
	for len(o.queued) > 0 {
		if err := o.ch.Send(o.queued[0]); err != nil {
			o.ch = nil
			return err
		}
		o.queued = o.queued[1:]
	}
	return nil
}

// Detach drops the current transport; subsequent sends are queued
func (o *Outbox) Detach() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ch = nil
}

// Send delivers on the attached transport or queues while detached
func (o *Outbox) Send(env protocol.Envelope) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	if o.ch == nil {
		o.queued = append(o.queued, env)
		return nil
	}
	if err := o.ch.Send(env); err != nil {
		// Transport died under us; queue for the next attach.
		o.ch = nil
		o.queued = append(o.queued, env)
	}
	return nil
}

// Close closes the outbox and any attached transport, dropping the queue
func (o *Outbox) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return nil
	}
	o.closed = true
	o.queued = nil
	if o.ch != nil {
		return o.ch.Close()
	}
	return nil
}
