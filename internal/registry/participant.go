package registry

import (
	"log/slog"
	"sync"

	"github.com/pegboard/mastermind/internal/channel"
	"github.com/pegboard/mastermind/internal/model"
	"github.com/pegboard/mastermind/internal/protocol"
)

// Participant is the live, logical identity of one player. It owns the
// current channel binding and the table of one-shot waiters keyed by message
// kind. Waiters belong to the participant, not to any channel instance, so
// rebinding on reconnect is a pure data operation and in-flight expectations
// survive the swap.
type Participant struct {
	id          model.ParticipantID
	displayName string

	mu      sync.Mutex
	status  model.ParticipantStatus
	ch      channel.Channel // nil while disconnected
	waiters map[protocol.Kind]chan protocol.Envelope

	logger *slog.Logger
}

func newParticipant(id model.ParticipantID, displayName string, ch channel.Channel, logger *slog.Logger) *Participant {
	return &Participant{
		id:          id,
		displayName: displayName,
		status:      model.ParticipantActive,
		ch:          ch,
		waiters:     make(map[protocol.Kind]chan protocol.Envelope),
		logger:      logger.With(slog.String("participant_id", string(id))),
	}
}

// ID returns the participant's session token
func (p *Participant) ID() model.ParticipantID {
	return p.id
}

// DisplayName returns the client-supplied display name
func (p *Participant) DisplayName() string {
	return p.displayName
}

// Status returns the current lifecycle status
func (p *Participant) Status() model.ParticipantStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Active reports whether the participant currently has a live binding
func (p *Participant) Active() bool {
	return p.Status() == model.ParticipantActive
}

// Send emits an envelope on the currently bound channel. The binding is read
// under the lock on every call, so a retry loop naturally follows the
// participant onto a replacement channel.
func (p *Participant) Send(env protocol.Envelope) error {
	p.mu.Lock()
	ch := p.ch
	p.mu.Unlock()

	if ch == nil {
		return model.ErrNotBound
	}
	return ch.Send(env)
}

// Await arms a one-shot waiter for the given message kind. At most one waiter
// per kind may be armed; a second Await before delivery is a caller error.
func (p *Participant) Await(kind protocol.Kind) (<-chan protocol.Envelope, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.waiters[kind]; exists {
		return nil, model.ErrWaiterArmed
	}
	wait := make(chan protocol.Envelope, 1)
	p.waiters[kind] = wait
	return wait, nil
}

// CancelWait disarms the waiter for a kind, if any
func (p *Participant) CancelWait(kind protocol.Kind) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.waiters, kind)
}

// Deliver routes an inbound envelope to the armed waiter for its kind,
// consuming the waiter. It reports whether anything was waiting.
func (p *Participant) Deliver(env protocol.Envelope) bool {
	p.mu.Lock()
	wait, ok := p.waiters[env.Kind]
	if ok {
		delete(p.waiters, env.Kind)
	}
	p.mu.Unlock()

	if !ok {
		return false
	}
	wait <- env
	return true
}

// bind replaces the channel binding and marks the participant active.
// The waiter table is deliberately untouched.
func (p *Participant) bind(ch channel.Channel) {
	p.mu.Lock()
	old := p.ch
	p.ch = ch
	p.status = model.ParticipantActive
	p.mu.Unlock()

	if old != nil && old != ch {
		_ = old.Close()
	}
}

// markDisconnected drops the binding and flags the participant. The
// participant stays in every structure that references it by identity; those
// structures observe the status flag instead.
func (p *Participant) markDisconnected(ch channel.Channel) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// A stale disconnect arriving after a rebind must not tear down the
	// replacement channel.
	if ch != nil && p.ch != ch {
		return
	}
	p.ch = nil
	p.status = model.ParticipantDisconnected
}
