package registry

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pegboard/mastermind/internal/channel"
	"github.com/pegboard/mastermind/internal/dependencies/clock"
	"github.com/pegboard/mastermind/internal/dependencies/random"
	"github.com/pegboard/mastermind/internal/model"
	"github.com/pegboard/mastermind/internal/protocol"
	"github.com/pegboard/mastermind/internal/storage"
)

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Registry maps session tokens to logical participants and rebinds a
// participant to a replacement channel on reconnect without losing game
// state.
type Registry struct {
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger

	mu           sync.Mutex
	participants map[model.ParticipantID]*Participant
	onRegister   func(*Participant)
}

// New creates a new Registry
func New(store storage.Storage, clk clock.Clock, rnd random.Random, logger *slog.Logger) *Registry {
	return &Registry{
		storage:      store,
		clock:        clk,
		random:       rnd,
		logger:       logger.With(slog.String("component", "registry")),
		participants: make(map[model.ParticipantID]*Participant),
	}
}

// OnRegister sets the callback invoked once for every newly created
// participant. The matchmaker hooks in here; reconnects do not re-fire it.
func (r *Registry) OnRegister(fn func(*Participant)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRegister = fn
}

// Resolve maps a client hello to a participant. An absent or unknown token
// mints a fresh identity bound to ch; a known token rebinds the existing
// participant's channel, leaving armed waiters intact. Either way the issued
// token is emitted back on the channel.
func (r *Registry) Resolve(ctx context.Context, token, displayName string, ch channel.Channel) (*Participant, error) {
	r.mu.Lock()

	if token != "" {
		if p, ok := r.participants[model.ParticipantID(token)]; ok {
			r.mu.Unlock()
			p.bind(ch)
			r.logger.Info("participant reconnected",
				slog.String("participant_id", string(p.ID())),
				slog.String("display_name", p.DisplayName()))
			r.sendHello(p)
			return p, nil
		}
	}

	id := model.ParticipantID("p_" + r.random.String(22, tokenAlphabet))
	p := newParticipant(id, displayName, ch, r.logger)
	r.participants[id] = p
	onRegister := r.onRegister
	r.mu.Unlock()

	record := &model.Participant{
		ID:          id,
		DisplayName: displayName,
		CreatedAt:   r.clock.Now(),
	}
	if err := r.storage.SaveParticipant(ctx, record); err != nil {
		r.logger.Error("failed to persist participant record",
			slog.String("participant_id", string(id)),
			slog.String("error", err.Error()))
		return nil, err
	}

	r.logger.Info("participant registered",
		slog.String("participant_id", string(id)),
		slog.String("display_name", displayName))

	r.sendHello(p)

	if onRegister != nil {
		onRegister(p)
	}
	return p, nil
}

// Get returns the live participant for a token, if any
func (r *Registry) Get(id model.ParticipantID) (*Participant, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.participants[id]
	return p, ok
}

// HandleMessage routes an inbound envelope to the participant's armed waiter.
// Envelopes nothing is waiting for are logged and dropped.
func (r *Registry) HandleMessage(p *Participant, env protocol.Envelope) {
	if !env.Kind.Valid() {
		r.logger.Warn("dropping message of unknown kind",
			slog.String("participant_id", string(p.ID())),
			slog.String("kind", string(env.Kind)))
		return
	}
	if !p.Deliver(env) {
		r.logger.Debug("dropping message with no armed waiter",
			slog.String("participant_id", string(p.ID())),
			slog.String("kind", string(env.Kind)))
	}
}

// HandleDisconnect marks a participant disconnected when the given channel
// dies. Queue and game structures observe the status flag; nothing is removed
// here.
func (r *Registry) HandleDisconnect(p *Participant, ch channel.Channel) {
	p.markDisconnected(ch)
	r.logger.Info("participant disconnected",
		slog.String("participant_id", string(p.ID())))
}

// Remove forgets a participant and its stored identity record. Called after
// its game ends.
func (r *Registry) Remove(ctx context.Context, id model.ParticipantID) {
	r.mu.Lock()
	delete(r.participants, id)
	r.mu.Unlock()

	if err := r.storage.DeleteParticipant(ctx, id); err != nil {
		r.logger.Warn("failed to delete participant record",
			slog.String("participant_id", string(id)),
			slog.String("error", err.Error()))
	}
}

func (r *Registry) sendHello(p *Participant) {
	env, err := protocol.NewEnvelope(protocol.KindHello, protocol.HelloPayload{Token: string(p.ID())})
	if err != nil {
		r.logger.Error("failed to encode hello", slog.String("error", err.Error()))
		return
	}
	if err := p.Send(env); err != nil {
		r.logger.Warn("failed to send hello",
			slog.String("participant_id", string(p.ID())),
			slog.String("error", err.Error()))
	}
}
