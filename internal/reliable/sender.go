package reliable

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pegboard/mastermind/internal/protocol"
	"github.com/pegboard/mastermind/internal/registry"
)

// ErrDeliveryTimeout is returned when a command's retry budget is exhausted
// without an acknowledgement.
var ErrDeliveryTimeout = errors.New("delivery timeout: retry budget exhausted")

// Config holds retry settings for reliable delivery
type Config struct {
	// RetryInterval is the fixed pause between re-emissions
	RetryInterval time.Duration
	// MaxAttempts is the total number of emissions before giving up
	MaxAttempts int
}

// DefaultConfig returns the default retry budget
func DefaultConfig() Config {
	return Config{
		RetryInterval: 100 * time.Millisecond,
		MaxAttempts:   10,
	}
}

// Sender layers at-least-once delivery with bounded retry and explicit
// acknowledgement on top of a participant's channel binding. Retries address
// the logical participant, never a captured channel handle, so a reconnect
// mid-retry redirects the remaining emissions to the new channel.
type Sender struct {
	cfg    Config
	logger *slog.Logger
}

// NewSender creates a Sender with the given retry budget
func NewSender(cfg Config, logger *slog.Logger) *Sender {
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = DefaultConfig().RetryInterval
	}
	if cfg.MaxAttempts == 0 {
		cfg.MaxAttempts = DefaultConfig().MaxAttempts
	}
	return &Sender{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "reliable")),
	}
}

// SendCommand emits (kind, payload) to the participant and re-emits on a
// fixed interval until ack_<kind> arrives or the attempt budget is spent.
// Emission failures while the participant is between channels are tolerated;
// the budget keeps ticking.
func (s *Sender) SendCommand(ctx context.Context, p *registry.Participant, kind protocol.Kind, payload any) error {
	env, err := protocol.NewEnvelope(kind, payload)
	if err != nil {
		return err
	}

	ackKind := protocol.AckKind(kind)
	ack, err := p.Await(ackKind)
	if err != nil {
		return err
	}

	emit := func(attempt int) {
		if err := p.Send(env); err != nil {
			s.logger.Debug("emission failed",
				slog.String("participant_id", string(p.ID())),
				slog.String("kind", string(kind)),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()))
		}
	}

	emit(1)

	ticker := time.NewTicker(s.cfg.RetryInterval)
	defer ticker.Stop()

	attempts := 1
	for {
		select {
		case <-ack:
			return nil
		case <-ticker.C:
			if attempts >= s.cfg.MaxAttempts {
				p.CancelWait(ackKind)
				s.logger.Warn("command delivery timed out",
					slog.String("participant_id", string(p.ID())),
					slog.String("kind", string(kind)),
					slog.Int("attempts", attempts))
				return ErrDeliveryTimeout
			}
			attempts++
			emit(attempts)
		case <-ctx.Done():
			p.CancelWait(ackKind)
			return ctx.Err()
		}
	}
}

// RequestReply performs SendCommand and, once the command is acknowledged,
// awaits exactly one substantive message of the same kind from the
// participant. The reply waiter is armed before the command goes out so a
// reply racing the acknowledgement is never lost.
func (s *Sender) RequestReply(ctx context.Context, p *registry.Participant, kind protocol.Kind, payload any) (protocol.Envelope, error) {
	reply, err := p.Await(kind)
	if err != nil {
		return protocol.Envelope{}, err
	}

	if err := s.SendCommand(ctx, p, kind, payload); err != nil {
		p.CancelWait(kind)
		return protocol.Envelope{}, err
	}

	select {
	case env := <-reply:
		return env, nil
	case <-ctx.Done():
		p.CancelWait(kind)
		return protocol.Envelope{}, ctx.Err()
	}
}
