package reliable

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/pegboard/mastermind/internal/dependencies/clock"
	"github.com/pegboard/mastermind/internal/dependencies/random"
	"github.com/pegboard/mastermind/internal/model"
	"github.com/pegboard/mastermind/internal/protocol"
	"github.com/pegboard/mastermind/internal/registry"
	"github.com/pegboard/mastermind/internal/storage/memory"
	"github.com/pegboard/mastermind/internal/testutil"
)

type SenderSuite struct {
	suite.Suite
	registry *registry.Registry
	sender   *Sender
	ctx      context.Context
}

func TestSenderSuite(t *testing.T) {
	suite.Run(t, new(SenderSuite))
}

func (s *SenderSuite) SetupTest() {
	s.registry = registry.New(memory.New(), clock.New(), random.New(), testutil.NopLogger())
	s.sender = NewSender(Config{RetryInterval: 5 * time.Millisecond, MaxAttempts: 4}, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *SenderSuite) newParticipant(ch *testutil.FakeChannel) *registry.Participant {
	p, err := s.registry.Resolve(s.ctx, "", "Tester", ch)
	s.Require().NoError(err)
	// Drain the hello emitted on registration
	env := <-ch.Out
	s.Require().Equal(protocol.KindHello, env.Kind)
	return p
}

func (s *SenderSuite) TestTimeoutAfterExactBudget() {
	ch := testutil.NewFakeChannel()
	p := s.newParticipant(ch)

	err := s.sender.SendCommand(s.ctx, p, protocol.KindRole, protocol.RolePayload{Role: protocol.RoleGuesser})
	s.ErrorIs(err, ErrDeliveryTimeout)

	emissions := 0
	for _, env := range ch.Sent() {
		if env.Kind == protocol.KindRole {
			emissions++
		}
	}
	s.Equal(4, emissions, "exactly MaxAttempts emissions, not MaxAttempts+1")
}

func (s *SenderSuite) TestAckStopsRetry() {
	ch := testutil.NewFakeChannel()
	p := s.newParticipant(ch)

	// Far end: ack the first role emission
	go func() {
		for env := range ch.Out {
			if env.Kind == protocol.KindRole {
				p.Deliver(protocol.Ack(protocol.KindRole))
				return
			}
		}
	}()

	err := s.sender.SendCommand(s.ctx, p, protocol.KindRole, protocol.RolePayload{Role: protocol.RoleScorer})
	s.NoError(err)
}

func (s *SenderSuite) TestDuplicateCommandReacked() {
	ch := testutil.NewFakeChannel()
	p := s.newParticipant(ch)

	// Far end acks only the third emission, as if the first two were dropped
	go func() {
		seen := 0
		for env := range ch.Out {
			if env.Kind != protocol.KindScoreOK {
				continue
			}
			seen++
			if seen == 3 {
				p.Deliver(protocol.Ack(protocol.KindScoreOK))
				return
			}
		}
	}()

	err := s.sender.SendCommand(s.ctx, p, protocol.KindScoreOK, protocol.ScoreOKPayload{OK: true})
	s.NoError(err)
}

func (s *SenderSuite) TestRetryFollowsRebind() {
	first := testutil.NewFakeChannel()
	p := s.newParticipant(first)

	done := make(chan error, 1)
	go func() {
		done <- s.sender.SendCommand(s.ctx, p, protocol.KindGuess, nil)
	}()

	// Let at least one emission land on the dying channel
	select {
	case env := <-first.Out:
		s.Equal(protocol.KindGuess, env.Kind)
	case <-time.After(time.Second):
		s.FailNow("no emission on first channel")
	}

	s.registry.HandleDisconnect(p, first)

	second := testutil.NewFakeChannel()
	_, err := s.registry.Resolve(s.ctx, string(p.ID()), "Tester", second)
	s.Require().NoError(err)

	// Remaining retries go out on the new channel; ack one of them
	for {
		select {
		case env := <-second.Out:
			if env.Kind == protocol.KindGuess {
				p.Deliver(protocol.Ack(protocol.KindGuess))
				s.NoError(<-done)
				return
			}
		case err := <-done:
			s.FailNow("command finished before reaching new channel", "err: %v", err)
		case <-time.After(time.Second):
			s.FailNow("retry never reached the new channel")
		}
	}
}

func (s *SenderSuite) TestSecondCommandSameKindIsCallerError() {
	ch := testutil.NewFakeChannel()
	p := s.newParticipant(ch)

	done := make(chan error, 1)
	go func() {
		done <- s.sender.SendCommand(s.ctx, p, protocol.KindSetup, nil)
	}()

	// Wait for the first command to arm its ack waiter
	select {
	case <-ch.Out:
	case <-time.After(time.Second):
		s.FailNow("no emission")
	}

	err := s.sender.SendCommand(s.ctx, p, protocol.KindSetup, nil)
	s.ErrorIs(err, model.ErrWaiterArmed)

	p.Deliver(protocol.Ack(protocol.KindSetup))
	s.NoError(<-done)
}

func (s *SenderSuite) TestRequestReply() {
	ch := testutil.NewFakeChannel()
	p := s.newParticipant(ch)

	// Far end: ack the setup command, then send the substantive reply
	go func() {
		for env := range ch.Out {
			if env.Kind == protocol.KindSetup {
				p.Deliver(protocol.Ack(protocol.KindSetup))
				reply, _ := protocol.NewEnvelope(protocol.KindSetup, protocol.SetupPayload{Code: model.Code{0, 1, 2, 3}})
				p.Deliver(reply)
				return
			}
		}
	}()

	env, err := s.sender.RequestReply(s.ctx, p, protocol.KindSetup, nil)
	s.Require().NoError(err)

	var payload protocol.SetupPayload
	s.Require().NoError(env.Decode(&payload))
	s.Equal(model.Code{0, 1, 2, 3}, payload.Code)
}

func (s *SenderSuite) TestRequestReplySurvivesReplyRacingAck() {
	ch := testutil.NewFakeChannel()
	p := s.newParticipant(ch)

	// Far end sends the reply BEFORE the ack; the pre-armed reply waiter
	// must buffer it.
	go func() {
		for env := range ch.Out {
			if env.Kind == protocol.KindGuess {
				reply, _ := protocol.NewEnvelope(protocol.KindGuess, protocol.GuessPayload{Guess: model.Code{5, 5, 5, 5}})
				p.Deliver(reply)
				p.Deliver(protocol.Ack(protocol.KindGuess))
				return
			}
		}
	}()

	env, err := s.sender.RequestReply(s.ctx, p, protocol.KindGuess, protocol.GuessRequestPayload{})
	s.Require().NoError(err)

	var payload protocol.GuessPayload
	s.Require().NoError(env.Decode(&payload))
	s.Equal(model.Code{5, 5, 5, 5}, payload.Guess)
}

func (s *SenderSuite) TestRequestReplyPropagatesTimeout() {
	ch := testutil.NewFakeChannel()
	p := s.newParticipant(ch)

	_, err := s.sender.RequestReply(s.ctx, p, protocol.KindScore, nil)
	s.ErrorIs(err, ErrDeliveryTimeout)

	// Both waiters must be disarmed so a later turn can reuse the kind
	_, err = p.Await(protocol.KindScore)
	s.NoError(err)
	_, err = p.Await(protocol.AckKind(protocol.KindScore))
	s.NoError(err)
}

func (s *SenderSuite) TestContextCancellation() {
	ch := testutil.NewFakeChannel()
	p := s.newParticipant(ch)

	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() {
		done <- s.sender.SendCommand(ctx, p, protocol.KindRole, nil)
	}()

	<-ch.Out // first emission
	cancel()

	s.ErrorIs(<-done, context.Canceled)
}
