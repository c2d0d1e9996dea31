package game

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/pegboard/mastermind/internal/dependencies/clock"
	"github.com/pegboard/mastermind/internal/dependencies/random"
	"github.com/pegboard/mastermind/internal/model"
	"github.com/pegboard/mastermind/internal/protocol"
	"github.com/pegboard/mastermind/internal/registry"
	"github.com/pegboard/mastermind/internal/reliable"
	"github.com/pegboard/mastermind/internal/services/scoring"
	"github.com/pegboard/mastermind/internal/storage"
)

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Config holds the rules of the game variant
type Config struct {
	CodeLength int
	NumColors  int
	MaxTurns   int
}

// DefaultConfig returns the classic board: four holes, six colors, ten rows
func DefaultConfig() Config {
	return Config{
		CodeLength: 4,
		NumColors:  6,
		MaxTurns:   10,
	}
}

// Requeuer re-enters a participant into matchmaking after an abandoned game
type Requeuer interface {
	Add(p *registry.Participant)
}

// Runner drives one two-party game to completion over the reliable command
// channel. It addresses participants by logical identity only; reconnects are
// invisible at this layer.
type Runner struct {
	sender  *reliable.Sender
	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	requeue Requeuer
	cfg     Config
	logger  *slog.Logger
}

// NewRunner creates a game runner
func NewRunner(
	sender *reliable.Sender,
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	requeue Requeuer,
	cfg Config,
	logger *slog.Logger,
) *Runner {
	if cfg.CodeLength == 0 {
		cfg = DefaultConfig()
	}
	return &Runner{
		sender:  sender,
		storage: store,
		clock:   clk,
		random:  rnd,
		requeue: requeue,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "game")),
	}
}

// Play runs a single game between the two participants. The first becomes
// the guesser, the second the scorer. It returns the persisted summary; a
// delivery failure mid-game yields an abandoned summary and the error that
// caused it.
func (r *Runner) Play(ctx context.Context, guesser, scorer *registry.Participant) (*model.GameSummary, error) {
	gameID := model.GameID(r.random.String(12, idAlphabet))
	logger := r.logger.With(
		slog.String("game_id", string(gameID)),
		slog.String("guesser_id", string(guesser.ID())),
		slog.String("scorer_id", string(scorer.ID())),
	)
	logger.Info("game starting")

	// AssigningRoles: both roles delivered reliably and concurrently.
	// Failure here is fatal to the game.
	if err := r.assignRoles(ctx, guesser, scorer); err != nil {
		return r.abandon(ctx, logger, gameID, guesser, scorer, nil, 0, err)
	}

	// AwaitingSetup: the scorer's hidden code becomes the ground truth
	setup, err := r.awaitSetup(ctx, logger, scorer)
	if err != nil {
		return r.abandon(ctx, logger, gameID, guesser, scorer, nil, 0, err)
	}

	// TurnLoop
	outcome := model.OutcomeLost
	turns := 0
	var prevScore *model.Score
	for turns < r.cfg.MaxTurns {
		guess, err := r.awaitGuess(ctx, logger, guesser, prevScore)
		if err != nil {
			return r.abandon(ctx, logger, gameID, guesser, scorer, setup, turns, err)
		}

		score, err := r.scoreGuess(ctx, logger, scorer, setup, guess)
		if err != nil {
			return r.abandon(ctx, logger, gameID, guesser, scorer, setup, turns, err)
		}

		turns++
		r.broadcastTurn(logger, guesser, scorer, turns, guess, score)
		prevScore = &score

		if scoring.IsWin(score, r.cfg.CodeLength) {
			outcome = model.OutcomeWon
			break
		}
	}

	// Completed
	logger.Info("game complete",
		slog.String("outcome", string(outcome)),
		slog.Int("turns", turns))
	r.sendGameOver(ctx, logger, guesser, scorer, protocol.GameOverPayload{
		Outcome: outcome,
		Setup:   setup,
		Turns:   turns,
	})

	summary := &model.GameSummary{
		ID:          gameID,
		Guesser:     guesser.ID(),
		Scorer:      scorer.ID(),
		Outcome:     outcome,
		Turns:       turns,
		Setup:       setup,
		CompletedAt: r.clock.Now(),
	}
	if err := r.storage.SaveGameSummary(ctx, summary); err != nil {
		logger.Error("failed to persist game summary", slog.String("error", err.Error()))
	}
	return summary, nil
}

func (r *Runner) assignRoles(ctx context.Context, guesser, scorer *registry.Participant) error {
	var wg sync.WaitGroup
	errs := make([]error, 2)

	wg.Add(2)
	go func() {
		defer wg.Done()
		errs[0] = r.sender.SendCommand(ctx, guesser, protocol.KindRole, protocol.RolePayload{Role: protocol.RoleGuesser})
	}()
	go func() {
		defer wg.Done()
		errs[1] = r.sender.SendCommand(ctx, scorer, protocol.KindRole, protocol.RolePayload{Role: protocol.RoleScorer})
	}()
	wg.Wait()

	return errors.Join(errs[0], errs[1])
}

// awaitSetup requests the hidden code from the scorer, re-requesting until a
// well-formed code arrives.
func (r *Runner) awaitSetup(ctx context.Context, logger *slog.Logger, scorer *registry.Participant) (model.Code, error) {
	for {
		env, err := r.sender.RequestReply(ctx, scorer, protocol.KindSetup, nil)
		if err != nil {
			return nil, err
		}

		var payload protocol.SetupPayload
		if err := env.Decode(&payload); err != nil {
			logger.Warn("malformed setup reply, re-requesting", slog.String("error", err.Error()))
			continue
		}
		if !payload.Code.Valid(r.cfg.CodeLength, r.cfg.NumColors) {
			logger.Warn("invalid setup code, re-requesting")
			continue
		}
		return payload.Code, nil
	}
}

// awaitGuess requests the next guess, carrying the previous turn's score,
// re-requesting on malformed input.
func (r *Runner) awaitGuess(ctx context.Context, logger *slog.Logger, guesser *registry.Participant, prevScore *model.Score) (model.Code, error) {
	for {
		env, err := r.sender.RequestReply(ctx, guesser, protocol.KindGuess, protocol.GuessRequestPayload{PreviousScore: prevScore})
		if err != nil {
			return nil, err
		}

		var payload protocol.GuessPayload
		if err := env.Decode(&payload); err != nil {
			logger.Warn("malformed guess reply, re-requesting", slog.String("error", err.Error()))
			continue
		}
		if !payload.Guess.Valid(r.cfg.CodeLength, r.cfg.NumColors) {
			logger.Warn("invalid guess code, re-requesting")
			continue
		}
		return payload.Guess, nil
	}
}

// scoreGuess runs the inner scoring loop: the scorer grades the guess and is
// told the verification verdict; an inconsistent claim does not advance the
// turn, the same guess is re-scored until the claim matches the hidden setup.
func (r *Runner) scoreGuess(ctx context.Context, logger *slog.Logger, scorer *registry.Participant, setup, guess model.Code) (model.Score, error) {
	for {
		env, err := r.sender.RequestReply(ctx, scorer, protocol.KindScore, protocol.ScoreRequestPayload{Guess: guess})
		if err != nil {
			return model.Score{}, err
		}

		var payload protocol.ScorePayload
		claimed := model.Score{}
		wellFormed := env.Decode(&payload) == nil && scoring.ValidPegs(payload.Pegs, r.cfg.CodeLength)
		if wellFormed {
			claimed = scoring.TallyPegs(payload.Pegs)
		}
		ok := wellFormed && scoring.Verify(setup, guess, claimed)

		if err := r.sender.SendCommand(ctx, scorer, protocol.KindScoreOK, protocol.ScoreOKPayload{OK: ok}); err != nil {
			return model.Score{}, err
		}
		if ok {
			return claimed, nil
		}
		logger.Info("inconsistent score claim, requesting re-score",
			slog.Int("claimed_black", claimed.Black),
			slog.Int("claimed_white", claimed.White))
	}
}

// broadcastTurn fans the completed turn out to both participants. This is
// fire-and-forget: the next guess request carries the score again, so a lost
// turn broadcast self-heals.
func (r *Runner) broadcastTurn(logger *slog.Logger, guesser, scorer *registry.Participant, number int, guess model.Code, score model.Score) {
	env, err := protocol.NewEnvelope(protocol.KindTurn, protocol.TurnPayload{
		Number: number,
		Guess:  guess,
		Score:  score,
	})
	if err != nil {
		logger.Error("failed to encode turn broadcast", slog.String("error", err.Error()))
		return
	}
	for _, p := range []*registry.Participant{guesser, scorer} {
		if err := p.Send(env); err != nil {
			logger.Debug("turn broadcast not delivered",
				slog.String("participant_id", string(p.ID())),
				slog.String("error", err.Error()))
		}
	}
}

// sendGameOver delivers the terminal message reliably to each participant
func (r *Runner) sendGameOver(ctx context.Context, logger *slog.Logger, guesser, scorer *registry.Participant, payload protocol.GameOverPayload) {
	var wg sync.WaitGroup
	for _, p := range []*registry.Participant{guesser, scorer} {
		wg.Add(1)
		go func(p *registry.Participant) {
			defer wg.Done()
			if err := r.sender.SendCommand(ctx, p, protocol.KindGameOver, payload); err != nil {
				logger.Warn("terminal message not delivered",
					slog.String("participant_id", string(p.ID())),
					slog.String("error", err.Error()))
			}
		}(p)
	}
	wg.Wait()
}

// abandon terminates a game after a delivery failure. Both sides get the
// terminal message if still reachable, and live participants go back to the
// matchmaking queue rather than being stranded.
func (r *Runner) abandon(ctx context.Context, logger *slog.Logger, gameID model.GameID, guesser, scorer *registry.Participant, setup model.Code, turns int, cause error) (*model.GameSummary, error) {
	logger.Warn("abandoning game", slog.String("error", cause.Error()))

	// The peer that timed out is usually unreachable; don't spend another
	// retry budget on it.
	payload := protocol.GameOverPayload{
		Outcome: model.OutcomeAbandoned,
		Setup:   setup,
		Turns:   turns,
	}
	var wg sync.WaitGroup
	for _, p := range []*registry.Participant{guesser, scorer} {
		if !p.Active() {
			continue
		}
		wg.Add(1)
		go func(p *registry.Participant) {
			defer wg.Done()
			if err := r.sender.SendCommand(ctx, p, protocol.KindGameOver, payload); err != nil {
				logger.Warn("terminal message not delivered",
					slog.String("participant_id", string(p.ID())),
					slog.String("error", err.Error()))
			}
		}(p)
	}
	wg.Wait()

	summary := &model.GameSummary{
		ID:          gameID,
		Guesser:     guesser.ID(),
		Scorer:      scorer.ID(),
		Outcome:     model.OutcomeAbandoned,
		Turns:       turns,
		Setup:       setup,
		CompletedAt: r.clock.Now(),
	}
	if err := r.storage.SaveGameSummary(ctx, summary); err != nil {
		logger.Error("failed to persist game summary", slog.String("error", err.Error()))
	}

	if r.requeue != nil {
		for _, p := range []*registry.Participant{guesser, scorer} {
			if p.Active() {
				logger.Info("returning survivor to matchmaking",
					slog.String("participant_id", string(p.ID())))
				r.requeue.Add(p)
			}
		}
	}
	return summary, cause
}
