package matchmaker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pegboard/mastermind/internal/registry"
)

// Queue pairs live participants into games in strict arrival order. It holds
// a FIFO list of participants awaiting an opponent and a FIFO list of waiting
// requests; at any instant at most one of the two is non-empty.
type Queue struct {
	mu           sync.Mutex
	participants []*registry.Participant
	resolvers    []chan *registry.Participant
	logger       *slog.Logger
}

// New creates an empty matchmaking queue
func New(logger *slog.Logger) *Queue {
	return &Queue{
		logger: logger.With(slog.String("component", "matchmaker")),
	}
}

// Add feeds a participant into the queue. A waiting request, if any, is
// satisfied immediately; otherwise the participant queues. This is the
// registry's registration callback and also how survivors of an abandoned
// game re-enter matchmaking.
func (q *Queue) Add(p *registry.Participant) {
	q.mu.Lock()
	if len(q.resolvers) > 0 {
		resolver := q.resolvers[0]
		q.resolvers = q.resolvers[1:]
		q.mu.Unlock()
		resolver <- p
		return
	}
	q.participants = append(q.participants, p)
	q.mu.Unlock()

	q.logger.Debug("participant queued",
		slog.String("participant_id", string(p.ID())))
}

// next resolves with a queued participant immediately, or queues the request
// to be satisfied by the next arrival.
func (q *Queue) next(ctx context.Context) (*registry.Participant, error) {
	q.mu.Lock()
	if len(q.participants) > 0 {
		p := q.participants[0]
		q.participants = q.participants[1:]
		q.mu.Unlock()
		return p, nil
	}
	resolver := make(chan *registry.Participant, 1)
	q.resolvers = append(q.resolvers, resolver)
	q.mu.Unlock()

	select {
	case p := <-resolver:
		return p, nil
	case <-ctx.Done():
		q.abandonResolver(resolver)
		return nil, ctx.Err()
	}
}

func (q *Queue) abandonResolver(resolver chan *registry.Participant) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, r := range q.resolvers {
		if r == resolver {
			q.resolvers = append(q.resolvers[:i], q.resolvers[i+1:]...)
			return
		}
	}
	// Already satisfied; requeue the participant so it is not lost
	select {
	case p := <-resolver:
		q.participants = append(q.participants, p)
	default:
	}
}

// Run is the steady-state matchmaking loop for one namespace: await an
// arrival, pool it, drop participants that died while queued, and start a
// game for the two longest-waiting live ones. It returns only when ctx is
// cancelled.
func (q *Queue) Run(ctx context.Context, start func(a, b *registry.Participant)) {
	var pool []*registry.Participant
	for {
		p, err := q.next(ctx)
		if err != nil {
			return
		}
		pool = append(pool, p)

		// Liveness check: a dead participant must not occupy a game slot
		live := pool[:0]
		for _, c := range pool {
			if c.Active() {
				live = append(live, c)
			} else {
				q.logger.Info("dropping dead participant from pool",
					slog.String("participant_id", string(c.ID())))
			}
		}
		pool = live

		for len(pool) >= 2 {
			a, b := pool[0], pool[1]
			pool = pool[2:]
			q.logger.Info("starting game",
				slog.String("guesser_id", string(a.ID())),
				slog.String("scorer_id", string(b.ID())))
			go start(a, b)
		}
	}
}

// Len returns the number of queued participants
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.participants)
}
