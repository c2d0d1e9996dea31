package memory

import (
	"context"
	"sync"

	"github.com/pegboard/mastermind/internal/model"
	"github.com/pegboard/mastermind/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	participants map[model.ParticipantID]*model.Participant
	summaries    map[model.GameID]*model.GameSummary
	summaryOrder []model.GameID // most recent first
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		participants: make(map[model.ParticipantID]*model.Participant),
		summaries:    make(map[model.GameID]*model.GameSummary),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Participant operations

func (s *Storage) SaveParticipant(ctx context.Context, p *model.Participant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.participants[p.ID] = p
	return nil
}

func (s *Storage) GetParticipant(ctx context.Context, id model.ParticipantID) (*model.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[id]
	if !ok {
		return nil, model.ErrParticipantNotFound
	}
	return p, nil
}

func (s *Storage) DeleteParticipant(ctx context.Context, id model.ParticipantID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.participants, id)
	return nil
}

// Game summary operations

func (s *Storage) SaveGameSummary(ctx context.Context, summary *model.GameSummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.summaries[summary.ID]; !exists {
		s.summaryOrder = append([]model.GameID{summary.ID}, s.summaryOrder...)
	}
	s.summaries[summary.ID] = summary
	return nil
}

func (s *Storage) GetGameSummary(ctx context.Context, id model.GameID) (*model.GameSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	summary, ok := s.summaries[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	return summary, nil
}

func (s *Storage) ListRecentSummaries(ctx context.Context, limit int) ([]*model.GameSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 || limit > len(s.summaryOrder) {
		limit = len(s.summaryOrder)
	}
	out := make([]*model.GameSummary, 0, limit)
	for _, id := range s.summaryOrder[:limit] {
		out = append(out, s.summaries[id])
	}
	return out, nil
}
