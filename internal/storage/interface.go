package storage

import (
	"context"

	"github.com/pegboard/mastermind/internal/model"
)

// Storage defines the interface for data persistence
type Storage interface {
	// Participant identity records, keyed by session token
	SaveParticipant(ctx context.Context, p *model.Participant) error
	GetParticipant(ctx context.Context, id model.ParticipantID) (*model.Participant, error)
	DeleteParticipant(ctx context.Context, id model.ParticipantID) error

	// Completed game summaries
	SaveGameSummary(ctx context.Context, summary *model.GameSummary) error
	GetGameSummary(ctx context.Context, id model.GameID) (*model.GameSummary, error)
	ListRecentSummaries(ctx context.Context, limit int) ([]*model.GameSummary, error)
}
