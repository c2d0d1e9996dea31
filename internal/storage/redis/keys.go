package redis

import (
	"fmt"

	"github.com/pegboard/mastermind/internal/model"
)

// Key prefix for all mastermind data
const keyPrefix = "mm"

// participantKey returns the Redis key for a participant identity record
func participantKey(id model.ParticipantID) string {
	return fmt.Sprintf("%s:participant:%s", keyPrefix, id)
}

// summaryKey returns the Redis key for a game summary
func summaryKey(id model.GameID) string {
	return fmt.Sprintf("%s:summary:%s", keyPrefix, id)
}

// summaryIndexKey returns the Redis key for the LIST of recent summary IDs
func summaryIndexKey() string {
	return fmt.Sprintf("%s:idx:summaries", keyPrefix)
}
