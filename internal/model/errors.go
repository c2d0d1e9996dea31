package model

import "errors"

// Common errors used across the application
var (
	// Participant errors
	ErrParticipantNotFound = errors.New("participant not found")
	ErrNotBound            = errors.New("participant has no bound channel")
	ErrWaiterArmed         = errors.New("a waiter is already armed for this message kind")

	// Game errors
	ErrGameNotFound  = errors.New("game not found")
	ErrInvalidCode   = errors.New("invalid code sequence")
	ErrInvalidScore  = errors.New("invalid score sequence")
	ErrGameAbandoned = errors.New("game was abandoned")
)
