package model

import "time"

// ParticipantID is the opaque session token identifying a logical player.
// It is minted by the registry on first contact and never chosen by the client.
type ParticipantID string

// ParticipantStatus represents the connection lifecycle of a participant
type ParticipantStatus string

const (
	ParticipantActive       ParticipantStatus = "active"
	ParticipantDisconnected ParticipantStatus = "disconnected"
)

// Participant is the persisted identity record for one logical player.
// Live connection state (channel binding, pending waiters) is owned by the
// registry and never stored.
type Participant struct {
	ID          ParticipantID
	DisplayName string
	CreatedAt   time.Time
}
