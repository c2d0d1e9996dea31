package model

import "time"

// GameID uniquely identifies a game
type GameID string

// GameOutcome is the terminal result of a game
type GameOutcome string

const (
	OutcomeWon       GameOutcome = "won"       // Guesser cracked the code
	OutcomeLost      GameOutcome = "lost"      // Turn budget exhausted
	OutcomeAbandoned GameOutcome = "abandoned" // Delivery to a participant failed mid-game
)

// Color is one hole's color in a code. Valid values are [0, NumColors)
// for a given game configuration; negative values are reserved for the
// scoring algorithm's consumption sentinels.
type Color int

// Code is a fixed-length sequence of colors, duplicates permitted
type Code []Color

// Valid reports whether the code has the expected length and every color
// is within [0, numColors).
func (c Code) Valid(length, numColors int) bool {
	if len(c) != length {
		return false
	}
	for _, col := range c {
		if col < 0 || int(col) >= numColors {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the code
func (c Code) Clone() Code {
	out := make(Code, len(c))
	copy(out, c)
	return out
}

// ScorePeg is one position's grading outcome in a claimed score
type ScorePeg int

const (
	PegNone  ScorePeg = 0 // No match
	PegWhite ScorePeg = 1 // Color-only match
	PegBlack ScorePeg = 2 // Exact match
)

// Score is the tallied peg counts of one grading
type Score struct {
	Black int `json:"black"`
	White int `json:"white"`
}

// GameSummary is a lightweight record of a completed game
type GameSummary struct {
	ID          GameID
	Guesser     ParticipantID
	Scorer      ParticipantID
	Outcome     GameOutcome
	Turns       int
	Setup       Code
	CompletedAt time.Time
}
