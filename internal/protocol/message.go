package protocol

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pegboard/mastermind/internal/model"
)

// Kind identifies the type of a protocol message. The set of base kinds is
// closed; the string value doubles as the wire name.
type Kind string

const (
	KindHello    Kind = "hello"
	KindRole     Kind = "role"
	KindSetup    Kind = "setup"
	KindGuess    Kind = "guess"
	KindScore    Kind = "score"
	KindScoreOK  Kind = "scoreok"
	KindTurn     Kind = "turn"
	KindGameOver Kind = "game_over"
	KindChat     Kind = "chat"
)

const ackPrefix = "ack_"

// AckKind returns the acknowledgement kind for a command kind
func AckKind(k Kind) Kind {
	return Kind(ackPrefix + string(k))
}

// IsAck reports whether k is an acknowledgement kind
func IsAck(k Kind) bool {
	return strings.HasPrefix(string(k), ackPrefix)
}

// AckedKind returns the base kind an acknowledgement refers to
func AckedKind(k Kind) (Kind, bool) {
	if !IsAck(k) {
		return "", false
	}
	return Kind(strings.TrimPrefix(string(k), ackPrefix)), true
}

// Valid reports whether k is a known kind, either a base kind or the
// acknowledgement of one.
func (k Kind) Valid() bool {
	base := k
	if acked, ok := AckedKind(k); ok {
		base = acked
	}
	switch base {
	case KindHello, KindRole, KindSetup, KindGuess, KindScore,
		KindScoreOK, KindTurn, KindGameOver, KindChat:
		return true
	}
	return false
}

// Envelope is the wire representation of one named message. The payload
// stays raw until the receiver knows which typed payload to decode into.
type Envelope struct {
	Kind    Kind            `json:"kind"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope builds an envelope with the given payload marshalled to JSON.
// A nil payload produces an empty-bodied message.
func NewEnvelope(kind Kind, payload any) (Envelope, error) {
	env := Envelope{Kind: kind}
	if payload == nil {
		return env, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("encoding %s payload: %w", kind, err)
	}
	env.Payload = raw
	return env, nil
}

// Ack builds the acknowledgement envelope for a received command
func Ack(kind Kind) Envelope {
	return Envelope{Kind: AckKind(kind)}
}

// Decode unmarshals the envelope payload into v
func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("decoding %s payload: empty payload", e.Kind)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decoding %s payload: %w", e.Kind, err)
	}
	return nil
}

// Role values carried by role messages
const (
	RoleGuesser = "guesser"
	RoleScorer  = "scorer"
)

// HelloPayload bootstraps identity. Client to server it carries the display
// name and, on reconnect, the previously issued token; server to client it
// carries the issued token.
type HelloPayload struct {
	Token       string `json:"token,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
}

// RolePayload assigns a role at game start
type RolePayload struct {
	Role string `json:"role"`
}

// SetupPayload is the scorer's hidden code reply
type SetupPayload struct {
	Code model.Code `json:"code"`
}

// GuessRequestPayload asks the guesser for the next guess, carrying the
// previous turn's score (absent on the first turn).
type GuessRequestPayload struct {
	PreviousScore *model.Score `json:"previous_score,omitempty"`
}

// GuessPayload is the guesser's move reply
type GuessPayload struct {
	Guess model.Code `json:"guess"`
}

// ScoreRequestPayload asks the scorer to grade a guess
type ScoreRequestPayload struct {
	Guess model.Code `json:"guess"`
}

// ScorePayload is the scorer's grading reply, one peg per position
type ScorePayload struct {
	Pegs []model.ScorePeg `json:"pegs"`
}

// ScoreOKPayload carries the verification verdict of a score claim
type ScoreOKPayload struct {
	OK bool `json:"ok"`
}

// TurnPayload broadcasts one completed turn to both participants
type TurnPayload struct {
	Number int         `json:"number"`
	Guess  model.Code  `json:"guess"`
	Score  model.Score `json:"score"`
}

// GameOverPayload is the terminal message, revealing the setup
type GameOverPayload struct {
	Outcome model.GameOutcome `json:"outcome"`
	Setup   model.Code        `json:"setup,omitempty"`
	Turns   int               `json:"turns"`
}

// ChatPayload is a broadcast chat line
type ChatPayload struct {
	From string `json:"from"`
	Text string `json:"text"`
}
