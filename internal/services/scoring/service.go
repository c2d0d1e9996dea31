package scoring

import "github.com/pegboard/mastermind/internal/model"

// Consumption sentinels. They are distinct so a consumed setup slot can
// never match a consumed guess slot in the color-only pass.
const (
	consumedSetup model.Color = -1
	consumedGuess model.Color = -2
)

// Compute grades a guess against the hidden setup using classic Mastermind
// scoring: exact matches first, then color-only matches over what remains,
// each peg consuming its setup slot.
func Compute(setup, guess model.Code) model.Score {
	s := setup.Clone()
	g := guess.Clone()

	var score model.Score

	// Pass 1: exact (black) matches
	for i := range g {
		if s[i] == g[i] {
			score.Black++
			s[i] = consumedSetup
			g[i] = consumedGuess
		}
	}

	// Pass 2: color-only (white) matches against the first remaining
	// occurrence in the setup
	for i := range g {
		if g[i] == consumedGuess {
			continue
		}
		for j := range s {
			if s[j] == g[i] {
				score.White++
				s[j] = consumedSetup
				g[i] = consumedGuess
				break
			}
		}
	}

	return score
}

// Verify checks a claimed score against the hidden setup. The claim is valid
// iff both peg counts exactly equal the canonical grading; any mismatch,
// including transposed white and black counts, is rejected.
func Verify(setup, guess model.Code, claimed model.Score) bool {
	if len(setup) != len(guess) {
		return false
	}
	return Compute(setup, guess) == claimed
}

// TallyPegs reduces a peg sequence to its score counts
func TallyPegs(pegs []model.ScorePeg) model.Score {
	var score model.Score
	for _, peg := range pegs {
		switch peg {
		case model.PegWhite:
			score.White++
		case model.PegBlack:
			score.Black++
		}
	}
	return score
}

// ValidPegs reports whether every peg is a known value and the sequence has
// the expected length.
func ValidPegs(pegs []model.ScorePeg, length int) bool {
	if len(pegs) != length {
		return false
	}
	for _, peg := range pegs {
		switch peg {
		case model.PegNone, model.PegWhite, model.PegBlack:
		default:
			return false
		}
	}
	return true
}

// IsWin reports whether a verified score cracks the code
func IsWin(score model.Score, codeLength int) bool {
	return score.Black == codeLength
}
