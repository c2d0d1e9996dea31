package scoring

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/pegboard/mastermind/internal/model"
)

type ScoringSuite struct {
	suite.Suite
}

func TestScoringSuite(t *testing.T) {
	suite.Run(t, new(ScoringSuite))
}

func (s *ScoringSuite) TestComputeNoMatches() {
	score := Compute(model.Code{0, 0, 0, 0}, model.Code{1, 2, 3, 4})
	s.Equal(model.Score{}, score)
}

func (s *ScoringSuite) TestComputeFullMatch() {
	score := Compute(model.Code{1, 2, 3, 4}, model.Code{1, 2, 3, 4})
	s.Equal(model.Score{Black: 4, White: 0}, score)
}

func (s *ScoringSuite) TestComputeTransposition() {
	// Canonical example: two exact, two transposed
	score := Compute(model.Code{1, 2, 3, 4}, model.Code{1, 2, 4, 3})
	s.Equal(model.Score{Black: 2, White: 2}, score)
}

func (s *ScoringSuite) TestComputeAllColorsRightAllPositionsWrong() {
	score := Compute(model.Code{1, 2, 3, 4}, model.Code{4, 3, 2, 1})
	s.Equal(model.Score{Black: 0, White: 4}, score)
}

func (s *ScoringSuite) TestComputeDuplicatesInGuess() {
	// One 1 in the setup, two in the guess: the exact match consumes the
	// setup slot, the second 1 earns nothing.
	score := Compute(model.Code{1, 2, 3, 4}, model.Code{1, 1, 1, 1})
	s.Equal(model.Score{Black: 1, White: 0}, score)
}

func (s *ScoringSuite) TestComputeDuplicatesInSetup() {
	score := Compute(model.Code{2, 2, 3, 3}, model.Code{2, 3, 2, 0})
	s.Equal(model.Score{Black: 1, White: 2}, score)
}

func (s *ScoringSuite) TestComputeConsumedSlotsNeverRematch() {
	// The black match at position 0 must not also count as white for the
	// guess's second 5.
	score := Compute(model.Code{5, 0, 1, 2}, model.Code{5, 5, 3, 4})
	s.Equal(model.Score{Black: 1, White: 0}, score)
}

func (s *ScoringSuite) TestComputeSymmetricUnderColorRelabeling() {
	setup := model.Code{0, 1, 1, 3}
	guess := model.Code{1, 0, 3, 3}
	relabel := func(c model.Code, perm map[model.Color]model.Color) model.Code {
		out := make(model.Code, len(c))
		for i, col := range c {
			out[i] = perm[col]
		}
		return out
	}
	perm := map[model.Color]model.Color{0: 4, 1: 2, 3: 5}

	s.Equal(Compute(setup, guess), Compute(relabel(setup, perm), relabel(guess, perm)))
}

func (s *ScoringSuite) TestVerifyAcceptsCanonicalScore() {
	setup := model.Code{1, 2, 3, 4}
	guess := model.Code{1, 2, 4, 3}
	s.True(Verify(setup, guess, Compute(setup, guess)))
}

func (s *ScoringSuite) TestVerifyRejectsAnyOtherTally() {
	setup := model.Code{1, 2, 3, 4}
	guess := model.Code{1, 2, 4, 3}
	// Canonical is black=2 white=2; everything else must be rejected
	for black := 0; black <= 4; black++ {
		for white := 0; white+black <= 4; white++ {
			claimed := model.Score{Black: black, White: white}
			want := black == 2 && white == 2
			s.Equal(want, Verify(setup, guess, claimed), "claim %+v", claimed)
		}
	}
}

func (s *ScoringSuite) TestVerifyRejectsTransposedCounts() {
	setup := model.Code{1, 2, 3, 4}
	guess := model.Code{1, 3, 2, 2}
	canonical := Compute(setup, guess)
	s.NotEqual(canonical.Black, canonical.White, "test needs asymmetric counts")

	transposed := model.Score{Black: canonical.White, White: canonical.Black}
	s.True(Verify(setup, guess, canonical))
	s.False(Verify(setup, guess, transposed))
}

func (s *ScoringSuite) TestVerifyRejectsLengthMismatch() {
	s.False(Verify(model.Code{1, 2, 3}, model.Code{1, 2, 3, 4}, model.Score{Black: 3}))
}

func (s *ScoringSuite) TestVerifyOnlyFullBlackIsWin() {
	setup := model.Code{1, 2, 3, 4}
	s.True(IsWin(Compute(setup, setup), len(setup)))
	s.False(IsWin(model.Score{Black: 3, White: 1}, len(setup)))
	s.False(IsWin(model.Score{Black: 0, White: 4}, len(setup)))
}

func (s *ScoringSuite) TestTallyPegs() {
	pegs := []model.ScorePeg{model.PegBlack, model.PegWhite, model.PegNone, model.PegBlack}
	s.Equal(model.Score{Black: 2, White: 1}, TallyPegs(pegs))
}

func (s *ScoringSuite) TestValidPegs() {
	s.True(ValidPegs([]model.ScorePeg{0, 1, 2, 0}, 4))
	s.False(ValidPegs([]model.ScorePeg{0, 1, 2}, 4))
	s.False(ValidPegs([]model.ScorePeg{0, 1, 2, 7}, 4))
}

// Exhaustive consistency: for every setup/guess over a small space, the
// canonically computed score always verifies.
func (s *ScoringSuite) TestComputeAlwaysVerifies() {
	const colors = 3
	var codes []model.Code
	for a := 0; a < colors; a++ {
		for b := 0; b < colors; b++ {
			for c := 0; c < colors; c++ {
				codes = append(codes, model.Code{model.Color(a), model.Color(b), model.Color(c)})
			}
		}
	}
	for _, setup := range codes {
		for _, guess := range codes {
			s.True(Verify(setup, guess, Compute(setup, guess)),
				"setup %v guess %v", setup, guess)
		}
	}
}
