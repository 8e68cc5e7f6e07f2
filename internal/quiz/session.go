package quiz

import (
	"errors"
	"strings"

	"github.com/GameHubLabs/rosterquiz/backend/internal/classify"
)

const (
	startingLives = 3
	maxLives      = 5
	bonusStreak   = 5
)

// ErrUnknownSide indicates a submitted side outside left/right.
var ErrUnknownSide = errors.New("quiz: unknown side")

// Side is the player's pick in a round.
type Side string

const (
	// SideLeft picks the left record.
	SideLeft Side = "left"
	// SideRight picks the right record.
	SideRight Side = "right"
)

// ParseSide validates a raw side value.
func ParseSide(rawSide string) (Side, error) {
	switch Side(strings.ToLower(strings.TrimSpace(rawSide))) {
	case SideLeft:
		return SideLeft, nil
	case SideRight:
		return SideRight, nil
	default:
		return "", ErrUnknownSide
	}
}

// Pair describes the currently-presented round: which inmate is on which
// side and which side holds the positive category. It is stored on the
// session so the choose step can validate without re-deriving randomness.
type Pair struct {
	LeftInmateID   uint `json:"left_inmate_id"`
	RightInmateID  uint `json:"right_inmate_id"`
	PositiveOnLeft bool `json:"positive_on_left"`
}

// Session is the explicit per-player quiz state. It is a plain value
// passed into and returned from every quiz operation; persistence of the
// value is the session store's concern.
type Session struct {
	ID           string        `json:"id"`
	Mode         classify.Mode `json:"mode"`
	Lives        int           `json:"lives"`
	Streak       int           `json:"streak"`
	Score        int           `json:"score"`
	Multiplier   int           `json:"multiplier"`
	SeenPositive map[uint]bool `json:"seen_positive"`
	SeenOther    map[uint]bool `json:"seen_other"`
	Current      *Pair         `json:"current,omitempty"`
	Finished     bool          `json:"finished"`
	FinalScore   int           `json:"final_score"`
}

// NewSession returns a freshly reset session for a mode: full lives, zero
// streak and score, empty seen sets, no current pair.
func NewSession(id string, mode classify.Mode) *Session {
	return &Session{
		ID:           id,
		Mode:         mode,
		Lives:        startingLives,
		Streak:       0,
		Score:        0,
		Multiplier:   1,
		SeenPositive: make(map[uint]bool),
		SeenOther:    make(map[uint]bool),
	}
}

// multiplierForStreak is a step function of the current streak, not a
// compounding factor.
func multiplierForStreak(streak int) int {
	switch {
	case streak >= 15:
		return 10
	case streak >= 10:
		return 4
	case streak >= 5:
		return 2
	default:
		return 1
	}
}

// applyChoice evaluates a pick against the stored pair and mutates the
// counters. The multiplier is recomputed from the post-update streak. A
// bonus life is granted at every positive multiple of five in the streak,
// capped at five lives. Losing the last life finishes the session.
func (s *Session) applyChoice(side Side) (correct bool) {
	correct = (side == SideLeft) == s.Current.PositiveOnLeft

	if correct {
		s.Streak++
		s.Score += 1 * multiplierForStreak(s.Streak)
		if s.Streak%bonusStreak == 0 && s.Lives < maxLives {
			s.Lives++
		}
	} else {
		s.Lives = max(s.Lives-1, 0)
		s.Streak = 0
	}
	s.Multiplier = multiplierForStreak(s.Streak)
	s.Current = nil

	if s.Lives == 0 {
		s.finish()
	}
	return correct
}

// finish transitions to Game-Over: the final score and mode stay on the
// session for the leaderboard submission step. Terminal until a new start.
func (s *Session) finish() {
	s.Finished = true
	s.FinalScore = s.Score
	s.Current = nil
}
