package quiz

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/GameHubLabs/rosterquiz/backend/internal/classify"
	"github.com/GameHubLabs/rosterquiz/backend/internal/roster"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("quiz: database handle is required")
	errMissingIndex    = errors.New("quiz: category index is required")

	// ErrNoInmates indicates a quiz start against an empty inmate store.
	// Informational precondition: scrape and classify first.
	ErrNoInmates = errors.New("quiz: inmate store is empty")
	// ErrNoMoreRounds indicates one side's unseen pool is exhausted. The
	// session transitions to game over even when lives remain.
	ErrNoMoreRounds = errors.New("quiz: no fresh pairs left")
	// ErrSessionFinished indicates an action on a game-over session.
	ErrSessionFinished = errors.New("quiz: session is finished")
	// ErrNoCurrentPair indicates a choice without a presented round. The
	// caller should present a round instead of failing.
	ErrNoCurrentPair = errors.New("quiz: no round is currently presented")
)

// CategoryIndex lists the inmate ids marked on one side of a pair.
type CategoryIndex interface {
	SideInmateIDs(ctx context.Context, mode classify.Mode, positiveSide bool) ([]uint, error)
}

// ServiceConfig describes the dependencies of the quiz engine.
type ServiceConfig struct {
	Database *gorm.DB
	Index    CategoryIndex
	Logger   *zap.Logger
	// RandIntN overrides the uniform sampler, for deterministic tests.
	RandIntN func(n int) int
}

// Service runs the per-session quiz state machine:
// Idle -> Round-Presented -> (Correct|Incorrect) -> Round-Presented | Game-Over.
type Service struct {
	db       *gorm.DB
	index    CategoryIndex
	logger   *zap.Logger
	randIntN func(n int) int
}

// NewService constructs the engine and validates its dependencies.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.Index == nil {
		return nil, errMissingIndex
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	randIntN := cfg.RandIntN
	if randIntN == nil {
		randIntN = rand.Intn
	}
	return &Service{db: cfg.Database, index: cfg.Index, logger: logger, randIntN: randIntN}, nil
}

// Start returns a reset session for the mode. Starting against an empty
// inmate store is a precondition failure surfaced as ErrNoInmates.
func (s *Service) Start(ctx context.Context, sessionID string, mode classify.Mode) (*Session, error) {
	var inmateCount int64
	if err := s.db.WithContext(ctx).Model(&roster.Inmate{}).Count(&inmateCount).Error; err != nil {
		return nil, fmt.Errorf("quiz: count inmates: %w", err)
	}
	if inmateCount == 0 {
		return nil, ErrNoInmates
	}
	return NewSession(sessionID, mode), nil
}

// Contestant is one record of a presented round, as shown to the player.
type Contestant struct {
	InmateID      uint   `json:"inmate_id"`
	BookingNumber string `json:"booking_number"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Age           *int   `json:"age,omitempty"`
}

// RoundView is the presented round plus the session counters.
type RoundView struct {
	Left       Contestant `json:"left"`
	Right      Contestant `json:"right"`
	Lives      int        `json:"lives"`
	Streak     int        `json:"streak"`
	Score      int        `json:"score"`
	Multiplier int        `json:"multiplier"`
}

// PresentRound samples one not-yet-seen record from each side, assigns
// sides by a fair coin flip, records the pair on the session, and returns
// the round view. When either side's unseen pool is empty the session
// finishes and ErrNoMoreRounds is returned.
func (s *Service) PresentRound(ctx context.Context, session *Session) (RoundView, error) {
	if session.Finished {
		return RoundView{}, ErrSessionFinished
	}

	positiveID, ok, err := s.sampleSide(ctx, session.Mode, true, session.SeenPositive)
	if err != nil {
		return RoundView{}, err
	}
	if !ok {
		session.finish()
		return RoundView{}, ErrNoMoreRounds
	}
	otherID, ok, err := s.sampleSide(ctx, session.Mode, false, session.SeenOther)
	if err != nil {
		return RoundView{}, err
	}
	if !ok {
		session.finish()
		return RoundView{}, ErrNoMoreRounds
	}

	positiveOnLeft := s.randIntN(2) == 0
	leftID, rightID := positiveID, otherID
	if !positiveOnLeft {
		leftID, rightID = otherID, positiveID
	}

	session.SeenPositive[positiveID] = true
	session.SeenOther[otherID] = true
	session.Current = &Pair{
		LeftInmateID:   leftID,
		RightInmateID:  rightID,
		PositiveOnLeft: positiveOnLeft,
	}

	left, err := s.loadContestant(ctx, leftID)
	if err != nil {
		return RoundView{}, err
	}
	right, err := s.loadContestant(ctx, rightID)
	if err != nil {
		return RoundView{}, err
	}

	return RoundView{
		Left:       left,
		Right:      right,
		Lives:      session.Lives,
		Streak:     session.Streak,
		Score:      session.Score,
		Multiplier: session.Multiplier,
	}, nil
}

// sampleSide picks uniformly at random from the side's marked ids minus
// the ids already shown this session on that side.
func (s *Service) sampleSide(ctx context.Context, mode classify.Mode, positiveSide bool, seen map[uint]bool) (uint, bool, error) {
	markedIDs, err := s.index.SideInmateIDs(ctx, mode, positiveSide)
	if err != nil {
		return 0, false, err
	}
	available := make([]uint, 0, len(markedIDs))
	for _, inmateID := range markedIDs {
		if !seen[inmateID] {
			available = append(available, inmateID)
		}
	}
	if len(available) == 0 {
		return 0, false, nil
	}
	return available[s.randIntN(len(available))], true, nil
}

func (s *Service) loadContestant(ctx context.Context, inmateID uint) (Contestant, error) {
	var inmate roster.Inmate
	if err := s.db.WithContext(ctx).Take(&inmate, inmateID).Error; err != nil {
		return Contestant{}, fmt.Errorf("quiz: load inmate %d: %w", inmateID, err)
	}
	return Contestant{
		InmateID:      inmate.ID,
		BookingNumber: inmate.BookingNumber,
		FirstName:     inmate.FirstName,
		LastName:      inmate.LastName,
		Age:           inmate.Age,
	}, nil
}

// ChoiceOutcome reports the result of a pick and the updated counters.
type ChoiceOutcome struct {
	Correct    bool `json:"correct"`
	Lives      int  `json:"lives"`
	Streak     int  `json:"streak"`
	Score      int  `json:"score"`
	Multiplier int  `json:"multiplier"`
	GameOver   bool `json:"game_over"`
	FinalScore int  `json:"final_score,omitempty"`
}

// SubmitChoice evaluates the player's pick against the stored pair. A
// choice without a presented round returns ErrNoCurrentPair so the caller
// can re-present instead of erroring.
func (s *Service) SubmitChoice(session *Session, side Side) (ChoiceOutcome, error) {
	if session.Finished {
		return ChoiceOutcome{}, ErrSessionFinished
	}
	if session.Current == nil {
		return ChoiceOutcome{}, ErrNoCurrentPair
	}

	correct := session.applyChoice(side)
	outcome := ChoiceOutcome{
		Correct:    correct,
		Lives:      session.Lives,
		Streak:     session.Streak,
		Score:      session.Score,
		Multiplier: session.Multiplier,
		GameOver:   session.Finished,
		FinalScore: session.FinalScore,
	}
	s.logger.Debug("choice evaluated",
		zap.String("session_id", session.ID),
		zap.Bool("correct", correct),
		zap.Int("lives", session.Lives),
		zap.Int("streak", session.Streak),
		zap.Int("score", session.Score))
	return outcome, nil
}
