package classify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/GameHubLabs/rosterquiz/backend/internal/roster"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	errMissingDatabase = errors.New("classify: database handle is required")

	// ErrUnknownMode indicates a category pair name outside the registry.
	ErrUnknownMode = errors.New("classify: unknown mode")
	// ErrNothingToClassify indicates the inmate store is empty. It is an
	// informational precondition for the caller, not a failure.
	ErrNothingToClassify = errors.New("classify: inmate store is empty")
)

// Mode names a category pair. Modes double as quiz modes and leaderboard
// tags.
type Mode string

const (
	// ModeChild partitions inmates by child-abuse charges.
	ModeChild Mode = "child"
	// ModeMurder partitions inmates by murder charges.
	ModeMurder Mode = "murder"
	// ModeDrugs marks two independent sets: cannabis and cocaine/fentanyl.
	ModeDrugs Mode = "drugs"
)

// ParseMode validates a raw mode name.
func ParseMode(rawMode string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(rawMode))) {
	case ModeChild:
		return ModeChild, nil
	case ModeMurder:
		return ModeMurder, nil
	case ModeDrugs:
		return ModeDrugs, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, rawMode)
	}
}

// String returns the mode tag.
func (m Mode) String() string {
	return string(m)
}

// childSecondaryKeywords is the fixed keyword list a charge must also hit
// before its "child" mention counts as a positive.
var childSecondaryKeywords = []string{
	"assault", "sex", "sexual", "abuse", "molest", "exploitation",
	"pornograph", "indecent", "lewd", "lascivious", "battery",
	"neglect", "endangerment", "solicitation", "entice", "incest",
	"rape", "sodomy", "traffick", "conduct", "exposure", "fondling",
	"statutory", "child abuse", "child neglect", "child porn", "video",
}

// childAbusePositive requires "child" and a secondary keyword to co-occur
// in the same charge description, not merely anywhere across an inmate's
// charges.
func childAbusePositive(description string) bool {
	lowered := strings.ToLower(description)
	if !strings.Contains(lowered, "child") {
		return false
	}
	for _, keyword := range childSecondaryKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

func murderPositive(description string) bool {
	return strings.Contains(strings.ToLower(description), "murder")
}

func cannabisPositive(description string) bool {
	return strings.Contains(strings.ToLower(description), "cannabis")
}

func cocaineFentanylPositive(description string) bool {
	lowered := strings.ToLower(description)
	return strings.Contains(lowered, "cocaine") || strings.Contains(lowered, "fentanyl")
}

// ServiceConfig describes the dependencies of the classification engine.
type ServiceConfig struct {
	Database *gorm.DB
	Logger   *zap.Logger
}

// Service partitions the inmate population into per-pair index sets by
// scanning charge descriptions with keyword predicates.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService constructs the engine and validates its dependencies.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{db: cfg.Database, logger: logger}, nil
}

// Result reports per-side marker counts for one classification run. For the
// exhaustive pairs Positive+Negative equals the inmate population; for
// drugs the two sides are independent and overlap is possible.
type Result struct {
	Mode     Mode   `json:"mode"`
	Positive int    `json:"positive_count"`
	Negative int    `json:"negative_count"`
	PosLabel string `json:"positive_label"`
	NegLabel string `json:"negative_label"`
}

// Run rebuilds the index tables for one category pair. The previous marker
// set is cleared and the new one inserted inside a single transaction, so
// readers never observe the empty-table window. Re-running with no
// intervening scrape is idempotent.
func (s *Service) Run(ctx context.Context, mode Mode) (Result, error) {
	var inmateIDs []uint
	if err := s.db.WithContext(ctx).Model(&roster.Inmate{}).Pluck("id", &inmateIDs).Error; err != nil {
		return Result{}, fmt.Errorf("classify: list inmates: %w", err)
	}
	if len(inmateIDs) == 0 {
		return Result{}, ErrNothingToClassify
	}

	var charges []roster.Charge
	if err := s.db.WithContext(ctx).
		Select("inmate_id", "description").
		Find(&charges).Error; err != nil {
		return Result{}, fmt.Errorf("classify: list charges: %w", err)
	}

	var result Result
	var err error
	switch mode {
	case ModeChild:
		result, err = runExhaustive(ctx, s.db, mode, inmateIDs, charges, childAbusePositive,
			"child_abuse", "non_child_abuse",
			func(id uint) ChildAbuseIndex { return ChildAbuseIndex{InmateID: id} },
			func(id uint) NonChildAbuseIndex { return NonChildAbuseIndex{InmateID: id} })
	case ModeMurder:
		result, err = runExhaustive(ctx, s.db, mode, inmateIDs, charges, murderPositive,
			"murder", "non_murder",
			func(id uint) MurderIndex { return MurderIndex{InmateID: id} },
			func(id uint) NonMurderIndex { return NonMurderIndex{InmateID: id} })
	case ModeDrugs:
		result, err = runDrugs(ctx, s.db, charges)
	default:
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	if err != nil {
		return Result{}, err
	}

	s.logger.Info("classification complete",
		zap.String("mode", mode.String()),
		zap.String("positive_side", result.PosLabel),
		zap.Int("positive", result.Positive),
		zap.String("negative_side", result.NegLabel),
		zap.Int("negative", result.Negative))
	return result, nil
}

// runExhaustive computes the positive id set from the predicate and stores
// the true complement as the negative side, so the two sides are always a
// complete partition of the population at classification time.
func runExhaustive[P, N any](
	ctx context.Context,
	db *gorm.DB,
	mode Mode,
	inmateIDs []uint,
	charges []roster.Charge,
	positive func(string) bool,
	posLabel, negLabel string,
	buildPositive func(uint) P,
	buildNegative func(uint) N,
) (Result, error) {
	positiveSet := matchingInmateIDs(charges, positive)

	positiveIDs := make([]uint, 0, len(positiveSet))
	negativeIDs := make([]uint, 0, len(inmateIDs))
	for _, inmateID := range inmateIDs {
		if positiveSet[inmateID] {
			positiveIDs = append(positiveIDs, inmateID)
		} else {
			negativeIDs = append(negativeIDs, inmateID)
		}
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rebuildMarkers(tx, positiveIDs, buildPositive); err != nil {
			return err
		}
		return rebuildMarkers(tx, negativeIDs, buildNegative)
	})
	if err != nil {
		return Result{}, err
	}

	return Result{
		Mode:     mode,
		Positive: len(positiveIDs),
		Negative: len(negativeIDs),
		PosLabel: posLabel,
		NegLabel: negLabel,
	}, nil
}

// runDrugs stores two independent positive sets. No complement exists: an
// inmate may be in both sets, one, or neither.
func runDrugs(ctx context.Context, db *gorm.DB, charges []roster.Charge) (Result, error) {
	cannabisIDs := sortedIDs(matchingInmateIDs(charges, cannabisPositive))
	cocaineIDs := sortedIDs(matchingInmateIDs(charges, cocaineFentanylPositive))

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := rebuildMarkers(tx, cannabisIDs, func(id uint) CannabisIndex { return CannabisIndex{InmateID: id} }); err != nil {
			return err
		}
		return rebuildMarkers(tx, cocaineIDs, func(id uint) CocaineFentanylIndex { return CocaineFentanylIndex{InmateID: id} })
	})
	if err != nil {
		return Result{}, err
	}

	return Result{
		Mode:     ModeDrugs,
		Positive: len(cannabisIDs),
		Negative: len(cocaineIDs),
		PosLabel: "cannabis",
		NegLabel: "cocaine_fentanyl",
	}, nil
}

// rebuildMarkers clears one marker table and bulk-inserts the new set,
// ignoring duplicate-marker conflicts so re-runs stay idempotent.
func rebuildMarkers[M any](tx *gorm.DB, inmateIDs []uint, build func(uint) M) error {
	var model M
	if err := tx.Where("1 = 1").Delete(&model).Error; err != nil {
		return fmt.Errorf("classify: clear markers: %w", err)
	}
	if len(inmateIDs) == 0 {
		return nil
	}
	rows := make([]M, 0, len(inmateIDs))
	for _, inmateID := range inmateIDs {
		rows = append(rows, build(inmateID))
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error; err != nil {
		return fmt.Errorf("classify: insert markers: %w", err)
	}
	return nil
}

func matchingInmateIDs(charges []roster.Charge, predicate func(string) bool) map[uint]bool {
	matched := make(map[uint]bool)
	for _, charge := range charges {
		if predicate(charge.Description) {
			matched[charge.InmateID] = true
		}
	}
	return matched
}

func sortedIDs(set map[uint]bool) []uint {
	ids := make([]uint, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// SideInmateIDs lists the inmate ids currently marked on one side of a
// pair. The positive side is child / murder / cannabis; the other side is
// the complement or, for drugs, cocaine-fentanyl.
func (s *Service) SideInmateIDs(ctx context.Context, mode Mode, positiveSide bool) ([]uint, error) {
	var model interface{}
	switch {
	case mode == ModeChild && positiveSide:
		model = &ChildAbuseIndex{}
	case mode == ModeChild:
		model = &NonChildAbuseIndex{}
	case mode == ModeMurder && positiveSide:
		model = &MurderIndex{}
	case mode == ModeMurder:
		model = &NonMurderIndex{}
	case mode == ModeDrugs && positiveSide:
		model = &CannabisIndex{}
	case mode == ModeDrugs:
		model = &CocaineFentanylIndex{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	var inmateIDs []uint
	if err := s.db.WithContext(ctx).Model(model).Pluck("inmate_id", &inmateIDs).Error; err != nil {
		return nil, fmt.Errorf("classify: list side markers: %w", err)
	}
	return inmateIDs, nil
}
