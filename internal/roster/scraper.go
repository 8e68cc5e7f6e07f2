package roster

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/GameHubLabs/rosterquiz/backend/internal/jail"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	errMissingDatabase = errors.New("roster: database handle is required")
	errMissingSource   = errors.New("roster: record source is required")
)

// RecordSource abstracts the upstream records client for the orchestrator.
type RecordSource interface {
	SearchInmates(ctx context.Context, filter string) ([]jail.SearchRow, error)
	InmateDetails(ctx context.Context, bookingNumber string) (jail.Details, error)
	InmateCharges(ctx context.Context, bookingNumber string) ([]jail.ChargeRow, error)
}

// ScraperConfig describes the dependencies of the scrape orchestrator.
type ScraperConfig struct {
	Database *gorm.DB
	Source   RecordSource
	Logger   *zap.Logger
}

// Scraper drives the fetch/normalize/persist loop against the upstream
// records service. It is strictly sequential: one filter at a time, one
// record at a time, no batching or parallel calls.
type Scraper struct {
	db     *gorm.DB
	source RecordSource
	logger *zap.Logger
}

// NewScraper constructs the orchestrator and validates its dependencies.
func NewScraper(cfg ScraperConfig) (*Scraper, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.Source == nil {
		return nil, errMissingSource
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scraper{db: cfg.Database, source: cfg.Source, logger: logger}, nil
}

// ScrapeOptions controls a single scrape run.
type ScrapeOptions struct {
	// Filters is the list of search tokens to walk; empty means a through z.
	Filters []string
	// Limit caps the total number of processed search rows; zero means all.
	Limit int
	// Reset clears the inmate and charge stores before scraping.
	Reset bool
	// ChargeContains, when set, persists only charges whose description
	// contains this substring (case-insensitive). Used for narrow re-scrapes.
	ChargeContains string
}

// ScrapeStats reports the aggregate counters of a run. A capped run reports
// the partial counters accumulated up to the point it stopped.
type ScrapeStats struct {
	Scanned int `json:"scanned"`
	Created int `json:"created"`
	Updated int `json:"updated"`
}

// DefaultFilters returns the 26 single-letter search tokens.
func DefaultFilters() []string {
	filters := make([]string, 0, 26)
	for letter := 'a'; letter <= 'z'; letter++ {
		filters = append(filters, string(letter))
	}
	return filters
}

// Run executes a scrape pass. Every upstream failure is caught, logged, and
// treated as "no data from this call": a bad filter is skipped, missing
// details degrade to absent fields, missing charges degrade to an empty
// set. Only storage failures surface as errors.
func (s *Scraper) Run(ctx context.Context, opts ScrapeOptions) (ScrapeStats, error) {
	stats := ScrapeStats{}

	if opts.Reset {
		if err := s.resetStore(ctx); err != nil {
			return stats, err
		}
		s.logger.Info("roster store reset")
	}

	filters := opts.Filters
	if len(filters) == 0 {
		filters = DefaultFilters()
	}

	for _, filter := range filters {
		s.logger.Info("scraping filter", zap.String("filter", filter))

		rows, err := s.source.SearchInmates(ctx, filter)
		if err != nil {
			s.logger.Warn("search failed, skipping filter",
				zap.String("filter", filter), zap.Error(err))
			continue
		}

		for _, row := range rows {
			done, err := s.processRow(ctx, row, opts, &stats)
			if err != nil {
				return stats, err
			}
			if done {
				s.logger.Info("scrape limit reached",
					zap.Int("scanned", stats.Scanned),
					zap.Int("created", stats.Created),
					zap.Int("updated", stats.Updated))
				return stats, nil
			}
		}
	}

	s.logger.Info("scrape complete",
		zap.Int("scanned", stats.Scanned),
		zap.Int("created", stats.Created),
		zap.Int("updated", stats.Updated))
	return stats, nil
}

func (s *Scraper) resetStore(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&Charge{}).Error; err != nil {
			return fmt.Errorf("roster: reset charges: %w", err)
		}
		if err := tx.Where("1 = 1").Delete(&Inmate{}).Error; err != nil {
			return fmt.Errorf("roster: reset inmates: %w", err)
		}
		return nil
	})
}

// processRow handles one search row end to end. The returned bool signals
// that the overall record cap was reached and the run must stop mid-filter.
func (s *Scraper) processRow(ctx context.Context, row jail.SearchRow, opts ScrapeOptions, stats *ScrapeStats) (bool, error) {
	booking, err := NewBookingNumber(row.BookingNumber)
	if err != nil {
		s.logger.Warn("skipping row with unusable booking number", zap.Error(err))
		return false, nil
	}
	first, last := SplitName(row.InmateName)

	details, err := s.source.InmateDetails(ctx, booking.String())
	if err != nil {
		s.logger.Warn("details fetch failed, continuing with empty record",
			zap.String("booking_number", booking.String()), zap.Error(err))
		details = jail.Details{}
	}
	age := parseAge(details.Birth)

	inmate, created, err := s.upsertInmate(ctx, booking, first, last, age)
	if err != nil {
		return false, err
	}
	if created {
		stats.Created++
	} else {
		stats.Updated++
	}

	charges, err := s.source.InmateCharges(ctx, booking.String())
	if err != nil {
		s.logger.Warn("charges fetch failed, treating as empty",
			zap.String("booking_number", booking.String()), zap.Error(err))
		charges = nil
	}
	if err := s.replaceCharges(ctx, inmate.ID, charges, opts.ChargeContains); err != nil {
		return false, err
	}

	stats.Scanned++
	return opts.Limit > 0 && stats.Scanned >= opts.Limit, nil
}

// upsertInmate creates or refreshes the inmate keyed by booking number. Age
// is always overwritten, even to absent: the latest scrape wins.
func (s *Scraper) upsertInmate(ctx context.Context, booking BookingNumber, first, last string, age *int) (Inmate, bool, error) {
	var inmate Inmate
	err := s.db.WithContext(ctx).
		Where("booking_number = ?", booking.String()).
		Take(&inmate).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		inmate = Inmate{
			BookingNumber: booking.String(),
			FirstName:     first,
			LastName:      last,
			Age:           age,
		}
		if err := s.db.WithContext(ctx).Create(&inmate).Error; err != nil {
			return Inmate{}, false, fmt.Errorf("roster: create inmate: %w", err)
		}
		return inmate, true, nil
	}
	if err != nil {
		return Inmate{}, false, fmt.Errorf("roster: load inmate: %w", err)
	}

	updates := map[string]interface{}{
		"first_name": first,
		"last_name":  last,
		"age":        age,
	}
	if err := s.db.WithContext(ctx).Model(&Inmate{}).
		Where("id = ?", inmate.ID).
		Updates(updates).Error; err != nil {
		return Inmate{}, false, fmt.Errorf("roster: update inmate: %w", err)
	}
	return inmate, false, nil
}

// replaceCharges deletes the inmate's existing charge set and inserts one
// row per non-empty description, optionally restricted by a case-insensitive
// substring filter.
func (s *Scraper) replaceCharges(ctx context.Context, inmateID uint, rows []jail.ChargeRow, contains string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("inmate_id = ?", inmateID).Delete(&Charge{}).Error; err != nil {
			return fmt.Errorf("roster: clear charges: %w", err)
		}
		for _, row := range rows {
			description := strings.TrimSpace(row.Charge)
			if description == "" {
				continue
			}
			if contains != "" && !strings.Contains(strings.ToUpper(description), strings.ToUpper(contains)) {
				continue
			}
			charge := Charge{
				InmateID:        inmateID,
				Description:     description,
				BondAmount:      strings.TrimSpace(row.BondAmount),
				CourtCaseNumber: strings.TrimSpace(row.CourtCaseNumber),
				CourtLocation:   strings.TrimSpace(row.CourtLocation),
				Note:            strings.TrimSpace(row.Note),
			}
			if err := tx.Create(&charge).Error; err != nil {
				return fmt.Errorf("roster: insert charge: %w", err)
			}
		}
		return nil
	})
}

// parseAge coerces the upstream birth-year-like field into an optional age.
// Non-numeric, NULL, and empty values normalize to absent rather than fail.
func parseAge(birthField string) *int {
	trimmed := strings.TrimSpace(birthField)
	if trimmed == "" || strings.EqualFold(trimmed, "NULL") {
		return nil
	}
	value, err := strconv.Atoi(trimmed)
	if err != nil {
		return nil
	}
	return &value
}
