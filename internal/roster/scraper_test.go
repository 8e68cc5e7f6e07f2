package roster

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/GameHubLabs/rosterquiz/backend/internal/jail"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

type fakeSource struct {
	searchRows  map[string][]jail.SearchRow
	searchErrs  map[string]error
	details     map[string]jail.Details
	detailsErrs map[string]error
	charges     map[string][]jail.ChargeRow
	chargeErrs  map[string]error
}

func (f *fakeSource) SearchInmates(_ context.Context, filter string) ([]jail.SearchRow, error) {
	if err := f.searchErrs[filter]; err != nil {
		return nil, err
	}
	return f.searchRows[filter], nil
}

func (f *fakeSource) InmateDetails(_ context.Context, booking string) (jail.Details, error) {
	if err := f.detailsErrs[booking]; err != nil {
		return jail.Details{}, err
	}
	return f.details[booking], nil
}

func (f *fakeSource) InmateCharges(_ context.Context, booking string) ([]jail.ChargeRow, error) {
	if err := f.chargeErrs[booking]; err != nil {
		return nil, err
	}
	return f.charges[booking], nil
}

func openTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	databasePath := filepath.Join(t.TempDir(), "roster.db")
	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Inmate{}, &Charge{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

func newTestScraper(t *testing.T, db *gorm.DB, source RecordSource) *Scraper {
	t.Helper()
	scraper, err := NewScraper(ScraperConfig{Database: db, Source: source})
	if err != nil {
		t.Fatalf("failed to construct scraper: %v", err)
	}
	return scraper
}

func TestRunCreatesInmatesAndCharges(t *testing.T) {
	db := openTestDatabase(t)
	source := &fakeSource{
		searchRows: map[string][]jail.SearchRow{
			"a": {{BookingNumber: "25-1", InmateName: "ADAMS, TODERICK LEONARD JR"}},
		},
		details: map[string]jail.Details{
			"25-1": {Birth: "34"},
		},
		charges: map[string][]jail.ChargeRow{
			"25-1": {
				{Charge: "BATTERY", BondAmount: "$500"},
				{Charge: "   "},
				{Charge: "MURDER IN THE FIRST DEGREE"},
			},
		},
	}

	stats, err := newTestScraper(t, db, source).Run(context.Background(), ScrapeOptions{Filters: []string{"a"}})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if stats.Scanned != 1 || stats.Created != 1 || stats.Updated != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	var inmate Inmate
	if err := db.Where("booking_number = ?", "25-1").Take(&inmate).Error; err != nil {
		t.Fatalf("failed to load inmate: %v", err)
	}
	if inmate.FirstName != "TODERICK LEONARD JR" || inmate.LastName != "ADAMS" {
		t.Fatalf("unexpected name: %q %q", inmate.FirstName, inmate.LastName)
	}
	if inmate.Age == nil || *inmate.Age != 34 {
		t.Fatalf("unexpected age: %v", inmate.Age)
	}

	var chargeCount int64
	if err := db.Model(&Charge{}).Where("inmate_id = ?", inmate.ID).Count(&chargeCount).Error; err != nil {
		t.Fatalf("failed to count charges: %v", err)
	}
	if chargeCount != 2 {
		t.Fatalf("expected blank-description charge to be discarded, got %d rows", chargeCount)
	}
}

func TestRunReplacesChargeSetOnRescrape(t *testing.T) {
	db := openTestDatabase(t)
	source := &fakeSource{
		searchRows: map[string][]jail.SearchRow{
			"a": {{BookingNumber: "25-1", InmateName: "SMITH, JOHN"}},
		},
		details: map[string]jail.Details{"25-1": {Birth: "41"}},
		charges: map[string][]jail.ChargeRow{
			"25-1": {{Charge: "THEFT"}, {Charge: "TRESPASS"}},
		},
	}
	scraper := newTestScraper(t, db, source)

	if _, err := scraper.Run(context.Background(), ScrapeOptions{Filters: []string{"a"}}); err != nil {
		t.Fatalf("first run failed: %v", err)
	}

	source.charges["25-1"] = []jail.ChargeRow{{Charge: "BATTERY"}}
	source.details["25-1"] = jail.Details{Birth: "NULL"}
	stats, err := scraper.Run(context.Background(), ScrapeOptions{Filters: []string{"a"}})
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if stats.Created != 0 || stats.Updated != 1 {
		t.Fatalf("expected pure update run, got %+v", stats)
	}

	var inmate Inmate
	if err := db.Where("booking_number = ?", "25-1").Take(&inmate).Error; err != nil {
		t.Fatalf("failed to load inmate: %v", err)
	}
	if inmate.Age != nil {
		t.Fatalf("expected age to be overwritten to absent, got %v", *inmate.Age)
	}

	var charges []Charge
	if err := db.Where("inmate_id = ?", inmate.ID).Find(&charges).Error; err != nil {
		t.Fatalf("failed to load charges: %v", err)
	}
	if len(charges) != 1 || charges[0].Description != "BATTERY" {
		t.Fatalf("expected wholesale charge replacement, got %+v", charges)
	}
}

func TestRunSkipsFailedFilterAndContinues(t *testing.T) {
	db := openTestDatabase(t)
	source := &fakeSource{
		searchRows: map[string][]jail.SearchRow{
			"b": {{BookingNumber: "25-2", InmateName: "DOE, JANE"}},
		},
		searchErrs: map[string]error{"a": errors.New("upstream down")},
		details:    map[string]jail.Details{},
		charges:    map[string][]jail.ChargeRow{},
	}

	stats, err := newTestScraper(t, db, source).Run(context.Background(), ScrapeOptions{Filters: []string{"a", "b"}})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if stats.Scanned != 1 || stats.Created != 1 {
		t.Fatalf("expected second filter to survive first filter failure, got %+v", stats)
	}
}

func TestRunDegradesDetailAndChargeFailures(t *testing.T) {
	db := openTestDatabase(t)
	source := &fakeSource{
		searchRows: map[string][]jail.SearchRow{
			"a": {{BookingNumber: "25-3", InmateName: "ROE, RICHARD"}},
		},
		detailsErrs: map[string]error{"25-3": errors.New("timeout")},
		chargeErrs:  map[string]error{"25-3": errors.New("timeout")},
	}

	stats, err := newTestScraper(t, db, source).Run(context.Background(), ScrapeOptions{Filters: []string{"a"}})
	if err != nil {
		t.Fatalf("expected failures to degrade, got error: %v", err)
	}
	if stats.Scanned != 1 {
		t.Fatalf("expected record to be scanned despite failures, got %+v", stats)
	}

	var inmate Inmate
	if err := db.Where("booking_number = ?", "25-3").Take(&inmate).Error; err != nil {
		t.Fatalf("failed to load inmate: %v", err)
	}
	if inmate.Age != nil {
		t.Fatalf("expected absent age, got %v", *inmate.Age)
	}
	var chargeCount int64
	db.Model(&Charge{}).Where("inmate_id = ?", inmate.ID).Count(&chargeCount)
	if chargeCount != 0 {
		t.Fatalf("expected no charges after fetch failure, got %d", chargeCount)
	}
}

func TestRunStopsMidFilterWhenLimitReached(t *testing.T) {
	db := openTestDatabase(t)
	source := &fakeSource{
		searchRows: map[string][]jail.SearchRow{
			"a": {
				{BookingNumber: "25-1", InmateName: "A, ONE"},
				{BookingNumber: "25-2", InmateName: "B, TWO"},
				{BookingNumber: "25-3", InmateName: "C, THREE"},
			},
		},
	}

	stats, err := newTestScraper(t, db, source).Run(context.Background(), ScrapeOptions{Filters: []string{"a"}, Limit: 2})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if stats.Scanned != 2 || stats.Created != 2 {
		t.Fatalf("expected run to stop at the cap, got %+v", stats)
	}

	var inmateCount int64
	db.Model(&Inmate{}).Count(&inmateCount)
	if inmateCount != 2 {
		t.Fatalf("expected two persisted inmates, got %d", inmateCount)
	}
}

func TestRunResetClearsStoreFirst(t *testing.T) {
	db := openTestDatabase(t)
	stale := Inmate{BookingNumber: "old-1", FirstName: "STALE"}
	if err := db.Create(&stale).Error; err != nil {
		t.Fatalf("failed to seed inmate: %v", err)
	}
	if err := db.Create(&Charge{InmateID: stale.ID, Description: "OLD CHARGE"}).Error; err != nil {
		t.Fatalf("failed to seed charge: %v", err)
	}

	source := &fakeSource{
		searchRows: map[string][]jail.SearchRow{
			"a": {{BookingNumber: "25-9", InmateName: "NEW, GUY"}},
		},
	}
	if _, err := newTestScraper(t, db, source).Run(context.Background(), ScrapeOptions{Filters: []string{"a"}, Reset: true}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	var staleCount int64
	db.Model(&Inmate{}).Where("booking_number = ?", "old-1").Count(&staleCount)
	if staleCount != 0 {
		t.Fatalf("expected reset to delete stale inmate")
	}
	var chargeCount int64
	db.Model(&Charge{}).Count(&chargeCount)
	if chargeCount != 0 {
		t.Fatalf("expected reset to delete stale charges, got %d", chargeCount)
	}
}

func TestRunChargeContainsRestrictsPersistedCharges(t *testing.T) {
	db := openTestDatabase(t)
	source := &fakeSource{
		searchRows: map[string][]jail.SearchRow{
			"a": {{BookingNumber: "25-4", InmateName: "POE, EDGAR"}},
		},
		charges: map[string][]jail.ChargeRow{
			"25-4": {{Charge: "POSSESSION OF CANNABIS"}, {Charge: "BATTERY"}},
		},
	}

	if _, err := newTestScraper(t, db, source).Run(context.Background(), ScrapeOptions{
		Filters:        []string{"a"},
		ChargeContains: "cannabis",
	}); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	var charges []Charge
	db.Find(&charges)
	if len(charges) != 1 || charges[0].Description != "POSSESSION OF CANNABIS" {
		t.Fatalf("expected only matching charge persisted, got %+v", charges)
	}
}

func TestParseAgeCoercions(t *testing.T) {
	if age := parseAge("34"); age == nil || *age != 34 {
		t.Fatalf("expected 34, got %v", age)
	}
	for _, field := range []string{"", "   ", "NULL", "null", "unknown", "12.5"} {
		if age := parseAge(field); age != nil {
			t.Fatalf("expected absent age for %q, got %d", field, *age)
		}
	}
}
