package classify

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"testing"

	"github.com/GameHubLabs/rosterquiz/backend/internal/roster"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openTestDatabase(t *testing.T) *gorm.DB {
	t.Helper()
	databasePath := filepath.Join(t.TempDir(), "classify.db")
	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	err = db.AutoMigrate(
		&roster.Inmate{}, &roster.Charge{},
		&ChildAbuseIndex{}, &NonChildAbuseIndex{},
		&MurderIndex{}, &NonMurderIndex{},
		&CannabisIndex{}, &CocaineFentanylIndex{},
	)
	if err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	return db
}

func newTestService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	service, err := NewService(ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func seedInmate(t *testing.T, db *gorm.DB, booking string, descriptions ...string) uint {
	t.Helper()
	inmate := roster.Inmate{BookingNumber: booking}
	if err := db.Create(&inmate).Error; err != nil {
		t.Fatalf("failed to seed inmate: %v", err)
	}
	for _, description := range descriptions {
		if err := db.Create(&roster.Charge{InmateID: inmate.ID, Description: description}).Error; err != nil {
			t.Fatalf("failed to seed charge: %v", err)
		}
	}
	return inmate.ID
}

func sideIDs(t *testing.T, service *Service, mode Mode, positive bool) []uint {
	t.Helper()
	ids, err := service.SideInmateIDs(context.Background(), mode, positive)
	if err != nil {
		t.Fatalf("failed to list side ids: %v", err)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func TestRunEmptyStoreReportsNothingToClassify(t *testing.T) {
	service := newTestService(t, openTestDatabase(t))
	if _, err := service.Run(context.Background(), ModeMurder); !errors.Is(err, ErrNothingToClassify) {
		t.Fatalf("expected ErrNothingToClassify, got %v", err)
	}
}

func TestRunMurderPartitionsPopulation(t *testing.T) {
	db := openTestDatabase(t)
	murderID := seedInmate(t, db, "25-1", "MURDER IN THE FIRST DEGREE")
	otherID := seedInmate(t, db, "25-2", "PETIT THEFT")
	chargelessID := seedInmate(t, db, "25-3")

	service := newTestService(t, db)
	result, err := service.Run(context.Background(), ModeMurder)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Positive != 1 || result.Negative != 2 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if result.Positive+result.Negative != 3 {
		t.Fatalf("sides must partition the population, got %+v", result)
	}

	positives := sideIDs(t, service, ModeMurder, true)
	negatives := sideIDs(t, service, ModeMurder, false)
	if len(positives) != 1 || positives[0] != murderID {
		t.Fatalf("unexpected positive side: %v", positives)
	}
	wantNegatives := []uint{otherID, chargelessID}
	sort.Slice(wantNegatives, func(i, j int) bool { return wantNegatives[i] < wantNegatives[j] })
	if len(negatives) != 2 || negatives[0] != wantNegatives[0] || negatives[1] != wantNegatives[1] {
		t.Fatalf("unexpected negative side: %v", negatives)
	}
}

func TestRunChildRequiresSameChargeCoOccurrence(t *testing.T) {
	db := openTestDatabase(t)
	// Keyword and "child" in the same charge: positive.
	coOccurID := seedInmate(t, db, "25-1", "LEWD CONDUCT IN PRESENCE OF CHILD")
	// "child" in one charge, keyword only in another: negative.
	splitID := seedInmate(t, db, "25-2", "INTERFERENCE WITH CHILD CUSTODY", "AGGRAVATED ASSAULT")
	// Keyword with no "child" anywhere: negative.
	keywordOnlyID := seedInmate(t, db, "25-3", "SEXUAL BATTERY")

	service := newTestService(t, db)
	result, err := service.Run(context.Background(), ModeChild)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Positive != 1 || result.Negative != 2 {
		t.Fatalf("unexpected counts: %+v", result)
	}

	positives := sideIDs(t, service, ModeChild, true)
	if len(positives) != 1 || positives[0] != coOccurID {
		t.Fatalf("unexpected positive side: %v", positives)
	}
	negatives := sideIDs(t, service, ModeChild, false)
	if len(negatives) != 2 {
		t.Fatalf("unexpected negative side: %v", negatives)
	}
	for _, id := range negatives {
		if id != splitID && id != keywordOnlyID {
			t.Fatalf("unexpected id on negative side: %d", id)
		}
	}
}

func TestRunDrugsSetsAreIndependent(t *testing.T) {
	db := openTestDatabase(t)
	bothID := seedInmate(t, db, "25-1", "POSSESSION OF CANNABIS", "TRAFFICKING IN COCAINE")
	cannabisID := seedInmate(t, db, "25-2", "POSSESSION OF CANNABIS UNDER 20 GRAMS")
	fentanylID := seedInmate(t, db, "25-3", "POSSESSION OF FENTANYL")
	neitherID := seedInmate(t, db, "25-4", "DRIVING WHILE LICENSE SUSPENDED")

	service := newTestService(t, db)
	result, err := service.Run(context.Background(), ModeDrugs)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if result.Positive != 2 || result.Negative != 2 {
		t.Fatalf("unexpected counts: %+v", result)
	}

	cannabisSide := sideIDs(t, service, ModeDrugs, true)
	cocaineSide := sideIDs(t, service, ModeDrugs, false)
	if len(cannabisSide) != 2 {
		t.Fatalf("unexpected cannabis side: %v", cannabisSide)
	}
	if cannabisSide[0] != bothID || cannabisSide[1] != cannabisID {
		t.Fatalf("unexpected cannabis side members: %v", cannabisSide)
	}
	if len(cocaineSide) != 2 || cocaineSide[0] != bothID || cocaineSide[1] != fentanylID {
		t.Fatalf("unexpected cocaine/fentanyl side: %v", cocaineSide)
	}
	for _, id := range append(cannabisSide, cocaineSide...) {
		if id == neitherID {
			t.Fatalf("inmate without drug charges must not be marked")
		}
	}
}

func TestRunIsIdempotentAcrossReruns(t *testing.T) {
	db := openTestDatabase(t)
	seedInmate(t, db, "25-1", "MURDER SECOND DEGREE")
	seedInmate(t, db, "25-2", "BURGLARY")

	service := newTestService(t, db)
	first, err := service.Run(context.Background(), ModeMurder)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	firstPositives := sideIDs(t, service, ModeMurder, true)

	second, err := service.Run(context.Background(), ModeMurder)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if first != second {
		t.Fatalf("expected identical results, got %+v then %+v", first, second)
	}
	secondPositives := sideIDs(t, service, ModeMurder, true)
	if len(firstPositives) != len(secondPositives) || firstPositives[0] != secondPositives[0] {
		t.Fatalf("expected identical index sets, got %v then %v", firstPositives, secondPositives)
	}

	var markerCount int64
	db.Model(&MurderIndex{}).Count(&markerCount)
	if markerCount != 1 {
		t.Fatalf("expected one murder marker after rerun, got %d", markerCount)
	}
}

func TestParseMode(t *testing.T) {
	for raw, want := range map[string]Mode{"child": ModeChild, " MURDER ": ModeMurder, "drugs": ModeDrugs} {
		mode, err := ParseMode(raw)
		if err != nil {
			t.Fatalf("ParseMode(%q) returned error: %v", raw, err)
		}
		if mode != want {
			t.Fatalf("ParseMode(%q) = %q, want %q", raw, mode, want)
		}
	}
	if _, err := ParseMode("roulette"); !errors.Is(err, ErrUnknownMode) {
		t.Fatalf("expected ErrUnknownMode")
	}
}

func TestChildAbusePredicate(t *testing.T) {
	cases := []struct {
		description string
		want        bool
	}{
		{"LEWD OR LASCIVIOUS MOLESTATION OF CHILD", true},
		{"CHILD ABUSE", true},
		{"INTERFERENCE WITH CHILD CUSTODY", false},
		{"SEXUAL BATTERY", false},
		{"", false},
	}
	for _, testCase := range cases {
		if got := childAbusePositive(testCase.description); got != testCase.want {
			t.Fatalf("childAbusePositive(%q) = %v, want %v", testCase.description, got, testCase.want)
		}
	}
}
