package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/GameHubLabs/rosterquiz/backend/internal/classify"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	databasePath := filepath.Join(t.TempDir(), "leaderboard.db")
	db, err := gorm.Open(sqlite.Open(databasePath), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	service, err := NewService(ServiceConfig{Database: db})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service, db
}

func TestSubmitRejectsNonPositiveScores(t *testing.T) {
	service, db := newTestService(t)

	for _, score := range []int{0, -3} {
		if _, err := service.Submit(context.Background(), "player", score, classify.ModeChild); !errors.Is(err, ErrScoreNotPositive) {
			t.Fatalf("expected ErrScoreNotPositive for score %d, got %v", score, err)
		}
	}
	var count int64
	db.Model(&Entry{}).Count(&count)
	if count != 0 {
		t.Fatalf("no entry may be stored for non-positive scores, found %d", count)
	}
}

func TestSubmitDefaultsBlankNameToPlaceholder(t *testing.T) {
	service, _ := newTestService(t)

	entry, err := service.Submit(context.Background(), "   ", 7, classify.ModeMurder)
	if err != nil {
		t.Fatalf("Submit returned error: %v", err)
	}
	if entry.Name != PlaceholderName {
		t.Fatalf("expected placeholder name, got %q", entry.Name)
	}
	if entry.Score != 7 || entry.Mode != "murder" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestTopOrdersByScoreThenSubmissionTime(t *testing.T) {
	service, db := newTestService(t)

	base := time.Unix(1700000000, 0).UTC()
	rows := []Entry{
		{Name: "late-high", Score: 20, Mode: "drugs", CreatedAt: base.Add(2 * time.Minute)},
		{Name: "early-high", Score: 20, Mode: "drugs", CreatedAt: base},
		{Name: "low", Score: 5, Mode: "drugs", CreatedAt: base},
		{Name: "other-mode", Score: 99, Mode: "child", CreatedAt: base},
	}
	for i := range rows {
		if err := db.Create(&rows[i]).Error; err != nil {
			t.Fatalf("failed to seed entry: %v", err)
		}
	}

	entries, err := service.Top(context.Background(), classify.ModeDrugs)
	if err != nil {
		t.Fatalf("Top returned error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected three drugs entries, got %d", len(entries))
	}
	if entries[0].Name != "early-high" || entries[1].Name != "late-high" || entries[2].Name != "low" {
		t.Fatalf("unexpected ordering: %v %v %v", entries[0].Name, entries[1].Name, entries[2].Name)
	}
}

func TestTopCapsAtFiftyEntries(t *testing.T) {
	service, db := newTestService(t)

	for i := 0; i < 60; i++ {
		entry := Entry{Name: fmt.Sprintf("player-%d", i), Score: i + 1, Mode: "murder"}
		if err := db.Create(&entry).Error; err != nil {
			t.Fatalf("failed to seed entry: %v", err)
		}
	}

	entries, err := service.Top(context.Background(), classify.ModeMurder)
	if err != nil {
		t.Fatalf("Top returned error: %v", err)
	}
	if len(entries) != 50 {
		t.Fatalf("expected top fifty, got %d", len(entries))
	}
	if entries[0].Score != 60 {
		t.Fatalf("expected best score first, got %d", entries[0].Score)
	}
}
