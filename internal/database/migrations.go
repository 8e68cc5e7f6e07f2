package database

import (
	"errors"
	"time"

	"github.com/GameHubLabs/rosterquiz/backend/internal/leaderboard"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const migrationBackfillAnonymousNames = "2026-06-02_backfill_anonymous_leaderboard_names"

type migrationRecord struct {
	Name             string `gorm:"column:name;primaryKey;size:190;not null"`
	AppliedAtSeconds int64  `gorm:"column:applied_at_s;not null"`
}

func (migrationRecord) TableName() string {
	return "db_migrations"
}

type migrationDefinition struct {
	name  string
	apply func(*gorm.DB) error
}

func applyMigrations(db *gorm.DB, logger *zap.Logger) error {
	migrations := []migrationDefinition{
		{name: migrationBackfillAnonymousNames, apply: backfillAnonymousLeaderboardNames},
	}

	for _, migration := range migrations {
		var record migrationRecord
		err := db.Where("name = ?", migration.name).Take(&record).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := migration.apply(db); err != nil {
			return err
		}
		appliedAt := time.Now().UTC().Unix()
		if err := db.Create(&migrationRecord{Name: migration.name, AppliedAtSeconds: appliedAt}).Error; err != nil {
			return err
		}
		if logger != nil {
			logger.Info("database migration applied", zap.String("migration", migration.name))
		}
	}
	return nil
}

// Entries written before name normalization moved into the service could
// carry blank names; rewrite them to the placeholder the service uses now.
func backfillAnonymousLeaderboardNames(db *gorm.DB) error {
	return db.Model(&leaderboard.Entry{}).
		Where("TRIM(name) = ''").
		Update("name", leaderboard.PlaceholderName).Error
}
