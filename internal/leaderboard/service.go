package leaderboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GameHubLabs/rosterquiz/backend/internal/classify"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// PlaceholderName stands in for a blank display name.
	PlaceholderName = "Anonymous"
	topEntryLimit   = 50
	maxNameLength   = 50
)

var (
	errMissingDatabase = errors.New("leaderboard: database handle is required")

	// ErrScoreNotPositive indicates a submission with a zero or negative
	// score; such games are never recorded.
	ErrScoreNotPositive = errors.New("leaderboard: score must be positive")
)

// Entry is one immutable leaderboard record.
type Entry struct {
	ID        uint      `gorm:"column:id;primaryKey"`
	Name      string    `gorm:"column:name;size:50;not null"`
	Score     int       `gorm:"column:score;not null"`
	Mode      string    `gorm:"column:mode;size:20;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

// TableName provides the explicit table binding for GORM.
func (Entry) TableName() string {
	return "leaderboard_entries"
}

// ServiceConfig describes the leaderboard dependencies.
type ServiceConfig struct {
	Database *gorm.DB
	Logger   *zap.Logger
}

// Service records final scores and serves the per-mode top lists.
type Service struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewService constructs the leaderboard service.
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

// Submit records a finished game. Blank names default to the placeholder;
// scores must be strictly positive or nothing is persisted.
func (s *Service) Submit(ctx context.Context, name string, score int, mode classify.Mode) (Entry, error) {
	if score <= 0 {
		return Entry{}, ErrScoreNotPositive
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = PlaceholderName
	}
	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}

	entry := Entry{Name: name, Score: score, Mode: mode.String()}
	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		return Entry{}, fmt.Errorf("leaderboard: insert entry: %w", err)
	}
	s.logger.Info("leaderboard entry recorded",
		zap.String("mode", mode.String()),
		zap.String("name", name),
		zap.Int("score", score))
	return entry, nil
}

// Top returns up to fifty entries for a mode, best score first, earliest
// submission winning ties.
func (s *Service) Top(ctx context.Context, mode classify.Mode) ([]Entry, error) {
	var entries []Entry
	if err := s.db.WithContext(ctx).
		Where("mode = ?", mode.String()).
		Order("score DESC, created_at ASC").
		Limit(topEntryLimit).
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("leaderboard: list entries: %w", err)
	}
	return entries, nil
}
