package services

import (
	"context"

	"learning-gamification/models"
)

// ProgressRepository persists progress records.
//
// FindByUserID returns models.ErrNotFound for unknown users. Save is an optimistic
// write: it fails with models.ErrConflict if the stored version moved since p was
// read, and bumps p.Version on success.
type ProgressRepository interface {
	FindByUserID(ctx context.Context, userID string) (*models.UserProgress, error)
	// Create stores p, or returns the existing record if one was created concurrently.
	Create(ctx context.Context, p *models.UserProgress) (*models.UserProgress, error)
	Save(ctx context.Context, p *models.UserProgress) error
	Leaderboard(ctx context.Context, t models.LeaderboardType, offset, limit int) ([]models.UserProgress, error)
	CountAbove(ctx context.Context, t models.LeaderboardType, score int64) (int64, error)
	Count(ctx context.Context) (int64, error)
}

// CatalogStore persists the badge/achievement catalog and its counters.
type CatalogStore interface {
	LoadBadges(ctx context.Context) ([]models.Badge, error)
	LoadAchievements(ctx context.Context) ([]models.Achievement, error)
	ReplaceCatalog(ctx context.Context, badges []models.Badge, achievements []models.Achievement) error
	IncrementCounter(ctx context.Context, kind models.CounterKind, itemID string) error
	Counters(ctx context.Context, kind models.CounterKind) (map[string]int64, error)
}
