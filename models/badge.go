package models

import (
	"fmt"
	"strings"
	"time"
)

type BadgeCategory string

const (
	BadgeCategoryCourse      BadgeCategory = "course"
	BadgeCategoryQuiz        BadgeCategory = "quiz"
	BadgeCategoryReview      BadgeCategory = "review"
	BadgeCategoryStreak      BadgeCategory = "streak"
	BadgeCategoryAchievement BadgeCategory = "achievement"
	BadgeCategorySpecial     BadgeCategory = "special"
)

type BadgeRarity string

const (
	RarityCommon    BadgeRarity = "common"
	RarityRare      BadgeRarity = "rare"
	RarityEpic      BadgeRarity = "epic"
	RarityLegendary BadgeRarity = "legendary"
)

// BadgeRequirement is a badge's single earn condition: Metric >= Value.
type BadgeRequirement struct {
	Metric Metric  `gorm:"type:varchar(64);not null" json:"metric" yaml:"metric"`
	Value  float64 `gorm:"not null" json:"value" yaml:"value"`
}

// Badge: static catalog entry (seeded or admin-curated)
type Badge struct {
	ID          string           `gorm:"primaryKey;type:varchar(128)" json:"id"`
	Name        string           `gorm:"uniqueIndex;not null" json:"name"`
	Description string           `json:"description"`
	Icon        string           `gorm:"type:text" json:"icon"`
	Color       string           `gorm:"type:varchar(32)" json:"color"`
	Category    BadgeCategory    `gorm:"type:varchar(16);not null" json:"category"`
	Rarity      BadgeRarity      `gorm:"type:varchar(16);default:'common'" json:"rarity"`
	Requirement BadgeRequirement `gorm:"embedded;embeddedPrefix:requirement_" json:"requirement"`
	XPReward    int64            `json:"xp_reward"`
	IsActive    bool             `json:"is_active"`
	CreatedAt   time.Time        `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt   time.Time        `json:"updated_at" gorm:"autoUpdateTime"`
}

// IsEarned evaluates the badge requirement against p. Unknown metrics never earn.
func (b *Badge) IsEarned(p *UserProgress) bool {
	v, ok := b.Requirement.Metric.Resolve(p)
	if !ok {
		return false
	}
	return v >= b.Requirement.Value
}

// Validate checks a catalog entry before it is accepted into the catalog.
func (b *Badge) Validate() error {
	if strings.TrimSpace(b.ID) == "" {
		return fmt.Errorf("%w: badge id is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("%w: badge %s: name is required", ErrInvalidArgument, b.ID)
	}
	switch b.Category {
	case BadgeCategoryCourse, BadgeCategoryQuiz, BadgeCategoryReview,
		BadgeCategoryStreak, BadgeCategoryAchievement, BadgeCategorySpecial:
	default:
		return fmt.Errorf("%w: badge %s: unknown category %q", ErrInvalidArgument, b.ID, b.Category)
	}
	switch b.Rarity {
	case RarityCommon, RarityRare, RarityEpic, RarityLegendary:
	default:
		return fmt.Errorf("%w: badge %s: unknown rarity %q", ErrInvalidArgument, b.ID, b.Rarity)
	}
	if !b.Requirement.Metric.Valid() {
		return fmt.Errorf("%w: badge %s: unknown metric %q", ErrInvalidArgument, b.ID, b.Requirement.Metric)
	}
	if b.XPReward < 0 || b.XPReward > MaxXPGrant {
		return fmt.Errorf("%w: badge %s: xp reward must be within 0..%d", ErrInvalidArgument, b.ID, MaxXPGrant)
	}
	return nil
}
