package models

import (
	"fmt"
	"math"
	"strings"
	"time"

	"gorm.io/datatypes"
)

type AchievementCategory string

const (
	AchievementCategoryLearning    AchievementCategory = "learning"
	AchievementCategorySocial      AchievementCategory = "social"
	AchievementCategoryMastery     AchievementCategory = "mastery"
	AchievementCategoryDedication  AchievementCategory = "dedication"
	AchievementCategoryExploration AchievementCategory = "exploration"
)

type AchievementType string

const (
	AchievementTypeMilestone AchievementType = "milestone"
	AchievementTypeChallenge AchievementType = "challenge"
	AchievementTypeHidden    AchievementType = "hidden"
	AchievementTypeSpecial   AchievementType = "special"
)

// Operator compares a progress value against a requirement value.
type Operator string

const (
	OpGreaterOrEqual Operator = ">="
	OpGreater        Operator = ">"
	OpEqual          Operator = "=="
	OpLessOrEqual    Operator = "<="
	OpLess           Operator = "<"
)

// Valid reports whether o is a supported comparison.
func (o Operator) Valid() bool {
	switch o {
	case OpGreaterOrEqual, OpGreater, OpEqual, OpLessOrEqual, OpLess:
		return true
	}
	return false
}

// Compare applies o to actual and want. Unknown operators never match.
func (o Operator) Compare(actual, want float64) bool {
	switch o {
	case OpGreaterOrEqual:
		return actual >= want
	case OpGreater:
		return actual > want
	case OpEqual:
		return actual == want
	case OpLessOrEqual:
		return actual <= want
	case OpLess:
		return actual < want
	}
	return false
}

// Condition is one achievement requirement.
type Condition struct {
	Metric   Metric   `json:"metric" yaml:"metric"`
	Operator Operator `json:"operator" yaml:"operator"`
	Value    float64  `json:"value" yaml:"value"`
}

// AchievementRewards are granted once, on unlock.
type AchievementRewards struct {
	XP      int64  `json:"xp" yaml:"xp"`
	BadgeID string `json:"badge_id,omitempty" yaml:"badge"`
	Title   string `json:"title,omitempty" yaml:"title"`
}

// Achievement: multi-requirement catalog entry with rewards
type Achievement struct {
	ID           string                                 `gorm:"primaryKey;type:varchar(128)" json:"id"`
	Name         string                                 `gorm:"uniqueIndex;not null" json:"name"`
	Description  string                                 `json:"description"`
	Icon         string                                 `gorm:"type:text" json:"icon"`
	Color        string                                 `gorm:"type:varchar(32)" json:"color"`
	Category     AchievementCategory                    `gorm:"type:varchar(16);not null" json:"category"`
	Type         AchievementType                        `gorm:"type:varchar(16);not null" json:"type"`
	Requirements []Condition                            `gorm:"serializer:json;type:jsonb" json:"requirements"`
	Rewards      datatypes.JSONType[AchievementRewards] `json:"rewards"`
	IsHidden     bool                                   `json:"is_hidden"`
	IsActive     bool                                   `json:"is_active"`
	CreatedAt    time.Time                              `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time                              `json:"updated_at" gorm:"autoUpdateTime"`
}

// Evaluation is the result of checking an achievement against one record.
type Evaluation struct {
	Unlocked bool `json:"unlocked"`
	Progress int  `json:"progress"`
	Met      int  `json:"met"`
	Total    int  `json:"total"`
}

// Reward returns the decoded reward payload.
func (a *Achievement) Reward() AchievementRewards {
	return a.Rewards.Data()
}

// Evaluate checks every requirement against p. The achievement unlocks only when
// all requirements hold; progress is the share of satisfied requirements,
// rounded to a whole percent. Unknown metrics read as 0.
func (a *Achievement) Evaluate(p *UserProgress) Evaluation {
	total := len(a.Requirements)
	if total == 0 {
		return Evaluation{}
	}
	met := 0
	for _, req := range a.Requirements {
		if req.Operator.Compare(req.Metric.Value(p), req.Value) {
			met++
		}
	}
	return Evaluation{
		Unlocked: met == total,
		Progress: int(math.Round(float64(met) / float64(total) * 100)),
		Met:      met,
		Total:    total,
	}
}

// Validate checks a catalog entry before it is accepted into the catalog.
func (a *Achievement) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("%w: achievement id is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(a.Name) == "" {
		return fmt.Errorf("%w: achievement %s: name is required", ErrInvalidArgument, a.ID)
	}
	switch a.Category {
	case AchievementCategoryLearning, AchievementCategorySocial, AchievementCategoryMastery,
		AchievementCategoryDedication, AchievementCategoryExploration:
	default:
		return fmt.Errorf("%w: achievement %s: unknown category %q", ErrInvalidArgument, a.ID, a.Category)
	}
	switch a.Type {
	case AchievementTypeMilestone, AchievementTypeChallenge, AchievementTypeHidden, AchievementTypeSpecial:
	default:
		return fmt.Errorf("%w: achievement %s: unknown type %q", ErrInvalidArgument, a.ID, a.Type)
	}
	if len(a.Requirements) == 0 {
		return fmt.Errorf("%w: achievement %s: at least one requirement is needed", ErrInvalidArgument, a.ID)
	}
	for i, req := range a.Requirements {
		if !req.Metric.Valid() {
			return fmt.Errorf("%w: achievement %s: requirement %d: unknown metric %q", ErrInvalidArgument, a.ID, i, req.Metric)
		}
		if !req.Operator.Valid() {
			return fmt.Errorf("%w: achievement %s: requirement %d: unknown operator %q", ErrInvalidArgument, a.ID, i, req.Operator)
		}
	}
	if xp := a.Reward().XP; xp < 0 || xp > MaxXPGrant {
		return fmt.Errorf("%w: achievement %s: xp reward must be within 0..%d", ErrInvalidArgument, a.ID, MaxXPGrant)
	}
	return nil
}
