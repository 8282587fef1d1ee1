package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"learning-gamification/models"

	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"
	"gorm.io/datatypes"
)

// CatalogSeed is the YAML document accepted by SeedCatalog.
//
//	badges:
//	  - name: First Steps
//	    category: course
//	    requirement: {metric: coursesCompleted, value: 1}
//	    xp_reward: 50
//	achievements:
//	  - name: Well Rounded
//	    category: exploration
//	    type: milestone
//	    requirements:
//	      - {metric: coursesCompleted, operator: ">=", value: 1}
//	    rewards: {xp: 150, title: Explorer}
type CatalogSeed struct {
	Badges       []BadgeSeed       `yaml:"badges"`
	Achievements []AchievementSeed `yaml:"achievements"`
}

type BadgeSeed struct {
	ID          string                  `yaml:"id"`
	Name        string                  `yaml:"name"`
	Description string                  `yaml:"description"`
	Icon        string                  `yaml:"icon"`
	Color       string                  `yaml:"color"`
	Category    string                  `yaml:"category"`
	Rarity      string                  `yaml:"rarity"`
	Requirement models.BadgeRequirement `yaml:"requirement"`
	XPReward    int64                   `yaml:"xp_reward"`
	Active      *bool                   `yaml:"active"`
}

type AchievementSeed struct {
	ID           string                    `yaml:"id"`
	Name         string                    `yaml:"name"`
	Description  string                    `yaml:"description"`
	Icon         string                    `yaml:"icon"`
	Color        string                    `yaml:"color"`
	Category     string                    `yaml:"category"`
	Type         string                    `yaml:"type"`
	Requirements []models.Condition        `yaml:"requirements"`
	Rewards      models.AchievementRewards `yaml:"rewards"`
	Hidden       bool                      `yaml:"hidden"`
	Active       *bool                     `yaml:"active"`
}

// ParseCatalogSeed decodes a YAML seed into catalog entries. Unknown keys are
// rejected, missing ids are derived from the name, rarity defaults to common
// and entries are active unless stated otherwise.
func ParseCatalogSeed(r io.Reader) ([]models.Badge, []models.Achievement, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc CatalogSeed
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("%w: catalog seed is empty", models.ErrInvalidArgument)
		}
		return nil, nil, fmt.Errorf("%w: invalid catalog seed: %v", models.ErrInvalidArgument, err)
	}

	badges := make([]models.Badge, 0, len(doc.Badges))
	for _, b := range doc.Badges {
		rarity := models.BadgeRarity(strings.ToLower(b.Rarity))
		if rarity == "" {
			rarity = models.RarityCommon
		}
		badges = append(badges, models.Badge{
			ID:          seedID(b.ID, b.Name),
			Name:        strings.TrimSpace(b.Name),
			Description: b.Description,
			Icon:        b.Icon,
			Color:       b.Color,
			Category:    models.BadgeCategory(strings.ToLower(b.Category)),
			Rarity:      rarity,
			Requirement: b.Requirement,
			XPReward:    b.XPReward,
			IsActive:    b.Active == nil || *b.Active,
		})
	}

	achievements := make([]models.Achievement, 0, len(doc.Achievements))
	for _, a := range doc.Achievements {
		achievements = append(achievements, models.Achievement{
			ID:           seedID(a.ID, a.Name),
			Name:         strings.TrimSpace(a.Name),
			Description:  a.Description,
			Icon:         a.Icon,
			Color:        a.Color,
			Category:     models.AchievementCategory(strings.ToLower(a.Category)),
			Type:         models.AchievementType(strings.ToLower(a.Type)),
			Requirements: a.Requirements,
			Rewards:      datatypes.NewJSONType(a.Rewards),
			IsHidden:     a.Hidden,
			IsActive:     a.Active == nil || *a.Active,
		})
	}
	return badges, achievements, nil
}

func seedID(id, name string) string {
	if id = strings.TrimSpace(id); id != "" {
		return id
	}
	return slug.Make(name)
}

// SeedCatalog parses data and replaces the whole catalog with it.
func (s *CatalogService) SeedCatalog(ctx context.Context, data []byte) error {
	badges, achievements, err := ParseCatalogSeed(bytes.NewReader(data))
	if err != nil {
		return err
	}
	return s.Replace(ctx, badges, achievements)
}
