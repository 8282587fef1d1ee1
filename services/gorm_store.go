package services

import (
	"context"
	"errors"
	"fmt"

	"learning-gamification/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormProgressRepository struct {
	DB *gorm.DB
}

func NewGormProgressRepository(db *gorm.DB) *GormProgressRepository {
	return &GormProgressRepository{DB: db}
}

func (r *GormProgressRepository) FindByUserID(ctx context.Context, userID string) (*models.UserProgress, error) {
	var prog models.UserProgress
	err := r.DB.WithContext(ctx).Where("external_user_id = ?", userID).First(&prog).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: progress record for %s", models.ErrNotFound, userID)
	}
	if err != nil {
		return nil, err
	}
	return &prog, nil
}

func (r *GormProgressRepository) Create(ctx context.Context, p *models.UserProgress) (*models.UserProgress, error) {
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "external_user_id"}}, DoNothing: true}).
		Create(p)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		// lost the race against another request creating the same user
		return r.FindByUserID(ctx, p.ExternalUserID)
	}
	return p, nil
}

func (r *GormProgressRepository) Save(ctx context.Context, p *models.UserProgress) error {
	prev := p.Version
	p.Version = prev + 1
	res := r.DB.WithContext(ctx).
		Model(p).
		Where("version = ?", prev).
		Select("*").
		Omit("id", "created_at").
		Updates(p)
	if res.Error != nil {
		p.Version = prev
		return res.Error
	}
	if res.RowsAffected == 0 {
		p.Version = prev
		return fmt.Errorf("%w: progress record for %s changed since it was read", models.ErrConflict, p.ExternalUserID)
	}
	return nil
}

func (r *GormProgressRepository) Leaderboard(ctx context.Context, t models.LeaderboardType, offset, limit int) ([]models.UserProgress, error) {
	var rows []models.UserProgress
	q := r.DB.WithContext(ctx).Order(clause.OrderByColumn{Column: clause.Column{Name: t.Column()}, Desc: true})
	if t != models.LeaderboardXP {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: "total_xp"}, Desc: true})
	}
	err := q.Order("external_user_id ASC").
		Offset(offset).
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *GormProgressRepository) CountAbove(ctx context.Context, t models.LeaderboardType, score int64) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).
		Model(&models.UserProgress{}).
		Where(clause.Gt{Column: clause.Column{Name: t.Column()}, Value: score}).
		Count(&n).Error
	return n, err
}

func (r *GormProgressRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).Model(&models.UserProgress{}).Count(&n).Error
	return n, err
}

type GormCatalogStore struct {
	DB *gorm.DB
}

func NewGormCatalogStore(db *gorm.DB) *GormCatalogStore {
	return &GormCatalogStore{DB: db}
}

func (s *GormCatalogStore) LoadBadges(ctx context.Context) ([]models.Badge, error) {
	var badges []models.Badge
	err := s.DB.WithContext(ctx).Order("id ASC").Find(&badges).Error
	return badges, err
}

func (s *GormCatalogStore) LoadAchievements(ctx context.Context) ([]models.Achievement, error) {
	var achievements []models.Achievement
	err := s.DB.WithContext(ctx).Order("id ASC").Find(&achievements).Error
	return achievements, err
}

// ReplaceCatalog swaps the whole catalog in one transaction. Counters are kept.
func (s *GormCatalogStore) ReplaceCatalog(ctx context.Context, badges []models.Badge, achievements []models.Achievement) error {
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		all := tx.Session(&gorm.Session{AllowGlobalUpdate: true})
		if err := all.Delete(&models.Badge{}).Error; err != nil {
			return err
		}
		if err := all.Delete(&models.Achievement{}).Error; err != nil {
			return err
		}
		if len(badges) > 0 {
			if err := tx.CreateInBatches(badges, 100).Error; err != nil {
				return err
			}
		}
		if len(achievements) > 0 {
			if err := tx.CreateInBatches(achievements, 100).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *GormCatalogStore) IncrementCounter(ctx context.Context, kind models.CounterKind, itemID string) error {
	return s.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "kind"}, {Name: "item_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"count":      gorm.Expr("catalog_counters.count + 1"),
				"updated_at": gorm.Expr("CURRENT_TIMESTAMP"),
			}),
		}).
		Create(&models.CatalogCounter{Kind: kind, ItemID: itemID, Count: 1}).Error
}

func (s *GormCatalogStore) Counters(ctx context.Context, kind models.CounterKind) (map[string]int64, error) {
	var rows []models.CatalogCounter
	if err := s.DB.WithContext(ctx).Where("kind = ?", kind).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.ItemID] = row.Count
	}
	return out, nil
}
