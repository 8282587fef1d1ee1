package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"learning-gamification/models"
)

// MemoryProgressRepository keeps progress records in process memory. It backs
// local runs without DATABASE_URL and the service tests.
type MemoryProgressRepository struct {
	mu      sync.RWMutex
	records map[string]*models.UserProgress
}

func NewMemoryProgressRepository() *MemoryProgressRepository {
	return &MemoryProgressRepository{records: map[string]*models.UserProgress{}}
}

func (r *MemoryProgressRepository) FindByUserID(_ context.Context, userID string) (*models.UserProgress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.records[userID]
	if !ok {
		return nil, fmt.Errorf("%w: progress record for %s", models.ErrNotFound, userID)
	}
	return p.Clone(), nil
}

func (r *MemoryProgressRepository) Create(_ context.Context, p *models.UserProgress) (*models.UserProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.records[p.ExternalUserID]; ok {
		return existing.Clone(), nil
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	r.records[p.ExternalUserID] = p.Clone()
	return p, nil
}

func (r *MemoryProgressRepository) Save(_ context.Context, p *models.UserProgress) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.records[p.ExternalUserID]
	if !ok {
		return fmt.Errorf("%w: progress record for %s", models.ErrNotFound, p.ExternalUserID)
	}
	if stored.Version != p.Version {
		return fmt.Errorf("%w: progress record for %s changed since it was read", models.ErrConflict, p.ExternalUserID)
	}
	p.Version++
	p.UpdatedAt = time.Now()
	r.records[p.ExternalUserID] = p.Clone()
	return nil
}

func (r *MemoryProgressRepository) sorted(t models.LeaderboardType) []*models.UserProgress {
	all := make([]*models.UserProgress, 0, len(r.records))
	for _, p := range r.records {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool { return t.Before(all[i], all[j]) })
	return all
}

func (r *MemoryProgressRepository) Leaderboard(_ context.Context, t models.LeaderboardType, offset, limit int) ([]models.UserProgress, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := r.sorted(t)
	if offset >= len(all) {
		return []models.UserProgress{}, nil
	}
	end := min(offset+limit, len(all))
	out := make([]models.UserProgress, 0, end-offset)
	for _, p := range all[offset:end] {
		out = append(out, *p.Clone())
	}
	return out, nil
}

func (r *MemoryProgressRepository) CountAbove(_ context.Context, t models.LeaderboardType, score int64) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, p := range r.records {
		if t.Score(p) > score {
			n++
		}
	}
	return n, nil
}

func (r *MemoryProgressRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.records)), nil
}

// MemoryCatalogStore is the in-process CatalogStore.
type MemoryCatalogStore struct {
	mu           sync.RWMutex
	badges       []models.Badge
	achievements []models.Achievement
	counters     map[models.CounterKind]map[string]int64
}

func NewMemoryCatalogStore() *MemoryCatalogStore {
	return &MemoryCatalogStore{counters: map[models.CounterKind]map[string]int64{}}
}

func (s *MemoryCatalogStore) LoadBadges(context.Context) ([]models.Badge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Badge(nil), s.badges...), nil
}

func (s *MemoryCatalogStore) LoadAchievements(context.Context) ([]models.Achievement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Achievement(nil), s.achievements...), nil
}

func (s *MemoryCatalogStore) ReplaceCatalog(_ context.Context, badges []models.Badge, achievements []models.Achievement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.badges = append([]models.Badge(nil), badges...)
	s.achievements = append([]models.Achievement(nil), achievements...)
	sort.Slice(s.badges, func(i, j int) bool { return s.badges[i].ID < s.badges[j].ID })
	sort.Slice(s.achievements, func(i, j int) bool { return s.achievements[i].ID < s.achievements[j].ID })
	return nil
}

func (s *MemoryCatalogStore) IncrementCounter(_ context.Context, kind models.CounterKind, itemID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counters[kind] == nil {
		s.counters[kind] = map[string]int64{}
	}
	s.counters[kind][itemID]++
	return nil
}

func (s *MemoryCatalogStore) Counters(_ context.Context, kind models.CounterKind) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int64, len(s.counters[kind]))
	for id, n := range s.counters[kind] {
		out[id] = n
	}
	return out, nil
}
