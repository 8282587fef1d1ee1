package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"learning-gamification/models"
)

// catalogSnapshot is immutable once published; readers never see a half-built catalog.
type catalogSnapshot struct {
	badges       []models.Badge
	achievements []models.Achievement
	badgeIdx     map[string]int
	achIdx       map[string]int
	loadedAt     time.Time
}

func newSnapshot(badges []models.Badge, achievements []models.Achievement) *catalogSnapshot {
	snap := &catalogSnapshot{
		badges:       badges,
		achievements: achievements,
		badgeIdx:     make(map[string]int, len(badges)),
		achIdx:       make(map[string]int, len(achievements)),
		loadedAt:     time.Now(),
	}
	for i, b := range badges {
		snap.badgeIdx[b.ID] = i
	}
	for i, a := range achievements {
		snap.achIdx[a.ID] = i
	}
	return snap
}

// CatalogService serves the badge and achievement catalogs from memory and
// keeps them in sync with the CatalogStore.
type CatalogService struct {
	store CatalogStore

	mu   sync.RWMutex
	snap *catalogSnapshot
}

func NewCatalogService(store CatalogStore) *CatalogService {
	return &CatalogService{store: store, snap: newSnapshot(nil, nil)}
}

func (s *CatalogService) current() *catalogSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

func (s *CatalogService) publish(snap *catalogSnapshot) {
	s.mu.Lock()
	s.snap = snap
	s.mu.Unlock()
}

// Refresh reloads the catalog from the store. Invalid rows are skipped and
// logged; the rest of the catalog still loads.
func (s *CatalogService) Refresh(ctx context.Context) error {
	badges, err := s.store.LoadBadges(ctx)
	if err != nil {
		return fmt.Errorf("failed to load badges: %w", err)
	}
	achievements, err := s.store.LoadAchievements(ctx)
	if err != nil {
		return fmt.Errorf("failed to load achievements: %w", err)
	}

	validBadges := make([]models.Badge, 0, len(badges))
	for i := range badges {
		if err := badges[i].Validate(); err != nil {
			log.Printf("⚠️ [CATALOG] Skipping badge %q: %v", badges[i].ID, err)
			continue
		}
		validBadges = append(validBadges, badges[i])
	}
	validAchievements := make([]models.Achievement, 0, len(achievements))
	for i := range achievements {
		if err := achievements[i].Validate(); err != nil {
			log.Printf("⚠️ [CATALOG] Skipping achievement %q: %v", achievements[i].ID, err)
			continue
		}
		validAchievements = append(validAchievements, achievements[i])
	}

	s.publish(newSnapshot(validBadges, validAchievements))
	return nil
}

// Replace validates a complete catalog, stores it and makes it current. Nothing
// is written if any entry is invalid.
func (s *CatalogService) Replace(ctx context.Context, badges []models.Badge, achievements []models.Achievement) error {
	if err := ValidateCatalog(badges, achievements); err != nil {
		return err
	}
	if err := s.store.ReplaceCatalog(ctx, badges, achievements); err != nil {
		return fmt.Errorf("failed to store catalog: %w", err)
	}
	log.Printf("📦 [CATALOG] Replaced catalog: %d badges, %d achievements", len(badges), len(achievements))
	return s.Refresh(ctx)
}

// EnsureSeeded installs the built-in catalog when the store holds none, then loads it.
func (s *CatalogService) EnsureSeeded(ctx context.Context) error {
	badges, err := s.store.LoadBadges(ctx)
	if err != nil {
		return fmt.Errorf("failed to load badges: %w", err)
	}
	achievements, err := s.store.LoadAchievements(ctx)
	if err != nil {
		return fmt.Errorf("failed to load achievements: %w", err)
	}
	if len(badges) == 0 && len(achievements) == 0 {
		log.Println("🌱 [CATALOG] Store is empty, seeding built-in catalog")
		return s.Replace(ctx, models.DefaultBadges(), models.DefaultAchievements())
	}
	return s.Refresh(ctx)
}

// ValidateCatalog checks every entry plus the cross references between them:
// unique ids and names, and achievement reward badges that exist.
func ValidateCatalog(badges []models.Badge, achievements []models.Achievement) error {
	var errs []error
	badgeIDs := make(map[string]bool, len(badges))
	names := make(map[string]bool, len(badges))
	for i := range badges {
		b := &badges[i]
		if err := b.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if badgeIDs[b.ID] {
			errs = append(errs, fmt.Errorf("%w: duplicate badge id %q", models.ErrInvalidArgument, b.ID))
		}
		if names[b.Name] {
			errs = append(errs, fmt.Errorf("%w: duplicate badge name %q", models.ErrInvalidArgument, b.Name))
		}
		badgeIDs[b.ID] = true
		names[b.Name] = true
	}

	achIDs := make(map[string]bool, len(achievements))
	achNames := make(map[string]bool, len(achievements))
	for i := range achievements {
		a := &achievements[i]
		if err := a.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if achIDs[a.ID] {
			errs = append(errs, fmt.Errorf("%w: duplicate achievement id %q", models.ErrInvalidArgument, a.ID))
		}
		if achNames[a.Name] {
			errs = append(errs, fmt.Errorf("%w: duplicate achievement name %q", models.ErrInvalidArgument, a.Name))
		}
		achIDs[a.ID] = true
		achNames[a.Name] = true
		if ref := a.Reward().BadgeID; ref != "" && !badgeIDs[ref] {
			errs = append(errs, fmt.Errorf("%w: achievement %s rewards unknown badge %q", models.ErrInvalidArgument, a.ID, ref))
		}
	}
	return errors.Join(errs...)
}

// Badges returns every loaded badge, inactive ones included.
func (s *CatalogService) Badges() []models.Badge {
	return append([]models.Badge(nil), s.current().badges...)
}

func (s *CatalogService) ActiveBadges() []models.Badge {
	snap := s.current()
	out := make([]models.Badge, 0, len(snap.badges))
	for _, b := range snap.badges {
		if b.IsActive {
			out = append(out, b)
		}
	}
	return out
}

func (s *CatalogService) Badge(id string) (models.Badge, bool) {
	snap := s.current()
	i, ok := snap.badgeIdx[id]
	if !ok {
		return models.Badge{}, false
	}
	return snap.badges[i], true
}

func (s *CatalogService) Achievements() []models.Achievement {
	return append([]models.Achievement(nil), s.current().achievements...)
}

func (s *CatalogService) ActiveAchievements() []models.Achievement {
	snap := s.current()
	out := make([]models.Achievement, 0, len(snap.achievements))
	for _, a := range snap.achievements {
		if a.IsActive {
			out = append(out, a)
		}
	}
	return out
}

func (s *CatalogService) Achievement(id string) (models.Achievement, bool) {
	snap := s.current()
	i, ok := snap.achIdx[id]
	if !ok {
		return models.Achievement{}, false
	}
	return snap.achievements[i], true
}

// LoadedAt is when the current snapshot was built.
func (s *CatalogService) LoadedAt() time.Time {
	return s.current().loadedAt
}

func (s *CatalogService) RecordBadgeEarned(ctx context.Context, badgeID string) error {
	return s.store.IncrementCounter(ctx, models.CounterKindBadge, badgeID)
}

func (s *CatalogService) RecordAchievementUnlocked(ctx context.Context, achievementID string) error {
	return s.store.IncrementCounter(ctx, models.CounterKindAchievement, achievementID)
}

func (s *CatalogService) BadgeCounts(ctx context.Context) (map[string]int64, error) {
	return s.store.Counters(ctx, models.CounterKindBadge)
}

func (s *CatalogService) AchievementCounts(ctx context.Context) (map[string]int64, error) {
	return s.store.Counters(ctx, models.CounterKindAchievement)
}
