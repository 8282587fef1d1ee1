package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"learning-gamification/models"
)

// errNoChange aborts a commit without writing anything.
var errNoChange = errors.New("no change")

// GamificationService owns every mutation of progress records. Each mutation
// runs under the user's lock, works on a copy and is persisted as one unit.
type GamificationService struct {
	progress ProgressRepository
	catalog  *CatalogService
	locks    *userLocks

	cache   LeaderboardCache
	events  EventPublisher
	dayDiff models.DayDiffFunc
	now     func() time.Time
}

func NewGamificationService(progress ProgressRepository, catalog *CatalogService) *GamificationService {
	return &GamificationService{
		progress: progress,
		catalog:  catalog,
		locks:    newUserLocks(),
		dayDiff:  models.RollingDays,
		now:      time.Now,
	}
}

func (s *GamificationService) WithLeaderboardCache(c LeaderboardCache) *GamificationService {
	s.cache = c
	return s
}

func (s *GamificationService) WithPublisher(p EventPublisher) *GamificationService {
	s.events = p
	return s
}

// WithDayPolicy sets how streak days are counted (models.RollingDays by default).
func (s *GamificationService) WithDayPolicy(fn models.DayDiffFunc) *GamificationService {
	s.dayDiff = fn
	return s
}

func (s *GamificationService) WithClock(now func() time.Time) *GamificationService {
	s.now = now
	return s
}

func (s *GamificationService) Catalog() *CatalogService {
	return s.catalog
}

func validUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user id is required", models.ErrInvalidArgument)
	}
	return nil
}

func (s *GamificationService) loadOrCreate(ctx context.Context, userID string) (*models.UserProgress, error) {
	p, err := s.progress.FindByUserID(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	created, err := s.progress.Create(ctx, models.NewUserProgress(userID))
	if err != nil {
		return nil, fmt.Errorf("failed to create progress record: %w", err)
	}
	log.Printf("🆕 [PROGRESS] Created progress record for %s", userID)
	return created, nil
}

// commit applies change to a copy of cur and saves it. On a version conflict the
// record is reloaded and change applied once more. It returns the record now
// current and whether anything was written; cur is never modified.
func (s *GamificationService) commit(ctx context.Context, cur *models.UserProgress, change func(*models.UserProgress) error) (*models.UserProgress, bool, error) {
	for attempt := 0; ; attempt++ {
		next := cur.Clone()
		if err := change(next); err != nil {
			if errors.Is(err, errNoChange) {
				return cur, false, nil
			}
			return cur, false, err
		}
		if next.Level > cur.Level {
			at := s.now()
			next.LastLevelUpAt = &at
		}
		err := s.progress.Save(ctx, next)
		if err == nil {
			return next, true, nil
		}
		if !errors.Is(err, models.ErrConflict) || attempt > 0 {
			return cur, false, err
		}
		progressConflicts.Inc()
		log.Printf("⚠️ [PROGRESS] Version conflict for %s, retrying", cur.ExternalUserID)
		fresh, ferr := s.progress.FindByUserID(ctx, cur.ExternalUserID)
		if ferr != nil {
			return cur, false, ferr
		}
		cur = fresh
	}
}

// mutate is the load, change, commit cycle behind every single-step operation.
func (s *GamificationService) mutate(ctx context.Context, userID string, change func(*models.UserProgress) error) (*models.UserProgress, error) {
	if err := validUserID(userID); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(userID)
	defer unlock()

	cur, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}
	next, _, err := s.commit(ctx, cur, change)
	if err != nil {
		return nil, err
	}
	return next, nil
}

// afterXP books metrics, events and cache invalidation for a persisted XP grant.
func (s *GamificationService) afterXP(ctx context.Context, userID string, res models.XPResult) {
	if res.Granted > 0 {
		xpGranted.WithLabelValues(res.Source).Add(float64(res.Granted))
		s.invalidateLeaderboard(ctx)
	}
	if res.LeveledUp {
		levelUps.Inc()
		log.Printf("⬆️ [PROGRESS] %s reached level %d", userID, res.NewLevel)
		s.publish(ctx, GamificationEvent{
			Type:          EventLevelUp,
			UserID:        userID,
			Level:         res.NewLevel,
			PreviousLevel: res.PreviousLevel,
			OccurredAt:    s.now(),
		})
	}
}

func (s *GamificationService) publish(ctx context.Context, event GamificationEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		log.Printf("❌ [EVENTS] Failed to publish %s for %s: %v", event.Type, event.UserID, err)
	}
}

func (s *GamificationService) invalidateLeaderboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		log.Printf("⚠️ [LEADERBOARD] Cache invalidation failed: %v", err)
	}
}

// GetOrCreateProgress returns the user's record, creating a level-1 record on first access.
func (s *GamificationService) GetOrCreateProgress(ctx context.Context, userID string) (*models.UserProgress, error) {
	if err := validUserID(userID); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(userID)
	defer unlock()
	return s.loadOrCreate(ctx, userID)
}

// ProgressView is a progress read together with the streak update it triggered.
type ProgressView struct {
	Progress *models.UserProgress `json:"progress"`
	Streak   models.StreakResult  `json:"streak"`
}

// GetProgress is the user's own progress read. It is not a pure read: it
// creates the record on first access and counts as the daily streak activity,
// granting the login reward at most once per day.
func (s *GamificationService) GetProgress(ctx context.Context, userID string) (*ProgressView, error) {
	var streak models.StreakResult
	p, err := s.mutate(ctx, userID, func(p *models.UserProgress) error {
		res, err := p.UpdateStreak(s.now(), s.dayDiff)
		if err != nil {
			return err
		}
		if !res.Changed {
			streak = res
			return errNoChange
		}
		streak = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	if streak.Changed {
		if streak.Broken {
			log.Printf("💔 [STREAK] %s broke their streak", userID)
		}
		s.afterXP(ctx, userID, streak.XP)
	}
	return &ProgressView{Progress: p, Streak: streak}, nil
}

// XPAward is the outcome of an XP-granting operation.
type XPAward struct {
	Progress *models.UserProgress `json:"progress"`
	Result   models.XPResult      `json:"result"`
}

// AwardXP grants amount XP under source. An empty source books under "other".
func (s *GamificationService) AwardXP(ctx context.Context, userID string, amount int64, source string) (*XPAward, error) {
	if amount < 0 {
		return nil, fmt.Errorf("%w: xp amount must be non-negative, got %d", models.ErrInvalidArgument, amount)
	}
	if source = strings.TrimSpace(source); source == "" {
		source = models.SourceOther
	}
	var res models.XPResult
	p, err := s.mutate(ctx, userID, func(p *models.UserProgress) error {
		var err error
		res, err = p.AddXP(amount, source)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterXP(ctx, userID, res)
	return &XPAward{Progress: p, Result: res}, nil
}

// RecordActivity bumps an activity counter and grants its XP reward. Unknown
// counters are tolerated: only the XP is granted, booked under "other".
func (s *GamificationService) RecordActivity(ctx context.Context, userID, counter string, xpReward int64) (*XPAward, error) {
	if !models.IsKnownCounter(counter) {
		log.Printf("⚠️ [PROGRESS] Unknown activity counter %q for %s, granting XP only", counter, userID)
	}
	if xpReward < 0 {
		return nil, fmt.Errorf("%w: xp reward must be non-negative, got %d", models.ErrInvalidArgument, xpReward)
	}
	var res models.XPResult
	p, err := s.mutate(ctx, userID, func(p *models.UserProgress) error {
		var err error
		res, err = p.IncrementActivity(counter, xpReward)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterXP(ctx, userID, res)
	if counter == models.CounterCoursesCompleted {
		s.invalidateLeaderboard(ctx)
	}
	return &XPAward{Progress: p, Result: res}, nil
}

// RecordQuizResult folds a finished quiz into the record: the score average,
// quizzesCompleted, quizzesPassed when passed, and xpReward.
func (s *GamificationService) RecordQuizResult(ctx context.Context, userID string, score float64, passed bool, xpReward int64) (*XPAward, error) {
	if xpReward < 0 {
		return nil, fmt.Errorf("%w: xp reward must be non-negative, got %d", models.ErrInvalidArgument, xpReward)
	}
	var res models.XPResult
	p, err := s.mutate(ctx, userID, func(p *models.UserProgress) error {
		if err := p.RecordQuizScore(score); err != nil {
			return err
		}
		if _, err := p.IncrementActivity(models.CounterQuizzesCompleted, 0); err != nil {
			return err
		}
		counter := models.CounterQuizzesCompleted
		if passed {
			counter = models.CounterQuizzesPassed
			if _, err := p.IncrementActivity(counter, 0); err != nil {
				return err
			}
		}
		var err error
		res, err = p.AddXP(xpReward, models.ActivitySource(counter))
		return err
	})
	if err != nil {
		return nil, err
	}
	s.afterXP(ctx, userID, res)
	return &XPAward{Progress: p, Result: res}, nil
}

// RecordStudyTime adds study minutes.
func (s *GamificationService) RecordStudyTime(ctx context.Context, userID string, minutes int64) (*models.UserProgress, error) {
	if minutes < 0 {
		return nil, fmt.Errorf("%w: study time must be non-negative, got %d", models.ErrInvalidArgument, minutes)
	}
	return s.mutate(ctx, userID, func(p *models.UserProgress) error {
		return p.AddStudyTime(minutes)
	})
}

// RecordHelpfulVotes adds helpful votes received on the user's reviews.
func (s *GamificationService) RecordHelpfulVotes(ctx context.Context, userID string, votes int64) (*models.UserProgress, error) {
	if votes < 0 {
		return nil, fmt.Errorf("%w: helpful votes must be non-negative, got %d", models.ErrInvalidArgument, votes)
	}
	return s.mutate(ctx, userID, func(p *models.UserProgress) error {
		return p.AddHelpfulVotes(votes)
	})
}

// CheckBadges awards every active badge the user now qualifies for, each
// together with its XP reward. A failed award is logged and skipped; the
// badges that were awarded are returned alongside the joined failures.
func (s *GamificationService) CheckBadges(ctx context.Context, userID string) ([]models.Badge, error) {
	if err := validUserID(userID); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(userID)
	defer unlock()

	cur, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	earned := []models.Badge{}
	var errs []error
	for _, b := range s.catalog.ActiveBadges() {
		badge := b
		if cur.HasBadge(badge.ID) || !badge.IsEarned(cur) {
			continue
		}

		var xp models.XPResult
		next, changed, err := s.commit(ctx, cur, func(p *models.UserProgress) error {
			if p.HasBadge(badge.ID) || !badge.IsEarned(p) {
				return errNoChange
			}
			p.AwardBadge(badge.ID)
			if badge.XPReward > 0 {
				var err error
				xp, err = p.AddXP(badge.XPReward, models.SourceAchievements)
				return err
			}
			return nil
		})
		if err != nil {
			sweepFailures.WithLabelValues("badges").Inc()
			log.Printf("❌ [BADGES] Failed to award %s to %s: %v", badge.ID, userID, err)
			errs = append(errs, fmt.Errorf("badge %s: %w", badge.ID, err))
			continue
		}
		cur = next
		if !changed {
			continue
		}

		s.badgeAwarded(ctx, userID, badge.ID, badge.XPReward)
		s.afterXP(ctx, userID, xp)
		earned = append(earned, badge)
	}
	return earned, errors.Join(errs...)
}

func (s *GamificationService) badgeAwarded(ctx context.Context, userID, badgeID string, xp int64) {
	badgesAwarded.WithLabelValues(badgeID).Inc()
	log.Printf("🎖️ [BADGES] Badge awarded: %s → %s", badgeID, userID)
	// badge counts are shown on every leaderboard entry
	s.invalidateLeaderboard(ctx)
	if err := s.catalog.RecordBadgeEarned(ctx, badgeID); err != nil {
		log.Printf("⚠️ [BADGES] Failed to bump earned count for %s: %v", badgeID, err)
	}
	s.publish(ctx, GamificationEvent{
		Type:       EventBadgeEarned,
		UserID:     userID,
		BadgeID:    badgeID,
		XP:         xp,
		OccurredAt: s.now(),
	})
}

// CheckAchievements evaluates every active achievement. Newly satisfied ones
// are unlocked together with their rewards; partial progress is stored when it
// grows. Failures are handled like CheckBadges.
func (s *GamificationService) CheckAchievements(ctx context.Context, userID string) ([]models.Achievement, error) {
	if err := validUserID(userID); err != nil {
		return nil, err
	}
	unlock := s.locks.Lock(userID)
	defer unlock()

	cur, err := s.loadOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	unlocked := []models.Achievement{}
	var errs []error
	for _, a := range s.catalog.ActiveAchievements() {
		ach := a
		if cur.AchievementUnlocked(ach.ID) {
			continue
		}
		ev := ach.Evaluate(cur)

		if !ev.Unlocked {
			if ev.Progress <= cur.Achievements[ach.ID].Progress {
				continue
			}
			next, _, err := s.commit(ctx, cur, func(p *models.UserProgress) error {
				ev := ach.Evaluate(p)
				if ev.Unlocked || ev.Progress <= p.Achievements[ach.ID].Progress {
					return errNoChange
				}
				return p.UpdateAchievementProgress(ach.ID, ev.Progress, s.now())
			})
			if err != nil {
				sweepFailures.WithLabelValues("achievements").Inc()
				log.Printf("❌ [ACHIEVEMENTS] Failed to store progress on %s for %s: %v", ach.ID, userID, err)
				errs = append(errs, fmt.Errorf("achievement %s: %w", ach.ID, err))
				continue
			}
			cur = next
			continue
		}

		reward := ach.Reward()
		var xp models.XPResult
		var badgeGranted bool
		next, changed, err := s.commit(ctx, cur, func(p *models.UserProgress) error {
			if p.AchievementUnlocked(ach.ID) || !ach.Evaluate(p).Unlocked {
				return errNoChange
			}
			now := s.now()
			if err := p.UpdateAchievementProgress(ach.ID, 100, now); err != nil {
				return err
			}
			// the unlock time replaces the stamp left by earlier partial progress
			p.Achievements[ach.ID] = models.AchievementProgress{Progress: 100, UnlockedAt: now}
			badgeGranted = false
			if reward.BadgeID != "" {
				badgeGranted = p.AwardBadge(reward.BadgeID)
			}
			xp = models.XPResult{}
			if reward.XP > 0 {
				var err error
				xp, err = p.AddXP(reward.XP, models.SourceAchievements)
				return err
			}
			return nil
		})
		if err != nil {
			sweepFailures.WithLabelValues("achievements").Inc()
			log.Printf("❌ [ACHIEVEMENTS] Failed to unlock %s for %s: %v", ach.ID, userID, err)
			errs = append(errs, fmt.Errorf("achievement %s: %w", ach.ID, err))
			continue
		}
		cur = next
		if !changed {
			continue
		}

		achievementsUnlocked.WithLabelValues(ach.ID).Inc()
		log.Printf("🏆 [ACHIEVEMENTS] Achievement unlocked: %s → %s", ach.ID, userID)
		if err := s.catalog.RecordAchievementUnlocked(ctx, ach.ID); err != nil {
			log.Printf("⚠️ [ACHIEVEMENTS] Failed to bump unlocked count for %s: %v", ach.ID, err)
		}
		s.publish(ctx, GamificationEvent{
			Type:          EventAchievementUnlocked,
			UserID:        userID,
			AchievementID: ach.ID,
			XP:            reward.XP,
			OccurredAt:    s.now(),
		})
		if badgeGranted {
			s.badgeAwarded(ctx, userID, reward.BadgeID, 0)
		}
		s.afterXP(ctx, userID, xp)
		unlocked = append(unlocked, ach)
	}
	return unlocked, errors.Join(errs...)
}
