package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"time"

	"learning-gamification/models"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	DefaultLeaderboardLimit = 10
	MaxLeaderboardLimit     = 100
)

// categoryLabel turns a category key into its display label ("course" -> "Course").
// Casers are stateful, so each call gets its own.
func categoryLabel(category string) string {
	return cases.Title(language.English).String(category)
}

// LeaderboardQuery selects one leaderboard page. Page is 1-based.
type LeaderboardQuery struct {
	Type  models.LeaderboardType
	Page  int
	Limit int
}

// NewLeaderboardQuery parses the board type and clamps paging to sane bounds.
func NewLeaderboardQuery(boardType string, page, limit int) (LeaderboardQuery, error) {
	t, err := models.ParseLeaderboardType(boardType)
	if err != nil {
		return LeaderboardQuery{}, err
	}
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > MaxLeaderboardLimit {
		limit = MaxLeaderboardLimit
	}
	return LeaderboardQuery{Type: t, Page: page, Limit: limit}, nil
}

type LeaderboardPage struct {
	Type    models.LeaderboardType    `json:"type"`
	Page    int                       `json:"page"`
	Limit   int                       `json:"limit"`
	Total   int64                     `json:"total"`
	Entries []models.LeaderboardEntry `json:"entries"`
	MyRank  *int64                    `json:"my_rank,omitempty"`
}

// Leaderboard returns one ranked page. When callerID names a user with a
// progress record, their own rank is attached.
func (s *GamificationService) Leaderboard(ctx context.Context, q LeaderboardQuery, callerID string) (*LeaderboardPage, error) {
	if q.Page < 1 || q.Limit < 1 {
		return nil, fmt.Errorf("%w: page and limit must be positive", models.ErrInvalidArgument)
	}
	key := fmt.Sprintf("%s:%d:%d", q.Type, q.Page, q.Limit)

	var page LeaderboardPage
	hit := false
	if s.cache != nil {
		var err error
		hit, err = s.cache.Get(ctx, key, &page)
		switch {
		case err != nil:
			leaderboardCacheLookups.WithLabelValues("error").Inc()
			log.Printf("⚠️ [LEADERBOARD] Cache read failed: %v", err)
			hit = false
		case hit:
			leaderboardCacheLookups.WithLabelValues("hit").Inc()
		default:
			leaderboardCacheLookups.WithLabelValues("miss").Inc()
		}
	}

	if !hit {
		offset := (q.Page - 1) * q.Limit
		rows, err := s.progress.Leaderboard(ctx, q.Type, offset, q.Limit)
		if err != nil {
			return nil, fmt.Errorf("failed to load leaderboard: %w", err)
		}
		total, err := s.progress.Count(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count users: %w", err)
		}
		page = LeaderboardPage{
			Type:    q.Type,
			Page:    q.Page,
			Limit:   q.Limit,
			Total:   total,
			Entries: make([]models.LeaderboardEntry, 0, len(rows)),
		}
		for i := range rows {
			rank := int64(offset + i + 1)
			page.Entries = append(page.Entries, models.NewLeaderboardEntry(q.Type, rank, &rows[i]))
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, key, page); err != nil {
				log.Printf("⚠️ [LEADERBOARD] Cache write failed: %v", err)
			}
		}
	}

	if callerID != "" {
		rank, err := s.UserRank(ctx, callerID, q.Type)
		switch {
		case err == nil:
			page.MyRank = &rank
		case !errors.Is(err, models.ErrNotFound):
			return nil, err
		}
	}
	return &page, nil
}

// UserRank is 1 + the number of users with a strictly greater score on board t.
// Users tied on the score share a rank.
func (s *GamificationService) UserRank(ctx context.Context, userID string, t models.LeaderboardType) (int64, error) {
	p, err := s.progress.FindByUserID(ctx, userID)
	if err != nil {
		return 0, err
	}
	above, err := s.progress.CountAbove(ctx, t, t.Score(p))
	if err != nil {
		return 0, fmt.Errorf("failed to rank user: %w", err)
	}
	return above + 1, nil
}

// UserStatsView is the read-only stats projection for one user.
type UserStatsView struct {
	Progress              *models.UserProgress `json:"progress"`
	Rank                  int64                `json:"rank"`
	TotalUsers            int64                `json:"total_users"`
	Percentile            int                  `json:"percentile"`
	XPToNextLevel         int64                `json:"xp_to_next_level"`
	LevelProgress         int                  `json:"level_progress"`
	BadgesEarned          int                  `json:"badges_earned"`
	BadgesAvailable       int                  `json:"badges_available"`
	AchievementsUnlocked  int                  `json:"achievements_unlocked"`
	AchievementsAvailable int                  `json:"achievements_available"`
}

// UserStats projects the record with its XP rank and percentile,
// round((total - rank + 1) / total * 100). It never creates or mutates a record.
func (s *GamificationService) UserStats(ctx context.Context, userID string) (*UserStatsView, error) {
	if err := validUserID(userID); err != nil {
		return nil, err
	}
	p, err := s.progress.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	rank, err := s.UserRank(ctx, userID, models.LeaderboardXP)
	if err != nil {
		return nil, err
	}
	total, err := s.progress.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}

	view := &UserStatsView{
		Progress:      p,
		Rank:          rank,
		TotalUsers:    total,
		Percentile:    percentile(rank, total),
		XPToNextLevel: max(p.NextLevelXP-p.CurrentLevelXP, 0),
		BadgesEarned:  len(p.Badges),
	}
	if p.NextLevelXP > 0 {
		view.LevelProgress = int(math.Round(float64(p.CurrentLevelXP) / float64(p.NextLevelXP) * 100))
	}
	view.BadgesAvailable = len(s.catalog.ActiveBadges())
	for _, a := range s.catalog.ActiveAchievements() {
		if p.AchievementUnlocked(a.ID) {
			view.AchievementsUnlocked++
		}
		if !a.IsHidden || p.AchievementUnlocked(a.ID) {
			view.AchievementsAvailable++
		}
	}
	return view, nil
}

func percentile(rank, total int64) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(total-rank+1) / float64(total) * 100))
}

// BadgeView is a catalog badge with the caller's status overlaid. Earned is nil
// for anonymous callers.
type BadgeView struct {
	models.Badge
	CategoryLabel string `json:"category_label"`
	EarnedCount   int64  `json:"earned_count"`
	Earned        *bool  `json:"earned,omitempty"`
}

// ListBadges lists the active badge catalog. A caller without a progress
// record is shown as having earned nothing; no record is created.
func (s *GamificationService) ListBadges(ctx context.Context, callerID string) ([]BadgeView, error) {
	counts, err := s.catalog.BadgeCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load badge counts: %w", err)
	}
	p, err := s.viewer(ctx, callerID)
	if err != nil {
		return nil, err
	}

	badges := s.catalog.ActiveBadges()
	out := make([]BadgeView, 0, len(badges))
	for _, b := range badges {
		view := BadgeView{
			Badge:         b,
			CategoryLabel: categoryLabel(string(b.Category)),
			EarnedCount:   counts[b.ID],
		}
		if p != nil {
			earned := p.HasBadge(b.ID)
			view.Earned = &earned
		}
		out = append(out, view)
	}
	return out, nil
}

// AchievementView is a catalog achievement with the caller's progress overlaid.
type AchievementView struct {
	models.Achievement
	CategoryLabel string     `json:"category_label"`
	UnlockedCount int64      `json:"unlocked_count"`
	Progress      *int       `json:"progress,omitempty"`
	Unlocked      *bool      `json:"unlocked,omitempty"`
	UnlockedAt    *time.Time `json:"unlocked_at,omitempty"`
}

// ListAchievements lists active achievements. Hidden ones appear only to users
// who have unlocked them.
func (s *GamificationService) ListAchievements(ctx context.Context, callerID string) ([]AchievementView, error) {
	counts, err := s.catalog.AchievementCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load achievement counts: %w", err)
	}
	p, err := s.viewer(ctx, callerID)
	if err != nil {
		return nil, err
	}

	achievements := s.catalog.ActiveAchievements()
	out := make([]AchievementView, 0, len(achievements))
	for _, a := range achievements {
		unlocked := p != nil && p.AchievementUnlocked(a.ID)
		if a.IsHidden && !unlocked {
			continue
		}
		view := AchievementView{
			Achievement:   a,
			CategoryLabel: categoryLabel(string(a.Category)),
			UnlockedCount: counts[a.ID],
		}
		if p != nil {
			entry := p.Achievements[a.ID]
			progress := entry.Progress
			view.Progress = &progress
			view.Unlocked = &unlocked
			if unlocked {
				at := entry.UnlockedAt
				view.UnlockedAt = &at
			}
		}
		out = append(out, view)
	}
	return out, nil
}

// viewer loads the caller's record for read-only overlays. Anonymous callers
// get nil; known callers without a record get an empty one.
func (s *GamificationService) viewer(ctx context.Context, callerID string) (*models.UserProgress, error) {
	if callerID == "" {
		return nil, nil
	}
	p, err := s.progress.FindByUserID(ctx, callerID)
	if errors.Is(err, models.ErrNotFound) {
		return models.NewUserProgress(callerID), nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
