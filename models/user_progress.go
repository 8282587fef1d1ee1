package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// XP sources tracked in PointsBreakdown. XP granted under any other source is
// credited to SourceOther so the breakdown always sums to TotalXP.
const (
	SourceCourseCompletion = "courseCompletion"
	SourceLessonCompletion = "lessonCompletion"
	SourceQuizCompletion   = "quizCompletion"
	SourceReviewWriting    = "reviewWriting"
	SourceDailyLogin       = "dailyLogin"
	SourceAchievements     = "achievements"
	SourceOther            = "other"
)

var trackedSources = []string{
	SourceCourseCompletion,
	SourceLessonCompletion,
	SourceQuizCompletion,
	SourceReviewWriting,
	SourceDailyLogin,
	SourceAchievements,
	SourceOther,
}

// IsTrackedSource reports whether source has its own PointsBreakdown bucket.
func IsTrackedSource(source string) bool {
	for _, s := range trackedSources {
		if s == source {
			return true
		}
	}
	return false
}

// Activity counters reported by the course, quiz and review subsystems.
const (
	CounterCoursesCompleted   = "coursesCompleted"
	CounterQuizzesCompleted   = "quizzesCompleted"
	CounterQuizzesPassed      = "quizzesPassed"
	CounterReviewsWritten     = "reviewsWritten"
	CounterCertificatesEarned = "certificatesEarned"
	CounterLessonsCompleted   = "lessonsCompleted"
)

// counterSources maps an activity counter to the XP source its reward is booked under.
var counterSources = map[string]string{
	CounterCoursesCompleted:   SourceCourseCompletion,
	CounterCertificatesEarned: SourceCourseCompletion,
	CounterLessonsCompleted:   SourceLessonCompletion,
	CounterQuizzesCompleted:   SourceQuizCompletion,
	CounterQuizzesPassed:      SourceQuizCompletion,
	CounterReviewsWritten:     SourceReviewWriting,
}

// ActivitySource returns the XP source for an activity counter, SourceOther if unknown.
func ActivitySource(counter string) string {
	if s, ok := counterSources[counter]; ok {
		return s
	}
	return SourceOther
}

// MaxXPGrant caps a single grant so the level loop stays short.
const MaxXPGrant int64 = 1_000_000

// Streak rewards
const (
	DailyLoginXP      int64 = 10
	StreakBonusPerDay int64 = 2
	MaxStreakBonus    int64 = 50
)

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// AchievementProgress is a user's standing on one achievement.
type AchievementProgress struct {
	Progress   int       `json:"progress"`
	UnlockedAt time.Time `json:"unlocked_at"`
}

// ProgressStats are auxiliary counters used only as badge/achievement inputs.
type ProgressStats struct {
	TotalStudyTime    int64   `json:"total_study_time" gorm:"default:0"` // minutes
	AverageQuizScore  float64 `json:"average_quiz_score" gorm:"default:0"`
	QuizzesScored     int64   `json:"quizzes_scored" gorm:"default:0"`
	PerfectQuizzes    int64   `json:"perfect_quizzes" gorm:"default:0"`
	TotalHelpfulVotes int64   `json:"total_helpful_votes" gorm:"default:0"`
}

// UserProgress is the per-user gamification aggregate (one row per user).
//
// Level is advanced step by step by AddXP and never recomputed from TotalXP.
// After every mutation 0 <= CurrentLevelXP < NextLevelXP and NextLevelXP == XPForLevel(Level+1).
type UserProgress struct {
	ID             string `gorm:"primaryKey;type:uuid" json:"id"`
	ExternalUserID string `gorm:"uniqueIndex;not null" json:"user_id"`

	// Core progression
	TotalXP        int64 `json:"total_xp" gorm:"default:0;index"`
	Level          int   `json:"level" gorm:"default:1;index"`
	CurrentLevelXP int64 `json:"current_level_xp" gorm:"default:0"`
	NextLevelXP    int64 `json:"next_level_xp" gorm:"not null"`

	// Streaks
	CurrentStreak int        `json:"current_streak" gorm:"default:0;index"`
	LongestStreak int        `json:"longest_streak" gorm:"default:0"`
	LastLoginDate *time.Time `json:"last_login_date,omitempty"`

	// Activity counters
	CoursesCompleted   int64 `json:"courses_completed" gorm:"default:0;index"`
	QuizzesCompleted   int64 `json:"quizzes_completed" gorm:"default:0"`
	QuizzesPassed      int64 `json:"quizzes_passed" gorm:"default:0"`
	ReviewsWritten     int64 `json:"reviews_written" gorm:"default:0"`
	CertificatesEarned int64 `json:"certificates_earned" gorm:"default:0"`
	LessonsCompleted   int64 `json:"lessons_completed" gorm:"default:0"`

	Badges          []string                       `json:"badges" gorm:"serializer:json;type:jsonb"`
	Achievements    map[string]AchievementProgress `json:"achievements" gorm:"serializer:json;type:jsonb"`
	PointsBreakdown map[string]int64               `json:"points_breakdown" gorm:"serializer:json;type:jsonb"`
	Stats           ProgressStats                  `json:"stats" gorm:"embedded;embeddedPrefix:stats_"`

	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	// Optimistic concurrency token, bumped on every successful save.
	Version int64 `json:"version" gorm:"not null;default:0"`

	Timestamps
}

// BeforeCreate assigns the record id in Go so every dialect gets the same uuid.
func (p *UserProgress) BeforeCreate(*gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// XPResult describes the outcome of an XP grant.
type XPResult struct {
	Granted       int64  `json:"granted"`
	Source        string `json:"source"`
	PreviousLevel int    `json:"previous_level"`
	NewLevel      int    `json:"new_level"`
	LeveledUp     bool   `json:"leveled_up"`
}

// StreakResult describes the outcome of UpdateStreak.
type StreakResult struct {
	Changed bool     `json:"changed"`
	Broken  bool     `json:"broken"`
	Streak  int      `json:"streak"`
	XP      XPResult `json:"xp"`
}

// DayDiffFunc counts the days between the last streak-eligible activity and now.
type DayDiffFunc func(last, now time.Time) int

// RollingDays buckets elapsed time into 24h periods with floor division. It is
// timezone-naive: two logins on different calendar days less than 24h apart
// count as the same day.
func RollingDays(last, now time.Time) int {
	return int(math.Floor(now.Sub(last).Hours() / 24))
}

// CalendarDays counts calendar-date boundaries crossed in loc.
func CalendarDays(loc *time.Location) DayDiffFunc {
	if loc == nil {
		loc = time.UTC
	}
	return func(last, now time.Time) int {
		ly, lm, ld := last.In(loc).Date()
		ny, nm, nd := now.In(loc).Date()
		from := time.Date(ly, lm, ld, 0, 0, 0, 0, time.UTC)
		to := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
		return int(to.Sub(from).Hours() / 24)
	}
}

// NewUserProgress returns a level-1, zero-XP record for userID.
func NewUserProgress(userID string) *UserProgress {
	p := &UserProgress{
		ID:              uuid.NewString(),
		ExternalUserID:  userID,
		Level:           1,
		NextLevelXP:     XPForLevel(2),
		Badges:          []string{},
		Achievements:    map[string]AchievementProgress{},
		PointsBreakdown: make(map[string]int64, len(trackedSources)),
	}
	for _, s := range trackedSources {
		p.PointsBreakdown[s] = 0
	}
	return p
}

// AddXP grants amount XP booked under source and runs the level-up loop.
// Negative amounts, amounts above MaxXPGrant and grants that would overflow
// TotalXP are rejected before any mutation. Stamping LastLevelUpAt is left to
// the caller, which owns the clock.
func (p *UserProgress) AddXP(amount int64, source string) (XPResult, error) {
	if amount < 0 {
		return XPResult{}, fmt.Errorf("%w: xp amount must be non-negative, got %d", ErrInvalidArgument, amount)
	}
	if amount > MaxXPGrant {
		return XPResult{}, fmt.Errorf("%w: xp amount %d exceeds the per-grant limit of %d", ErrInvalidArgument, amount, MaxXPGrant)
	}
	if amount > math.MaxInt64-p.TotalXP {
		return XPResult{}, fmt.Errorf("%w: xp amount %d would overflow total xp %d", ErrInvalidArgument, amount, p.TotalXP)
	}
	if p.Level < 1 {
		p.Level = 1
	}
	if p.NextLevelXP <= 0 {
		p.NextLevelXP = XPForLevel(p.Level + 1)
	}

	res := XPResult{Granted: amount, Source: source, PreviousLevel: p.Level}

	p.TotalXP += amount
	p.CurrentLevelXP += amount

	if p.PointsBreakdown == nil {
		p.PointsBreakdown = map[string]int64{}
	}
	bucket := source
	if !IsTrackedSource(bucket) {
		bucket = SourceOther
	}
	p.PointsBreakdown[bucket] += amount

	for p.NextLevelXP > 0 && p.CurrentLevelXP >= p.NextLevelXP {
		p.CurrentLevelXP -= p.NextLevelXP
		p.Level++
		p.NextLevelXP = XPForLevel(p.Level + 1)
	}

	res.NewLevel = p.Level
	res.LeveledUp = p.Level > res.PreviousLevel
	return res, nil
}

// UpdateStreak records streak-eligible activity at now.
//
//	first activity      -> streak 1, +10 XP
//	same day            -> no-op
//	next day            -> streak+1, +10 + min(streak*2, 50) XP
//	two or more days    -> streak resets to 1, +10 XP
//
// A negative day difference (clock skew) counts as the same day.
func (p *UserProgress) UpdateStreak(now time.Time, dayDiff DayDiffFunc) (StreakResult, error) {
	if dayDiff == nil {
		dayDiff = RollingDays
	}

	reward := DailyLoginXP
	res := StreakResult{Changed: true}

	if p.LastLoginDate == nil {
		p.CurrentStreak = 1
	} else {
		days := dayDiff(*p.LastLoginDate, now)
		switch {
		case days <= 0:
			return StreakResult{Streak: p.CurrentStreak, XP: XPResult{PreviousLevel: p.Level, NewLevel: p.Level}}, nil
		case days == 1:
			p.CurrentStreak++
			reward += min(int64(p.CurrentStreak)*StreakBonusPerDay, MaxStreakBonus)
		default:
			p.CurrentStreak = 1
			res.Broken = true
		}
	}

	if p.CurrentStreak > p.LongestStreak {
		p.LongestStreak = p.CurrentStreak
	}
	at := now
	p.LastLoginDate = &at

	xp, err := p.AddXP(reward, SourceDailyLogin)
	if err != nil {
		return StreakResult{}, err
	}
	if xp.LeveledUp {
		p.LastLevelUpAt = &at
	}
	res.Streak = p.CurrentStreak
	res.XP = xp
	return res, nil
}

// HasBadge reports whether badgeID is already held.
func (p *UserProgress) HasBadge(badgeID string) bool {
	for _, b := range p.Badges {
		if b == badgeID {
			return true
		}
	}
	return false
}

// AwardBadge adds badgeID to the badge set. It returns false if the badge was
// already held. Reward XP is the caller's concern.
func (p *UserProgress) AwardBadge(badgeID string) bool {
	if p.HasBadge(badgeID) {
		return false
	}
	p.Badges = append(p.Badges, badgeID)
	return true
}

// UpdateAchievementProgress upserts the progress entry for achievementID. New
// entries are stamped with now; existing ones only get their progress overwritten.
// Monotonicity is the caller's job.
func (p *UserProgress) UpdateAchievementProgress(achievementID string, progress int, now time.Time) error {
	if progress < 0 || progress > 100 {
		return fmt.Errorf("%w: achievement progress must be within 0..100, got %d", ErrInvalidArgument, progress)
	}
	if p.Achievements == nil {
		p.Achievements = map[string]AchievementProgress{}
	}
	entry, ok := p.Achievements[achievementID]
	if !ok {
		entry.UnlockedAt = now
	}
	entry.Progress = progress
	p.Achievements[achievementID] = entry
	return nil
}

// AchievementUnlocked reports whether achievementID sits at 100% progress.
func (p *UserProgress) AchievementUnlocked(achievementID string) bool {
	entry, ok := p.Achievements[achievementID]
	return ok && entry.Progress >= 100
}

func (p *UserProgress) counter(name string) *int64 {
	switch name {
	case CounterCoursesCompleted:
		return &p.CoursesCompleted
	case CounterQuizzesCompleted:
		return &p.QuizzesCompleted
	case CounterQuizzesPassed:
		return &p.QuizzesPassed
	case CounterReviewsWritten:
		return &p.ReviewsWritten
	case CounterCertificatesEarned:
		return &p.CertificatesEarned
	case CounterLessonsCompleted:
		return &p.LessonsCompleted
	}
	return nil
}

// IsKnownCounter reports whether name is an activity counter.
func IsKnownCounter(name string) bool {
	_, ok := counterSources[name]
	return ok
}

// IncrementActivity bumps the named counter by one and grants xpReward under the
// counter's source. Unknown counters leave the counters untouched but still
// receive the XP grant.
func (p *UserProgress) IncrementActivity(counter string, xpReward int64) (XPResult, error) {
	if xpReward < 0 {
		return XPResult{}, fmt.Errorf("%w: xp reward must be non-negative, got %d", ErrInvalidArgument, xpReward)
	}
	if c := p.counter(counter); c != nil {
		*c++
	}
	if xpReward > 0 {
		return p.AddXP(xpReward, ActivitySource(counter))
	}
	return XPResult{Source: ActivitySource(counter), PreviousLevel: p.Level, NewLevel: p.Level}, nil
}

// RecordQuizScore folds a 0..100 quiz score into the running average.
func (p *UserProgress) RecordQuizScore(score float64) error {
	if score < 0 || score > 100 || math.IsNaN(score) {
		return fmt.Errorf("%w: quiz score must be within 0..100, got %v", ErrInvalidArgument, score)
	}
	p.Stats.QuizzesScored++
	p.Stats.AverageQuizScore += (score - p.Stats.AverageQuizScore) / float64(p.Stats.QuizzesScored)
	if score >= 100 {
		p.Stats.PerfectQuizzes++
	}
	return nil
}

// AddStudyTime adds study minutes.
func (p *UserProgress) AddStudyTime(minutes int64) error {
	if minutes < 0 {
		return fmt.Errorf("%w: study time must be non-negative, got %d", ErrInvalidArgument, minutes)
	}
	p.Stats.TotalStudyTime += minutes
	return nil
}

// AddHelpfulVotes adds helpful votes received on the user's content.
func (p *UserProgress) AddHelpfulVotes(votes int64) error {
	if votes < 0 {
		return fmt.Errorf("%w: helpful votes must be non-negative, got %d", ErrInvalidArgument, votes)
	}
	p.Stats.TotalHelpfulVotes += votes
	return nil
}

// BreakdownTotal sums PointsBreakdown. It equals TotalXP for records only ever
// mutated through AddXP.
func (p *UserProgress) BreakdownTotal() int64 {
	var sum int64
	for _, v := range p.PointsBreakdown {
		sum += v
	}
	return sum
}

// Clone returns a deep copy, so a failed save never leaks half-applied state.
func (p *UserProgress) Clone() *UserProgress {
	cp := *p
	if p.LastLoginDate != nil {
		t := *p.LastLoginDate
		cp.LastLoginDate = &t
	}
	if p.LastLevelUpAt != nil {
		t := *p.LastLevelUpAt
		cp.LastLevelUpAt = &t
	}
	cp.Badges = append([]string(nil), p.Badges...)
	if cp.Badges == nil {
		cp.Badges = []string{}
	}
	cp.Achievements = make(map[string]AchievementProgress, len(p.Achievements))
	for k, v := range p.Achievements {
		cp.Achievements[k] = v
	}
	cp.PointsBreakdown = make(map[string]int64, len(p.PointsBreakdown))
	for k, v := range p.PointsBreakdown {
		cp.PointsBreakdown[k] = v
	}
	return &cp
}
