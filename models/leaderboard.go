package models

import (
	"fmt"
	"strings"
)

// LeaderboardType selects the leaderboard sort key.
type LeaderboardType string

const (
	LeaderboardXP      LeaderboardType = "xp"
	LeaderboardLevel   LeaderboardType = "level"
	LeaderboardStreak  LeaderboardType = "streak"
	LeaderboardCourses LeaderboardType = "courses"
)

// ParseLeaderboardType accepts the query names and the field names they sort by.
// An empty string selects the XP board.
func ParseLeaderboardType(s string) (LeaderboardType, error) {
	switch strings.TrimSpace(s) {
	case "", "xp", "totalXP", "total_xp":
		return LeaderboardXP, nil
	case "level":
		return LeaderboardLevel, nil
	case "streak", "currentStreak", "current_streak":
		return LeaderboardStreak, nil
	case "courses", "coursesCompleted", "courses_completed":
		return LeaderboardCourses, nil
	}
	return "", fmt.Errorf("%w: unknown leaderboard type %q", ErrInvalidArgument, s)
}

// Column is the user_progresses column this board sorts by.
func (t LeaderboardType) Column() string {
	switch t {
	case LeaderboardLevel:
		return "level"
	case LeaderboardStreak:
		return "current_streak"
	case LeaderboardCourses:
		return "courses_completed"
	}
	return "total_xp"
}

// Score reads the sort key from p.
func (t LeaderboardType) Score(p *UserProgress) int64 {
	switch t {
	case LeaderboardLevel:
		return int64(p.Level)
	case LeaderboardStreak:
		return int64(p.CurrentStreak)
	case LeaderboardCourses:
		return p.CoursesCompleted
	}
	return p.TotalXP
}

// Before reports whether a ranks ahead of b: sort key descending, then total XP
// descending, then user id ascending so pages are stable.
func (t LeaderboardType) Before(a, b *UserProgress) bool {
	if sa, sb := t.Score(a), t.Score(b); sa != sb {
		return sa > sb
	}
	if a.TotalXP != b.TotalXP {
		return a.TotalXP > b.TotalXP
	}
	return a.ExternalUserID < b.ExternalUserID
}

// LeaderboardEntry is one ranked row.
type LeaderboardEntry struct {
	Rank             int64  `json:"rank"`
	UserID           string `json:"user_id"`
	Score            int64  `json:"score"`
	TotalXP          int64  `json:"total_xp"`
	Level            int    `json:"level"`
	CurrentStreak    int    `json:"current_streak"`
	CoursesCompleted int64  `json:"courses_completed"`
	BadgeCount       int    `json:"badge_count"`
}

// NewLeaderboardEntry projects p at rank for board t.
func NewLeaderboardEntry(t LeaderboardType, rank int64, p *UserProgress) LeaderboardEntry {
	return LeaderboardEntry{
		Rank:             rank,
		UserID:           p.ExternalUserID,
		Score:            t.Score(p),
		TotalXP:          p.TotalXP,
		Level:            p.Level,
		CurrentStreak:    p.CurrentStreak,
		CoursesCompleted: p.CoursesCompleted,
		BadgeCount:       len(p.Badges),
	}
}
