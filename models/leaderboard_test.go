package models

import (
	"errors"
	"sort"
	"testing"
)

func TestParseLeaderboardType(t *testing.T) {
	cases := map[string]LeaderboardType{
		"":        LeaderboardXP,
		"xp":      LeaderboardXP,
		"level":   LeaderboardLevel,
		"streak":  LeaderboardStreak,
		"courses": LeaderboardCourses,
		"totalXP": LeaderboardXP,
	}
	for in, want := range cases {
		got, err := ParseLeaderboardType(in)
		if err != nil || got != want {
			t.Errorf("Expected %q to parse as %s, got %s (%v)", in, want, got, err)
		}
	}
	if _, err := ParseLeaderboardType("wealth"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected ErrInvalidArgument, got %v", err)
	}
}

func TestLeaderboardTieBreakOnTotalXP(t *testing.T) {
	a := &UserProgress{ExternalUserID: "a", Level: 5, TotalXP: 2000}
	b := &UserProgress{ExternalUserID: "b", Level: 5, TotalXP: 2400}
	c := &UserProgress{ExternalUserID: "c", Level: 6, TotalXP: 2450}

	rows := []*UserProgress{a, b, c}
	sort.Slice(rows, func(i, j int) bool { return LeaderboardLevel.Before(rows[i], rows[j]) })

	if rows[0] != c || rows[1] != b || rows[2] != a {
		t.Errorf("Expected order c, b, a, got %s, %s, %s", rows[0].ExternalUserID, rows[1].ExternalUserID, rows[2].ExternalUserID)
	}
}

func TestLeaderboardFullTieIsStable(t *testing.T) {
	a := &UserProgress{ExternalUserID: "a", TotalXP: 100}
	b := &UserProgress{ExternalUserID: "b", TotalXP: 100}
	if !LeaderboardXP.Before(a, b) || LeaderboardXP.Before(b, a) {
		t.Error("Expected full ties to order by user id")
	}
}
