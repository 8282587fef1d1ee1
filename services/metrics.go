package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	xpGranted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamification_xp_granted_total",
			Help: "XP granted, by source",
		},
		[]string{"source"},
	)

	levelUps = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gamification_level_ups_total",
			Help: "Number of level-ups across all users",
		},
	)

	badgesAwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamification_badges_awarded_total",
			Help: "Badges awarded, by badge id",
		},
		[]string{"badge"},
	)

	achievementsUnlocked = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamification_achievements_unlocked_total",
			Help: "Achievements unlocked, by achievement id",
		},
		[]string{"achievement"},
	)

	// sweep: badges/achievements
	sweepFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamification_sweep_failures_total",
			Help: "Awards that failed to persist during a sweep",
		},
		[]string{"sweep"},
	)

	progressConflicts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "gamification_progress_conflicts_total",
			Help: "Optimistic version conflicts on progress saves",
		},
	)

	// result: hit/miss/error
	leaderboardCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gamification_leaderboard_cache_lookups_total",
			Help: "Leaderboard cache lookups, by result",
		},
		[]string{"result"},
	)
)
