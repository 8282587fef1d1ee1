package models

import "gorm.io/datatypes"

// DefaultBadges is the built-in badge catalog, seeded when the store is empty.
func DefaultBadges() []Badge {
	return []Badge{
		{
			ID: "first-steps", Name: "First Steps",
			Description: "Complete your first course",
			Icon:        "🎓", Color: "#4CAF50",
			Category: BadgeCategoryCourse, Rarity: RarityCommon,
			Requirement: BadgeRequirement{Metric: MetricCoursesCompleted, Value: 1},
			XPReward:    50, IsActive: true,
		},
		{
			ID: "dedicated-learner", Name: "Dedicated Learner",
			Description: "Complete 5 courses",
			Icon:        "📚", Color: "#2196F3",
			Category: BadgeCategoryCourse, Rarity: RarityRare,
			Requirement: BadgeRequirement{Metric: MetricCoursesCompleted, Value: 5},
			XPReward:    200, IsActive: true,
		},
		{
			ID: "quiz-master", Name: "Quiz Master",
			Description: "Pass 10 quizzes",
			Icon:        "🧠", Color: "#9C27B0",
			Category: BadgeCategoryQuiz, Rarity: RarityRare,
			Requirement: BadgeRequirement{Metric: MetricQuizzesPassed, Value: 10},
			XPReward:    150, IsActive: true,
		},
		{
			ID: "perfectionist", Name: "Perfectionist",
			Description: "Score 100% on a quiz",
			Icon:        "💯", Color: "#FF9800",
			Category: BadgeCategoryQuiz, Rarity: RarityEpic,
			Requirement: BadgeRequirement{Metric: MetricPerfectQuiz, Value: 1},
			XPReward:    100, IsActive: true,
		},
		{
			ID: "critic", Name: "Critic",
			Description: "Write your first review",
			Icon:        "✍️", Color: "#607D8B",
			Category: BadgeCategoryReview, Rarity: RarityCommon,
			Requirement: BadgeRequirement{Metric: MetricReviewsWritten, Value: 1},
			XPReward:    25, IsActive: true,
		},
		{
			ID: "helpful-hand", Name: "Helpful Hand",
			Description: "Receive 10 helpful votes on your reviews",
			Icon:        "🤝", Color: "#00BCD4",
			Category: BadgeCategoryReview, Rarity: RarityRare,
			Requirement: BadgeRequirement{Metric: MetricHelpfulVotes, Value: 10},
			XPReward:    100, IsActive: true,
		},
		{
			ID: "week-warrior", Name: "Week Warrior",
			Description: "Keep a 7-day learning streak",
			Icon:        "🔥", Color: "#F44336",
			Category: BadgeCategoryStreak, Rarity: RarityRare,
			Requirement: BadgeRequirement{Metric: MetricStreak, Value: 7},
			XPReward:    100, IsActive: true,
		},
		{
			ID: "unstoppable", Name: "Unstoppable",
			Description: "Keep a 30-day learning streak",
			Icon:        "⚡", Color: "#FFC107",
			Category: BadgeCategoryStreak, Rarity: RarityLegendary,
			Requirement: BadgeRequirement{Metric: MetricStreak, Value: 30},
			XPReward:    500, IsActive: true,
		},
		{
			ID: "rising-star", Name: "Rising Star",
			Description: "Reach level 10",
			Icon:        "⭐", Color: "#3F51B5",
			Category: BadgeCategoryAchievement, Rarity: RarityEpic,
			Requirement: BadgeRequirement{Metric: MetricLevel, Value: 10},
			XPReward:    250, IsActive: true,
		},
		{
			ID: "xp-collector", Name: "XP Collector",
			Description: "Earn 5000 XP",
			Icon:        "💎", Color: "#795548",
			Category: BadgeCategorySpecial, Rarity: RarityEpic,
			Requirement: BadgeRequirement{Metric: MetricTotalXP, Value: 5000},
			XPReward:    0, IsActive: true,
		},
	}
}

// DefaultAchievements is the built-in achievement catalog, seeded when the store is empty.
func DefaultAchievements() []Achievement {
	return []Achievement{
		{
			ID: "well-rounded", Name: "Well Rounded",
			Description: "Complete a course, pass a quiz and write a review",
			Icon:        "🌐", Color: "#009688",
			Category: AchievementCategoryExploration, Type: AchievementTypeMilestone,
			Requirements: []Condition{
				{Metric: MetricCoursesCompleted, Operator: OpGreaterOrEqual, Value: 1},
				{Metric: MetricQuizzesPassed, Operator: OpGreaterOrEqual, Value: 1},
				{Metric: MetricReviewsWritten, Operator: OpGreaterOrEqual, Value: 1},
			},
			Rewards:  datatypes.NewJSONType(AchievementRewards{XP: 150, Title: "Explorer"}),
			IsActive: true,
		},
		{
			ID: "scholar", Name: "Scholar",
			Description: "Complete 10 courses with an average quiz score of at least 85",
			Icon:        "🏛️", Color: "#673AB7",
			Category: AchievementCategoryMastery, Type: AchievementTypeChallenge,
			Requirements: []Condition{
				{Metric: MetricCoursesCompleted, Operator: OpGreaterOrEqual, Value: 10},
				{Metric: MetricStatsAverageQuiz, Operator: OpGreaterOrEqual, Value: 85},
				{Metric: MetricQuizzesPassed, Operator: OpGreaterOrEqual, Value: 10},
				{Metric: MetricCertificatesEarned, Operator: OpGreaterOrEqual, Value: 5},
			},
			Rewards:  datatypes.NewJSONType(AchievementRewards{XP: 1000, BadgeID: "dedicated-learner", Title: "Scholar"}),
			IsActive: true,
		},
		{
			ID: "community-pillar", Name: "Community Pillar",
			Description: "Write 10 reviews and collect 25 helpful votes",
			Icon:        "🏆", Color: "#E91E63",
			Category: AchievementCategorySocial, Type: AchievementTypeMilestone,
			Requirements: []Condition{
				{Metric: MetricReviewsWritten, Operator: OpGreaterOrEqual, Value: 10},
				{Metric: MetricStatsHelpfulVotes, Operator: OpGreaterOrEqual, Value: 25},
			},
			Rewards:  datatypes.NewJSONType(AchievementRewards{XP: 300, BadgeID: "helpful-hand"}),
			IsActive: true,
		},
		{
			ID: "marathon", Name: "Marathon",
			Description: "Study for 100 hours and hold a 14-day streak",
			Icon:        "🏃", Color: "#FF5722",
			Category: AchievementCategoryDedication, Type: AchievementTypeChallenge,
			Requirements: []Condition{
				{Metric: MetricStatsStudyTime, Operator: OpGreaterOrEqual, Value: 6000},
				{Metric: MetricLongestStreak, Operator: OpGreaterOrEqual, Value: 14},
			},
			Rewards:  datatypes.NewJSONType(AchievementRewards{XP: 750}),
			IsActive: true,
		},
		{
			ID: "night-owl", Name: "Night Owl",
			Description: "A secret for the truly devoted",
			Icon:        "🦉", Color: "#263238",
			Category: AchievementCategoryDedication, Type: AchievementTypeHidden,
			Requirements: []Condition{
				{Metric: MetricLessonsCompleted, Operator: OpGreaterOrEqual, Value: 100},
				{Metric: MetricStreak, Operator: OpGreaterOrEqual, Value: 21},
			},
			Rewards:  datatypes.NewJSONType(AchievementRewards{XP: 500, Title: "Night Owl"}),
			IsHidden: true,
			IsActive: true,
		},
	}
}
