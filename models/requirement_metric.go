package models

// Metric names a progress value that badge and achievement requirements compare against.
type Metric string

const (
	MetricCoursesCompleted   Metric = "coursesCompleted"
	MetricQuizzesCompleted   Metric = "quizzesCompleted"
	MetricQuizzesPassed      Metric = "quizzesPassed"
	MetricReviewsWritten     Metric = "reviewsWritten"
	MetricCertificatesEarned Metric = "certificatesEarned"
	MetricLessonsCompleted   Metric = "lessonsCompleted"
	MetricLevel              Metric = "level"
	MetricTotalXP            Metric = "totalXP"
	MetricCurrentStreak      Metric = "currentStreak"
	MetricLongestStreak      Metric = "longestStreak"
	MetricStreak             Metric = "streak" // best of current and longest
	MetricHelpfulVotes       Metric = "helpfulVotes"
	MetricPerfectQuiz        Metric = "perfectQuiz"
	MetricBadgesEarned       Metric = "badgesEarned"

	MetricStatsHelpfulVotes   Metric = "stats.totalHelpfulVotes"
	MetricStatsStudyTime      Metric = "stats.totalStudyTime"
	MetricStatsAverageQuiz    Metric = "stats.averageQuizScore"
	MetricStatsPerfectQuizzes Metric = "stats.perfectQuizzes"
)

var metricAccessors = map[Metric]func(*UserProgress) float64{
	MetricCoursesCompleted:   func(p *UserProgress) float64 { return float64(p.CoursesCompleted) },
	MetricQuizzesCompleted:   func(p *UserProgress) float64 { return float64(p.QuizzesCompleted) },
	MetricQuizzesPassed:      func(p *UserProgress) float64 { return float64(p.QuizzesPassed) },
	MetricReviewsWritten:     func(p *UserProgress) float64 { return float64(p.ReviewsWritten) },
	MetricCertificatesEarned: func(p *UserProgress) float64 { return float64(p.CertificatesEarned) },
	MetricLessonsCompleted:   func(p *UserProgress) float64 { return float64(p.LessonsCompleted) },
	MetricLevel:              func(p *UserProgress) float64 { return float64(p.Level) },
	MetricTotalXP:            func(p *UserProgress) float64 { return float64(p.TotalXP) },
	MetricCurrentStreak:      func(p *UserProgress) float64 { return float64(p.CurrentStreak) },
	MetricLongestStreak:      func(p *UserProgress) float64 { return float64(p.LongestStreak) },
	MetricStreak: func(p *UserProgress) float64 {
		return float64(max(p.CurrentStreak, p.LongestStreak))
	},
	MetricHelpfulVotes: func(p *UserProgress) float64 { return float64(p.Stats.TotalHelpfulVotes) },
	MetricPerfectQuiz:  func(p *UserProgress) float64 { return float64(p.Stats.PerfectQuizzes) },
	MetricBadgesEarned: func(p *UserProgress) float64 { return float64(len(p.Badges)) },

	MetricStatsHelpfulVotes:   func(p *UserProgress) float64 { return float64(p.Stats.TotalHelpfulVotes) },
	MetricStatsStudyTime:      func(p *UserProgress) float64 { return float64(p.Stats.TotalStudyTime) },
	MetricStatsAverageQuiz:    func(p *UserProgress) float64 { return p.Stats.AverageQuizScore },
	MetricStatsPerfectQuizzes: func(p *UserProgress) float64 { return float64(p.Stats.PerfectQuizzes) },
}

// Valid reports whether m resolves to a progress value.
func (m Metric) Valid() bool {
	_, ok := metricAccessors[m]
	return ok
}

// Resolve reads m from p. ok is false for unknown metrics.
func (m Metric) Resolve(p *UserProgress) (value float64, ok bool) {
	fn, ok := metricAccessors[m]
	if !ok || p == nil {
		return 0, ok
	}
	return fn(p), true
}

// Value reads m from p; unknown metrics read as 0.
func (m Metric) Value(p *UserProgress) float64 {
	v, _ := m.Resolve(p)
	return v
}
