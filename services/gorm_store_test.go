package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"learning-gamification/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "gamification.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.AutoMigrate(
		&models.UserProgress{},
		&models.Badge{},
		&models.Achievement{},
		&models.CatalogCounter{},
	); err != nil {
		t.Fatalf("failed to migrate database: %v", err)
	}
	return db
}

func TestGormProgressRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewGormProgressRepository(newTestDB(t))
	login := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	p := models.NewUserProgress("alice")
	if _, err := p.UpdateStreak(login, models.RollingDays); err != nil {
		t.Fatalf("UpdateStreak failed: %v", err)
	}
	p.AddXP(500, models.SourceCourseCompletion)
	p.AwardBadge("first-steps")
	if err := p.UpdateAchievementProgress("quiz-streak", 40, login); err != nil {
		t.Fatalf("UpdateAchievementProgress failed: %v", err)
	}
	p.AddHelpfulVotes(3)
	if _, err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := repo.FindByUserID(ctx, "alice")
	if err != nil {
		t.Fatalf("FindByUserID failed: %v", err)
	}
	if got.ID != p.ID || got.TotalXP != 510 || got.Level != 2 || got.CurrentLevelXP != 210 {
		t.Errorf("Expected level 2 with 510 XP (210 into the level), got level %d with %d XP (%d)", got.Level, got.TotalXP, got.CurrentLevelXP)
	}
	if got.PointsBreakdown[models.SourceCourseCompletion] != 500 || got.PointsBreakdown[models.SourceDailyLogin] != 10 {
		t.Errorf("Expected breakdown to survive storage, got %v", got.PointsBreakdown)
	}
	if !got.HasBadge("first-steps") || got.Achievements["quiz-streak"].Progress != 40 {
		t.Errorf("Expected badge and achievement progress to survive storage, got %v / %v", got.Badges, got.Achievements)
	}
	if got.LastLoginDate == nil || !got.LastLoginDate.Equal(login) {
		t.Errorf("Expected last login %v, got %v", login, got.LastLoginDate)
	}
	if got.Stats.TotalHelpfulVotes != 3 {
		t.Errorf("Expected 3 helpful votes, got %d", got.Stats.TotalHelpfulVotes)
	}
}

func TestGormProgressCreateReturnsExistingRecord(t *testing.T) {
	ctx := context.Background()
	repo := NewGormProgressRepository(newTestDB(t))

	first, err := repo.Create(ctx, models.NewUserProgress("bob"))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	second, err := repo.Create(ctx, models.NewUserProgress("bob"))
	if err != nil {
		t.Fatalf("second Create failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("Expected the existing record %s, got %s", first.ID, second.ID)
	}
	if n, _ := repo.Count(ctx); n != 1 {
		t.Errorf("Expected 1 record, got %d", n)
	}
}

func TestGormProgressSaveDetectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewGormProgressRepository(newTestDB(t))
	if _, err := repo.Create(ctx, models.NewUserProgress("carol")); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	a, _ := repo.FindByUserID(ctx, "carol")
	b, _ := repo.FindByUserID(ctx, "carol")

	a.AddXP(50, models.SourceOther)
	if err := repo.Save(ctx, a); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if a.Version != 1 {
		t.Errorf("Expected version 1 after save, got %d", a.Version)
	}

	b.AddXP(20, models.SourceOther)
	err := repo.Save(ctx, b)
	if !errors.Is(err, models.ErrConflict) {
		t.Fatalf("Expected ErrConflict for a stale write, got %v", err)
	}
	if b.Version != 0 {
		t.Errorf("Expected the stale copy to keep version 0, got %d", b.Version)
	}

	stored, _ := repo.FindByUserID(ctx, "carol")
	if stored.TotalXP != 50 || stored.Version != 1 || stored.PointsBreakdown[models.SourceOther] != 50 {
		t.Errorf("Expected the first write only (50 XP, version 1), got %d XP at version %d", stored.TotalXP, stored.Version)
	}

	stored.AddXP(5, models.SourceOther)
	if err := repo.Save(ctx, stored); err != nil {
		t.Fatalf("Save on a fresh read failed: %v", err)
	}
	if stored.Version != 2 {
		t.Errorf("Expected version 2, got %d", stored.Version)
	}
}

func TestGormServiceSeesWritesFromOtherReplicas(t *testing.T) {
	ctx := context.Background()
	repo := NewGormProgressRepository(newTestDB(t))
	catalog := NewCatalogService(NewMemoryCatalogStore())
	svc := NewGamificationService(repo, catalog)

	if _, err := svc.AwardXP(ctx, "dana", 10, ""); err != nil {
		t.Fatalf("AwardXP failed: %v", err)
	}
	// a write from another replica, outside this process's user lock
	other, _ := repo.FindByUserID(ctx, "dana")
	other.AddXP(7, models.SourceOther)
	if err := repo.Save(ctx, other); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	award, err := svc.AwardXP(ctx, "dana", 3, "")
	if err != nil {
		t.Fatalf("AwardXP failed: %v", err)
	}
	if award.Progress.TotalXP != 20 {
		t.Errorf("Expected all three grants to land (20 XP), got %d", award.Progress.TotalXP)
	}
}

func TestGormLeaderboardOrdering(t *testing.T) {
	ctx := context.Background()
	repo := NewGormProgressRepository(newTestDB(t))
	for _, s := range []struct {
		id    string
		xp    int64
		level int
	}{
		{"alice", 900, 3},
		{"bob", 1200, 3},
		{"carol", 300, 2},
		{"dave", 900, 3},
	} {
		p := models.NewUserProgress(s.id)
		p.TotalXP = s.xp
		p.Level = s.level
		if _, err := repo.Create(ctx, p); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
	}

	rows, err := repo.Leaderboard(ctx, models.LeaderboardLevel, 0, 10)
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	want := []string{"bob", "alice", "dave", "carol"}
	if len(rows) != len(want) {
		t.Fatalf("Expected %d rows, got %d", len(want), len(rows))
	}
	for i, id := range want {
		if rows[i].ExternalUserID != id {
			t.Errorf("Expected %s at position %d, got %s", id, i, rows[i].ExternalUserID)
		}
	}

	above, err := repo.CountAbove(ctx, models.LeaderboardXP, 900)
	if err != nil {
		t.Fatalf("CountAbove failed: %v", err)
	}
	if above != 1 {
		t.Errorf("Expected 1 user above 900 XP, got %d", above)
	}
}

func TestGormCatalogReplaceAndCounters(t *testing.T) {
	ctx := context.Background()
	store := NewGormCatalogStore(newTestDB(t))

	badges := models.DefaultBadges()
	achievements := models.DefaultAchievements()
	if err := store.ReplaceCatalog(ctx, badges, achievements); err != nil {
		t.Fatalf("ReplaceCatalog failed: %v", err)
	}
	loadedBadges, err := store.LoadBadges(ctx)
	if err != nil {
		t.Fatalf("LoadBadges failed: %v", err)
	}
	loadedAchievements, err := store.LoadAchievements(ctx)
	if err != nil {
		t.Fatalf("LoadAchievements failed: %v", err)
	}
	if len(loadedBadges) != len(badges) || len(loadedAchievements) != len(achievements) {
		t.Fatalf("Expected %d badges and %d achievements, got %d and %d",
			len(badges), len(achievements), len(loadedBadges), len(loadedAchievements))
	}
	for _, a := range loadedAchievements {
		if len(a.Requirements) == 0 {
			t.Errorf("Expected requirements for %s to survive storage", a.ID)
		}
	}

	for i := 0; i < 2; i++ {
		if err := store.IncrementCounter(ctx, models.CounterKindBadge, badges[0].ID); err != nil {
			t.Fatalf("IncrementCounter failed: %v", err)
		}
	}

	if err := store.ReplaceCatalog(ctx, badges[:1], nil); err != nil {
		t.Fatalf("second ReplaceCatalog failed: %v", err)
	}
	loadedBadges, _ = store.LoadBadges(ctx)
	loadedAchievements, _ = store.LoadAchievements(ctx)
	if len(loadedBadges) != 1 || loadedBadges[0].ID != badges[0].ID || len(loadedAchievements) != 0 {
		t.Errorf("Expected only %s after replacing, got %d badges and %d achievements",
			badges[0].ID, len(loadedBadges), len(loadedAchievements))
	}

	counts, err := store.Counters(ctx, models.CounterKindBadge)
	if err != nil {
		t.Fatalf("Counters failed: %v", err)
	}
	if counts[badges[0].ID] != 2 {
		t.Errorf("Expected earned count 2 to survive a catalog replace, got %d", counts[badges[0].ID])
	}
}
