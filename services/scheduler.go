package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartCatalogRefresher reloads the catalog snapshot every interval so admin
// edits made by other instances become visible.
func StartCatalogRefresher(catalog *CatalogService, interval time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := catalog.Refresh(ctx); err != nil {
				log.Printf("[Scheduler] Catalog refresh failed: %v", err)
				return
			}
			log.Printf("🔄 [Scheduler] Catalog refreshed: %d badges, %d achievements",
				len(catalog.Badges()), len(catalog.Achievements()))
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = sched.Shutdown()
		return nil, err
	}

	sched.Start()
	return sched, nil
}
