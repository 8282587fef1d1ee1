package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"learning-gamification/config"
	"learning-gamification/handlers"
	"learning-gamification/middleware"
	"learning-gamification/models"
	"learning-gamification/services"
	"learning-gamification/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		progressRepo services.ProgressRepository
		catalogStore services.CatalogStore
	)
	if cfg.DatabaseURL == "" {
		log.Println("⚠️  DATABASE_URL not set, using in-memory storage (data is lost on restart)")
		progressRepo = services.NewMemoryProgressRepository()
		catalogStore = services.NewMemoryCatalogStore()
	} else {
		db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
		if err != nil {
			log.Fatal("failed to connect to database:", err)
		}
		if err := db.AutoMigrate(
			&models.UserProgress{},
			&models.Badge{},
			&models.Achievement{},
			&models.CatalogCounter{},
		); err != nil {
			log.Fatal("failed to migrate database:", err)
		}
		progressRepo = services.NewGormProgressRepository(db)
		catalogStore = services.NewGormCatalogStore(db)
	}

	var seeds handlers.SeedFetcher
	var r2 *utils.R2Store
	if cfg.R2Enabled() {
		r2, err = utils.NewR2Store(ctx, cfg.CloudflareAccountID, cfg.R2AccessKeyID, cfg.R2AccessKeySecret, cfg.R2BucketName)
		if err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		seeds = r2
	}

	catalog := services.NewCatalogService(catalogStore)
	if err := seedCatalog(ctx, cfg, catalog, r2); err != nil {
		log.Fatal("failed to load catalog:", err)
	}

	publisher, err := services.NewRabbitPublisher(cfg.RabbitMQURL)
	if err != nil {
		log.Fatal("failed to initialize event publisher:", err)
	}
	defer publisher.Close()

	dayPolicy := models.RollingDays
	if cfg.StreakDayMode == "calendar" {
		loc, _ := time.LoadLocation(cfg.StreakTimezone)
		dayPolicy = models.CalendarDays(loc)
	}

	svc := services.NewGamificationService(progressRepo, catalog).
		WithPublisher(publisher).
		WithDayPolicy(dayPolicy)

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal("invalid REDIS_URL:", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("⚠️  Redis unreachable (%v), leaderboard cache disabled", err)
		} else {
			svc.WithLeaderboardCache(services.NewRedisLeaderboardCache(rdb, cfg.LeaderboardCacheTTL))
			log.Println("✅ Leaderboard cache on Redis")
		}
	}

	sched, err := services.StartCatalogRefresher(catalog, cfg.CatalogRefreshInterval)
	if err != nil {
		log.Fatal("failed to start scheduler:", err)
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 4 * 1024 * 1024,
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Origins(),
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, X-User-ID, X-User-Roles",
		ExposeHeaders:    "Content-Length, Content-Type, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	// health checks and scrapers bypass the gateway token
	handlers.SetupOpsRoutes(app, catalog)

	// 🔐❗ Everything else: Gateway requests only
	app.Use(middleware.GatewayAuthMiddleware(cfg.GatewayToken))
	handlers.SetupGamificationRoutes(app, svc, seeds, cfg.InternalServiceToken)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", cfg.Port)
	log.Printf("✅ Catalog refresh every %s", cfg.CatalogRefreshInterval)
	log.Printf("✅ CORS configured for origins: %s", cfg.Origins())

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
	if err := sched.Shutdown(); err != nil {
		log.Printf("Scheduler shutdown error: %v", err)
	}
}

// seedCatalog loads the catalog at startup. An explicit seed (local file, then
// R2 object) replaces the stored catalog; otherwise the store is used as is and
// the built-in catalog fills an empty one.
func seedCatalog(ctx context.Context, cfg *config.Config, catalog *services.CatalogService, r2 *utils.R2Store) error {
	switch {
	case cfg.CatalogSeedPath != "":
		data, err := os.ReadFile(cfg.CatalogSeedPath)
		if err != nil {
			return err
		}
		log.Printf("🌱 Seeding catalog from %s", cfg.CatalogSeedPath)
		return catalog.SeedCatalog(ctx, data)
	case cfg.CatalogSeedKey != "" && r2 != nil:
		data, err := r2.Fetch(ctx, cfg.CatalogSeedKey)
		if err != nil {
			return err
		}
		log.Printf("🌱 Seeding catalog from R2 object %s", cfg.CatalogSeedKey)
		return catalog.SeedCatalog(ctx, data)
	case cfg.CatalogSeedKey != "":
		log.Printf("⚠️  CATALOG_SEED_KEY set but R2 is not configured, ignoring")
	}
	return catalog.EnsureSeeded(ctx)
}
