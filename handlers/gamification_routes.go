package handlers

import (
	"context"
	"errors"
	"log"
	"strings"

	"learning-gamification/middleware"
	"learning-gamification/models"
	"learning-gamification/services"
	"learning-gamification/utils"

	"github.com/gofiber/fiber/v2"
)

// SeedFetcher loads catalog seed documents by object key.
type SeedFetcher interface {
	Fetch(ctx context.Context, key string) ([]byte, error)
}

// respondError maps the service error taxonomy onto HTTP statuses.
func respondError(c *fiber.Ctx, err error, msg string) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		status = fiber.StatusBadRequest
	case errors.Is(err, models.ErrNotFound), errors.Is(err, utils.ErrObjectNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, models.ErrForbidden):
		status = fiber.StatusForbidden
	case errors.Is(err, models.ErrConflict):
		status = fiber.StatusConflict
	}
	if status == fiber.StatusInternalServerError {
		log.Printf("❌ [HTTP] %s %s: %s: %v", c.Method(), c.Path(), msg, err)
	}
	return c.Status(status).JSON(fiber.Map{
		"error": msg,
		"cause": err.Error(),
	})
}

func badJSON(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": "invalid JSON",
		"cause": err.Error(),
	})
}

// SetupGamificationRoutes mounts the user and admin routes, and the /internal
// collaborator routes when serviceToken is set.
func SetupGamificationRoutes(app *fiber.App, svc *services.GamificationService, seeds SeedFetcher, serviceToken string) {
	// 🔐 signed-in users only
	requireUser := middleware.UserContextMiddleware(true)
	// 🌍 anonymous allowed, personalised when a user is present
	optionalUser := middleware.UserContextMiddleware(false)

	// Reading progress also counts as the daily streak activity.
	app.Get("/progress", requireUser, func(c *fiber.Ctx) error {
		view, err := svc.GetProgress(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err, "failed to load progress")
		}
		return c.JSON(view)
	})

	app.Get("/stats", requireUser, func(c *fiber.Ctx) error {
		stats, err := svc.UserStats(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err, "failed to load stats")
		}
		return c.JSON(stats)
	})

	app.Post("/check-badges", requireUser, func(c *fiber.Ctx) error {
		earned, err := svc.CheckBadges(c.UserContext(), middleware.UserID(c))
		if earned == nil {
			return respondError(c, err, "badge check failed")
		}
		return c.JSON(sweepResponse("badges", earned, err))
	})

	app.Post("/check-achievements", requireUser, func(c *fiber.Ctx) error {
		unlocked, err := svc.CheckAchievements(c.UserContext(), middleware.UserID(c))
		if unlocked == nil {
			return respondError(c, err, "achievement check failed")
		}
		return c.JSON(sweepResponse("achievements", unlocked, err))
	})

	app.Get("/leaderboard", optionalUser, func(c *fiber.Ctx) error {
		q, err := services.NewLeaderboardQuery(c.Query("type"), c.QueryInt("page", 1), c.QueryInt("limit", services.DefaultLeaderboardLimit))
		if err != nil {
			return respondError(c, err, "invalid leaderboard query")
		}
		page, err := svc.Leaderboard(c.UserContext(), q, middleware.UserID(c))
		if err != nil {
			return respondError(c, err, "failed to load leaderboard")
		}
		return c.JSON(page)
	})

	app.Get("/badges", optionalUser, func(c *fiber.Ctx) error {
		badges, err := svc.ListBadges(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err, "failed to list badges")
		}
		return c.JSON(fiber.Map{"badges": badges})
	})

	app.Get("/achievements", optionalUser, func(c *fiber.Ctx) error {
		achievements, err := svc.ListAchievements(c.UserContext(), middleware.UserID(c))
		if err != nil {
			return respondError(c, err, "failed to list achievements")
		}
		return c.JSON(fiber.Map{"achievements": achievements})
	})

	setupAdminRoutes(app, svc, seeds)
	if serviceToken == "" {
		log.Println("⚠️  INTERNAL_SERVICE_TOKEN not set, /internal routes are disabled")
		return
	}
	setupInternalRoutes(app, svc, serviceToken)
}

func sweepResponse(kind string, items any, err error) fiber.Map {
	resp := fiber.Map{kind: items}
	if err != nil {
		resp["partial_failure"] = err.Error()
	}
	return resp
}

// Admin endpoints
func setupAdminRoutes(app *fiber.App, svc *services.GamificationService, seeds SeedFetcher) {
	admin := app.Group("/admin", middleware.UserContextMiddleware(true), middleware.RequireRole("admin"))

	admin.Post("/award-xp", func(c *fiber.Ctx) error {
		type Req struct {
			XP        int64  `json:"xp"`
			Source    string `json:"source"`
			UserID    string `json:"user_id"`
			UserIDAlt string `json:"userId"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return badJSON(c, err)
		}
		target := req.UserID
		if target == "" {
			target = req.UserIDAlt
		}
		if target == "" {
			target = middleware.UserID(c)
		}

		award, err := svc.AwardXP(c.UserContext(), target, req.XP, req.Source)
		if err != nil {
			return respondError(c, err, "XP award failed")
		}
		log.Printf("🎁 [ADMIN] %s granted %d XP (%s) to %s", middleware.UserID(c), req.XP, award.Result.Source, target)
		return c.JSON(fiber.Map{
			"message":    "XP granted successfully",
			"user_id":    target,
			"xp":         req.XP,
			"leveled_up": award.Result.LeveledUp,
			"level":      award.Result.NewLevel,
			"progress":   award.Progress,
		})
	})

	// Body is either a YAML catalog document or {"key": "<object key>"} naming one in R2.
	admin.Post("/catalog/seed", func(c *fiber.Ctx) error {
		data := c.Body()
		if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEApplicationJSON) {
			var req struct {
				Key string `json:"key"`
			}
			if err := c.BodyParser(&req); err != nil {
				return badJSON(c, err)
			}
			if req.Key == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "key is required"})
			}
			if seeds == nil {
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "object storage is not configured",
				})
			}
			fetched, err := seeds.Fetch(c.UserContext(), req.Key)
			if err != nil {
				return respondError(c, err, "failed to fetch catalog seed")
			}
			data = fetched
		}

		catalog := svc.Catalog()
		if err := catalog.SeedCatalog(c.UserContext(), data); err != nil {
			return respondError(c, err, "catalog seed rejected")
		}
		return c.JSON(fiber.Map{
			"message":      "catalog replaced",
			"badges":       len(catalog.Badges()),
			"achievements": len(catalog.Achievements()),
		})
	})

	admin.Post("/catalog/refresh", func(c *fiber.Ctx) error {
		catalog := svc.Catalog()
		if err := catalog.Refresh(c.UserContext()); err != nil {
			return respondError(c, err, "catalog refresh failed")
		}
		return c.JSON(fiber.Map{
			"badges":       len(catalog.Badges()),
			"achievements": len(catalog.Achievements()),
			"loaded_at":    catalog.LoadedAt(),
		})
	})
}

// Collaborator endpoints: course, quiz and review services report domain
// events here. Each report is followed by a badge and achievement sweep.
func setupInternalRoutes(app *fiber.App, svc *services.GamificationService, serviceToken string) {
	internal := app.Group("/internal", middleware.ServiceTokenMiddleware(serviceToken))

	internal.Post("/activity", func(c *fiber.Ctx) error {
		var req struct {
			UserID  string `json:"user_id"`
			Counter string `json:"counter"`
			XP      int64  `json:"xp"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badJSON(c, err)
		}
		award, err := svc.RecordActivity(c.UserContext(), req.UserID, req.Counter, req.XP)
		if err != nil {
			return respondError(c, err, "failed to record activity")
		}
		return c.JSON(withSweep(c, svc, req.UserID, fiber.Map{
			"progress":   award.Progress,
			"leveled_up": award.Result.LeveledUp,
		}))
	})

	internal.Post("/quiz-result", func(c *fiber.Ctx) error {
		var req struct {
			UserID string  `json:"user_id"`
			Score  float64 `json:"score"`
			Passed bool    `json:"passed"`
			XP     int64   `json:"xp"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badJSON(c, err)
		}
		award, err := svc.RecordQuizResult(c.UserContext(), req.UserID, req.Score, req.Passed, req.XP)
		if err != nil {
			return respondError(c, err, "failed to record quiz result")
		}
		return c.JSON(withSweep(c, svc, req.UserID, fiber.Map{
			"progress":   award.Progress,
			"leveled_up": award.Result.LeveledUp,
		}))
	})

	internal.Post("/study-time", func(c *fiber.Ctx) error {
		var req struct {
			UserID  string `json:"user_id"`
			Minutes int64  `json:"minutes"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badJSON(c, err)
		}
		p, err := svc.RecordStudyTime(c.UserContext(), req.UserID, req.Minutes)
		if err != nil {
			return respondError(c, err, "failed to record study time")
		}
		return c.JSON(withSweep(c, svc, req.UserID, fiber.Map{"progress": p}))
	})

	internal.Post("/helpful-votes", func(c *fiber.Ctx) error {
		var req struct {
			UserID string `json:"user_id"`
			Votes  int64  `json:"votes"`
		}
		if err := c.BodyParser(&req); err != nil {
			return badJSON(c, err)
		}
		p, err := svc.RecordHelpfulVotes(c.UserContext(), req.UserID, req.Votes)
		if err != nil {
			return respondError(c, err, "failed to record helpful votes")
		}
		return c.JSON(withSweep(c, svc, req.UserID, fiber.Map{"progress": p}))
	})
}

// withSweep runs both sweeps for userID and adds whatever they awarded to resp.
// Sweep failures are logged by the service and never fail the report itself.
func withSweep(c *fiber.Ctx, svc *services.GamificationService, userID string, resp fiber.Map) fiber.Map {
	badges, _ := svc.CheckBadges(c.UserContext(), userID)
	achievements, _ := svc.CheckAchievements(c.UserContext(), userID)
	if badges == nil {
		badges = []models.Badge{}
	}
	if achievements == nil {
		achievements = []models.Achievement{}
	}
	resp["new_badges"] = badges
	resp["new_achievements"] = achievements
	return resp
}
