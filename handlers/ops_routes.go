package handlers

import (
	"learning-gamification/services"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupOpsRoutes registers health and metrics endpoints. Register them before
// the gateway middleware so health checks and scrapers need no token.
func SetupOpsRoutes(app *fiber.App, catalog *services.CatalogService) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":            "ok",
			"badges":            len(catalog.Badges()),
			"achievements":      len(catalog.Achievements()),
			"catalog_loaded_at": catalog.LoadedAt(),
		})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
}
