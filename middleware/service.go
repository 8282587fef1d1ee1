package middleware

import (
	"crypto/subtle"
	"log"

	"github.com/gofiber/fiber/v2"
)

// ServiceTokenHeader carries the shared secret of collaborating backend
// services. The gateway never forwards it from browsers.
const ServiceTokenHeader = "X-Service-Token"

// ServiceTokenMiddleware admits only callers presenting the internal service
// token. It runs in addition to the gateway check.
func ServiceTokenMiddleware(expectedToken string) fiber.Handler {
	if expectedToken == "" {
		log.Fatal("❌ INTERNAL_SERVICE_TOKEN is not set, internal routes cannot authenticate callers")
	}
	expected := []byte(expectedToken)

	return func(c *fiber.Ctx) error {
		token := c.Get(ServiceTokenHeader)
		if token == "" {
			log.Printf("🚫 [SERVICE_AUTH] Missing %s for %s", ServiceTokenHeader, c.Path())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "internal route requires a service token",
			})
		}
		if subtle.ConstantTimeCompare([]byte(token), expected) != 1 {
			log.Printf("❌ [SERVICE_AUTH] Invalid service token for %s", c.Path())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "invalid service token",
			})
		}
		return c.Next()
	}
}
