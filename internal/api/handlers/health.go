package handlers

import (
	"github.com/gofiber/fiber/v2"
)

// Ping handles GET /ping
func Ping(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"message": "pong"})
}

// Health handles GET /api/v1/health
func Health(service string, auditEnabled bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": service,
			"audit":   auditEnabled,
		})
	}
}
