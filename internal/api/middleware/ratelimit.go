package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

// DefaultGPTRateLimit is the per-client budget of /gpt calls per minute
const DefaultGPTRateLimit = 30

// GPTRateLimit returns a rate limiter for the raw completion endpoint (max per minute, by IP)
func GPTRateLimit(max int) fiber.Handler {
	if max <= 0 {
		max = DefaultGPTRateLimit
	}
	return APIRateLimit("gpt", max, time.Minute)
}

// APIRateLimit returns a rate limiter keyed by client IP under the given scope
func APIRateLimit(scope string, max int, expiration time.Duration) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: expiration,
		KeyGenerator: func(c *fiber.Ctx) string {
			return fmt.Sprintf("%s:ip:%s", scope, c.IP())
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "API rate limit exceeded. Please slow down your requests.",
				"code":  fiber.StatusTooManyRequests,
			})
		},
		SkipFailedRequests: true,
	})
}
