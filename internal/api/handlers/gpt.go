package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// TextGenerator produces a completion for a single prompt
type TextGenerator interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// GenerateText handles GET /api/v1/gpt?prompt=...
// The reply is the generated text as a JSON string.
func GenerateText(generator TextGenerator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		prompt := c.Query("prompt")
		if prompt == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "prompt is required",
				"code":  fiber.StatusBadRequest,
			})
		}

		text, err := generator.GenerateText(c.UserContext(), prompt)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "Failed to generate text",
				"details": err.Error(),
				"code":    fiber.StatusInternalServerError,
			})
		}

		return c.JSON(text)
	}
}
