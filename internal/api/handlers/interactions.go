package handlers

import (
	"context"

	"github.com/agentx/slackgpt-bot/internal/models"
	"github.com/gofiber/fiber/v2"
)

// InteractionHistory reads the audit trail
type InteractionHistory interface {
	UserHistory(ctx context.Context, userID string, limit int) ([]*models.InteractionLog, error)
	Recent(ctx context.Context, limit int) ([]*models.InteractionLog, error)
}

// ListInteractions handles GET /api/v1/interactions?user=U123&limit=50
func ListInteractions(history InteractionHistory) fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := c.QueryInt("limit", 0)

		var (
			entries []*models.InteractionLog
			err     error
		)
		if userID := c.Query("user"); userID != "" {
			entries, err = history.UserHistory(c.UserContext(), userID, limit)
		} else {
			entries, err = history.Recent(c.UserContext(), limit)
		}
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to load interactions",
				"code":  fiber.StatusInternalServerError,
			})
		}

		if entries == nil {
			entries = []*models.InteractionLog{}
		}
		return c.JSON(fiber.Map{
			"interactions": entries,
			"count":        len(entries),
		})
	}
}
