package chat

import (
	"context"

	"github.com/agentx/slackgpt-bot/internal/models"
)

// Gateway is the chat platform the bot lives on
type Gateway interface {
	// BotUserID resolves the bot's own user identity
	BotUserID(ctx context.Context) (string, error)

	// ThreadMessages returns every message of a thread in chronological order,
	// paging through the platform's cursors
	ThreadMessages(ctx context.Context, channelID, threadTS string) ([]models.TranscriptMessage, error)

	// PostMessage posts text as a reply in the given thread
	PostMessage(ctx context.Context, channelID, threadTS, text string) error
}
