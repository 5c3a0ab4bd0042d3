package slack

import (
	"context"
	"fmt"
	"time"

	"github.com/agentx/slackgpt-bot/internal/logging"
	"github.com/agentx/slackgpt-bot/internal/models"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
)

// replyPageSize is the page size requested from conversations.replies
const replyPageSize = 200

const (
	botIdentityKey = "bot_user_id"
	botIdentityTTL = time.Hour
)

// Client implements chat.Gateway on top of the Slack Web API
type Client struct {
	api    *slack.Client
	cache  *cache.Cache
	logger *logrus.Logger
}

// NewClient creates a Slack gateway for the given bot token.
// Extra options are passed to slack.New (tests use slack.OptionAPIURL).
func NewClient(token string, logger *logrus.Logger, opts ...slack.Option) *Client {
	return &Client{
		api:    slack.New(token, opts...),
		cache:  cache.New(botIdentityTTL, 2*botIdentityTTL),
		logger: logging.OrDefault(logger),
	}
}

// BotUserID returns the user id the token authenticates as.
// A successful auth.test answer is cached for an hour.
func (c *Client) BotUserID(ctx context.Context) (string, error) {
	if cached, found := c.cache.Get(botIdentityKey); found {
		return cached.(string), nil
	}

	resp, err := c.api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("slack auth.test: %w", err)
	}
	if resp.UserID != "" {
		c.cache.Set(botIdentityKey, resp.UserID, cache.DefaultExpiration)
	}
	return resp.UserID, nil
}

// ThreadMessages fetches all replies of a thread, parent message included
func (c *Client) ThreadMessages(ctx context.Context, channelID, threadTS string) ([]models.TranscriptMessage, error) {
	var messages []models.TranscriptMessage
	cursor := ""
	pages := 0

	for {
		msgs, _, next, err := c.api.GetConversationRepliesContext(ctx, &slack.GetConversationRepliesParameters{
			ChannelID: channelID,
			Timestamp: threadTS,
			Cursor:    cursor,
			Limit:     replyPageSize,
		})
		if err != nil {
			return nil, fmt.Errorf("slack conversations.replies: %w", err)
		}
		pages++

		for _, msg := range msgs {
			author := msg.User
			if author == "" {
				author = msg.BotID
			}
			messages = append(messages, models.TranscriptMessage{
				Text: msg.Text,
				User: author,
			})
		}

		if next == "" {
			break
		}
		cursor = next
	}

	c.logger.WithFields(logrus.Fields{
		"channel":   channelID,
		"thread_ts": threadTS,
		"messages":  len(messages),
		"pages":     pages,
	}).Debug("Fetched thread replies")

	return messages, nil
}

// PostMessage replies in the thread identified by threadTS
func (c *Client) PostMessage(ctx context.Context, channelID, threadTS, text string) error {
	_, _, err := c.api.PostMessageContext(ctx, channelID,
		slack.MsgOptionText(text, false),
		slack.MsgOptionTS(threadTS),
	)
	if err != nil {
		return fmt.Errorf("slack chat.postMessage: %w", err)
	}
	return nil
}
