package middleware

import (
	"net/http"

	"github.com/agentx/slackgpt-bot/internal/logging"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
)

// Slack request headers
const (
	HeaderSlackSignature = "X-Slack-Signature"
	HeaderSlackTimestamp = "X-Slack-Request-Timestamp"
)

// SlackSignature rejects requests whose body is not signed with the app's signing secret.
// With an empty secret every request passes.
func SlackSignature(signingSecret string, logger *logrus.Logger) fiber.Handler {
	logger = logging.OrDefault(logger)

	return func(c *fiber.Ctx) error {
		if signingSecret == "" {
			return c.Next()
		}

		header := http.Header{}
		header.Set(HeaderSlackSignature, c.Get(HeaderSlackSignature))
		header.Set(HeaderSlackTimestamp, c.Get(HeaderSlackTimestamp))

		verifier, err := slack.NewSecretsVerifier(header, signingSecret)
		if err != nil {
			logger.WithError(err).WithField("ip", c.IP()).Warn("Rejected Slack request")
			return fiber.NewError(fiber.StatusUnauthorized, "invalid Slack signature")
		}
		if _, err := verifier.Write(c.Body()); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid Slack signature")
		}
		if err := verifier.Ensure(); err != nil {
			logger.WithError(err).WithField("ip", c.IP()).Warn("Rejected Slack request")
			return fiber.NewError(fiber.StatusUnauthorized, "invalid Slack signature")
		}

		return c.Next()
	}
}
