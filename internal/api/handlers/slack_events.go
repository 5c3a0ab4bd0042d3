package handlers

import (
	"github.com/agentx/slackgpt-bot/internal/logging"
	"github.com/agentx/slackgpt-bot/internal/metrics"
	"github.com/agentx/slackgpt-bot/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// HeaderSlackRetryNum is set by Slack on redeliveries
const HeaderSlackRetryNum = "X-Slack-Retry-Num"

// EventDispatcher accepts filtered events for background processing
type EventDispatcher interface {
	Dispatch(decision services.EventDecision)
}

// SlackHandler receives Slack Events API callbacks and dispatches the ones worth answering
type SlackHandler struct {
	dispatcher EventDispatcher
	dedup      *services.EventDeduplicator
	metrics    *metrics.Metrics
	logger     *logrus.Logger
}

// NewSlackHandler creates a handler without de-duplication or metrics
func NewSlackHandler(dispatcher EventDispatcher, logger *logrus.Logger) *SlackHandler {
	return &SlackHandler{
		dispatcher: dispatcher,
		logger:     logging.OrDefault(logger),
	}
}

// WithDeduplicator drops events whose event_id was already dispatched
func (h *SlackHandler) WithDeduplicator(dedup *services.EventDeduplicator) *SlackHandler {
	h.dedup = dedup
	return h
}

// WithMetrics counts every callback by the status returned to Slack
func (h *SlackHandler) WithMetrics(m *metrics.Metrics) *SlackHandler {
	h.metrics = m
	return h
}

// HandleEvent handles POST /slack/events
func (h *SlackHandler) HandleEvent(c *fiber.Ctx) error {
	retryNum := c.Get(HeaderSlackRetryNum)

	var payload services.EventPayload
	if retryNum == "" {
		if err := c.BodyParser(&payload); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid event payload",
				"code":  fiber.StatusBadRequest,
			})
		}
	}

	decision := services.FilterEvent(retryNum, payload)
	if decision.Process && !h.dedup.FirstSeen(payload.EventID) {
		decision = services.EventDecision{Status: services.StatusIgnored, Reason: "duplicate event"}
	}
	h.metrics.ObserveEvent(decision.Status)

	log := h.logger.WithFields(logrus.Fields{
		"event_id": payload.EventID,
		"type":     payload.Event.Type,
		"channel":  payload.Event.Channel,
		"status":   decision.Status,
		"reason":   decision.Reason,
	})

	if decision.Challenge != "" {
		log.Info("Answering URL verification")
		return c.JSON(fiber.Map{"challenge": decision.Challenge})
	}

	if decision.Process {
		log.Info("Dispatching Slack event")
		h.dispatcher.Dispatch(decision)
	} else {
		log.Debug("Ignoring Slack event")
	}

	return c.JSON(fiber.Map{"status": decision.Status})
}
