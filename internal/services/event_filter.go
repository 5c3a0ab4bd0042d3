package services

import (
	"fmt"
	"strings"
)

// Response statuses returned to Slack
const (
	StatusOK        = "ok"
	StatusIgnored   = "ignored"
	StatusNoContent = "no content"
)

// Slack Events API payload types handled by the bot
const (
	PayloadURLVerification = "url_verification"
	PayloadEventCallback   = "event_callback"

	EventAppMention = "app_mention"
	ChannelTypeIM   = "im"
)

// EventPayload is the outer envelope of a Slack Events API request
type EventPayload struct {
	Type           string          `json:"type"`
	Challenge      string          `json:"challenge,omitempty"`
	TeamID         string          `json:"team_id,omitempty"`
	EventID        string          `json:"event_id,omitempty"`
	Event          SlackEvent      `json:"event"`
	Authorizations []Authorization `json:"authorizations,omitempty"`
}

// SlackEvent is the inner message or app_mention event
type SlackEvent struct {
	Type        string `json:"type"`
	User        string `json:"user,omitempty"`
	BotID       string `json:"bot_id,omitempty"`
	Channel     string `json:"channel,omitempty"`
	ChannelType string `json:"channel_type,omitempty"`
	Text        string `json:"text,omitempty"`
	TS          string `json:"ts,omitempty"`
	ThreadTS    string `json:"thread_ts,omitempty"`
}

// Authorization identifies an installation the event was delivered for
type Authorization struct {
	UserID string `json:"user_id"`
	TeamID string `json:"team_id,omitempty"`
	IsBot  bool   `json:"is_bot,omitempty"`
}

// EventDecision tells the webhook handler what to answer and whether to process the event
type EventDecision struct {
	Status    string
	Challenge string
	Process   bool
	Reason    string

	ChannelID string
	ThreadTS  string
	UserID    string
}

// FilterEvent decides whether an inbound Slack event should reach the message processor.
// retryNum is the X-Slack-Retry-Num header, empty on first delivery.
func FilterEvent(retryNum string, payload EventPayload) EventDecision {
	if retryNum != "" {
		return EventDecision{Status: StatusIgnored, Reason: fmt.Sprintf("retry %s", retryNum)}
	}

	if payload.Type == PayloadURLVerification {
		return EventDecision{Status: StatusOK, Challenge: payload.Challenge, Reason: "url verification"}
	}

	event := payload.Event
	if event.User == "" || event.BotID != "" {
		return EventDecision{Status: StatusNoContent, Reason: "message from bot or invalid user"}
	}

	decision := EventDecision{
		Status:    StatusOK,
		Process:   true,
		ChannelID: event.Channel,
		ThreadTS:  threadTimestamp(event),
		UserID:    event.User,
	}

	if event.ChannelType == ChannelTypeIM {
		decision.Reason = "direct message"
		return decision
	}

	if !mentionsBot(event.Text, payload.Authorizations) {
		return EventDecision{Status: StatusNoContent, Reason: "no mention"}
	}

	if event.Type != EventAppMention {
		return EventDecision{Status: StatusNoContent, Reason: "unsupported event type " + event.Type}
	}

	decision.Reason = "app mention"
	return decision
}

// threadTimestamp returns the thread root, or the message itself when it starts a thread
func threadTimestamp(event SlackEvent) string {
	if event.ThreadTS != "" {
		return event.ThreadTS
	}
	return event.TS
}

func mentionsBot(text string, authorizations []Authorization) bool {
	if len(authorizations) == 0 || authorizations[0].UserID == "" {
		return false
	}
	return strings.Contains(text, "<@"+authorizations[0].UserID+">")
}
