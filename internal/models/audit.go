package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outcome describes how a single message-processing run ended
type Outcome string

const (
	OutcomeReplied       Outcome = "replied"
	OutcomeFallback      Outcome = "fallback"
	OutcomeQuotaExceeded Outcome = "quota_exceeded"
	OutcomeNoBotIdentity Outcome = "no_bot_identity"
	OutcomeEmptyThread   Outcome = "empty_thread"
	OutcomeError         Outcome = "error"
)

// InteractionLog represents an audit entry for one processed Slack message
type InteractionLog struct {
	ID           uuid.UUID `json:"id" db:"id"`
	UserID       string    `json:"user_id" db:"user_id"`
	ChannelID    string    `json:"channel_id" db:"channel_id"`
	ThreadTS     string    `json:"thread_ts" db:"thread_ts"`
	Outcome      Outcome   `json:"outcome" db:"outcome"`
	TokensUsed   int       `json:"tokens_used" db:"tokens_used"`
	ErrorMessage string    `json:"error_message" db:"error_message"`
	Metadata     JSONB     `json:"metadata" db:"metadata"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// JSONB type for JSON columns
type JSONB map[string]interface{}

// Value implements driver.Valuer for JSONB
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner for JSONB
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONB)
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into JSONB", value)
	}

	return json.Unmarshal(bytes, j)
}
