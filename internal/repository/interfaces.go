package repository

import (
	"context"
	"time"

	"github.com/agentx/slackgpt-bot/internal/models"
)

// QuotaRepository defines per-user quota storage operations
type QuotaRepository interface {
	// GetByUserID returns the record for userID, or nil, nil when the user is unknown
	GetByUserID(ctx context.Context, userID string) (*models.QuotaRecord, error)
	// Save upserts the full record keyed by its user id
	Save(ctx context.Context, record *models.QuotaRecord) error
}

// InteractionLogRepository defines audit storage for processed messages
type InteractionLogRepository interface {
	Create(ctx context.Context, entry *models.InteractionLog) error
	ListByUser(ctx context.Context, userID string, limit int) ([]*models.InteractionLog, error)
	ListRecent(ctx context.Context, limit int) ([]*models.InteractionLog, error)
	// DeleteOlderThan removes entries created before cutoff and returns how many went
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
