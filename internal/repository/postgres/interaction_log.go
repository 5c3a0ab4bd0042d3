package postgres

import (
	"context"
	"time"

	"github.com/agentx/slackgpt-bot/internal/models"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// InteractionLogRepository handles interaction audit data access
type InteractionLogRepository struct {
	db *sqlx.DB
}

// NewInteractionLogRepository creates a new interaction log repository
func NewInteractionLogRepository(db *sqlx.DB) *InteractionLogRepository {
	return &InteractionLogRepository{db: db}
}

// Create inserts a new interaction log entry
func (r *InteractionLogRepository) Create(ctx context.Context, entry *models.InteractionLog) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	query := `
		INSERT INTO interaction_logs (
			id, user_id, channel_id, thread_ts, outcome,
			tokens_used, error_message, metadata, created_at
		) VALUES (
			:id, :user_id, :channel_id, :thread_ts, :outcome,
			:tokens_used, :error_message, :metadata, :created_at
		)`

	_, err := r.db.NamedExecContext(ctx, query, entry)
	return err
}

// ListByUser lists the most recent entries of one Slack user
func (r *InteractionLogRepository) ListByUser(ctx context.Context, userID string, limit int) ([]*models.InteractionLog, error) {
	var entries []*models.InteractionLog
	query := `
		SELECT * FROM interaction_logs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	err := r.db.SelectContext(ctx, &entries, query, userID, limit)
	return entries, err
}

// ListRecent lists the most recent entries across all users
func (r *InteractionLogRepository) ListRecent(ctx context.Context, limit int) ([]*models.InteractionLog, error) {
	var entries []*models.InteractionLog
	query := `
		SELECT * FROM interaction_logs
		ORDER BY created_at DESC
		LIMIT $1`

	err := r.db.SelectContext(ctx, &entries, query, limit)
	return entries, err
}

// DeleteOlderThan removes entries created before cutoff
func (r *InteractionLogRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM interaction_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
