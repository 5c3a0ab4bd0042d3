package audit

import (
	"context"
	"time"

	"github.com/agentx/slackgpt-bot/internal/logging"
	"github.com/agentx/slackgpt-bot/internal/models"
	"github.com/agentx/slackgpt-bot/internal/repository"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	writeTimeout = 5 * time.Second

	// DefaultListLimit caps history queries that do not ask for a limit
	DefaultListLimit = 50
	maxListLimit     = 500
)

// Recorder receives one entry per processed Slack message.
// Implementations must not fail the caller.
type Recorder interface {
	Record(ctx context.Context, entry *models.InteractionLog)
}

// Service implements the audit recorder
type Service struct {
	repo   repository.InteractionLogRepository
	logger *logrus.Logger
}

// NewService creates a new audit service
func NewService(repo repository.InteractionLogRepository, logger *logrus.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logging.OrDefault(logger),
	}
}

// Record persists the entry. Errors are logged, never returned.
func (s *Service) Record(ctx context.Context, entry *models.InteractionLog) {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	// the run's context may already be past its deadline
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()

	if err := s.repo.Create(writeCtx, entry); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"user":    entry.UserID,
			"outcome": entry.Outcome,
		}).Warn("Failed to record interaction")
	}
}

// UserHistory retrieves recent interactions of one Slack user
func (s *Service) UserHistory(ctx context.Context, userID string, limit int) ([]*models.InteractionLog, error) {
	return s.repo.ListByUser(ctx, userID, clampLimit(limit))
}

// Recent retrieves recent interactions across all users
func (s *Service) Recent(ctx context.Context, limit int) ([]*models.InteractionLog, error) {
	return s.repo.ListRecent(ctx, clampLimit(limit))
}

// Purge deletes entries older than retention
func (s *Service) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	deleted, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger.WithFields(logrus.Fields{
		"cutoff":  cutoff.Format(time.RFC3339),
		"deleted": deleted,
	}).Info("Purged interaction logs")
	return deleted, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
