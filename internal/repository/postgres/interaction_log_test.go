package postgres

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/agentx/slackgpt-bot/internal/config"
	"github.com/agentx/slackgpt-bot/internal/database"
	"github.com/agentx/slackgpt-bot/internal/models"
	"github.com/agentx/slackgpt-bot/internal/repository"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ repository.InteractionLogRepository = (*InteractionLogRepository)(nil)

// testDatabase connects to the database named by POSTGRES_TEST_HOST and friends,
// skipping the test when none is configured.
func testDatabase(t *testing.T) *sqlx.DB {
	t.Helper()
	host := os.Getenv("POSTGRES_TEST_HOST")
	if host == "" {
		t.Skip("POSTGRES_TEST_HOST not set")
	}
	port, _ := strconv.Atoi(os.Getenv("POSTGRES_TEST_PORT"))
	if port == 0 {
		port = 5432
	}
	cfg := config.DatabaseConfig{
		Host:     host,
		Port:     port,
		User:     os.Getenv("POSTGRES_TEST_USER"),
		Password: os.Getenv("POSTGRES_TEST_PASSWORD"),
		Database: os.Getenv("POSTGRES_TEST_DB"),
		SSLMode:  "disable",
	}

	require.NoError(t, database.MigrateUp(cfg))
	db, err := database.Open(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestInteractionLogRepository_CreateAndList(t *testing.T) {
	db := testDatabase(t)
	repo := NewInteractionLogRepository(db)
	ctx := context.Background()

	userID := "UTEST-" + uuid.NewString()[:8]
	first := &models.InteractionLog{
		UserID:     userID,
		ChannelID:  "C1",
		ThreadTS:   "1700000000.000100",
		Outcome:    models.OutcomeReplied,
		TokensUsed: 42,
		Metadata:   models.JSONB{"model": "gpt-4o"},
		CreatedAt:  time.Now().Add(-time.Minute),
	}
	second := &models.InteractionLog{
		UserID:    userID,
		ChannelID: "C1",
		ThreadTS:  "1700000000.000100",
		Outcome:   models.OutcomeQuotaExceeded,
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Create(ctx, first))
	require.NoError(t, repo.Create(ctx, second))
	assert.NotEqual(t, uuid.Nil, first.ID)

	entries, err := repo.ListByUser(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.OutcomeQuotaExceeded, entries[0].Outcome)
	assert.Equal(t, 42, entries[1].TokensUsed)
	assert.Equal(t, "gpt-4o", entries[1].Metadata["model"])

	recent, err := repo.ListRecent(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestInteractionLogRepository_DeleteOlderThan(t *testing.T) {
	db := testDatabase(t)
	repo := NewInteractionLogRepository(db)
	ctx := context.Background()

	userID := "UTEST-" + uuid.NewString()[:8]
	old := &models.InteractionLog{UserID: userID, Outcome: models.OutcomeReplied, CreatedAt: time.Now().AddDate(-1, 0, 0)}
	fresh := &models.InteractionLog{UserID: userID, Outcome: models.OutcomeReplied, CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, old))
	require.NoError(t, repo.Create(ctx, fresh))

	deleted, err := repo.DeleteOlderThan(ctx, time.Now().AddDate(0, -6, 0))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, deleted, int64(1))

	entries, err := repo.ListByUser(ctx, userID, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, fresh.ID, entries[0].ID)
}
