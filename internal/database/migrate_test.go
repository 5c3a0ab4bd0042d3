package database

import (
	"io/fs"
	"testing"

	"github.com/agentx/slackgpt-bot/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationsEmbedded(t *testing.T) {
	files, err := fs.Glob(migrationsFS, "migrations/*.sql")
	require.NoError(t, err)

	assert.Contains(t, files, "migrations/000001_create_interaction_logs.up.sql")
	assert.Contains(t, files, "migrations/000001_create_interaction_logs.down.sql")
	assert.Equal(t, 0, len(files)%2, "every up migration needs a down migration")
}

func TestConnectionStrings(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "bot",
		Password: "secret",
		Database: "slackgpt",
		SSLMode:  "disable",
	}

	assert.Equal(t, "postgres://bot:secret@db:5433/slackgpt?sslmode=disable", MigrationURL(cfg))
	assert.Equal(t, "host=db port=5433 user=bot password=secret dbname=slackgpt sslmode=disable", ConnString(cfg))
}

func TestMigrationURL_EscapesCredentials(t *testing.T) {
	cfg := config.DatabaseConfig{
		Host:     "db",
		Port:     5432,
		User:     "bot",
		Password: "p@ss/word",
		Database: "slackgpt",
		SSLMode:  "require",
	}

	assert.Equal(t, "postgres://bot:p%40ss%2Fword@db:5432/slackgpt?sslmode=require", MigrationURL(cfg))
}
