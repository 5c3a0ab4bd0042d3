package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/agentx/slackgpt-bot/internal/config"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrateUp creates or upgrades the interaction_logs table and its indexes.
// An already current schema is not an error.
func MigrateUp(cfg config.DatabaseConfig) error {
	return withMigrator(cfg, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migrate audit schema up: %w", err)
		}
		return nil
	})
}

// MigrateDown reverts the most recent audit schema migration
func MigrateDown(cfg config.DatabaseConfig) error {
	return withMigrator(cfg, func(m *migrate.Migrate) error {
		if err := m.Steps(-1); err != nil {
			return fmt.Errorf("migrate audit schema down: %w", err)
		}
		return nil
	})
}

func withMigrator(cfg config.DatabaseConfig, fn func(*migrate.Migrate) error) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("load audit migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, MigrationURL(cfg))
	if err != nil {
		return fmt.Errorf("open audit migrator: %w", err)
	}
	defer m.Close()

	return fn(m)
}
