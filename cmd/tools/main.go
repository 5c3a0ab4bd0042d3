// Command tools is the operator CLI: it inspects, resets and exports quota
// rows and runs the audit database migrations.
//
//	tools quota show <slack-user-id>
//	tools quota reset <slack-user-id>
//	tools quota export <file.xlsx>
//	tools migrate up|down
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/agentx/slackgpt-bot/internal/config"
	"github.com/agentx/slackgpt-bot/internal/database"
	"github.com/agentx/slackgpt-bot/internal/logging"
	"github.com/agentx/slackgpt-bot/internal/models"
	"github.com/agentx/slackgpt-bot/internal/repository"
	"github.com/agentx/slackgpt-bot/internal/repository/sheets"
)

var errUsage = errors.New("usage: tools quota show|reset <user> | tools quota export <file.xlsx> | tools migrate up|down")

type quotaStore interface {
	repository.QuotaRepository
	List(ctx context.Context) ([]*models.QuotaRecord, error)
}

type migrator struct {
	up   func(config.DatabaseConfig) error
	down func(config.DatabaseConfig) error
}

func main() {
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	ctx := context.Background()
	args := flag.Args()

	var quotas quotaStore
	if len(args) > 0 && args[0] == "quota" {
		repo, err := sheets.NewQuotaRepository(ctx, cfg.Sheets.SpreadsheetID, cfg.Sheets.CredentialsPath, cfg.Sheets.Range, logger)
		if err != nil {
			logger.Fatal("Failed to create quota repository: ", err)
		}
		quotas = repo
	}

	m := migrator{up: database.MigrateUp, down: database.MigrateDown}
	if err := run(ctx, args, cfg, quotas, m, os.Stdout); err != nil {
		logger.Fatal(err)
	}
}

func run(ctx context.Context, args []string, cfg *config.Config, quotas quotaStore, m migrator, out io.Writer) error {
	if len(args) < 2 {
		return errUsage
	}

	switch args[0] {
	case "quota":
		if len(args) < 3 || quotas == nil {
			return errUsage
		}
		if args[1] == "export" {
			return exportQuotas(ctx, args[2], quotas, out)
		}
		return runQuota(ctx, args[1], args[2], quotas, out)
	case "migrate":
		switch args[1] {
		case "up":
			if err := m.up(cfg.Database); err != nil {
				return err
			}
			fmt.Fprintln(out, "Migrations applied")
			return nil
		case "down":
			if err := m.down(cfg.Database); err != nil {
				return err
			}
			fmt.Fprintln(out, "Rolled back last migration")
			return nil
		}
	}
	return errUsage
}

func runQuota(ctx context.Context, action, userID string, quotas quotaStore, out io.Writer) error {
	record, err := quotas.GetByUserID(ctx, userID)
	if err != nil {
		return err
	}
	if record == nil {
		return fmt.Errorf("no quota record for %s", userID)
	}

	switch action {
	case "show":
	case "reset":
		record.DailyTokensUsage = 0
		if err := quotas.Save(ctx, record); err != nil {
			return err
		}
	default:
		return errUsage
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(record)
}

func exportQuotas(ctx context.Context, path string, quotas quotaStore, out io.Writer) error {
	records, err := quotas.List(ctx)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeQuotaWorkbook(records, file); err != nil {
		file.Close()
		return err
	}
	if err := file.Close(); err != nil {
		return err
	}

	fmt.Fprintf(out, "Exported %d quota records to %s\n", len(records), path)
	return nil
}
