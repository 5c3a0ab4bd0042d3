package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/agentx/slackgpt-bot/internal/api"
	"github.com/agentx/slackgpt-bot/internal/audit"
	slackchat "github.com/agentx/slackgpt-bot/internal/chat/slack"
	"github.com/agentx/slackgpt-bot/internal/config"
	"github.com/agentx/slackgpt-bot/internal/database"
	"github.com/agentx/slackgpt-bot/internal/logging"
	"github.com/agentx/slackgpt-bot/internal/metrics"
	"github.com/agentx/slackgpt-bot/internal/models"
	"github.com/agentx/slackgpt-bot/internal/providers"
	"github.com/agentx/slackgpt-bot/internal/providers/openai"
	"github.com/agentx/slackgpt-bot/internal/repository/postgres"
	"github.com/agentx/slackgpt-bot/internal/repository/sheets"
	"github.com/agentx/slackgpt-bot/internal/services"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal("Failed to load configuration: ", err)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	if err := cfg.Validate(); err != nil {
		logger.Fatal(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Gateways
	openAIProvider, err := openai.NewProvider("openai", cfg.OpenAI)
	if err != nil {
		logger.Fatal("Failed to create completion provider: ", err)
	}
	provider := providers.NewGuardedProvider(openAIProvider, cfg.OpenAI.BreakerFailures, cfg.OpenAI.BreakerCooldown, logger)
	chatGateway := slackchat.NewClient(cfg.Slack.BotToken, logger)
	quotaRepo, err := sheets.NewQuotaRepository(ctx, cfg.Sheets.SpreadsheetID, cfg.Sheets.CredentialsPath, cfg.Sheets.Range, logger)
	if err != nil {
		logger.Fatal("Failed to create quota repository: ", err)
	}

	// Services
	completions := services.NewCompletionService(provider, cfg.OpenAI.DefaultModel, cfg.OpenAI.SystemPrompt, logger).
		WithSampling(cfg.OpenAI.Temperature, cfg.OpenAI.MaxTokens)
	policy := models.NewQuotaPolicy(cfg.Quota.DailyTokenLimit, cfg.Quota.ResetUTCOffsetHours)
	botMetrics := metrics.New(prometheus.DefaultRegisterer)
	messageService := services.NewMessageService(chatGateway, completions, quotaRepo, policy, cfg.Quota.MaxMessages, logger).
		WithMetrics(botMetrics)

	deps := api.Dependencies{
		Completions:   completions,
		Dedup:         services.NewEventDeduplicator(services.DefaultDedupWindow),
		Metrics:       botMetrics,
		SigningSecret: cfg.Slack.SigningSecret,
		GPTRateLimit:  cfg.Server.GPTRateLimit,
		CORSOrigins:   cfg.Server.CORSOrigins,
		Logger:        logger,
	}

	// Optional audit trail
	if cfg.Database.Enabled {
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			logger.Fatal("Failed to connect to database: ", err)
		}
		defer db.Close()

		if err := database.MigrateUp(cfg.Database); err != nil {
			logger.Fatal("Failed to run migrations: ", err)
		}

		auditService := audit.NewService(postgres.NewInteractionLogRepository(db), logger)
		messageService.WithRecorder(auditService)
		deps.History = auditService
		logger.Info("Interaction audit enabled")

		if cfg.Database.RetentionDays > 0 {
			retention, err := audit.NewRetention(auditService, cfg.Database.RetentionDays, audit.DefaultPurgeSchedule, policy.Location, logger)
			if err != nil {
				logger.Fatal("Failed to schedule audit retention: ", err)
			}
			retention.Start()
			defer func() {
				if err := retention.Shutdown(); err != nil {
					logger.WithError(err).Warn("Failed to stop audit retention")
				}
			}()
		}
	}

	if cfg.Slack.SigningSecret == "" {
		logger.Warn("SLACK_SIGNING_SECRET is not set, Slack requests are not verified")
	}

	dispatcher := services.NewEventDispatcher(messageService, cfg.Slack.ProcessTimeout, logger)
	deps.Dispatcher = dispatcher

	app := api.NewApp(cfg.Server.CORSOrigins)
	api.RegisterMetrics(app)
	api.SetupRoutes(app, deps)

	go func() {
		logger.WithFields(logrus.Fields{
			"address": cfg.Address(),
			"model":   cfg.OpenAI.DefaultModel,
		}).Info("Slack GPT bot starting")
		if err := app.Listen(cfg.Address()); err != nil {
			logger.Error("Server stopped: ", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.WithError(err).Error("Failed to shut down HTTP server")
	}
	if err := dispatcher.Wait(shutdownCtx); err != nil {
		logger.WithError(err).Warn("Gave up waiting for in-flight messages")
	}
}
