package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/agentx/slackgpt-bot/internal/audit"
	"github.com/agentx/slackgpt-bot/internal/chat"
	"github.com/agentx/slackgpt-bot/internal/logging"
	"github.com/agentx/slackgpt-bot/internal/metrics"
	"github.com/agentx/slackgpt-bot/internal/models"
	"github.com/agentx/slackgpt-bot/internal/repository"
	"github.com/sirupsen/logrus"
)

// Canned replies posted to the thread
const (
	QuotaExceededNotice   = "本日の利用制限を超えました。明日以降に再度お試しください。"
	EmptyCompletionNotice = "GPTレスポンスが空です。"
)

// MessageProcessor handles one Slack message addressed to the bot
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, channelID, threadTS, userID string) error
}

// MessageService answers a Slack thread with a completion while enforcing the daily token quota
type MessageService struct {
	chat        chat.Gateway
	completions *CompletionService
	quotas      repository.QuotaRepository
	recorder    audit.Recorder
	metrics     *metrics.Metrics
	policy      models.QuotaPolicy
	maxMessages int
	logger      *logrus.Logger
	now         func() time.Time
	locks       *keyedMutex
}

// NewMessageService creates a new message service
func NewMessageService(
	chatGateway chat.Gateway,
	completions *CompletionService,
	quotas repository.QuotaRepository,
	policy models.QuotaPolicy,
	maxMessages int,
	logger *logrus.Logger,
) *MessageService {
	return &MessageService{
		chat:        chatGateway,
		completions: completions,
		quotas:      quotas,
		policy:      policy,
		maxMessages: maxMessages,
		logger:      logging.OrDefault(logger),
		now:         time.Now,
		locks:       newKeyedMutex(),
	}
}

// WithRecorder attaches an audit recorder that receives one entry per run
func (s *MessageService) WithRecorder(recorder audit.Recorder) *MessageService {
	s.recorder = recorder
	return s
}

// WithMetrics attaches the Prometheus collectors
func (s *MessageService) WithMetrics(m *metrics.Metrics) *MessageService {
	s.metrics = m
	return s
}

// ProcessMessage answers the thread threadTS in channelID on behalf of userID.
//
// Quota exhaustion, a missing bot identity, an empty thread and an empty
// completion are handled here and return nil. Any other failure is returned.
// Runs for the same user are serialized.
func (s *MessageService) ProcessMessage(ctx context.Context, channelID, threadTS, userID string) error {
	unlock := s.locks.Lock(userID)
	defer unlock()

	log := s.logger.WithFields(logrus.Fields{
		"channel":   channelID,
		"thread_ts": threadTS,
		"user":      userID,
	})

	start := s.now()
	outcome, tokens, err := s.process(ctx, log, channelID, threadTS, userID)
	s.metrics.ObserveMessage(string(outcome), tokens, s.now().Sub(start))
	if err != nil {
		log.WithError(err).Error("Failed to process message")
	} else {
		log.WithFields(logrus.Fields{"outcome": outcome, "tokens": tokens}).Info("Processed message")
	}

	s.record(ctx, &models.InteractionLog{
		UserID:       userID,
		ChannelID:    channelID,
		ThreadTS:     threadTS,
		Outcome:      outcome,
		TokensUsed:   tokens,
		ErrorMessage: errorMessage(err),
	})

	return err
}

func (s *MessageService) process(ctx context.Context, log *logrus.Entry, channelID, threadTS, userID string) (models.Outcome, int, error) {
	botUserID, err := s.chat.BotUserID(ctx)
	if err != nil || botUserID == "" {
		log.WithError(err).Error("Bot user ID not found")
		return models.OutcomeNoBotIdentity, 0, nil
	}

	// A store read failure never fails the request. The user is answered from
	// a fresh record, which is not saved so it cannot overwrite the real row.
	persist := true
	record, err := s.quotas.GetByUserID(ctx, userID)
	if err != nil {
		log.WithError(err).Error("Failed to load quota record, continuing with a fresh one")
		record, persist = nil, false
	}
	if record == nil {
		record = models.NewQuotaRecord(userID)
	}

	if err := record.ResetDailyIfNeeded(s.now(), s.policy); err != nil {
		log.WithError(err).Warn("Daily usage reset after unreadable last_used_at")
	}

	// The refreshed timestamp is deliberately not saved on this path
	if err := record.CheckDailyBudget(s.policy); err != nil {
		if !errors.Is(err, models.ErrQuotaExceeded) {
			return models.OutcomeError, 0, err
		}
		log.WithField("daily_tokens", record.DailyTokensUsage).Info("Daily token limit exceeded")
		if err := s.chat.PostMessage(ctx, channelID, threadTS, QuotaExceededNotice); err != nil {
			return models.OutcomeError, 0, fmt.Errorf("post quota notice: %w", err)
		}
		return models.OutcomeQuotaExceeded, 0, nil
	}

	messages, err := s.chat.ThreadMessages(ctx, channelID, threadTS)
	if err != nil {
		return models.OutcomeError, 0, fmt.Errorf("load thread: %w", err)
	}
	if len(messages) == 0 {
		log.Error("No messages found in thread")
		return models.OutcomeEmptyThread, 0, nil
	}

	prompt := models.BuildPrompt(messages, botUserID, s.maxMessages)
	log.WithField("messages", len(messages)).Debug("Built prompt")

	reply, tokens, ok := s.complete(ctx, log, prompt)

	if err := s.chat.PostMessage(ctx, channelID, threadTS, reply); err != nil {
		return models.OutcomeError, 0, fmt.Errorf("post reply: %w", err)
	}

	if !ok {
		return models.OutcomeFallback, 0, nil
	}

	if !persist {
		log.WithField("tokens", tokens).Warn("Usage not saved after quota store read failure")
		return models.OutcomeReplied, tokens, nil
	}

	record.AddUsage(tokens)
	if err := s.quotas.Save(ctx, record); err != nil {
		return models.OutcomeError, tokens, fmt.Errorf("save quota record: %w", err)
	}

	return models.OutcomeReplied, tokens, nil
}

// complete returns the reply text and its token cost. ok is false when the
// fallback notice replaced a failed or empty completion.
func (s *MessageService) complete(ctx context.Context, log *logrus.Entry, prompt string) (string, int, bool) {
	resp, err := s.completions.Complete(ctx, prompt)
	if err != nil {
		log.WithError(err).Error("Completion failed")
		return EmptyCompletionNotice, 0, false
	}

	text, err := resp.Text()
	if err != nil || text == "" {
		log.Error("GPT response is empty")
		return EmptyCompletionNotice, 0, false
	}

	return text, resp.Usage.TotalTokens, true
}

func (s *MessageService) record(ctx context.Context, entry *models.InteractionLog) {
	if s.recorder == nil {
		return
	}
	s.recorder.Record(ctx, entry)
}

func errorMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
