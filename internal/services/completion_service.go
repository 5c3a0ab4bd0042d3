package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/agentx/slackgpt-bot/internal/logging"
	"github.com/agentx/slackgpt-bot/internal/providers"
	"github.com/sirupsen/logrus"
)

// ErrEmptyPrompt is returned when GenerateText is called without a prompt
var ErrEmptyPrompt = errors.New("prompt is required")

// CompletionService sends single prompts to the completion provider.
// Every request carries the configured system prompt.
type CompletionService struct {
	provider     providers.Provider
	model        string
	systemPrompt string
	temperature  *float32
	maxTokens    *int
	logger       *logrus.Logger
}

// NewCompletionService creates a new completion service
func NewCompletionService(provider providers.Provider, model, systemPrompt string, logger *logrus.Logger) *CompletionService {
	return &CompletionService{
		provider:     provider,
		model:        model,
		systemPrompt: systemPrompt,
		logger:       logging.OrDefault(logger),
	}
}

// WithSampling sets the temperature and reply length cap sent with every request.
// A nil temperature or a non-positive maxTokens leaves the provider default.
func (s *CompletionService) WithSampling(temperature *float32, maxTokens int) *CompletionService {
	s.temperature = temperature
	s.maxTokens = nil
	if maxTokens > 0 {
		s.maxTokens = &maxTokens
	}
	return s
}

// Complete sends prompt as the user message and returns the raw response
func (s *CompletionService) Complete(ctx context.Context, prompt string) (*providers.CompletionResponse, error) {
	messages := make([]providers.Message, 0, 2)
	if s.systemPrompt != "" {
		messages = append(messages, providers.Message{Role: providers.RoleSystem, Content: s.systemPrompt})
	}
	messages = append(messages, providers.Message{Role: providers.RoleUser, Content: prompt})

	resp, err := s.provider.Complete(ctx, providers.CompletionRequest{
		Model:       s.model,
		Messages:    messages,
		Temperature: s.temperature,
		MaxTokens:   s.maxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%s completion failed: %w", s.provider.Name(), err)
	}
	return resp, nil
}

// GenerateText returns the trimmed text of the first choice
func (s *CompletionService) GenerateText(ctx context.Context, prompt string) (string, error) {
	if prompt == "" {
		return "", ErrEmptyPrompt
	}

	resp, err := s.Complete(ctx, prompt)
	if err != nil {
		s.logger.WithError(err).Error("Failed to generate text")
		return "", err
	}

	text, err := resp.Text()
	if err != nil {
		s.logger.WithField("model", resp.Model).Error("Completion returned no choices")
		return "", err
	}
	return text, nil
}
