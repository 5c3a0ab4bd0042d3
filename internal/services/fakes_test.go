package services

import (
	"context"
	"errors"
	"sync"

	"github.com/agentx/slackgpt-bot/internal/models"
	"github.com/agentx/slackgpt-bot/internal/providers"
)

type postedMessage struct {
	ChannelID string
	ThreadTS  string
	Text      string
}

type fakeChat struct {
	mu          sync.Mutex
	botUserID   string
	botErr      error
	messages    []models.TranscriptMessage
	threadErr   error
	postErr     error
	posts       []postedMessage
	threadCalls int
}

func (f *fakeChat) BotUserID(ctx context.Context) (string, error) {
	return f.botUserID, f.botErr
}

func (f *fakeChat) ThreadMessages(ctx context.Context, channelID, threadTS string) ([]models.TranscriptMessage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threadCalls++
	return f.messages, f.threadErr
}

func (f *fakeChat) PostMessage(ctx context.Context, channelID, threadTS, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.posts = append(f.posts, postedMessage{ChannelID: channelID, ThreadTS: threadTS, Text: text})
	return f.postErr
}

type fakeProvider struct {
	mu       sync.Mutex
	resp     *providers.CompletionResponse
	err      error
	requests []providers.CompletionRequest
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, req providers.CompletionRequest) (*providers.CompletionResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	return f.resp, f.err
}

func (f *fakeProvider) ValidateConfig() error { return nil }

func completion(text string, tokens int) *providers.CompletionResponse {
	return &providers.CompletionResponse{
		Model: "gpt-4o",
		Choices: []providers.Choice{
			{Message: providers.Message{Role: providers.RoleAssistant, Content: text}},
		},
		Usage: providers.Usage{TotalTokens: tokens},
	}
}

// memoryQuotas keeps copies so the service cannot mutate stored records in place
type memoryQuotas struct {
	mu      sync.Mutex
	records map[string]models.QuotaRecord
	getErr  error
	saveErr error
	saves   int
}

func newMemoryQuotas(records ...models.QuotaRecord) *memoryQuotas {
	m := &memoryQuotas{records: make(map[string]models.QuotaRecord)}
	for _, r := range records {
		m.records[r.UserID] = r
	}
	return m
}

func (m *memoryQuotas) GetByUserID(ctx context.Context, userID string) (*models.QuotaRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	r, ok := m.records[userID]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memoryQuotas) Save(ctx context.Context, record *models.QuotaRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records[record.UserID] = *record
	return nil
}

func (m *memoryQuotas) get(userID string) (models.QuotaRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.records[userID]
	return r, ok
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []*models.InteractionLog
}

func (f *fakeRecorder) Record(ctx context.Context, entry *models.InteractionLog) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, entry)
}

func (f *fakeRecorder) last() *models.InteractionLog {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.entries) == 0 {
		return nil
	}
	return f.entries[len(f.entries)-1]
}

var errBoom = errors.New("boom")
