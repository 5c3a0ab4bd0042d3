package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/agentx/slackgpt-bot/internal/models"
	"github.com/agentx/slackgpt-bot/internal/repository"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var _ repository.QuotaRepository = (*QuotaRepository)(nil)

type memoryValues struct {
	mu      sync.Mutex
	rows    [][]interface{}
	updates int
	getErr  error
}

func (m *memoryValues) Get(ctx context.Context, spreadsheetID, readRange string) ([][]interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	out := make([][]interface{}, len(m.rows))
	copy(out, m.rows)
	return out, nil
}

func (m *memoryValues) Update(ctx context.Context, spreadsheetID, writeRange string, values [][]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rows = values
	m.updates++
	return nil
}

func newTestRepository(values *memoryValues) *QuotaRepository {
	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)
	repo := newQuotaRepository(values, "sheet-id", "", logger)
	repo.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return repo
}

func TestQuotaRepository_RoundTrip(t *testing.T) {
	values := &memoryValues{}
	repo := newTestRepository(values)
	ctx := context.Background()

	record := models.NewQuotaRecord("U123")
	record.AddUsage(100)
	require.NoError(t, repo.Save(ctx, record))

	loaded, err := repo.GetByUserID(ctx, "U123")
	require.NoError(t, err)
	require.NotNil(t, loaded)

	assert.Equal(t, 1, loaded.TotalUsage)
	assert.Equal(t, 100, loaded.DailyTokensUsage)
	assert.Equal(t, 100, loaded.TotalTokensUsage)
	assert.Equal(t, 100, loaded.TokensUsage)
	assert.Equal(t, "2024-05-01T12:00:00Z", loaded.LastUsedAt)
}

func TestQuotaRepository_GetUnknownUser(t *testing.T) {
	repo := newTestRepository(&memoryValues{rows: [][]interface{}{
		{"U1", "1", "2024-05-01T09:00:00+09:00", "10", "10"},
	}})

	record, err := repo.GetByUserID(context.Background(), "U2")
	assert.NoError(t, err)
	assert.Nil(t, record)
}

func TestQuotaRepository_GetSkipsMalformedRows(t *testing.T) {
	repo := newTestRepository(&memoryValues{rows: [][]interface{}{
		{"userID", "totalUsage", "lastUsedAt", "totalTokens", "dailyTokens"},
		{"U1", "1"},
		{"U1", "", "2024-05-01T09:00:00+09:00", "10", "10"},
		{"U1", "x", "2024-05-01T09:00:00+09:00", "10", "10"},
		{"U1", "4", "2024-05-01T09:00:00+09:00", "300", "120"},
	}})

	record, err := repo.GetByUserID(context.Background(), "U1")
	require.NoError(t, err)
	require.NotNil(t, record)

	assert.Equal(t, 4, record.TotalUsage)
	assert.Equal(t, 300, record.TotalTokensUsage)
	assert.Equal(t, 300, record.TokensUsage)
	assert.Equal(t, 120, record.DailyTokensUsage)
	assert.Equal(t, "2024-05-01T09:00:00+09:00", record.LastUsedAt)
}

func TestQuotaRepository_List(t *testing.T) {
	repo := newTestRepository(&memoryValues{rows: [][]interface{}{
		{"userID", "totalUsage", "lastUsedAt", "totalTokens", "dailyTokens"},
		{"U1", "4", "2024-05-01T09:00:00+09:00", "300", "120"},
		{"U2", "1"},
		{"U3", "2", "2024-05-02T09:00:00+09:00", "50", "50"},
	}})

	records, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "U1", records[0].UserID)
	assert.Equal(t, "U3", records[1].UserID)
	assert.Equal(t, 50, records[1].DailyTokensUsage)
}

func TestQuotaRepository_GetReadError(t *testing.T) {
	repo := newTestRepository(&memoryValues{getErr: errors.New("quota exceeded upstream")})

	_, err := repo.GetByUserID(context.Background(), "U1")
	assert.Error(t, err)
}

func TestQuotaRepository_SaveUpsertsAndSorts(t *testing.T) {
	values := &memoryValues{rows: [][]interface{}{
		{"U3", "1", "2024-05-01T09:00:00+09:00", "10", "10"},
		{"U1", "2", "2024-05-01T09:00:00+09:00", "20", "20"},
		{"short"},
	}}
	repo := newTestRepository(values)

	record := &models.QuotaRecord{
		UserID:           "U1",
		TotalUsage:       3,
		LastUsedAt:       "2024-05-01T21:00:00+09:00",
		DailyTokensUsage: 70,
		TotalTokensUsage: 70,
	}
	require.NoError(t, repo.Save(context.Background(), record))
	require.NoError(t, repo.Save(context.Background(), models.NewQuotaRecord("U2")))

	assert.Equal(t, 2, values.updates)
	require.Len(t, values.rows, 3)
	assert.Equal(t, []interface{}{"U1", "3", "2024-05-01T21:00:00+09:00", "70", "70"}, values.rows[0])
	assert.Equal(t, "U2", values.rows[1][0])
	assert.Equal(t, "U3", values.rows[2][0])
}

func TestServiceValues_AgainstSheetsAPI(t *testing.T) {
	var (
		mu          sync.Mutex
		written     [][]interface{}
		inputOption string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.URL.Path, "/v4/spreadsheets/sheet-id/values/"))
		w.Header().Set("Content-Type", "application/json")

		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"range": "Activity!A1:E2", "majorDimension": "ROWS",
				"values": [["U1", "5", "2024-05-01T09:00:00+09:00", "500", "200"]]}`))
		case http.MethodPut:
			var body sheets.ValueRange
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			mu.Lock()
			written = body.Values
			inputOption = r.URL.Query().Get("valueInputOption")
			mu.Unlock()
			_, _ = w.Write([]byte(`{"spreadsheetId": "sheet-id", "updatedRows": 2}`))
		default:
			t.Errorf("unexpected method %s", r.Method)
		}
	}))
	defer srv.Close()

	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)

	repo := newQuotaRepository(&serviceValues{svc: svc}, "sheet-id", DefaultRange, logrus.New())
	ctx := context.Background()

	record, err := repo.GetByUserID(ctx, "U1")
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, 200, record.DailyTokensUsage)

	record.AddUsage(50)
	require.NoError(t, repo.Save(ctx, record))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, "RAW", inputOption)
	require.Len(t, written, 1)
	assert.Equal(t, []interface{}{"U1", "6", "2024-05-01T09:00:00+09:00", "550", "250"}, written[0])
}
