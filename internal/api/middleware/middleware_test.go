package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "8f742231b10e8888abcd99yyyzzz85a5"

func sign(secret, timestamp, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + timestamp + ":" + body))
	return "v0=" + hex.EncodeToString(mac.Sum(nil))
}

func signedApp(secret string) *fiber.App {
	app := fiber.New()
	app.Post("/events", SlackSignature(secret, logrus.New()), func(c *fiber.Ctx) error {
		return c.SendString("accepted")
	})
	return app
}

func TestSlackSignature(t *testing.T) {
	body := `{"type":"event_callback"}`
	now := strconv.FormatInt(time.Now().Unix(), 10)
	stale := strconv.FormatInt(time.Now().Add(-time.Hour).Unix(), 10)

	tests := []struct {
		name      string
		secret    string
		timestamp string
		signature string
		status    int
	}{
		{name: "valid", secret: testSecret, timestamp: now, signature: sign(testSecret, now, body), status: fiber.StatusOK},
		{name: "wrong secret", secret: testSecret, timestamp: now, signature: sign("other", now, body), status: fiber.StatusUnauthorized},
		{name: "stale timestamp", secret: testSecret, timestamp: stale, signature: sign(testSecret, stale, body), status: fiber.StatusUnauthorized},
		{name: "missing headers", secret: testSecret, status: fiber.StatusUnauthorized},
		{name: "verification disabled", secret: "", status: fiber.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/events", strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			if tt.timestamp != "" {
				req.Header.Set(HeaderSlackTimestamp, tt.timestamp)
			}
			if tt.signature != "" {
				req.Header.Set(HeaderSlackSignature, tt.signature)
			}

			resp, err := signedApp(tt.secret).Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestGPTRateLimit(t *testing.T) {
	app := fiber.New()
	app.Get("/gpt", GPTRateLimit(2), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})

	statuses := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/gpt", nil))
		require.NoError(t, err)
		statuses = append(statuses, resp.StatusCode)
	}

	assert.Equal(t, []int{fiber.StatusOK, fiber.StatusOK, fiber.StatusTooManyRequests}, statuses)
}
