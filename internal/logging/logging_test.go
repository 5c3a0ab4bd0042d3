package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	tests := []struct {
		level    string
		format   string
		expected logrus.Level
		json     bool
	}{
		{level: "debug", format: "json", expected: logrus.DebugLevel, json: true},
		{level: "warn", format: "text", expected: logrus.WarnLevel},
		{level: "bogus", format: "", expected: logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			logger := New(tt.level, tt.format)

			assert.Equal(t, tt.expected, logger.GetLevel())
			_, isJSON := logger.Formatter.(*logrus.JSONFormatter)
			assert.Equal(t, tt.json, isJSON)
		})
	}
}

func TestOrDefault(t *testing.T) {
	custom := logrus.New()

	assert.Same(t, custom, OrDefault(custom))
	assert.NotNil(t, OrDefault(nil))
}
