// Package metrics holds the Prometheus collectors the bot exports on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "slackgpt"

// Metrics holds the custom collectors for message processing and Slack events.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Message processing
	MessagesProcessed *prometheus.CounterVec
	ProcessDuration   prometheus.Histogram
	TokensConsumed    prometheus.Counter

	// Slack event intake
	EventsReceived *prometheus.CounterVec
}

// New registers the collectors on reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		MessagesProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_processed_total",
			Help:      "Thread messages processed, by outcome",
		}, []string{"outcome"}),

		// up to two minutes, the dispatcher's default timeout
		ProcessDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "message_process_duration_seconds",
			Help:      "Time spent processing one thread message",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),

		TokensConsumed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_consumed_total",
			Help:      "Completion tokens charged against user quotas",
		}),

		EventsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "slack_events_total",
			Help:      "Slack event callbacks received, by handling status",
		}, []string{"status"}),
	}
}

// ObserveMessage records one finished processing run
func (m *Metrics) ObserveMessage(outcome string, tokens int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.MessagesProcessed.WithLabelValues(outcome).Inc()
	m.ProcessDuration.Observe(elapsed.Seconds())
	if tokens > 0 {
		m.TokensConsumed.Add(float64(tokens))
	}
}

// ObserveEvent counts one Slack callback by the status returned to Slack
func (m *Metrics) ObserveEvent(status string) {
	if m == nil {
		return
	}
	m.EventsReceived.WithLabelValues(status).Inc()
}
