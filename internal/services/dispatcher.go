package services

import (
	"context"
	"sync"
	"time"

	"github.com/agentx/slackgpt-bot/internal/logging"
	"github.com/sirupsen/logrus"
)

// DefaultProcessTimeout bounds one background run when no timeout is configured
const DefaultProcessTimeout = 2 * time.Minute

// EventDispatcher runs accepted events in the background so the webhook can answer Slack immediately
type EventDispatcher struct {
	processor MessageProcessor
	timeout   time.Duration
	logger    *logrus.Logger
	wg        sync.WaitGroup
}

// NewEventDispatcher creates a new dispatcher
func NewEventDispatcher(processor MessageProcessor, timeout time.Duration, logger *logrus.Logger) *EventDispatcher {
	if timeout <= 0 {
		timeout = DefaultProcessTimeout
	}
	return &EventDispatcher{
		processor: processor,
		timeout:   timeout,
		logger:    logging.OrDefault(logger),
	}
}

// Dispatch starts processing the decision's message and returns immediately.
// Decisions that are not meant to be processed are dropped.
func (d *EventDispatcher) Dispatch(decision EventDecision) {
	if !decision.Process {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.WithField("panic", r).Error("Recovered from panic while processing message")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.processor.ProcessMessage(ctx, decision.ChannelID, decision.ThreadTS, decision.UserID); err != nil {
			d.logger.WithError(err).WithFields(logrus.Fields{
				"channel":   decision.ChannelID,
				"thread_ts": decision.ThreadTS,
				"user":      decision.UserID,
			}).Error("Message processing failed")
		}
	}()
}

// Wait blocks until every dispatched run has finished or ctx is done
func (d *EventDispatcher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
