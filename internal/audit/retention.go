package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/agentx/slackgpt-bot/internal/logging"
	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"
)

// DefaultPurgeSchedule runs the retention purge once a day at 03:30
const DefaultPurgeSchedule = "30 3 * * *"

const purgeTimeout = time.Minute

// Purger deletes audit entries older than a retention window
type Purger interface {
	Purge(ctx context.Context, retention time.Duration) (int64, error)
}

// Retention runs the audit purge on a cron schedule
type Retention struct {
	scheduler gocron.Scheduler
	job       gocron.Job
	logger    *logrus.Logger
}

// NewRetention schedules purger to drop entries older than retentionDays.
// Times in schedule are read in loc.
func NewRetention(purger Purger, retentionDays int, schedule string, loc *time.Location, logger *logrus.Logger) (*Retention, error) {
	if retentionDays <= 0 {
		return nil, fmt.Errorf("retention days must be positive, got %d", retentionDays)
	}
	if schedule == "" {
		schedule = DefaultPurgeSchedule
	}
	if loc == nil {
		loc = time.UTC
	}
	logger = logging.OrDefault(logger)

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(loc))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	retention := time.Duration(retentionDays) * 24 * time.Hour
	job, err := scheduler.NewJob(
		gocron.CronJob(schedule, false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
			defer cancel()
			if _, err := purger.Purge(ctx, retention); err != nil {
				logger.WithError(err).Error("Interaction log purge failed")
			}
		}),
		gocron.WithName("audit-retention"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return nil, fmt.Errorf("failed to schedule purge: %w", err)
	}

	return &Retention{scheduler: scheduler, job: job, logger: logger}, nil
}

func (r *Retention) Start() {
	r.scheduler.Start()
	r.logger.WithField("job", r.job.Name()).Info("Audit retention scheduled")
}

// RunNow triggers the purge outside its schedule
func (r *Retention) RunNow() error {
	return r.job.RunNow()
}

func (r *Retention) Shutdown() error {
	return r.scheduler.Shutdown()
}
