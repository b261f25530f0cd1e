package backup

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jonboulle/clockwork"
)

// Scheduler runs a backup Job on a fixed interval
type Scheduler struct {
	sched gocron.Scheduler
	log   *slog.Logger
}

// NewScheduler schedules job every interval. Overlapping runs are skipped.
func NewScheduler(job *Job, interval time.Duration, clock clockwork.Clock, log *slog.Logger) (*Scheduler, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("backup interval must be positive, got %s", interval)
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	sched, err := gocron.NewScheduler(
		gocron.WithClock(clock),
		gocron.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), interval)
			defer cancel()

			if _, err := job.Run(ctx); err != nil {
				log.Error("ledger backup", "error", err)
			}
		}),
		gocron.WithName("ledger-backup"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		sched.Shutdown()
		return nil, fmt.Errorf("schedule backup: %w", err)
	}

	return &Scheduler{sched: sched, log: log}, nil
}

// Start begins running scheduled backups
func (s *Scheduler) Start() {
	s.sched.Start()
	s.log.Info("backup scheduler started")
}

// Stop waits for a running backup and stops the scheduler
func (s *Scheduler) Stop() error {
	return s.sched.Shutdown()
}
