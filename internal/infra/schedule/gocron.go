package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	appschedule "github.com/Eliezelg/villasaas-sub004/internal/app/schedule"
)

// Scheduler runs jobs on gocron in singleton mode, so an overrunning sync is
// rescheduled instead of started twice.
type Scheduler struct {
	cron   gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
	logger *slog.Logger
}

func New(logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cron, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithGlobalJobOptions(gocron.WithSingletonMode(gocron.LimitModeReschedule)),
	)
	if err != nil {
		return nil, fmt.Errorf("schedule: create scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{cron: cron, ctx: ctx, cancel: cancel, logger: logger}, nil
}

func (s *Scheduler) Every(name string, interval time.Duration, job appschedule.Job) error {
	if interval <= 0 {
		return fmt.Errorf("schedule: job %s needs a positive interval", name)
	}
	_, err := s.cron.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() error { return job(s.ctx) }),
		gocron.WithName(name),
		gocron.WithEventListeners(
			gocron.AfterJobRunsWithError(func(_ uuid.UUID, jobName string, err error) {
				s.logger.Warn("scheduled job failed", "job", jobName, "error", err)
			}),
		),
	)
	if err != nil {
		return fmt.Errorf("schedule: add job %s: %w", name, err)
	}
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Shutdown cancels running jobs and waits for them to return.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	return s.cron.Shutdown()
}

var _ appschedule.Scheduler = (*Scheduler)(nil)
