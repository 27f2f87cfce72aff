package tasks

import (
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"

	"portal/internal/config"
	"portal/internal/utils/logger"
)

// Scheduler handles periodic task scheduling
type Scheduler struct {
	scheduler   *asynq.Scheduler
	refreshCron string
	logger      *logger.Logger
}

// NewScheduler creates a new task scheduler. An empty refreshCron disables
// the Airtable refresh.
func NewScheduler(cfg config.RedisConfig, refreshCron string, logger *logger.Logger) *Scheduler {
	scheduler := asynq.NewScheduler(redisOpt(cfg), &asynq.SchedulerOpts{
		Location: time.UTC,
		LogLevel: asynq.WarnLevel,
	})

	return &Scheduler{
		scheduler:   scheduler,
		refreshCron: refreshCron,
		logger:      logger,
	}
}

// Start registers the periodic tasks and runs the scheduler in the background.
func (s *Scheduler) Start() error {
	if err := s.registerTasks(); err != nil {
		return fmt.Errorf("failed to register tasks: %w", err)
	}

	s.logger.Info("starting task scheduler")
	return s.scheduler.Start()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	s.scheduler.Shutdown()
	s.logger.Info("task scheduler stopped")
}

func (s *Scheduler) registerTasks() error {
	if s.refreshCron == "" {
		s.logger.Info("Airtable refresh not scheduled")
		return nil
	}
	return s.register(s.refreshCron, NewAirtableRefreshTask())
}

func (s *Scheduler) register(spec string, task *asynq.Task) error {
	next, err := NextRun(spec, time.Now())
	if err != nil {
		return err
	}
	entryID, err := s.scheduler.Register(spec, task)
	if err != nil {
		return fmt.Errorf("failed to register %s: %w", task.Type(), err)
	}

	s.logger.Info("registered %s %q entry %s, next run %s", task.Type(), spec, entryID, next.Format(time.RFC3339))
	return nil
}

// NextRun reports when a standard five-field cron spec fires after from.
func NextRun(spec string, from time.Time) (time.Time, error) {
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	return schedule.Next(from), nil
}
