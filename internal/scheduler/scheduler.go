package scheduler

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"equiploan-backend/internal/config"
	"equiploan-backend/internal/jobs"
	"equiploan-backend/internal/logger"
)

// Scheduler runs the periodic jobs on cron schedules.
type Scheduler struct {
	cron      *cron.Cron
	jobRunner *jobs.JobRunner
}

func New(jobRunner *jobs.JobRunner) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLocation(time.UTC)),
		jobRunner: jobRunner,
	}
}

func (s *Scheduler) RegisterJobs(cfg *config.SchedulerConfig) error {
	if _, err := s.cron.AddFunc(cfg.OverdueSweep, s.jobRunner.RunOverdueSweep); err != nil {
		return fmt.Errorf("failed to schedule overdue sweep: %w", err)
	}
	logger.Info("Scheduled overdue sweep", "schedule", cfg.OverdueSweep)
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("Scheduler started")
}

// Stop halts scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	logger.Info("Stopping scheduler, waiting for running jobs")
	ctx := s.cron.Stop()
	<-ctx.Done()
	logger.Info("Scheduler stopped")
}
