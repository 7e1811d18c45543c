package jobs

import (
	"time"

	"equiploan-backend/internal/events"
	"equiploan-backend/internal/logger"
	"equiploan-backend/internal/repository"
	"equiploan-backend/internal/service"
)

// JobRunner holds the dependencies shared by scheduled jobs.
type JobRunner struct {
	borrowingRepo repository.BorrowingRepository
	emailSvc      service.EmailService
	broadcaster   *events.Broadcaster

	// Now is the sweep clock; tests pin it.
	Now func() time.Time
}

func NewJobRunner(borrowingRepo repository.BorrowingRepository, emailSvc service.EmailService, broadcaster *events.Broadcaster) *JobRunner {
	return &JobRunner{
		borrowingRepo: borrowingRepo,
		emailSvc:      emailSvc,
		broadcaster:   broadcaster,
		Now:           time.Now,
	}
}

// runWithRecovery keeps a panicking job from taking down the scheduler.
func (jr *JobRunner) runWithRecovery(jobName string, job func() error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", "job", jobName, "panic", r)
		}
	}()

	start := time.Now()
	logger.Info("Job started", "job", jobName)
	if err := job(); err != nil {
		logger.Error("Job failed", "job", jobName, "error", err, "duration", time.Since(start))
		return
	}
	logger.Info("Job finished", "job", jobName, "duration", time.Since(start))
}
