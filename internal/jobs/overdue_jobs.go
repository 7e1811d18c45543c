package jobs

import (
	"context"
	"time"

	"equiploan-backend/internal/domain"
	"equiploan-backend/internal/logger"
)

// RunOverdueSweep is the cron entrypoint for the overdue loan sweep.
func (jr *JobRunner) RunOverdueSweep() {
	jr.runWithRecovery("overdue_sweep", func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		_, err := jr.SweepOverdue(ctx)
		return err
	})
}

// SweepOverdue finds active loans past their expected return date and sends
// each at most one notification, ever. The sweep is read-mostly: it never
// flips a status and never charges a penalty; penalties post at return time.
// Returns how many notifications went out this cycle.
func (jr *JobRunner) SweepOverdue(ctx context.Context) (int, error) {
	now := jr.Now()

	overdue, err := jr.borrowingRepo.ListActiveOverdue(ctx, now)
	if err != nil {
		return 0, err
	}

	notified := 0
	for i := range overdue {
		if err := ctx.Err(); err != nil {
			return notified, err
		}
		bt := overdue[i]

		won, err := jr.borrowingRepo.MarkOverdueNotified(ctx, bt.ID, now)
		if err != nil {
			logger.Error("Failed to mark overdue notification", "borrowingID", bt.ID, "error", err)
			continue
		}
		if !won {
			// A previous cycle already notified this loan.
			continue
		}
		notified++

		memberID := bt.MemberID
		jr.broadcaster.Publish(domain.TopicBorrowing, &memberID, map[string]any{
			"action":      "overdue",
			"transaction": &bt,
		})

		loan := bt
		go func() {
			mailCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := jr.emailSvc.SendOverdueNotice(mailCtx, loan.MemberID, &loan); err != nil {
				logger.Warn("Overdue notice delivery failed", "borrowingID", loan.ID, "error", err)
			}
		}()
	}

	if notified > 0 {
		logger.Info("Overdue sweep sent notifications", "count", notified, "scanned", len(overdue))
	}
	return notified, nil
}
