package cron

import (
	"context"
	"fmt"
)

// reminderRunner is the slice of the reminder scheduler this job needs.
type reminderRunner interface {
	Run(ctx context.Context) error
}

// NewReminderJob wraps the payment reminder sweep as a cron job.
func NewReminderJob(scheduler reminderRunner) (Job, error) {
	if scheduler == nil {
		return nil, fmt.Errorf("reminder scheduler required")
	}
	return &reminderJob{scheduler: scheduler}, nil
}

type reminderJob struct {
	scheduler reminderRunner
}

func (j *reminderJob) Name() string { return "payment-reminders" }

func (j *reminderJob) Run(ctx context.Context) error {
	return j.scheduler.Run(ctx)
}
