package cron

import (
	"context"
	"fmt"

	"github.com/mnhidayatgani/chatbot-sub000/internal/session"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/logger"
)

// SessionSweepJobParams configure the idle-session eviction job.
type SessionSweepJobParams struct {
	Logger  *logger.Logger
	Sweeper session.Sweeper
}

// NewSessionSweepJob builds the job that evicts idle sessions from
// backends without native TTL support.
func NewSessionSweepJob(params SessionSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("sweeper required")
	}
	return &sessionSweepJob{logg: params.Logger, sweeper: params.Sweeper}, nil
}

type sessionSweepJob struct {
	logg    *logger.Logger
	sweeper session.Sweeper
}

func (j *sessionSweepJob) Name() string { return "session-sweep" }

func (j *sessionSweepJob) Run(ctx context.Context) error {
	evicted, err := j.sweeper.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep sessions: %w", err)
	}
	if evicted > 0 {
		j.logg.Info(j.logg.WithField(ctx, "evicted", evicted), "idle sessions evicted")
	}
	return nil
}
