package cron

import (
	"context"
	"fmt"

	"github.com/mnhidayatgani/chatbot-sub000/pkg/logger"
)

// windowSweeper drops expired rate-limit windows.
type windowSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// RateLimitSweepJobParams configure the rate-limit window sweep.
type RateLimitSweepJobParams struct {
	Logger  *logger.Logger
	Sweeper windowSweeper
}

// NewRateLimitSweepJob builds the job that clears expired rate-limit
// windows from backends without native expiry.
func NewRateLimitSweepJob(params RateLimitSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Sweeper == nil {
		return nil, fmt.Errorf("sweeper required")
	}
	return &rateLimitSweepJob{logg: params.Logger, sweeper: params.Sweeper}, nil
}

type rateLimitSweepJob struct {
	logg    *logger.Logger
	sweeper windowSweeper
}

func (j *rateLimitSweepJob) Name() string { return "ratelimit-sweep" }

func (j *rateLimitSweepJob) Run(ctx context.Context) error {
	removed, err := j.sweeper.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("sweep rate limit windows: %w", err)
	}
	if removed > 0 {
		j.logg.Info(j.logg.WithField(ctx, "removed", removed), "expired rate limit windows removed")
	}
	return nil
}
