package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/mnhidayatgani/chatbot-sub000/pkg/config"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/logger"
)

// Status describes the customer's current window.
type Status struct {
	Remaining int64
	ResetAt   time.Time
}

// WindowStore counts messages inside a fixed window. Hit returns the
// count after incrementing and how long the window has left; Peek reads
// the same pair without consuming quota.
type WindowStore interface {
	Hit(ctx context.Context, customerID string, window time.Duration) (int64, time.Duration, error)
	Peek(ctx context.Context, customerID string, window time.Duration) (int64, time.Duration, error)
}

// LimiterParams configure the per-customer message limiter.
type LimiterParams struct {
	Store  WindowStore
	Logger *logger.Logger
	Config config.RateLimitConfig
}

// Limiter enforces a fixed-window cap on inbound messages per customer.
// A store failure fails open: dropping legitimate traffic is worse than
// briefly over-admitting.
type Limiter struct {
	store  WindowStore
	logg   *logger.Logger
	window time.Duration
	max    int64
	now    func() time.Time
}

// NewLimiter wires a limiter from configuration.
func NewLimiter(params LimiterParams) (*Limiter, error) {
	if params.Store == nil {
		return nil, fmt.Errorf("window store required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Config.Window <= 0 || params.Config.MaxPerWindow <= 0 {
		return nil, fmt.Errorf("rate limit window and max must be positive")
	}
	return &Limiter{
		store:  params.Store,
		logg:   params.Logger,
		window: params.Config.Window,
		max:    params.Config.MaxPerWindow,
		now:    time.Now,
	}, nil
}

// Allow records one message and reports whether it is within the cap.
func (l *Limiter) Allow(ctx context.Context, customerID string) (bool, Status, error) {
	count, remaining, err := l.store.Hit(ctx, customerID, l.window)
	if err != nil {
		l.logg.Error(l.logg.WithCustomerID(ctx, customerID), "rate limit store failed, admitting", err)
		return true, Status{Remaining: l.max, ResetAt: l.now().Add(l.window)}, nil
	}

	return count <= l.max, l.status(count, remaining), nil
}

// Status reports the customer's current window without consuming quota.
func (l *Limiter) Status(ctx context.Context, customerID string) (Status, error) {
	count, remaining, err := l.store.Peek(ctx, customerID, l.window)
	if err != nil {
		l.logg.Error(l.logg.WithCustomerID(ctx, customerID), "rate limit store failed on status read", err)
		return Status{Remaining: l.max, ResetAt: l.now().Add(l.window)}, nil
	}
	return l.status(count, remaining), nil
}

func (l *Limiter) status(count int64, remaining time.Duration) Status {
	status := Status{
		Remaining: l.max - count,
		ResetAt:   l.now().Add(remaining),
	}
	if status.Remaining < 0 {
		status.Remaining = 0
	}
	return status
}
