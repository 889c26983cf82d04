package reminder

import (
	"context"
	"fmt"
	"time"

	"github.com/mnhidayatgani/chatbot-sub000/internal/session"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/config"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/enums"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/logger"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/transport"
	"go.uber.org/multierr"
)

type sessionLister interface {
	List(ctx context.Context) ([]*session.Session, error)
}

// SchedulerParams configure the payment reminder sweep.
type SchedulerParams struct {
	Sessions  sessionLister
	Markers   MarkerStore
	Transport transport.Sender
	Logger    *logger.Logger
	Config    config.ReminderConfig
}

// Scheduler nudges customers whose payments have sat unresolved past the
// configured thresholds. Each order/stage pair fires at most once; the
// marker store is the dedupe mechanism, so concurrent sweeps stay safe.
type Scheduler struct {
	sessions  sessionLister
	markers   MarkerStore
	transport transport.Sender
	logg      *logger.Logger
	cfg       config.ReminderConfig
	now       func() time.Time
}

// NewScheduler wires a reminder scheduler.
func NewScheduler(params SchedulerParams) (*Scheduler, error) {
	if params.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if params.Markers == nil {
		return nil, fmt.Errorf("marker store required")
	}
	if params.Transport == nil {
		return nil, fmt.Errorf("transport required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Scheduler{
		sessions:  params.Sessions,
		markers:   params.Markers,
		transport: params.Transport,
		logg:      params.Logger,
		cfg:       params.Config,
		now:       time.Now,
	}, nil
}

// Run scans the active sessions once and sends whichever reminders are
// due. Per-session failures are collected so one bad session does not
// starve the rest.
func (s *Scheduler) Run(ctx context.Context) error {
	sessions, err := s.sessions.List(ctx)
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	var errs error
	sent := 0
	for _, sess := range sessions {
		ok, err := s.remind(ctx, sess)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("customer %s: %w", sess.CustomerID, err))
			continue
		}
		if ok {
			sent++
		}
	}

	if sent > 0 {
		s.logg.Info(s.logg.WithField(ctx, "reminders_sent", sent), "reminder sweep finished")
	}
	return errs
}

// remind sends at most one reminder for the session: the highest stage
// that is due and not yet claimed. A stage skipped because the sweep was
// down never fires late on its own; the higher stage covers it.
func (s *Scheduler) remind(ctx context.Context, sess *session.Session) (bool, error) {
	if !sess.Step.IsAwaitingPayment() || sess.OrderID == "" || sess.PaymentInitiatedAt.IsZero() {
		return false, nil
	}

	age := s.now().Sub(sess.PaymentInitiatedAt)
	stage := 0
	switch {
	case age >= s.cfg.Stage2After:
		stage = 2
	case age >= s.cfg.Stage1After:
		stage = 1
	default:
		return false, nil
	}

	claimed, err := s.markers.TrySet(ctx, sess.OrderID, stage, s.cfg.MarkerTTL)
	if err != nil {
		return false, fmt.Errorf("claim stage %d marker: %w", stage, err)
	}
	if !claimed {
		return false, nil
	}

	text := s.compose(sess, stage)
	if err := s.transport.Send(ctx, sess.CustomerID, text); err != nil {
		// The marker stays claimed; a send failure here is not worth a
		// duplicate reminder on the next sweep.
		return false, fmt.Errorf("send stage %d reminder: %w", stage, err)
	}

	logCtx := s.logg.WithOrderID(s.logg.WithCustomerID(ctx, sess.CustomerID), sess.OrderID)
	s.logg.Info(s.logg.WithField(logCtx, "stage", stage), "payment reminder sent")
	return true, nil
}

func (s *Scheduler) compose(sess *session.Session, stage int) string {
	urgency := "Your order is still waiting for payment."
	if stage >= 2 {
		urgency = "Final reminder: your order will lapse if it stays unpaid."
	}

	if sess.Step == enums.StepAwaitingPayment && sess.PaymentMetadata != nil && sess.PaymentMetadata.PayURL != "" {
		return fmt.Sprintf("%s\nOrder %s. Pay here: %s", urgency, sess.OrderID, sess.PaymentMetadata.PayURL)
	}
	return fmt.Sprintf("%s\nOrder %s. Please complete the transfer and send your receipt.", urgency, sess.OrderID)
}
