package webhook

import (
	"context"
	"crypto/subtle"
	"fmt"
	"strings"
	"time"

	"github.com/mnhidayatgani/chatbot-sub000/internal/delivery"
	"github.com/mnhidayatgani/chatbot-sub000/internal/session"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/enums"
	pkgerrors "github.com/mnhidayatgani/chatbot-sub000/pkg/errors"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/logger"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/metrics"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/transport"
	"github.com/sethvargo/go-retry"
)

// Event is the payload the payment gateway posts to the webhook.
type Event struct {
	EventID   string `json:"event_id"`
	InvoiceID string `json:"invoice_id"`
	OrderID   string `json:"external_id"`
	Status    string `json:"status"`
}

type sessionStore interface {
	Get(ctx context.Context, customerID string) (*session.Session, error)
	Put(ctx context.Context, sess *session.Session) error
	List(ctx context.Context) ([]*session.Session, error)
}

type deliverer interface {
	Fulfill(ctx context.Context, sess *session.Session) (*delivery.Result, error)
}

// markerCleaner drops reminder dedupe markers once an order resolves.
type markerCleaner interface {
	ClearOrder(ctx context.Context, orderID string) error
}

// BackoffConfig bounds the side-effect retries.
type BackoffConfig struct {
	Base       time.Duration
	MaxRetries uint64
}

// ServiceParams configure the webhook reconciler.
type ServiceParams struct {
	Sessions  sessionStore
	Invoices  session.InvoiceIndex
	Delivery  deliverer
	Transport transport.Sender
	Markers   markerCleaner
	Logger    *logger.Logger
	Metrics   *metrics.WebhookMetrics
	Secret    string
	AdminID   string
	Backoff   BackoffConfig
}

// Service reconciles asynchronous payment events against sessions. The
// step guard makes redelivery a no-op: once a session has left its
// awaiting state, a replayed event finds nothing to do.
type Service struct {
	sessions  sessionStore
	invoices  session.InvoiceIndex
	delivery  deliverer
	transport transport.Sender
	markers   markerCleaner
	logg      *logger.Logger
	metrics   *metrics.WebhookMetrics
	secret    string
	adminID   string
	backoff   BackoffConfig
}

// NewService wires the webhook reconciler.
func NewService(params ServiceParams) (*Service, error) {
	if params.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if params.Invoices == nil {
		return nil, fmt.Errorf("invoice index required")
	}
	if params.Delivery == nil {
		return nil, fmt.Errorf("delivery service required")
	}
	if params.Transport == nil {
		return nil, fmt.Errorf("transport required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	backoff := params.Backoff
	if backoff.Base <= 0 {
		backoff.Base = time.Second
	}
	if backoff.MaxRetries == 0 {
		backoff.MaxRetries = 4
	}
	return &Service{
		sessions:  params.Sessions,
		invoices:  params.Invoices,
		delivery:  params.Delivery,
		transport: params.Transport,
		markers:   params.Markers,
		logg:      params.Logger,
		metrics:   params.Metrics,
		secret:    params.Secret,
		adminID:   params.AdminID,
		backoff:   backoff,
	}, nil
}

// VerifyToken authenticates a webhook call by its shared-secret header.
// An empty configured secret skips the check with a warning; that is
// only acceptable outside production.
func (s *Service) VerifyToken(ctx context.Context, token string) error {
	if s.secret == "" {
		s.logg.Warn(ctx, "webhook secret not configured, accepting unauthenticated event")
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(s.secret)) != 1 {
		return pkgerrors.New(pkgerrors.CodeWebhookAuth, "webhook token mismatch")
	}
	return nil
}

// OnPaymentEvent processes one gateway event. Errors are for the
// caller's logs only; the HTTP layer acknowledges receipt regardless so
// the gateway stops redelivering.
func (s *Service) OnPaymentEvent(ctx context.Context, event Event) error {
	status := normalizeStatus(event.Status)
	s.metrics.IncReceived(string(status))

	ctx = s.logg.WithInvoiceID(ctx, event.InvoiceID)
	ctx = s.logg.WithField(ctx, "event_id", event.EventID)

	if event.InvoiceID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "event has no invoice id")
	}

	sess, err := s.findSession(ctx, event.InvoiceID)
	if err != nil {
		return err
	}
	if sess == nil {
		s.logg.Warn(ctx, "no session owns this invoice")
		return nil
	}

	ctx = s.logg.WithCustomerID(ctx, sess.CustomerID)
	ctx = s.logg.WithOrderID(ctx, sess.OrderID)

	if !sess.Step.IsAwaitingPayment() {
		s.metrics.IncReplayed()
		s.logg.Info(ctx, "event replayed after session already advanced, ignoring")
		return nil
	}

	switch status {
	case enums.IntentStatusSucceeded:
		return s.FinalizeSuccess(ctx, sess)
	case enums.IntentStatusExpired, enums.IntentStatusFailed:
		return s.resolveUnpaid(ctx, sess, status)
	default:
		s.logg.Info(ctx, "ignoring non-terminal event")
		return nil
	}
}

// FinalizeSuccess runs the confirmed-payment side effects. Delivery runs
// once; the customer notification and the session reset are each
// retried with exponential backoff and escalated to an operator when
// the retries run out. The session is left untouched on escalation so a
// human can intervene.
func (s *Service) FinalizeSuccess(ctx context.Context, sess *session.Session) error {
	result, err := s.delivery.Fulfill(ctx, sess)
	if err != nil {
		s.escalate(ctx, sess, "delivery failed", err)
		return err
	}

	if err := s.withBackoff(ctx, func(ctx context.Context) error {
		return s.transport.Send(ctx, sess.CustomerID, result.Message)
	}); err != nil {
		s.escalate(ctx, sess, "could not notify customer of delivered order", err)
		return err
	}

	invoiceID := ""
	if sess.PaymentMetadata != nil {
		invoiceID = sess.PaymentMetadata.InvoiceID
	}
	orderID := sess.OrderID

	if err := s.withBackoff(ctx, func(ctx context.Context) error {
		sess.ClearCart()
		sess.ResetPayment()
		sess.PaymentStatus = enums.PaymentStatusSucceeded
		sess.Step = enums.StepMenu
		return s.sessions.Put(ctx, sess)
	}); err != nil {
		s.escalate(ctx, sess, "could not reset session after delivery", err)
		return err
	}

	s.cleanupOrder(ctx, orderID, invoiceID)
	s.metrics.IncDelivered()
	s.logg.Info(ctx, "payment reconciled and delivered")
	return nil
}

// resolveUnpaid ends an awaiting episode that the gateway reports as
// expired or failed.
func (s *Service) resolveUnpaid(ctx context.Context, sess *session.Session, status enums.IntentStatus) error {
	orderID := sess.OrderID
	invoiceID := ""
	if sess.PaymentMetadata != nil {
		invoiceID = sess.PaymentMetadata.InvoiceID
	}

	if err := s.withBackoff(ctx, func(ctx context.Context) error {
		sess.ResetPayment()
		if status == enums.IntentStatusFailed {
			sess.PaymentStatus = enums.PaymentStatusFailed
		}
		sess.Step = enums.StepMenu
		return s.sessions.Put(ctx, sess)
	}); err != nil {
		s.escalate(ctx, sess, "could not reset session after unpaid invoice", err)
		return err
	}

	s.cleanupOrder(ctx, orderID, invoiceID)

	notice := fmt.Sprintf("Payment for order %s was not completed (%s). Start again from the menu when ready.", orderID, status)
	if err := s.transport.Send(ctx, sess.CustomerID, notice); err != nil {
		s.logg.Error(ctx, "failed to notify customer of unpaid invoice", err)
	}
	return nil
}

// findSession locates the session owning an invoice: the maintained
// index first, then a scan over active sessions as fallback. The scan
// is acceptable at this deployment's scale; the index keeps the common
// path O(1).
func (s *Service) findSession(ctx context.Context, invoiceID string) (*session.Session, error) {
	customerID, err := s.invoices.Get(ctx, invoiceID)
	if err != nil {
		s.logg.Error(ctx, "invoice index lookup failed, falling back to scan", err)
	}
	if customerID != "" {
		return s.sessions.Get(ctx, customerID)
	}

	sessions, err := s.sessions.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, sess := range sessions {
		if sess.PaymentMetadata != nil && sess.PaymentMetadata.InvoiceID == invoiceID {
			return sess, nil
		}
	}
	return nil, nil
}

func (s *Service) withBackoff(ctx context.Context, fn func(context.Context) error) error {
	b := retry.WithMaxRetries(s.backoff.MaxRetries, retry.NewExponential(s.backoff.Base))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return retry.RetryableError(err)
		}
		return nil
	})
}

// escalate hands the failure to a human operator with full context. The
// notification itself is best-effort; the failure is always logged.
func (s *Service) escalate(ctx context.Context, sess *session.Session, reason string, cause error) {
	s.metrics.IncEscalated()
	s.logg.Error(ctx, "escalating to operator: "+reason, cause)

	if s.adminID == "" {
		return
	}
	invoiceID := ""
	if sess.PaymentMetadata != nil {
		invoiceID = sess.PaymentMetadata.InvoiceID
	}
	text := fmt.Sprintf(
		"MANUAL ACTION NEEDED: %s\ncustomer: %s\norder: %s\ninvoice: %s\ncause: %v",
		reason, sess.CustomerID, sess.OrderID, invoiceID, cause,
	)
	if err := s.transport.Send(ctx, s.adminID, text); err != nil {
		s.logg.Error(ctx, "failed to notify operator", err)
	}
}

func (s *Service) cleanupOrder(ctx context.Context, orderID, invoiceID string) {
	if s.markers != nil && orderID != "" {
		if err := s.markers.ClearOrder(ctx, orderID); err != nil {
			s.logg.Error(ctx, "failed to clear reminder markers", err)
		}
	}
	if invoiceID != "" {
		if err := s.invoices.Delete(ctx, invoiceID); err != nil {
			s.logg.Error(ctx, "failed to drop invoice index entry", err)
		}
	}
}

func normalizeStatus(raw string) enums.IntentStatus {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "PAID", "SETTLED", "COMPLETED", "SUCCEEDED":
		return enums.IntentStatusSucceeded
	case "EXPIRED":
		return enums.IntentStatusExpired
	case "FAILED", "VOIDED":
		return enums.IntentStatusFailed
	default:
		return enums.IntentStatusPending
	}
}
