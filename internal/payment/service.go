package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/mnhidayatgani/chatbot-sub000/internal/session"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/enums"
	pkgerrors "github.com/mnhidayatgani/chatbot-sub000/pkg/errors"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/gateway"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/logger"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/money"
)

const invoiceIndexTTL = 48 * time.Hour

// sessionStore is the slice of the session component this service needs.
type sessionStore interface {
	Get(ctx context.Context, customerID string) (*session.Session, error)
	Put(ctx context.Context, sess *session.Session) error
}

// GatewayClient creates and polls hosted invoices.
type GatewayClient interface {
	CreateInvoice(ctx context.Context, params gateway.CreateInvoiceParams) (*gateway.Invoice, error)
	GetInvoice(ctx context.Context, invoiceID string) (*gateway.Invoice, error)
}

// Finalizer completes a confirmed payment: delivery, notification, and
// session reset. Implemented by the webhook reconciler so the polled
// and pushed confirmation paths share one code path.
type Finalizer interface {
	FinalizeSuccess(ctx context.Context, sess *session.Session) error
}

// ServiceParams configure the payment orchestrator.
type ServiceParams struct {
	Sessions  sessionStore
	Gateway   GatewayClient
	Methods   MethodSource
	Invoices  session.InvoiceIndex
	Finalizer Finalizer
	Logger    *logger.Logger
}

// Service advances a session from method selection through payment.
type Service struct {
	sessions  sessionStore
	gateway   GatewayClient
	methods   MethodSource
	invoices  session.InvoiceIndex
	finalizer Finalizer
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the payment orchestrator.
func NewService(params ServiceParams) (*Service, error) {
	if params.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if params.Methods == nil {
		return nil, fmt.Errorf("method source required")
	}
	if params.Invoices == nil {
		return nil, fmt.Errorf("invoice index required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		sessions:  params.Sessions,
		gateway:   params.Gateway,
		methods:   params.Methods,
		invoices:  params.Invoices,
		finalizer: params.Finalizer,
		logg:      params.Logger,
		now:       time.Now,
	}, nil
}

// SetFinalizer injects the confirmation path after construction. The
// reconciler needs the session store too, so it is built second.
func (s *Service) SetFinalizer(finalizer Finalizer) {
	s.finalizer = finalizer
}

// MethodList renders the currently enabled methods for display.
func (s *Service) MethodList() string {
	return RenderList(s.methods.Methods())
}

// SelectMethod resolves the customer's choice and starts the matching
// payment flow. A gateway failure leaves the session exactly as it was.
func (s *Service) SelectMethod(ctx context.Context, customerID, choice string) (string, error) {
	sess, err := s.sessions.Get(ctx, customerID)
	if err != nil {
		return "", err
	}
	if sess.Step != enums.StepSelectPayment {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "not selecting a payment method")
	}
	if sess.OrderID == "" || len(sess.Cart) == 0 {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "no checkout in flight")
	}

	method, err := ResolveChoice(s.methods.Methods(), choice)
	if err != nil {
		return "", err
	}

	if method.ID.IsAutomatic() {
		return s.startGatewayPayment(ctx, sess)
	}
	return s.startManualPayment(ctx, sess, method)
}

func (s *Service) startGatewayPayment(ctx context.Context, sess *session.Session) (string, error) {
	if s.gateway == nil {
		return "", pkgerrors.New(pkgerrors.CodeGateway, "gateway not configured")
	}

	amount := sess.CartTotal()
	invoice, err := s.gateway.CreateInvoice(ctx, gateway.CreateInvoiceParams{
		OrderID:     sess.OrderID,
		AmountCents: amount,
		Description: fmt.Sprintf("Order %s", sess.OrderID),
		CustomerRef: sess.CustomerID,
	})
	if err != nil {
		// No session mutation on gateway failure; the customer can retry.
		logCtx := s.logg.WithCustomerID(ctx, sess.CustomerID)
		s.logg.Error(logCtx, "invoice creation failed", err)
		return "", pkgerrors.Wrap(pkgerrors.CodeGateway, err, "create invoice")
	}

	sess.PaymentMethod = enums.PaymentMethodGateway
	sess.PaymentStatus = enums.PaymentStatusNone
	sess.PaymentInitiatedAt = s.now().UTC()
	sess.PaymentMetadata = &session.PaymentMetadata{
		InvoiceID: invoice.ID,
		PayURL:    invoice.PayURL,
		QRString:  invoice.QRString,
		ExpiresAt: invoice.ExpiresAt,
	}
	sess.Step = enums.StepAwaitingPayment
	if err := s.sessions.Put(ctx, sess); err != nil {
		return "", err
	}
	if err := s.invoices.Set(ctx, invoice.ID, sess.CustomerID, invoiceIndexTTL); err != nil {
		// The scan fallback still finds the session; log and continue.
		s.logg.Error(ctx, "failed to index invoice", err)
	}

	msg := fmt.Sprintf(
		"Total %s for order %s.\nPay here: %s\nThe link expires at %s. I'll confirm automatically once paid.",
		money.Format(amount),
		sess.OrderID,
		invoice.PayURL,
		invoice.ExpiresAt.Format("15:04 02 Jan 2006"),
	)
	return msg, nil
}

func (s *Service) startManualPayment(ctx context.Context, sess *session.Session, method Method) (string, error) {
	sess.PaymentMethod = method.ID
	sess.PaymentAccount = method.Account
	sess.PaymentStatus = enums.PaymentStatusAwaitingProof
	sess.PaymentInitiatedAt = s.now().UTC()
	sess.PaymentMetadata = &session.PaymentMetadata{
		Account: method.Account,
		Holder:  method.Holder,
	}
	sess.Step = enums.StepAwaitingAdminApproval
	if err := s.sessions.Put(ctx, sess); err != nil {
		return "", err
	}

	amount := money.Format(sess.CartTotal())
	switch method.ID {
	case enums.PaymentMethodQRIS:
		return fmt.Sprintf(
			"Total %s for order %s.\nScan this QRIS code to pay:\n%s\nThen send a screenshot of the receipt. An operator will confirm your payment.",
			amount, sess.OrderID, method.QRContent,
		), nil
	default:
		holder := ""
		if method.Holder != "" {
			holder = fmt.Sprintf(" (a/n %s)", method.Holder)
		}
		return fmt.Sprintf(
			"Total %s for order %s.\nTransfer to %s: %s%s\nThen send a screenshot of the receipt. An operator will confirm your payment.",
			amount, sess.OrderID, method.Label, method.Account, holder,
		), nil
	}
}

// CheckStatus polls the gateway for an automatic payment and maps the
// result onto the session.
func (s *Service) CheckStatus(ctx context.Context, customerID string) (string, error) {
	sess, err := s.sessions.Get(ctx, customerID)
	if err != nil {
		return "", err
	}
	if sess.Step != enums.StepAwaitingPayment || !sess.PaymentMethod.IsAutomatic() {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "no automatic payment in flight")
	}
	if sess.PaymentMetadata == nil || sess.PaymentMetadata.InvoiceID == "" {
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "session has no invoice")
	}
	if s.gateway == nil {
		return "", pkgerrors.New(pkgerrors.CodeGateway, "gateway not configured")
	}

	invoice, err := s.gateway.GetInvoice(ctx, sess.PaymentMetadata.InvoiceID)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeGateway, err, "check invoice")
	}

	switch invoice.Status {
	case enums.IntentStatusPending:
		return fmt.Sprintf("Payment for order %s is still pending. Pay here: %s", sess.OrderID, sess.PaymentMetadata.PayURL), nil
	case enums.IntentStatusSucceeded:
		if s.finalizer == nil {
			return "", pkgerrors.New(pkgerrors.CodeInternal, "no finalizer configured")
		}
		if err := s.finalizer.FinalizeSuccess(ctx, sess); err != nil {
			return "", err
		}
		return "Payment confirmed. Your order is on its way!", nil
	case enums.IntentStatusExpired:
		orderID := sess.OrderID
		sess.ResetPayment()
		sess.Step = enums.StepMenu
		if err := s.sessions.Put(ctx, sess); err != nil {
			return "", err
		}
		return fmt.Sprintf("The payment link for order %s has expired. Start again from the menu when ready.", orderID), nil
	case enums.IntentStatusFailed:
		orderID := sess.OrderID
		sess.ResetPayment()
		sess.PaymentStatus = enums.PaymentStatusFailed
		sess.Step = enums.StepMenu
		if err := s.sessions.Put(ctx, sess); err != nil {
			return "", err
		}
		return fmt.Sprintf("Payment for order %s failed. Please try again from the menu.", orderID), nil
	default:
		return "", pkgerrors.New(pkgerrors.CodeGateway, "unexpected invoice status")
	}
}
