package delivery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mnhidayatgani/chatbot-sub000/internal/inventory"
	"github.com/mnhidayatgani/chatbot-sub000/internal/session"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/db/models"
	pkgerrors "github.com/mnhidayatgani/chatbot-sub000/pkg/errors"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/logger"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/money"
)

// credentialConsumer is the slice of the vault this service needs.
// Delivery only consumes; restocking is a separate capability.
type credentialConsumer interface {
	Consume(ctx context.Context, productID string) (string, error)
}

// stockDecrementer takes sold units off the cached ledger.
type stockDecrementer interface {
	Decrement(ctx context.Context, productID string, qty int64, orderID string) (int64, error)
}

// auditSink records completed fulfilments.
type auditSink interface {
	Record(ctx context.Context, order *models.FulfilledOrder) error
}

// ServiceParams configure the delivery service.
type ServiceParams struct {
	Vault  credentialConsumer
	Ledger stockDecrementer
	Audit  auditSink
	Logger *logger.Logger
}

// Service turns a paid cart into delivered credentials. Stock leaves the
// ledger here, at confirmed delivery, never earlier.
type Service struct {
	vault  credentialConsumer
	ledger stockDecrementer
	audit  auditSink
	logg   *logger.Logger
	now    func() time.Time
}

// NewService wires a delivery service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Vault == nil {
		return nil, fmt.Errorf("credential vault required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("stock ledger required")
	}
	if params.Audit == nil {
		return nil, fmt.Errorf("audit sink required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{
		vault:  params.Vault,
		ledger: params.Ledger,
		audit:  params.Audit,
		logg:   params.Logger,
		now:    time.Now,
	}, nil
}

// Result is what a completed fulfilment hands back to the caller: the
// message to send the customer and the audit totals.
type Result struct {
	Message         string
	CredentialCount int64
	AmountCents     int64
}

// Fulfill consumes one credential per cart unit, decrements the ledger,
// and records the fulfilled order. The caller owns notifying the
// customer and resetting the session so each side effect can be retried
// independently.
func (s *Service) Fulfill(ctx context.Context, sess *session.Session) (*Result, error) {
	if sess == nil || len(sess.Cart) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session with a cart is required")
	}
	if sess.OrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session has no order in flight")
	}

	ctx = s.logg.WithOrderID(ctx, sess.OrderID)

	var (
		lines []string
		total int64
	)
	for _, item := range sess.Cart {
		for i := int64(0); i < item.Qty; i++ {
			credential, err := s.vault.Consume(ctx, item.ProductID)
			if err != nil {
				if errors.Is(err, inventory.ErrEmpty) {
					return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err,
						fmt.Sprintf("vault exhausted for %s", item.ProductID))
				}
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume credential")
			}
			lines = append(lines, fmt.Sprintf("%s: %s", item.Name, credential))
			total++
		}
		if _, err := s.ledger.Decrement(ctx, item.ProductID, item.Qty, sess.OrderID); err != nil {
			// The vault already gave the units out; the reconcile sweep
			// will realign the counter. Log and keep delivering.
			s.logg.Error(ctx, "ledger decrement failed after vault consume", err)
		}
	}

	invoiceID := ""
	if sess.PaymentMetadata != nil {
		invoiceID = sess.PaymentMetadata.InvoiceID
	}
	record := &models.FulfilledOrder{
		OrderID:         sess.OrderID,
		CustomerID:      sess.CustomerID,
		InvoiceID:       invoiceID,
		PaymentMethod:   sess.PaymentMethod,
		AmountCents:     sess.CartTotal(),
		CredentialCount: total,
		DeliveredAt:     s.now().UTC(),
	}
	if err := s.audit.Record(ctx, record); err != nil {
		// Audit failure must not withhold paid-for credentials.
		s.logg.Error(ctx, "failed to record fulfilled order", err)
	}

	message := fmt.Sprintf(
		"Payment received for order %s (%s). Your credentials:\n%s\nThank you!",
		sess.OrderID,
		money.Format(record.AmountCents),
		strings.Join(lines, "\n"),
	)

	s.logg.Info(ctx, "order fulfilled")
	return &Result{
		Message:         message,
		CredentialCount: total,
		AmountCents:     record.AmountCents,
	}, nil
}
