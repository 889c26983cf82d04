package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mnhidayatgani/chatbot-sub000/internal/ratelimit"
	"github.com/mnhidayatgani/chatbot-sub000/internal/session"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/db/models"
	pkgerrors "github.com/mnhidayatgani/chatbot-sub000/pkg/errors"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/logger"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/transport"
)

type sessionStore interface {
	Get(ctx context.Context, customerID string) (*session.Session, error)
	Put(ctx context.Context, sess *session.Session) error
}

type limiter interface {
	Allow(ctx context.Context, customerID string) (bool, ratelimit.Status, error)
}

type catalogService interface {
	List(ctx context.Context) ([]models.Product, error)
	Resolve(ctx context.Context, input string) (*models.Product, error)
}

type stockReader interface {
	Get(ctx context.Context, productID string) (int64, error)
}

type paymentOrchestrator interface {
	MethodList() string
	SelectMethod(ctx context.Context, customerID, choice string) (string, error)
	CheckStatus(ctx context.Context, customerID string) (string, error)
}

// EngineParams configure the lifecycle engine. Notifier and AdminID are
// optional; without them proof notices only reach the logs.
type EngineParams struct {
	Sessions sessionStore
	Limiter  limiter
	Catalog  catalogService
	Stock    stockReader
	Payments paymentOrchestrator
	Notifier transport.Sender
	AdminID  string
	Logger   *logger.Logger
}

// Engine drives one customer's conversation through the order lifecycle.
// Every inbound message resolves to exactly one reply and leaves the
// session in a declared step.
type Engine struct {
	sessions sessionStore
	limiter  limiter
	catalog  catalogService
	stock    stockReader
	payments paymentOrchestrator
	notifier transport.Sender
	adminID  string
	logg     *logger.Logger
}

// New wires a lifecycle engine.
func New(params EngineParams) (*Engine, error) {
	if params.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if params.Limiter == nil {
		return nil, fmt.Errorf("rate limiter required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog service required")
	}
	if params.Stock == nil {
		return nil, fmt.Errorf("stock reader required")
	}
	if params.Payments == nil {
		return nil, fmt.Errorf("payment orchestrator required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Engine{
		sessions: params.Sessions,
		limiter:  params.Limiter,
		catalog:  params.Catalog,
		stock:    params.Stock,
		payments: params.Payments,
		notifier: params.Notifier,
		adminID:  params.AdminID,
		logg:     params.Logger,
	}, nil
}

// notifyOperator pushes a proof notice to the configured operator.
// Best effort: manual approval stalls on a missing notice, but the proof
// is still in the logs and the customer has been acknowledged.
func (e *Engine) notifyOperator(ctx context.Context, text string) {
	if e.notifier == nil || e.adminID == "" {
		return
	}
	if err := e.notifier.Send(ctx, e.adminID, text); err != nil {
		e.logg.Error(ctx, "failed to notify operator of payment proof", err)
	}
}

// Handle processes one inbound message and returns the reply text. The
// rate-limit gate runs before the session is even loaded.
func (e *Engine) Handle(ctx context.Context, customerID, text string) (string, error) {
	if customerID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}

	allowed, status, err := e.limiter.Allow(ctx, customerID)
	if err != nil {
		return "", err
	}
	if !allowed {
		wait := time.Until(status.ResetAt).Round(time.Second)
		if wait < time.Second {
			wait = time.Second
		}
		return fmt.Sprintf("You're sending messages too quickly. Please wait %s and try again.", wait), nil
	}

	sess, err := e.sessions.Get(ctx, customerID)
	if err != nil {
		return "", err
	}

	ctx = e.logg.WithCustomerID(ctx, customerID)
	cmd := parse(text)

	var reply string
	switch sess.Step {
	case "", // legacy records without a step behave like the menu
		stepMenu:
		reply, err = e.handleMenu(ctx, sess, cmd)
	case stepBrowsing:
		reply, err = e.handleBrowsing(ctx, sess, cmd)
	case stepCheckout:
		reply, err = e.handleCheckout(ctx, sess, cmd)
	case stepSelectPayment:
		reply, err = e.handleSelectPayment(ctx, sess, cmd)
	case stepAwaitingPayment:
		reply, err = e.handleAwaitingPayment(ctx, sess, cmd)
	case stepAwaitingAdminApproval:
		reply, err = e.handleAwaitingApproval(ctx, sess, cmd)
	case stepAwaitingOrderIDForProof:
		reply, err = e.handleOrderIDForProof(ctx, sess, cmd)
	default:
		// An unknown step means a corrupt record; recover to the menu.
		e.logg.Warn(ctx, "session in unknown step, resetting to menu")
		sess.Step = stepMenu
		if err := e.sessions.Put(ctx, sess); err != nil {
			return "", err
		}
		return e.menuText(ctx)
	}
	if err != nil {
		return e.publicReply(ctx, err)
	}
	return reply, nil
}

// publicReply converts a typed error into customer-safe text. Internal
// details stay in the logs.
func (e *Engine) publicReply(ctx context.Context, err error) (string, error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		return "", err
	}
	switch typed.Code() {
	case pkgerrors.CodeValidation, pkgerrors.CodeNotFound, pkgerrors.CodeStateConflict:
		return typed.Message(), nil
	case pkgerrors.CodeInsufficientStock:
		return "Sorry, there isn't enough stock for that. Check the menu for what's available.", nil
	case pkgerrors.CodeGateway:
		e.logg.Error(ctx, "gateway failure surfaced to customer", err)
		return "The payment service is having trouble right now. Please try again in a moment.", nil
	default:
		return "", err
	}
}

func (e *Engine) mintOrderID() string {
	return uuid.NewString()
}
