package payment

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mnhidayatgani/chatbot-sub000/internal/session"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/config"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/enums"
	pkgerrors "github.com/mnhidayatgani/chatbot-sub000/pkg/errors"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/gateway"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/logger"
)

type fakeSessions struct {
	sessions map[string]*session.Session
}

func (f *fakeSessions) Get(_ context.Context, customerID string) (*session.Session, error) {
	if sess, ok := f.sessions[customerID]; ok {
		return sess.Clone(), nil
	}
	return session.New(customerID), nil
}

func (f *fakeSessions) Put(_ context.Context, sess *session.Session) error {
	f.sessions[sess.CustomerID] = sess.Clone()
	return nil
}

type fakeGateway struct {
	invoice *gateway.Invoice
	err     error
	created int
}

func (f *fakeGateway) CreateInvoice(context.Context, gateway.CreateInvoiceParams) (*gateway.Invoice, error) {
	f.created++
	if f.err != nil {
		return nil, f.err
	}
	return f.invoice, nil
}

func (f *fakeGateway) GetInvoice(context.Context, string) (*gateway.Invoice, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.invoice, nil
}

type fakeFinalizer struct {
	calls int
}

func (f *fakeFinalizer) FinalizeSuccess(context.Context, *session.Session) error {
	f.calls++
	return nil
}

func selectingSession(customerID string) *session.Session {
	sess := session.New(customerID)
	sess.OrderID = "order-1"
	sess.Step = enums.StepSelectPayment
	sess.Cart = []session.CartItem{{ProductID: "p1", Name: "Netflix", PriceCents: 5000, Qty: 1}}
	return sess
}

func testMethodSource(t *testing.T) *ConfigMethodSource {
	t.Helper()
	source, err := NewConfigMethodSource(config.PaymentConfig{
		EnabledMethods: []string{"gateway", "ewallet", "bank", "qris"},
		EwalletName:    "DANA",
		EwalletAccount: "0812000111",
		BankName:       "BCA",
		BankAccount:    "1234567890",
		BankHolder:     "Toko Digital",
		QRContent:      "000201qr-payload",
	})
	if err != nil {
		t.Fatalf("construct method source: %v", err)
	}
	return source
}

func newTestPaymentService(t *testing.T, sessions *fakeSessions, gw GatewayClient) *Service {
	t.Helper()
	service, err := NewService(ServiceParams{
		Sessions: sessions,
		Gateway:  gw,
		Methods:  testMethodSource(t),
		Invoices: session.NewMemoryInvoiceIndex(),
		Logger:   logger.New(logger.Options{ServiceName: "payment-test"}),
	})
	if err != nil {
		t.Fatalf("construct service: %v", err)
	}
	return service
}

func TestSelectManualMethodMovesToAdminApproval(t *testing.T) {
	sessions := &fakeSessions{sessions: map[string]*session.Session{
		"cust-1": selectingSession("cust-1"),
	}}
	service := newTestPaymentService(t, sessions, &fakeGateway{})

	msg, err := service.SelectMethod(context.Background(), "cust-1", "bank")
	if err != nil {
		t.Fatalf("select method: %v", err)
	}
	if !strings.Contains(msg, "1234567890") {
		t.Fatalf("expected destination account in message, got %q", msg)
	}

	sess := sessions.sessions["cust-1"]
	if sess.Step != enums.StepAwaitingAdminApproval {
		t.Fatalf("expected awaiting_admin_approval, got %s", sess.Step)
	}
	if sess.PaymentStatus != enums.PaymentStatusAwaitingProof {
		t.Fatalf("expected awaiting_proof, got %s", sess.PaymentStatus)
	}
	if sess.PaymentMethod != enums.PaymentMethodBank {
		t.Fatalf("expected bank method, got %s", sess.PaymentMethod)
	}
	if sess.PaymentInitiatedAt.IsZero() {
		t.Fatalf("expected payment initiation timestamp")
	}
}

func TestSelectMethodByOrdinal(t *testing.T) {
	sessions := &fakeSessions{sessions: map[string]*session.Session{
		"cust-1": selectingSession("cust-1"),
	}}
	service := newTestPaymentService(t, sessions, &fakeGateway{})

	// 4th entry in the configured list is qris.
	msg, err := service.SelectMethod(context.Background(), "cust-1", "4")
	if err != nil {
		t.Fatalf("select method: %v", err)
	}
	if !strings.Contains(msg, "000201qr-payload") {
		t.Fatalf("expected qr payload in message, got %q", msg)
	}
	if sessions.sessions["cust-1"].PaymentMethod != enums.PaymentMethodQRIS {
		t.Fatalf("ordinal should resolve to qris")
	}
}

func TestSelectGatewayMethodCreatesInvoice(t *testing.T) {
	sessions := &fakeSessions{sessions: map[string]*session.Session{
		"cust-1": selectingSession("cust-1"),
	}}
	gw := &fakeGateway{invoice: &gateway.Invoice{
		ID:        "inv-1",
		PayURL:    "https://pay.example/inv-1",
		Status:    enums.IntentStatusPending,
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}}
	service := newTestPaymentService(t, sessions, gw)

	msg, err := service.SelectMethod(context.Background(), "cust-1", "gateway")
	if err != nil {
		t.Fatalf("select method: %v", err)
	}
	if !strings.Contains(msg, "https://pay.example/inv-1") {
		t.Fatalf("expected pay url in message, got %q", msg)
	}

	sess := sessions.sessions["cust-1"]
	if sess.Step != enums.StepAwaitingPayment {
		t.Fatalf("expected awaiting_payment, got %s", sess.Step)
	}
	if sess.PaymentMetadata == nil || sess.PaymentMetadata.InvoiceID != "inv-1" {
		t.Fatalf("expected invoice metadata, got %+v", sess.PaymentMetadata)
	}
}

func TestGatewayFailureLeavesSessionUntouched(t *testing.T) {
	sessions := &fakeSessions{sessions: map[string]*session.Session{
		"cust-1": selectingSession("cust-1"),
	}}
	service := newTestPaymentService(t, sessions, &fakeGateway{err: errors.New("upstream 500")})

	_, err := service.SelectMethod(context.Background(), "cust-1", "gateway")
	if !pkgerrors.Is(err, pkgerrors.CodeGateway) {
		t.Fatalf("expected gateway error, got %v", err)
	}

	sess := sessions.sessions["cust-1"]
	if sess.Step != enums.StepSelectPayment {
		t.Fatalf("session must not transition on gateway failure, got %s", sess.Step)
	}
	if sess.PaymentMetadata != nil || sess.PaymentMethod != "" {
		t.Fatalf("no partial payment state expected, got %+v", sess)
	}
}

func TestSelectMethodRequiresCheckoutInFlight(t *testing.T) {
	sessions := &fakeSessions{sessions: map[string]*session.Session{}}
	service := newTestPaymentService(t, sessions, &fakeGateway{})

	_, err := service.SelectMethod(context.Background(), "cust-1", "bank")
	if !pkgerrors.Is(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict, got %v", err)
	}
}

func TestCheckStatusSucceededRunsFinalizer(t *testing.T) {
	sess := selectingSession("cust-1")
	sess.Step = enums.StepAwaitingPayment
	sess.PaymentMethod = enums.PaymentMethodGateway
	sess.PaymentMetadata = &session.PaymentMetadata{InvoiceID: "inv-1"}
	sessions := &fakeSessions{sessions: map[string]*session.Session{"cust-1": sess}}

	gw := &fakeGateway{invoice: &gateway.Invoice{ID: "inv-1", Status: enums.IntentStatusSucceeded}}
	service := newTestPaymentService(t, sessions, gw)
	finalizer := &fakeFinalizer{}
	service.SetFinalizer(finalizer)

	msg, err := service.CheckStatus(context.Background(), "cust-1")
	if err != nil {
		t.Fatalf("check status: %v", err)
	}
	if finalizer.calls != 1 {
		t.Fatalf("expected finalizer to run once, ran %d", finalizer.calls)
	}
	if !strings.Contains(msg, "confirmed") {
		t.Fatalf("unexpected message %q", msg)
	}
}

func TestCheckStatusExpiredResetsPayment(t *testing.T) {
	sess := selectingSession("cust-1")
	sess.Step = enums.StepAwaitingPayment
	sess.PaymentMethod = enums.PaymentMethodGateway
	sess.PaymentMetadata = &session.PaymentMetadata{InvoiceID: "inv-1"}
	sessions := &fakeSessions{sessions: map[string]*session.Session{"cust-1": sess}}

	gw := &fakeGateway{invoice: &gateway.Invoice{ID: "inv-1", Status: enums.IntentStatusExpired}}
	service := newTestPaymentService(t, sessions, gw)

	if _, err := service.CheckStatus(context.Background(), "cust-1"); err != nil {
		t.Fatalf("check status: %v", err)
	}
	got := sessions.sessions["cust-1"]
	if got.Step != enums.StepMenu || got.OrderID != "" {
		t.Fatalf("expected payment reset to menu, got step=%s order=%s", got.Step, got.OrderID)
	}
}

func TestResolveChoiceByKeywordAndOrdinal(t *testing.T) {
	methods := testMethodSource(t).Methods()

	byKeyword, err := ResolveChoice(methods, "ewallet")
	if err != nil {
		t.Fatalf("resolve keyword: %v", err)
	}
	if byKeyword.ID != enums.PaymentMethodEwallet {
		t.Fatalf("expected ewallet, got %s", byKeyword.ID)
	}

	byOrdinal, err := ResolveChoice(methods, "1")
	if err != nil {
		t.Fatalf("resolve ordinal: %v", err)
	}
	if byOrdinal.ID != enums.PaymentMethodGateway {
		t.Fatalf("expected gateway first, got %s", byOrdinal.ID)
	}

	if _, err := ResolveChoice(methods, "9"); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found for out-of-range ordinal, got %v", err)
	}
}

func TestDisabledMethodDropsOutOfList(t *testing.T) {
	source := testMethodSource(t)
	if err := source.SetEnabled(enums.PaymentMethodBank, false); err != nil {
		t.Fatalf("disable: %v", err)
	}
	for _, method := range source.Methods() {
		if method.ID == enums.PaymentMethodBank {
			t.Fatalf("disabled method still listed")
		}
	}
}
