package engine

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/mnhidayatgani/chatbot-sub000/internal/ratelimit"
	"github.com/mnhidayatgani/chatbot-sub000/internal/session"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/db/models"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/enums"
	pkgerrors "github.com/mnhidayatgani/chatbot-sub000/pkg/errors"
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

type fakeLimiter struct {
	denied bool
}

func (f *fakeLimiter) Allow(context.Context, string) (bool, ratelimit.Status, error) {
	if f.denied {
		return false, ratelimit.Status{Remaining: 0, ResetAt: time.Now().Add(30 * time.Second)}, nil
	}
	return true, ratelimit.Status{Remaining: 19, ResetAt: time.Now().Add(time.Minute)}, nil
}

type fakeCatalog struct {
	products []models.Product
}

func (f *fakeCatalog) List(context.Context) ([]models.Product, error) {
	return f.products, nil
}

func (f *fakeCatalog) Resolve(_ context.Context, input string) (*models.Product, error) {
	input = strings.TrimSpace(strings.ToLower(input))
	for i, product := range f.products {
		if input == product.ID || input == strings.ToLower(product.Name) {
			return &f.products[i], nil
		}
	}
	switch input {
	case "1":
		if len(f.products) > 0 {
			return &f.products[0], nil
		}
	case "2":
		if len(f.products) > 1 {
			return &f.products[1], nil
		}
	}
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "That product isn't on the menu.")
}

type fakeStock struct {
	counts map[string]int64
}

func (f *fakeStock) Get(_ context.Context, productID string) (int64, error) {
	return f.counts[productID], nil
}

type fakePayments struct {
	selected []string
	statused int
}

func (f *fakePayments) MethodList() string {
	return "Pick a payment method:\n1. gateway\n2. bank"
}

func (f *fakePayments) SelectMethod(_ context.Context, _, choice string) (string, error) {
	f.selected = append(f.selected, choice)
	return "Transfer to account 1234567890.", nil
}

func (f *fakePayments) CheckStatus(context.Context, string) (string, error) {
	f.statused++
	return "Still pending.", nil
}

type sentMessage struct {
	customerID string
	text       string
}

type recordingSender struct {
	sent []sentMessage
}

func (r *recordingSender) Send(_ context.Context, customerID, text string) error {
	r.sent = append(r.sent, sentMessage{customerID: customerID, text: text})
	return nil
}

type engineFixture struct {
	engine   *Engine
	sessions *fakeSessions
	limiter  *fakeLimiter
	payments *fakePayments
	stock    *fakeStock
	notifier *recordingSender
}

func newTestEngine(t *testing.T) *engineFixture {
	t.Helper()
	sessions := &fakeSessions{sessions: map[string]*session.Session{}}
	limiter := &fakeLimiter{}
	payments := &fakePayments{}
	stock := &fakeStock{counts: map[string]int64{"p1": 10, "p2": 1}}
	notifier := &recordingSender{}
	catalog := &fakeCatalog{products: []models.Product{
		{ID: "p1", Name: "Netflix", PriceCents: 5000000},
		{ID: "p2", Name: "Spotify", PriceCents: 2500000},
	}}

	eng, err := New(EngineParams{
		Sessions: sessions,
		Limiter:  limiter,
		Catalog:  catalog,
		Stock:    stock,
		Payments: payments,
		Notifier: notifier,
		AdminID:  "admin-1",
		Logger:   logger.New(logger.Options{ServiceName: "engine-test"}),
	})
	if err != nil {
		t.Fatalf("construct engine: %v", err)
	}
	return &engineFixture{engine: eng, sessions: sessions, limiter: limiter, payments: payments, stock: stock, notifier: notifier}
}

func (f *engineFixture) say(t *testing.T, text string) string {
	t.Helper()
	reply, err := f.engine.Handle(context.Background(), "cust-1", text)
	if err != nil {
		t.Fatalf("handle %q: %v", text, err)
	}
	return reply
}

func (f *engineFixture) step(t *testing.T) enums.Step {
	t.Helper()
	sess, ok := f.sessions.sessions["cust-1"]
	if !ok {
		t.Fatalf("no session persisted")
	}
	return sess.Step
}

func TestFirstContactShowsMenu(t *testing.T) {
	fix := newTestEngine(t)
	reply := fix.say(t, "hello")
	if !strings.Contains(reply, "browse") {
		t.Fatalf("expected menu text, got %q", reply)
	}
}

func TestBrowseAddCheckoutSelectFlow(t *testing.T) {
	fix := newTestEngine(t)

	reply := fix.say(t, "browse")
	if !strings.Contains(reply, "Netflix") {
		t.Fatalf("expected catalog listing, got %q", reply)
	}
	if fix.step(t) != enums.StepBrowsing {
		t.Fatalf("expected browsing, got %s", fix.step(t))
	}

	reply = fix.say(t, "1 2")
	if !strings.Contains(reply, "Added 2 x Netflix") {
		t.Fatalf("expected add confirmation, got %q", reply)
	}

	reply = fix.say(t, "checkout")
	if !strings.Contains(reply, "Confirm checkout?") {
		t.Fatalf("expected confirmation prompt, got %q", reply)
	}
	if fix.step(t) != enums.StepCheckout {
		t.Fatalf("expected checkout, got %s", fix.step(t))
	}

	reply = fix.say(t, "yes")
	if !strings.Contains(reply, "Pick a payment method") {
		t.Fatalf("expected method list, got %q", reply)
	}
	if fix.step(t) != enums.StepSelectPayment {
		t.Fatalf("expected select_payment, got %s", fix.step(t))
	}
	if fix.sessions.sessions["cust-1"].OrderID == "" {
		t.Fatalf("expected an order id minted at confirmation")
	}

	fix.say(t, "2")
	if len(fix.payments.selected) != 1 || fix.payments.selected[0] != "2" {
		t.Fatalf("expected choice forwarded to the orchestrator, got %v", fix.payments.selected)
	}
}

func TestAddToCartRejectsOverselling(t *testing.T) {
	fix := newTestEngine(t)
	fix.say(t, "browse")

	reply := fix.say(t, "spotify 2")
	if !strings.Contains(reply, "Only 1 of Spotify left") {
		t.Fatalf("expected stock pushback, got %q", reply)
	}
	if len(fix.sessions.sessions["cust-1"].Cart) != 0 {
		t.Fatalf("cart must stay empty when stock is short")
	}
}

func TestAddToCartRejectsQuantityNearIntMax(t *testing.T) {
	fix := newTestEngine(t)
	fix.say(t, "browse")
	fix.say(t, "1")

	// A quantity that would wrap int64 when summed with the cart line.
	reply := fix.say(t, "1 9223372036854775807")
	if !strings.Contains(reply, "Only 10 of Netflix left") {
		t.Fatalf("expected stock pushback, got %q", reply)
	}
	cart := fix.sessions.sessions["cust-1"].Cart
	if len(cart) != 1 || cart[0].Qty != 1 {
		t.Fatalf("cart must be untouched, got %v", cart)
	}
	if total := fix.sessions.sessions["cust-1"].CartTotal(); total != 5000000 {
		t.Fatalf("cart total must be untouched, got %d", total)
	}
}

func TestCheckoutRechecksAvailability(t *testing.T) {
	fix := newTestEngine(t)
	fix.say(t, "browse")
	fix.say(t, "spotify")
	fix.say(t, "checkout")

	// Someone else takes the last unit before confirmation.
	fix.stock.counts["p2"] = 0

	reply := fix.say(t, "yes")
	if !strings.Contains(reply, "Only 0 of Spotify left") {
		t.Fatalf("expected availability pushback, got %q", reply)
	}
	if fix.step(t) != enums.StepBrowsing {
		t.Fatalf("expected return to browsing, got %s", fix.step(t))
	}
	if fix.sessions.sessions["cust-1"].OrderID != "" {
		t.Fatalf("no order id should be minted on a failed confirmation")
	}
}

func TestCheckoutWithEmptyCartIsRefused(t *testing.T) {
	fix := newTestEngine(t)
	reply := fix.say(t, "checkout")
	if !strings.Contains(reply, "cart is empty") {
		t.Fatalf("expected empty-cart refusal, got %q", reply)
	}
}

func TestRateLimitedMessageGetsWaitReply(t *testing.T) {
	fix := newTestEngine(t)
	fix.limiter.denied = true

	reply := fix.say(t, "browse")
	if !strings.Contains(reply, "too quickly") {
		t.Fatalf("expected throttle reply, got %q", reply)
	}
	if _, ok := fix.sessions.sessions["cust-1"]; ok {
		t.Fatalf("denied messages must not touch the session")
	}
}

func TestUnknownProductGetsFriendlyReply(t *testing.T) {
	fix := newTestEngine(t)
	fix.say(t, "browse")

	reply := fix.say(t, "hulu")
	if !strings.Contains(reply, "isn't on the menu") {
		t.Fatalf("expected not-found text, got %q", reply)
	}
}

func TestUnknownStepRecoversToMenu(t *testing.T) {
	fix := newTestEngine(t)
	corrupt := session.New("cust-1")
	corrupt.Step = enums.Step("telepathy")
	fix.sessions.sessions["cust-1"] = corrupt

	reply := fix.say(t, "anything")
	if !strings.Contains(reply, "browse") {
		t.Fatalf("expected menu recovery, got %q", reply)
	}
	if fix.step(t) != enums.StepMenu {
		t.Fatalf("expected reset to menu, got %s", fix.step(t))
	}
}

func TestEveryPathLandsOnADeclaredStep(t *testing.T) {
	known := map[enums.Step]bool{
		enums.StepMenu:                    true,
		enums.StepBrowsing:                true,
		enums.StepCheckout:                true,
		enums.StepSelectPayment:           true,
		enums.StepAwaitingPayment:         true,
		enums.StepAwaitingAdminApproval:   true,
		enums.StepAwaitingOrderIDForProof: true,
	}
	fix := newTestEngine(t)
	script := []string{"browse", "1", "cart", "wish 2", "checkout", "no", "proof", "order-1", "browse", "back"}
	for _, text := range script {
		fix.say(t, text)
		if step := fix.step(t); !known[step] {
			t.Fatalf("message %q left the session in undeclared step %q", text, step)
		}
	}
}

func TestPaymentProofNotifiesOperator(t *testing.T) {
	fix := newTestEngine(t)
	sess := session.New("cust-1")
	sess.Step = enums.StepAwaitingAdminApproval
	sess.OrderID = "order-42"
	sess.AddToCart(session.CartItem{ProductID: "p1", Name: "Netflix", PriceCents: 5000000, Qty: 1})
	fix.sessions.sessions["cust-1"] = sess

	reply := fix.say(t, "here is my transfer receipt")
	if !strings.Contains(reply, "order-42") {
		t.Fatalf("expected acknowledgement naming the order, got %q", reply)
	}
	if len(fix.notifier.sent) != 1 {
		t.Fatalf("expected one operator notice, got %d", len(fix.notifier.sent))
	}
	notice := fix.notifier.sent[0]
	if notice.customerID != "admin-1" {
		t.Fatalf("notice must go to the operator, got %q", notice.customerID)
	}
	if !strings.Contains(notice.text, "order-42") || !strings.Contains(notice.text, "cust-1") {
		t.Fatalf("notice must name the order and customer, got %q", notice.text)
	}
}

func TestProofWithClaimedOrderIDNotifiesOperator(t *testing.T) {
	fix := newTestEngine(t)
	fix.say(t, "proof")
	fix.say(t, "order-77")

	if len(fix.notifier.sent) != 1 {
		t.Fatalf("expected one operator notice, got %d", len(fix.notifier.sent))
	}
	if !strings.Contains(fix.notifier.sent[0].text, "order-77") {
		t.Fatalf("notice must carry the claimed order id, got %q", fix.notifier.sent[0].text)
	}
}

func TestCancelDuringSelectPaymentKeepsCart(t *testing.T) {
	fix := newTestEngine(t)
	fix.say(t, "browse")
	fix.say(t, "1")
	fix.say(t, "checkout")
	fix.say(t, "yes")

	reply := fix.say(t, "cancel")
	if !strings.Contains(reply, "cancelled") {
		t.Fatalf("expected cancellation reply, got %q", reply)
	}
	sess := fix.sessions.sessions["cust-1"]
	if sess.Step != enums.StepMenu || sess.OrderID != "" {
		t.Fatalf("expected clean reset, got step=%s order=%s", sess.Step, sess.OrderID)
	}
	if len(sess.Cart) != 1 {
		t.Fatalf("cart must survive cancellation, got %v", sess.Cart)
	}
}
