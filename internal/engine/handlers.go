package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/mnhidayatgani/chatbot-sub000/internal/session"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/enums"
	pkgerrors "github.com/mnhidayatgani/chatbot-sub000/pkg/errors"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/money"
)

const (
	stepMenu                    = enums.StepMenu
	stepBrowsing                = enums.StepBrowsing
	stepCheckout                = enums.StepCheckout
	stepSelectPayment           = enums.StepSelectPayment
	stepAwaitingPayment         = enums.StepAwaitingPayment
	stepAwaitingAdminApproval   = enums.StepAwaitingAdminApproval
	stepAwaitingOrderIDForProof = enums.StepAwaitingOrderIDForProof
)

// command is one parsed inbound message: a lowercase keyword plus the
// untouched remainder.
type command struct {
	keyword string
	rest    string
	raw     string
}

func parse(text string) command {
	trimmed := strings.TrimSpace(text)
	keyword, rest, _ := strings.Cut(trimmed, " ")
	return command{
		keyword: strings.ToLower(keyword),
		rest:    strings.TrimSpace(rest),
		raw:     trimmed,
	}
}

func (e *Engine) handleMenu(ctx context.Context, sess *session.Session, cmd command) (string, error) {
	switch cmd.keyword {
	case "browse", "list", "products":
		sess.Step = stepBrowsing
		if err := e.sessions.Put(ctx, sess); err != nil {
			return "", err
		}
		return e.catalogText(ctx)
	case "cart":
		return cartText(sess), nil
	case "clear":
		sess.ClearCart()
		if err := e.sessions.Put(ctx, sess); err != nil {
			return "", err
		}
		return "Cart cleared.", nil
	case "wishlist":
		return wishlistText(sess), nil
	case "checkout":
		return e.beginCheckout(ctx, sess)
	case "proof":
		// A receipt arrived with no payment episode in flight; ask which
		// order it belongs to.
		sess.Step = stepAwaitingOrderIDForProof
		if err := e.sessions.Put(ctx, sess); err != nil {
			return "", err
		}
		return "Thanks! Which order id is this payment for?", nil
	default:
		return e.menuText(ctx)
	}
}

func (e *Engine) handleBrowsing(ctx context.Context, sess *session.Session, cmd command) (string, error) {
	switch cmd.keyword {
	case "menu", "back":
		sess.Step = stepMenu
		if err := e.sessions.Put(ctx, sess); err != nil {
			return "", err
		}
		return e.menuText(ctx)
	case "cart":
		return cartText(sess), nil
	case "checkout":
		return e.beginCheckout(ctx, sess)
	case "wish", "save":
		product, err := e.catalog.Resolve(ctx, cmd.rest)
		if err != nil {
			return "", err
		}
		sess.AddToWishlist(product.ID)
		if err := e.sessions.Put(ctx, sess); err != nil {
			return "", err
		}
		return fmt.Sprintf("Saved %s to your wishlist.", product.Name), nil
	case "remove", "drop":
		product, err := e.catalog.Resolve(ctx, cmd.rest)
		if err != nil {
			return "", err
		}
		if !sess.RemoveFromCart(product.ID) {
			return fmt.Sprintf("%s isn't in your cart.", product.Name), nil
		}
		if err := e.sessions.Put(ctx, sess); err != nil {
			return "", err
		}
		return fmt.Sprintf("Removed %s from your cart.", product.Name), nil
	default:
		return e.addToCart(ctx, sess, cmd)
	}
}

// addToCart resolves "<choice> [qty]" against the catalog and validates
// the quantity against live stock before anything mutates.
func (e *Engine) addToCart(ctx context.Context, sess *session.Session, cmd command) (string, error) {
	choice := cmd.raw
	qty := int64(1)
	if cmd.rest != "" {
		if parsed, err := strconv.ParseInt(cmd.rest, 10, 64); err == nil {
			choice = cmd.keyword
			qty = parsed
		}
	}
	if qty <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "Quantity must be a positive whole number.")
	}

	product, err := e.catalog.Resolve(ctx, choice)
	if err != nil {
		return "", err
	}

	available, err := e.stock.Get(ctx, product.ID)
	if err != nil {
		return "", err
	}
	inCart := int64(0)
	for _, item := range sess.Cart {
		if item.ProductID == product.ID {
			inCart = item.Qty
		}
	}
	// Compare as qty against headroom; summing qty and inCart could
	// overflow on adversarial input.
	if qty > available-inCart {
		return fmt.Sprintf("Only %d of %s left; you already have %d in your cart.", available, product.Name, inCart), nil
	}

	sess.AddToCart(session.CartItem{
		ProductID:  product.ID,
		Name:       product.Name,
		PriceCents: product.PriceCents,
		Qty:        qty,
	})
	if err := e.sessions.Put(ctx, sess); err != nil {
		return "", err
	}
	return fmt.Sprintf("Added %d x %s.\n%s\nSay \"checkout\" when you're ready.", qty, product.Name, cartText(sess)), nil
}

// beginCheckout moves a non-empty cart to the confirmation step.
func (e *Engine) beginCheckout(ctx context.Context, sess *session.Session) (string, error) {
	if len(sess.Cart) == 0 {
		return "Your cart is empty. Say \"browse\" to see the menu.", nil
	}
	sess.Step = stepCheckout
	if err := e.sessions.Put(ctx, sess); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s\nConfirm checkout? (yes/no)", cartText(sess)), nil
}

// handleCheckout confirms the order: availability is re-checked against
// live stock and an order id is minted. Stock is not decremented here;
// that happens at delivery.
func (e *Engine) handleCheckout(ctx context.Context, sess *session.Session, cmd command) (string, error) {
	switch cmd.keyword {
	case "yes", "confirm", "ok":
		for _, item := range sess.Cart {
			available, err := e.stock.Get(ctx, item.ProductID)
			if err != nil {
				return "", err
			}
			if item.Qty > available {
				sess.Step = stepBrowsing
				if err := e.sessions.Put(ctx, sess); err != nil {
					return "", err
				}
				return fmt.Sprintf("Only %d of %s left. Adjust your cart and try again.", available, item.Name), nil
			}
		}
		sess.OrderID = e.mintOrderID()
		sess.Step = stepSelectPayment
		if err := e.sessions.Put(ctx, sess); err != nil {
			return "", err
		}
		return fmt.Sprintf("Order %s created, total %s.\n%s",
			sess.OrderID, money.Format(sess.CartTotal()), e.payments.MethodList()), nil
	case "no", "cancel", "back":
		sess.Step = stepMenu
		if err := e.sessions.Put(ctx, sess); err != nil {
			return "", err
		}
		return "Checkout cancelled. Your cart is unchanged.", nil
	default:
		return "Please answer \"yes\" to confirm checkout or \"no\" to cancel.", nil
	}
}

func (e *Engine) handleSelectPayment(ctx context.Context, sess *session.Session, cmd command) (string, error) {
	if cmd.keyword == "cancel" || cmd.keyword == "back" {
		sess.ResetPayment()
		sess.Step = stepMenu
		if err := e.sessions.Put(ctx, sess); err != nil {
			return "", err
		}
		return "Order cancelled. Your cart is unchanged.", nil
	}
	return e.payments.SelectMethod(ctx, sess.CustomerID, cmd.raw)
}

func (e *Engine) handleAwaitingPayment(ctx context.Context, sess *session.Session, cmd command) (string, error) {
	switch cmd.keyword {
	case "status", "check", "paid":
		return e.payments.CheckStatus(ctx, sess.CustomerID)
	case "cancel":
		sess.ResetPayment()
		sess.Step = stepMenu
		if err := e.sessions.Put(ctx, sess); err != nil {
			return "", err
		}
		return "Payment cancelled. Your cart is unchanged.", nil
	default:
		payURL := ""
		if sess.PaymentMetadata != nil {
			payURL = sess.PaymentMetadata.PayURL
		}
		return fmt.Sprintf("Waiting for payment on order %s.\nPay here: %s\nSay \"status\" to check, or \"cancel\" to abort.", sess.OrderID, payURL), nil
	}
}

func (e *Engine) handleAwaitingApproval(ctx context.Context, sess *session.Session, cmd command) (string, error) {
	if cmd.keyword == "cancel" {
		sess.ResetPayment()
		sess.Step = stepMenu
		if err := e.sessions.Put(ctx, sess); err != nil {
			return "", err
		}
		return "Order cancelled. Your cart is unchanged.", nil
	}
	// Anything else here is treated as the payment proof arriving.
	e.logg.Info(e.logg.WithOrderID(ctx, sess.OrderID), "payment proof received, awaiting operator approval")
	e.notifyOperator(ctx, fmt.Sprintf(
		"Payment proof from customer %s for order %s (total %s). Verify the transfer and approve.",
		sess.CustomerID, sess.OrderID, money.Format(sess.CartTotal()),
	))
	return fmt.Sprintf("Thanks! An operator will verify your payment for order %s shortly.", sess.OrderID), nil
}

func (e *Engine) handleOrderIDForProof(ctx context.Context, sess *session.Session, cmd command) (string, error) {
	orderID := strings.TrimSpace(cmd.raw)
	if orderID == "" {
		return "Please send the order id for your payment.", nil
	}
	logCtx := e.logg.WithOrderID(ctx, orderID)
	e.logg.Info(logCtx, "payment proof matched to order id, awaiting operator approval")
	e.notifyOperator(logCtx, fmt.Sprintf(
		"Payment proof from customer %s, claimed for order %s. Verify the transfer and approve.",
		sess.CustomerID, orderID,
	))

	sess.Step = stepMenu
	if err := e.sessions.Put(ctx, sess); err != nil {
		return "", err
	}
	return fmt.Sprintf("Got it. An operator will verify the payment for order %s.", orderID), nil
}

func (e *Engine) menuText(ctx context.Context) (string, error) {
	products, err := e.catalog.List(ctx)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("Welcome! What would you like to do?\n")
	if len(products) > 0 {
		fmt.Fprintf(&b, "We have %d products available.\n", len(products))
	}
	b.WriteString("- browse: see the menu\n")
	b.WriteString("- cart: review your cart\n")
	b.WriteString("- wishlist: saved products\n")
	b.WriteString("- checkout: pay for your cart")
	return b.String(), nil
}

func (e *Engine) catalogText(ctx context.Context) (string, error) {
	products, err := e.catalog.List(ctx)
	if err != nil {
		return "", err
	}
	if len(products) == 0 {
		return "Nothing for sale right now. Check back soon!", nil
	}
	var b strings.Builder
	b.WriteString("Menu:\n")
	for i, product := range products {
		fmt.Fprintf(&b, "%d. %s - %s\n", i+1, product.Name, money.Format(product.PriceCents))
	}
	b.WriteString("Reply with a number (add \" 2\" for quantity), \"wish <number>\" to save, or \"checkout\".")
	return b.String(), nil
}

func cartText(sess *session.Session) string {
	if len(sess.Cart) == 0 {
		return "Your cart is empty."
	}
	var b strings.Builder
	b.WriteString("Your cart:\n")
	for _, item := range sess.Cart {
		fmt.Fprintf(&b, "- %d x %s (%s)\n", item.Qty, item.Name, money.Format(item.PriceCents*item.Qty))
	}
	fmt.Fprintf(&b, "Total: %s", money.Format(sess.CartTotal()))
	return b.String()
}

func wishlistText(sess *session.Session) string {
	if len(sess.Wishlist) == 0 {
		return "Your wishlist is empty. Say \"wish <number>\" while browsing to save a product."
	}
	var b strings.Builder
	b.WriteString("Your wishlist:\n")
	for _, id := range sess.Wishlist {
		fmt.Fprintf(&b, "- %s\n", id)
	}
	return strings.TrimRight(b.String(), "\n")
}
