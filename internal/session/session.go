package session

import (
	"time"

	"github.com/mnhidayatgani/chatbot-sub000/pkg/enums"
)

// CartItem is one cart line. Prices are int64 in the smallest currency
// unit; floats never touch money.
type CartItem struct {
	ProductID  string `json:"product_id"`
	Name       string `json:"name"`
	PriceCents int64  `json:"price_cents"`
	Qty        int64  `json:"qty"`
}

// PaymentMetadata is the method-dependent payment record. Exactly the
// fields for the chosen method are populated.
type PaymentMetadata struct {
	InvoiceID string    `json:"invoice_id,omitempty"`
	PayURL    string    `json:"pay_url,omitempty"`
	QRString  string    `json:"qr_string,omitempty"`
	Account   string    `json:"account,omitempty"`
	Holder    string    `json:"holder,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

// Session is the per-customer conversation state. One record per
// customer, serialized as JSON in the backing store.
type Session struct {
	CustomerID         string              `json:"customer_id"`
	Step               enums.Step          `json:"step"`
	Cart               []CartItem          `json:"cart"`
	Wishlist           []string            `json:"wishlist"`
	OrderID            string              `json:"order_id,omitempty"`
	PaymentMethod      enums.PaymentMethod `json:"payment_method,omitempty"`
	PaymentAccount     string              `json:"payment_account,omitempty"`
	PaymentStatus      enums.PaymentStatus `json:"payment_status"`
	PaymentInitiatedAt time.Time           `json:"payment_initiated_at,omitempty"`
	PaymentMetadata    *PaymentMetadata    `json:"payment_metadata,omitempty"`
	LastActivity       time.Time           `json:"last_activity"`
}

// New returns the default session a customer gets on first contact.
func New(customerID string) *Session {
	return &Session{
		CustomerID:    customerID,
		Step:          enums.StepMenu,
		PaymentStatus: enums.PaymentStatusNone,
		LastActivity:  time.Now().UTC(),
	}
}

// Clone returns a deep copy so storage implementations never share
// mutable slices with callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.Cart != nil {
		out.Cart = make([]CartItem, len(s.Cart))
		copy(out.Cart, s.Cart)
	}
	if s.Wishlist != nil {
		out.Wishlist = make([]string, len(s.Wishlist))
		copy(out.Wishlist, s.Wishlist)
	}
	if s.PaymentMetadata != nil {
		meta := *s.PaymentMetadata
		out.PaymentMetadata = &meta
	}
	return &out
}

// CartTotal sums the cart in the smallest currency unit.
func (s *Session) CartTotal() int64 {
	var total int64
	for _, item := range s.Cart {
		total += item.PriceCents * item.Qty
	}
	return total
}

// AddToCart appends a line, merging quantity into an existing line for
// the same product. Insertion order is preserved.
func (s *Session) AddToCart(item CartItem) {
	for i := range s.Cart {
		if s.Cart[i].ProductID == item.ProductID {
			s.Cart[i].Qty += item.Qty
			return
		}
	}
	s.Cart = append(s.Cart, item)
}

// RemoveFromCart drops the line for the given product, if present.
func (s *Session) RemoveFromCart(productID string) bool {
	for i := range s.Cart {
		if s.Cart[i].ProductID == productID {
			s.Cart = append(s.Cart[:i], s.Cart[i+1:]...)
			return true
		}
	}
	return false
}

// ClearCart empties the cart.
func (s *Session) ClearCart() {
	s.Cart = nil
}

// AddToWishlist saves a product, set-like.
func (s *Session) AddToWishlist(productID string) {
	for _, id := range s.Wishlist {
		if id == productID {
			return
		}
	}
	s.Wishlist = append(s.Wishlist, productID)
}

// RemoveFromWishlist drops a saved product, if present.
func (s *Session) RemoveFromWishlist(productID string) bool {
	for i, id := range s.Wishlist {
		if id == productID {
			s.Wishlist = append(s.Wishlist[:i], s.Wishlist[i+1:]...)
			return true
		}
	}
	return false
}

// ResetPayment clears every payment field and the in-flight order id.
func (s *Session) ResetPayment() {
	s.OrderID = ""
	s.PaymentMethod = ""
	s.PaymentAccount = ""
	s.PaymentStatus = enums.PaymentStatusNone
	s.PaymentInitiatedAt = time.Time{}
	s.PaymentMetadata = nil
}
