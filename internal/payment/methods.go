package payment

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/mnhidayatgani/chatbot-sub000/pkg/config"
	"github.com/mnhidayatgani/chatbot-sub000/pkg/enums"
	pkgerrors "github.com/mnhidayatgani/chatbot-sub000/pkg/errors"
)

// Method is one way to pay as presented to the customer.
type Method struct {
	ID        enums.PaymentMethod
	Label     string
	Account   string
	Holder    string
	QRContent string
}

// MethodSource exposes the currently enabled methods. The list is read
// fresh on every call because it can change at runtime.
type MethodSource interface {
	Methods() []Method
}

// ConfigMethodSource builds the method list from configuration and
// allows runtime enable/disable toggles.
type ConfigMethodSource struct {
	mu      sync.RWMutex
	order   []enums.PaymentMethod
	enabled map[enums.PaymentMethod]bool
	cfg     config.PaymentConfig
}

// NewConfigMethodSource parses the configured enabled-method list.
func NewConfigMethodSource(cfg config.PaymentConfig) (*ConfigMethodSource, error) {
	source := &ConfigMethodSource{
		enabled: make(map[enums.PaymentMethod]bool),
		cfg:     cfg,
	}
	for _, raw := range cfg.EnabledMethods {
		method, err := enums.ParsePaymentMethod(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("payment method config: %w", err)
		}
		if source.enabled[method] {
			continue
		}
		source.enabled[method] = true
		source.order = append(source.order, method)
	}
	if len(source.order) == 0 {
		return nil, fmt.Errorf("at least one payment method must be enabled")
	}
	return source, nil
}

// Methods returns the enabled methods in configured order.
func (s *ConfigMethodSource) Methods() []Method {
	s.mu.RLock()
	defer s.mu.RUnlock()

	methods := make([]Method, 0, len(s.order))
	for _, id := range s.order {
		if !s.enabled[id] {
			continue
		}
		methods = append(methods, s.describe(id))
	}
	return methods
}

// SetEnabled toggles a method at runtime.
func (s *ConfigMethodSource) SetEnabled(id enums.PaymentMethod, enabled bool) error {
	if !id.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, known := s.enabled[id]; !known {
		s.order = append(s.order, id)
	}
	s.enabled[id] = enabled
	return nil
}

func (s *ConfigMethodSource) describe(id enums.PaymentMethod) Method {
	switch id {
	case enums.PaymentMethodGateway:
		return Method{ID: id, Label: "Payment link (automatic)"}
	case enums.PaymentMethodEwallet:
		return Method{
			ID:      id,
			Label:   fmt.Sprintf("E-wallet (%s)", s.cfg.EwalletName),
			Account: s.cfg.EwalletAccount,
		}
	case enums.PaymentMethodBank:
		return Method{
			ID:      id,
			Label:   fmt.Sprintf("Bank transfer (%s)", s.cfg.BankName),
			Account: s.cfg.BankAccount,
			Holder:  s.cfg.BankHolder,
		}
	case enums.PaymentMethodQRIS:
		return Method{ID: id, Label: "QRIS", QRContent: s.cfg.QRContent}
	default:
		return Method{ID: id, Label: string(id)}
	}
}

// ResolveChoice maps customer input onto an enabled method: a 1-based
// ordinal into the rendered list or a method keyword. The list is
// resolved as it is now; if it changed since it was rendered, an
// ordinal may land on a different method than the customer saw.
func ResolveChoice(methods []Method, choice string) (Method, error) {
	trimmed := strings.TrimSpace(choice)
	if trimmed == "" {
		return Method{}, pkgerrors.New(pkgerrors.CodeValidation, "payment choice is required")
	}

	if ordinal, err := strconv.Atoi(trimmed); err == nil {
		if ordinal < 1 || ordinal > len(methods) {
			return Method{}, pkgerrors.New(pkgerrors.CodeNotFound, "no payment method at that number")
		}
		return methods[ordinal-1], nil
	}

	lowered := strings.ToLower(trimmed)
	for _, method := range methods {
		if string(method.ID) == lowered || strings.ToLower(method.Label) == lowered {
			return method, nil
		}
	}
	return Method{}, pkgerrors.New(pkgerrors.CodeNotFound, "payment method not found")
}

// RenderList formats the method list the way it is shown to customers.
func RenderList(methods []Method) string {
	var b strings.Builder
	b.WriteString("Choose a payment method:\n")
	for i, method := range methods {
		fmt.Fprintf(&b, "%d. %s\n", i+1, method.Label)
	}
	b.WriteString("Reply with the number.")
	return b.String()
}
