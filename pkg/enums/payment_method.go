package enums

import "fmt"

// PaymentMethod identifies how a customer intends to pay. The gateway
// method is the only automatic one; the rest are manual-instruction
// methods confirmed by a human operator.
type PaymentMethod string

const (
	PaymentMethodGateway PaymentMethod = "gateway"
	PaymentMethodEwallet PaymentMethod = "ewallet"
	PaymentMethodBank    PaymentMethod = "bank"
	PaymentMethodQRIS    PaymentMethod = "qris"
)

var validPaymentMethods = []PaymentMethod{
	PaymentMethodGateway,
	PaymentMethodEwallet,
	PaymentMethodBank,
	PaymentMethodQRIS,
}

// String implements fmt.Stringer.
func (p PaymentMethod) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentMethod.
func (p PaymentMethod) IsValid() bool {
	for _, candidate := range validPaymentMethods {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsAutomatic reports whether the method is confirmed by the gateway
// rather than a human operator.
func (p PaymentMethod) IsAutomatic() bool {
	return p == PaymentMethodGateway
}

// ParsePaymentMethod converts raw input into a PaymentMethod.
func ParsePaymentMethod(value string) (PaymentMethod, error) {
	for _, candidate := range validPaymentMethods {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment method %q", value)
}
