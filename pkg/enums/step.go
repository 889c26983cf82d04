package enums

import "fmt"

// Step identifies where a customer session sits in the order lifecycle.
type Step string

const (
	StepMenu                    Step = "menu"
	StepBrowsing                Step = "browsing"
	StepCheckout                Step = "checkout"
	StepSelectPayment           Step = "select_payment"
	StepAwaitingPayment         Step = "awaiting_payment"
	StepAwaitingAdminApproval   Step = "awaiting_admin_approval"
	StepAwaitingOrderIDForProof Step = "awaiting_order_id_for_proof"
)

var validSteps = []Step{
	StepMenu,
	StepBrowsing,
	StepCheckout,
	StepSelectPayment,
	StepAwaitingPayment,
	StepAwaitingAdminApproval,
	StepAwaitingOrderIDForProof,
}

// String implements fmt.Stringer.
func (s Step) String() string {
	return string(s)
}

// IsValid reports whether the value is a known Step.
func (s Step) IsValid() bool {
	for _, candidate := range validSteps {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsAwaitingPayment reports whether the step is one of the two states that
// hold an unresolved payment.
func (s Step) IsAwaitingPayment() bool {
	return s == StepAwaitingPayment || s == StepAwaitingAdminApproval
}

// ParseStep converts raw input into a Step.
func ParseStep(value string) (Step, error) {
	for _, candidate := range validSteps {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid step %q", value)
}
