package enums

import "fmt"

// IntentStatus tracks the lifecycle of one payment attempt.
type IntentStatus string

const (
	IntentStatusPending   IntentStatus = "pending"
	IntentStatusSucceeded IntentStatus = "succeeded"
	IntentStatusExpired   IntentStatus = "expired"
	IntentStatusFailed    IntentStatus = "failed"
)

var validIntentStatuses = []IntentStatus{
	IntentStatusPending,
	IntentStatusSucceeded,
	IntentStatusExpired,
	IntentStatusFailed,
}

// String implements fmt.Stringer.
func (i IntentStatus) String() string {
	return string(i)
}

// IsValid reports whether the value is a known IntentStatus.
func (i IntentStatus) IsValid() bool {
	for _, candidate := range validIntentStatuses {
		if candidate == i {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the status ends the awaiting-payment episode.
func (i IntentStatus) IsTerminal() bool {
	return i == IntentStatusSucceeded || i == IntentStatusExpired || i == IntentStatusFailed
}

// ParseIntentStatus converts raw input into an IntentStatus.
func ParseIntentStatus(value string) (IntentStatus, error) {
	for _, candidate := range validIntentStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid intent status %q", value)
}
