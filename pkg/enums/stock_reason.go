package enums

import "fmt"

// StockReason tags an entry in the stock audit history.
type StockReason string

const (
	StockReasonSale      StockReason = "sale"
	StockReasonRestock   StockReason = "restock"
	StockReasonOverride  StockReason = "override"
	StockReasonReconcile StockReason = "reconcile"
	StockReasonBaseline  StockReason = "baseline"
)

var validStockReasons = []StockReason{
	StockReasonSale,
	StockReasonRestock,
	StockReasonOverride,
	StockReasonReconcile,
	StockReasonBaseline,
}

// String implements fmt.Stringer.
func (s StockReason) String() string {
	return string(s)
}

// IsValid reports whether the value is a known StockReason.
func (s StockReason) IsValid() bool {
	for _, candidate := range validStockReasons {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseStockReason converts raw input into a StockReason.
func ParseStockReason(value string) (StockReason, error) {
	for _, candidate := range validStockReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock reason %q", value)
}
