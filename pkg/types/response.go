// Package types holds the wire shapes shared by every API surface.
package types

// SuccessEnvelope wraps every successful response body. Operator tooling
// relies on the data key always being present.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the public face of a failure: a stable machine-readable
// code, a customer-safe message, and optional structured details.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps every error response body.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
