package transport

import "context"

// Sender delivers a message to a customer over the chat transport.
type Sender interface {
	Send(ctx context.Context, customerID, text string) error
}
