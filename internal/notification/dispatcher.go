// Package notification delivers marketplace emails. Delivery failures are
// logged and never fail the operation that triggered them.
package notification

import "context"

// Message is one outbound notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Dispatcher sends notifications. Implementations must be safe for
// concurrent use.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}
