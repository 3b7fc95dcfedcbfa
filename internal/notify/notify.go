// Package notify delivers operator-facing messages about library
// activity: releases found by reconciliation and the outcome of
// download batches.
package notify

import "context"

// Message is one operator-facing notification.
type Message struct {
	Subject string
	Body    string
}

// Notifier delivers messages. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Notify(ctx context.Context, m Message) error
}
