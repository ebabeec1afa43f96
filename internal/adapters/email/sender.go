// Package email delivers transactional messages such as order confirmations.
package email

import (
	"context"
	"errors"
	"time"
)

var ErrNoRecipients = errors.New("email has no recipients")

// Message is one outgoing email.
type Message struct {
	To      []string
	From    string // empty uses the sender's default
	ReplyTo string
	Subject string
	HTML    string
	Text    string
	// RefID ties the message to the record that produced it (an outbox entry id).
	RefID string
}

// Receipt is the provider's acknowledgement of an accepted message.
type Receipt struct {
	MessageID  string
	AcceptedAt time.Time
}

// Sender hands messages to an email provider.
type Sender interface {
	Send(ctx context.Context, msg Message) (Receipt, error)
}
