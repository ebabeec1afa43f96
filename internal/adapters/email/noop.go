package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// NoopSender logs messages instead of delivering them. Used when no provider
// key is configured.
type NoopSender struct {
	now func() time.Time
}

func NewNoopSender() *NoopSender {
	return &NoopSender{now: time.Now}
}

// Send logs msg and returns a synthetic receipt.
// PRE: msg has at least one recipient
func (s *NoopSender) Send(_ context.Context, msg Message) (Receipt, error) {
	if len(msg.To) == 0 {
		return Receipt{}, ErrNoRecipients
	}
	at := s.now()
	slog.Info("noop_email_send", "to", msg.To, "subject", msg.Subject, "ref_id", msg.RefID)
	return Receipt{
		MessageID:  fmt.Sprintf("noop-%d", at.UnixNano()),
		AcceptedAt: at,
	}, nil
}
