package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/resend/resend-go/v2"
)

// ResendSender delivers through the Resend API.
type ResendSender struct {
	client  *resend.Client
	from    string
	replyTo string
}

// NewResendSender returns a sender using apiKey. from and replyTo are used
// when a message leaves them empty.
// PRE: apiKey is a valid Resend API key
func NewResendSender(apiKey, from, replyTo string) *ResendSender {
	return &ResendSender{
		client:  resend.NewClient(apiKey),
		from:    from,
		replyTo: replyTo,
	}
}

// Send submits msg to Resend.
// POST: on success the returned receipt carries the Resend message id
func (s *ResendSender) Send(ctx context.Context, msg Message) (Receipt, error) {
	if len(msg.To) == 0 {
		return Receipt{}, ErrNoRecipients
	}
	params := s.request(msg)

	sent, err := s.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		slog.Error("resend_send_failed", "error", err, "to", msg.To, "subject", msg.Subject, "ref_id", msg.RefID)
		return Receipt{}, fmt.Errorf("resend send: %w", err)
	}

	slog.Info("resend_sent", "message_id", sent.Id, "to", msg.To, "ref_id", msg.RefID)
	return Receipt{MessageID: sent.Id, AcceptedAt: time.Now()}, nil
}

func (s *ResendSender) request(msg Message) *resend.SendEmailRequest {
	params := &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
		Text:    msg.Text,
		ReplyTo: msg.ReplyTo,
	}
	if params.From == "" {
		params.From = s.from
	}
	if params.ReplyTo == "" {
		params.ReplyTo = s.replyTo
	}
	if msg.RefID != "" {
		params.Headers = map[string]string{"X-Entity-Ref-ID": msg.RefID}
	}
	return params
}
