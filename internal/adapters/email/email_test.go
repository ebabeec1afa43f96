package email

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestNoopSender_Send(t *testing.T) {
	s := &NoopSender{now: func() time.Time { return time.Unix(0, 42) }}
	r, err := s.Send(context.Background(), Message{To: []string{"a@x.com"}, Subject: "Pedido"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if r.MessageID != "noop-42" {
		t.Errorf("MessageID = %q", r.MessageID)
	}
	if _, err := s.Send(context.Background(), Message{}); !errors.Is(err, ErrNoRecipients) {
		t.Errorf("err = %v, want ErrNoRecipients", err)
	}
}

func TestResendSender_RequestDefaults(t *testing.T) {
	s := NewResendSender("re_test", "Loja <noreply@loja.example>", "sac@loja.example")
	p := s.request(Message{To: []string{"a@x.com"}, Subject: "Pedido", HTML: "<p>oi</p>", RefID: "ob-1"})
	if p.From != "Loja <noreply@loja.example>" || p.ReplyTo != "sac@loja.example" {
		t.Errorf("defaults not applied: %+v", p)
	}
	if p.Headers["X-Entity-Ref-ID"] != "ob-1" {
		t.Errorf("headers = %v", p.Headers)
	}

	p = s.request(Message{To: []string{"a@x.com"}, From: "outro@loja.example"})
	if p.From != "outro@loja.example" || p.Headers != nil {
		t.Errorf("explicit from lost or stray headers: %+v", p)
	}
}

func TestResendSender_RejectsEmptyRecipients(t *testing.T) {
	s := NewResendSender("re_test", "from@loja.example", "")
	if _, err := s.Send(context.Background(), Message{Subject: "x"}); !errors.Is(err, ErrNoRecipients) {
		t.Errorf("err = %v, want ErrNoRecipients", err)
	}
}

func TestRenderMarkdown(t *testing.T) {
	html, err := RenderMarkdown("# Pedido confirmado\n\nOlá <script>alert(1)</script> **Ana**\n\n| Item | Qtd |\n|---|---|\n| TV | 1 |\n")
	if err != nil {
		t.Fatalf("RenderMarkdown: %v", err)
	}
	for _, want := range []string{"<h1>Pedido confirmado</h1>", "<strong>Ana</strong>", "<table>", "</html>"} {
		if !strings.Contains(html, want) {
			t.Errorf("output missing %q:\n%s", want, html)
		}
	}
	if strings.Contains(html, "<script>") {
		t.Error("raw HTML was not escaped")
	}
}
