package outbox

import (
	"errors"
	"testing"
	"time"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// TestEntry_Lifecycle walks an entry through failed attempts to a terminal state.
func TestEntry_Lifecycle(t *testing.T) {
	e := NewEntry("ob-1", ActionTypeOrderConfirmation, `{"to":"a@x.com"}`, now)
	e.MaxAttempts = 2
	if err := e.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	e.MarkAttempt(now)
	e.MarkFailed(errors.New("smtp down"))
	if e.Status != StatusRetrying || !e.CanRetry() {
		t.Fatalf("after first failure: status=%s canRetry=%v", e.Status, e.CanRetry())
	}

	e.MarkAttempt(now.Add(time.Minute))
	e.MarkFailed(errors.New("smtp down"))
	if e.Status != StatusFailed || !e.IsTerminal() || e.CanRetry() {
		t.Errorf("expected terminal failure, got %+v", e)
	}
}

// TestEntry_Validate rejects missing fields and defaults max attempts.
func TestEntry_Validate(t *testing.T) {
	e := Entry{ActionType: ActionTypeOrderConfirmation, CreatedAt: now}
	if !errors.Is(e.Validate(), ErrEmptyPayload) {
		t.Error("expected ErrEmptyPayload")
	}
	e.Payload = "{}"
	if err := e.Validate(); err != nil || e.MaxAttempts != DefaultMaxAttempts {
		t.Errorf("err=%v max=%d", err, e.MaxAttempts)
	}
}

// TestEntry_Backoff doubles per attempt and caps.
func TestEntry_Backoff(t *testing.T) {
	e := NewEntry("ob-1", ActionTypeOrderConfirmation, "{}", now)
	base, maxDelay := 30*time.Second, 10*time.Minute

	if !e.Due(now, base, maxDelay) {
		t.Error("never-attempted entry is due")
	}
	e.MarkAttempt(now)
	if got := e.NextRetryDelay(base, maxDelay); got != time.Minute {
		t.Errorf("delay = %v, want 1m", got)
	}
	if e.Due(now.Add(59*time.Second), base, maxDelay) || !e.Due(now.Add(time.Minute), base, maxDelay) {
		t.Error("due boundary wrong")
	}
	e.Attempts = 10
	if got := e.NextRetryDelay(base, maxDelay); got != maxDelay {
		t.Errorf("delay = %v, want cap", got)
	}
}
