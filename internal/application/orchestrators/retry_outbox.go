package orchestrators

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"storefront/internal/adapters/email"
	outboxStore "storefront/internal/adapters/storage/outbox"
	domain "storefront/internal/domain/outbox"
	"storefront/internal/metrics"
)

// OutboxProcessor delivers pending outbox entries with exponential backoff.
type OutboxProcessor struct {
	store     outboxStore.Store
	executors map[string]ActionExecutor
	baseDelay time.Duration
	maxDelay  time.Duration
	batchSize int
	now       func() time.Time
}

// ActionExecutor executes one type of external action.
type ActionExecutor interface {
	// Execute runs the action for payload and returns the provider's id.
	Execute(ctx context.Context, payload string) (string, error)
}

// OutboxOptions tune the processor. Zero values take the defaults.
type OutboxOptions struct {
	BaseDelay time.Duration
	MaxDelay  time.Duration
	BatchSize int
	Now       func() time.Time
}

func NewOutboxProcessor(store outboxStore.Store, executors map[string]ActionExecutor, opts OutboxOptions) *OutboxProcessor {
	p := &OutboxProcessor{
		store:     store,
		executors: executors,
		baseDelay: 30 * time.Second,
		maxDelay:  time.Hour,
		batchSize: 10,
		now:       time.Now,
	}
	if opts.BaseDelay > 0 {
		p.baseDelay = opts.BaseDelay
	}
	if opts.MaxDelay > 0 {
		p.maxDelay = opts.MaxDelay
	}
	if opts.BatchSize > 0 {
		p.batchSize = opts.BatchSize
	}
	if opts.Now != nil {
		p.now = opts.Now
	}
	return p
}

// ProcessPending attempts every due entry of one batch.
// PRE: Context is valid
// POST: attempted entries are saved with their new status; returns the number attempted
func (p *OutboxProcessor) ProcessPending(ctx context.Context) (int, error) {
	entries, err := p.store.ListPending(ctx, p.batchSize)
	if err != nil {
		return 0, fmt.Errorf("list pending outbox entries: %w", err)
	}

	attempted := 0
	for _, entry := range entries {
		if !entry.Due(p.now(), p.baseDelay, p.maxDelay) {
			continue
		}
		attempted++
		if err := p.attempt(ctx, entry); err != nil {
			slog.Error("outbox_process_failed", "entry_id", entry.ID, "action_type", entry.ActionType, "error", err)
		}
	}
	return attempted, nil
}

func (p *OutboxProcessor) attempt(ctx context.Context, entry domain.Entry) error {
	entry.MarkAttempt(p.now())

	executor, ok := p.executors[entry.ActionType]
	if !ok {
		entry.MarkFailed(fmt.Errorf("no executor registered for action type %q", entry.ActionType))
		metrics.RecordDelivery(entry.ActionType, false)
		return p.store.Save(ctx, entry)
	}

	externalID, err := executor.Execute(ctx, entry.Payload)
	metrics.RecordDelivery(entry.ActionType, err == nil)
	if err != nil {
		entry.MarkFailed(err)
		slog.Warn("outbox_action_failed", "entry_id", entry.ID, "attempt", entry.Attempts, "status", entry.Status, "error", err)
	} else {
		entry.MarkSuccess(externalID)
		slog.Info("outbox_action_succeeded", "entry_id", entry.ID, "action_type", entry.ActionType, "external_id", externalID)
	}
	return p.store.Save(ctx, entry)
}

// ProcessSingle attempts one entry immediately, ignoring backoff.
// PRE: entryID is non-empty
// POST: entry attempted and saved, or domain.ErrTerminal when it cannot be retried
func (p *OutboxProcessor) ProcessSingle(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("get outbox entry: %w", err)
	}
	if entry.IsTerminal() {
		return fmt.Errorf("entry %s: %w", entryID, domain.ErrTerminal)
	}
	return p.attempt(ctx, entry)
}

// AbandonEntry stops all further attempts for an entry.
func (p *OutboxProcessor) AbandonEntry(ctx context.Context, entryID string) error {
	entry, err := p.store.GetByID(ctx, entryID)
	if err != nil {
		return fmt.Errorf("get outbox entry: %w", err)
	}
	entry.MarkAbandoned()
	return p.store.Save(ctx, entry)
}

// Run processes the outbox every interval until ctx is cancelled.
func (p *OutboxProcessor) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("outbox_worker_stopped")
			return nil
		case <-ticker.C:
			runCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
			if _, err := p.ProcessPending(runCtx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("outbox_background_process_failed", "error", err)
			}
			cancel()
		}
	}
}

// --- Email Executor ---

// EmailExecutor sends queued order emails through an email.Sender.
type EmailExecutor struct {
	Sender email.Sender
}

// Execute sends the email described by payload.
// PRE: payload is JSON matching OrderEmailPayload
// POST: returns the provider message id
// INVARIANT: outbox entry status managed by caller
func (e *EmailExecutor) Execute(ctx context.Context, payload string) (string, error) {
	var p OrderEmailPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return "", fmt.Errorf("unmarshal payload: %w", err)
	}
	receipt, err := e.Sender.Send(ctx, email.Message{
		To:      []string{p.To},
		Subject: p.Subject,
		HTML:    p.HTML,
		Text:    p.Text,
		RefID:   p.RefID,
	})
	if err != nil {
		return "", err
	}
	return receipt.MessageID, nil
}
