package outbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"storefront/internal/adapters/storage"
	domain "storefront/internal/domain/outbox"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	db, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.MigrateDB(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewSQLiteStore(db)
}

// TestSQLiteStore_SaveAndGet round-trips an entry, including timestamps.
func TestSQLiteStore_SaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	e := domain.NewEntry("ob-1", domain.ActionTypeOrderConfirmation, `{"to":["a@x.com"]}`, now)
	if err := s.Save(ctx, e); err != nil {
		t.Fatalf("Save: %v", err)
	}
	e.MarkAttempt(now.Add(time.Minute))
	e.MarkSuccess("msg-1")
	if err := s.Save(ctx, e); err != nil {
		t.Fatalf("Save update: %v", err)
	}

	got, err := s.GetByID(ctx, "ob-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.StatusDone || got.ExternalID != "msg-1" || got.Attempts != 1 {
		t.Errorf("unexpected entry %+v", got)
	}
	if !got.CreatedAt.Equal(now) || !got.LastAttemptedAt.Equal(now.Add(time.Minute)) {
		t.Errorf("timestamps lost: %v %v", got.CreatedAt, got.LastAttemptedAt)
	}
}

// TestSQLiteStore_GetByID_NotFound maps missing rows to the domain sentinel.
func TestSQLiteStore_GetByID_NotFound(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetByID(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

// TestSQLiteStore_ListPendingAndFailed separates live and exhausted entries.
func TestSQLiteStore_ListPendingAndFailed(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	pending := domain.NewEntry("ob-1", domain.ActionTypeOrderConfirmation, "{}", now)
	retrying := domain.NewEntry("ob-2", domain.ActionTypeOrderConfirmation, "{}", now.Add(time.Second))
	retrying.MarkAttempt(now)
	failed := domain.NewEntry("ob-3", domain.ActionTypeOrderConfirmation, "{}", now)
	failed.MaxAttempts = 1
	failed.MarkAttempt(now)
	failed.MarkFailed(errors.New("bounced"))
	done := domain.NewEntry("ob-4", domain.ActionTypeOrderConfirmation, "{}", now)
	done.MarkSuccess("m")

	for _, e := range []domain.Entry{pending, retrying, failed, done} {
		if err := s.Save(ctx, e); err != nil {
			t.Fatalf("Save %s: %v", e.ID, err)
		}
	}

	got, err := s.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(got) != 2 || got[0].ID != "ob-1" || got[1].ID != "ob-2" {
		t.Errorf("pending = %+v", got)
	}

	got, err = s.ListFailed(ctx, 10)
	if err != nil {
		t.Fatalf("ListFailed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "ob-3" || got[0].ErrorMessage != "bounced" {
		t.Errorf("failed = %+v", got)
	}

	if err := s.Delete(ctx, "ob-3"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.GetByID(ctx, "ob-3"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected deleted entry to be gone, err=%v", err)
	}
}
