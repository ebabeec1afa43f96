package order

import (
	"errors"
	"regexp"
	"testing"
	"time"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sample(user string) Order {
	return Order{UserID: user, Subtotal: 100, Total: 90, PaymentMethod: PaymentPix, ShippingMethod: ShippingDelivery, Status: StatusConfirmed}
}

// TestHistory_ForUser filters by the owning user.
func TestHistory_ForUser(t *testing.T) {
	var h History
	h.Create(sample("user-a"), "ORD-1", now)
	h.Create(sample("user-b"), "ORD-2", now)
	h.Create(sample("user-a"), "ORD-3", now)

	got := h.ForUser("user-a")
	if len(got) != 2 || got[0].ID != "ORD-1" || got[1].ID != "ORD-3" {
		t.Errorf("unexpected orders %+v", got)
	}
	if len(h.ForUser("nobody")) != 0 {
		t.Error("expected no orders")
	}
}

// TestHistory_UpdateStatus rejects unknown statuses and ids.
func TestHistory_UpdateStatus(t *testing.T) {
	var h History
	h.Create(sample("user-a"), "ORD-1", now)

	if _, err := h.UpdateStatus("ORD-1", "perdido"); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("err = %v, want ErrInvalidStatus", err)
	}
	if _, err := h.UpdateStatus("ORD-9", StatusShipped); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("err = %v, want ErrOrderNotFound", err)
	}
	changed, err := h.UpdateStatus("ORD-1", StatusShipped)
	if err != nil || !changed {
		t.Fatalf("changed=%v err=%v", changed, err)
	}
	o, _ := h.Get("ORD-1")
	if o.Status != StatusShipped || !o.CreatedAt.Equal(now) {
		t.Errorf("unexpected order %+v", o)
	}
}

// TestNewID_Format verifies the id shape.
func TestNewID_Format(t *testing.T) {
	id := NewID(now)
	if !regexp.MustCompile(`^ORD-1772366400000-[0-9a-f]{8}$`).MatchString(id) {
		t.Errorf("id = %q", id)
	}
	if NewID(now) == id {
		t.Error("ids issued in the same millisecond must differ")
	}
}

// TestOrder_Validate checks enumerations.
func TestOrder_Validate(t *testing.T) {
	o := sample("u")
	if err := o.Validate(); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	o.PaymentMethod = "cheque"
	if !errors.Is(o.Validate(), ErrInvalidPayment) {
		t.Error("expected invalid payment")
	}
}
