package state

import (
	"context"
	"time"

	"storefront/internal/domain/order"
)

// OrderStore holds the orders placed from this session.
type OrderStore struct {
	p   *Persisted[order.History]
	now func() time.Time
}

func emptyOrders() order.History { return order.History{Orders: []order.Order{}} }

// normalizeOrders drops orders without an id or with an unknown status.
func normalizeOrders(in order.History) order.History {
	out := emptyOrders()
	for _, o := range in.Orders {
		if o.ID != "" && o.Status.Valid() {
			out.Orders = append(out.Orders, o)
		}
	}
	return out
}

// CreateOrder stores o with a fresh id and the current time, returning the id.
// PRE: o passes Validate
func (s *OrderStore) CreateOrder(ctx context.Context, o order.Order) (string, error) {
	if err := o.Validate(); err != nil {
		return "", err
	}
	now := s.now()
	id := order.NewID(now)
	_, err := s.p.Update(ctx, func(h *order.History) (bool, error) {
		h.Create(o, id, now)
		return true, nil
	})
	return id, err
}

// GetOrder returns the order with id.
func (s *OrderStore) GetOrder(id string) (order.Order, error) {
	o, ok := s.p.Snapshot().Get(id)
	if !ok {
		return order.Order{}, order.ErrOrderNotFound
	}
	return o, nil
}

// UserOrders returns the orders placed by userID.
func (s *OrderStore) UserOrders(userID string) []order.Order {
	return s.p.Snapshot().ForUser(userID)
}

func (s *OrderStore) UpdateOrderStatus(ctx context.Context, id string, status order.Status) (order.Order, error) {
	h, err := s.p.Update(ctx, func(h *order.History) (bool, error) {
		return h.UpdateStatus(id, status)
	})
	if err != nil {
		return order.Order{}, err
	}
	o, _ := h.Get(id)
	return o, nil
}
