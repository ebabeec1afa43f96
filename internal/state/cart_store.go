package state

import (
	"context"
	"time"

	"storefront/internal/domain/cart"
)

// CartStore holds the shopping cart.
type CartStore struct {
	p   *Persisted[cart.Cart]
	now func() time.Time
}

func emptyCart() cart.Cart { return cart.Cart{Items: []cart.Item{}} }

// normalizeCart merges duplicate product lines and drops invalid ones.
func normalizeCart(in cart.Cart) cart.Cart {
	out := emptyCart()
	for _, it := range in.Items {
		if it.ProductID == "" {
			continue
		}
		if it.Quantity < 0 {
			it.Quantity = 0
		}
		merged := false
		for i := range out.Items {
			if out.Items[i].ProductID == it.ProductID {
				out.Items[i].Quantity += it.Quantity
				merged = true
				break
			}
		}
		if !merged {
			out.Items = append(out.Items, it)
		}
	}
	return out
}

func (s *CartStore) AddItem(ctx context.Context, item cart.Item) cart.Cart {
	now := s.now()
	out, _ := s.p.Update(ctx, func(c *cart.Cart) (bool, error) {
		c.Add(item, now)
		return true, nil
	})
	return out
}

func (s *CartStore) RemoveItem(ctx context.Context, productID string) cart.Cart {
	out, _ := s.p.Update(ctx, func(c *cart.Cart) (bool, error) {
		return c.Remove(productID), nil
	})
	return out
}

func (s *CartStore) UpdateQuantity(ctx context.Context, productID string, quantity int) cart.Cart {
	out, _ := s.p.Update(ctx, func(c *cart.Cart) (bool, error) {
		return c.UpdateQuantity(productID, quantity), nil
	})
	return out
}

func (s *CartStore) AddServiceToProduct(ctx context.Context, productID string, svc cart.ItemService) cart.Cart {
	out, _ := s.p.Update(ctx, func(c *cart.Cart) (bool, error) {
		return c.AddService(productID, svc), nil
	})
	return out
}

func (s *CartStore) RemoveServiceFromProduct(ctx context.Context, productID, serviceID string) cart.Cart {
	out, _ := s.p.Update(ctx, func(c *cart.Cart) (bool, error) {
		return c.RemoveService(productID, serviceID), nil
	})
	return out
}

func (s *CartStore) ClearCart(ctx context.Context) cart.Cart {
	out, _ := s.p.Update(ctx, func(c *cart.Cart) (bool, error) {
		return c.Clear(), nil
	})
	return out
}

// RemoveOrdered takes an ordered snapshot's lines out of the cart, leaving
// anything added after the snapshot was read.
func (s *CartStore) RemoveOrdered(ctx context.Context, ordered cart.Cart) cart.Cart {
	out, _ := s.p.Update(ctx, func(c *cart.Cart) (bool, error) {
		return c.Subtract(ordered), nil
	})
	return out
}

func (s *CartStore) TotalPrice() float64 { return s.p.Snapshot().TotalPrice() }

func (s *CartStore) TotalItems() int { return s.p.Snapshot().TotalItems() }

func (s *CartStore) Items() cart.Cart { return s.p.Snapshot() }
