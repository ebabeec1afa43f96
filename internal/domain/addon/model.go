// Package addon models the add-on services (installation, rental, maintenance,
// warranty, protection) a shopper selects alongside products.
package addon

import "storefront/internal/domain/catalog"

// Selected is one selected service with its quantity.
// Quantity 0 means unset and counts as 1.
type Selected struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Price     float64             `json:"price"`
	Type      catalog.ServiceType `json:"type"`
	Duration  string              `json:"duration,omitempty"`
	Quantity  int                 `json:"quantity,omitempty"`
	ProductID string              `json:"productId,omitempty"`
}

// EffectiveQuantity returns Quantity, defaulting to 1 when unset.
func (s Selected) EffectiveQuantity() int {
	if s.Quantity <= 0 {
		return 1
	}
	return s.Quantity
}

// Subtotal returns price × effective quantity.
func (s Selected) Subtotal() float64 {
	return s.Price * float64(s.EffectiveQuantity())
}

// FromOption converts a catalog service option.
func FromOption(o catalog.ServiceOption) Selected {
	return Selected{
		ID:       o.ID,
		Name:     o.Name,
		Price:    o.Price,
		Type:     o.Type,
		Duration: o.Duration,
	}
}

// FromRental converts a product rental offer.
func FromRental(r catalog.RentOption) Selected {
	return Selected{
		ID:        r.ID,
		Name:      r.Name(),
		Price:     r.Price,
		Type:      catalog.ServiceRental,
		Duration:  r.Duration,
		ProductID: r.ProductID,
	}
}

// Selection is the persisted service selection state.
// INVARIANT: ids are unique
type Selection struct {
	SelectedServices []Selected `json:"selectedServices"`
}

// Clone returns a copy sharing no backing array with s.
func (s Selection) Clone() Selection {
	out := make([]Selected, len(s.SelectedServices))
	copy(out, s.SelectedServices)
	return Selection{SelectedServices: out}
}

func (s Selection) index(id string) int {
	for i, svc := range s.SelectedServices {
		if svc.ID == id {
			return i
		}
	}
	return -1
}

// Add inserts in with quantity 1, or increments the quantity of the entry with the same id.
// Duration and ProductID are kept only when present on in.
// PRE: in.ID is non-empty
// POST: exactly one entry with in.ID exists
func (s *Selection) Add(in Selected) {
	if i := s.index(in.ID); i >= 0 {
		s.SelectedServices[i].Quantity = s.SelectedServices[i].EffectiveQuantity() + 1
		return
	}
	s.SelectedServices = append(s.SelectedServices, Selected{
		ID:        in.ID,
		Name:      in.Name,
		Price:     in.Price,
		Type:      in.Type,
		Duration:  in.Duration,
		Quantity:  1,
		ProductID: in.ProductID,
	})
}

// Remove deletes the whole entry for id. Absent ids are a no-op.
func (s *Selection) Remove(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.SelectedServices = append(s.SelectedServices[:i], s.SelectedServices[i+1:]...)
	return true
}

// Clear removes every selected service.
func (s *Selection) Clear() bool {
	if len(s.SelectedServices) == 0 {
		return false
	}
	s.SelectedServices = []Selected{}
	return true
}

// Total returns the sum of price × quantity. Computed on every call.
func (s Selection) Total() float64 {
	var total float64
	for _, svc := range s.SelectedServices {
		total += svc.Subtotal()
	}
	return total
}
