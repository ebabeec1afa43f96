package state

import (
	"context"

	"storefront/internal/domain/addon"
)

// ServiceStore holds the add-on services selected during checkout.
type ServiceStore struct {
	p *Persisted[addon.Selection]
}

func emptyServices() addon.Selection { return addon.Selection{SelectedServices: []addon.Selected{}} }

// normalizeServices keeps the first entry per id.
func normalizeServices(in addon.Selection) addon.Selection {
	out := emptyServices()
	seen := make(map[string]bool, len(in.SelectedServices))
	for _, s := range in.SelectedServices {
		if s.ID == "" || seen[s.ID] {
			continue
		}
		seen[s.ID] = true
		out.SelectedServices = append(out.SelectedServices, s)
	}
	return out
}

// AddService selects svc, or bumps its quantity when already selected.
func (s *ServiceStore) AddService(ctx context.Context, svc addon.Selected) addon.Selection {
	out, _ := s.p.Update(ctx, func(sel *addon.Selection) (bool, error) {
		sel.Add(svc)
		return true, nil
	})
	return out
}

func (s *ServiceStore) RemoveService(ctx context.Context, id string) addon.Selection {
	out, _ := s.p.Update(ctx, func(sel *addon.Selection) (bool, error) {
		return sel.Remove(id), nil
	})
	return out
}

func (s *ServiceStore) ClearServices(ctx context.Context) addon.Selection {
	out, _ := s.p.Update(ctx, func(sel *addon.Selection) (bool, error) {
		return sel.Clear(), nil
	})
	return out
}

// GetTotal is computed from the current selection on every call.
func (s *ServiceStore) GetTotal() float64 { return s.p.Snapshot().Total() }

func (s *ServiceStore) Items() addon.Selection { return s.p.Snapshot() }
