package state

import (
	"context"

	"storefront/internal/domain/catalog"
	"storefront/internal/domain/compare"
)

// CompareStore holds up to compare.MaxItems products for side-by-side comparison.
type CompareStore struct {
	p      *Persisted[compare.List]
	policy compare.Policy
}

func emptyCompare() compare.List { return compare.List{Items: []compare.Entry{}} }

// normalizeCompare rebuilds a loaded list through Add so duplicates and
// entries beyond the cap are dropped.
func normalizeCompare(in compare.List) compare.List {
	out := emptyCompare()
	for _, e := range in.Items {
		if e.ID != "" {
			out.Add(e, compare.PolicyIgnore)
		}
	}
	return out
}

// AddItem adds product unless it is already compared. A full list is handled
// by the configured overflow policy; only PolicyReject returns an error.
func (s *CompareStore) AddItem(ctx context.Context, product catalog.Product, image string) (compare.List, error) {
	e := compare.NewEntry(product, image)
	return s.p.Update(ctx, func(l *compare.List) (bool, error) {
		return l.Add(e, s.policy)
	})
}

func (s *CompareStore) RemoveItem(ctx context.Context, id string) compare.List {
	out, _ := s.p.Update(ctx, func(l *compare.List) (bool, error) {
		return l.Remove(id), nil
	})
	return out
}

func (s *CompareStore) ToggleItem(ctx context.Context, product catalog.Product, image string) (compare.List, error) {
	e := compare.NewEntry(product, image)
	return s.p.Update(ctx, func(l *compare.List) (bool, error) {
		return l.Toggle(e, s.policy)
	})
}

func (s *CompareStore) ClearAll(ctx context.Context) compare.List {
	out, _ := s.p.Update(ctx, func(l *compare.List) (bool, error) {
		return l.Clear(), nil
	})
	return out
}

func (s *CompareStore) IsComparing(id string) bool { return s.p.Snapshot().Contains(id) }

func (s *CompareStore) Count() int { return s.p.Snapshot().Count() }

func (s *CompareStore) Items() compare.List { return s.p.Snapshot() }
