package state

import (
	"context"

	"storefront/internal/domain/catalog"
	"storefront/internal/domain/favorite"
)

// FavoritesStore is the unbounded set of liked products.
type FavoritesStore struct {
	p *Persisted[favorite.Set]
}

func emptyFavorites() favorite.Set { return favorite.Set{Favorites: []favorite.Entry{}} }

func normalizeFavorites(in favorite.Set) favorite.Set {
	out := emptyFavorites()
	for _, e := range in.Favorites {
		if e.ID != "" {
			out.Add(e)
		}
	}
	return out
}

func (s *FavoritesStore) AddFavorite(ctx context.Context, product catalog.Product) favorite.Set {
	e := favorite.NewEntry(product)
	out, _ := s.p.Update(ctx, func(set *favorite.Set) (bool, error) {
		return set.Add(e), nil
	})
	return out
}

func (s *FavoritesStore) RemoveFavorite(ctx context.Context, id string) favorite.Set {
	out, _ := s.p.Update(ctx, func(set *favorite.Set) (bool, error) {
		return set.Remove(id), nil
	})
	return out
}

func (s *FavoritesStore) ToggleFavorite(ctx context.Context, product catalog.Product) favorite.Set {
	e := favorite.NewEntry(product)
	out, _ := s.p.Update(ctx, func(set *favorite.Set) (bool, error) {
		return set.Toggle(e), nil
	})
	return out
}

func (s *FavoritesStore) ClearFavorites(ctx context.Context) favorite.Set {
	out, _ := s.p.Update(ctx, func(set *favorite.Set) (bool, error) {
		return set.Clear(), nil
	})
	return out
}

func (s *FavoritesStore) IsFavorite(id string) bool { return s.p.Snapshot().Contains(id) }

func (s *FavoritesStore) Count() int { return s.p.Snapshot().Count() }

func (s *FavoritesStore) Items() favorite.Set { return s.p.Snapshot() }
