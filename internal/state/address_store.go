package state

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"storefront/internal/domain/address"
)

// AddressStore holds saved shipping addresses.
type AddressStore struct {
	p   *Persisted[address.Book]
	now func() time.Time
}

func emptyAddresses() address.Book { return address.Book{Addresses: []address.Address{}} }

// normalizeAddresses drops duplicate ids and keeps only the first default.
func normalizeAddresses(in address.Book) address.Book {
	out := emptyAddresses()
	seen := make(map[string]bool, len(in.Addresses))
	hasDefault := false
	for _, a := range in.Addresses {
		if a.ID == "" || seen[a.ID] {
			continue
		}
		seen[a.ID] = true
		if a.IsDefault && hasDefault {
			a.IsDefault = false
		}
		hasDefault = hasDefault || a.IsDefault
		out.Addresses = append(out.Addresses, a)
	}
	return out
}

// AddAddress stores a under a fresh id and returns that id.
func (s *AddressStore) AddAddress(ctx context.Context, a address.Address) (address.Book, string) {
	id := fmt.Sprintf("addr-%d-%s", s.now().UnixMilli(), uuid.NewString()[:8])
	out, _ := s.p.Update(ctx, func(b *address.Book) (bool, error) {
		b.Add(a, id)
		return true, nil
	})
	return out, id
}

// UpdateAddress merges patch; found is false for unknown ids.
func (s *AddressStore) UpdateAddress(ctx context.Context, id string, patch address.Patch) (book address.Book, found bool) {
	out, _ := s.p.Update(ctx, func(b *address.Book) (bool, error) {
		found = b.Update(id, patch)
		return found, nil
	})
	return out, found
}

func (s *AddressStore) DeleteAddress(ctx context.Context, id string) address.Book {
	out, _ := s.p.Update(ctx, func(b *address.Book) (bool, error) {
		return b.Delete(id), nil
	})
	return out
}

func (s *AddressStore) SetDefaultAddress(ctx context.Context, id string) address.Book {
	out, _ := s.p.Update(ctx, func(b *address.Book) (bool, error) {
		return b.SetDefault(id), nil
	})
	return out
}

func (s *AddressStore) DefaultAddress() (address.Address, bool) { return s.p.Snapshot().Default() }

func (s *AddressStore) Get(id string) (address.Address, bool) { return s.p.Snapshot().Get(id) }

func (s *AddressStore) Items() address.Book { return s.p.Snapshot() }
