package compare

import (
	"errors"
	"fmt"

	"storefront/internal/domain/catalog"
)

// MaxItems is the maximum number of products compared side by side.
const MaxItems = 4

// Policy decides what happens when a fifth distinct product is added.
type Policy string

const (
	// PolicyIgnore drops the add silently.
	PolicyIgnore Policy = "ignore"
	// PolicyReject drops the add and reports ErrComparisonFull.
	PolicyReject Policy = "reject"
	// PolicyEvictOldest removes the first entry to make room.
	PolicyEvictOldest Policy = "evict-oldest"
)

var ErrComparisonFull = errors.New("comparison is full")

// ParsePolicy converts a configuration value to a Policy. Empty means PolicyIgnore.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "":
		return PolicyIgnore, nil
	case PolicyIgnore, PolicyReject, PolicyEvictOldest:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown compare overflow policy %q", s)
}

// Entry is a product reference held for comparison. Entries are never mutated in place.
type Entry struct {
	ID    string  `json:"id"`
	Slug  string  `json:"slug"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Brand string  `json:"brand"`
	Image string  `json:"image"`
}

// NewEntry derives a comparison entry from a product and its display image.
func NewEntry(p catalog.Product, image string) Entry {
	return Entry{
		ID:    p.ID,
		Slug:  p.Slug,
		Name:  p.Name,
		Price: p.Price,
		Brand: p.Brand,
		Image: image,
	}
}

// List is the persisted comparison state.
// INVARIANT: len(Items) <= MaxItems and ids are unique
type List struct {
	Items []Entry `json:"items"`
}

// Clone returns a copy that shares no backing array with l.
func (l List) Clone() List {
	items := make([]Entry, len(l.Items))
	copy(items, l.Items)
	return List{Items: items}
}

// Contains reports whether an entry with id is present.
func (l List) Contains(id string) bool {
	return l.index(id) >= 0
}

// Count returns the number of entries.
func (l List) Count() int {
	return len(l.Items)
}

func (l List) index(id string) int {
	for i, e := range l.Items {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Add inserts e unless its id is already present.
// PRE: e.ID is non-empty
// POST: changed is true when l was modified; err is ErrComparisonFull only under PolicyReject
// INVARIANT: len(l.Items) <= MaxItems
func (l *List) Add(e Entry, policy Policy) (changed bool, err error) {
	if l.Contains(e.ID) {
		return false, nil
	}
	if len(l.Items) >= MaxItems {
		switch policy {
		case PolicyReject:
			return false, ErrComparisonFull
		case PolicyEvictOldest:
			l.Items = append(l.Items[:0:0], l.Items[len(l.Items)-MaxItems+1:]...)
		default:
			return false, nil
		}
	}
	l.Items = append(l.Items, e)
	return true, nil
}

// Remove deletes the entry with id. Absent ids are a no-op.
func (l *List) Remove(id string) bool {
	i := l.index(id)
	if i < 0 {
		return false
	}
	l.Items = append(l.Items[:i], l.Items[i+1:]...)
	return true
}

// Toggle removes e if present, otherwise adds it under policy.
func (l *List) Toggle(e Entry, policy Policy) (bool, error) {
	if l.Remove(e.ID) {
		return true, nil
	}
	return l.Add(e, policy)
}

// Clear empties the list.
func (l *List) Clear() bool {
	if len(l.Items) == 0 {
		return false
	}
	l.Items = []Entry{}
	return true
}
