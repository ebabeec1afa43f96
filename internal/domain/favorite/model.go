package favorite

import (
	"maps"
	"slices"

	"storefront/internal/domain/catalog"
)

// Entry is a liked product. It carries enough of the product for a product
// card to render from the favorites list alone.
type Entry struct {
	ID              string            `json:"id"`
	Slug            string            `json:"slug"`
	Name            string            `json:"name"`
	Price           float64           `json:"price"`
	OriginalPrice   float64           `json:"originalPrice"`
	Brand           string            `json:"brand"`
	CategorySlug    string            `json:"categorySlug"`
	Category        string            `json:"category"`
	Rating          float64           `json:"rating"`
	Reviews         int               `json:"reviews"`
	Stock           int               `json:"stock"`
	Condition       string            `json:"condition"`
	FreeShipping    bool              `json:"freeShipping,omitempty"`
	Images          []string          `json:"images"`
	Tags            []string          `json:"tags"`
	Description     string            `json:"description"`
	Specs           map[string]string `json:"specs,omitempty"`
	PickupAvailable bool              `json:"pickupAvailable,omitempty"`
}

// NewEntry copies the card fields of a product.
func NewEntry(p catalog.Product) Entry {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	return Entry{
		ID:              p.ID,
		Slug:            p.Slug,
		Name:            p.Name,
		Price:           p.Price,
		OriginalPrice:   p.OriginalPrice,
		Brand:           p.Brand,
		CategorySlug:    p.CategorySlug,
		Category:        p.Category,
		Rating:          p.Rating,
		Reviews:         p.Reviews,
		Stock:           p.Stock,
		Condition:       p.Condition,
		FreeShipping:    p.FreeShipping,
		Images:          slices.Clone(images),
		Tags:            slices.Clone(tags),
		Description:     p.Description,
		Specs:           maps.Clone(p.Specs),
		PickupAvailable: p.PickupAvailable,
	}
}

func (e Entry) clone() Entry {
	e.Images = append([]string{}, e.Images...)
	e.Tags = append([]string{}, e.Tags...)
	e.Specs = maps.Clone(e.Specs)
	return e
}

// Set is the persisted favorites state.
// INVARIANT: ids are unique
type Set struct {
	Favorites []Entry `json:"favorites"`
}

// Clone returns a deep copy of s.
func (s Set) Clone() Set {
	out := make([]Entry, len(s.Favorites))
	for i, e := range s.Favorites {
		out[i] = e.clone()
	}
	return Set{Favorites: out}
}

// Contains reports whether id is a favorite.
func (s Set) Contains(id string) bool {
	return s.index(id) >= 0
}

// Count returns the number of favorites.
func (s Set) Count() int {
	return len(s.Favorites)
}

func (s Set) index(id string) int {
	for i, e := range s.Favorites {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Add inserts e when its id is absent.
func (s *Set) Add(e Entry) bool {
	if s.Contains(e.ID) {
		return false
	}
	s.Favorites = append(s.Favorites, e)
	return true
}

// Remove deletes id. Absent ids are a no-op.
func (s *Set) Remove(id string) bool {
	i := s.index(id)
	if i < 0 {
		return false
	}
	s.Favorites = append(s.Favorites[:i], s.Favorites[i+1:]...)
	return true
}

// Toggle removes e if present, otherwise adds it.
func (s *Set) Toggle(e Entry) bool {
	if s.Remove(e.ID) {
		return true
	}
	return s.Add(e)
}

// Clear removes every favorite.
func (s *Set) Clear() bool {
	if len(s.Favorites) == 0 {
		return false
	}
	s.Favorites = []Entry{}
	return true
}
