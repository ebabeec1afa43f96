package address

import "errors"

var ErrNoAddress = errors.New("no shipping address")

// Address is a saved shipping address.
type Address struct {
	ID           string `json:"id"`
	Name         string `json:"name" validate:"required,max=120"`
	Street       string `json:"street" validate:"required,max=200"`
	Number       string `json:"number" validate:"required,max=20"`
	Complement   string `json:"complement,omitempty" validate:"max=120"`
	Neighborhood string `json:"neighborhood" validate:"required,max=120"`
	City         string `json:"city" validate:"required,max=120"`
	State        string `json:"state" validate:"required,len=2"`
	ZipCode      string `json:"zipCode" validate:"required,min=8,max=9"`
	IsDefault    bool   `json:"isDefault"`
}

// Patch carries the address fields to merge. Nil fields are left untouched.
type Patch struct {
	Name         *string `json:"name,omitempty" validate:"omitempty,max=120"`
	Street       *string `json:"street,omitempty" validate:"omitempty,max=200"`
	Number       *string `json:"number,omitempty" validate:"omitempty,max=20"`
	Complement   *string `json:"complement,omitempty" validate:"omitempty,max=120"`
	Neighborhood *string `json:"neighborhood,omitempty" validate:"omitempty,max=120"`
	City         *string `json:"city,omitempty" validate:"omitempty,max=120"`
	State        *string `json:"state,omitempty" validate:"omitempty,len=2"`
	ZipCode      *string `json:"zipCode,omitempty" validate:"omitempty,min=8,max=9"`
	IsDefault    *bool   `json:"isDefault,omitempty"`
}

func (p Patch) apply(a *Address) {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&a.Name, p.Name)
	set(&a.Street, p.Street)
	set(&a.Number, p.Number)
	set(&a.Complement, p.Complement)
	set(&a.Neighborhood, p.Neighborhood)
	set(&a.City, p.City)
	set(&a.State, p.State)
	set(&a.ZipCode, p.ZipCode)
	if p.IsDefault != nil {
		a.IsDefault = *p.IsDefault
	}
}

// Book is the persisted address list.
// INVARIANT: at most one address has IsDefault set
type Book struct {
	Addresses []Address `json:"addresses"`
}

func (b Book) Clone() Book {
	return Book{Addresses: append([]Address{}, b.Addresses...)}
}

func (b Book) index(id string) int {
	for i, a := range b.Addresses {
		if a.ID == id {
			return i
		}
	}
	return -1
}

// Get returns the address with the given id.
func (b Book) Get(id string) (Address, bool) {
	if i := b.index(id); i >= 0 {
		return b.Addresses[i], true
	}
	return Address{}, false
}

// Add appends a under the given id. The first address of an empty book is
// always the default; an address added as default takes the flag away from
// the others.
// PRE: id is unique within the book
// POST: the book has exactly one default
func (b *Book) Add(a Address, id string) {
	a.ID = id
	if len(b.Addresses) == 0 {
		a.IsDefault = true
	}
	if a.IsDefault {
		b.clearDefault()
	}
	b.Addresses = append(b.Addresses, a)
}

// Update merges p into the address with the given id.
func (b *Book) Update(id string, p Patch) bool {
	i := b.index(id)
	if i < 0 {
		return false
	}
	if p.IsDefault != nil && *p.IsDefault {
		b.clearDefault()
	}
	p.apply(&b.Addresses[i])
	return true
}

// Delete removes the address with the given id.
func (b *Book) Delete(id string) bool {
	i := b.index(id)
	if i < 0 {
		return false
	}
	b.Addresses = append(b.Addresses[:i], b.Addresses[i+1:]...)
	return true
}

// SetDefault marks id as the only default address. Unknown ids leave the book unchanged.
func (b *Book) SetDefault(id string) bool {
	i := b.index(id)
	if i < 0 || b.Addresses[i].IsDefault {
		return false
	}
	b.clearDefault()
	b.Addresses[i].IsDefault = true
	return true
}

// Default returns the default address, if any.
func (b Book) Default() (Address, bool) {
	for _, a := range b.Addresses {
		if a.IsDefault {
			return a, true
		}
	}
	return Address{}, false
}

func (b *Book) clearDefault() {
	for i := range b.Addresses {
		b.Addresses[i].IsDefault = false
	}
}
