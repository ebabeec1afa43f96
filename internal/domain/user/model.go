package user

import "errors"

var ErrNotLoggedIn = errors.New("not logged in")

// Profile is the logged-in shopper. Identity is local state only; there is no
// authentication handshake behind it.
type Profile struct {
	ID     string `json:"id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Avatar string `json:"avatar,omitempty"`
}

// Patch carries the profile fields to merge. Nil fields are left untouched.
type Patch struct {
	Email  *string `json:"email,omitempty" validate:"omitempty,max=254"`
	Name   *string `json:"name,omitempty" validate:"omitempty,max=120"`
	Phone  *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Avatar *string `json:"avatar,omitempty" validate:"omitempty,max=2048"`
}

// Empty reports whether the patch carries no fields.
func (p Patch) Empty() bool {
	return p.Email == nil && p.Name == nil && p.Phone == nil && p.Avatar == nil
}

// State is the persisted user state.
// INVARIANT: IsLoggedIn == (User != nil)
type State struct {
	User       *Profile `json:"user"`
	IsLoggedIn bool     `json:"isLoggedIn"`
}

// Clone returns a copy that does not share the profile pointer.
func (s State) Clone() State {
	if s.User == nil {
		return State{IsLoggedIn: false}
	}
	u := *s.User
	return State{User: &u, IsLoggedIn: s.IsLoggedIn}
}

// Login replaces any current profile with a new one.
// Neither the email format nor an existing session is checked.
// PRE: id is a freshly issued identifier
// POST: User is set with an empty phone, IsLoggedIn is true
func (s *State) Login(id, email, name string) {
	s.User = &Profile{ID: id, Email: email, Name: name, Phone: ""}
	s.IsLoggedIn = true
}

// Logout clears the profile. Returns false when already logged out.
func (s *State) Logout() bool {
	if s.User == nil && !s.IsLoggedIn {
		return false
	}
	s.User = nil
	s.IsLoggedIn = false
	return true
}

// UpdateProfile merges p into the current profile.
// PRE: none
// POST: returns false without changes when logged out or p is empty
func (s *State) UpdateProfile(p Patch) bool {
	if s.User == nil || p.Empty() {
		return false
	}
	if p.Email != nil {
		s.User.Email = *p.Email
	}
	if p.Name != nil {
		s.User.Name = *p.Name
	}
	if p.Phone != nil {
		s.User.Phone = *p.Phone
	}
	if p.Avatar != nil {
		s.User.Avatar = *p.Avatar
	}
	return true
}
