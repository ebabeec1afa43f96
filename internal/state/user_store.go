package state

import (
	"context"

	"github.com/google/uuid"

	"storefront/internal/domain/user"
)

// IDIssuer hands out user identifiers. Each call must return a new value.
type IDIssuer func() string

// DefaultIDIssuer issues "user-<uuid>" identifiers.
func DefaultIDIssuer() string {
	return "user-" + uuid.NewString()
}

// UserStore holds the local login state of the visitor.
type UserStore struct {
	p     *Persisted[user.State]
	issue IDIssuer
}

func emptyUser() user.State { return user.State{} }

// normalizeUser restores IsLoggedIn == (User != nil).
func normalizeUser(in user.State) user.State {
	in.IsLoggedIn = in.User != nil
	return in
}

// Login replaces any current profile with a fresh one. No credentials are checked.
func (s *UserStore) Login(ctx context.Context, email, name string) user.State {
	id := s.issue()
	out, _ := s.p.Update(ctx, func(st *user.State) (bool, error) {
		st.Login(id, email, name)
		return true, nil
	})
	return out
}

func (s *UserStore) Logout(ctx context.Context) user.State {
	out, _ := s.p.Update(ctx, func(st *user.State) (bool, error) {
		return st.Logout(), nil
	})
	return out
}

// UpdateProfile merges patch into the profile; a no-op when logged out.
func (s *UserStore) UpdateProfile(ctx context.Context, patch user.Patch) user.State {
	out, _ := s.p.Update(ctx, func(st *user.State) (bool, error) {
		return st.UpdateProfile(patch), nil
	})
	return out
}

func (s *UserStore) IsLoggedIn() bool { return s.p.Snapshot().IsLoggedIn }

// User returns the current profile, or nil when logged out.
func (s *UserStore) User() *user.Profile { return s.p.Snapshot().User }

func (s *UserStore) State() user.State { return s.p.Snapshot() }
