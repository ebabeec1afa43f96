package user

import "testing"

func ptr(s string) *string { return &s }

// TestState_LoginLogout covers the anonymous -> authenticated -> anonymous cycle.
func TestState_LoginLogout(t *testing.T) {
	var s State
	s.Login("user-1", "a@x.com", "Ana")

	if !s.IsLoggedIn {
		t.Fatal("expected logged in")
	}
	if s.User.Email != "a@x.com" || s.User.Name != "Ana" || s.User.Phone != "" {
		t.Errorf("unexpected profile %+v", s.User)
	}

	if !s.Logout() {
		t.Fatal("expected logout to change state")
	}
	if s.IsLoggedIn || s.User != nil {
		t.Errorf("expected anonymous state, got %+v", s)
	}
	if s.Logout() {
		t.Error("second logout should be a no-op")
	}
}

// TestState_UpdateProfile_Merges keeps name and email when only phone is supplied.
func TestState_UpdateProfile_Merges(t *testing.T) {
	var s State
	s.Login("user-1", "a@x.com", "Ana")

	if !s.UpdateProfile(Patch{Phone: ptr("123")}) {
		t.Fatal("expected update")
	}
	if s.User.Phone != "123" || s.User.Name != "Ana" || s.User.Email != "a@x.com" {
		t.Errorf("merge lost fields: %+v", s.User)
	}
}

// TestState_UpdateProfile_LoggedOutIsNoop verifies the update is ignored without a profile.
func TestState_UpdateProfile_LoggedOutIsNoop(t *testing.T) {
	var s State
	if s.UpdateProfile(Patch{Name: ptr("Bia")}) {
		t.Error("expected no-op when logged out")
	}
	if s.User != nil {
		t.Error("profile must stay nil")
	}
}

// TestState_Login_ReplacesExisting does not check for an existing session.
func TestState_Login_ReplacesExisting(t *testing.T) {
	var s State
	s.Login("user-1", "a@x.com", "Ana")
	s.UpdateProfile(Patch{Phone: ptr("123")})
	s.Login("user-2", "b@x.com", "Bia")

	if s.User.ID != "user-2" || s.User.Phone != "" {
		t.Errorf("expected fresh profile, got %+v", s.User)
	}
}

// TestState_Clone_DoesNotAlias verifies the profile pointer is copied.
func TestState_Clone_DoesNotAlias(t *testing.T) {
	var s State
	s.Login("user-1", "a@x.com", "Ana")
	c := s.Clone()
	c.User.Name = "changed"
	if s.User.Name != "Ana" {
		t.Error("clone shares the profile")
	}
}
