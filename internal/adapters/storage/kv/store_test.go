package kv

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func listStrings(t *testing.T, s Store, scope string) map[string]string {
	t.Helper()
	all, err := s.List(context.Background(), scope)
	if err != nil {
		t.Fatalf("List %s: %v", scope, err)
	}
	out := make(map[string]string, len(all))
	for k, v := range all {
		out[k] = string(v)
	}
	return out
}

// runStoreContract exercises the Store behaviour shared by every backend.
func runStoreContract(t *testing.T, s Store, scope string) {
	t.Helper()
	ctx := context.Background()

	if got := listStrings(t, s, scope); len(got) != 0 {
		t.Fatalf("List on empty store = %v, want empty", got)
	}

	cart := `{"state":{"items":[]},"version":0}`
	user := `{"state":{"user":null,"isLoggedIn":false},"version":0}`
	if err := s.Put(ctx, scope, "cart-storage", []byte(cart)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, scope, "user-storage", []byte(user)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Put(ctx, "other-scope", "cart-storage", []byte(`{}`)); err != nil {
		t.Fatalf("Put other scope: %v", err)
	}

	replaced := `{"state":{"items":[{"id":"x"}]},"version":0}`
	if err := s.Put(ctx, scope, "cart-storage", []byte(replaced)); err != nil {
		t.Fatalf("Put replace: %v", err)
	}

	want := map[string]string{"cart-storage": replaced, "user-storage": user}
	if diff := cmp.Diff(want, listStrings(t, s, scope)); diff != "" {
		t.Errorf("List mismatch (-want +got):\n%s", diff)
	}

	if err := s.DeleteScope(ctx, scope); err != nil {
		t.Fatalf("DeleteScope: %v", err)
	}
	if err := s.DeleteScope(ctx, scope); err != nil {
		t.Fatalf("DeleteScope on empty scope: %v", err)
	}
	if got := listStrings(t, s, scope); len(got) != 0 {
		t.Errorf("List after DeleteScope = %v", got)
	}
	if got := listStrings(t, s, "other-scope"); got["cart-storage"] != `{}` {
		t.Errorf("other scope must survive DeleteScope, got %v", got)
	}
}
