package state

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// TestRegistry_ConcurrentOpenLoadsOnce shares one load between first accesses.
func TestRegistry_ConcurrentOpenLoadsOnce(t *testing.T) {
	store := newMemStore()
	store.listDelay = 20 * time.Millisecond
	r := newTestRegistry(store)

	var wg sync.WaitGroup
	sessions := make([]*Session, 8)
	for i := range sessions {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := r.Session(context.Background(), "tok")
			if err != nil {
				t.Errorf("Session: %v", err)
				return
			}
			sessions[i] = s
		}(i)
	}
	wg.Wait()

	if n := store.listCalls.Load(); n != 1 {
		t.Errorf("list calls = %d, want 1", n)
	}
	for _, s := range sessions[1:] {
		if s != sessions[0] {
			t.Fatal("concurrent opens returned different bundles")
		}
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

// TestRegistry_TokensAreIsolated keeps scopes apart.
func TestRegistry_TokensAreIsolated(t *testing.T) {
	r := newTestRegistry(newMemStore())
	a := openSession(t, r, "alice")
	b := openSession(t, r, "bob")
	a.Favorites.AddFavorite(context.Background(), product("p001", 1))
	if b.Favorites.Count() != 0 {
		t.Error("state leaked between tokens")
	}
	if a.Scope == b.Scope {
		t.Error("distinct tokens share a scope")
	}
}

// TestRegistry_CancelledOpen reports the context error.
func TestRegistry_CancelledOpen(t *testing.T) {
	store := newMemStore()
	store.failList = context.Canceled
	r := newTestRegistry(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Session(ctx, "tok"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if r.Len() != 0 {
		t.Error("failed open must not be cached")
	}
}

// TestRegistry_SweepDropsIdleBundles rehydrates from storage on next access.
func TestRegistry_SweepDropsIdleBundles(t *testing.T) {
	store := newMemStore()
	r := newTestRegistry(store)
	s := openSession(t, r, "tok")
	s.Cart.AddItem(context.Background(), cartItem("p001"))

	if n := r.Sweep(fixedNow.Add(time.Minute)); n != 0 {
		t.Errorf("fresh bundle swept: %d", n)
	}
	if n := r.Sweep(fixedNow.Add(31 * time.Minute)); n != 1 {
		t.Fatalf("dropped = %d, want 1", n)
	}
	if r.Len() != 0 {
		t.Fatal("bundle still held")
	}

	again := openSession(t, r, "tok")
	if again == s {
		t.Error("expected a freshly loaded bundle")
	}
	if again.Cart.TotalItems() != 1 {
		t.Error("state lost across sweep")
	}
}

// TestRegistry_SweepKeepsSubscribedBundles never drops a bundle with listeners.
func TestRegistry_SweepKeepsSubscribedBundles(t *testing.T) {
	r := newTestRegistry(newMemStore())
	s := openSession(t, r, "tok")
	unsub := s.Hub.Subscribe(func(Change) {})

	if n := r.Sweep(fixedNow.Add(time.Hour)); n != 0 {
		t.Errorf("dropped = %d, want 0", n)
	}
	unsub()
	if n := r.Sweep(fixedNow.Add(time.Hour)); n != 1 {
		t.Errorf("dropped = %d, want 1", n)
	}
}

// TestRegistry_Forget erases durable state.
func TestRegistry_Forget(t *testing.T) {
	store := newMemStore()
	r := newTestRegistry(store)
	s := openSession(t, r, "tok")
	s.User.Login(context.Background(), "a@x.com", "Ana")

	if err := r.Forget(context.Background(), "tok"); err != nil {
		t.Fatalf("Forget: %v", err)
	}
	if store.raw("tok", NamespaceUser) != "" {
		t.Error("durable state survived Forget")
	}
	if openSession(t, r, "tok").User.IsLoggedIn() {
		t.Error("reopened session kept the user")
	}
}

// TestRegistry_RunStopsOnCancel exits promptly without leaking the ticker goroutine.
func TestRegistry_RunStopsOnCancel(t *testing.T) {
	r := NewRegistry(newMemStore(), Options{SweepInterval: time.Millisecond, Now: fixedClock})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	time.Sleep(5 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop")
	}
}
