package catalogfile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// TestSource_ReloadsOnChange swaps valid edits in and ignores invalid ones.
func TestSource_ReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	writeFile(t, path, minimalCatalog)

	s, err := NewSource(path)
	if err != nil {
		t.Fatalf("NewSource: %v", err)
	}
	s.debounce = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	defer func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("Run: %v", err)
		}
	}()

	// Give the watcher time to register before editing.
	time.Sleep(50 * time.Millisecond)
	writeFile(t, path, strings.Replace(minimalCatalog, "name: TV 32", "name: TV 32 Nova", 1))
	waitFor(t, func() bool { return s.Reloads() >= 1 })
	if got := s.Current().Products[0].Name; got != "TV 32 Nova" {
		t.Errorf("name = %q after reload", got)
	}

	before := s.Current()
	writeFile(t, path, strings.Replace(minimalCatalog, "slug: tv-32", "slug: admin", 1))
	time.Sleep(200 * time.Millisecond)
	if s.Current() != before {
		t.Error("invalid catalog replaced the previous one")
	}
}

func TestSource_StaticDoesNotWatch(t *testing.T) {
	s := Static(Default())
	if err := s.Run(context.Background()); err != nil {
		t.Errorf("Run = %v", err)
	}
	if err := s.Reload(); err != nil {
		t.Errorf("Reload = %v", err)
	}
	if s.Current() == nil {
		t.Error("nil catalog")
	}
}
