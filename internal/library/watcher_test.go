package library_test

import (
	"context"
	"os"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/starford/shelf/internal/library"
	"github.com/starford/shelf/internal/testutil"
)

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func TestWatch_ReloadsForeignEdit(t *testing.T) {
	var mu sync.Mutex
	var events []string
	s, f := testutil.TestLibrary(t, library.WithEventCallback(func(kind, _ string) {
		mu.Lock()
		events = append(events, kind)
		mu.Unlock()
	}))
	testutil.MustAdd(t, s, testutil.Dune())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go library.Watch(ctx, s, f, f.Path(), testutil.Logger())
	time.Sleep(100 * time.Millisecond)

	foreign := `[{"title": "Emma", "author": "Austen", "year": 1815, "genre": "Novel", "read": true}]`
	if err := os.WriteFile(f.Path(), []byte(foreign), 0o644); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		list := s.List(ctx)
		return len(list) == 1 && list[0].Title == "Emma"
	}, "store was not reloaded after foreign edit")

	mu.Lock()
	defer mu.Unlock()
	if !slices.Contains(events, library.EventReloaded) {
		t.Errorf("events = %v, want a reload", events)
	}
}

func TestWatch_IgnoresOwnWrites(t *testing.T) {
	var mu sync.Mutex
	reloads := 0
	s, f := testutil.TestLibrary(t, library.WithEventCallback(func(kind, _ string) {
		if kind == library.EventReloaded {
			mu.Lock()
			reloads++
			mu.Unlock()
		}
	}))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go library.Watch(ctx, s, f, f.Path(), testutil.Logger())
	time.Sleep(100 * time.Millisecond)

	testutil.MustAdd(t, s, testutil.Dune())
	testutil.MustAdd(t, s, testutil.Dune2())
	time.Sleep(500 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if reloads != 0 {
		t.Errorf("reloads = %d, want 0", reloads)
	}
	if n := len(s.List(ctx)); n != 2 {
		t.Errorf("len = %d, want 2", n)
	}
}

func TestWatch_StopsOnCancel(t *testing.T) {
	s, f := testutil.TestLibrary(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- library.Watch(ctx, s, f, f.Path(), testutil.Logger()) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
