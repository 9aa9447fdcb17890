package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestRelevant(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		event fsnotify.Event
		want  bool
	}{
		{"yaml write", fsnotify.Event{Name: "s1.yaml", Op: fsnotify.Write}, true},
		{"yml create", fsnotify.Event{Name: "s2.yml", Op: fsnotify.Create}, true},
		{"yaml remove", fsnotify.Event{Name: "s1.yaml", Op: fsnotify.Remove}, true},
		{"chmod only", fsnotify.Event{Name: "s1.yaml", Op: fsnotify.Chmod}, false},
		{"other extension", fsnotify.Event{Name: "notes.txt", Op: fsnotify.Write}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := relevant(tt.event); got != tt.want {
				t.Errorf("relevant(%v) = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestWatcherDebouncesBurst(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var triggers atomic.Int32
	w, err := New(dir, 100*time.Millisecond, func() {
		triggers.Add(1)
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()

	// A burst of writes inside the debounce window.
	for i := 0; i < 3; i++ {
		path := filepath.Join(dir, "s1.yaml")
		if err := os.WriteFile(path, []byte("story:\n  id: s1\n"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}

	deadline := time.Now().Add(2 * time.Second)
	for triggers.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("trigger never fired")
		}
		time.Sleep(10 * time.Millisecond)
	}

	// Let any stray timer fire; the burst must have been coalesced.
	time.Sleep(300 * time.Millisecond)
	if got := triggers.Load(); got != 1 {
		t.Errorf("triggers = %d, want 1", got)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestWatcherIgnoresOtherFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	var triggers atomic.Int32
	w, err := New(dir, 50*time.Millisecond, func() {
		triggers.Add(1)
	})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	time.Sleep(300 * time.Millisecond)
	if got := triggers.Load(); got != 0 {
		t.Errorf("triggers = %d, want 0", got)
	}
}

func TestNewMissingDir(t *testing.T) {
	t.Parallel()

	if _, err := New(filepath.Join(t.TempDir(), "absent"), 0, func() {}); err == nil {
		t.Fatal("expected error for missing directory")
	}
}
