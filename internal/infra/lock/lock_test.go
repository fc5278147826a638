package lock

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestAcquire_CreatesParentDirectories(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "forwarderd.lock")

	g, ok := Acquire(path)
	if !ok {
		t.Fatal("Expected lock to be acquired")
	}
	defer g.Release()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read lock file: %v", err)
	}
	if strings.TrimSpace(string(data)) != strconv.Itoa(os.Getpid()) {
		t.Errorf("Expected pid in lock file, got %q", data)
	}
}

func TestAcquire_SecondAcquireFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forwarderd.lock")

	g, ok := Acquire(path)
	if !ok {
		t.Fatal("Expected first acquire to succeed")
	}
	defer g.Release()

	// flock locks belong to the open file description, so a second open in
	// the same process contends like another process would
	if _, ok := Acquire(path); ok {
		t.Error("Expected second acquire to fail while the lock is held")
	}

	_, err := TryAcquire(path)
	if err != ErrHeld {
		t.Errorf("Expected ErrHeld, got %v", err)
	}
}

func TestAcquire_AfterRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forwarderd.lock")

	g, ok := Acquire(path)
	if !ok {
		t.Fatal("Expected acquire to succeed")
	}
	if err := g.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}

	g2, ok := Acquire(path)
	if !ok {
		t.Fatal("Expected acquire after release to succeed")
	}
	g2.Release()
}

func TestAcquire_UncreatableDirectoryFails(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	if _, ok := Acquire(filepath.Join(blocker, "sub", "x.lock")); ok {
		t.Error("Expected failure when parent path is a file")
	}
}

func TestIsHeld(t *testing.T) {
	path := filepath.Join(t.TempDir(), "forwarderd.lock")

	if IsHeld(path) {
		t.Error("Expected missing lock file to report not held")
	}

	g, ok := Acquire(path)
	if !ok {
		t.Fatal("Expected acquire to succeed")
	}
	if !IsHeld(path) {
		t.Error("Expected held lock to be reported")
	}

	g.Release()
	if IsHeld(path) {
		t.Error("Expected released lock to report not held")
	}
}

func TestRelease_NilSafe(t *testing.T) {
	var g *Guard
	if err := g.Release(); err != nil {
		t.Errorf("Expected nil guard release to be a no-op, got %v", err)
	}
}
