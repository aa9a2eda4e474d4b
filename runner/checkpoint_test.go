package runner

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCheckpointMissingLoadsZero(t *testing.T) {
	c := NewCheckpoint(filepath.Join(t.TempDir(), "progress"))

	got, err := c.Load()
	if err != nil || got != 0 {
		t.Fatalf("Load = %d, %v", got, err)
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	c := NewCheckpoint(filepath.Join(t.TempDir(), "progress"))

	if err := c.Save(42); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := c.Load()
	if err != nil || got != 42 {
		t.Fatalf("Load = %d, %v", got, err)
	}

	data, err := os.ReadFile(c.Path())
	if err != nil {
		t.Fatalf("read file: %v", err)
	}
	if string(data) != "42" {
		t.Fatalf("file contents = %q, want plain integer", data)
	}
}

func TestCheckpointCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress")
	if err := os.WriteFile(path, []byte("not a number"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewCheckpoint(path).Load(); err == nil {
		t.Fatalf("corrupt checkpoint should not load")
	}
}

func TestCheckpointNegative(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress")
	if err := os.WriteFile(path, []byte("-3"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewCheckpoint(path).Load(); err == nil {
		t.Fatalf("negative checkpoint should not load")
	}
}

func TestCheckpointClearIdempotent(t *testing.T) {
	c := NewCheckpoint(filepath.Join(t.TempDir(), "progress"))

	if err := c.Save(1); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := c.Clear(); err != nil {
		t.Fatalf("second Clear: %v", err)
	}
	if got, err := c.Load(); err != nil || got != 0 {
		t.Fatalf("Load after Clear = %d, %v", got, err)
	}
}
