package artifacts

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDirStore_Get(t *testing.T) {
	dir := t.TempDir()
	want := []byte("binary bytes")
	if err := os.WriteFile(filepath.Join(dir, "codegate-x86_64-linux"), want, 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	store := NewDirStore(dir)

	got, err := store.Get(t.Context(), "codegate-x86_64-linux")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != string(want) {
		t.Errorf("Expected %q, got %q", want, got)
	}
}

func TestDirStore_Missing(t *testing.T) {
	store := NewDirStore(t.TempDir())

	_, err := store.Get(t.Context(), "codegate-aarch64-linux")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestDirStore_RejectsPathKeys(t *testing.T) {
	store := NewDirStore(t.TempDir())

	for _, key := range []string{"", "../etc/passwd", "a/b"} {
		if _, err := store.Get(t.Context(), key); err == nil || errors.Is(err, ErrNotFound) {
			t.Errorf("Expected invalid-key error for %q, got %v", key, err)
		}
	}
}
