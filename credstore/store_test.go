package credstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "auth", "token"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func TestStore_RoundTrip(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.Token(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken from empty store, got %v", err)
	}

	if err := store.Save("bearer-one"); err != nil {
		t.Fatalf("save: %v", err)
	}
	token, err := store.Token()
	if err != nil {
		t.Fatalf("token: %v", err)
	}
	if token != "bearer-one" {
		t.Fatalf("expected %q got %q", "bearer-one", token)
	}

	// Saving again replaces wholesale.
	if err := store.Save("bearer-two"); err != nil {
		t.Fatalf("second save: %v", err)
	}
	token, err = store.Token()
	if err != nil {
		t.Fatalf("token after replace: %v", err)
	}
	if token != "bearer-two" {
		t.Fatalf("expected replaced token, got %q", token)
	}
}

func TestStore_Clear(t *testing.T) {
	store := newTestStore(t)

	if err := store.Clear(); err != nil {
		t.Fatalf("clear on empty store: %v", err)
	}

	if err := store.Save("bearer"); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, err := store.Token(); !errors.Is(err, ErrNoToken) {
		t.Fatalf("expected ErrNoToken after clear, got %v", err)
	}
}

func TestStore_RejectsEmptyToken(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save(""); err == nil {
		t.Fatal("expected error saving empty token")
	}
}

func TestStore_FilePermissions(t *testing.T) {
	store := newTestStore(t)
	if err := store.Save("bearer"); err != nil {
		t.Fatalf("save: %v", err)
	}
	info, err := os.Stat(store.path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 token file, got %o", perm)
	}
}
