// Package credstore persists the driver's bearer token across restarts.
// It holds exactly one value and has a single writer, the session manager.
package credstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNoToken signals that no bearer token is stored.
var ErrNoToken = errors.New("credstore: no stored token")

// Store is a file-backed holder for the current bearer token.
type Store struct {
	path string
}

// New creates a Store persisting at path. The file and its parent
// directory are created lazily on the first Save.
func New(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("credstore: path is required")
	}
	return &Store{path: path}, nil
}

// Token returns the stored bearer token, or ErrNoToken when nothing is
// persisted.
func (s *Store) Token() (string, error) {
	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoToken
		}
		return "", fmt.Errorf("credstore: read token: %w", err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", ErrNoToken
	}
	return token, nil
}

// Save replaces the stored token. The write goes through a temp file and
// rename so a crash mid-write never leaves a truncated token behind.
func (s *Store) Save(token string) error {
	if token == "" {
		return fmt.Errorf("credstore: refusing to save empty token")
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("credstore: create token dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("credstore: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(token); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("credstore: write token: %w", err)
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("credstore: chmod token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("credstore: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("credstore: replace token file: %w", err)
	}
	return nil
}

// Clear removes the stored token. Clearing an already-empty store is not
// an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("credstore: clear token: %w", err)
	}
	return nil
}
