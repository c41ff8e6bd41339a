// Package secretstore holds the assistant provider API key in a store that is
// deliberately separate from the row store, so the secret never leaks into
// row-oriented exports or backups.
package secretstore

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// EnvAPIKey is the well-known property name for the assistant API key.
const EnvAPIKey = "OPENAI_API_KEY"

// Store exposes the single assistant credential.
type Store interface {
	Get() (string, error)
	Set(value string) error
	Delete() error
	Exists() bool
}

// FileStore reads the key from the environment, falling back to a secret
// file; writes go to the file when one is configured.
type FileStore struct {
	mu   sync.RWMutex
	path string
}

// NewFileStore constructs the store. path may be empty, in which case the
// store is read-only over the environment variable.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (s *FileStore) Get() (string, error) {
	if key := os.Getenv(EnvAPIKey); key != "" {
		return key, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.path == "" {
		return "", fmt.Errorf("%s not set and no secret file configured", EnvAPIKey)
	}
	raw, err := os.ReadFile(s.path)
	if err != nil {
		return "", fmt.Errorf("read secret file: %w", err)
	}
	key := strings.TrimSpace(string(raw))
	if key == "" {
		return "", fmt.Errorf("secret file %s is empty", s.path)
	}
	return key, nil
}

func (s *FileStore) Set(value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return fmt.Errorf("no secret file configured")
	}
	if err := os.WriteFile(s.path, []byte(value), 0o600); err != nil {
		return fmt.Errorf("write secret file: %w", err)
	}
	return nil
}

func (s *FileStore) Delete() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove secret file: %w", err)
	}
	return nil
}

func (s *FileStore) Exists() bool {
	if os.Getenv(EnvAPIKey) != "" {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.path == "" {
		return false
	}
	_, err := os.Stat(s.path)
	return err == nil
}
