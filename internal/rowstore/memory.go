package rowstore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is an in-process Store used by tests and single-node setups.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][][]string
}

// NewMemoryStore constructs an empty in-memory row store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string][][]string)}
}

func (s *MemoryStore) EnsureCollection(_ context.Context, collection string) error {
	if _, ok := Headers[collection]; !ok {
		return fmt.Errorf("unknown collection %q", collection)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[collection]; !ok {
		s.collections[collection] = nil
	}
	return nil
}

func (s *MemoryStore) ListRows(_ context.Context, collection string) ([][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.collections[collection]
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = append([]string(nil), row...)
	}
	return out, nil
}

func (s *MemoryStore) AppendRow(_ context.Context, collection string, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collections[collection] = append(s.collections[collection], append([]string(nil), row...))
	return nil
}

func (s *MemoryStore) WriteCell(_ context.Context, collection string, rowIndex, columnIndex int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, err := s.row(collection, rowIndex)
	if err != nil {
		return err
	}
	if columnIndex < 1 || columnIndex > len(row) {
		return fmt.Errorf("column %d out of range in %s", columnIndex, collection)
	}
	row[columnIndex-1] = value
	return nil
}

func (s *MemoryStore) WriteRange(_ context.Context, collection string, rowIndex, columnStart int, values []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, err := s.row(collection, rowIndex)
	if err != nil {
		return err
	}
	if columnStart < 1 || columnStart+len(values)-1 > len(row) {
		return fmt.Errorf("range [%d..%d] out of range in %s", columnStart, columnStart+len(values)-1, collection)
	}
	copy(row[columnStart-1:], values)
	return nil
}

func (s *MemoryStore) DeleteRow(_ context.Context, collection string, rowIndex int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := s.collections[collection]
	if rowIndex < 1 || rowIndex > len(rows) {
		return fmt.Errorf("row %d not found in %s", rowIndex, collection)
	}
	s.collections[collection] = append(rows[:rowIndex-1], rows[rowIndex:]...)
	return nil
}

func (s *MemoryStore) row(collection string, rowIndex int) ([]string, error) {
	rows := s.collections[collection]
	if rowIndex < 1 || rowIndex > len(rows) {
		return nil, fmt.Errorf("row %d not found in %s", rowIndex, collection)
	}
	return rows[rowIndex-1], nil
}
