package rowstore

import (
	"context"
	"time"
)

// LoadObserver receives the collection name and wall time of each
// full-collection read.
type LoadObserver func(collection string, duration time.Duration)

type instrumentedStore struct {
	Store
	observe LoadObserver
}

// Instrument wraps a store so every ListRows call is reported to the
// observer. Writes pass through untouched.
func Instrument(store Store, observe LoadObserver) Store {
	if observe == nil {
		return store
	}
	return &instrumentedStore{Store: store, observe: observe}
}

func (s *instrumentedStore) ListRows(ctx context.Context, collection string) ([][]string, error) {
	start := time.Now()
	rows, err := s.Store.ListRows(ctx, collection)
	s.observe(collection, time.Since(start))
	return rows, err
}
