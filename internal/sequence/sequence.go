// Package sequence provides generators for the integral values backing
// framework-assigned identifiers. Sequences are keyed by the RowKey of the
// table they serve.
package sequence

import (
	"context"
	"sync"

	"github.com/gridstore/gridstore-go/internal/grid"
)

// Source delivers the next value of a sequence: seeded at initialValue on
// first use, advanced by increment on every call. The ambient transaction
// handle is passed through for sources that allocate inside the caller's
// transaction; embedded sources ignore it.
type Source interface {
	NextValue(ctx context.Context, tx grid.Tx, key grid.RowKey, increment, initialValue int64) (int64, error)
}

// MemorySource keeps sequences in process memory. Values do not survive a
// restart; intended for tests.
type MemorySource struct {
	mu     sync.Mutex
	values map[string]int64
}

// NewMemorySource returns an empty in-memory source.
func NewMemorySource() *MemorySource {
	return &MemorySource{values: make(map[string]int64)}
}

func (s *MemorySource) NextValue(_ context.Context, _ grid.Tx, key grid.RowKey, increment, initialValue int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	name := key.CanonicalString()
	current, ok := s.values[name]
	if !ok {
		current = initialValue
	}
	s.values[name] = current + increment
	return current, nil
}
