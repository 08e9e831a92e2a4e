package repository

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/riftelo/pkg/metrics"
)

// MemoryStore keeps entries in process. Writers build a new map and publish
// it atomically so readers never take a lock.
type MemoryStore struct {
	mu      sync.Mutex
	entries atomic.Pointer[map[string]Entry]
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	empty := map[string]Entry{}
	s.entries.Store(&empty)
	return s
}

// Lookup implements Store.
func (s *MemoryStore) Lookup(_ context.Context, hash string) (Entry, error) {
	start := time.Now()
	defer observe("lookup", start)

	e, ok := (*s.entries.Load())[hash]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return clone(e), nil
}

// Save implements Store.
func (s *MemoryStore) Save(_ context.Context, e Entry) error {
	if e.ConfigHash == "" {
		return ErrEmptyHash
	}
	start := time.Now()
	defer observe("save", start)

	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.copyCurrent()
	next[e.ConfigHash] = clone(e)
	s.entries.Store(&next)
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(_ context.Context, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := (*s.entries.Load())[hash]; !ok {
		return nil
	}
	next := s.copyCurrent()
	delete(next, hash)
	s.entries.Store(&next)
	return nil
}

// Hashes implements Store.
func (s *MemoryStore) Hashes(_ context.Context) ([]string, error) {
	cur := *s.entries.Load()
	out := make([]string, 0, len(cur))
	for h := range cur {
		out = append(out, h)
	}
	sort.Strings(out)
	return out, nil
}

// Close implements Store.
func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) copyCurrent() map[string]Entry {
	cur := *s.entries.Load()
	next := make(map[string]Entry, len(cur)+1)
	for k, v := range cur {
		next[k] = v
	}
	return next
}

func observe(op string, start time.Time) {
	metrics.RecordStoreLatency(op, float64(time.Since(start).Microseconds())/1000.0)
}
