// Package dedupe suppresses repeated match records from a scraped feed.
package dedupe

import (
	"context"
	"sync"

	"github.com/okian/riftelo/internal/domain/model"
)

// Deduper records seen keys to ensure at-most-once processing.
type Deduper interface {
	// SeenAndRecord reports whether key was seen before and records it if not.
	SeenAndRecord(ctx context.Context, key string) bool
	Size() int64
}

// inMemoryDeduper keeps keys in a map. With a positive maxSize the oldest
// keys are evicted first.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    map[string]struct{}
	order   []string
	maxSize int
}

// NewInMemoryDeduper creates a deduper. Unbounded by default.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{seen: make(map[string]struct{})}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen[key]; ok {
		return true
	}
	if d.maxSize > 0 {
		for len(d.order) >= d.maxSize {
			oldest := d.order[0]
			d.order = d.order[1:]
			delete(d.seen, oldest)
		}
		d.order = append(d.order, key)
	}
	d.seen[key] = struct{}{}
	return false
}

func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.seen))
}

// Matches returns matches with repeated records removed, keeping the first
// occurrence and the original order, plus the number dropped.
func Matches(ctx context.Context, d Deduper, matches []model.Match) ([]model.Match, int) {
	out := make([]model.Match, 0, len(matches))
	dropped := 0
	for _, m := range matches {
		if d.SeenAndRecord(ctx, m.Key()) {
			dropped++
			continue
		}
		out = append(out, m)
	}
	return out, dropped
}
