// Package repository persists computed rating results keyed by the
// fingerprint of the configuration that produced them.
package repository

import (
	"context"
	"time"

	"github.com/okian/riftelo/internal/domain/model"
	"github.com/okian/riftelo/internal/domain/variant"
)

// Entry is one stored computation.
type Entry struct {
	ConfigHash string                        `json:"config_hash"`
	RunID      string                        `json:"run_id"`
	Config     variant.Spec                  `json:"config"`
	ComputedAt time.Time                     `json:"computed_at"`
	Processed  int                           `json:"processed"`
	Skipped    int                           `json:"skipped"`
	Ratings    map[string]model.TeamStanding `json:"ratings"`
	Offsets    map[string]model.RegionOffset `json:"offsets,omitempty"`
	History    []model.Snapshot              `json:"history"`
}

// Store provides read/write access to stored computations.
type Store interface {
	// Lookup returns the entry for hash or ErrNotFound.
	Lookup(ctx context.Context, hash string) (Entry, error)

	// Save replaces any entry with the same hash. Readers never observe a
	// partially written entry.
	Save(ctx context.Context, e Entry) error

	// Delete removes the entry for hash. Deleting an unknown hash is not an error.
	Delete(ctx context.Context, hash string) error

	// Hashes lists the stored fingerprints in ascending order.
	Hashes(ctx context.Context) ([]string, error)

	// Close releases backend resources.
	Close() error
}

// clone deep-copies e so callers cannot mutate stored state.
func clone(e Entry) Entry {
	out := e
	if e.Ratings != nil {
		out.Ratings = make(map[string]model.TeamStanding, len(e.Ratings))
		for k, v := range e.Ratings {
			out.Ratings[k] = v
		}
	}
	if e.Offsets != nil {
		out.Offsets = make(map[string]model.RegionOffset, len(e.Offsets))
		for k, v := range e.Offsets {
			out.Offsets[k] = v
		}
	}
	if e.History != nil {
		out.History = append([]model.Snapshot(nil), e.History...)
	}
	if e.Config.ScaleFactors != nil {
		sf := make(map[string]float64, len(e.Config.ScaleFactors))
		for k, v := range e.Config.ScaleFactors {
			sf[k] = v
		}
		out.Config.ScaleFactors = sf
	}
	return out
}
