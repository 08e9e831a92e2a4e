package source

import (
	"github.com/okian/riftelo/internal/domain/dedupe"
	"github.com/okian/riftelo/pkg/logger"
)

// Option applies a configuration option to FileMatches.
type Option func(*FileMatches)

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(f *FileMatches) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithDedupeSize bounds the duplicate-suppression window of each read.
func WithDedupeSize(size int) Option {
	return func(f *FileMatches) {
		f.deduper = func() dedupe.Deduper { return dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(size)) }
	}
}
