package service

import (
	"github.com/okian/riftelo/internal/adapters/repository"
	"github.com/okian/riftelo/internal/domain/pipeline"
	"github.com/okian/riftelo/internal/domain/variant"
	"github.com/okian/riftelo/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the result store and the backend name reported in stats.
func WithStore(store repository.Store, backend string) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
			if backend != "" {
				s.backend = backend
			}
		}
	}
}

// WithRegions sets the team to region lookup.
func WithRegions(regions pipeline.RegionLookup) Option {
	return func(s *Service) {
		if regions != nil {
			s.regions = regions
		}
	}
}

// WithRunner replaces the pipeline runner.
func WithRunner(r Runner) Option {
	return func(s *Service) {
		if r != nil {
			s.runner = r
		}
	}
}

// WithDefaultSpec sets the configuration used when callers do not name one.
func WithDefaultSpec(spec variant.Spec) Option {
	return func(s *Service) { s.defaultSpec = spec }
}

// WithTuning sets the engine parameters applied to every configuration the
// service computes. They are part of each configuration's fingerprint.
func WithTuning(t variant.Tuning) Option {
	return func(s *Service) { s.tuning = t }
}

// WithInitialRating sets the rating of unseen teams.
func WithInitialRating(r float64) Option {
	return func(s *Service) {
		if r > 0 {
			s.tuning.InitialRating = r
		}
	}
}

// WithWorkerCount sets the number of cross-validation workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithMaxLeaderboardLimit caps leaderboard sizes.
func WithMaxLeaderboardLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxLimit = limit
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
