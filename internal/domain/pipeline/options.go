package pipeline

import (
	"github.com/okian/riftelo/internal/domain/stepsize"
	"github.com/okian/riftelo/pkg/logger"
)

// Option applies a configuration option to the Pipeline.
type Option func(*Pipeline)

// WithRegions sets the team to region lookup.
func WithRegions(regions RegionLookup) Option {
	return func(p *Pipeline) {
		if regions != nil {
			p.regions = regions
		}
	}
}

// WithStepRules replaces the contextual K-factor keyword table.
func WithStepRules(rules []stepsize.Rule) Option {
	return func(p *Pipeline) {
		p.stepRules = rules
	}
}

// WithRecorder replaces the telemetry sink of each run.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l logger.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}
