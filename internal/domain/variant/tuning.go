package variant

import (
	"fmt"
	"math"

	"github.com/okian/riftelo/internal/domain/offset"
	"github.com/okian/riftelo/internal/domain/rating"
)

// Tuning holds the engine parameters that shape a trajectory beyond the
// variant itself: the rating of unseen teams and the offset learner's
// bounds. Zero fields mean the engine default.
type Tuning struct {
	InitialRating  float64 `json:"initial_rating" koanf:"initial_rating"`
	MaxOffset      float64 `json:"max_offset" koanf:"max_offset"`
	PriorStd       float64 `json:"prior_std" koanf:"prior_std"`
	ConfidenceStep float64 `json:"confidence_step" koanf:"confidence_step"`
}

// DefaultTuning returns the engine defaults.
func DefaultTuning() Tuning {
	return Tuning{
		InitialRating:  rating.DefaultRating,
		MaxOffset:      offset.DefaultMaxOffset,
		PriorStd:       offset.DefaultPriorStd,
		ConfidenceStep: offset.DefaultConfidenceStep,
	}
}

// resolve validates t and fills zero fields with defaults.
func (t Tuning) resolve() (Tuning, error) {
	def := DefaultTuning()
	fields := []struct {
		name string
		v    *float64
		def  float64
	}{
		{"initial_rating", &t.InitialRating, def.InitialRating},
		{"max_offset", &t.MaxOffset, def.MaxOffset},
		{"prior_std", &t.PriorStd, def.PriorStd},
		{"confidence_step", &t.ConfidenceStep, def.ConfidenceStep},
	}
	for _, f := range fields {
		if *f.v < 0 || math.IsNaN(*f.v) || math.IsInf(*f.v, 0) {
			return Tuning{}, fmt.Errorf("%w: %s=%v", ErrInvalidTuning, f.name, *f.v)
		}
		if *f.v == 0 {
			*f.v = f.def
		}
	}
	if t.ConfidenceStep > 1 {
		return Tuning{}, fmt.Errorf("%w: confidence_step=%v", ErrInvalidTuning, t.ConfidenceStep)
	}
	return t, nil
}

// OffsetOptions returns the learner options t describes.
func (t Tuning) OffsetOptions() []offset.Option {
	return []offset.Option{
		offset.WithMaxOffset(t.MaxOffset),
		offset.WithPriorStd(t.PriorStd),
		offset.WithConfidenceStep(t.ConfidenceStep),
	}
}

// Tuning returns the resolved engine parameters.
func (c Config) Tuning() Tuning { return c.tuning }

// WithTuning returns a copy of c using t. The result has a different
// fingerprint whenever the resolved parameters differ.
func (c Config) WithTuning(t Tuning) (Config, error) {
	resolved, err := t.resolve()
	if err != nil {
		return Config{}, err
	}
	out := c
	out.scaleFactors = c.ScaleFactors()
	out.tuning = resolved
	return out, nil
}
