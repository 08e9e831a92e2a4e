package variant

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/okian/riftelo/internal/domain/rating"
)

// Config is an immutable rating configuration. Build it with New; the zero
// value is not valid.
type Config struct {
	variant            Variant
	kFactor            float64
	useScaleFactors    bool
	scaleFactors       map[string]float64
	useRegionalOffsets bool
	tuning             Tuning
}

// Spec is the plain, serializable form of a Config.
type Spec struct {
	Variant            string             `json:"variant" koanf:"variant"`
	KFactor            float64            `json:"k_factor" koanf:"k_factor"`
	UseScaleFactors    bool               `json:"use_scale_factors" koanf:"use_scale_factors"`
	ScaleFactors       map[string]float64 `json:"scale_factors,omitempty" koanf:"scale_factors"`
	UseRegionalOffsets bool               `json:"use_regional_offsets" koanf:"use_regional_offsets"`
	Tuning             Tuning             `json:"tuning" koanf:"tuning"`
}

// New validates spec and returns the configuration it describes. An empty
// scale table means the default table.
func New(spec Spec) (Config, error) {
	v, err := Parse(spec.Variant)
	if err != nil {
		return Config{}, err
	}
	if spec.KFactor <= 0 || math.IsNaN(spec.KFactor) || math.IsInf(spec.KFactor, 0) {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidKFactor, spec.KFactor)
	}
	table := spec.ScaleFactors
	if len(table) == 0 {
		table = rating.DefaultScaleFactors()
	}
	factors := make(map[string]float64, len(table))
	for line, f := range table {
		if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return Config{}, fmt.Errorf("%w: %s=%v", ErrInvalidScaleFactor, line, f)
		}
		factors[line] = f
	}
	tuning, err := spec.Tuning.resolve()
	if err != nil {
		return Config{}, err
	}
	return Config{
		variant:            v,
		kFactor:            spec.KFactor,
		useScaleFactors:    spec.UseScaleFactors,
		scaleFactors:       factors,
		useRegionalOffsets: spec.UseRegionalOffsets,
		tuning:             tuning,
	}, nil
}

// MustNew is New that panics on error. Intended for tests and constants.
func MustNew(spec Spec) Config {
	c, err := New(spec)
	if err != nil {
		panic(err)
	}
	return c
}

// Variant returns the configured variant.
func (c Config) Variant() Variant { return c.variant }

// KFactor returns the baseline step size.
func (c Config) KFactor() float64 { return c.kFactor }

// ScaleFactors returns a copy of the score-line table.
func (c Config) ScaleFactors() map[string]float64 {
	out := make(map[string]float64, len(c.scaleFactors))
	for k, v := range c.scaleFactors {
		out[k] = v
	}
	return out
}

// Capabilities resolves which strategies run for this configuration.
func (c Config) Capabilities() Capabilities {
	caps := capabilities[c.variant]
	caps.ScaleFactors = caps.ScaleFactors || c.useScaleFactors
	caps.RegionalOffsets = caps.RegionalOffsets || c.useRegionalOffsets
	return caps
}

// Spec returns the serializable form with the effective flags.
func (c Config) Spec() Spec {
	caps := c.Capabilities()
	return Spec{
		Variant:            c.variant.String(),
		KFactor:            c.kFactor,
		UseScaleFactors:    caps.ScaleFactors,
		ScaleFactors:       c.ScaleFactors(),
		UseRegionalOffsets: caps.RegionalOffsets,
		Tuning:             c.tuning,
	}
}

type scaleEntry struct {
	Line   string  `json:"line"`
	Factor float64 `json:"factor"`
}

// canonical is the stable serialization hashed into the fingerprint. Field
// order is fixed by the struct and the table is sorted by score line.
type canonical struct {
	Variant            string       `json:"variant"`
	KFactor            float64      `json:"k_factor"`
	UseScaleFactors    bool         `json:"use_scale_factors"`
	ScaleFactors       []scaleEntry `json:"scale_factors"`
	UseRegionalOffsets bool         `json:"use_regional_offsets"`
	Tuning             Tuning       `json:"tuning"`
}

// Fingerprint returns the hex SHA-256 of the configuration's canonical
// serialization. Equal configurations always share a fingerprint.
func (c Config) Fingerprint() string {
	spec := c.Spec()
	entries := make([]scaleEntry, 0, len(spec.ScaleFactors))
	for line, f := range spec.ScaleFactors {
		entries = append(entries, scaleEntry{Line: line, Factor: f})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Line < entries[j].Line })

	b, err := json.Marshal(canonical{
		Variant:            spec.Variant,
		KFactor:            spec.KFactor,
		UseScaleFactors:    spec.UseScaleFactors,
		ScaleFactors:       entries,
		UseRegionalOffsets: spec.UseRegionalOffsets,
		Tuning:             spec.Tuning,
	})
	if err != nil {
		// only finite floats reach here
		panic(err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
