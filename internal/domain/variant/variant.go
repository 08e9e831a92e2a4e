// Package variant defines the rating configurations the pipeline can run
// and their content fingerprint.
package variant

import (
	"fmt"
	"strings"
)

// Variant names one layer of the rating engine. Each variant includes the
// behaviour of the ones before it.
type Variant int

const (
	Base Variant = iota
	ScaleFactor
	DynamicOffset
	TournamentContext
)

var names = [...]string{
	Base:              "base",
	ScaleFactor:       "scale_factor",
	DynamicOffset:     "dynamic_offset",
	TournamentContext: "tournament_context",
}

// All returns every variant in layering order.
func All() []Variant {
	return []Variant{Base, ScaleFactor, DynamicOffset, TournamentContext}
}

// String returns the wire name of v.
func (v Variant) String() string {
	if v < Base || v > TournamentContext {
		return fmt.Sprintf("variant(%d)", int(v))
	}
	return names[v]
}

// Parse resolves a wire name. Unknown names are an error, never a default.
func Parse(s string) (Variant, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	for i, n := range names {
		if n == key {
			return Variant(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownVariant, s)
}

// MarshalText implements encoding.TextMarshaler.
func (v Variant) MarshalText() ([]byte, error) {
	if v < Base || v > TournamentContext {
		return nil, fmt.Errorf("%w: %d", ErrUnknownVariant, int(v))
	}
	return []byte(v.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (v *Variant) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// Capabilities lists the strategies a configuration enables.
type Capabilities struct {
	ScaleFactors    bool
	RegionalOffsets bool
	ContextualK     bool
}

// capabilities is the variant factory table. Flags set here are forced on;
// the configuration may enable the rest.
var capabilities = map[Variant]Capabilities{
	Base:              {},
	ScaleFactor:       {ScaleFactors: true},
	DynamicOffset:     {ScaleFactors: true, RegionalOffsets: true},
	TournamentContext: {ScaleFactors: true, RegionalOffsets: true, ContextualK: true},
}
