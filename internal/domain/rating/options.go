package rating

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithScaleFactors enables closeness scaling with the given score-line table.
// The table is copied; a nil table uses DefaultScaleFactors.
func WithScaleFactors(table map[string]float64) Option {
	return func(e *Engine) {
		if table == nil {
			table = DefaultScaleFactors()
		}
		e.useScaleFactors = true
		e.scaleFactors = make(map[string]float64, len(table))
		for line, f := range table {
			e.scaleFactors[line] = f
		}
	}
}
