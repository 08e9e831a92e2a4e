package offset

// Option applies a configuration option to the Learner.
type Option func(*Learner)

// WithMaxOffset bounds every region's offset to [-max, max].
func WithMaxOffset(max float64) Option {
	return func(l *Learner) {
		if max > 0 {
			l.maxOffset = max
		}
	}
}

// WithPriorStd sets the prior standard deviation of a region's offset.
func WithPriorStd(std float64) Option {
	return func(l *Learner) {
		if std > 0 {
			l.priorStd = std
		}
	}
}

// WithConfidenceStep sets the confidence gained per observation.
func WithConfidenceStep(step float64) Option {
	return func(l *Learner) {
		if step >= 0 && step <= 1 {
			l.confidenceStep = step
		}
	}
}
