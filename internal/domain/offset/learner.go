// Package offset learns additive per-region rating corrections from
// cross-region results.
package offset

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/okian/riftelo/internal/domain/model"
	"github.com/okian/riftelo/internal/domain/rating"
)

// Learner defaults.
const (
	DefaultMaxOffset      = 75.0
	DefaultPriorStd       = 15.0
	DefaultConfidenceStep = 0.005
)

const (
	// sampleUncertainty / sqrt(pair samples)
	sampleUncertainty = 30.0
	// min(gapUncertaintyCap, |R1-R2| / gapUncertaintyDiv)
	gapUncertaintyCap = 20.0
	gapUncertaintyDiv = 20.0
	// marginUncertainty / max(1, |margin|)
	marginUncertainty = 15.0

	// Pairs with fewer samples are shrunk toward the previous offset.
	thinEvidenceSamples = 20
	thinEvidenceShrink  = 0.5

	bisectIterations = 200
)

// evidenceScale converts a residual on the probability scale into rating
// points on the ELO logistic scale.
var evidenceScale = 400.0 / math.Ln10

type pair struct{ a, b string }

func newPair(r1, r2 string) pair {
	if r1 > r2 {
		r1, r2 = r2, r1
	}
	return pair{a: r1, b: r2}
}

// State is the learned correction of one region.
type State struct {
	Offset     float64
	Confidence float64
}

// Observation reports what a single cross-region update did.
type Observation struct {
	Expected    float64
	Evidence    float64
	Uncertainty float64
	SampleCount int
}

// Learner holds the offsets of every region seen in a cross-region match.
// It belongs to a single pipeline run.
type Learner struct {
	maxOffset      float64
	priorStd       float64
	confidenceStep float64

	states  map[string]*State
	regions []string // sorted; fixes summation order
	samples map[pair]int
}

// NewLearner creates a learner with no tracked regions.
func NewLearner(opts ...Option) *Learner {
	l := &Learner{
		maxOffset:      DefaultMaxOffset,
		priorStd:       DefaultPriorStd,
		confidenceStep: DefaultConfidenceStep,
		states:         make(map[string]*State),
		samples:        make(map[pair]int),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Applies reports whether offsets take part in a match between regions r1
// and r2: both must be known and different.
func Applies(r1, r2 string) bool {
	return r1 != "" && r2 != "" && r1 != r2
}

// Offset returns the current offset of region, zero when untracked.
func (l *Learner) Offset(region string) float64 {
	if s, ok := l.states[region]; ok {
		return s.Offset
	}
	return 0
}

// Confidence returns the current confidence of region.
func (l *Learner) Confidence(region string) float64 {
	if s, ok := l.states[region]; ok {
		return s.Confidence
	}
	return 0
}

// Samples returns how many cross-region matches the pair has produced.
func (l *Learner) Samples(r1, r2 string) int {
	return l.samples[newPair(r1, r2)]
}

// Regions returns the tracked regions in sorted order.
func (l *Learner) Regions() []string {
	out := make([]string, len(l.regions))
	copy(out, l.regions)
	return out
}

// Snapshot returns a copy of every tracked region's state.
func (l *Learner) Snapshot() map[string]model.RegionOffset {
	out := make(map[string]model.RegionOffset, len(l.states))
	for r, s := range l.states {
		out[r] = model.RegionOffset{Offset: s.Offset, Confidence: s.Confidence}
	}
	return out
}

// Sum returns the sum of all tracked offsets.
func (l *Learner) Sum() float64 {
	return floats.Sum(l.offsets())
}

// offsets returns the tracked offsets in region order.
func (l *Learner) offsets() []float64 {
	out := make([]float64, len(l.regions))
	for i, r := range l.regions {
		out[i] = l.states[r].Offset
	}
	return out
}

// Update learns from a cross-region result. winnerRating and loserRating
// are the raw pre-match ratings; margin is the series score difference.
// Matches that are not cross-region are ignored and reported with ok=false.
func (l *Learner) Update(winnerRegion, loserRegion string, winnerRating, loserRating float64, margin int) (Observation, bool) {
	if !Applies(winnerRegion, loserRegion) {
		return Observation{}, false
	}
	winner := l.track(winnerRegion)
	loser := l.track(loserRegion)

	key := newPair(winnerRegion, loserRegion)
	l.samples[key]++
	n := l.samples[key]

	expected := rating.Expected(winnerRating+winner.Offset, loserRating+loser.Offset)
	evidence := math.Abs((1.0 - expected) * evidenceScale)
	sigma := uncertainty(n, winnerRating-loserRating, margin)

	l.step(winner, evidence, sigma, n)
	l.step(loser, -evidence, sigma, n)
	l.renormalize()

	return Observation{Expected: expected, Evidence: evidence, Uncertainty: sigma, SampleCount: n}, true
}

// uncertainty combines sample-count, rating-gap and score-margin
// uncertainty by root sum of squares.
func uncertainty(samples int, gap float64, margin int) float64 {
	a := sampleUncertainty / math.Sqrt(float64(samples))
	b := math.Min(gapUncertaintyCap, math.Abs(gap)/gapUncertaintyDiv)
	m := math.Abs(float64(margin))
	c := marginUncertainty / math.Max(1, m)
	return math.Sqrt(a*a + b*b + c*c)
}

// step moves s toward s.Offset+shift by inverse-variance weighting.
func (l *Learner) step(s *State, shift, sigma float64, samples int) {
	prior := s.Offset
	priorVar := l.priorStd * l.priorStd * (1 - s.Confidence)
	obsVar := sigma * sigma

	posterior := prior
	if priorVar > 0 {
		observed := prior + shift
		posterior = (prior/priorVar + observed/obsVar) / (1/priorVar + 1/obsVar)
	}

	if samples < thinEvidenceSamples {
		shrink := (1 - float64(samples)/thinEvidenceSamples) * thinEvidenceShrink
		posterior -= shrink * (posterior - prior)
	}

	s.Offset = clip(posterior, l.maxOffset)
	s.Confidence = math.Min(1, s.Confidence+l.confidenceStep)
}

// renormalize shifts every offset so they sum to zero. When subtracting the
// mean would push a region past the bound, the common shift is found by
// bisection on the clipped sum instead.
func (l *Learner) renormalize() {
	if len(l.regions) == 0 {
		return
	}
	values := l.offsets()
	mean := stat.Mean(values, nil)
	inBounds := true
	for _, r := range l.regions {
		if math.Abs(l.states[r].Offset-mean) > l.maxOffset {
			inBounds = false
			break
		}
	}
	if inBounds {
		for _, r := range l.regions {
			l.states[r].Offset -= mean
		}
		return
	}

	lo := floats.Min(values) - l.maxOffset
	hi := floats.Max(values) + l.maxOffset
	for i := 0; i < bisectIterations; i++ {
		c := (lo + hi) / 2
		if l.clippedSum(c) > 0 {
			lo = c
		} else {
			hi = c
		}
	}
	c := (lo + hi) / 2
	for _, r := range l.regions {
		s := l.states[r]
		s.Offset = clip(s.Offset-c, l.maxOffset)
	}
}

func (l *Learner) clippedSum(c float64) float64 {
	shifted := l.offsets()
	floats.AddConst(-c, shifted)
	for i, v := range shifted {
		shifted[i] = clip(v, l.maxOffset)
	}
	return floats.Sum(shifted)
}

func (l *Learner) track(region string) *State {
	if s, ok := l.states[region]; ok {
		return s
	}
	s := &State{}
	l.states[region] = s
	i := sort.SearchStrings(l.regions, region)
	l.regions = append(l.regions, "")
	copy(l.regions[i+1:], l.regions[i:])
	l.regions[i] = region
	return s
}

func clip(v, bound float64) float64 {
	return math.Max(-bound, math.Min(bound, v))
}
