package rating

import (
	"fmt"
	"math"

	"github.com/okian/riftelo/internal/domain/model"
)

// eloScale is the logistic scale of the ELO curve.
const eloScale = 400.0

// DefaultScaleFactors weights a series result by how decisive it was.
func DefaultScaleFactors() map[string]float64 {
	return map[string]float64{
		"1-0": 1.00,
		"2-0": 1.00,
		"2-1": 0.50,
		"3-0": 1.00,
		"3-1": 0.90,
		"3-2": 0.80,
	}
}

// Expected returns the probability that a team rated r1 beats a team rated r2.
// Expected(r1, r2) + Expected(r2, r1) == 1.
func Expected(r1, r2 float64) float64 {
	return 1.0 / (1.0 + math.Pow(10, (r2-r1)/eloScale))
}

// Update describes the rating change applied for one match.
type Update struct {
	Expected1   float64
	ScaleFactor float64
	DeltaWinner float64
	DeltaLoser  float64
}

// Engine computes ELO deltas, optionally scaled by series closeness.
type Engine struct {
	useScaleFactors bool
	scaleFactors    map[string]float64
}

// NewEngine builds an engine. Without WithScaleFactors every delta is
// unscaled.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ScaleFactor returns the multiplier for m's "winner-loser" score line, or 1
// when closeness scaling is off or the line is not in the table.
func (e *Engine) ScaleFactor(m model.Match) float64 {
	if !e.useScaleFactors {
		return 1.0
	}
	if f, ok := e.scaleFactors[m.ScoreLine()]; ok {
		return f
	}
	return 1.0
}

// Delta computes the update for m given team1's expected score and the step
// size k. Tied series are a caller bug and return ErrTiedScore.
func (e *Engine) Delta(m model.Match, expected1, k float64) (Update, error) {
	if m.Score1 == m.Score2 {
		return Update{}, fmt.Errorf("%w: %d-%d", model.ErrTiedScore, m.Score1, m.Score2)
	}
	if k <= 0 || math.IsNaN(k) || math.IsInf(k, 0) {
		return Update{}, fmt.Errorf("%w: %v", ErrInvalidKFactor, k)
	}

	expectedWinner := expected1
	if !m.Team1Won() {
		expectedWinner = 1 - expected1
	}
	scale := e.ScaleFactor(m)
	delta := k * scale * (1.0 - expectedWinner)
	if math.IsNaN(delta) || math.IsInf(delta, 0) {
		return Update{}, fmt.Errorf("%w: expected=%v", ErrNonFinite, expected1)
	}

	return Update{
		Expected1:   expected1,
		ScaleFactor: scale,
		DeltaWinner: delta,
		DeltaLoser:  -delta,
	}, nil
}

// Apply computes the update for m and writes the new ratings into store.
// Nothing is written when an error is returned.
func (e *Engine) Apply(store *Store, m model.Match, expected1, k float64) (Update, error) {
	u, err := e.Delta(m, expected1, k)
	if err != nil {
		return Update{}, err
	}
	winner, loser := m.Winner()
	store.Set(winner, store.Get(winner)+u.DeltaWinner)
	store.Set(loser, store.Get(loser)+u.DeltaLoser)
	return u, nil
}
