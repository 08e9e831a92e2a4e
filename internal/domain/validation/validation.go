// Package validation scores a rating configuration with expanding-window
// temporal cross-validation.
package validation

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/okian/riftelo/internal/domain/model"
)

// probabilities are clipped away from 0 and 1 before taking logs.
const epsilon = 1e-15

// Fold is one train/test split. Matches holds blocks 0..Index and only
// matches at input position TestFrom or later are scored.
type Fold struct {
	Index    int           `json:"fold"`
	Matches  []model.Match `json:"-"`
	TestFrom int           `json:"test_from"`
}

// TrainSize is the number of matches before the scored block.
func (f Fold) TrainSize() int { return f.TestFrom }

// TestSize is the number of matches in the scored block.
func (f Fold) TestSize() int { return len(f.Matches) - f.TestFrom }

// Result is the score of one fold.
type Result struct {
	Fold      int     `json:"fold"`
	TrainSize int     `json:"train_size"`
	TestSize  int     `json:"test_size"`
	Evaluated int     `json:"evaluated"`
	Accuracy  float64 `json:"accuracy"`
	Brier     float64 `json:"brier"`
	LogLoss   float64 `json:"log_loss"`
}

// Split cuts chronologically ordered matches into k contiguous blocks and
// returns the k-1 folds that have at least one training block. Block sizes
// differ by at most one.
func Split(matches []model.Match, k int) ([]Fold, error) {
	if k < 2 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFolds, k)
	}
	if len(matches) < k {
		return nil, fmt.Errorf("%w: %d matches for %d folds", ErrNotEnoughMatches, len(matches), k)
	}

	bounds := make([]int, k+1)
	base, extra := len(matches)/k, len(matches)%k
	for i := 1; i <= k; i++ {
		size := base
		if i <= extra {
			size++
		}
		bounds[i] = bounds[i-1] + size
	}

	folds := make([]Fold, 0, k-1)
	for i := 1; i < k; i++ {
		folds = append(folds, Fold{
			Index:    i,
			Matches:  matches[:bounds[i+1]],
			TestFrom: bounds[i],
		})
	}
	return folds, nil
}

// Score evaluates the snapshots of a run over f.Matches. Only snapshots
// whose input position falls in the test block count.
func Score(f Fold, history []model.Snapshot) Result {
	res := Result{Fold: f.Index, TrainSize: f.TrainSize(), TestSize: f.TestSize()}

	var probs, outcomes, hits, losses []float64
	for _, s := range history {
		if s.Input < f.TestFrom {
			continue
		}
		y := 0.0
		if s.ActualWinner == s.Team1.Team {
			y = 1
		}
		hit := 0.0
		if s.Correct {
			hit = 1
		}
		p := math.Min(math.Max(s.Expected1, epsilon), 1-epsilon)
		probs = append(probs, s.Expected1)
		outcomes = append(outcomes, y)
		hits = append(hits, hit)
		losses = append(losses, -(y*math.Log(p) + (1-y)*math.Log(1-p)))
	}

	res.Evaluated = len(probs)
	if res.Evaluated == 0 {
		return res
	}
	residuals := floats.SubTo(make([]float64, len(probs)), probs, outcomes)
	res.Accuracy = stat.Mean(hits, nil)
	res.Brier = floats.Dot(residuals, residuals) / float64(res.Evaluated)
	res.LogLoss = stat.Mean(losses, nil)
	return res
}

// Summary averages fold results weighted by evaluated matches.
type Summary struct {
	Folds     []Result `json:"folds"`
	Evaluated int      `json:"evaluated"`
	Accuracy  float64  `json:"accuracy"`
	Brier     float64  `json:"brier"`
	LogLoss   float64  `json:"log_loss"`
}

// Summarize builds a Summary. results must already be ordered by fold.
func Summarize(results []Result) Summary {
	s := Summary{Folds: results}
	weights := make([]float64, len(results))
	acc := make([]float64, len(results))
	brier := make([]float64, len(results))
	logLoss := make([]float64, len(results))
	for i, r := range results {
		s.Evaluated += r.Evaluated
		weights[i] = float64(r.Evaluated)
		acc[i], brier[i], logLoss[i] = r.Accuracy, r.Brier, r.LogLoss
	}
	if s.Evaluated > 0 {
		s.Accuracy = stat.Mean(acc, weights)
		s.Brier = stat.Mean(brier, weights)
		s.LogLoss = stat.Mean(logLoss, weights)
	}
	return s
}
