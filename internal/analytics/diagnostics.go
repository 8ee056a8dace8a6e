// Package analytics computes lightweight post-hoc statistics over a batch
// of evaluator scores, surfaced as diagnostic metadata. None of this sits
// on the optimization hot path; it runs once per completed optimization
// run, over every greedy slot's candidate pool re-scored against the final
// loadout, purely for observability.
package analytics

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/stitts-dev/gearopt/internal/evaluator"
)

// ScoreDistribution summarizes a batch of evaluated scores.
type ScoreDistribution struct {
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std_dev"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Spread float64 `json:"spread"`
}

// Summarize reduces results to a ScoreDistribution. An empty slice returns
// the zero value rather than an error, since "nothing was evaluated" is a
// valid diagnostic state, not a failure.
func Summarize(results []evaluator.ScoreResult) ScoreDistribution {
	if len(results) == 0 {
		return ScoreDistribution{}
	}

	scores := make([]float64, len(results))
	min, max := math.Inf(1), math.Inf(-1)
	for i, r := range results {
		scores[i] = r.Score
		if r.Score < min {
			min = r.Score
		}
		if r.Score > max {
			max = r.Score
		}
	}

	mean := stat.Mean(scores, nil)
	stdDev := stat.StdDev(scores, nil)

	return ScoreDistribution{
		Count:  len(results),
		Mean:   mean,
		StdDev: stdDev,
		Min:    min,
		Max:    max,
		Spread: max - min,
	}
}
