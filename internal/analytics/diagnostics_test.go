package analytics

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stitts-dev/gearopt/internal/evaluator"
)

func TestSummarizeEmpty(t *testing.T) {
	dist := Summarize(nil)
	assert.Equal(t, ScoreDistribution{}, dist)
}

func TestSummarizeComputesMeanAndSpread(t *testing.T) {
	results := []evaluator.ScoreResult{
		{Score: 10},
		{Score: 20},
		{Score: 30},
	}
	dist := Summarize(results)
	assert.Equal(t, 3, dist.Count)
	assert.InDelta(t, 20, dist.Mean, 0.001)
	assert.Equal(t, float64(10), dist.Min)
	assert.Equal(t, float64(30), dist.Max)
	assert.Equal(t, float64(20), dist.Spread)
	assert.Greater(t, dist.StdDev, 0.0)
}
