package progress

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stitts-dev/gearopt/internal/gear"
)

func TestEmitterDropsNilCallback(t *testing.T) {
	e := NewEmitter(nil)
	assert.NotPanics(t, func() {
		e.Initializing()
		e.Stage(PhaseFiltering, 10)
		e.Complete(gear.OptimizerResult{})
	})
}

func TestEmitterSequenceIsMonotonic(t *testing.T) {
	var seen []Event
	e := NewEmitter(func(ev Event) { seen = append(seen, ev) })

	e.Initializing()
	e.Stage(PhaseFiltering, 10)
	e.Stage(PhaseWeapons, 30)
	e.Stage(PhaseSlots, 20) // regression, should be dropped
	e.Stage(PhaseSlots, 60)
	e.Complete(gear.OptimizerResult{})

	requireLen(t, seen, 5)
	assert.Equal(t, PhaseInitializing, seen[0].Phase)
	assert.Equal(t, 0, seen[0].Progress)

	last := seen[len(seen)-1]
	assert.Equal(t, PhaseComplete, last.Phase)
	assert.Equal(t, 100, last.Progress)
	assert.NotNil(t, last.Result)

	for i := 1; i < len(seen); i++ {
		assert.GreaterOrEqual(t, seen[i].Progress, seen[i-1].Progress)
	}
}

func requireLen(t *testing.T, events []Event, n int) {
	t.Helper()
	assert.Len(t, events, n)
}
