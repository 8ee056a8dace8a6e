// Package progress defines the optimization run's progress event stream:
// a monotonic sequence of phase/percent markers terminating in exactly one
// complete event that carries the final result.
package progress

import "github.com/stitts-dev/gearopt/internal/gear"

// Phase names one stage of the optimization pipeline.
type Phase string

const (
	PhaseInitializing Phase = "initializing"
	PhaseFiltering    Phase = "filtering"
	PhaseWeapons      Phase = "weapons"
	PhaseAmmunition   Phase = "ammunition"
	PhaseSlots        Phase = "slots"
	PhaseSetBonuses   Phase = "set_bonuses"
	PhaseBudget       Phase = "budget"
	PhaseComplete     Phase = "complete"
)

// CurrentBest is the optional in-progress snapshot an event may carry.
type CurrentBest struct {
	Equipment gear.Loadout `json:"equipment"`
	Metrics   gear.Metrics `json:"metrics"`
}

// Event is one point in the progress stream.
type Event struct {
	Phase       Phase                 `json:"phase"`
	Progress    int                   `json:"progress"`
	CurrentBest *CurrentBest          `json:"current_best,omitempty"`
	Result      *gear.OptimizerResult `json:"result,omitempty"`
}

// Callback receives Events as the orchestrator advances. It is optional;
// the engine must behave identically whether or not one is supplied.
type Callback func(Event)

// Emitter tracks the last progress value emitted so callers can't
// accidentally violate the non-decreasing contract.
type Emitter struct {
	cb      Callback
	lastPct int
}

// NewEmitter wraps cb (which may be nil) in an Emitter that enforces
// monotonic progress.
func NewEmitter(cb Callback) *Emitter {
	return &Emitter{cb: cb}
}

// Emit fires ev if progress is non-decreasing relative to the last emitted
// event and a callback is registered. Events with lower progress than the
// last one are silently dropped rather than erroring, since emission is
// always best-effort diagnostic signal.
func (e *Emitter) Emit(ev Event) {
	if e == nil || e.cb == nil {
		return
	}
	if ev.Progress < e.lastPct {
		return
	}
	e.lastPct = ev.Progress
	e.cb(ev)
}

// Initializing emits the fixed starting event.
func (e *Emitter) Initializing() {
	e.Emit(Event{Phase: PhaseInitializing, Progress: 0})
}

// Stage emits an intermediate event for phase at progress.
func (e *Emitter) Stage(phase Phase, pct int) {
	e.Emit(Event{Phase: phase, Progress: pct})
}

// StageWithBest emits an intermediate event carrying the current best
// partial assembly.
func (e *Emitter) StageWithBest(phase Phase, pct int, best CurrentBest) {
	e.Emit(Event{Phase: phase, Progress: pct, CurrentBest: &best})
}

// Complete emits the terminal event at 100% carrying the final result.
func (e *Emitter) Complete(result gear.OptimizerResult) {
	e.Emit(Event{Phase: PhaseComplete, Progress: 100, Result: &result})
}
