// Package orchestrator drives the eight-phase optimization pipeline end to
// end: filter the catalog, couple a weapon (and its ammunition), greedily
// fill the remaining slots, consider whole-set alternatives, and bring the
// result back under budget if one was given. Every other package in this
// module is a building block this one assembles in a fixed order.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/gearopt/internal/analytics"
	"github.com/stitts-dev/gearopt/internal/budget"
	"github.com/stitts-dev/gearopt/internal/catalog"
	"github.com/stitts-dev/gearopt/internal/evaluator"
	"github.com/stitts-dev/gearopt/internal/gear"
	"github.com/stitts-dev/gearopt/internal/gearerr"
	"github.com/stitts-dev/gearopt/internal/gearlog"
	"github.com/stitts-dev/gearopt/internal/progress"
	"github.com/stitts-dev/gearopt/internal/resultcache"
	"github.com/stitts-dev/gearopt/internal/setbonus"
	"github.com/stitts-dev/gearopt/internal/slotopt"
	"github.com/stitts-dev/gearopt/internal/weapon"
)

// defaultMaxWorkers mirrors config's SLOT_EVALUATION_WORKERS default: used
// whenever a caller leaves Options.MaxWorkers unset.
const defaultMaxWorkers = 4

// PriceLookup is the read-only subset of the price store the budget phase
// needs.
type PriceLookup interface {
	EffectivePrice(id int64, owned bool) (int64, bool)
}

// NewRunID returns a fresh run identifier. Callers that need to hand a run
// id to a client before optimization starts (to subscribe to its progress
// stream) call this up front and pass it back in Options.RunID.
func NewRunID() string {
	return uuid.NewString()
}

// Options narrows and configures a single Optimize call.
type Options struct {
	Constraints gear.Constraints
	Objective   gear.Objective
	MaxWorkers  int
	Progress    progress.Callback
	RunID       string
	CacheTTL    time.Duration
}

// Deps wires the orchestrator to its collaborators. Catalog, Prices and
// Requirements are read concurrently by many callers and are never mutated
// here.
type Deps struct {
	Catalog      []gear.EquipmentPiece
	Prices       PriceLookup
	Requirements catalog.RequirementLookup
	Calculator   evaluator.DPSCalculator
	Cache        *resultcache.Cache
}

// Orchestrator runs the full optimization pipeline against a fixed set of
// collaborators.
type Orchestrator struct {
	deps Deps
}

// New returns an Orchestrator backed by deps.
func New(deps Deps) *Orchestrator {
	return &Orchestrator{deps: deps}
}

// Optimize runs every phase of the pipeline for player against monster and
// returns the best assembly found under opts.Constraints.
func (o *Orchestrator) Optimize(ctx context.Context, player gear.Player, monster gear.Monster, opts Options) (gear.OptimizerResult, error) {
	start := time.Now()

	if opts.Constraints.EnforceSkillRequirements && opts.Constraints.PlayerSkills == nil {
		return gear.OptimizerResult{}, fmt.Errorf("%w: enforce_skill_requirements set without player_skills", gearerr.ErrInvalidInput)
	}

	maxWorkers := opts.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = defaultMaxWorkers
	}
	objective := opts.Objective
	if objective == "" {
		objective = gear.ObjectiveDPS
	}

	runID := opts.RunID
	if runID == "" {
		runID = NewRunID()
	}
	log := gearlog.WithOptimizationContext(runID, string(objective), string(player.Style))
	emitter := progress.NewEmitter(opts.Progress)
	emitter.Initializing()

	if cacheHit, ok := o.lookupCache(ctx, player, monster, opts.Constraints, objective, log); ok {
		emitter.Complete(cacheHit)
		return cacheHit, nil
	}

	log.Debug("optimization started")

	// filtering: blacklist and (if enforced) skill requirements apply across
	// every slot; the style filter narrows only the weapon/slot pools, since
	// set-bonus detection needs to see the full blacklist-and-requirement
	// filtered catalog regardless of style relevance.
	filtered := catalog.FilterByBlacklist(opts.Constraints.BlacklistedItems, o.deps.Catalog)
	if opts.Constraints.EnforceSkillRequirements {
		filtered = catalog.FilterBySkillRequirements(opts.Constraints.PlayerSkills, filtered, o.deps.Requirements)
	}
	class := gear.ClassOf(player.Style)
	styleFiltered := catalog.FilterByCombatStyle(class, filtered)
	emitter.Stage(progress.PhaseFiltering, 10)

	weapons, _ := catalog.FilterBySlot(gear.SlotWeapon, styleFiltered)
	shields, _ := catalog.FilterBySlot(gear.SlotShield, styleFiltered)
	ammoPool, _ := catalog.FilterBySlot(gear.SlotAmmo, filtered)

	evaluations := 0

	// weapons: the 2H-vs-1H+shield branch.
	current, n, err := o.resolveWeapon(ctx, player, monster, weapons, shields, objective, maxWorkers)
	if err != nil {
		return gear.OptimizerResult{}, wrapCalculatorErr(err)
	}
	evaluations += n
	emitter.StageWithBest(progress.PhaseWeapons, 25, currentBest(current, monster, o.deps.Calculator))

	// ammunition: only if the chosen weapon needs it.
	current, n, err = o.resolveAmmo(ctx, current, monster, ammoPool, opts.Constraints.BlacklistedItems, objective, maxWorkers)
	if err != nil {
		return gear.OptimizerResult{}, wrapCalculatorErr(err)
	}
	evaluations += n
	emitter.StageWithBest(progress.PhaseAmmunition, 35, currentBest(current, monster, o.deps.Calculator))

	// slots: greedy fill of every remaining non-weapon, non-shield slot.
	remainingOrder := remainingFillOrder(current)
	candidatePool := slotopt.BuildCandidatePool(filtered, class, opts.Constraints, o.deps.Requirements, o.deps.Prices, remainingOrder)
	current, _, n, err = slotopt.FillRemainingSlots(ctx, o.deps.Calculator, current, monster, candidatePool, objective, remainingOrder, maxWorkers)
	if err != nil {
		return gear.OptimizerResult{}, wrapCalculatorErr(err)
	}
	evaluations += n
	emitter.StageWithBest(progress.PhaseSlots, 55, currentBest(current, monster, o.deps.Calculator))

	greedyMetrics, err := o.deps.Calculator.EvaluateDPS(ctx, current, monster)
	if err != nil {
		return gear.OptimizerResult{}, wrapCalculatorErr(err)
	}
	greedyScore := scoreFor(objective, greedyMetrics)

	// set_bonuses: adopt a whole-set assembly only if it strictly beats the
	// greedy result.
	resolve := o.weaponAmmoResolver(monster, weapons, shields, ammoPool, opts.Constraints.BlacklistedItems, objective, maxWorkers)
	if best, ok := setbonus.FindBestSetLoadout(ctx, o.deps.Calculator, current, monster, filtered, opts.Constraints, o.deps.Requirements, objective, greedyScore, resolve, maxWorkers); ok {
		current = current.Derive(best.Loadout)
		evaluations += best.Evaluations
		log.WithField("set_bonus", best.Type).Debug("adopted set loadout")
	}
	emitter.StageWithBest(progress.PhaseSetBonuses, 70, currentBest(current, monster, o.deps.Calculator))

	// budget: bring the assembly back under the cap, if one was given.
	cost := budget.CalculateLoadoutCost(current.Loadout, o.deps.Prices, opts.Constraints.OwnedItems)
	if cap := opts.Constraints.MaxBudget; cap != nil && cost.NetTotal > *cap {
		candidatesBySlot := slotopt.BuildCandidatePool(filtered, class, opts.Constraints, o.deps.Requirements, o.deps.Prices, gear.AllSlots)
		current, cost, err = budget.DowngradeLoop(ctx, o.deps.Calculator, current, monster, objective, o.deps.Prices, opts.Constraints.OwnedItems, *cap, candidatesBySlot)
		if err != nil {
			return gear.OptimizerResult{}, wrapCalculatorErr(err)
		}
	}
	emitter.StageWithBest(progress.PhaseBudget, 90, currentBest(current, monster, o.deps.Calculator))

	// complete
	finalMetrics, err := o.deps.Calculator.EvaluateDPS(ctx, current, monster)
	if err != nil {
		return gear.OptimizerResult{}, wrapCalculatorErr(err)
	}

	distribution := o.scoreDistribution(ctx, current, monster, objective, candidatePool, maxWorkers)

	result := gear.OptimizerResult{
		Equipment: current.Loadout,
		Metrics:   finalMetrics,
		Cost:      cost,
		Meta: gear.Meta{
			Evaluations:       evaluations,
			ElapsedMS:         float64(time.Since(start).Microseconds()) / 1000,
			ScoreDistribution: distribution,
		},
	}
	emitter.Complete(result)

	o.storeCache(ctx, player, monster, opts, objective, result, log)

	log.WithFields(logrus.Fields{"evaluations": evaluations, "dps": finalMetrics.DPS}).Info("optimization complete")
	return result, nil
}

// resolveWeapon runs the 2H-vs-1H+shield branch and equips the winner (and,
// for a two-handed weapon, clears the shield slot).
func (o *Orchestrator) resolveWeapon(ctx context.Context, player gear.Player, monster gear.Monster, weapons, shields []gear.EquipmentPiece, objective gear.Objective, maxWorkers int) (gear.Player, int, error) {
	choice, err := weapon.ChooseWeapon(ctx, o.deps.Calculator, player, monster, weapons, shields, objective, maxWorkers)
	if err != nil {
		return player, 0, err
	}
	if choice.Weapon.Item.Slot != gear.SlotWeapon {
		return player, 0, nil
	}

	evaluations := len(weapons)
	w := choice.Weapon.Item
	current := evaluator.DerivePlayerForCandidate(player, w)

	switch {
	case w.IsTwoHanded:
		current = current.Derive(current.Loadout.WithSlot(gear.SlotShield, nil))
	case choice.Shield != nil:
		s := choice.Shield.Item
		current = current.Derive(current.Loadout.WithSlot(gear.SlotShield, &s))
	}
	return current, evaluations, nil
}

// resolveAmmo equips ammunition (or, for a blowpipe, a dart inlined via
// item_vars) if the equipped weapon needs it.
func (o *Orchestrator) resolveAmmo(ctx context.Context, player gear.Player, monster gear.Monster, ammoPool []gear.EquipmentPiece, blacklist map[int64]bool, objective gear.Objective, maxWorkers int) (gear.Player, int, error) {
	w := player.Loadout.Weapon()
	if w == nil {
		return player, 0, nil
	}

	if evaluator.IsBlowpipe(*w) {
		best, ok, err := weapon.FindBestDart(ctx, o.deps.Calculator, player, monster, *w, ammoPool, blacklist, objective, maxWorkers)
		if err != nil {
			return player, 0, err
		}
		if !ok {
			return player, 0, nil
		}
		return player.Derive(player.Loadout.WithSlot(gear.SlotWeapon, &best.Item)), 1, nil
	}

	if !weapon.WeaponRequiresAmmo(*w) {
		return player, 0, nil
	}

	best, ok, err := weapon.FindBestAmmo(ctx, o.deps.Calculator, player, monster, *w, ammoPool, blacklist, objective, maxWorkers)
	if err != nil {
		return player, 0, err
	}
	if !ok {
		return player, 0, nil
	}
	return player.Derive(player.Loadout.WithSlot(gear.SlotAmmo, &best.Item)), 1, nil
}

// weaponAmmoResolver closes over the filtered pools so set-bonus evaluation
// can re-run the weapon/ammo branch scoped to a set's locked slots without
// the orchestrator exposing its pools to the setbonus package directly.
func (o *Orchestrator) weaponAmmoResolver(monster gear.Monster, weapons, shields, ammoPool []gear.EquipmentPiece, blacklist map[int64]bool, objective gear.Objective, maxWorkers int) func(ctx context.Context, locked gear.Player) (gear.Player, int, error) {
	return func(ctx context.Context, locked gear.Player) (gear.Player, int, error) {
		withWeapon, n, err := o.resolveWeapon(ctx, locked, monster, weapons, shields, objective, maxWorkers)
		if err != nil {
			return locked, n, err
		}
		withAmmo, n2, err := o.resolveAmmo(ctx, withWeapon, monster, ammoPool, blacklist, objective, maxWorkers)
		if err != nil {
			return withWeapon, n + n2, err
		}
		return withAmmo, n + n2, nil
	}
}

// scoreDistribution re-evaluates each slot's greedy candidate pool against
// the final assembly, purely to summarize how separated the winning picks
// were from their alternatives. This is diagnostic only: it never feeds
// back into the assembly itself, so a calculator failure here is swallowed
// the same way currentBest's is, rather than aborting an otherwise-complete
// result.
func (o *Orchestrator) scoreDistribution(ctx context.Context, player gear.Player, monster gear.Monster, objective gear.Objective, pools slotopt.CandidatePool, maxWorkers int) gear.ScoreDistribution {
	var all []evaluator.ScoreResult
	for slot, candidates := range pools {
		if len(candidates) == 0 {
			continue
		}
		scored, err := evaluator.EvaluateAll(ctx, o.deps.Calculator, withoutSlot(player, slot), monster, candidates, objective, maxWorkers)
		if err != nil {
			continue
		}
		all = append(all, scored...)
	}

	dist := analytics.Summarize(all)
	return gear.ScoreDistribution{
		Count:  dist.Count,
		Mean:   dist.Mean,
		StdDev: dist.StdDev,
		Min:    dist.Min,
		Max:    dist.Max,
		Spread: dist.Spread,
	}
}

func withoutSlot(player gear.Player, slot gear.Slot) gear.Player {
	return player.Derive(player.Loadout.WithSlot(slot, nil))
}

// remainingFillOrder is slotopt.FillOrder with the ammo slot dropped if
// ammunition resolution already filled it.
func remainingFillOrder(player gear.Player) []gear.Slot {
	if player.Loadout.Slots[gear.SlotAmmo] != nil {
		out := make([]gear.Slot, 0, len(slotopt.FillOrder)-1)
		for _, s := range slotopt.FillOrder {
			if s != gear.SlotAmmo {
				out = append(out, s)
			}
		}
		return out
	}
	return slotopt.FillOrder
}

func scoreFor(objective gear.Objective, m gear.Metrics) float64 {
	switch objective {
	case gear.ObjectiveAccuracy:
		return m.HitChance
	case gear.ObjectiveMaxHit:
		return float64(m.MaxHit)
	default:
		return m.DPS
	}
}

// currentBest evaluates player's current assembly for a progress snapshot.
// A calculator error here is swallowed: a missing in-progress preview never
// aborts the run, the next stage's hard evaluation will surface any real
// failure.
func currentBest(player gear.Player, monster gear.Monster, calc evaluator.DPSCalculator) progress.CurrentBest {
	metrics, err := calc.EvaluateDPS(context.Background(), player, monster)
	if err != nil {
		return progress.CurrentBest{Equipment: player.Loadout}
	}
	return progress.CurrentBest{Equipment: player.Loadout, Metrics: metrics}
}

func wrapCalculatorErr(err error) error {
	return fmt.Errorf("%w: %v", gearerr.ErrCalculatorFailure, err)
}

func (o *Orchestrator) lookupCache(ctx context.Context, player gear.Player, monster gear.Monster, constraints gear.Constraints, objective gear.Objective, log *logrus.Entry) (gear.OptimizerResult, bool) {
	if o.deps.Cache == nil {
		return gear.OptimizerResult{}, false
	}
	hash, err := resultcache.HashKey(resultcache.Key{Player: player, Monster: monster, Constraints: constraints, Objective: objective})
	if err != nil {
		log.WithError(err).Warn("resultcache key hash failed")
		return gear.OptimizerResult{}, false
	}
	result, ok, err := o.deps.Cache.Get(ctx, hash)
	if err != nil {
		log.WithError(err).Warn("resultcache lookup failed")
		return gear.OptimizerResult{}, false
	}
	return result, ok
}

func (o *Orchestrator) storeCache(ctx context.Context, player gear.Player, monster gear.Monster, opts Options, objective gear.Objective, result gear.OptimizerResult, log *logrus.Entry) {
	if o.deps.Cache == nil {
		return
	}
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	hash, err := resultcache.HashKey(resultcache.Key{Player: player, Monster: monster, Constraints: opts.Constraints, Objective: objective})
	if err != nil {
		log.WithError(err).Warn("resultcache key hash failed")
		return
	}
	if err := o.deps.Cache.Set(ctx, hash, result, ttl); err != nil {
		log.WithError(err).Warn("resultcache store failed")
	}
}
