// Package slotopt implements the per-slot greedy optimizer: after the
// weapon-coupled choice is locked, the remaining slots are filled one at a
// time, each against the fully-settled context of every prior pick.
package slotopt

import (
	"context"

	"github.com/stitts-dev/gearopt/internal/catalog"
	"github.com/stitts-dev/gearopt/internal/evaluator"
	"github.com/stitts-dev/gearopt/internal/gear"
)

// FillOrder is the fixed slot order the greedy loop commits to: higher-
// impact slots resolve against more settled context first, ammo last since
// it depends on the final weapon.
var FillOrder = []gear.Slot{
	gear.SlotNeck, gear.SlotRing, gear.SlotCape, gear.SlotHead,
	gear.SlotBody, gear.SlotLegs, gear.SlotHands, gear.SlotFeet,
	gear.SlotAmmo,
}

// SlotResult records what the greedy loop picked (or didn't) for one slot.
type SlotResult struct {
	Slot  gear.Slot
	Score float64
	Item  *gear.EquipmentPiece
}

// CandidatePool groups every slot's already-filtered candidate list, keyed
// by slot.
type CandidatePool map[gear.Slot][]gear.EquipmentPiece

// FillRemainingSlots runs the greedy loop over order, evaluating each
// slot's candidates against the in-progress loadout, picking the top
// scorer, and committing before moving to the next slot. Candidates within
// a slot are evaluated in parallel (bounded by maxWorkers); the pick itself
// is always the same regardless of evaluation order because ties break on
// input (catalog) order.
func FillRemainingSlots(ctx context.Context, calc evaluator.DPSCalculator, player gear.Player, monster gear.Monster, pools CandidatePool, objective gear.Objective, order []gear.Slot, maxWorkers int) (gear.Player, []SlotResult, int, error) {
	results := make([]SlotResult, 0, len(order))
	evaluations := 0

	current := player
	for _, slot := range order {
		candidates := pools[slot]
		if len(candidates) == 0 {
			results = append(results, SlotResult{Slot: slot})
			continue
		}

		scored, err := evaluator.EvaluateAll(ctx, calc, current, monster, candidates, objective, maxWorkers)
		if err != nil {
			return current, results, evaluations, err
		}
		evaluations += len(scored)

		best := bestByScoreStable(scored)
		current = current.Derive(current.Loadout.WithSlot(slot, &best.Item))
		results = append(results, SlotResult{Slot: slot, Score: best.Score, Item: &best.Item})
	}

	return current, results, evaluations, nil
}

// bestByScoreStable returns the highest-scoring result, the first one in
// input order on a tie (catalog order is the tie-break the whole engine
// depends on for determinism).
func bestByScoreStable(results []evaluator.ScoreResult) evaluator.ScoreResult {
	best := results[0]
	for _, r := range results[1:] {
		if r.Score > best.Score {
			best = r
		}
	}
	return best
}

// BuildCandidatePool applies the slot/style/blacklist/skill-requirement/
// budget filter chain for every slot in slots, returning the per-slot pools
// the greedy loop and the set-bonus engine both consume. prices may be nil
// when constraints carries no MaxBudget; the budget filter is skipped in
// that case.
func BuildCandidatePool(
	full []gear.EquipmentPiece,
	class gear.CombatClass,
	constraints gear.Constraints,
	requirements catalog.RequirementLookup,
	prices catalog.PriceLookup,
	slots []gear.Slot,
) CandidatePool {
	pool := make(CandidatePool, len(slots))
	for _, slot := range slots {
		candidates, _ := catalog.FilterBySlot(slot, full)
		candidates = catalog.FilterByCombatStyle(class, candidates)
		candidates = catalog.FilterByBlacklist(constraints.BlacklistedItems, candidates)
		if constraints.EnforceSkillRequirements {
			candidates = catalog.FilterBySkillRequirements(constraints.PlayerSkills, candidates, requirements)
		}
		if constraints.MaxBudget != nil && prices != nil {
			candidates = catalog.FilterByBudget(*constraints.MaxBudget, candidates, prices, constraints.OwnedItems, false)
		}
		pool[slot] = candidates
	}
	return pool
}
