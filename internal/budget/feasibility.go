// Package budget implements the post-assembly cost breakdown and the
// iterative downgrade loop that brings an over-budget loadout back under a
// GP cap by repeatedly swapping out the slot with the smallest score loss
// per GP saved.
package budget

import (
	"context"

	"github.com/stitts-dev/gearopt/internal/evaluator"
	"github.com/stitts-dev/gearopt/internal/gear"
)

// PriceLookup is the read-only subset of the price store this package
// needs.
type PriceLookup interface {
	EffectivePrice(id int64, owned bool) (int64, bool)
}

// downgradeOrder is the tie-break slot order: non-weapon, non-body slots
// first, then shield, body, weapon last.
var downgradeOrder = []gear.Slot{
	gear.SlotRing, gear.SlotNeck, gear.SlotCape, gear.SlotAmmo,
	gear.SlotHands, gear.SlotFeet, gear.SlotHead, gear.SlotLegs,
	gear.SlotShield, gear.SlotBody, gear.SlotWeapon,
}

func orderIndex(slot gear.Slot) int {
	for i, s := range downgradeOrder {
		if s == slot {
			return i
		}
	}
	return len(downgradeOrder)
}

// CalculateLoadoutCost computes the net/full cost breakdown for loadout.
// Per-slot net cost is 0 for owned or untradeable items.
func CalculateLoadoutCost(loadout gear.Loadout, prices PriceLookup, owned map[int64]bool) gear.Cost {
	cost := gear.Cost{
		PerSlotNet:  make(map[gear.Slot]int64, len(gear.AllSlots)),
		PerSlotFull: make(map[gear.Slot]int64, len(gear.AllSlots)),
	}

	for _, slot := range gear.AllSlots {
		piece := loadout.Slots[slot]
		if piece == nil {
			cost.PerSlotNet[slot] = 0
			cost.PerSlotFull[slot] = 0
			continue
		}
		isOwned := owned != nil && owned[piece.ID]
		net, _ := prices.EffectivePrice(piece.ID, isOwned)
		full, _ := prices.EffectivePrice(piece.ID, false)

		cost.PerSlotNet[slot] = net
		cost.PerSlotFull[slot] = full
		cost.NetTotal += net
		cost.FullTotal += full
	}

	cost.OwnedSavings = cost.FullTotal - cost.NetTotal
	return cost
}

// alternative is one candidate's comparison data for a single slot during
// the downgrade loop.
type alternative struct {
	item  *gear.EquipmentPiece
	score float64
	cost  int64
}

// DowngradeLoop repeatedly replaces the occupied slot with the smallest
// score-loss-per-GP-saved ratio until the loadout fits maxBudget or no
// further progress can be made, in which case it returns the best feasible
// assembly (which may have empty slots).
func DowngradeLoop(
	ctx context.Context,
	calc evaluator.DPSCalculator,
	player gear.Player,
	monster gear.Monster,
	objective gear.Objective,
	prices PriceLookup,
	owned map[int64]bool,
	maxBudget int64,
	candidatesBySlot map[gear.Slot][]gear.EquipmentPiece,
) (gear.Player, gear.Cost, error) {
	current := player
	cost := CalculateLoadoutCost(current.Loadout, prices, owned)

	for cost.NetTotal > maxBudget {
		bestSlot := gear.Slot("")
		var bestAlt alternative
		bestRatio := -1.0
		foundAny := false

		for _, slot := range gear.AllSlots {
			piece := current.Loadout.Slots[slot]
			if piece == nil {
				continue
			}
			currentCost := cost.PerSlotNet[slot]
			if currentCost <= 0 {
				continue
			}

			// A substitute is affordable only if it fits what maxBudget
			// leaves after every other slot's current cost. Since the
			// total is over maxBudget, that figure is below currentCost,
			// so an accepted swap moves the total toward maxBudget. While
			// other slots are still over budget the figure is negative
			// and the slot is emptied instead; backfillEmptySlots
			// revisits it once the rest of the loadout has settled.
			budgetForSlot := maxBudget - (cost.NetTotal - currentCost)
			alt, ok, err := bestAffordableAlternative(ctx, calc, current, monster, objective, slot, piece, prices, owned, budgetForSlot, candidatesBySlot[slot])
			if err != nil {
				return current, cost, err
			}
			if !ok {
				// Emptying the slot is always a valid, free fallback.
				alt = alternative{item: nil, score: scoreOfEmptying(ctx, calc, current, monster, objective, slot), cost: 0}
			}

			currentScoreResult, err := evaluator.EvaluateItem(ctx, calc, withoutSlot(current, slot), monster, *piece, objective)
			if err != nil {
				return current, cost, err
			}

			if alt.cost >= currentCost {
				continue
			}
			scoreLoss := currentScoreResult.Score - alt.score
			ratio := scoreLoss / float64(currentCost-alt.cost)

			if !foundAny || ratio < bestRatio || (ratio == bestRatio && orderIndex(slot) < orderIndex(bestSlot)) {
				foundAny = true
				bestRatio = ratio
				bestSlot = slot
				bestAlt = alt
			}
		}

		if !foundAny {
			break
		}

		current = current.Derive(current.Loadout.WithSlot(bestSlot, bestAlt.item))
		newCost := CalculateLoadoutCost(current.Loadout, prices, owned)
		if newCost.NetTotal >= cost.NetTotal {
			cost = newCost
			break
		}
		cost = newCost
	}

	return backfillEmptySlots(ctx, calc, current, monster, objective, prices, owned, maxBudget, cost, candidatesBySlot)
}

// backfillEmptySlots revisits every slot the downgrade loop left empty and
// fills it with the best-scoring candidate that still fits the remaining
// headroom under maxBudget. The loop above only ever downgrades a slot once
// per round and never reconsiders one it emptied, so a slot emptied early
// (because nothing fit the budget distribution at the time) can be stranded
// even after later rounds free up enough headroom for one of its free or
// cheap alternatives.
func backfillEmptySlots(
	ctx context.Context,
	calc evaluator.DPSCalculator,
	player gear.Player,
	monster gear.Monster,
	objective gear.Objective,
	prices PriceLookup,
	owned map[int64]bool,
	maxBudget int64,
	cost gear.Cost,
	candidatesBySlot map[gear.Slot][]gear.EquipmentPiece,
) (gear.Player, gear.Cost, error) {
	current := player

	for _, slot := range downgradeOrder {
		if current.Loadout.Slots[slot] != nil {
			continue
		}
		headroom := maxBudget - cost.NetTotal
		if headroom < 0 {
			continue
		}

		alt, ok, err := bestAffordableAlternative(ctx, calc, current, monster, objective, slot, nil, prices, owned, headroom, candidatesBySlot[slot])
		if err != nil {
			return current, cost, err
		}
		if !ok {
			continue
		}

		current = current.Derive(current.Loadout.WithSlot(slot, alt.item))
		cost = CalculateLoadoutCost(current.Loadout, prices, owned)
	}

	return current, cost, nil
}

func withoutSlot(player gear.Player, slot gear.Slot) gear.Player {
	return player.Derive(player.Loadout.WithSlot(slot, nil))
}

func scoreOf(ctx context.Context, calc evaluator.DPSCalculator, player gear.Player, monster gear.Monster, objective gear.Objective) (float64, error) {
	metrics, err := calc.EvaluateDPS(ctx, player, monster)
	if err != nil {
		return 0, err
	}
	switch objective {
	case gear.ObjectiveAccuracy:
		return metrics.HitChance, nil
	case gear.ObjectiveMaxHit:
		return float64(metrics.MaxHit), nil
	default:
		return metrics.DPS, nil
	}
}

func scoreOfEmptying(ctx context.Context, calc evaluator.DPSCalculator, player gear.Player, monster gear.Monster, objective gear.Objective, slot gear.Slot) float64 {
	emptied := withoutSlot(player, slot)
	s, err := scoreOf(ctx, calc, emptied, monster, objective)
	if err != nil {
		return 0
	}
	return s
}

// bestAffordableAlternative finds, among candidatesBySlot's pool for slot
// (excluding the currently equipped piece), the highest-scoring item whose
// effective price fits budgetForSlot.
func bestAffordableAlternative(
	ctx context.Context,
	calc evaluator.DPSCalculator,
	player gear.Player,
	monster gear.Monster,
	objective gear.Objective,
	slot gear.Slot,
	current *gear.EquipmentPiece,
	prices PriceLookup,
	owned map[int64]bool,
	budgetForSlot int64,
	pool []gear.EquipmentPiece,
) (alternative, bool, error) {
	base := withoutSlot(player, slot)

	var best *alternative
	for _, candidate := range pool {
		if current != nil && candidate.ID == current.ID {
			continue
		}
		isOwned := owned != nil && owned[candidate.ID]
		price, known := prices.EffectivePrice(candidate.ID, isOwned)
		if !known || price > budgetForSlot {
			continue
		}

		result, err := evaluator.EvaluateItem(ctx, calc, base, monster, candidate, objective)
		if err != nil {
			return alternative{}, false, err
		}

		candidate := candidate
		if best == nil || result.Score > best.score {
			best = &alternative{item: &candidate, score: result.Score, cost: price}
		}
	}

	if best == nil {
		return alternative{}, false, nil
	}
	return *best, true, nil
}
