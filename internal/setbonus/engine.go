package setbonus

import (
	"context"

	"github.com/stitts-dev/gearopt/internal/catalog"
	"github.com/stitts-dev/gearopt/internal/evaluator"
	"github.com/stitts-dev/gearopt/internal/gear"
	"github.com/stitts-dev/gearopt/internal/slotopt"
)

// DetectResult reports whether a set's pieces are available in pool under
// the given constraints, and whether its eligibility refinement (if any)
// is satisfied.
type DetectResult struct {
	Type          Type
	Available     bool
	CanEquip      bool
	PiecesBySlot  map[gear.Slot]gear.EquipmentPiece
	MissingPieces []gear.Slot
	InvalidReason string
}

// DetectSetBonus looks, for each of def's required slots, for any matching
// piece honoring the blacklist and (if enforced) skill requirements.
func DetectSetBonus(def Definition, pool []gear.EquipmentPiece, constraints gear.Constraints, requirements catalog.RequirementLookup, style gear.CombatStyle) DetectResult {
	result := DetectResult{Type: def.Type, PiecesBySlot: map[gear.Slot]gear.EquipmentPiece{}}

	for slot, names := range def.Pieces {
		match, ok := findMatchingPiece(pool, slot, names, constraints, requirements)
		if !ok {
			result.MissingPieces = append(result.MissingPieces, slot)
			continue
		}
		result.PiecesBySlot[slot] = match
	}

	result.Available = len(result.MissingPieces) == 0
	if !result.Available {
		return result
	}

	if def.Eligible != nil {
		ok, reason := def.Eligible(EligibilityContext{Pool: pool, Style: style})
		if !ok {
			result.CanEquip = false
			result.InvalidReason = reason
			return result
		}
	}

	result.CanEquip = true
	return result
}

func findMatchingPiece(pool []gear.EquipmentPiece, slot gear.Slot, names []string, constraints gear.Constraints, requirements catalog.RequirementLookup) (gear.EquipmentPiece, bool) {
	wanted := make(map[string]bool, len(names))
	for _, n := range names {
		wanted[n] = true
	}
	for _, p := range pool {
		if p.Slot != slot || !wanted[p.Name] {
			continue
		}
		if constraints.IsBlacklisted(p.ID) {
			continue
		}
		if constraints.EnforceSkillRequirements && !requirements.Meets(p.ID, constraints.PlayerSkills) {
			continue
		}
		return p, true
	}
	return gear.EquipmentPiece{}, false
}

// DetectAllSetBonuses runs DetectSetBonus for every registry entry, or only
// those matching style when style is non-empty.
func DetectAllSetBonuses(pool []gear.EquipmentPiece, style gear.CombatStyle, constraints gear.Constraints, requirements catalog.RequirementLookup) []DetectResult {
	var defs []Definition
	if style == "" {
		defs = Registry
	} else {
		defs = SetBonusesForStyle(gear.ClassOf(style))
	}

	results := make([]DetectResult, 0, len(defs))
	for _, d := range defs {
		results = append(results, DetectSetBonus(d, pool, constraints, requirements, style))
	}
	return results
}

// AvailableSetBonuses filters DetectAllSetBonuses's output to sets that can
// actually be equipped.
func AvailableSetBonuses(pool []gear.EquipmentPiece, style gear.CombatStyle, constraints gear.Constraints, requirements catalog.RequirementLookup) []DetectResult {
	all := DetectAllSetBonuses(pool, style, constraints, requirements)
	out := make([]DetectResult, 0, len(all))
	for _, r := range all {
		if r.CanEquip {
			out = append(out, r)
		}
	}
	return out
}

// BuildSetLoadout returns a partial loadout containing only def's locked
// slots, or ok=false if the set isn't available/eligible.
func BuildSetLoadout(def Definition, pool []gear.EquipmentPiece, constraints gear.Constraints, requirements catalog.RequirementLookup, style gear.CombatStyle) (gear.Loadout, bool) {
	detected := DetectSetBonus(def, pool, constraints, requirements, style)
	if !detected.CanEquip {
		return gear.Loadout{}, false
	}

	loadout := gear.NewLoadout()
	for slot, piece := range detected.PiecesBySlot {
		piece := piece
		loadout = loadout.WithSlot(slot, &piece)
	}
	return loadout, true
}

// EvaluatedSetLoadout is a complete, evaluated candidate built around a
// locked set.
type EvaluatedSetLoadout struct {
	Type          Type
	Loadout       gear.Loadout
	Metrics       gear.Metrics
	Score         float64
	IsValid       bool
	InvalidReason string
	Evaluations   int
}

// EvaluateSetLoadout builds def's locked slots, fills every remaining slot
// with the per-slot greedy step (locked slots held fixed), then evaluates
// the assembled loadout. Weapon/ammo resolution for non-locked weapon/ammo
// slots is the caller's responsibility via weaponResolve, since it needs
// the full weapon-coupling branch, not a plain greedy pick.
func EvaluateSetLoadout(
	ctx context.Context,
	calc evaluator.DPSCalculator,
	def Definition,
	player gear.Player,
	monster gear.Monster,
	pool []gear.EquipmentPiece,
	constraints gear.Constraints,
	requirements catalog.RequirementLookup,
	objective gear.Objective,
	resolveWeaponAndAmmo func(ctx context.Context, locked gear.Player) (gear.Player, int, error),
	maxWorkers int,
) EvaluatedSetLoadout {
	style := player.Style
	detected := DetectSetBonus(def, pool, constraints, requirements, style)
	if !detected.CanEquip {
		reason := detected.InvalidReason
		if reason == "" {
			reason = "set pieces unavailable"
		}
		return EvaluatedSetLoadout{Type: def.Type, IsValid: false, InvalidReason: reason}
	}

	locked := gear.NewLoadout()
	for slot, piece := range detected.PiecesBySlot {
		piece := piece
		locked = locked.WithSlot(slot, &piece)
	}
	lockedPlayer := player.Derive(locked)

	var remaining []gear.Slot
	for _, s := range gear.AllSlots {
		if _, isLocked := detected.PiecesBySlot[s]; isLocked {
			continue
		}
		if s == gear.SlotWeapon || s == gear.SlotAmmo || s == gear.SlotShield {
			continue
		}
		remaining = append(remaining, s)
	}

	evaluations := 0

	if _, weaponLocked := detected.PiecesBySlot[gear.SlotWeapon]; !weaponLocked {
		withWeapon, n, err := resolveWeaponAndAmmo(ctx, lockedPlayer)
		if err != nil {
			return EvaluatedSetLoadout{Type: def.Type, IsValid: false, InvalidReason: err.Error()}
		}
		lockedPlayer = withWeapon
		evaluations += n
	}

	// Set-bonus evaluation scores whole-set candidates before the budget
	// phase runs, so its slot pools skip the budget pre-filter; the
	// downgrade loop still enforces MaxBudget on whichever assembly wins.
	candidatePool := slotopt.BuildCandidatePool(pool, gear.ClassOf(style), constraints, requirements, nil, remaining)
	finalPlayer, _, n, err := slotopt.FillRemainingSlots(ctx, calc, lockedPlayer, monster, candidatePool, objective, remaining, maxWorkers)
	if err != nil {
		return EvaluatedSetLoadout{Type: def.Type, IsValid: false, InvalidReason: err.Error()}
	}
	evaluations += n

	metrics, err := calc.EvaluateDPS(ctx, finalPlayer, monster)
	if err != nil {
		return EvaluatedSetLoadout{Type: def.Type, IsValid: false, InvalidReason: err.Error()}
	}

	var scoreVal float64
	switch objective {
	case gear.ObjectiveAccuracy:
		scoreVal = metrics.HitChance
	case gear.ObjectiveMaxHit:
		scoreVal = float64(metrics.MaxHit)
	default:
		scoreVal = metrics.DPS
	}

	return EvaluatedSetLoadout{
		Type:        def.Type,
		Loadout:     finalPlayer.Loadout,
		Metrics:     metrics,
		Score:       scoreVal,
		IsValid:     true,
		Evaluations: evaluations,
	}
}

// FindBestSetLoadout evaluates every set applicable to style and returns
// the highest-scoring valid one that strictly beats greedyScore, or
// ok=false if none does.
func FindBestSetLoadout(
	ctx context.Context,
	calc evaluator.DPSCalculator,
	player gear.Player,
	monster gear.Monster,
	pool []gear.EquipmentPiece,
	constraints gear.Constraints,
	requirements catalog.RequirementLookup,
	objective gear.Objective,
	greedyScore float64,
	resolveWeaponAndAmmo func(ctx context.Context, locked gear.Player) (gear.Player, int, error),
	maxWorkers int,
) (EvaluatedSetLoadout, bool) {
	var best *EvaluatedSetLoadout
	for _, def := range SetBonusesForStyle(gear.ClassOf(player.Style)) {
		result := EvaluateSetLoadout(ctx, calc, def, player, monster, pool, constraints, requirements, objective, resolveWeaponAndAmmo, maxWorkers)
		if !result.IsValid || result.Score <= greedyScore {
			continue
		}
		if best == nil || result.Score > best.Score {
			r := result
			best = &r
		}
	}
	if best == nil {
		return EvaluatedSetLoadout{}, false
	}
	return *best, true
}
