// Package catalog implements the pure predicates that narrow an equipment
// pool by slot, combat style, blacklist, budget and skill requirements.
// Every filter preserves input ordering and never mutates its input pool.
package catalog

import (
	"fmt"

	"github.com/stitts-dev/gearopt/internal/gear"
	"github.com/stitts-dev/gearopt/internal/gearerr"
)

// PriceLookup is the read-only subset of the price store the budget filter
// needs.
type PriceLookup interface {
	EffectivePrice(id int64, owned bool) (int64, bool)
}

// RequirementLookup is the read-only subset of the requirement store the
// skill filter needs.
type RequirementLookup interface {
	Meets(id int64, skills gear.Skills) bool
}

// FilterBySlot returns the items in pool whose Slot equals slot.
func FilterBySlot(slot gear.Slot, pool []gear.EquipmentPiece) ([]gear.EquipmentPiece, error) {
	if !slot.Valid() {
		return nil, fmt.Errorf("%w: %s", gearerr.ErrInvalidSlot, slot)
	}
	out := make([]gear.EquipmentPiece, 0, len(pool))
	for _, p := range pool {
		if p.Slot == slot {
			out = append(out, p)
		}
	}
	return out, nil
}

// FilterByCombatStyle retains items that either carry no offensive bonus at
// all (pure defensive/neutral pieces) or that contribute positively to the
// given style's relevant stats.
func FilterByCombatStyle(class gear.CombatClass, pool []gear.EquipmentPiece) []gear.EquipmentPiece {
	out := make([]gear.EquipmentPiece, 0, len(pool))
	for _, p := range pool {
		if isStyleRelevant(class, p) {
			out = append(out, p)
		}
	}
	return out
}

func isStyleRelevant(class gear.CombatClass, p gear.EquipmentPiece) bool {
	if isNeutral(p) {
		return true
	}
	switch class {
	case gear.ClassRanged:
		return p.Offensive.Ranged > 0 || p.Bonuses.RangedStrength > 0
	case gear.ClassMagic:
		return p.Offensive.Magic > 0 || p.Bonuses.MagicStrength > 0
	default:
		return p.Offensive.Stab > 0 || p.Offensive.Slash > 0 || p.Offensive.Crush > 0 || p.Bonuses.Strength > 0
	}
}

// isNeutral reports whether p carries no positive offensive contribution in
// any style at all, i.e. it is purely defensive or has no combat stats.
func isNeutral(p gear.EquipmentPiece) bool {
	o := p.Offensive
	return o.Stab <= 0 && o.Slash <= 0 && o.Crush <= 0 && o.Ranged <= 0 && o.Magic <= 0 &&
		p.Bonuses.Strength <= 0 && p.Bonuses.RangedStrength <= 0 && p.Bonuses.MagicStrength <= 0
}

// FilterByBlacklist excludes every item whose id appears in ids.
func FilterByBlacklist(ids map[int64]bool, pool []gear.EquipmentPiece) []gear.EquipmentPiece {
	if len(ids) == 0 {
		return pool
	}
	out := make([]gear.EquipmentPiece, 0, len(pool))
	for _, p := range pool {
		if !ids[p.ID] {
			out = append(out, p)
		}
	}
	return out
}

// FilterByBudget retains items whose effective price is within cap. An
// unknown price is retained unless excludeUnknown is set.
func FilterByBudget(cap int64, pool []gear.EquipmentPiece, prices PriceLookup, owned map[int64]bool, excludeUnknown bool) []gear.EquipmentPiece {
	out := make([]gear.EquipmentPiece, 0, len(pool))
	for _, p := range pool {
		price, known := prices.EffectivePrice(p.ID, owned != nil && owned[p.ID])
		if !known {
			if !excludeUnknown {
				out = append(out, p)
			}
			continue
		}
		if price <= cap {
			out = append(out, p)
		}
	}
	return out
}

// FilterBySkillRequirements retains items with no recorded requirement, or
// whose every requirement is met by skills.
func FilterBySkillRequirements(skills gear.Skills, pool []gear.EquipmentPiece, requirements RequirementLookup) []gear.EquipmentPiece {
	out := make([]gear.EquipmentPiece, 0, len(pool))
	for _, p := range pool {
		if requirements.Meets(p.ID, skills) {
			out = append(out, p)
		}
	}
	return out
}
