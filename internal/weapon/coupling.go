// Package weapon implements the two-handed-vs-shield branch, ammunition
// coupling, blowpipe dart inlining, and powered-staff handling described in
// the core design as "weapon coupling". This runs once, before the per-slot
// greedy loop, because the choice changes which slots remain to fill.
package weapon

import (
	"context"

	"github.com/stitts-dev/gearopt/internal/evaluator"
	"github.com/stitts-dev/gearopt/internal/gear"
)

// Choice is the outcome of the two-handed-vs-shield branch: the chosen
// weapon, an optional shield, and the evaluation score the pair achieved.
type Choice struct {
	Weapon evaluator.ScoreResult
	Shield *evaluator.ScoreResult
}

// ChooseWeapon runs the 2H-vs-1H+shield comparison: among two-handed
// weapons, the best holding the shield slot empty; among one-handed
// weapons, the best weapon+shield pair; whichever scores higher wins, ties
// favoring the two-handed weapon.
func ChooseWeapon(ctx context.Context, calc evaluator.DPSCalculator, player gear.Player, monster gear.Monster, weapons, shields []gear.EquipmentPiece, objective gear.Objective, maxWorkers int) (Choice, error) {
	var twoHanded, oneHanded []gear.EquipmentPiece
	for _, w := range weapons {
		if w.IsTwoHanded {
			twoHanded = append(twoHanded, w)
		} else {
			oneHanded = append(oneHanded, w)
		}
	}

	best2H, err := bestTwoHanded(ctx, calc, player, monster, twoHanded, objective, maxWorkers)
	if err != nil {
		return Choice{}, err
	}

	best1HShield, err := bestOneHandedWithShield(ctx, calc, player, monster, oneHanded, shields, objective, maxWorkers)
	if err != nil {
		return Choice{}, err
	}

	switch {
	case best2H == nil && best1HShield == nil:
		return Choice{}, nil
	case best1HShield == nil:
		return *best2H, nil
	case best2H == nil:
		return *best1HShield, nil
	case best1HShield.Weapon.Score > best2H.Weapon.Score:
		return *best1HShield, nil
	default:
		// Strictly greater required to prefer 1H+shield; ties favor 2H.
		return *best2H, nil
	}
}

func bestTwoHanded(ctx context.Context, calc evaluator.DPSCalculator, player gear.Player, monster gear.Monster, weapons []gear.EquipmentPiece, objective gear.Objective, maxWorkers int) (*Choice, error) {
	if len(weapons) == 0 {
		return nil, nil
	}
	noShieldPlayer := player.Derive(player.Loadout.WithSlot(gear.SlotShield, nil))
	results, err := evaluator.EvaluateAll(ctx, calc, noShieldPlayer, monster, weapons, objective, maxWorkers)
	if err != nil {
		return nil, err
	}
	best := bestScore(results)
	if best == nil {
		return nil, nil
	}
	return &Choice{Weapon: *best}, nil
}

func bestOneHandedWithShield(ctx context.Context, calc evaluator.DPSCalculator, player gear.Player, monster gear.Monster, weapons, shields []gear.EquipmentPiece, objective gear.Objective, maxWorkers int) (*Choice, error) {
	if len(weapons) == 0 {
		return nil, nil
	}

	var best *Choice
	for _, w := range weapons {
		withWeapon := player.Derive(player.Loadout.WithSlot(gear.SlotWeapon, &w))

		weaponOnly, err := evaluator.EvaluateItem(ctx, calc, player, monster, w, objective)
		if err != nil {
			return nil, err
		}

		candidate := Choice{Weapon: weaponOnly}

		if len(shields) > 0 {
			results, err := evaluator.EvaluateAll(ctx, calc, withWeapon, monster, shields, objective, maxWorkers)
			if err != nil {
				return nil, err
			}
			if bestShield := bestScore(results); bestShield != nil {
				candidate.Shield = bestShield
				// Pair score is weapon-with-best-shield's evaluation, i.e.
				// the shield's evaluation already reflects the weapon
				// being equipped; use it as the pair's comparison score.
				candidate.Weapon.Score = bestShield.Score
			}
		}

		if best == nil || candidate.Weapon.Score > best.Weapon.Score {
			best = &candidate
		}
	}
	return best, nil
}

func bestScore(results []evaluator.ScoreResult) *evaluator.ScoreResult {
	var best *evaluator.ScoreResult
	for i := range results {
		if best == nil || results[i].Score > best.Score {
			best = &results[i]
		}
	}
	return best
}

// WeaponRequiresAmmo returns the weapon's ammo descriptor's Required flag.
func WeaponRequiresAmmo(w gear.EquipmentPiece) bool {
	return w.Ammo != nil && w.Ammo.Required
}

// AmmoValidForWeapon intersects the ammo's kind with the weapon's accepted
// kinds and checks the ammo's tier against the weapon's tier cap.
func AmmoValidForWeapon(w, ammo gear.EquipmentPiece) bool {
	if w.Ammo == nil {
		return false
	}
	accepted := false
	for _, kind := range w.Ammo.AcceptedAmmoKinds {
		if kind == ammo.AmmoKind {
			accepted = true
			break
		}
	}
	if !accepted {
		return false
	}
	if w.Ammo.TierCap > 0 && ammo.AmmoTier > w.Ammo.TierCap {
		return false
	}
	return true
}

// FindBestAmmo filters ammoPool to ammo valid for weapon, applies the
// blacklist, evaluates each with weapon equipped, and returns the top
// scorer. Returns ok=false if no valid ammo remains.
func FindBestAmmo(ctx context.Context, calc evaluator.DPSCalculator, player gear.Player, monster gear.Monster, w gear.EquipmentPiece, ammoPool []gear.EquipmentPiece, blacklist map[int64]bool, objective gear.Objective, maxWorkers int) (evaluator.ScoreResult, bool, error) {
	withWeapon := player.Derive(player.Loadout.WithSlot(gear.SlotWeapon, &w))

	var valid []gear.EquipmentPiece
	for _, a := range ammoPool {
		if blacklist != nil && blacklist[a.ID] {
			continue
		}
		if AmmoValidForWeapon(w, a) {
			valid = append(valid, a)
		}
	}
	if len(valid) == 0 {
		return evaluator.ScoreResult{}, false, nil
	}

	results, err := evaluator.EvaluateAll(ctx, calc, withWeapon, monster, valid, objective, maxWorkers)
	if err != nil {
		return evaluator.ScoreResult{}, false, err
	}
	best := bestScore(results)
	if best == nil {
		return evaluator.ScoreResult{}, false, nil
	}
	return *best, true, nil
}

// FindBestDart enumerates the darts that are not blacklisted, inlines each
// into a blowpipe copy via item_vars, evaluates, and returns the top scorer.
// No check on a dart's kind or tier is applied.
func FindBestDart(ctx context.Context, calc evaluator.DPSCalculator, player gear.Player, monster gear.Monster, blowpipe gear.EquipmentPiece, darts []gear.EquipmentPiece, blacklist map[int64]bool, objective gear.Objective, maxWorkers int) (evaluator.ScoreResult, bool, error) {
	var candidates []gear.EquipmentPiece
	for _, d := range darts {
		if blacklist != nil && blacklist[d.ID] {
			continue
		}
		dartID := d.ID
		candidates = append(candidates, blowpipe.WithItemVars(&gear.ItemVars{DartID: &dartID}))
	}
	if len(candidates) == 0 {
		return evaluator.ScoreResult{}, false, nil
	}

	results, err := evaluator.EvaluateAll(ctx, calc, player, monster, candidates, objective, maxWorkers)
	if err != nil {
		return evaluator.ScoreResult{}, false, err
	}
	best := bestScore(results)
	if best == nil {
		return evaluator.ScoreResult{}, false, nil
	}
	return *best, true, nil
}
