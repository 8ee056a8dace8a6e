// Package evaluator builds a derived player for a candidate piece, invokes
// the external damage calculator, and reduces the result to the objective's
// single score. Every other component that needs to compare candidates goes
// through this package.
package evaluator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/stitts-dev/gearopt/internal/gear"
)

// DPSCalculator is the external damage-simulation collaborator the engine
// treats as out of scope: accuracy rolls, max-hit formula, attack-speed
// scaling and monster defence all live behind this one call.
type DPSCalculator interface {
	EvaluateDPS(ctx context.Context, player gear.Player, monster gear.Monster) (gear.Metrics, error)
}

// ScoreResult is one candidate's evaluation outcome.
type ScoreResult struct {
	Item      gear.EquipmentPiece
	Metrics   gear.Metrics
	Score     float64
}

// blowpipeIDs names the items whose weapon-slot piece is semantically a
// dart-firing blowpipe: selecting one of these clears the ammo slot and
// routes dart selection through item_vars instead.
var blowpipeIDs = map[int64]bool{}

// RegisterBlowpipe marks id as a blowpipe for the purposes of ammo-slot
// clearing. Called once at catalog load time.
func RegisterBlowpipe(id int64) {
	blowpipeIDs[id] = true
}

// IsBlowpipe reports whether piece is a registered blowpipe.
func IsBlowpipe(piece gear.EquipmentPiece) bool {
	return blowpipeIDs[piece.ID]
}

// IsPoweredStaff reports whether piece supplies its own attack and forces
// magic style.
func IsPoweredStaff(piece gear.EquipmentPiece) bool {
	return piece.Category == gear.CategoryPoweredStaff
}

// DerivePlayerForCandidate builds the derived player EvaluateItem scores:
// candidate placed in its native slot, ammo cleared for blowpipes/powered
// staves, and style/spell coerced for powered staves.
func DerivePlayerForCandidate(player gear.Player, candidate gear.EquipmentPiece) gear.Player {
	next := player.Loadout.WithSlot(candidate.Slot, &candidate)

	if candidate.Slot == gear.SlotWeapon && (IsBlowpipe(candidate) || IsPoweredStaff(candidate)) {
		next = next.WithSlot(gear.SlotAmmo, nil)
	}

	derived := player.Derive(next)
	if candidate.Slot == gear.SlotWeapon && IsPoweredStaff(candidate) {
		derived = derived.AsMagicCaster()
	}
	return derived
}

// score extracts the objective's value from a Metrics.
func score(objective gear.Objective, m gear.Metrics) float64 {
	switch objective {
	case gear.ObjectiveAccuracy:
		return m.HitChance
	case gear.ObjectiveMaxHit:
		return float64(m.MaxHit)
	default:
		return m.DPS
	}
}

// EvaluateItem derives a player with candidate equipped, recomputes
// aggregates (done implicitly by Loadout.WithSlot), invokes calc, and
// reduces the result to objective's score.
func EvaluateItem(ctx context.Context, calc DPSCalculator, player gear.Player, monster gear.Monster, candidate gear.EquipmentPiece, objective gear.Objective) (ScoreResult, error) {
	derived := DerivePlayerForCandidate(player, candidate)

	metrics, err := calc.EvaluateDPS(ctx, derived, monster)
	if err != nil {
		return ScoreResult{}, err
	}

	return ScoreResult{Item: candidate, Metrics: metrics, Score: score(objective, metrics)}, nil
}

// EvaluateItemDelta returns candidate's DPS minus a baseline: either the
// supplied baseline, or (if nil) the unmodified player's current DPS.
func EvaluateItemDelta(ctx context.Context, calc DPSCalculator, player gear.Player, monster gear.Monster, candidate gear.EquipmentPiece, baseline *float64) (float64, error) {
	result, err := EvaluateItem(ctx, calc, player, monster, candidate, gear.ObjectiveDPS)
	if err != nil {
		return 0, err
	}

	base := baseline
	if base == nil {
		current, err := calc.EvaluateDPS(ctx, player, monster)
		if err != nil {
			return 0, err
		}
		b := current.DPS
		base = &b
	}
	return result.Metrics.DPS - *base, nil
}

// EvaluateAll scores every candidate against the same fixed (player,
// monster, objective) context, in parallel, bounded by maxWorkers. Each
// evaluation is a pure function of the fixed context plus one candidate, so
// no shared mutable state is touched; results preserve candidates' input
// order regardless of completion order.
func EvaluateAll(ctx context.Context, calc DPSCalculator, player gear.Player, monster gear.Monster, candidates []gear.EquipmentPiece, objective gear.Objective, maxWorkers int) ([]ScoreResult, error) {
	results := make([]ScoreResult, len(candidates))

	g, gctx := errgroup.WithContext(ctx)
	if maxWorkers > 0 {
		g.SetLimit(maxWorkers)
	}

	for i, candidate := range candidates {
		i, candidate := i, candidate
		g.Go(func() error {
			result, err := EvaluateItem(gctx, calc, player, monster, candidate, objective)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
