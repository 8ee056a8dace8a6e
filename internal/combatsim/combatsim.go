// Package combatsim is the concrete damage-simulation collaborator the
// optimization engine treats as an external dependency: accuracy rolls,
// max-hit, and attack-speed scaling. The engine only depends on
// evaluator.DPSCalculator, so a host is free to swap this out for a more
// faithful simulator without touching the optimizer itself.
package combatsim

import (
	"context"
	"math"

	"github.com/stitts-dev/gearopt/internal/gear"
)

const (
	unstyledBonus     = 8
	styleBonusAccurate = 3
	tickSeconds       = 0.6
)

// Calculator implements evaluator.DPSCalculator with a simplified version
// of the classic melee/ranged/magic hit-chance and max-hit formulas: an
// effective level derived from the relevant skill and style, an attack roll
// against the candidate's offensive bonus, a defence roll from the
// monster's matching defensive stat, and a max hit derived from the
// relevant strength bonus.
type Calculator struct{}

// New returns a ready-to-use Calculator.
func New() *Calculator {
	return &Calculator{}
}

// EvaluateDPS computes {dps, hit_chance, max_hit} for player against
// monster using player's equipped loadout and active combat style.
func (c *Calculator) EvaluateDPS(ctx context.Context, player gear.Player, monster gear.Monster) (gear.Metrics, error) {
	class := gear.ClassOf(player.Style)

	attackRoll := attackRoll(player, class)
	defenceRoll := defenceRoll(player, monster, class)
	hitChance := accuracy(attackRoll, defenceRoll)
	maxHit := maxHit(player, class)

	speed := player.Loadout.Speed
	if speed <= 0 {
		speed = 4
	}
	attacksPerSecond := 1 / (float64(speed) * tickSeconds)
	avgHit := float64(maxHit) / 2
	dps := hitChance * avgHit * attacksPerSecond

	return gear.Metrics{DPS: dps, HitChance: hitChance, MaxHit: maxHit}, nil
}

// effectiveLevel applies the unstyled accuracy/strength bonus every combat
// style grants: a flat +8 is the simplified stand-in for prayer and stance
// bonuses this engine does not model as separate inputs.
func effectiveLevel(skillLevel int) int {
	return skillLevel + unstyledBonus
}

func attackRoll(player gear.Player, class gear.CombatClass) int {
	var skill string
	var offensive int

	switch class {
	case gear.ClassRanged:
		skill = "ranged"
		offensive = player.Loadout.Offensive.Ranged
	case gear.ClassMagic:
		skill = "magic"
		offensive = player.Loadout.Offensive.Magic
	default:
		skill = "attack"
		offensive = styleOffensive(player)
	}

	level := effectiveLevel(player.Skills[skill])
	return level * (offensive + 64)
}

// styleOffensive picks the offensive column matching the player's active
// melee style; ranged/magic are handled by their own branches in
// attackRoll.
func styleOffensive(player gear.Player) int {
	switch player.Style {
	case gear.StyleStab:
		return player.Loadout.Offensive.Stab
	case gear.StyleCrush:
		return player.Loadout.Offensive.Crush
	default:
		return player.Loadout.Offensive.Slash
	}
}

func defenceRoll(player gear.Player, monster gear.Monster, class gear.CombatClass) int {
	def := 64
	switch class {
	case gear.ClassRanged:
		def += monster.Defence.Ranged
	case gear.ClassMagic:
		def += monster.Defence.Magic
	default:
		switch player.Style {
		case gear.StyleStab:
			def += monster.Defence.Stab
		case gear.StyleCrush:
			def += monster.Defence.Crush
		default:
			def += monster.Defence.Slash
		}
	}
	return effectiveLevel(monster.HitPoints/10) * def
}

// accuracy is the standard attack-roll-vs-defence-roll hit chance formula.
func accuracy(attackRoll, defenceRoll int) float64 {
	if attackRoll <= 0 {
		return 0
	}
	if defenceRoll <= 0 {
		return 1
	}
	a, d := float64(attackRoll), float64(defenceRoll)
	if a > d {
		return 1 - (d+2)/(2*(a+1))
	}
	return a / (2 * (d + 1))
}

func maxHit(player gear.Player, class gear.CombatClass) int {
	var skill string
	var strengthBonus int

	switch class {
	case gear.ClassRanged:
		skill = "ranged"
		strengthBonus = player.Loadout.Bonuses.RangedStrength
	case gear.ClassMagic:
		return magicMaxHit(player)
	default:
		skill = "strength"
		strengthBonus = player.Loadout.Bonuses.Strength
	}

	level := effectiveLevel(player.Skills[skill]) + styleBonusAccurate
	return int(math.Floor(0.5 + float64(level)*float64(strengthBonus+64)/640))
}

// magicMaxHit derives a max hit from magic strength bonus since spell base
// damage is outside this engine's input (spells are taken as fixed on the
// player, not modeled with their own damage tables).
func magicMaxHit(player gear.Player) int {
	base := effectiveLevel(player.Skills["magic"]) / 3
	bonus := base * player.Loadout.Bonuses.MagicStrength / 100
	return base + bonus
}
