package combatsim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/gearopt/internal/gear"
)

func meleePlayer() gear.Player {
	loadout := gear.NewLoadout()
	weapon := gear.EquipmentPiece{
		ID:        1,
		Slot:      gear.SlotWeapon,
		Speed:     4,
		Offensive: gear.CombatStats{Slash: 50},
		Bonuses:   gear.Bonuses{Strength: 60},
	}
	loadout = loadout.WithSlot(gear.SlotWeapon, &weapon)

	return gear.Player{
		Skills:  gear.Skills{"attack": 70, "strength": 70, "ranged": 70, "magic": 70},
		Style:   gear.StyleSlash,
		Loadout: loadout,
	}
}

func TestEvaluateDPSProducesPositiveMetricsAgainstWeakMonster(t *testing.T) {
	calc := New()
	metrics, err := calc.EvaluateDPS(context.Background(), meleePlayer(), gear.Monster{Name: "goblin", Defence: gear.CombatStats{Slash: 5}, HitPoints: 50})
	require.NoError(t, err)

	assert.Greater(t, metrics.DPS, 0.0)
	assert.Greater(t, metrics.HitChance, 0.0)
	assert.LessOrEqual(t, metrics.HitChance, 1.0)
	assert.Greater(t, metrics.MaxHit, 0)
}

func TestEvaluateDPSAccuracyDropsAgainstHighDefence(t *testing.T) {
	calc := New()
	player := meleePlayer()

	weak, err := calc.EvaluateDPS(context.Background(), player, gear.Monster{Defence: gear.CombatStats{Slash: 5}, HitPoints: 50})
	require.NoError(t, err)

	tough, err := calc.EvaluateDPS(context.Background(), player, gear.Monster{Defence: gear.CombatStats{Slash: 500}, HitPoints: 50})
	require.NoError(t, err)

	assert.Greater(t, weak.HitChance, tough.HitChance)
	assert.Equal(t, weak.MaxHit, tough.MaxHit)
}

func TestEvaluateDPSUnarmedFallsBackToDefaultSpeed(t *testing.T) {
	calc := New()
	player := gear.Player{Skills: gear.Skills{"attack": 1, "strength": 1}, Style: gear.StyleSlash, Loadout: gear.NewLoadout()}

	metrics, err := calc.EvaluateDPS(context.Background(), player, gear.Monster{HitPoints: 10})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, metrics.DPS, 0.0)
}
