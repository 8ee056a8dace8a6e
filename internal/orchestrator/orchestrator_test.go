package orchestrator

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/gearopt/internal/gear"
	"github.com/stitts-dev/gearopt/internal/progress"
	"github.com/stitts-dev/gearopt/internal/resultcache"
)

// sumCalculator scores a loadout by the sum of its strength bonuses, with an
// optional counter so tests can assert how many times it ran.
type sumCalculator struct {
	calls int
}

func (c *sumCalculator) EvaluateDPS(ctx context.Context, player gear.Player, monster gear.Monster) (gear.Metrics, error) {
	c.calls++
	total := 0
	for _, p := range player.Loadout.Slots {
		if p != nil {
			total += p.Bonuses.Strength
		}
	}
	return gear.Metrics{DPS: float64(total), HitChance: 0.5, MaxHit: total}, nil
}

type fakeRequirements struct{}

func (fakeRequirements) Meets(id int64, skills gear.Skills) bool { return true }

type fakePrices struct {
	prices map[int64]int64
}

func (f fakePrices) EffectivePrice(id int64, owned bool) (int64, bool) {
	if owned {
		return 0, true
	}
	price, ok := f.prices[id]
	return price, ok
}

func basicCatalog() []gear.EquipmentPiece {
	return []gear.EquipmentPiece{
		{ID: 1, Name: "greatsword", Slot: gear.SlotWeapon, IsTwoHanded: true, Bonuses: gear.Bonuses{Strength: 10}},
		{ID: 2, Name: "sword", Slot: gear.SlotWeapon, IsTwoHanded: false, Bonuses: gear.Bonuses{Strength: 5}},
		{ID: 3, Name: "kite shield", Slot: gear.SlotShield, Bonuses: gear.Bonuses{Strength: 2}},
		{ID: 4, Name: "amulet", Slot: gear.SlotNeck, Bonuses: gear.Bonuses{Strength: 3}},
		{ID: 5, Name: "cheap amulet", Slot: gear.SlotNeck, Bonuses: gear.Bonuses{Strength: 1}},
		{ID: 6, Name: "ring", Slot: gear.SlotRing, Bonuses: gear.Bonuses{Strength: 3}},
		{ID: 7, Name: "cape", Slot: gear.SlotCape, Bonuses: gear.Bonuses{Strength: 2}},
		{ID: 8, Name: "helm", Slot: gear.SlotHead, Bonuses: gear.Bonuses{Strength: 2}},
		{ID: 9, Name: "body", Slot: gear.SlotBody, Bonuses: gear.Bonuses{Strength: 4}},
		{ID: 10, Name: "legs", Slot: gear.SlotLegs, Bonuses: gear.Bonuses{Strength: 3}},
		{ID: 11, Name: "gloves", Slot: gear.SlotHands, Bonuses: gear.Bonuses{Strength: 2}},
		{ID: 12, Name: "boots", Slot: gear.SlotFeet, Bonuses: gear.Bonuses{Strength: 2}},
	}
}

func basicPlayer() gear.Player {
	return gear.Player{Style: gear.StyleSlash, Loadout: gear.NewLoadout()}
}

func newOrchestrator(calc *sumCalculator, cache *resultcache.Cache) *Orchestrator {
	return New(Deps{
		Catalog:      basicCatalog(),
		Prices:       fakePrices{prices: map[int64]int64{}},
		Requirements: fakeRequirements{},
		Calculator:   calc,
		Cache:        cache,
	})
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestOptimizeAssemblesGreedyLoadout(t *testing.T) {
	calc := &sumCalculator{}
	o := newOrchestrator(calc, nil)

	result, err := o.Optimize(context.Background(), basicPlayer(), gear.Monster{Name: "goblin"}, Options{Objective: gear.ObjectiveDPS})
	require.NoError(t, err)

	assert.Equal(t, float64(31), result.Metrics.DPS)
	assert.Equal(t, int64(1), result.Equipment.Slots[gear.SlotWeapon].ID)
	assert.Nil(t, result.Equipment.Slots[gear.SlotShield])
	assert.Equal(t, int64(4), result.Equipment.Slots[gear.SlotNeck].ID)
	assert.Greater(t, result.Meta.Evaluations, 0)
}

func TestOptimizeDowngradesOverBudgetLoadout(t *testing.T) {
	calc := &sumCalculator{}
	o := New(Deps{
		Catalog:      basicCatalog(),
		Prices:       fakePrices{prices: map[int64]int64{1: 50, 3: 5, 4: 1000, 5: 10, 6: 5, 7: 5, 8: 5, 9: 5, 10: 5, 11: 5, 12: 5}},
		Requirements: fakeRequirements{},
		Calculator:   calc,
	})

	maxBudget := int64(200)
	result, err := o.Optimize(context.Background(), basicPlayer(), gear.Monster{}, Options{
		Objective:   gear.ObjectiveDPS,
		Constraints: gear.Constraints{MaxBudget: &maxBudget},
	})
	require.NoError(t, err)

	assert.LessOrEqual(t, result.Cost.NetTotal, maxBudget)
	assert.Equal(t, int64(5), result.Equipment.Slots[gear.SlotNeck].ID)
}

func TestOptimizeEmitsMonotonicProgressEndingInComplete(t *testing.T) {
	calc := &sumCalculator{}
	o := newOrchestrator(calc, nil)

	var events []progress.Event
	_, err := o.Optimize(context.Background(), basicPlayer(), gear.Monster{}, Options{
		Objective: gear.ObjectiveDPS,
		Progress: func(ev progress.Event) {
			events = append(events, ev)
		},
	})
	require.NoError(t, err)
	require.NotEmpty(t, events)

	last := -1
	for _, ev := range events {
		assert.GreaterOrEqual(t, ev.Progress, last)
		last = ev.Progress
	}

	final := events[len(events)-1]
	assert.Equal(t, progress.PhaseComplete, final.Phase)
	assert.Equal(t, 100, final.Progress)
	require.NotNil(t, final.Result)
}

func TestOptimizeCachesResultAcrossRuns(t *testing.T) {
	srv, err := miniredis.Run()
	require.NoError(t, err)
	defer srv.Close()

	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	cache := resultcache.New(client, testLogger())

	calc := &sumCalculator{}
	o := newOrchestrator(calc, cache)

	player := basicPlayer()
	monster := gear.Monster{Name: "goblin"}
	opts := Options{Objective: gear.ObjectiveDPS, CacheTTL: time.Minute}

	first, err := o.Optimize(context.Background(), player, monster, opts)
	require.NoError(t, err)
	callsAfterFirst := calc.calls
	assert.Greater(t, callsAfterFirst, 0)

	second, err := o.Optimize(context.Background(), player, monster, opts)
	require.NoError(t, err)

	assert.Equal(t, callsAfterFirst, calc.calls)
	assert.Equal(t, first.Metrics.DPS, second.Metrics.DPS)
}

func TestOptimizeRejectsSkillEnforcementWithoutPlayerSkills(t *testing.T) {
	calc := &sumCalculator{}
	o := newOrchestrator(calc, nil)

	_, err := o.Optimize(context.Background(), basicPlayer(), gear.Monster{}, Options{
		Objective:   gear.ObjectiveDPS,
		Constraints: gear.Constraints{EnforceSkillRequirements: true},
	})
	assert.Error(t, err)
}
