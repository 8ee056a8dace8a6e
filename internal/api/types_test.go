package api

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stitts-dev/gearopt/internal/gear"
)

func TestToDomainAppliesObjectiveDefault(t *testing.T) {
	req := OptimizeRequest{Style: "slash", Monster: MonsterRequest{Name: "goblin"}}

	_, monster, _, objective := req.toDomain(nil, nil)

	assert.Equal(t, gear.ObjectiveDPS, objective)
	assert.Equal(t, "goblin", monster.Name)
}

func TestToDomainHonorsExplicitObjective(t *testing.T) {
	req := OptimizeRequest{Style: "ranged", Objective: "accuracy", Monster: MonsterRequest{Name: "goblin"}}

	_, _, _, objective := req.toDomain(nil, nil)

	assert.Equal(t, gear.ObjectiveAccuracy, objective)
}

func TestToDomainMergesAccountAndRequestSets(t *testing.T) {
	req := OptimizeRequest{
		Style:            "slash",
		Monster:          MonsterRequest{Name: "goblin"},
		OwnedItems:       []int64{1, 2},
		BlacklistedItems: []int64{3},
	}

	_, _, constraints, _ := req.toDomain(map[int64]bool{2: true, 4: true}, map[int64]bool{5: true})

	assert.True(t, constraints.IsOwned(1))
	assert.True(t, constraints.IsOwned(2))
	assert.True(t, constraints.IsOwned(4))
	assert.True(t, constraints.IsBlacklisted(3))
	assert.True(t, constraints.IsBlacklisted(5))
}

func TestToDomainLeavesSetsNilWhenEmpty(t *testing.T) {
	req := OptimizeRequest{Style: "slash", Monster: MonsterRequest{Name: "goblin"}}

	_, _, constraints, _ := req.toDomain(nil, nil)

	assert.False(t, constraints.IsOwned(1))
	assert.False(t, constraints.IsBlacklisted(1))
}

func TestValidateAcceptsWellFormedRequest(t *testing.T) {
	req := OptimizeRequest{Style: "slash", Monster: MonsterRequest{Name: "goblin"}}

	assert.Empty(t, req.Validate())
}

func TestValidateFlagsUnrecognizedStyleAndObjective(t *testing.T) {
	req := OptimizeRequest{Style: "whirlwind", Objective: "loudest", Monster: MonsterRequest{Name: "goblin"}}

	errs := req.Validate()
	assert.Len(t, errs, 2)
}

func TestValidateFlagsEnforceSkillRequirementsWithoutSkills(t *testing.T) {
	req := OptimizeRequest{Style: "slash", Monster: MonsterRequest{Name: "goblin"}, EnforceSkillRequirements: true}

	errs := req.Validate()
	assert.Contains(t, errs, "enforce_skill_requirements: set without skills")
}

func TestValidateFlagsNegativeBudget(t *testing.T) {
	budget := int64(-1)
	req := OptimizeRequest{Style: "slash", Monster: MonsterRequest{Name: "goblin"}, MaxBudget: &budget}

	errs := req.Validate()
	assert.Contains(t, errs, "max_budget: must not be negative")
}
