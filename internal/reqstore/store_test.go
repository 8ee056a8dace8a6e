package reqstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stitts-dev/gearopt/internal/gear"
)

func TestMeetsNoRequirement(t *testing.T) {
	s := New()
	assert.True(t, s.Meets(1, gear.Skills{"attack": 1}))
}

func TestMeetsRequirement(t *testing.T) {
	s := New()
	s.SetRequirements(2, []gear.SkillRequirement{{Skill: "attack", Level: 70}, {Skill: "strength", Level: 60}})

	assert.False(t, s.Meets(2, gear.Skills{"attack": 70, "strength": 59}))
	assert.True(t, s.Meets(2, gear.Skills{"attack": 70, "strength": 60}))
}

func TestLoadReplacesContents(t *testing.T) {
	s := New()
	s.SetRequirements(1, []gear.SkillRequirement{{Skill: "attack", Level: 40}})
	s.Load(map[int64][]gear.SkillRequirement{2: {{Skill: "ranged", Level: 70}}})

	assert.True(t, s.Meets(1, gear.Skills{}), "Load replaces prior entries entirely")
	assert.False(t, s.Meets(2, gear.Skills{"ranged": 1}))
}
