package api

import "github.com/stitts-dev/gearopt/internal/gear"

// validStyles and validObjectives are the wire-level whitelists Validate
// checks against; gear.ClassOf silently defaults an unrecognized style to
// melee, which is the right behavior for the optimizer but would hide a
// typo from a client probing /optimize/validate.
var validStyles = map[string]bool{
	string(gear.StyleStab): true, string(gear.StyleSlash): true, string(gear.StyleCrush): true,
	string(gear.StyleRanged): true, string(gear.StyleMagic): true,
}

var validObjectives = map[string]bool{
	string(gear.ObjectiveDPS): true, string(gear.ObjectiveAccuracy): true, string(gear.ObjectiveMaxHit): true,
}

// Validate runs structural checks on the request without running the
// pipeline. It returns every violation found, not just the first. Optimize
// does not call it, so a request it rejects can still run there (an
// unrecognized style, for instance, runs as melee).
func (r OptimizeRequest) Validate() []string {
	var errs []string

	if !validStyles[r.Style] {
		errs = append(errs, "style: unrecognized combat style "+r.Style)
	}
	if r.Objective != "" && !validObjectives[r.Objective] {
		errs = append(errs, "objective: unrecognized objective "+r.Objective)
	}
	if r.Monster.Name == "" {
		errs = append(errs, "monster.name: required")
	}
	if r.EnforceSkillRequirements && len(r.Skills) == 0 {
		errs = append(errs, "enforce_skill_requirements: set without skills")
	}
	if r.MaxBudget != nil && *r.MaxBudget < 0 {
		errs = append(errs, "max_budget: must not be negative")
	}

	return errs
}

// ValidateResponse is the body POST /optimize/validate returns: Valid
// mirrors whether Errors is empty, so a client can check one field without
// also checking a slice length.
type ValidateResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// MonsterRequest is the wire shape of the target monster's combat profile.
type MonsterRequest struct {
	Name      string           `json:"name"`
	Defence   gear.CombatStats `json:"defence"`
	HitPoints int              `json:"hit_points"`
}

// OptimizeRequest is the wire shape POST /optimize and /optimize/async both
// bind.
type OptimizeRequest struct {
	Skills                   gear.Skills    `json:"skills"`
	Style                    string         `json:"style" binding:"required"`
	Spell                    string         `json:"spell,omitempty"`
	Monster                  MonsterRequest `json:"monster" binding:"required"`
	Objective                string         `json:"objective,omitempty"`
	MaxBudget                *int64         `json:"max_budget,omitempty"`
	OwnedItems               []int64        `json:"owned_items,omitempty"`
	BlacklistedItems         []int64        `json:"blacklisted_items,omitempty"`
	EnforceSkillRequirements bool           `json:"enforce_skill_requirements,omitempty"`
}

// toDomain converts the wire request into the Player/Monster/Constraints
// the orchestrator consumes. ownedFromAccount and blacklistedFromAccount
// (loaded from the authenticated user's persisted sets, if any) are merged
// with the request's own lists.
func (r OptimizeRequest) toDomain(ownedFromAccount, blacklistedFromAccount map[int64]bool) (gear.Player, gear.Monster, gear.Constraints, gear.Objective) {
	owned := mergeSets(ownedFromAccount, r.OwnedItems)
	blacklisted := mergeSets(blacklistedFromAccount, r.BlacklistedItems)

	player := gear.Player{
		Skills:  r.Skills,
		Style:   gear.CombatStyle(r.Style),
		Spell:   r.Spell,
		Loadout: gear.NewLoadout(),
	}
	monster := gear.Monster{
		Name:      r.Monster.Name,
		Defence:   r.Monster.Defence,
		HitPoints: r.Monster.HitPoints,
	}
	constraints := gear.Constraints{
		MaxBudget:                r.MaxBudget,
		OwnedItems:               owned,
		BlacklistedItems:         blacklisted,
		EnforceSkillRequirements: r.EnforceSkillRequirements,
		PlayerSkills:             r.Skills,
	}
	objective := gear.Objective(r.Objective)
	if objective == "" {
		objective = gear.ObjectiveDPS
	}
	return player, monster, constraints, objective
}

func mergeSets(base map[int64]bool, extra []int64) map[int64]bool {
	if len(base) == 0 && len(extra) == 0 {
		return nil
	}
	out := make(map[int64]bool, len(base)+len(extra))
	for id := range base {
		out[id] = true
	}
	for _, id := range extra {
		out[id] = true
	}
	return out
}

// AsyncOptimizeResponse is returned immediately by POST /optimize/async: the
// client subscribes to the websocket progress stream keyed by RunID before
// the result arrives on it.
type AsyncOptimizeResponse struct {
	RunID string `json:"run_id"`
}

// ErrorResponse is the uniform error envelope every handler returns on
// failure.
type ErrorResponse struct {
	Error string `json:"error"`
}
