// Package setbonus implements the named multi-slot set registry: void,
// elite void, inquisitor and obsidian, each with its accepted pieces per
// slot and any eligibility refinement beyond simply owning the pieces.
package setbonus

import (
	"strings"

	"github.com/stitts-dev/gearopt/internal/gear"
)

// Type identifies one registered set.
type Type string

const (
	TypeVoidMelee       Type = "void_melee"
	TypeVoidRanged      Type = "void_ranged"
	TypeVoidMagic       Type = "void_magic"
	TypeEliteVoidRanged Type = "elite_void_ranged"
	TypeEliteVoidMagic  Type = "elite_void_magic"
	TypeInquisitor      Type = "inquisitor"
	TypeObsidian        Type = "obsidian"
)

// EligibilityContext is the state an eligibility refinement needs: the
// filtered pool (post constraints) and the player's active style.
type EligibilityContext struct {
	Pool  []gear.EquipmentPiece
	Style gear.CombatStyle
}

// Definition is one set's registry entry: which slots it locks, which piece
// names satisfy each slot, and an optional refinement beyond "are the
// pieces available".
type Definition struct {
	Type        Type
	Name        string
	CombatStyle gear.CombatClass
	Pieces      map[gear.Slot][]string
	Bonus       string
	// Eligible, if set, runs after piece availability is confirmed; a
	// false return's string is the invalid_reason surfaced to the caller.
	Eligible func(ctx EligibilityContext) (bool, string)
}

func crushOnly(ctx EligibilityContext) (bool, string) {
	if ctx.Style != gear.StyleCrush {
		return false, "Inquisitor set requires crush attack style"
	}
	return true, ""
}

func requiresTzHaarWeapon(ctx EligibilityContext) (bool, string) {
	for _, p := range ctx.Pool {
		if p.Slot == gear.SlotWeapon && isTzHaarWeapon(p) {
			return true, ""
		}
	}
	return false, "Obsidian set requires a TzHaar-family weapon"
}

// isTzHaarWeapon identifies the TzHaar weapon family by its canonical
// OSRS name prefix.
func isTzHaarWeapon(p gear.EquipmentPiece) bool {
	return strings.HasPrefix(p.Name, "Toktz-")
}

// Registry is the fixed list of named sets, in the order the open-question
// in the design notes defers to: first available wins on equal score.
var Registry = []Definition{
	{
		Type:        TypeVoidMelee,
		Name:        "Void Knight (melee)",
		CombatStyle: gear.ClassMelee,
		Pieces: map[gear.Slot][]string{
			gear.SlotHead:  {"Void melee helm"},
			gear.SlotBody:  {"Void knight top"},
			gear.SlotLegs:  {"Void knight robe"},
			gear.SlotHands: {"Void knight gloves"},
		},
		Bonus: "10% accuracy and strength bonus for melee",
	},
	{
		Type:        TypeVoidRanged,
		Name:        "Void Knight (ranged)",
		CombatStyle: gear.ClassRanged,
		Pieces: map[gear.Slot][]string{
			gear.SlotHead:  {"Void ranger helm"},
			gear.SlotBody:  {"Void knight top"},
			gear.SlotLegs:  {"Void knight robe"},
			gear.SlotHands: {"Void knight gloves"},
		},
		Bonus: "10% accuracy and 10% damage bonus for ranged",
	},
	{
		Type:        TypeVoidMagic,
		Name:        "Void Knight (magic)",
		CombatStyle: gear.ClassMagic,
		Pieces: map[gear.Slot][]string{
			gear.SlotHead:  {"Void mage helm"},
			gear.SlotBody:  {"Void knight top"},
			gear.SlotLegs:  {"Void knight robe"},
			gear.SlotHands: {"Void knight gloves"},
		},
		Bonus: "45% magic damage bonus",
	},
	{
		Type:        TypeEliteVoidRanged,
		Name:        "Elite Void (ranged)",
		CombatStyle: gear.ClassRanged,
		Pieces: map[gear.Slot][]string{
			gear.SlotHead:  {"Void ranger helm"},
			gear.SlotBody:  {"Elite void top"},
			gear.SlotLegs:  {"Elite void robe"},
			gear.SlotHands: {"Void knight gloves"},
		},
		Bonus: "10% accuracy and 12.5% damage bonus for ranged",
	},
	{
		Type:        TypeEliteVoidMagic,
		Name:        "Elite Void (magic)",
		CombatStyle: gear.ClassMagic,
		Pieces: map[gear.Slot][]string{
			gear.SlotHead:  {"Void mage helm"},
			gear.SlotBody:  {"Elite void top"},
			gear.SlotLegs:  {"Elite void robe"},
			gear.SlotHands: {"Void knight gloves"},
		},
		Bonus: "45% magic damage bonus",
	},
	{
		Type:        TypeInquisitor,
		Name:        "Inquisitor's armour",
		CombatStyle: gear.ClassMelee,
		Pieces: map[gear.Slot][]string{
			gear.SlotHead: {"Inquisitor's great helm"},
			gear.SlotBody: {"Inquisitor's hauberk"},
			gear.SlotLegs: {"Inquisitor's plateskirt"},
		},
		Bonus:    "2.5% crush accuracy and damage per piece, 5% set bonus",
		Eligible: crushOnly,
	},
	{
		Type:        TypeObsidian,
		Name:        "Obsidian armour",
		CombatStyle: gear.ClassMelee,
		Pieces: map[gear.Slot][]string{
			gear.SlotHead: {"Obsidian helm"},
			gear.SlotBody: {"Obsidian platebody"},
			gear.SlotLegs: {"Obsidian platelegs"},
		},
		Bonus:    "10% damage bonus when using a TzHaar weapon",
		Eligible: requiresTzHaarWeapon,
	},
}

// SetBonusDefinition looks up a registry entry by type.
func SetBonusDefinition(t Type) (Definition, bool) {
	for _, d := range Registry {
		if d.Type == t {
			return d, true
		}
	}
	return Definition{}, false
}

// SetBonusesForStyle returns every registry entry whose CombatStyle matches
// class, in registry order.
func SetBonusesForStyle(class gear.CombatClass) []Definition {
	var out []Definition
	for _, d := range Registry {
		if d.CombatStyle == class {
			out = append(out, d)
		}
	}
	return out
}
