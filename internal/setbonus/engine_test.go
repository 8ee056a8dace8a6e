package setbonus

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/stitts-dev/gearopt/internal/gear"
)

type noRequirements struct{}

func (noRequirements) Meets(id int64, skills gear.Skills) bool { return true }

func voidPool() []gear.EquipmentPiece {
	return []gear.EquipmentPiece{
		{ID: 1, Name: "Void melee helm", Slot: gear.SlotHead},
		{ID: 2, Name: "Void knight top", Slot: gear.SlotBody},
		{ID: 3, Name: "Void knight robe", Slot: gear.SlotLegs},
		{ID: 4, Name: "Void knight gloves", Slot: gear.SlotHands},
	}
}

func TestDetectSetBonusAvailable(t *testing.T) {
	def, ok := SetBonusDefinition(TypeVoidMelee)
	assert.True(t, ok)

	result := DetectSetBonus(def, voidPool(), gear.Constraints{}, noRequirements{}, gear.StyleSlash)
	assert.True(t, result.Available)
	assert.True(t, result.CanEquip)
	assert.Empty(t, result.MissingPieces)
}

func TestDetectSetBonusMissingPiece(t *testing.T) {
	def, _ := SetBonusDefinition(TypeVoidMelee)
	pool := voidPool()[:2] // drop legs and hands

	result := DetectSetBonus(def, pool, gear.Constraints{}, noRequirements{}, gear.StyleSlash)
	assert.False(t, result.Available)
	assert.False(t, result.CanEquip)
	assert.Len(t, result.MissingPieces, 2)
}

func TestDetectSetBonusBlacklistedPieceCountsMissing(t *testing.T) {
	def, _ := SetBonusDefinition(TypeVoidMelee)
	pool := voidPool()

	result := DetectSetBonus(def, pool, gear.Constraints{BlacklistedItems: map[int64]bool{1: true}}, noRequirements{}, gear.StyleSlash)
	assert.False(t, result.Available)
	assert.Contains(t, result.MissingPieces, gear.SlotHead)
}

func TestInquisitorRequiresCrushStyle(t *testing.T) {
	def, _ := SetBonusDefinition(TypeInquisitor)
	pool := []gear.EquipmentPiece{
		{ID: 1, Name: "Inquisitor's great helm", Slot: gear.SlotHead},
		{ID: 2, Name: "Inquisitor's hauberk", Slot: gear.SlotBody},
		{ID: 3, Name: "Inquisitor's plateskirt", Slot: gear.SlotLegs},
	}

	slash := DetectSetBonus(def, pool, gear.Constraints{}, noRequirements{}, gear.StyleSlash)
	assert.True(t, slash.Available)
	assert.False(t, slash.CanEquip)
	assert.Equal(t, "Inquisitor set requires crush attack style", slash.InvalidReason)

	crush := DetectSetBonus(def, pool, gear.Constraints{}, noRequirements{}, gear.StyleCrush)
	assert.True(t, crush.CanEquip)
}

func TestObsidianRequiresTzHaarWeapon(t *testing.T) {
	def, _ := SetBonusDefinition(TypeObsidian)
	armorOnly := []gear.EquipmentPiece{
		{ID: 1, Name: "Obsidian helm", Slot: gear.SlotHead},
		{ID: 2, Name: "Obsidian platebody", Slot: gear.SlotBody},
		{ID: 3, Name: "Obsidian platelegs", Slot: gear.SlotLegs},
	}

	noWeapon := DetectSetBonus(def, armorOnly, gear.Constraints{}, noRequirements{}, gear.StyleCrush)
	assert.False(t, noWeapon.CanEquip)
	assert.Equal(t, "Obsidian set requires a TzHaar-family weapon", noWeapon.InvalidReason)

	withWeapon := append(armorOnly, gear.EquipmentPiece{ID: 4, Name: "Toktz-xil-ak", Slot: gear.SlotWeapon})
	result := DetectSetBonus(def, withWeapon, gear.Constraints{}, noRequirements{}, gear.StyleCrush)
	assert.True(t, result.CanEquip)
}

func TestAvailableSetBonusesFiltersToCanEquip(t *testing.T) {
	results := AvailableSetBonuses(voidPool(), gear.StyleSlash, gear.Constraints{}, noRequirements{})
	requireNonEmpty(t, results)
	for _, r := range results {
		assert.True(t, r.CanEquip)
	}
}

func requireNonEmpty(t *testing.T, results []DetectResult) {
	t.Helper()
	assert.NotEmpty(t, results)
}
