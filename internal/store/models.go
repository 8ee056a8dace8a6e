package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stitts-dev/gearopt/internal/gear"
)

// scanJSON unmarshals a jsonb column value into dest; the Value half is
// each column type's own json.Marshal.
// Scan/Value are implemented per concrete type below since gorm's driver
// dispatch works on the declared field type, not a generic wrapper.
func scanJSON(value interface{}, dest interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into json column", value)
	}
	return json.Unmarshal(bytes, dest)
}

// CombatStatsColumn persists gear.CombatStats as jsonb.
type CombatStatsColumn gear.CombatStats

func (c *CombatStatsColumn) Scan(value interface{}) error { return scanJSON(value, c) }
func (c CombatStatsColumn) Value() (driver.Value, error)  { return json.Marshal(c) }

// BonusesColumn persists gear.Bonuses as jsonb.
type BonusesColumn gear.Bonuses

func (b *BonusesColumn) Scan(value interface{}) error { return scanJSON(value, b) }
func (b BonusesColumn) Value() (driver.Value, error)  { return json.Marshal(b) }

// AmmoCouplingColumn persists an optional gear.AmmoCoupling as jsonb.
type AmmoCouplingColumn struct {
	*gear.AmmoCoupling
}

func (a *AmmoCouplingColumn) Scan(value interface{}) error {
	if value == nil {
		a.AmmoCoupling = nil
		return nil
	}
	a.AmmoCoupling = &gear.AmmoCoupling{}
	return scanJSON(value, a.AmmoCoupling)
}

func (a AmmoCouplingColumn) Value() (driver.Value, error) {
	if a.AmmoCoupling == nil {
		return nil, nil
	}
	return json.Marshal(a.AmmoCoupling)
}

// ItemVarsColumn persists an optional gear.ItemVars as jsonb.
type ItemVarsColumn struct {
	*gear.ItemVars
}

func (v *ItemVarsColumn) Scan(value interface{}) error {
	if value == nil {
		v.ItemVars = nil
		return nil
	}
	v.ItemVars = &gear.ItemVars{}
	return scanJSON(value, v.ItemVars)
}

func (v ItemVarsColumn) Value() (driver.Value, error) {
	if v.ItemVars == nil {
		return nil, nil
	}
	return json.Marshal(v.ItemVars)
}

// CatalogItem is the persisted form of a gear.EquipmentPiece.
type CatalogItem struct {
	ID          int64  `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"not null;index" json:"name"`
	Version     string `json:"version,omitempty"`
	Category    string `gorm:"index" json:"category,omitempty"`
	Slot        string `gorm:"not null;index" json:"slot"`
	IsTwoHanded bool   `json:"is_two_handed"`
	Speed       int    `json:"speed"`
	Tier        string `json:"tier"`
	AmmoKind    string `json:"ammo_kind,omitempty"`
	AmmoTier    int    `json:"ammo_tier,omitempty"`

	Offensive CombatStatsColumn  `gorm:"type:jsonb" json:"offensive"`
	Defensive CombatStatsColumn  `gorm:"type:jsonb" json:"defensive"`
	Bonuses   BonusesColumn      `gorm:"type:jsonb" json:"bonuses"`
	Ammo      AmmoCouplingColumn `gorm:"type:jsonb" json:"ammo,omitempty"`
	ItemVars  ItemVarsColumn     `gorm:"type:jsonb" json:"item_vars,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CatalogItem) TableName() string { return "catalog_items" }

// ToEquipmentPiece converts the persisted row into the in-memory domain
// type the optimization engine operates on.
func (c CatalogItem) ToEquipmentPiece() gear.EquipmentPiece {
	piece := gear.EquipmentPiece{
		ID:          c.ID,
		Name:        c.Name,
		Version:     c.Version,
		Category:    gear.ItemCategory(c.Category),
		Slot:        gear.Slot(c.Slot),
		IsTwoHanded: c.IsTwoHanded,
		Speed:       c.Speed,
		Tier:        c.Tier,
		AmmoKind:    c.AmmoKind,
		AmmoTier:    c.AmmoTier,
		Offensive:   gear.CombatStats(c.Offensive),
		Defensive:   gear.CombatStats(c.Defensive),
		Bonuses:     gear.Bonuses(c.Bonuses),
		Ammo:        c.Ammo.AmmoCoupling,
		ItemVars:    c.ItemVars.ItemVars,
	}
	return piece
}

// FromEquipmentPiece builds the persisted row for an in-memory piece.
func FromEquipmentPiece(p gear.EquipmentPiece) CatalogItem {
	return CatalogItem{
		ID:          p.ID,
		Name:        p.Name,
		Version:     p.Version,
		Category:    string(p.Category),
		Slot:        string(p.Slot),
		IsTwoHanded: p.IsTwoHanded,
		Speed:       p.Speed,
		Tier:        p.Tier,
		AmmoKind:    p.AmmoKind,
		AmmoTier:    p.AmmoTier,
		Offensive:   CombatStatsColumn(p.Offensive),
		Defensive:   CombatStatsColumn(p.Defensive),
		Bonuses:     BonusesColumn(p.Bonuses),
		Ammo:        AmmoCouplingColumn{p.Ammo},
		ItemVars:    ItemVarsColumn{p.ItemVars},
	}
}

// PriceSnapshot is one item's most recently fetched price.
type PriceSnapshot struct {
	ItemID    int64     `gorm:"primaryKey" json:"item_id"`
	Price     *int64    `json:"price"`
	Tradeable bool      `json:"tradeable"`
	FetchedAt time.Time `json:"fetched_at"`
}

func (PriceSnapshot) TableName() string { return "price_snapshots" }

// SkillRequirement is one item's minimum skill level to equip.
type SkillRequirement struct {
	ItemID int64  `gorm:"primaryKey" json:"item_id"`
	Skill  string `gorm:"primaryKey" json:"skill"`
	Level  int    `json:"level"`
}

func (SkillRequirement) TableName() string { return "skill_requirements" }

// UserOwnedItem marks one item as already owned by one user (free in cost
// calculations).
type UserOwnedItem struct {
	UserID string `gorm:"primaryKey" json:"user_id"`
	ItemID int64  `gorm:"primaryKey" json:"item_id"`
}

func (UserOwnedItem) TableName() string { return "user_owned_items" }

// UserBlacklistedItem marks one item as excluded from a user's candidate
// pools regardless of score.
type UserBlacklistedItem struct {
	UserID string `gorm:"primaryKey" json:"user_id"`
	ItemID int64  `gorm:"primaryKey" json:"item_id"`
}

func (UserBlacklistedItem) TableName() string { return "user_blacklisted_items" }
