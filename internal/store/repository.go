package store

import (
	"context"
	"fmt"

	"github.com/stitts-dev/gearopt/internal/gear"
	"github.com/stitts-dev/gearopt/internal/pricestore"
)

// CatalogRepository persists and loads the equipment catalog.
type CatalogRepository struct {
	db *DB
}

func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// Upsert inserts or replaces one catalog row.
func (r *CatalogRepository) Upsert(ctx context.Context, piece gear.EquipmentPiece) error {
	row := FromEquipmentPiece(piece)
	if err := r.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("upsert catalog item %d: %w", piece.ID, err)
	}
	return nil
}

// LoadAll returns the full catalog as domain pieces.
func (r *CatalogRepository) LoadAll(ctx context.Context) ([]gear.EquipmentPiece, error) {
	var rows []CatalogItem
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}

	pieces := make([]gear.EquipmentPiece, 0, len(rows))
	for _, row := range rows {
		pieces = append(pieces, row.ToEquipmentPiece())
	}
	return pieces, nil
}

// PriceRepository persists price snapshots and reloads them into an
// in-memory pricestore.Store at startup or on refresh.
type PriceRepository struct {
	db *DB
}

func NewPriceRepository(db *DB) *PriceRepository {
	return &PriceRepository{db: db}
}

// SaveSnapshot persists the current in-memory store's contents, replacing
// any prior snapshot per item.
func (r *PriceRepository) SaveSnapshot(ctx context.Context, quotes map[int64]pricestore.PriceQuote) error {
	rows := make([]PriceSnapshot, 0, len(quotes))
	for id, q := range quotes {
		rows = append(rows, PriceSnapshot{ItemID: id, Price: q.Price, Tradeable: q.Tradeable})
	}
	if len(rows) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Save(&rows).Error; err != nil {
		return fmt.Errorf("save price snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads the last persisted snapshot back into price store
// quotes, for warm-starting the in-memory store before the first live
// refresh completes.
func (r *PriceRepository) LoadSnapshot(ctx context.Context) (map[int64]pricestore.PriceQuote, error) {
	var rows []PriceSnapshot
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load price snapshot: %w", err)
	}

	quotes := make(map[int64]pricestore.PriceQuote, len(rows))
	for _, row := range rows {
		quotes[row.ItemID] = pricestore.PriceQuote{Price: row.Price, Tradeable: row.Tradeable}
	}
	return quotes, nil
}

// RequirementRepository persists per-item skill requirements.
type RequirementRepository struct {
	db *DB
}

func NewRequirementRepository(db *DB) *RequirementRepository {
	return &RequirementRepository{db: db}
}

func (r *RequirementRepository) LoadAll(ctx context.Context) (map[int64][]gear.SkillRequirement, error) {
	var rows []SkillRequirement
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load skill requirements: %w", err)
	}

	out := make(map[int64][]gear.SkillRequirement)
	for _, row := range rows {
		out[row.ItemID] = append(out[row.ItemID], gear.SkillRequirement{Skill: row.Skill, Level: row.Level})
	}
	return out, nil
}

// UserSetRepository persists each user's owned/blacklisted item sets.
type UserSetRepository struct {
	db *DB
}

func NewUserSetRepository(db *DB) *UserSetRepository {
	return &UserSetRepository{db: db}
}

func (r *UserSetRepository) AddOwned(ctx context.Context, userID string, itemID int64) error {
	row := UserOwnedItem{UserID: userID, ItemID: itemID}
	if err := r.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("add owned item: %w", err)
	}
	return nil
}

func (r *UserSetRepository) RemoveOwned(ctx context.Context, userID string, itemID int64) error {
	if err := r.db.WithContext(ctx).Delete(&UserOwnedItem{}, "user_id = ? AND item_id = ?", userID, itemID).Error; err != nil {
		return fmt.Errorf("remove owned item: %w", err)
	}
	return nil
}

func (r *UserSetRepository) AddBlacklisted(ctx context.Context, userID string, itemID int64) error {
	row := UserBlacklistedItem{UserID: userID, ItemID: itemID}
	if err := r.db.WithContext(ctx).Save(&row).Error; err != nil {
		return fmt.Errorf("add blacklisted item: %w", err)
	}
	return nil
}

func (r *UserSetRepository) RemoveBlacklisted(ctx context.Context, userID string, itemID int64) error {
	if err := r.db.WithContext(ctx).Delete(&UserBlacklistedItem{}, "user_id = ? AND item_id = ?", userID, itemID).Error; err != nil {
		return fmt.Errorf("remove blacklisted item: %w", err)
	}
	return nil
}

// Constraints loads userID's owned/blacklisted sets into gear.Constraints
// maps, leaving every other field for the caller to fill in.
func (r *UserSetRepository) Constraints(ctx context.Context, userID string) (owned, blacklisted map[int64]bool, err error) {
	var ownedRows []UserOwnedItem
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&ownedRows).Error; err != nil {
		return nil, nil, fmt.Errorf("load owned items: %w", err)
	}
	var blacklistedRows []UserBlacklistedItem
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&blacklistedRows).Error; err != nil {
		return nil, nil, fmt.Errorf("load blacklisted items: %w", err)
	}

	owned = make(map[int64]bool, len(ownedRows))
	for _, row := range ownedRows {
		owned[row.ItemID] = true
	}
	blacklisted = make(map[int64]bool, len(blacklistedRows))
	for _, row := range blacklistedRows {
		blacklisted[row.ItemID] = true
	}
	return owned, blacklisted, nil
}
