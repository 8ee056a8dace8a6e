package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/stitts-dev/gearopt/internal/gear"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	db := &DB{gdb}
	require.NoError(t, db.AutoMigrate())
	return db
}

func TestCatalogRepositoryUpsertAndLoadAll(t *testing.T) {
	db := newTestDB(t)
	repo := NewCatalogRepository(db)
	ctx := context.Background()

	piece := gear.EquipmentPiece{
		ID:      1,
		Name:    "Abyssal whip",
		Slot:    gear.SlotWeapon,
		Bonuses: gear.Bonuses{Strength: 82},
		Ammo:    &gear.AmmoCoupling{Required: true, AcceptedAmmoKinds: []string{"bolt"}, TierCap: 70},
	}

	require.NoError(t, repo.Upsert(ctx, piece))

	all, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "Abyssal whip", all[0].Name)
	assert.Equal(t, 82, all[0].Bonuses.Strength)
	require.NotNil(t, all[0].Ammo)
	assert.Equal(t, 70, all[0].Ammo.TierCap)
}

func TestRequirementRepositoryLoadAll(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	require.NoError(t, db.WithContext(ctx).Create(&SkillRequirement{ItemID: 1, Skill: "attack", Level: 70}).Error)
	require.NoError(t, db.WithContext(ctx).Create(&SkillRequirement{ItemID: 1, Skill: "strength", Level: 70}).Error)

	repo := NewRequirementRepository(db)
	all, err := repo.LoadAll(ctx)
	require.NoError(t, err)
	require.Len(t, all[1], 2)
}

func TestUserSetRepositoryOwnedAndBlacklist(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	repo := NewUserSetRepository(db)

	require.NoError(t, repo.AddOwned(ctx, "user-1", 100))
	require.NoError(t, repo.AddBlacklisted(ctx, "user-1", 200))

	owned, blacklisted, err := repo.Constraints(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, owned[100])
	assert.True(t, blacklisted[200])

	require.NoError(t, repo.RemoveOwned(ctx, "user-1", 100))
	owned, _, err = repo.Constraints(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, owned[100])
}
