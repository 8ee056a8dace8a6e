// Package store persists the catalog, price snapshots, skill requirements
// and per-user owned/blacklist sets backing the read-only collaborators
// the core optimization engine treats as external (catalog, price store,
// requirement store).
package store

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB wraps a gorm connection with the connection-pool tuning this service
// needs.
type DB struct {
	*gorm.DB
}

// NewConnection opens a postgres connection pool and verifies it with a
// ping before returning.
func NewConnection(databaseURL string, isDevelopment bool) (*DB, error) {
	logLevel := logger.Error
	if isDevelopment {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		PrepareStmt: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logrus.Info("gear store database connection established")
	return &DB{db}, nil
}

// AutoMigrate creates or updates every table this package owns.
func (db *DB) AutoMigrate() error {
	return db.DB.AutoMigrate(
		&CatalogItem{},
		&PriceSnapshot{},
		&SkillRequirement{},
		&UserOwnedItem{},
		&UserBlacklistedItem{},
	)
}

// Close releases the underlying connection pool.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
