package db

import (
	"context"
	"fmt"
	"time"

	"github.com/facturaIA/invoice-stock-service/internal/config"
	"github.com/facturaIA/invoice-stock-service/internal/logger"
	"github.com/facturaIA/invoice-stock-service/internal/models"
	"github.com/jackc/pgx/v5/stdlib"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open connects gorm to the configured store. In postgres mode gorm runs on
// top of the shared pgx pool.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	switch cfg.Driver {
	case "postgres":
		if err := Init(ctx, cfg); err != nil {
			return nil, err
		}
		sqlDB := stdlib.OpenDBFromPool(Pool)
		db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), gormConfig(cfg.Debug))
		if err != nil {
			Close()
			return nil, fmt.Errorf("failed to open gorm on postgres: %w", err)
		}
		return db, nil

	case "sqlite":
		return OpenSQLite(cfg.SQLitePath, cfg.Debug)

	default:
		return nil, fmt.Errorf("%w: unknown driver %q", ErrNoDatabase, cfg.Driver)
	}
}

// OpenSQLite opens a sqlite database at path (":memory:" for tests). SQLite
// takes one writer at a time, so the pool is limited to a single connection.
func OpenSQLite(path string, debug bool) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig(debug))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return db, nil
}

func gormConfig(debug bool) *gorm.Config {
	return &gorm.Config{
		Logger: logger.NewGormLogger(debug),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Migrate creates or updates the schema
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Ping checks that the store answers
func Ping(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return ErrNoDatabase
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// CloseDB closes gorm's connection and the pgx pool behind it
func CloseDB(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	err = sqlDB.Close()
	Close()
	return err
}
