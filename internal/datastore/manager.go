// Package datastore opens the relational store that holds the recall schema
// and creates its tables.
package datastore

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/lemonscanner/lemon-scanner/internal/conf"
	"github.com/lemonscanner/lemon-scanner/internal/datastore/entities"
	"github.com/lemonscanner/lemon-scanner/internal/errors"
	"github.com/lemonscanner/lemon-scanner/internal/logger"
)

// Manager defines the interface for database operations.
type Manager interface {
	// Initialize creates missing tables. Existing tables are never altered.
	Initialize(ctx context.Context) error
	// DB returns the underlying GORM database.
	DB() *gorm.DB
	// Driver returns the configured driver name.
	Driver() string
	// Path returns the database location (file path for SQLite, host:port/database otherwise).
	Path() string
	// Close closes the database connection.
	Close() error
}

// Tables lists the schema entities in dependency order.
func Tables() []any {
	return []any{
		&entities.Brand{},
		&entities.Model{},
		&entities.Keyword{},
		&entities.Recall{},
		&entities.RecallKeyword{},
	}
}

// Open connects to the database selected by settings.Driver.
func Open(settings *conf.DatabaseSettings, log logger.Logger) (Manager, error) {
	switch settings.Driver {
	case conf.DriverSQLite, "":
		return NewSQLiteManager(settings, log)
	case conf.DriverMySQL:
		return NewMySQLManager(settings, log)
	case conf.DriverPostgres:
		return NewPostgresManager(settings, log)
	default:
		return nil, errors.Newf("unsupported database driver %q", settings.Driver).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// gormConfig returns the GORM configuration shared by all drivers.
func gormConfig(settings *conf.DatabaseSettings, log logger.Logger) *gorm.Config {
	return &gorm.Config{
		Logger:         logger.NewGormLoggerAdapter(log.Module("sql"), settings.SlowQuery),
		TranslateError: true,
	}
}

// configurePool applies connection pool limits; zero values keep driver defaults.
func configurePool(db *gorm.DB, settings *conf.DatabaseSettings) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	if settings.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(settings.MaxOpenConns)
	}
	if settings.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(settings.MaxIdleConns)
	}
	if settings.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(settings.ConnMaxLifetime)
	}
	return nil
}

// createMissingTables creates each absent table with its indexes and
// constraints. Tables that already exist are left as they are.
func createMissingTables(ctx context.Context, db *gorm.DB, driver string) error {
	migrator := db.WithContext(ctx).Migrator()
	for _, table := range Tables() {
		if migrator.HasTable(table) {
			continue
		}
		if err := migrator.CreateTable(table); err != nil {
			return errors.New(fmt.Errorf("failed to create table: %w", err)).
				Component("datastore").
				Category(errors.CategoryDatabase).
				Context("driver", driver).
				Context("table", fmt.Sprintf("%T", table)).
				Build()
		}
	}
	return nil
}

// closeDB closes the connection pool of db.
func closeDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying database: %w", err)
	}
	return sqlDB.Close()
}

func openError(err error, driver, location string) error {
	return errors.New(fmt.Errorf("failed to open %s database: %w", driver, err)).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("driver", driver).
		Context("location", location).
		Build()
}
