package datastore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/lemonscanner/lemon-scanner/internal/conf"
	"github.com/lemonscanner/lemon-scanner/internal/errors"
	"github.com/lemonscanner/lemon-scanner/internal/logger"
)

// SQLiteManager handles a file-backed SQLite database.
type SQLiteManager struct {
	db     *gorm.DB
	dbPath string
}

// NewSQLiteManager opens the SQLite database at settings.SQLite.Path,
// creating its directory when needed.
func NewSQLiteManager(settings *conf.DatabaseSettings, log logger.Logger) (*SQLiteManager, error) {
	dbPath := settings.SQLite.Path
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.New(err).
				Component("datastore").
				Category(errors.CategoryFileIO).
				Context("path", dbPath).
				Build()
		}
	}

	// Build DSN with recommended SQLite pragmas
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON", dbPath)

	db, err := gorm.Open(sqlite.Open(dsn), gormConfig(settings, log))
	if err != nil {
		return nil, openError(err, conf.DriverSQLite, dbPath)
	}
	if err := configurePool(db, settings); err != nil {
		return nil, openError(err, conf.DriverSQLite, dbPath)
	}

	return &SQLiteManager{db: db, dbPath: dbPath}, nil
}

// Initialize creates missing tables.
func (m *SQLiteManager) Initialize(ctx context.Context) error {
	return createMissingTables(ctx, m.db, conf.DriverSQLite)
}

// DB returns the underlying GORM database.
func (m *SQLiteManager) DB() *gorm.DB {
	return m.db
}

// Driver returns "sqlite".
func (m *SQLiteManager) Driver() string {
	return conf.DriverSQLite
}

// Path returns the database file path.
func (m *SQLiteManager) Path() string {
	return m.dbPath
}

// Close closes the database connection.
func (m *SQLiteManager) Close() error {
	return closeDB(m.db)
}
