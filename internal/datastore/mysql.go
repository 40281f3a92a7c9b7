package datastore

import (
	"context"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/lemonscanner/lemon-scanner/internal/conf"
	"github.com/lemonscanner/lemon-scanner/internal/logger"
)

// MySQLManager handles a MySQL database.
type MySQLManager struct {
	db       *gorm.DB
	location string // host:port/database for display
}

// MySQLDSN builds the connection string for settings. An explicit DSN wins.
func MySQLDSN(settings *conf.MySQLSettings) string {
	if settings.DSN != "" {
		return settings.DSN
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		settings.Username, settings.Password, settings.Host, settings.Port, settings.Database)
}

// NewMySQLManager opens the MySQL database described by settings.MySQL.
func NewMySQLManager(settings *conf.DatabaseSettings, log logger.Logger) (*MySQLManager, error) {
	location := fmt.Sprintf("%s:%d/%s", settings.MySQL.Host, settings.MySQL.Port, settings.MySQL.Database)

	db, err := gorm.Open(mysql.Open(MySQLDSN(&settings.MySQL)), gormConfig(settings, log))
	if err != nil {
		return nil, openError(err, conf.DriverMySQL, location)
	}
	if err := configurePool(db, settings); err != nil {
		return nil, openError(err, conf.DriverMySQL, location)
	}

	return &MySQLManager{db: db, location: location}, nil
}

// Initialize creates missing tables.
func (m *MySQLManager) Initialize(ctx context.Context) error {
	return createMissingTables(ctx, m.db.Set("gorm:table_options", "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4"), conf.DriverMySQL)
}

// DB returns the underlying GORM database.
func (m *MySQLManager) DB() *gorm.DB {
	return m.db
}

// Driver returns "mysql".
func (m *MySQLManager) Driver() string {
	return conf.DriverMySQL
}

// Path returns the database location (host:port/database).
func (m *MySQLManager) Path() string {
	return m.location
}

// Close closes the database connection.
func (m *MySQLManager) Close() error {
	return closeDB(m.db)
}
