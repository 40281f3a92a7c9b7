package datastore

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strconv"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/lemonscanner/lemon-scanner/internal/conf"
	"github.com/lemonscanner/lemon-scanner/internal/logger"
)

// PostgresManager handles a PostgreSQL database.
type PostgresManager struct {
	db       *gorm.DB
	location string
}

// PostgresDSN builds the connection URL for settings. An explicit DSN wins.
func PostgresDSN(settings *conf.PostgresSettings) string {
	if settings.DSN != "" {
		return settings.DSN
	}
	sslMode := settings.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(settings.Username, settings.Password),
		Host:     net.JoinHostPort(settings.Host, strconv.Itoa(settings.Port)),
		Path:     "/" + settings.Database,
		RawQuery: url.Values{"sslmode": {sslMode}}.Encode(),
	}
	return u.String()
}

// NewPostgresManager opens the PostgreSQL database described by settings.Postgres.
func NewPostgresManager(settings *conf.DatabaseSettings, log logger.Logger) (*PostgresManager, error) {
	location := fmt.Sprintf("%s:%d/%s", settings.Postgres.Host, settings.Postgres.Port, settings.Postgres.Database)

	db, err := gorm.Open(postgres.Open(PostgresDSN(&settings.Postgres)), gormConfig(settings, log))
	if err != nil {
		return nil, openError(err, conf.DriverPostgres, location)
	}
	if err := configurePool(db, settings); err != nil {
		return nil, openError(err, conf.DriverPostgres, location)
	}

	return &PostgresManager{db: db, location: location}, nil
}

// Initialize creates missing tables.
func (m *PostgresManager) Initialize(ctx context.Context) error {
	return createMissingTables(ctx, m.db, conf.DriverPostgres)
}

// DB returns the underlying GORM database.
func (m *PostgresManager) DB() *gorm.DB {
	return m.db
}

// Driver returns "postgres".
func (m *PostgresManager) Driver() string {
	return conf.DriverPostgres
}

// Path returns the database location (host:port/database).
func (m *PostgresManager) Path() string {
	return m.location
}

// Close closes the database connection.
func (m *PostgresManager) Close() error {
	return closeDB(m.db)
}
