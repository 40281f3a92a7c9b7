// config.go: settings struct for lemonscan and the viper-backed loader that fills it.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/lemonscanner/lemon-scanner/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Input encodings accepted for CSV sources.
const (
	EncodingAuto  = "auto"
	EncodingUTF8  = "utf-8"
	EncodingCP949 = "cp949"
)

// InputSettings controls how raw tabular files are decoded.
type InputSettings struct {
	Encoding string // auto, utf-8 or cp949
}

// AggregateSettings contains settings for the aggregation job.
type AggregateSettings struct {
	Output          string // output workbook path
	SheetNameLength int    // partition labels are truncated to this many characters
}

// LoadSettings contains settings for the load job.
type LoadSettings struct {
	Sheets []string // workbook sheets to read; empty means every sheet
}

// SQLiteSettings contains settings for the SQLite store.
type SQLiteSettings struct {
	Path string
}

// MySQLSettings contains settings for the MySQL store.
type MySQLSettings struct {
	Host     string
	Port     int
	Username     string
	Password     string // may reference ${VAR}
	PasswordFile string // file holding the password; takes precedence over Password
	Database     string
	DSN          string // overrides the fields above when set
}

// PostgresSettings contains settings for the PostgreSQL store.
type PostgresSettings struct {
	Host     string
	Port     int
	Username     string
	Password     string // may reference ${VAR}
	PasswordFile string // file holding the password; takes precedence over Password
	Database     string
	SSLMode      string
	DSN          string // overrides the fields above when set
}

// DatabaseSettings selects and configures the relational store.
type DatabaseSettings struct {
	Driver          string        // sqlite, mysql or postgres
	SlowQuery       time.Duration // queries slower than this are logged at WARN
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	SQLite          SQLiteSettings
	MySQL           MySQLSettings
	Postgres        PostgresSettings
}

// ServerSettings contains settings for the JSON API.
type ServerSettings struct {
	Listen          string        // listen address, e.g. ":8080"
	CacheTTL        time.Duration // lifetime of cached lookup queries
	ShutdownTimeout time.Duration
	AllowedOrigins  []string // CORS origins for the dashboard
}

// NewsSettings contains settings for the Naver news search client.
type NewsSettings struct {
	Enabled          bool
	Endpoint         string
	ClientID         string
	ClientSecret     string        // may reference ${VAR}
	ClientSecretFile string        // takes precedence over ClientSecret
	Display          int           // number of articles per query
	CacheTTL         time.Duration // lifetime of cached results per query
	Timeout          time.Duration
}

// MetricsSettings contains settings for batch metric export.
type MetricsSettings struct {
	TextFile string // node_exporter textfile written after each batch run; empty disables
}

// NotificationSettings contains settings for run-summary notifications.
type NotificationSettings struct {
	Enabled bool
	URLs    []string // shoutrrr service URLs; may reference ${VAR}
}

// TelemetrySettings contains settings for Sentry error reporting.
type TelemetrySettings struct {
	Enabled       bool
	SentryDSN     string // may reference ${VAR}
	SentryDSNFile string // takes precedence over SentryDSN
	Environment   string
}

// VocabularySettings points at an optional vocabulary override file.
type VocabularySettings struct {
	File string // YAML file replacing the embedded vocabulary; empty uses the embedded one
}

// Settings contains all configuration options for lemonscan.
type Settings struct {
	Debug        bool
	Logging      logger.LoggingConfig
	Input        InputSettings
	Aggregate    AggregateSettings
	Load         LoadSettings
	Database     DatabaseSettings
	Server       ServerSettings
	News         NewsSettings
	Metrics      MetricsSettings
	Notification NotificationSettings
	Telemetry    TelemetrySettings
	Vocabulary   VocabularySettings
}

// Load reads the configuration file, environment variables and defaults into Settings.
// An explicit configFile must exist; otherwise the default search paths are tried and
// a missing file is not an error.
func Load(configFile string) (*Settings, error) {
	if err := initViper(configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}
	return Unmarshal()
}

// Unmarshal decodes the current viper state into Settings and validates it.
// Commands call it again after flags are bound so flag values take precedence.
func Unmarshal() (*Settings, error) {
	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}
	if err := resolveSecrets(settings); err != nil {
		return nil, fmt.Errorf("error resolving secrets: %w", err)
	}
	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}
	return settings, nil
}

// initViper sets defaults, binds the environment and reads the configuration file.
func initViper(configFile string) error {
	setDefaultConfig()

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := bindEnvVars(); err != nil {
		return err
	}

	if configFile != "" {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
		return nil
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	for _, path := range defaultConfigPaths() {
		viper.AddConfigPath(path)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// defaultConfigPaths returns the directories searched for config.yaml, in order.
func defaultConfigPaths() []string {
	paths := []string{"."}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "lemonscan"))
	}
	return append(paths, "/etc/lemonscan")
}

// DefaultConfig returns the annotated example configuration shipped with the binary.
func DefaultConfig() (string, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return "", fmt.Errorf("error reading embedded config: %w", err)
	}
	return string(data), nil
}
