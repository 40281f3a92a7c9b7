// env.go - Environment variable configuration and validation for lemonscan
package conf

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix prefixes every automatically bound variable, e.g. LEMONSCAN_DATABASE_DRIVER.
const envPrefix = "LEMONSCAN"

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns the explicit bindings with shorter names used in deployments.
func getEnvBindings() []envBinding {
	return []envBinding{
		{"database.driver", "LEMONSCAN_DB_DRIVER", validateEnvDriver},
		{"database.sqlite.path", "LEMONSCAN_SQLITE_PATH", nil},
		{"database.mysql.host", "LEMONSCAN_MYSQL_HOST", nil},
		{"database.mysql.port", "LEMONSCAN_MYSQL_PORT", validateEnvPort},
		{"database.mysql.username", "LEMONSCAN_MYSQL_USER", nil},
		{"database.mysql.password", "LEMONSCAN_MYSQL_PASSWORD", nil},
		{"database.mysql.database", "LEMONSCAN_MYSQL_DATABASE", nil},
		{"database.postgres.dsn", "LEMONSCAN_POSTGRES_DSN", validateEnvURL},
		{"news.clientid", "LEMONSCAN_NAVER_CLIENT_ID", nil},
		{"news.clientsecret", "LEMONSCAN_NAVER_CLIENT_SECRET", nil},
		{"telemetry.sentrydsn", "LEMONSCAN_SENTRY_DSN", validateEnvURL},
		{"debug", "LEMONSCAN_DEBUG", validateEnvBool},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value: %v", binding.EnvVar, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s'", value)
	}
	return nil
}

func validateEnvDriver(value string) error {
	if !slices.Contains([]string{DriverSQLite, DriverMySQL, DriverPostgres}, value) {
		return fmt.Errorf("unsupported driver '%s'", value)
	}
	return nil
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// validateEnvURL checks for a scheme and host without echoing credentials.
func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("must be an absolute URL")
	}
	return nil
}
