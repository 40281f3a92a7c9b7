// conf/validate.go

package conf

import (
	"fmt"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %s", strings.Join(ve.Errors, "; "))
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	ve.Errors = append(ve.Errors, validateInputSettings(&settings.Input)...)
	ve.Errors = append(ve.Errors, validateAggregateSettings(&settings.Aggregate)...)
	ve.Errors = append(ve.Errors, validateDatabaseSettings(&settings.Database)...)
	ve.Errors = append(ve.Errors, validateNewsSettings(&settings.News)...)
	ve.Errors = append(ve.Errors, validateNotificationSettings(&settings.Notification)...)
	ve.Errors = append(ve.Errors, validateTelemetrySettings(&settings.Telemetry)...)

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateInputSettings(settings *InputSettings) []string {
	switch strings.ToLower(settings.Encoding) {
	case EncodingAuto, EncodingUTF8, EncodingCP949, "euc-kr":
		return nil
	default:
		return []string{fmt.Sprintf("input.encoding must be auto, utf-8 or cp949, got '%s'", settings.Encoding)}
	}
}

func validateAggregateSettings(settings *AggregateSettings) []string {
	var errs []string
	if settings.Output == "" {
		errs = append(errs, "aggregate.output must not be empty")
	}
	// Excel rejects sheet names longer than 31 characters.
	if settings.SheetNameLength < 1 || settings.SheetNameLength > 31 {
		errs = append(errs, fmt.Sprintf("aggregate.sheetnamelength must be between 1 and 31, got %d", settings.SheetNameLength))
	}
	return errs
}

func validateDatabaseSettings(settings *DatabaseSettings) []string {
	var errs []string
	switch settings.Driver {
	case DriverSQLite:
		if settings.SQLite.Path == "" {
			errs = append(errs, "database.sqlite.path must not be empty")
		}
	case DriverMySQL:
		if settings.MySQL.DSN == "" && (settings.MySQL.Host == "" || settings.MySQL.Database == "") {
			errs = append(errs, "database.mysql requires host and database, or a dsn")
		}
		if settings.MySQL.DSN == "" && (settings.MySQL.Port < 1 || settings.MySQL.Port > 65535) {
			errs = append(errs, fmt.Sprintf("database.mysql.port must be between 1 and 65535, got %d", settings.MySQL.Port))
		}
	case DriverPostgres:
		if settings.Postgres.DSN == "" && (settings.Postgres.Host == "" || settings.Postgres.Database == "") {
			errs = append(errs, "database.postgres requires host and database, or a dsn")
		}
	default:
		errs = append(errs, fmt.Sprintf("database.driver must be sqlite, mysql or postgres, got '%s'", settings.Driver))
	}
	if settings.MaxIdleConns > settings.MaxOpenConns && settings.MaxOpenConns > 0 {
		errs = append(errs, "database.maxidleconns must not exceed database.maxopenconns")
	}
	return errs
}

func validateNewsSettings(settings *NewsSettings) []string {
	if !settings.Enabled {
		return nil
	}
	var errs []string
	if settings.ClientID == "" || settings.ClientSecret == "" {
		errs = append(errs, "news.clientid and news.clientsecret are required when news is enabled")
	}
	// The search API accepts display values from 1 to 100.
	if settings.Display < 1 || settings.Display > 100 {
		errs = append(errs, fmt.Sprintf("news.display must be between 1 and 100, got %d", settings.Display))
	}
	return errs
}

func validateNotificationSettings(settings *NotificationSettings) []string {
	if settings.Enabled && len(settings.URLs) == 0 {
		return []string{"notification.urls must list at least one service URL when notifications are enabled"}
	}
	return nil
}

func validateTelemetrySettings(settings *TelemetrySettings) []string {
	if settings.Enabled && settings.SentryDSN == "" {
		return []string{"telemetry.sentrydsn is required when telemetry is enabled"}
	}
	return nil
}
