package conf

import (
	"fmt"

	"github.com/lemonscanner/lemon-scanner/internal/secrets"
)

// resolveSecrets replaces credential fields with their resolved values:
// the *File variant when set, otherwise the value with ${VAR} expanded.
func resolveSecrets(settings *Settings) error {
	fields := []struct {
		key   string
		file  string
		value *string
	}{
		{"database.mysql.password", settings.Database.MySQL.PasswordFile, &settings.Database.MySQL.Password},
		{"database.mysql.dsn", "", &settings.Database.MySQL.DSN},
		{"database.postgres.password", settings.Database.Postgres.PasswordFile, &settings.Database.Postgres.Password},
		{"database.postgres.dsn", "", &settings.Database.Postgres.DSN},
		{"news.clientsecret", settings.News.ClientSecretFile, &settings.News.ClientSecret},
		{"telemetry.sentrydsn", settings.Telemetry.SentryDSNFile, &settings.Telemetry.SentryDSN},
	}
	for _, f := range fields {
		resolved, err := secrets.Resolve(f.file, *f.value)
		if err != nil {
			return fmt.Errorf("%s: %w", f.key, err)
		}
		*f.value = resolved
	}

	for i, u := range settings.Notification.URLs {
		expanded, err := secrets.ExpandString(u)
		if err != nil {
			return fmt.Errorf("notification.urls[%d]: %w", i, err)
		}
		settings.Notification.URLs[i] = expanded
	}
	return nil
}
