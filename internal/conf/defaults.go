// defaults.go default values for lemonscan configuration
package conf

import (
	"time"

	"github.com/spf13/viper"
)

// setDefaultConfig sets the default values for every configuration parameter.
func setDefaultConfig() {
	viper.SetDefault("debug", false)

	// Logging
	viper.SetDefault("logging.defaultlevel", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file.enabled", false)
	viper.SetDefault("logging.file.path", "logs/lemonscan.log")
	viper.SetDefault("logging.file.level", "debug")

	// Input decoding
	viper.SetDefault("input.encoding", EncodingAuto)

	// Aggregation job
	viper.SetDefault("aggregate.output", "recall_by_brand.xlsx")
	viper.SetDefault("aggregate.sheetnamelength", 30)

	// Load job
	viper.SetDefault("load.sheets", []string{})

	// Database
	viper.SetDefault("database.driver", DriverSQLite)
	viper.SetDefault("database.slowquery", 200*time.Millisecond)
	viper.SetDefault("database.maxopenconns", 10)
	viper.SetDefault("database.maxidleconns", 5)
	viper.SetDefault("database.connmaxlifetime", time.Hour)
	viper.SetDefault("database.sqlite.path", "lemon_scanner.db")
	viper.SetDefault("database.mysql.host", "localhost")
	viper.SetDefault("database.mysql.port", 3306)
	viper.SetDefault("database.mysql.username", "root")
	viper.SetDefault("database.mysql.password", "")
	viper.SetDefault("database.mysql.passwordfile", "")
	viper.SetDefault("database.mysql.database", "lemon_scanner_db")
	viper.SetDefault("database.postgres.host", "localhost")
	viper.SetDefault("database.postgres.port", 5432)
	viper.SetDefault("database.postgres.username", "postgres")
	viper.SetDefault("database.postgres.password", "")
	viper.SetDefault("database.postgres.passwordfile", "")
	viper.SetDefault("database.postgres.database", "lemon_scanner_db")
	viper.SetDefault("database.postgres.sslmode", "disable")

	// JSON API
	viper.SetDefault("server.listen", ":8080")
	viper.SetDefault("server.cachettl", time.Hour)
	viper.SetDefault("server.shutdowntimeout", 10*time.Second)
	viper.SetDefault("server.allowedorigins", []string{"*"})

	// News search
	viper.SetDefault("news.enabled", false)
	viper.SetDefault("news.endpoint", "https://openapi.naver.com/v1/search/news.json")
	viper.SetDefault("news.clientsecretfile", "")
	viper.SetDefault("news.display", 3)
	viper.SetDefault("news.cachettl", time.Hour)
	viper.SetDefault("news.timeout", 10*time.Second)

	// Metrics, notifications and telemetry
	viper.SetDefault("metrics.textfile", "")
	viper.SetDefault("notification.enabled", false)
	viper.SetDefault("notification.urls", []string{})
	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.sentrydsnfile", "")
	viper.SetDefault("telemetry.environment", "production")

	viper.SetDefault("vocabulary.file", "")
}
