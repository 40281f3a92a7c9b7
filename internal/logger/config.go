package logger

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	DefaultLevel string            // default log level for all modules
	Timezone     string            // "Local", "UTC", or IANA timezone name
	Console      ConsoleOutput     // console output configuration
	File         FileOutput        // file output configuration
	ModuleLevels map[string]string // per-module log levels, e.g. datastore: trace
}

// ConsoleOutput represents console logging configuration.
// Console output uses human-readable text format.
type ConsoleOutput struct {
	Enabled bool
	Level   string
}

// FileOutput represents file logging configuration.
// File output uses JSON lines for log aggregation.
type FileOutput struct {
	Enabled bool
	Path    string
	Level   string
}

// Default values for logging configuration.
// These match the defaults in conf/defaults.go.
const (
	DefaultLogLevel = "info"
	DefaultLogPath  = "logs/lemonscan.log"
)

// applyConfigDefaults fills empty fields so a zero config still logs to the console.
func applyConfigDefaults(cfg *LoggingConfig) {
	if cfg.DefaultLevel == "" {
		cfg.DefaultLevel = DefaultLogLevel
	}
	if cfg.Console.Level == "" {
		cfg.Console.Level = cfg.DefaultLevel
	}
	if cfg.File.Enabled && cfg.File.Path == "" {
		cfg.File.Path = DefaultLogPath
	}
	if cfg.File.Level == "" {
		cfg.File.Level = cfg.DefaultLevel
	}
	if !cfg.Console.Enabled && !cfg.File.Enabled {
		cfg.Console.Enabled = true
	}
}
