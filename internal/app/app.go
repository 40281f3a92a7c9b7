// Package app wires configuration, logging, metrics, telemetry and
// notifications around the batch jobs and the API server.
package app

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lemonscanner/lemon-scanner/internal/buildinfo"
	"github.com/lemonscanner/lemon-scanner/internal/conf"
	"github.com/lemonscanner/lemon-scanner/internal/datastore"
	"github.com/lemonscanner/lemon-scanner/internal/logger"
	"github.com/lemonscanner/lemon-scanner/internal/notification"
	"github.com/lemonscanner/lemon-scanner/internal/observability"
	"github.com/lemonscanner/lemon-scanner/internal/telemetry"
	"github.com/lemonscanner/lemon-scanner/internal/vocab"
)

// Context holds the process-wide services shared by every command.
type Context struct {
	Settings *conf.Settings
	Build    *buildinfo.Context
	Metrics  *observability.Metrics
	Notifier *notification.Notifier

	logs           *logger.CentralLogger
	log            logger.Logger
	flushTelemetry func()
}

// New returns an empty Context; Setup fills it once settings are loaded.
func New(build *buildinfo.Context) *Context {
	return &Context{Build: build}
}

// Setup initializes logging, metrics, telemetry and notifications from
// settings. Close releases them.
func (c *Context) Setup(settings *conf.Settings) error {
	if settings.Debug {
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		settings.Logging.Console.Level = string(logger.LogLevelDebug)
	}
	logs, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}

	metrics, err := observability.NewMetrics()
	if err != nil {
		_ = logs.Close()
		return err
	}
	flush, err := telemetry.Init(&settings.Telemetry, c.Build, logs.Module("telemetry"))
	if err != nil {
		_ = logs.Close()
		return err
	}
	notifier, err := notification.New(&settings.Notification, logs.Module("notification"))
	if err != nil {
		flush()
		_ = logs.Close()
		return err
	}

	c.Settings = settings
	c.Metrics = metrics
	c.Notifier = notifier
	c.logs = logs
	c.log = logs.Module("app")
	c.flushTelemetry = flush
	return nil
}

// Logger returns a logger for module name.
func (c *Context) Logger(name string) logger.Logger {
	return c.logs.Module(name)
}

// Close flushes telemetry and closes the log file. It is a no-op before Setup.
func (c *Context) Close() error {
	if c.flushTelemetry != nil {
		c.flushTelemetry()
		c.flushTelemetry = nil
	}
	return c.logs.Close()
}

// vocabulary returns the configured override or the embedded vocabulary.
func (c *Context) vocabulary() (*vocab.Vocabulary, error) {
	return vocab.Load(c.Settings.Vocabulary.File)
}

// openStore connects to the configured database and creates missing tables.
func (c *Context) openStore(ctx context.Context) (datastore.Manager, error) {
	store, err := datastore.Open(&c.Settings.Database, c.Logger("datastore"))
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	c.log.Info("database ready",
		logger.String("driver", store.Driver()),
		logger.String("location", store.Path()))
	return store, nil
}

// withRunID tags ctx with a fresh run id picked up by every module logger.
func withRunID(ctx context.Context) (context.Context, string) {
	runID := uuid.NewString()[:8]
	return logger.WithTraceID(ctx, runID), runID
}
