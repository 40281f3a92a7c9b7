// Package telemetry reports fatal pipeline errors to Sentry.
//
// Only errors that abort a run are sent: file-io, file-parsing, database and
// configuration failures built through internal/errors. Row-level problems stay
// in the run statistics.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/lemonscanner/lemon-scanner/internal/buildinfo"
	"github.com/lemonscanner/lemon-scanner/internal/conf"
	"github.com/lemonscanner/lemon-scanner/internal/errors"
	"github.com/lemonscanner/lemon-scanner/internal/logger"
)

// FlushTimeout bounds how long shutdown waits for queued events.
const FlushTimeout = 2 * time.Second

// reportedCategories are the fatal error categories sent to Sentry.
var reportedCategories = map[errors.ErrorCategory]bool{
	errors.CategoryFileIO:        true,
	errors.CategoryFileParsing:   true,
	errors.CategoryDatabase:      true,
	errors.CategoryConfiguration: true,
}

// Option adjusts the Sentry client options.
type Option func(*sentry.ClientOptions)

// WithTransport replaces the HTTP transport, e.g. with a recording one in tests.
func WithTransport(t sentry.Transport) Option {
	return func(o *sentry.ClientOptions) {
		o.Transport = t
	}
}

// Init starts Sentry and installs the error reporter. The returned function
// flushes pending events and uninstalls the reporter; it is safe to call when
// telemetry is disabled.
func Init(settings *conf.TelemetrySettings, info *buildinfo.Context, log logger.Logger, opts ...Option) (func(), error) {
	noop := func() {}
	if settings == nil || !settings.Enabled {
		errors.SetTelemetryReporter(nil)
		return noop, nil
	}
	if settings.SentryDSN == "" {
		return noop, errors.Newf("telemetry enabled but no Sentry DSN configured").
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	options := sentry.ClientOptions{
		Dsn:              settings.SentryDSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      settings.Environment,
		ServerName:       "",
		Release:          info.Release(),
		BeforeSend:       scrubEvent,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if err := sentry.Init(options); err != nil {
		return noop, fmt.Errorf("sentry initialization failed: %w", err)
	}

	errors.SetTelemetryReporter(&fatalReporter{next: errors.NewSentryReporter(true)})
	log.Info("telemetry enabled",
		logger.String("environment", settings.Environment),
		logger.String("release", options.Release))

	return func() {
		errors.SetTelemetryReporter(nil)
		if !sentry.Flush(FlushTimeout) {
			log.Warn("telemetry flush timed out", logger.Duration("timeout", FlushTimeout))
		}
	}, nil
}

// fatalReporter forwards only fatal categories to next.
type fatalReporter struct {
	next errors.TelemetryReporter
}

func (r *fatalReporter) IsEnabled() bool {
	return r.next.IsEnabled()
}

func (r *fatalReporter) ReportError(ee *errors.EnhancedError) {
	if !reportedCategories[ee.Category] {
		return
	}
	r.next.ReportError(ee)
}

// scrubEvent drops host and request details Sentry collects on its own.
func scrubEvent(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
	event.ServerName = ""
	event.User = sentry.User{}
	event.Request = nil
	event.Modules = nil
	return event
}
