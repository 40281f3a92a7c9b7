// Package notification sends batch run summaries through shoutrrr services.
package notification

import (
	"context"
	"io"
	stdlog "log"
	"slices"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	router "github.com/nicholas-fedor/shoutrrr/pkg/router"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/lemonscanner/lemon-scanner/internal/conf"
	"github.com/lemonscanner/lemon-scanner/internal/errors"
	"github.com/lemonscanner/lemon-scanner/internal/logger"
	"github.com/lemonscanner/lemon-scanner/internal/privacy"
)

// DefaultTimeout bounds one delivery to every configured service.
const DefaultTimeout = 10 * time.Second

// Notifier delivers messages to every configured service URL.
// A disabled Notifier accepts and drops messages.
type Notifier struct {
	sender *router.ServiceRouter
	urls   int
	log    logger.Logger
}

// New validates the service URLs and builds one sender for all of them.
func New(settings *conf.NotificationSettings, log logger.Logger) (*Notifier, error) {
	n := &Notifier{log: log}
	if settings == nil || !settings.Enabled {
		return n, nil
	}

	urls := slices.DeleteFunc(slices.Clone(settings.URLs), func(u string) bool { return u == "" })
	if len(urls) == 0 {
		return nil, errors.Newf("notification enabled but no service URLs configured").
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sender, err := shoutrrr.CreateSender(urls...)
	if err != nil {
		return nil, errors.New(privacy.WrapError(err)).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Context("urls", len(urls)).
			Build()
	}
	sender.Timeout = DefaultTimeout
	sender.SetLogger(stdlog.New(io.Discard, "", 0))

	n.sender = sender
	n.urls = len(urls)
	return n, nil
}

// Enabled reports whether messages are delivered anywhere.
func (n *Notifier) Enabled() bool {
	return n != nil && n.sender != nil
}

// Send delivers message to every service and returns the first failure.
func (n *Notifier) Send(ctx context.Context, title, message string) error {
	if !n.Enabled() {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := stypes.Params{}
	if title != "" {
		params.SetTitle(title)
	}

	start := time.Now()
	var failed []error
	for _, e := range n.sender.Send(message, &params) {
		if e != nil {
			failed = append(failed, e)
		}
	}
	if len(failed) > 0 {
		return errors.New(privacy.WrapError(failed[0])).
			Component("notification").
			Category(errors.CategoryNetwork).
			Context("failed_services", len(failed)).
			Timing("send", time.Since(start)).
			Build()
	}

	n.log.WithContext(ctx).Debug("notification sent",
		logger.String("title", title),
		logger.Int("services", n.urls),
		logger.Duration("elapsed", time.Since(start)))
	return nil
}
