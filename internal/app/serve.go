package app

import (
	"context"

	"github.com/lemonscanner/lemon-scanner/internal/catalog"
	"github.com/lemonscanner/lemon-scanner/internal/httpapi"
	"github.com/lemonscanner/lemon-scanner/internal/httpclient"
	"github.com/lemonscanner/lemon-scanner/internal/logger"
	"github.com/lemonscanner/lemon-scanner/internal/news"
)

// Serve runs the JSON API until ctx is canceled.
func (c *Context) Serve(ctx context.Context) error {
	store, err := c.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			c.log.Warn("failed to close database", logger.Error(err))
		}
	}()

	cat := catalog.New(store.DB(), c.Settings.Server.CacheTTL, c.Logger("catalog"), c.Metrics.HTTP)
	opts := []httpapi.Option{httpapi.WithMetrics(c.Metrics)}

	if c.Settings.News.Enabled {
		newsClient, err := news.NewClient(&c.Settings.News,
			httpclient.New(&httpclient.Config{DefaultTimeout: c.Settings.News.Timeout}),
			c.Logger("news"), c.Metrics.HTTP)
		if err != nil {
			return err
		}
		defer newsClient.Close()
		opts = append(opts, httpapi.WithNews(newsClient))
	} else {
		c.log.Info("news search disabled")
	}

	return httpapi.New(&c.Settings.Server, cat, c.Logger("httpapi"), opts...).Run(ctx)
}
