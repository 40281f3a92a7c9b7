package app

import (
	"context"
	"time"

	"github.com/lemonscanner/lemon-scanner/internal/aggregator"
	"github.com/lemonscanner/lemon-scanner/internal/loader"
	"github.com/lemonscanner/lemon-scanner/internal/logger"
	"github.com/lemonscanner/lemon-scanner/internal/notification"
)

// Aggregate runs the aggregation job from input to output.
func (c *Context) Aggregate(ctx context.Context, input, output string) (*aggregator.Stats, error) {
	ctx, runID := withRunID(ctx)
	start := time.Now()
	c.log.WithContext(ctx).Info("aggregation started",
		logger.String("run_id", runID),
		logger.String("input", input),
		logger.String("output", output))

	v, err := c.vocabulary()
	if err != nil {
		return nil, err
	}
	agg := aggregator.New(v, aggregator.Options{
		Encoding:    c.Settings.Input.Encoding,
		LabelLength: c.Settings.Aggregate.SheetNameLength,
	}, c.Logger("aggregator"), c.Metrics.Pipeline)

	stats, err := agg.Run(ctx, input, output)

	run := &notification.Run{Job: "aggregate", RunID: runID, Input: input, Elapsed: time.Since(start), Err: err}
	title, message := notification.AggregateSummary(run, output, stats)
	c.finishBatch(ctx, title, message)
	return stats, err
}

// Load runs the load job for input against the configured store.
func (c *Context) Load(ctx context.Context, input string) (*loader.Stats, error) {
	ctx, runID := withRunID(ctx)
	start := time.Now()
	c.log.WithContext(ctx).Info("load started",
		logger.String("run_id", runID),
		logger.String("input", input))

	stats, err := c.load(ctx, input)

	run := &notification.Run{Job: "load", RunID: runID, Input: input, Elapsed: time.Since(start), Err: err}
	title, message := notification.LoadSummary(run, stats)
	c.finishBatch(ctx, title, message)
	return stats, err
}

func (c *Context) load(ctx context.Context, input string) (*loader.Stats, error) {
	v, err := c.vocabulary()
	if err != nil {
		return nil, err
	}
	store, err := c.openStore(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := store.Close(); err != nil {
			c.log.Warn("failed to close database", logger.Error(err))
		}
	}()

	l := loader.New(store.DB(), v, c.Logger("loader"), c.Metrics.Pipeline)
	return l.LoadFile(ctx, input, c.Settings.Input.Encoding, c.Settings.Load.Sheets)
}

// finishBatch exports metrics and sends the run summary. Failures here are
// logged and never fail the run.
func (c *Context) finishBatch(ctx context.Context, title, message string) {
	log := c.log.WithContext(ctx)
	if err := c.Metrics.WriteTextfile(c.Settings.Metrics.TextFile); err != nil {
		log.Warn("failed to export metrics", logger.Error(err))
	}
	if err := c.Notifier.Send(ctx, title, message); err != nil {
		log.Warn("failed to send run summary", logger.Error(err))
	}
	log.Info(title)
}
