package aggregator

import (
	"context"
	"time"

	"github.com/lemonscanner/lemon-scanner/internal/errors"
	"github.com/lemonscanner/lemon-scanner/internal/logger"
	"github.com/lemonscanner/lemon-scanner/internal/observability/metrics"
	"github.com/lemonscanner/lemon-scanner/internal/tabular"
	"github.com/lemonscanner/lemon-scanner/internal/vocab"
)

// Options configures an Aggregator.
type Options struct {
	// Encoding of CSV input: auto, utf-8 or cp949.
	Encoding string
	// LabelLength caps partition label length.
	LabelLength int
}

// Aggregator runs the aggregation job from an input file to an output workbook.
type Aggregator struct {
	vocab   *vocab.Vocabulary
	opts    Options
	log     logger.Logger
	metrics *metrics.PipelineMetrics
}

// New creates an Aggregator. metrics may be nil.
func New(v *vocab.Vocabulary, opts Options, log logger.Logger, m *metrics.PipelineMetrics) *Aggregator {
	if opts.LabelLength <= 0 {
		opts.LabelLength = DefaultLabelLength
	}
	return &Aggregator{vocab: v, opts: opts, log: log, metrics: m}
}

// Run aggregates every table of input and writes one sheet per manufacturer to
// output. Nothing is written when the input cannot be read.
func (a *Aggregator) Run(ctx context.Context, input, output string) (stats *Stats, err error) {
	start := time.Now()
	log := a.log.WithContext(ctx).With(logger.String("input", input), logger.String("output", output))
	defer func() {
		a.recordRun(stats, err, start)
	}()

	tables, _, err := tabular.ReadFile(input, a.opts.Encoding, nil)
	if err != nil {
		return nil, err
	}

	batches := make([][]Row, 0, len(tables))
	stats = &Stats{}
	for i := range tables {
		if err := ctx.Err(); err != nil {
			return stats, errors.New(err).Component("aggregator").Category(errors.CategoryProcessing).Build()
		}
		recs, err := RecordsFromTable(&tables[i])
		if err != nil {
			return stats, err
		}
		rows, s := Aggregate(a.vocab, recs)
		stats.Add(s)
		batches = append(batches, rows)
		log.Debug("aggregated table",
			logger.String("table", tables[i].Name),
			logger.Int("rows_read", s.RowsRead),
			logger.Int("groups", s.Groups))
	}

	rows := batches[0]
	if len(batches) > 1 {
		rows = Merge(batches...)
	}
	parts := PartitionRows(rows, a.opts.LabelLength)
	stats.Groups = len(rows)
	stats.Partitions = len(parts)

	if err := tabular.WriteWorkbook(output, Sheets(parts)); err != nil {
		return stats, err
	}

	log.Info("aggregation complete",
		logger.Int("rows_read", stats.RowsRead),
		logger.Int("excluded", stats.Excluded),
		logger.Int("missing_fields", stats.MissingFields),
		logger.Int("bad_date", stats.BadDate),
		logger.Int("groups", stats.Groups),
		logger.Int("partitions", stats.Partitions),
		logger.Duration("elapsed", time.Since(start)))
	return stats, nil
}

func (a *Aggregator) recordRun(stats *Stats, err error, start time.Time) {
	if a.metrics == nil {
		return
	}
	status := metrics.StatusSuccess
	if err != nil {
		status = metrics.StatusError
	}
	if stats != nil {
		a.metrics.RecordRows(metrics.JobAggregate, "excluded", stats.Excluded)
		a.metrics.RecordRows(metrics.JobAggregate, "missing_fields", stats.MissingFields)
		a.metrics.RecordRows(metrics.JobAggregate, "bad_date", stats.BadDate)
		a.metrics.RecordRows(metrics.JobAggregate, "grouped", stats.RowsRead-stats.Excluded-stats.MissingFields-stats.BadDate)
		if err == nil {
			a.metrics.SetOutputRows(metrics.JobAggregate, stats.Groups)
		}
	}
	a.metrics.RecordRun(metrics.JobAggregate, status, time.Since(start), time.Now())
}
