package loader

import (
	"strings"

	"github.com/lemonscanner/lemon-scanner/internal/errors"
	"github.com/lemonscanner/lemon-scanner/internal/recall"
	"github.com/lemonscanner/lemon-scanner/internal/tabular"
	"github.com/lemonscanner/lemon-scanner/internal/vocab"
)

// PrepStats counts what preprocessing did to a table.
type PrepStats struct {
	RowsRead      int
	DroppedReason int // rows without a recall reason
	RateAbsent    bool
}

// Preprocess turns an aggregated or raw table into load records. Dates are
// read as eight-digit YYYYMMDD after removing non-digits; anything else is
// left nil. Counts default to 0 and the rate to 0.0. A table lacking the
// manufacturer, model or reason column is rejected.
func Preprocess(t *tabular.Table) ([]recall.Record, PrepStats, error) {
	cols := recall.ResolveColumns(t)
	if missing := cols.Missing(recall.ColManufacturer, recall.ColModel, recall.ColReason); len(missing) > 0 {
		return nil, PrepStats{}, errors.Newf("table is missing required columns: %s", strings.Join(missing, ", ")).
			Component("loader").
			Category(errors.CategoryFileParsing).
			Context("table", t.Name).
			Build()
	}

	stats := PrepStats{RowsRead: len(t.Rows), RateAbsent: cols.CorrectionRate < 0}
	records := make([]recall.Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		reason := tabular.Cell(row, cols.Reason)
		if reason == "" {
			stats.DroppedReason++
			continue
		}

		rec := recall.Record{
			Manufacturer:    vocab.StripParentheticals(tabular.Cell(row, cols.Manufacturer)),
			Model:           tabular.Cell(row, cols.Model),
			Reason:          reason,
			RecallCount:     recall.ParseCount(tabular.Cell(row, cols.RecallCount)),
			CorrectionCount: recall.ParseCount(tabular.Cell(row, cols.CorrectionCount)),
			CorrectionRate:  recall.ParseRate(tabular.Cell(row, cols.CorrectionRate)),
		}
		rec.ProdFrom, _ = recall.ParseCompactDate(tabular.Cell(row, cols.ProdFrom))
		rec.ProdTo, _ = recall.ParseCompactDate(tabular.Cell(row, cols.ProdTo))
		rec.RecallDate, _ = recall.ParseCompactDate(tabular.Cell(row, cols.RecallDate))
		records = append(records, rec)
	}
	return records, stats, nil
}
