// Package aggregator turns raw recall records into one row per
// (manufacturer, model, reason, year) and partitions the result by
// manufacturer for the workbook consumed by the loader.
package aggregator

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"github.com/lemonscanner/lemon-scanner/internal/errors"
	"github.com/lemonscanner/lemon-scanner/internal/recall"
	"github.com/lemonscanner/lemon-scanner/internal/tabular"
	"github.com/lemonscanner/lemon-scanner/internal/vocab"
)

// Key identifies an aggregated group.
type Key struct {
	Manufacturer string
	Model        string
	Reason       string
	Year         int
}

// Row is one aggregated group.
type Row struct {
	Key
	ProdFrom        *time.Time
	ProdTo          *time.Time
	RecallDate      *time.Time
	RecallCount     int
	CorrectionCount int
	CorrectionRate  float64
}

// Values renders the row in recall.OutputHeader order.
func (r Row) Values() []any {
	return []any{
		r.Manufacturer,
		r.Model,
		r.Reason,
		r.Year,
		recall.FormatDate(r.ProdFrom),
		recall.FormatDate(r.ProdTo),
		recall.FormatDate(r.RecallDate),
		r.RecallCount,
		r.CorrectionCount,
		r.CorrectionRate,
	}
}

// Stats counts what happened to the input rows of a run.
type Stats struct {
	RowsRead      int
	Excluded      int
	MissingFields int
	BadDate       int
	Groups        int
	Partitions    int
}

// Add accumulates o into s.
func (s *Stats) Add(o Stats) {
	s.RowsRead += o.RowsRead
	s.Excluded += o.Excluded
	s.MissingFields += o.MissingFields
	s.BadDate += o.BadDate
	s.Groups += o.Groups
	s.Partitions += o.Partitions
}

// RecordsFromTable reads raw records from a table. Dates that fail to parse
// are left nil; Aggregate decides what that means.
func RecordsFromTable(t *tabular.Table) ([]recall.Record, error) {
	cols := recall.ResolveColumns(t)
	if missing := cols.Missing(recall.ColManufacturer, recall.ColModel, recall.ColReason, recall.ColRecallDate); len(missing) > 0 {
		return nil, errors.Newf("input is missing required columns: %s", strings.Join(missing, ", ")).
			Component("aggregator").
			Category(errors.CategoryFileParsing).
			Context("table", t.Name).
			Build()
	}

	records := make([]recall.Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := recall.Record{
			Manufacturer:    tabular.Cell(row, cols.Manufacturer),
			Model:           tabular.Cell(row, cols.Model),
			Reason:          tabular.Cell(row, cols.Reason),
			RecallCount:     recall.ParseCount(tabular.Cell(row, cols.RecallCount)),
			CorrectionCount: recall.ParseCount(tabular.Cell(row, cols.CorrectionCount)),
			CorrectionRate:  recall.ParseRate(tabular.Cell(row, cols.CorrectionRate)),
		}
		rec.ProdFrom, _ = recall.ParseDate(tabular.Cell(row, cols.ProdFrom))
		rec.ProdTo, _ = recall.ParseDate(tabular.Cell(row, cols.ProdTo))
		rec.RecallDate, _ = recall.ParseDate(tabular.Cell(row, cols.RecallDate))
		records = append(records, rec)
	}
	return records, nil
}

// Aggregate filters, normalizes and groups records. Exclusion is decided on the
// raw names; rows without a recall date or with an empty key field are dropped.
// The result is sorted by manufacturer, model, year descending, then reason.
func Aggregate(v *vocab.Vocabulary, records []recall.Record) ([]Row, Stats) {
	stats := Stats{RowsRead: len(records)}
	groups := make(map[Key]*Row)

	for i := range records {
		rec := &records[i]
		if v.Excluded(rec.Manufacturer, rec.Model) {
			stats.Excluded++
			continue
		}
		if rec.RecallDate == nil {
			stats.BadDate++
			continue
		}

		key := Key{
			Manufacturer: v.CanonicalBrand(rec.Manufacturer),
			Model:        vocab.CleanModel(rec.Model),
			Reason:       strings.TrimSpace(rec.Reason),
			Year:         rec.RecallDate.Year(),
		}
		if key.Manufacturer == "" || key.Model == "" || key.Reason == "" {
			stats.MissingFields++
			continue
		}

		fold(groups, Row{
			Key:             key,
			ProdFrom:        rec.ProdFrom,
			ProdTo:          rec.ProdTo,
			RecallDate:      rec.RecallDate,
			RecallCount:     rec.RecallCount,
			CorrectionCount: rec.CorrectionCount,
		})
	}

	rows := collect(groups)
	stats.Groups = len(rows)
	return rows, stats
}

// Merge combines already aggregated batches as if their inputs had been
// aggregated together.
func Merge(batches ...[]Row) []Row {
	groups := make(map[Key]*Row)
	for _, batch := range batches {
		for _, row := range batch {
			fold(groups, row)
		}
	}
	return collect(groups)
}

func fold(groups map[Key]*Row, row Row) {
	acc, ok := groups[row.Key]
	if !ok {
		r := row
		groups[row.Key] = &r
		return
	}
	acc.RecallCount += row.RecallCount
	acc.CorrectionCount += row.CorrectionCount
	acc.ProdFrom = recall.EarlierDate(acc.ProdFrom, row.ProdFrom)
	acc.ProdTo = recall.LaterDate(acc.ProdTo, row.ProdTo)
	acc.RecallDate = recall.LaterDate(acc.RecallDate, row.RecallDate)
}

func collect(groups map[Key]*Row) []Row {
	rows := make([]Row, 0, len(groups))
	for _, r := range groups {
		r.CorrectionRate = recall.Rate(r.RecallCount, r.CorrectionCount)
		rows = append(rows, *r)
	}
	slices.SortFunc(rows, compareRows)
	return rows
}

func compareRows(a, b Row) int {
	return cmp.Or(
		cmp.Compare(a.Manufacturer, b.Manufacturer),
		cmp.Compare(a.Model, b.Model),
		cmp.Compare(b.Year, a.Year),
		cmp.Compare(a.Reason, b.Reason),
	)
}
