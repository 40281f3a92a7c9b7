package aggregator

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lemonscanner/lemon-scanner/internal/errors"
	"github.com/lemonscanner/lemon-scanner/internal/logger"
	"github.com/lemonscanner/lemon-scanner/internal/observability"
	"github.com/lemonscanner/lemon-scanner/internal/observability/metrics"
	"github.com/lemonscanner/lemon-scanner/internal/recall"
	"github.com/lemonscanner/lemon-scanner/internal/tabular"
	"github.com/lemonscanner/lemon-scanner/internal/vocab"
)

func defaultVocab(t *testing.T) *vocab.Vocabulary {
	t.Helper()
	v, err := vocab.Default()
	require.NoError(t, err)
	return v
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestAggregateMergesModelVariants(t *testing.T) {
	t.Parallel()

	records := []recall.Record{
		{Manufacturer: "Hyundai", Model: "Sonata(DN8)", Reason: "engine", RecallDate: day(2023, 5, 1),
			ProdFrom: day(2020, 1, 1), ProdTo: day(2021, 6, 30), RecallCount: 10, CorrectionCount: 5},
		{Manufacturer: "Hyundai", Model: "Sonata", Reason: "engine", RecallDate: day(2023, 8, 1),
			ProdFrom: day(2019, 3, 1), ProdTo: day(2020, 12, 31), RecallCount: 20, CorrectionCount: 15},
	}

	rows, stats := Aggregate(defaultVocab(t), records)
	require.Len(t, rows, 1)

	got := rows[0]
	assert.Equal(t, Key{Manufacturer: "Hyundai", Model: "Sonata", Reason: "engine", Year: 2023}, got.Key)
	assert.Equal(t, 30, got.RecallCount)
	assert.Equal(t, 20, got.CorrectionCount)
	assert.InDelta(t, 66.67, got.CorrectionRate, 1e-9)
	assert.Equal(t, day(2019, 3, 1), got.ProdFrom)
	assert.Equal(t, day(2021, 6, 30), got.ProdTo)
	assert.Equal(t, day(2023, 8, 1), got.RecallDate)
	assert.Equal(t, Stats{RowsRead: 2, Groups: 1}, stats)
}

func TestAggregateDropsRows(t *testing.T) {
	t.Parallel()

	records := []recall.Record{
		{Manufacturer: "스즈키모터스코리아(주)", Model: "스위프트", Reason: "브레이크", RecallDate: day(2022, 1, 1), RecallCount: 3},
		{Manufacturer: "현대자동차(주)", Model: "카운티 버스", Reason: "브레이크", RecallDate: day(2022, 1, 1), RecallCount: 3},
		{Manufacturer: "현대자동차(주)", Model: "아반떼", Reason: "브레이크", RecallDate: nil, RecallCount: 3},
		{Manufacturer: "현대자동차(주)", Model: "(CN7)", Reason: "브레이크", RecallDate: day(2022, 1, 1), RecallCount: 3},
		{Manufacturer: "현대자동차(주)", Model: "아반떼", Reason: " ", RecallDate: day(2022, 1, 1), RecallCount: 3},
		{Manufacturer: "현대자동차(주)", Model: "아반떼(CN7)", Reason: "브레이크", RecallDate: day(2022, 1, 1), RecallCount: 3},
	}

	rows, stats := Aggregate(defaultVocab(t), records)

	require.Len(t, rows, 1)
	assert.Equal(t, "현대", rows[0].Manufacturer)
	assert.Equal(t, "아반떼", rows[0].Model)
	assert.Equal(t, Stats{RowsRead: 6, Excluded: 2, BadDate: 1, MissingFields: 2, Groups: 1}, stats)
	for _, r := range rows {
		assert.NotContains(t, r.Manufacturer, "스즈키")
	}
}

func TestAggregateZeroCounts(t *testing.T) {
	t.Parallel()

	rows, _ := Aggregate(defaultVocab(t), []recall.Record{
		{Manufacturer: "기아(주)", Model: "K5", Reason: "배선", RecallDate: day(2021, 2, 3)},
		{Manufacturer: "기아(주)", Model: "K5", Reason: "배선", RecallDate: day(2021, 4, 3), CorrectionCount: 4},
	})

	require.Len(t, rows, 1)
	assert.Zero(t, rows[0].CorrectionRate)
	assert.Equal(t, 4, rows[0].CorrectionCount)
}

func TestAggregateOrdering(t *testing.T) {
	t.Parallel()

	rows, _ := Aggregate(defaultVocab(t), []recall.Record{
		{Manufacturer: "기아(주)", Model: "K5", Reason: "b", RecallDate: day(2020, 1, 1)},
		{Manufacturer: "현대자동차(주)", Model: "쏘나타", Reason: "a", RecallDate: day(2019, 1, 1)},
		{Manufacturer: "기아(주)", Model: "K5", Reason: "a", RecallDate: day(2022, 1, 1)},
		{Manufacturer: "기아(주)", Model: "EV6", Reason: "a", RecallDate: day(2021, 1, 1)},
	})

	var got []string
	for _, r := range rows {
		got = append(got, r.Manufacturer+"/"+r.Model+"/"+r.Reason)
	}
	assert.Equal(t, []string{"기아/EV6/a", "기아/K5/a", "기아/K5/b", "현대/쏘나타/a"}, got)
	assert.Equal(t, 2022, rows[1].Year)
}

func TestMergeEqualsSingleBatch(t *testing.T) {
	t.Parallel()

	v := defaultVocab(t)
	records := []recall.Record{
		{Manufacturer: "현대자동차(주)", Model: "쏘나타(DN8)", Reason: "엔진", RecallDate: day(2023, 5, 1), ProdFrom: day(2020, 1, 1), ProdTo: day(2021, 1, 1), RecallCount: 10, CorrectionCount: 5},
		{Manufacturer: "현대자동차(주)", Model: "쏘나타", Reason: "엔진", RecallDate: day(2023, 9, 1), ProdFrom: day(2019, 1, 1), ProdTo: day(2020, 6, 1), RecallCount: 7, CorrectionCount: 7},
		{Manufacturer: "기아(주)", Model: "K5", Reason: "배선", RecallDate: day(2021, 4, 3), RecallCount: 3, CorrectionCount: 1},
		{Manufacturer: "현대자동차(주)", Model: "쏘나타", Reason: "엔진", RecallDate: day(2023, 2, 1), ProdTo: day(2022, 2, 1), RecallCount: 1},
		{Manufacturer: "기아(주)", Model: "K5", Reason: "배선", RecallDate: day(2021, 8, 3), RecallCount: 9, CorrectionCount: 9},
	}

	whole, _ := Aggregate(v, records)
	for split := 1; split < len(records); split++ {
		left, _ := Aggregate(v, records[:split])
		right, _ := Aggregate(v, records[split:])
		assert.Equal(t, whole, Merge(left, right), "split at %d", split)
	}

	for _, r := range whole {
		assert.GreaterOrEqual(t, r.CorrectionRate, 0.0)
		assert.LessOrEqual(t, r.CorrectionRate, 100.0)
		assert.InDelta(t, recall.Rate(r.RecallCount, r.CorrectionCount), r.CorrectionRate, 1e-9)
	}
}

func TestRecordsFromTable(t *testing.T) {
	t.Parallel()

	tbl := &tabular.Table{
		Name:   "raw",
		Header: []string{"제작자", "차명", "리콜사유", "리콜개시일", "리콜대수", "시정대수", "시정율(퍼센트)"},
		Rows: [][]string{
			{"기아(주)", "K5", "배선", "2021.04.03", "1,000", "250", "25"},
			{"기아(주)", "K5", "배선", "미정"},
		},
	}

	records, err := RecordsFromTable(tbl)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, day(2021, 4, 3), records[0].RecallDate)
	assert.Equal(t, 1000, records[0].RecallCount)
	assert.InDelta(t, 25, records[0].CorrectionRate, 1e-9)
	assert.Nil(t, records[1].RecallDate)
	assert.Nil(t, records[0].ProdFrom)

	_, err = RecordsFromTable(&tabular.Table{Header: []string{"제작자", "차명"}})
	assert.True(t, errors.IsCategory(err, errors.CategoryFileParsing))
}

func TestSheetLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "현대", "현대"},
		{"forbidden characters", `A/B\C:D*E?F[G]`, "ABCDEFG"},
		{"apostrophes", "'Kia'", "Kia"},
		{"truncated", strings.Repeat("가", 35), strings.Repeat("가", 30)},
		{"empty after sanitizing", "[]:", fallbackLabel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, SheetLabel(tt.in, DefaultLabelLength))
		})
	}
}

func TestPartitionRowsSharesCollidingLabels(t *testing.T) {
	t.Parallel()

	long := strings.Repeat("A", 30)
	rows := []Row{
		{Key: Key{Manufacturer: long + "1", Model: "x"}},
		{Key: Key{Manufacturer: long + "2", Model: "y"}},
		{Key: Key{Manufacturer: "Kia", Model: "K5"}},
		{Key: Key{Manufacturer: "KIA", Model: "K7"}},
		{Key: Key{Manufacturer: "현대", Model: "쏘나타"}},
	}

	parts := PartitionRows(rows, DefaultLabelLength)
	require.Len(t, parts, 3)
	assert.Equal(t, long, parts[0].Label)
	assert.Len(t, parts[0].Rows, 2)
	assert.Equal(t, "Kia", parts[1].Label)
	assert.Len(t, parts[1].Rows, 2)
	assert.Equal(t, "현대", parts[2].Label)
}

const rawCSV = `제작자,차명,리콜사유,생산기간(부터),생산기간(까지),리콜개시일,리콜대수,시정대수,시정률(퍼센트)
현대자동차(주),쏘나타(DN8),엔진 누유로 인한 화재 위험,2019-01-01,2020-01-01,2023-05-01,10,5,50
현대자동차(주),쏘나타,엔진 누유로 인한 화재 위험,2019-06-01,2021-01-01,2023-08-01,20,15,75
기아(주),K5,배선 불량,2020-01-01,2020-12-31,2022-03-02,"1,000",900,90
스즈키모터스코리아(주),버그만,브레이크,2020-01-01,2020-12-31,2022-03-02,5,5,100
`

func newTestAggregator(t *testing.T, m *metrics.PipelineMetrics) *Aggregator {
	t.Helper()
	log := logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
	return New(defaultVocab(t), Options{Encoding: "auto"}, log, m)
}

func TestRunWritesOneSheetPerManufacturer(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "raw.csv")
	output := filepath.Join(dir, "recall_by_brand.xlsx")
	require.NoError(t, os.WriteFile(input, []byte(rawCSV), 0o600))

	m, err := observability.NewMetrics()
	require.NoError(t, err)

	stats, err := newTestAggregator(t, m.Pipeline).Run(t.Context(), input, output)
	require.NoError(t, err)
	assert.Equal(t, &Stats{RowsRead: 4, Excluded: 1, Groups: 2, Partitions: 2}, stats)

	tables, missing, err := tabular.ReadWorkbook(output, nil)
	require.NoError(t, err)
	assert.Empty(t, missing)
	require.Len(t, tables, 2)

	assert.Equal(t, "기아", tables[0].Name)
	assert.Equal(t, recall.OutputHeader, tables[0].Header)
	assert.Equal(t, "현대", tables[1].Name)
	require.Len(t, tables[1].Rows, 1)
	assert.Equal(t, []string{
		"현대", "쏘나타", "엔진 누유로 인한 화재 위험", "2023",
		"2019-01-01", "2021-01-01", "2023-08-01", "30", "20", "66.67",
	}, tables[1].Rows[0])
}

func TestRunMissingInputWritesNothing(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	output := filepath.Join(dir, "out.xlsx")

	_, err := newTestAggregator(t, nil).Run(context.Background(), filepath.Join(dir, "absent.csv"), output)
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryFileIO))
	assert.NoFileExists(t, output)
}

func TestRunCanceled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := filepath.Join(dir, "raw.csv")
	output := filepath.Join(dir, "out.xlsx")
	require.NoError(t, os.WriteFile(input, []byte(rawCSV), 0o600))

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := newTestAggregator(t, nil).Run(ctx, input, output)
	require.Error(t, err)
	assert.NoFileExists(t, output)
}
