package catalog

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/lemonscanner/lemon-scanner/internal/conf"
	"github.com/lemonscanner/lemon-scanner/internal/datastore"
	"github.com/lemonscanner/lemon-scanner/internal/errors"
	"github.com/lemonscanner/lemon-scanner/internal/loader"
	"github.com/lemonscanner/lemon-scanner/internal/logger"
	"github.com/lemonscanner/lemon-scanner/internal/observability"
	"github.com/lemonscanner/lemon-scanner/internal/recall"
	"github.com/lemonscanner/lemon-scanner/internal/vocab"
)

func testLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func seedRecords() []recall.Record {
	return []recall.Record{
		{Manufacturer: "현대", Model: "쏘나타", Reason: "엔진 누유로 인한 화재 위험",
			RecallDate: day(2023, 8, 1), RecallCount: 30, CorrectionCount: 20, CorrectionRate: 66.67},
		{Manufacturer: "현대", Model: "쏘나타", Reason: "브레이크 호스 손상으로 인한 화재",
			RecallDate: day(2022, 5, 10), RecallCount: 100, CorrectionCount: 50, CorrectionRate: 50.01},
		{Manufacturer: "현대", Model: "아반떼", Reason: "후방 카메라 화면 미표시",
			RecallDate: day(2022, 3, 2), RecallCount: 5, CorrectionCount: 5, CorrectionRate: 100},
		{Manufacturer: "현대", Model: "아반떼", Reason: "에어백 미전개 가능성",
			RecallDate: day(2021, 11, 20), RecallCount: 10, CorrectionCount: 8, CorrectionRate: 80},
		{Manufacturer: "현대", Model: "그랜저", Reason: "엔진 ECU 소프트웨어 오류",
			RecallDate: day(2020, 1, 15), RecallCount: 10, CorrectionCount: 4, CorrectionRate: 40},
		{Manufacturer: "기아", Model: "K5", Reason: "ECU 소프트웨어 오류",
			RecallDate: day(2023, 2, 14), RecallCount: 10, CorrectionCount: 9, CorrectionRate: 90},
	}
}

type fixture struct {
	db     *gorm.DB
	loader *loader.Loader
	svc    *Service
}

func newFixture(t *testing.T, records []recall.Record) *fixture {
	t.Helper()
	m, err := datastore.Open(&conf.DatabaseSettings{
		Driver:    conf.DriverSQLite,
		SlowQuery: time.Second,
		SQLite:    conf.SQLiteSettings{Path: filepath.Join(t.TempDir(), "recalls.db")},
	}, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	require.NoError(t, m.Initialize(t.Context()))

	v, err := vocab.Default()
	require.NoError(t, err)
	l := loader.New(m.DB(), v, testLogger(), nil)
	if len(records) > 0 {
		_, err = l.Load(t.Context(), records)
		require.NoError(t, err)
	}

	obs, err := observability.NewMetrics()
	require.NoError(t, err)
	return &fixture{db: m.DB(), loader: l, svc: New(m.DB(), time.Hour, testLogger(), obs.HTTP)}
}

func TestLookups(t *testing.T) {
	t.Parallel()
	f := newFixture(t, seedRecords())
	ctx := t.Context()

	brands, err := f.svc.Brands(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"기아", "현대"}, brands)

	models, err := f.svc.Models(ctx, "현대")
	require.NoError(t, err)
	assert.Equal(t, []string{"그랜저", "쏘나타", "아반떼"}, models)

	none, err := f.svc.Models(ctx, "없는브랜드")
	require.NoError(t, err)
	assert.Empty(t, none)

	v, err := vocab.Default()
	require.NoError(t, err)
	keywords, err := f.svc.Keywords(ctx)
	require.NoError(t, err)
	require.Len(t, keywords, len(v.Keywords))
	for i := 1; i < len(keywords); i++ {
		assert.Less(t, keywords[i-1].Text, keywords[i].Text)
	}
	assert.Contains(t, keywords, KeywordInfo{Text: v.Keywords[0].Text, Description: v.Keywords[0].Description})
}

func TestSearch(t *testing.T) {
	t.Parallel()
	f := newFixture(t, seedRecords())

	tests := []struct {
		name   string
		filter SearchFilter
		want   []string // reasons, newest first
	}{
		{
			name:   "no filter",
			filter: SearchFilter{Brand: AllValue, Model: "", Keyword: AllValue},
			want: []string{
				"엔진 누유로 인한 화재 위험",
				"ECU 소프트웨어 오류",
				"브레이크 호스 손상으로 인한 화재",
				"후방 카메라 화면 미표시",
				"에어백 미전개 가능성",
				"엔진 ECU 소프트웨어 오류",
			},
		},
		{
			name:   "brand and model",
			filter: SearchFilter{Brand: "현대", Model: "아반떼"},
			want:   []string{"후방 카메라 화면 미표시", "에어백 미전개 가능성"},
		},
		{
			name:   "year",
			filter: SearchFilter{Year: 2022},
			want:   []string{"브레이크 호스 손상으로 인한 화재", "후방 카메라 화면 미표시"},
		},
		{
			name:   "keyword across brands",
			filter: SearchFilter{Keyword: "ECU"},
			want:   []string{"ECU 소프트웨어 오류", "엔진 ECU 소프트웨어 오류"},
		},
		{
			name:   "keyword and brand",
			filter: SearchFilter{Brand: "현대", Keyword: "화재"},
			want:   []string{"엔진 누유로 인한 화재 위험", "브레이크 호스 손상으로 인한 화재"},
		},
		{
			name:   "no match",
			filter: SearchFilter{Brand: "기아", Keyword: "화재"},
			want:   []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			views, err := f.svc.Search(t.Context(), tt.filter)
			require.NoError(t, err)
			reasons := make([]string, 0, len(views))
			for _, v := range views {
				reasons = append(reasons, v.Reason)
			}
			assert.Equal(t, tt.want, reasons)
		})
	}
}

func TestSearchViewFields(t *testing.T) {
	t.Parallel()
	f := newFixture(t, seedRecords())

	views, err := f.svc.Search(t.Context(), SearchFilter{Brand: "기아"})
	require.NoError(t, err)
	require.Len(t, views, 1)
	v := views[0]
	assert.NotZero(t, v.ID)
	assert.Equal(t, "기아", v.Brand)
	assert.Equal(t, "K5", v.Model)
	assert.Equal(t, 10, v.RecallCount)
	assert.Equal(t, 9, v.CorrectionCount)
	assert.InDelta(t, 90.0, v.CorrectionRate, 0.001)
	require.NotNil(t, v.RecallDate)
	assert.Equal(t, "2023-02-14", recall.FormatDate(v.RecallDate))
	assert.Nil(t, v.ProdFrom)
}

func TestSearchLimit(t *testing.T) {
	t.Parallel()
	records := make([]recall.Record, 0, SearchLimit+5)
	for i := range SearchLimit + 5 {
		records = append(records, recall.Record{
			Manufacturer: "현대", Model: "포터", Reason: "적재함 결함 " + string(rune('가'+i)),
			RecallDate: day(2020, 1, 1+i%28), RecallCount: 1,
		})
	}
	f := newFixture(t, records)

	views, err := f.svc.Search(t.Context(), SearchFilter{})
	require.NoError(t, err)
	assert.Len(t, views, SearchLimit)
}

func TestCompare(t *testing.T) {
	t.Parallel()
	f := newFixture(t, seedRecords())

	stats, err := f.svc.Compare(t.Context(), "현대", "쏘나타")
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Recalls)
	assert.InDelta(t, 58.34, stats.AverageRate, 0.001)

	texts := make([]string, 0, len(stats.Keywords))
	for _, kw := range stats.Keywords {
		texts = append(texts, kw.Text)
		assert.NotEmpty(t, kw.Description)
	}
	assert.Equal(t, []string{"화재", "누유", "브레이크", "엔진"}, texts)
	assert.Equal(t, int64(2), stats.Keywords[0].Count)
	assert.Equal(t, int64(1), stats.Keywords[1].Count)
}

func TestCompareUnknownModel(t *testing.T) {
	t.Parallel()
	f := newFixture(t, seedRecords())

	stats, err := f.svc.Compare(t.Context(), "현대", "포니")
	require.NoError(t, err)
	assert.Zero(t, stats.Recalls)
	assert.Zero(t, stats.AverageRate)
	assert.Empty(t, stats.Keywords)
}

func TestModelQueriesRequireBrandAndModel(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	for _, args := range [][2]string{{"", "쏘나타"}, {"현대", ""}, {AllValue, "쏘나타"}, {"현대", AllValue}} {
		_, err := f.svc.Compare(t.Context(), args[0], args[1])
		assert.True(t, errors.IsCategory(err, errors.CategoryValidation), "compare %v", args)

		_, err = f.svc.Profile(t.Context(), args[0], args[1])
		assert.True(t, errors.IsCategory(err, errors.CategoryValidation), "profile %v", args)
	}
}

func TestProfile(t *testing.T) {
	t.Parallel()
	f := newFixture(t, seedRecords())

	p, err := f.svc.Profile(t.Context(), "현대", "아반떼")
	require.NoError(t, err)
	require.Len(t, p.History, 2)
	assert.Equal(t, "2022-03-02", recall.FormatDate(p.History[0].RecallDate))
	assert.Equal(t, 5, p.History[0].RecallCount)
	assert.Equal(t, "2021-11-20", recall.FormatDate(p.History[1].RecallDate))
	assert.Equal(t, "후방 카메라 화면 미표시 에어백 미전개 가능성", p.Reasons)
}

func TestSummary(t *testing.T) {
	t.Parallel()
	f := newFixture(t, seedRecords())

	sum, err := f.svc.Summary(t.Context())
	require.NoError(t, err)
	assert.Equal(t, int64(6), sum.TotalRecalls)
	assert.Equal(t, int64(2), sum.TotalBrands)
	assert.Equal(t, int64(4), sum.TotalModels)
	assert.Equal(t, "현대", sum.TopBrand)
	assert.Equal(t, int64(5), sum.TopBrandRecalls)
	assert.Equal(t, "2020-01-15", recall.FormatDate(sum.PeriodFrom))
	assert.Equal(t, "2023-08-01", recall.FormatDate(sum.PeriodTo))
}

func TestSummaryEmptyStore(t *testing.T) {
	t.Parallel()
	f := newFixture(t, nil)

	sum, err := f.svc.Summary(t.Context())
	require.NoError(t, err)
	assert.Equal(t, &Summary{}, sum)
}

func TestRankings(t *testing.T) {
	t.Parallel()
	f := newFixture(t, seedRecords())

	r, err := f.svc.Rankings(t.Context())
	require.NoError(t, err)
	require.Len(t, r.ByRecalls, 2)
	assert.Equal(t, "현대", r.ByRecalls[0].Brand)
	assert.Equal(t, int64(5), r.ByRecalls[0].Recalls)
	assert.Equal(t, "기아", r.ByRecalls[1].Brand)
	assert.Equal(t, int64(1), r.ByRecalls[1].Recalls)

	// 기아 has fewer than RankingMinRecalls recalls.
	require.Len(t, r.ByRate, 1)
	assert.Equal(t, "현대", r.ByRate[0].Brand)
	assert.InDelta(t, 67.34, r.ByRate[0].AverageRate, 0.001)
}

func TestLookupsAreCachedUntilInvalidated(t *testing.T) {
	t.Parallel()
	f := newFixture(t, seedRecords())
	ctx := t.Context()

	before, err := f.svc.Brands(ctx)
	require.NoError(t, err)

	_, err = f.loader.Load(ctx, []recall.Record{
		{Manufacturer: "르노코리아", Model: "QM6", Reason: "연료 호스 누유", RecallDate: day(2024, 1, 5), RecallCount: 3},
	})
	require.NoError(t, err)

	cachedBrands, err := f.svc.Brands(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, cachedBrands)

	f.svc.Invalidate()
	after, err := f.svc.Brands(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"기아", "르노코리아", "현대"}, after)

	// Search is never cached.
	views, err := f.svc.Search(ctx, SearchFilter{Brand: "르노코리아"})
	require.NoError(t, err)
	assert.Len(t, views, 1)
}
