package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lemonscanner/lemon-scanner/internal/catalog"
	"github.com/lemonscanner/lemon-scanner/internal/conf"
	"github.com/lemonscanner/lemon-scanner/internal/errors"
	"github.com/lemonscanner/lemon-scanner/internal/logger"
	"github.com/lemonscanner/lemon-scanner/internal/news"
	"github.com/lemonscanner/lemon-scanner/internal/observability"
)

type mockCatalog struct {
	mock.Mock
}

func (m *mockCatalog) Brands(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockCatalog) Models(ctx context.Context, brand string) ([]string, error) {
	args := m.Called(ctx, brand)
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockCatalog) Keywords(ctx context.Context) ([]catalog.KeywordInfo, error) {
	args := m.Called(ctx)
	return args.Get(0).([]catalog.KeywordInfo), args.Error(1)
}

func (m *mockCatalog) Search(ctx context.Context, filter catalog.SearchFilter) ([]catalog.RecallView, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]catalog.RecallView), args.Error(1)
}

func (m *mockCatalog) Compare(ctx context.Context, brand, model string) (*catalog.ModelStats, error) {
	args := m.Called(ctx, brand, model)
	stats, _ := args.Get(0).(*catalog.ModelStats)
	return stats, args.Error(1)
}

func (m *mockCatalog) Profile(ctx context.Context, brand, model string) (*catalog.ModelProfile, error) {
	args := m.Called(ctx, brand, model)
	profile, _ := args.Get(0).(*catalog.ModelProfile)
	return profile, args.Error(1)
}

func (m *mockCatalog) Summary(ctx context.Context) (*catalog.Summary, error) {
	args := m.Called(ctx)
	summary, _ := args.Get(0).(*catalog.Summary)
	return summary, args.Error(1)
}

func (m *mockCatalog) Rankings(ctx context.Context) (*catalog.Rankings, error) {
	args := m.Called(ctx)
	rankings, _ := args.Get(0).(*catalog.Rankings)
	return rankings, args.Error(1)
}

type stubNews struct {
	articles []news.Article
	err      error
	queries  []string
}

func (s *stubNews) Search(_ context.Context, query string) ([]news.Article, error) {
	s.queries = append(s.queries, query)
	return s.articles, s.err
}

func testLogger() logger.Logger {
	return logger.NewSlogLogger(io.Discard, logger.LogLevelError, time.UTC)
}

func newTestServer(t *testing.T, cat Catalog, opts ...Option) *Server {
	t.Helper()
	return New(&conf.ServerSettings{Listen: "127.0.0.1:0", ShutdownTimeout: time.Second}, cat, testLogger(), opts...)
}

func get(t *testing.T, s *Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequestWithContext(t.Context(), http.MethodGet, target, http.NoBody)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestLookupEndpoints(t *testing.T) {
	t.Parallel()
	cat := new(mockCatalog)
	cat.On("Brands", mock.Anything).Return([]string{"기아", "현대"}, nil)
	cat.On("Models", mock.Anything, "현대").Return([]string{"쏘나타", "아반떼"}, nil)
	cat.On("Keywords", mock.Anything).Return([]catalog.KeywordInfo{{Text: "화재", Description: "화재 위험"}}, nil)
	s := newTestServer(t, cat)

	rec := get(t, s, "/api/brands")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"기아", "현대"}, decode[[]string](t, rec))

	rec = get(t, s, "/api/brands/"+url.PathEscape("현대")+"/models")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"쏘나타", "아반떼"}, decode[[]string](t, rec))

	rec = get(t, s, "/api/keywords")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []catalog.KeywordInfo{{Text: "화재", Description: "화재 위험"}}, decode[[]catalog.KeywordInfo](t, rec))

	cat.AssertExpectations(t)
}

func TestSearchRecallsParsesFilter(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query url.Values
		want  catalog.SearchFilter
	}{
		{
			name:  "all filters",
			query: url.Values{"brand": {"현대"}, "model": {"쏘나타"}, "year": {"2022"}, "keyword": {"화재"}},
			want:  catalog.SearchFilter{Brand: "현대", Model: "쏘나타", Year: 2022, Keyword: "화재"},
		},
		{
			name:  "all year",
			query: url.Values{"brand": {catalog.AllValue}, "year": {catalog.AllValue}},
			want:  catalog.SearchFilter{Brand: catalog.AllValue},
		},
		{
			name:  "empty",
			query: url.Values{},
			want:  catalog.SearchFilter{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cat := new(mockCatalog)
			views := []catalog.RecallView{{ID: 7, Brand: "현대", Model: "쏘나타", Reason: "엔진 누유"}}
			cat.On("Search", mock.Anything, tt.want).Return(views, nil)
			s := newTestServer(t, cat)

			rec := get(t, s, "/api/recalls?"+tt.query.Encode())
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			got := decode[[]catalog.RecallView](t, rec)
			require.Len(t, got, 1)
			assert.Equal(t, uint(7), got[0].ID)
			cat.AssertExpectations(t)
		})
	}
}

func TestSearchRecallsRejectsBadYear(t *testing.T) {
	t.Parallel()
	cat := new(mockCatalog)
	s := newTestServer(t, cat)

	rec := get(t, s, "/api/recalls?year=twenty")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Contains(t, resp.Error, "invalid year")
	assert.NotEmpty(t, resp.CorrelationID)
	cat.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestModelEndpoints(t *testing.T) {
	t.Parallel()
	cat := new(mockCatalog)
	cat.On("Compare", mock.Anything, "현대", "쏘나타").Return(&catalog.ModelStats{
		Brand: "현대", Model: "쏘나타", Recalls: 2, AverageRate: 58.34,
		Keywords: []catalog.KeywordCount{{Text: "화재", Count: 2}},
	}, nil)
	cat.On("Profile", mock.Anything, "현대", "쏘나타").Return(&catalog.ModelProfile{
		Brand: "현대", Model: "쏘나타", Reasons: "엔진 누유",
	}, nil)
	s := newTestServer(t, cat)

	q := url.Values{"brand": {"현대"}, "model": {"쏘나타"}}.Encode()
	rec := get(t, s, "/api/compare?"+q)
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[catalog.ModelStats](t, rec)
	assert.Equal(t, int64(2), stats.Recalls)
	assert.InDelta(t, 58.34, stats.AverageRate, 0.001)

	rec = get(t, s, "/api/profile?"+q)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "엔진 누유", decode[catalog.ModelProfile](t, rec).Reasons)
}

func TestErrorCategoriesMapToStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		leaksError bool
	}{
		{
			name:       "validation",
			err:        errors.Newf("brand and model are required").Category(errors.CategoryValidation).Build(),
			wantStatus: http.StatusBadRequest,
			leaksError: true,
		},
		{
			name:       "database",
			err:        errors.Newf("catalog query compare: disk I/O error").Category(errors.CategoryDatabase).Build(),
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "plain error",
			err:        fmt.Errorf("boom"),
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cat := new(mockCatalog)
			cat.On("Compare", mock.Anything, mock.Anything, mock.Anything).Return(nil, tt.err)
			s := newTestServer(t, cat)

			rec := get(t, s, "/api/compare?brand=x")
			assert.Equal(t, tt.wantStatus, rec.Code)
			resp := decode[ErrorResponse](t, rec)
			assert.Equal(t, tt.wantStatus, resp.Code)
			if tt.leaksError {
				assert.Equal(t, tt.err.Error(), resp.Error)
			} else {
				assert.Equal(t, http.StatusText(tt.wantStatus), resp.Error)
			}
		})
	}
}

func TestDashboardEndpoints(t *testing.T) {
	t.Parallel()
	cat := new(mockCatalog)
	cat.On("Summary", mock.Anything).Return(&catalog.Summary{TotalRecalls: 6, TopBrand: "현대"}, nil)
	cat.On("Rankings", mock.Anything).Return(&catalog.Rankings{
		ByRecalls: []catalog.BrandRank{{Brand: "현대", Recalls: 5}},
		ByRate:    []catalog.BrandRank{},
	}, nil)
	s := newTestServer(t, cat)

	rec := get(t, s, "/api/summary")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "현대", decode[catalog.Summary](t, rec).TopBrand)

	rec = get(t, s, "/api/rankings")
	require.Equal(t, http.StatusOK, rec.Code)
	r := decode[catalog.Rankings](t, rec)
	require.Len(t, r.ByRecalls, 1)
	assert.Equal(t, int64(5), r.ByRecalls[0].Recalls)
	assert.Empty(t, r.ByRate)
}

func TestNewsEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("not configured", func(t *testing.T) {
		t.Parallel()
		s := newTestServer(t, new(mockCatalog))
		rec := get(t, s, "/api/news?q=test")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("configured", func(t *testing.T) {
		t.Parallel()
		stub := &stubNews{articles: []news.Article{{Title: "쏘나타 리콜", Link: "https://n.news.test/a"}}}
		s := newTestServer(t, new(mockCatalog), WithNews(stub))

		rec := get(t, s, "/api/news?q="+url.QueryEscape("현대 쏘나타"))
		require.Equal(t, http.StatusOK, rec.Code)
		got := decode[[]news.Article](t, rec)
		require.Len(t, got, 1)
		assert.Equal(t, "쏘나타 리콜", got[0].Title)
		assert.Equal(t, []string{"현대 쏘나타"}, stub.queries)
	})

	t.Run("upstream failure", func(t *testing.T) {
		t.Parallel()
		stub := &stubNews{err: errors.Newf("news API returned status 500").Category(errors.CategoryNetwork).Build()}
		s := newTestServer(t, new(mockCatalog), WithNews(stub))
		rec := get(t, s, "/api/news?q=x")
		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestUnknownRouteIsJSON404(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, new(mockCatalog))

	rec := get(t, s, "/api/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, decode[ErrorResponse](t, rec).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()
	obs, err := observability.NewMetrics()
	require.NoError(t, err)
	cat := new(mockCatalog)
	cat.On("Brands", mock.Anything).Return([]string{"현대"}, nil)
	cat.On("Compare", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, errors.Newf("missing").Category(errors.CategoryValidation).Build())
	s := newTestServer(t, cat, WithMetrics(obs))

	require.Equal(t, http.StatusOK, get(t, s, "/api/brands").Code)
	require.Equal(t, http.StatusBadRequest, get(t, s, "/api/compare").Code)

	rec := get(t, s, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `lemonscan_http_requests_total{method="GET",path="/api/brands",status="200"} 1`)
	assert.Contains(t, body, `lemonscan_http_requests_total{method="GET",path="/api/compare",status="400"} 1`)
	assert.Contains(t, body, `lemonscan_http_request_errors_total{category="validation",method="GET",path="/api/compare"} 1`)
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, new(mockCatalog))

	rec := get(t, s, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["news_enabled"])
}

func TestRunStopsOnCancel(t *testing.T) {
	s := newTestServer(t, new(mockCatalog))
	ctx, cancel := context.WithCancel(t.Context())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return s.echo.ListenerAddr() != nil }, 5*time.Second, 10*time.Millisecond)

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	req, err := http.NewRequestWithContext(t.Context(), http.MethodGet, "http://"+s.echo.ListenerAddr().String()+"/healthz", http.NoBody)
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
