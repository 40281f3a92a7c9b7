// Package catalog implements the read side of the recall store: the lookups,
// filtered search and per-model statistics served to the dashboard.
package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"gorm.io/gorm"

	"github.com/lemonscanner/lemon-scanner/internal/datastore"
	"github.com/lemonscanner/lemon-scanner/internal/datastore/entities"
	"github.com/lemonscanner/lemon-scanner/internal/errors"
	"github.com/lemonscanner/lemon-scanner/internal/logger"
	"github.com/lemonscanner/lemon-scanner/internal/observability/metrics"
	"github.com/lemonscanner/lemon-scanner/internal/recall"
)

const (
	// AllValue is the dashboard's "no filter" choice.
	AllValue = "전체"

	// SearchLimit caps the rows returned by Search.
	SearchLimit = 200

	// TopKeywordLimit caps the keyword frequencies returned by Compare.
	TopKeywordLimit = 10

	// RankingMinRecalls is the recall count a brand needs to enter the rate ranking.
	RankingMinRecalls = 5

	// DefaultCacheTTL applies when New is given a non-positive ttl.
	DefaultCacheTTL = time.Hour
)

// tableNames holds the dialect-quoted schema table names used in joins.
type tableNames struct {
	brand, model, keyword, recall, junction string
}

// Service answers read queries against the recall store.
type Service struct {
	db      *gorm.DB
	tables  tableNames
	cache   *cache.Cache
	log     logger.Logger
	metrics *metrics.HTTPMetrics
}

// New creates a Service. Lookup results are cached for ttl; m may be nil.
func New(db *gorm.DB, ttl time.Duration, log logger.Logger, m *metrics.HTTPMetrics) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{
		db: db,
		tables: tableNames{
			brand:    datastore.Quote(db, entities.Brand{}.TableName()),
			model:    datastore.Quote(db, entities.Model{}.TableName()),
			keyword:  datastore.Quote(db, entities.Keyword{}.TableName()),
			recall:   datastore.Quote(db, entities.Recall{}.TableName()),
			junction: datastore.Quote(db, entities.RecallKeyword{}.TableName()),
		},
		cache:   cache.New(ttl, ttl*2),
		log:     log,
		metrics: m,
	}
}

// Invalidate drops every cached lookup, typically after a load run.
func (s *Service) Invalidate() {
	s.cache.Flush()
}

// Brands returns every brand name in order.
func (s *Service) Brands(ctx context.Context) ([]string, error) {
	return cached(s, "brands", func() ([]string, error) {
		names := make([]string, 0)
		err := s.db.WithContext(ctx).Model(&entities.Brand{}).
			Order("brand_name").
			Pluck("brand_name", &names).Error
		if err != nil {
			return nil, queryError(err, "brands")
		}
		return names, nil
	})
}

// Models returns the model names of a brand in order. An unknown brand has no models.
func (s *Service) Models(ctx context.Context, brand string) ([]string, error) {
	return cached(s, "models:"+brand, func() ([]string, error) {
		names := make([]string, 0)
		err := s.db.WithContext(ctx).Table(s.tables.model+" AS m").
			Joins("JOIN "+s.tables.brand+" AS b ON m.brand_id = b.brand_id").
			Where("b.brand_name = ?", brand).
			Order("m.model_name").
			Pluck("m.model_name", &names).Error
		if err != nil {
			return nil, queryError(err, "models")
		}
		return names, nil
	})
}

// KeywordInfo is a vocabulary keyword as stored.
type KeywordInfo struct {
	Text        string `json:"text" gorm:"column:keyword_text"`
	Description string `json:"description" gorm:"column:keyword_desc"`
}

// Keywords returns every stored keyword with its description, ordered by text.
func (s *Service) Keywords(ctx context.Context) ([]KeywordInfo, error) {
	return cached(s, "keywords", func() ([]KeywordInfo, error) {
		rows := make([]KeywordInfo, 0)
		err := s.db.WithContext(ctx).Model(&entities.Keyword{}).
			Select("keyword_text, keyword_desc").
			Order("keyword_text").
			Scan(&rows).Error
		if err != nil {
			return nil, queryError(err, "keywords")
		}
		return rows, nil
	})
}

// SearchFilter narrows Search. Empty strings, AllValue and a zero Year match everything.
type SearchFilter struct {
	Brand   string
	Model   string
	Year    int
	Keyword string
}

// RecallView is one recall joined with its model and brand.
type RecallView struct {
	ID              uint       `json:"recall_id" gorm:"column:recall_id"`
	Brand           string     `json:"brand" gorm:"column:brand_name"`
	Model           string     `json:"model" gorm:"column:model_name"`
	Reason          string     `json:"reason" gorm:"column:reason"`
	ProdFrom        *time.Time `json:"prod_from" gorm:"column:prod_from"`
	ProdTo          *time.Time `json:"prod_to" gorm:"column:prod_to"`
	RecallDate      *time.Time `json:"recall_date" gorm:"column:recall_date"`
	RecallCount     int        `json:"recall_count" gorm:"column:recall_count"`
	CorrectionCount int        `json:"correction_count" gorm:"column:correction_count"`
	CorrectionRate  float64    `json:"correction_rate" gorm:"column:correction_rate"`
}

// Search returns at most SearchLimit recalls matching filter, newest first.
func (s *Service) Search(ctx context.Context, filter SearchFilter) ([]RecallView, error) {
	q := s.recallsWithModel(ctx).
		Select("r.recall_id, b.brand_name, m.model_name, r.reason, r.prod_from, r.prod_to, " +
			"r.recall_date, r.recall_count, r.correction_count, r.correction_rate")

	if isSet(filter.Brand) {
		q = q.Where("b.brand_name = ?", filter.Brand)
	}
	if isSet(filter.Model) {
		q = q.Where("m.model_name = ?", filter.Model)
	}
	if filter.Year > 0 {
		from := time.Date(filter.Year, time.January, 1, 0, 0, 0, 0, time.UTC)
		q = q.Where("r.recall_date >= ? AND r.recall_date < ?", from, from.AddDate(1, 0, 0))
	}
	if isSet(filter.Keyword) {
		tagged := s.db.Table(s.tables.junction+" AS j").
			Select("j.recall_id").
			Joins("JOIN "+s.tables.keyword+" AS k ON j.keyword_id = k.keyword_id").
			Where("k.keyword_text = ?", filter.Keyword)
		q = q.Where("r.recall_id IN (?)", tagged)
	}

	views := make([]RecallView, 0)
	err := q.Order("r.recall_date DESC").Order("r.recall_id DESC").Limit(SearchLimit).Scan(&views).Error
	if err != nil {
		return nil, queryError(err, "search")
	}
	return views, nil
}

// KeywordCount is the number of a model's recalls tagged with a keyword.
type KeywordCount struct {
	Text        string `json:"text" gorm:"column:keyword_text"`
	Description string `json:"description" gorm:"column:keyword_desc"`
	Count       int64  `json:"count" gorm:"column:keyword_count"`
}

// ModelStats summarizes the recalls of one model.
type ModelStats struct {
	Brand       string         `json:"brand"`
	Model       string         `json:"model"`
	Recalls     int64          `json:"recalls"`
	AverageRate float64        `json:"average_rate"`
	Keywords    []KeywordCount `json:"keywords"`
}

// Compare returns the recall count, average correction rate and most frequent
// keywords of a model. An unknown model yields zero statistics.
func (s *Service) Compare(ctx context.Context, brand, model string) (*ModelStats, error) {
	if err := requireModel(brand, model); err != nil {
		return nil, err
	}

	var agg struct {
		Recalls int64
		AvgRate *float64
	}
	err := s.recallsOf(ctx, brand, model).
		Select("COUNT(DISTINCT r.recall_id) AS recalls, AVG(r.correction_rate) AS avg_rate").
		Scan(&agg).Error
	if err != nil {
		return nil, queryError(err, "compare")
	}

	stats := &ModelStats{Brand: brand, Model: model, Keywords: make([]KeywordCount, 0)}
	if agg.Recalls == 0 {
		return stats, nil
	}
	stats.Recalls = agg.Recalls
	if agg.AvgRate != nil {
		stats.AverageRate = recall.Round2(*agg.AvgRate)
	}

	err = s.recallsOf(ctx, brand, model).
		Joins("JOIN "+s.tables.junction+" AS j ON r.recall_id = j.recall_id").
		Joins("JOIN "+s.tables.keyword+" AS k ON j.keyword_id = k.keyword_id").
		Select("k.keyword_text, k.keyword_desc, COUNT(*) AS keyword_count").
		Group("k.keyword_text, k.keyword_desc").
		Order("keyword_count DESC").
		Order("k.keyword_text").
		Limit(TopKeywordLimit).
		Scan(&stats.Keywords).Error
	if err != nil {
		return nil, queryError(err, "compare_keywords")
	}
	return stats, nil
}

// ProfileEntry is one recall in a model's history.
type ProfileEntry struct {
	RecallDate     *time.Time `json:"recall_date" gorm:"column:recall_date"`
	Reason         string     `json:"reason" gorm:"column:reason"`
	RecallCount    int        `json:"recall_count" gorm:"column:recall_count"`
	CorrectionRate float64    `json:"correction_rate" gorm:"column:correction_rate"`
}

// ModelProfile is the recall history of one model, newest first, with every
// reason joined into one text.
type ModelProfile struct {
	Brand   string         `json:"brand"`
	Model   string         `json:"model"`
	History []ProfileEntry `json:"history"`
	Reasons string         `json:"reasons"`
}

// Profile returns the recall history of a model.
func (s *Service) Profile(ctx context.Context, brand, model string) (*ModelProfile, error) {
	if err := requireModel(brand, model); err != nil {
		return nil, err
	}
	return cached(s, "profile:"+brand+"\x1f"+model, func() (*ModelProfile, error) {
		history := make([]ProfileEntry, 0)
		err := s.recallsOf(ctx, brand, model).
			Select("r.recall_date, r.reason, r.recall_count, r.correction_rate").
			Order("r.recall_date DESC").
			Order("r.recall_id DESC").
			Scan(&history).Error
		if err != nil {
			return nil, queryError(err, "profile")
		}

		reasons := make([]string, 0, len(history))
		for _, h := range history {
			reasons = append(reasons, h.Reason)
		}
		return &ModelProfile{
			Brand:   brand,
			Model:   model,
			History: history,
			Reasons: strings.Join(reasons, " "),
		}, nil
	})
}

// Summary holds dataset-wide totals. TopBrand is empty and the period nil
// when the store holds no recalls.
type Summary struct {
	TotalRecalls    int64      `json:"total_recalls"`
	TotalBrands     int64      `json:"total_brands"`
	TotalModels     int64      `json:"total_models"`
	TopBrand        string     `json:"top_brand"`
	TopBrandRecalls int64      `json:"top_brand_recalls"`
	PeriodFrom      *time.Time `json:"period_from"`
	PeriodTo        *time.Time `json:"period_to"`
}

// Summary returns the dataset totals, the most recalled brand and the span
// of recall dates.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	return cached(s, "summary", func() (*Summary, error) {
		db := s.db.WithContext(ctx)
		sum := &Summary{}

		counts := []struct {
			model any
			dest  *int64
		}{
			{&entities.Recall{}, &sum.TotalRecalls},
			{&entities.Brand{}, &sum.TotalBrands},
			{&entities.Model{}, &sum.TotalModels},
		}
		for _, c := range counts {
			if err := db.Model(c.model).Count(c.dest).Error; err != nil {
				return nil, queryError(err, "summary")
			}
		}

		var top []BrandRank
		err := s.brandRanks(ctx).Order("recalls DESC").Order("b.brand_name").Limit(1).Scan(&top).Error
		if err != nil {
			return nil, queryError(err, "summary_top_brand")
		}
		if len(top) > 0 {
			sum.TopBrand = top[0].Brand
			sum.TopBrandRecalls = top[0].Recalls
		}

		if sum.PeriodFrom, err = s.boundaryDate(ctx, "recall_date"); err != nil {
			return nil, queryError(err, "summary_period")
		}
		if sum.PeriodTo, err = s.boundaryDate(ctx, "recall_date DESC"); err != nil {
			return nil, queryError(err, "summary_period")
		}
		return sum, nil
	})
}

// boundaryDate returns the first non-null recall date in the given order.
// Ordering instead of MIN/MAX keeps the column type for driver date scanning.
func (s *Service) boundaryDate(ctx context.Context, order string) (*time.Time, error) {
	var dates []time.Time
	err := s.db.WithContext(ctx).Model(&entities.Recall{}).
		Where("recall_date IS NOT NULL").
		Order(order).
		Limit(1).
		Pluck("recall_date", &dates).Error
	if err != nil || len(dates) == 0 {
		return nil, err
	}
	return &dates[0], nil
}

// BrandRank is one brand in a ranking.
type BrandRank struct {
	Brand       string  `json:"brand" gorm:"column:brand_name"`
	Recalls     int64   `json:"recalls" gorm:"column:recalls"`
	AverageRate float64 `json:"average_rate,omitempty" gorm:"column:avg_rate"`
}

// Rankings orders brands by recall count and, for brands with at least
// RankingMinRecalls recalls, by average correction rate.
type Rankings struct {
	ByRecalls []BrandRank `json:"by_recalls"`
	ByRate    []BrandRank `json:"by_rate"`
}

// Rankings returns both brand rankings.
func (s *Service) Rankings(ctx context.Context) (*Rankings, error) {
	return cached(s, "rankings", func() (*Rankings, error) {
		r := &Rankings{ByRecalls: make([]BrandRank, 0), ByRate: make([]BrandRank, 0)}

		err := s.brandRanks(ctx).
			Order("recalls DESC").
			Order("b.brand_name").
			Scan(&r.ByRecalls).Error
		if err != nil {
			return nil, queryError(err, "rankings_recalls")
		}

		err = s.brandRanks(ctx).
			Select("b.brand_name, COUNT(DISTINCT r.recall_id) AS recalls, AVG(r.correction_rate) AS avg_rate").
			Having("COUNT(DISTINCT r.recall_id) >= ?", RankingMinRecalls).
			Order("avg_rate DESC").
			Order("b.brand_name").
			Scan(&r.ByRate).Error
		if err != nil {
			return nil, queryError(err, "rankings_rate")
		}
		for i := range r.ByRate {
			r.ByRate[i].AverageRate = recall.Round2(r.ByRate[i].AverageRate)
		}
		return r, nil
	})
}

// recallsWithModel starts a query over recalls joined to their model and brand.
func (s *Service) recallsWithModel(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table(s.tables.recall+" AS r").
		Joins("JOIN "+s.tables.model+" AS m ON r.model_id = m.model_id").
		Joins("JOIN "+s.tables.brand+" AS b ON m.brand_id = b.brand_id")
}

func (s *Service) recallsOf(ctx context.Context, brand, model string) *gorm.DB {
	return s.recallsWithModel(ctx).Where("b.brand_name = ? AND m.model_name = ?", brand, model)
}

func (s *Service) brandRanks(ctx context.Context) *gorm.DB {
	return s.recallsWithModel(ctx).
		Select("b.brand_name, COUNT(DISTINCT r.recall_id) AS recalls").
		Group("b.brand_name")
}

// cached returns the value stored under key or computes and stores it.
func cached[T any](s *Service, key string, compute func() (T, error)) (T, error) {
	if v, found := s.cache.Get(key); found {
		if typed, ok := v.(T); ok {
			s.recordLookup(true)
			return typed, nil
		}
	}
	s.recordLookup(false)

	v, err := compute()
	if err != nil {
		var zero T
		return zero, err
	}
	s.cache.Set(key, v, cache.DefaultExpiration)
	s.log.Trace("catalog lookup cached", logger.String("key", key))
	return v, nil
}

func (s *Service) recordLookup(hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCacheLookup(metrics.CacheCatalog, hit)
	}
}

func isSet(v string) bool {
	v = strings.TrimSpace(v)
	return v != "" && v != AllValue
}

func requireModel(brand, model string) error {
	if isSet(brand) && isSet(model) {
		return nil
	}
	return errors.Newf("brand and model are required").
		Component("catalog").
		Category(errors.CategoryValidation).
		Context("brand", brand).
		Context("model", model).
		Build()
}

func queryError(err error, query string) error {
	return errors.New(fmt.Errorf("catalog query %s: %w", query, err)).
		Component("catalog").
		Category(errors.CategoryDatabase).
		Context("query", query).
		Build()
}
