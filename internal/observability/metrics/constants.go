// Package metrics provides constants used across metric definitions.
package metrics

// Job label values.
const (
	// JobAggregate is the aggregation job.
	JobAggregate = "aggregate"
	// JobLoad is the database load job.
	JobLoad = "load"
)

// Run status label values.
const (
	// StatusSuccess marks a run or operation that completed.
	StatusSuccess = "success"
	// StatusError marks a run or operation that failed.
	StatusError = "error"
)

// Cache label values.
const (
	// CacheCatalog is the dashboard query cache.
	CacheCatalog = "catalog"
	// CacheNews is the news search cache.
	CacheNews = "news"
	// LabelHit is the result label for cache hits.
	LabelHit = "hit"
	// LabelMiss is the result label for cache misses.
	LabelMiss = "miss"
)

// Histogram bucket configuration constants.
// These define the base values and factors for exponential bucket generation.
const (
	// BucketStart1ms is the starting bucket for 1ms histograms (1ms to ~1s range).
	BucketStart1ms = 0.001
	// BucketStart10ms is the starting bucket for 10ms histograms (10ms to ~40s range).
	BucketStart10ms = 0.01
	// BucketStart100ms is the starting bucket for 100ms histograms (100ms to ~100s range).
	BucketStart100ms = 0.1

	// BucketFactor2 is the common exponential growth factor of 2 for histogram buckets.
	BucketFactor2 = 2

	// BucketCount10 defines 10 exponential buckets.
	BucketCount10 = 10
	// BucketCount12 defines 12 exponential buckets.
	BucketCount12 = 12
)
