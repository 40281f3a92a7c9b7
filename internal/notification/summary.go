package notification

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/lemonscanner/lemon-scanner/internal/aggregator"
	"github.com/lemonscanner/lemon-scanner/internal/loader"
)

// Run describes one finished batch job.
type Run struct {
	Job     string // aggregate or load
	RunID   string
	Input   string
	Elapsed time.Duration
	Err     error
}

func (r *Run) title() string {
	if r.Err != nil {
		return fmt.Sprintf("lemonscan %s failed", r.Job)
	}
	return fmt.Sprintf("lemonscan %s completed", r.Job)
}

func (r *Run) header(b *strings.Builder) {
	fmt.Fprintf(b, "run %s: %s in %s\n", r.RunID, filepath.Base(r.Input), r.Elapsed.Round(time.Millisecond))
	if r.Err != nil {
		fmt.Fprintf(b, "error: %v\n", r.Err)
	}
}

// AggregateSummary formats the title and body for an aggregation run.
// stats may be nil when the input could not be read.
func AggregateSummary(run *Run, output string, stats *aggregator.Stats) (title, message string) {
	var b strings.Builder
	run.header(&b)
	if stats != nil {
		fmt.Fprintf(&b, "rows read: %d\n", stats.RowsRead)
		fmt.Fprintf(&b, "excluded: %d, missing fields: %d, bad date: %d\n",
			stats.Excluded, stats.MissingFields, stats.BadDate)
		if run.Err == nil {
			fmt.Fprintf(&b, "groups: %d in %d sheets of %s\n", stats.Groups, stats.Partitions, filepath.Base(output))
		}
	}
	return run.title(), strings.TrimRight(b.String(), "\n")
}

// LoadSummary formats the title and body for a load run.
// stats may be nil when the input could not be read.
func LoadSummary(run *Run, stats *loader.Stats) (title, message string) {
	var b strings.Builder
	run.header(&b)
	if stats != nil {
		fmt.Fprintf(&b, "records: %d (dropped before load: %d)\n", stats.Records, stats.DroppedReason)
		parts := make([]string, 0, len(loader.Outcomes()))
		for _, o := range loader.Outcomes() {
			parts = append(parts, fmt.Sprintf("%s %d", o, stats.Count(o)))
		}
		fmt.Fprintf(&b, "outcomes: %s\n", strings.Join(parts, ", "))
		fmt.Fprintf(&b, "brands: %d, models: %d, keywords: %d, tags: %d\n",
			stats.Brands, stats.Models, stats.Keywords, stats.Tags)
	}
	return run.title(), strings.TrimRight(b.String(), "\n")
}
