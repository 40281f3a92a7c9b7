package recall

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DateLayout is how dates are written to aggregated output.
const DateLayout = "2006-01-02"

var (
	nonDigits = regexp.MustCompile(`\D`)

	// flexibleLayouts are tried in order by ParseDate.
	flexibleLayouts = []string{
		"2006-01-02",
		"2006.01.02",
		"2006/01/02",
		"2006.1.2",
		"2006-1-2",
		"2006/1/2",
		"20060102",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z07:00",
		"2006. 1. 2.",
		"2006. 01. 02.",
	}
)

// ParseDate parses a recall date in any of the layouts seen in the raw dataset.
// A value that matches no layout but holds exactly eight digits is read as YYYYMMDD.
func ParseDate(s string) (*time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	for _, layout := range flexibleLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			d := truncateDay(t)
			return &d, true
		}
	}
	return ParseCompactDate(s)
}

// ParseCompactDate strips every non-digit and parses the rest as YYYYMMDD.
// Anything other than exactly eight digits forming a valid date yields nil.
func ParseCompactDate(s string) (*time.Time, bool) {
	digits := nonDigits.ReplaceAllString(s, "")
	if len(digits) != 8 {
		return nil, false
	}
	t, err := time.Parse("20060102", digits)
	if err != nil {
		return nil, false
	}
	return &t, true
}

// FormatDate renders a nullable date for output; nil becomes "".
func FormatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(DateLayout)
}

// ParseCount reads a non-negative count. Thousands separators and a
// fractional part are tolerated; unparseable or negative values become 0.
func ParseCount(s string) int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return max(n, 0)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 || f > math.MaxInt32 {
		return 0
	}
	return int(f)
}

// ParseRate reads a percentage, ignoring a trailing "%" and separators.
// Unparseable values become 0.
func ParseRate(s string) float64 {
	s = strings.TrimSuffix(strings.ReplaceAll(strings.TrimSpace(s), ",", ""), "%")
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// Round2 rounds half away from zero to two decimal places.
func Round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EarlierDate returns the earlier of two nullable dates, ignoring nils.
func EarlierDate(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.Before(*a):
		return b
	default:
		return a
	}
}

// LaterDate returns the later of two nullable dates, ignoring nils.
func LaterDate(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.After(*a):
		return b
	default:
		return a
	}
}
