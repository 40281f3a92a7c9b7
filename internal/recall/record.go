// Package recall defines the recall record shared by the aggregation and load
// jobs, the Korean column headers of the government dataset, and the
// coercion rules that turn raw cells into typed values.
package recall

import (
	"slices"
	"time"

	"github.com/lemonscanner/lemon-scanner/internal/tabular"
)

// Column headers of the recall dataset.
const (
	ColManufacturer    = "제작자"
	ColModel           = "차명"
	ColReason          = "리콜사유"
	ColProdFrom        = "생산기간(부터)"
	ColProdTo          = "생산기간(까지)"
	ColRecallDate      = "리콜개시일"
	ColRecallCount     = "리콜대수"
	ColCorrectionCount = "시정대수"
	ColCorrectionRate  = "시정률(퍼센트)"
	ColRecallYear      = "리콜연도"
)

// correctionRateAliases are historical spellings normalized to ColCorrectionRate.
var correctionRateAliases = []string{"시정율(퍼센트)", "시정율", "시정률"}

// OutputHeader is the column order of aggregated output.
var OutputHeader = []string{
	ColManufacturer,
	ColModel,
	ColReason,
	ColRecallYear,
	ColProdFrom,
	ColProdTo,
	ColRecallDate,
	ColRecallCount,
	ColCorrectionCount,
	ColCorrectionRate,
}

// Record is one recall row. Nil dates are unknown.
type Record struct {
	Manufacturer    string
	Model           string
	Reason          string
	ProdFrom        *time.Time
	ProdTo          *time.Time
	RecallDate      *time.Time
	RecallCount     int
	CorrectionCount int
	CorrectionRate  float64
}

// Columns holds header positions of a table; -1 marks an absent column.
type Columns struct {
	Manufacturer    int
	Model           int
	Reason          int
	ProdFrom        int
	ProdTo          int
	RecallDate      int
	RecallCount     int
	CorrectionCount int
	CorrectionRate  int
}

// NormalizeHeader rewrites correction-rate aliases to the canonical header in place.
// An existing canonical column wins over aliases.
func NormalizeHeader(header []string) {
	if slices.Contains(header, ColCorrectionRate) {
		return
	}
	for _, alias := range correctionRateAliases {
		if i := slices.Index(header, alias); i >= 0 {
			header[i] = ColCorrectionRate
			return
		}
	}
}

// ResolveColumns normalizes the table header and locates every known column.
func ResolveColumns(t *tabular.Table) Columns {
	t.TrimHeader()
	NormalizeHeader(t.Header)
	return Columns{
		Manufacturer:    t.Index(ColManufacturer),
		Model:           t.Index(ColModel),
		Reason:          t.Index(ColReason),
		ProdFrom:        t.Index(ColProdFrom),
		ProdTo:          t.Index(ColProdTo),
		RecallDate:      t.Index(ColRecallDate),
		RecallCount:     t.Index(ColRecallCount),
		CorrectionCount: t.Index(ColCorrectionCount),
		CorrectionRate:  t.Index(ColCorrectionRate),
	}
}

// Missing returns the names of required columns that are absent.
func (c Columns) Missing(required ...string) []string {
	positions := map[string]int{
		ColManufacturer:    c.Manufacturer,
		ColModel:           c.Model,
		ColReason:          c.Reason,
		ColProdFrom:        c.ProdFrom,
		ColProdTo:          c.ProdTo,
		ColRecallDate:      c.RecallDate,
		ColRecallCount:     c.RecallCount,
		ColCorrectionCount: c.CorrectionCount,
		ColCorrectionRate:  c.CorrectionRate,
	}
	var missing []string
	for _, name := range required {
		if pos, ok := positions[name]; !ok || pos < 0 {
			missing = append(missing, name)
		}
	}
	return missing
}

// Rate is the correction percentage of summed counts, rounded to two decimals.
// Zero recalls yield 0 and the result is clamped to [0, 100].
func Rate(recallCount, correctionCount int) float64 {
	if recallCount <= 0 {
		return 0
	}
	r := Round2(float64(correctionCount) / float64(recallCount) * 100)
	return min(max(r, 0), 100)
}
