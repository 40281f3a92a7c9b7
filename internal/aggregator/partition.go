package aggregator

import (
	"strings"
	"unicode/utf8"

	"github.com/lemonscanner/lemon-scanner/internal/recall"
	"github.com/lemonscanner/lemon-scanner/internal/tabular"
)

// DefaultLabelLength is the longest partition label Excel accepts.
const DefaultLabelLength = 30

// fallbackLabel names the partition of a manufacturer whose label sanitizes to nothing.
const fallbackLabel = "unknown"

var labelReplacer = strings.NewReplacer(`\`, "", "/", "", "*", "", "?", "", "[", "", "]", "", ":", "")

// Partition is the output unit for one manufacturer label.
type Partition struct {
	Label string
	Rows  []Row
}

// SheetLabel derives a worksheet name from a manufacturer: forbidden
// characters and surrounding apostrophes are removed and the result is
// truncated to maxLen characters.
func SheetLabel(manufacturer string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultLabelLength
	}
	label := strings.Trim(labelReplacer.Replace(manufacturer), "'")
	if utf8.RuneCountInString(label) > maxLen {
		label = string([]rune(label)[:maxLen])
	}
	label = strings.TrimRight(label, "'")
	if strings.TrimSpace(label) == "" {
		return fallbackLabel
	}
	return label
}

// PartitionRows splits sorted rows into one partition per manufacturer label,
// in order of first appearance. Manufacturers whose labels collide share one
// partition; the comparison ignores case because workbook sheet names do.
func PartitionRows(rows []Row, maxLen int) []Partition {
	var parts []Partition
	index := make(map[string]int)
	for _, row := range rows {
		label := SheetLabel(row.Manufacturer, maxLen)
		k := strings.ToLower(label)
		i, ok := index[k]
		if !ok {
			i = len(parts)
			index[k] = i
			parts = append(parts, Partition{Label: label})
		}
		parts[i].Rows = append(parts[i].Rows, row)
	}
	return parts
}

// Sheets converts partitions to workbook sheets.
func Sheets(parts []Partition) []tabular.Sheet {
	sheets := make([]tabular.Sheet, 0, len(parts))
	for _, p := range parts {
		rows := make([][]any, 0, len(p.Rows))
		for _, r := range p.Rows {
			rows = append(rows, r.Values())
		}
		sheets = append(sheets, tabular.Sheet{
			Name:   p.Label,
			Header: recall.OutputHeader,
			Rows:   rows,
		})
	}
	return sheets
}
