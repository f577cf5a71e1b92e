package workbook

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Range is an inclusive rectangle of cells, 1-based.
type Range struct {
	MinRow int
	MinCol int
	MaxRow int
	MaxCol int
}

// String formats the range as "A1:C4". A single cell keeps both corners ("B2:B2").
func (r Range) String() string {
	from, err := excelize.CoordinatesToCellName(r.MinCol, r.MinRow)
	if err != nil {
		return ""
	}
	to, err := excelize.CoordinatesToCellName(r.MaxCol, r.MaxRow)
	if err != nil {
		return ""
	}
	return from + ":" + to
}

// Contains reports whether row, col lies inside r.
func (r Range) Contains(row, col int) bool {
	return row >= r.MinRow && row <= r.MaxRow && col >= r.MinCol && col <= r.MaxCol
}

// Rows returns the number of rows spanned.
func (r Range) Rows() int { return r.MaxRow - r.MinRow + 1 }

// Cols returns the number of columns spanned.
func (r Range) Cols() int { return r.MaxCol - r.MinCol + 1 }

// ParseRange parses "A1:B2", "$A$1:$B$2" or a single "C3" reference.
// A sheet prefix such as 'Data'!A1:B2 is ignored.
func ParseRange(ref string) (Range, error) {
	if i := strings.LastIndex(ref, "!"); i >= 0 {
		ref = ref[i+1:]
	}
	ref = strings.ReplaceAll(strings.TrimSpace(ref), "$", "")
	parts := strings.Split(ref, ":")
	if len(parts) > 2 || parts[0] == "" {
		return Range{}, fmt.Errorf("invalid range reference %q", ref)
	}

	c1, r1, err := excelize.CellNameToCoordinates(parts[0])
	if err != nil {
		return Range{}, fmt.Errorf("invalid range reference %q: %w", ref, err)
	}
	c2, r2 := c1, r1
	if len(parts) == 2 {
		c2, r2, err = excelize.CellNameToCoordinates(parts[1])
		if err != nil {
			return Range{}, fmt.Errorf("invalid range reference %q: %w", ref, err)
		}
	}

	return Range{
		MinRow: min(r1, r2),
		MinCol: min(c1, c2),
		MaxRow: max(r1, r2),
		MaxCol: max(c1, c2),
	}, nil
}

// ColumnName converts a 1-based column number to its letters: 1 -> A, 27 -> AA.
func ColumnName(col int) string {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return ""
	}
	return name
}

// CellName converts 1-based coordinates to a reference such as "B2".
func CellName(row, col int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return ""
	}
	return name
}

// RefSheet extracts the sheet part of a reference like 'My Sheet'!$A$1:$B$2.
// It returns "" when the reference has no sheet qualifier.
func RefSheet(ref string) string {
	// Multi-area references name the sheet on the first area.
	first := strings.TrimSpace(strings.Split(ref, ",")[0])
	first = strings.TrimPrefix(first, "=")
	i := strings.LastIndex(first, "!")
	if i < 0 {
		return ""
	}
	sheet := first[:i]
	if strings.HasPrefix(sheet, "'") && strings.HasSuffix(sheet, "'") && len(sheet) >= 2 {
		sheet = strings.ReplaceAll(sheet[1:len(sheet)-1], "''", "'")
	}
	return sheet
}
