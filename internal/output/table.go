package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

// Table prints rows in columns aligned by display width, so sheet and
// file names in CJK scripts line up.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Append adds one row.
func (t *Table) Append(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render writes the table to w. The header row is bold when color is on.
func (t *Table) Render(w io.Writer) error {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i >= len(widths) {
				widths = append(widths, 0)
			}
			widths[i] = max(widths[i], runewidth.StringWidth(cell))
		}
	}

	bold := color.New(color.Bold)
	if len(t.Headers) > 0 {
		if _, err := fmt.Fprintln(w, bold.Sprint(line(t.Headers, widths))); err != nil {
			return err
		}
	}
	for _, row := range t.Rows {
		if _, err := fmt.Fprintln(w, line(row, widths)); err != nil {
			return err
		}
	}
	return nil
}

func line(cells []string, widths []int) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		if i == len(cells)-1 {
			parts[i] = cell
			continue
		}
		parts[i] = runewidth.FillRight(cell, widths[i])
	}
	return strings.Join(parts, "  ")
}
