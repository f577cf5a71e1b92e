// Package grid turns a worksheet into an annotated grid (bounding box, tagged
// display text and merge index) and renders it as fixed-width text, a plain
// markdown table or a rich table with merged-cell spans.
package grid

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/klytics/sheetlens/internal/workbook"
)

// DefaultPlaceholder matches the dummy-function wrapper that spreadsheet
// import tools leave around formulas they could not translate.
const DefaultPlaceholder = `(?i)__xludf\.DUMMYFUNCTION`

// Options controls how cells are annotated during a scan.
type Options struct {
	Prefixes Prefixes
	// Placeholders match formula text that should not be tagged. Such cells
	// still count towards the bounding box.
	Placeholders []*regexp.Regexp
}

// CompilePlaceholders compiles placeholder patterns.
func CompilePlaceholders(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid placeholder pattern %q: %w", p, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func (o Options) placeholder(formula string) bool {
	for _, re := range o.Placeholders {
		if re.MatchString(formula) {
			return true
		}
	}
	return false
}

// Grid is the annotated view of one sheet shared by every renderer.
type Grid struct {
	Sheet  string
	Bounds workbook.Range
	Merges *MergeIndex
	Tags   *Allocator

	empty bool
	text  [][]string
}

// Empty reports whether the sheet has no cell with content. An empty grid has
// no bounds and renders as nothing.
func (g *Grid) Empty() bool { return g.empty }

// Text returns the display text at row, col (value followed by its tags).
// Coordinates outside the bounding box yield "".
func (g *Grid) Text(row, col int) string {
	if g.empty || !g.Bounds.Contains(row, col) {
		return ""
	}
	return g.text[row-g.Bounds.MinRow][col-g.Bounds.MinCol]
}

// Visible is Text with suppressed merged cells blanked.
func (g *Grid) Visible(row, col int) string {
	if g.Merges.Suppressed(row, col) {
		return ""
	}
	return g.Text(row, col)
}

// Scan walks the sheet's declared extent once in row-major order. It tags
// formulas, comments and hyperlinks as it goes and derives the bounding box
// of every cell with content.
func Scan(sheet *workbook.Sheet, opts Options) *Grid {
	if opts.Prefixes == (Prefixes{}) {
		opts.Prefixes = DefaultPrefixes
	}
	g := &Grid{
		Sheet:  sheet.Name,
		Merges: IndexMerges(sheet.Merged),
		Tags:   NewAllocator(opts.Prefixes),
	}

	// Only stored cells can have content, so visiting them in row-major order
	// is the same walk as visiting every coordinate of the extent.
	coords := make([]workbook.Coord, 0, len(sheet.Cells))
	for at := range sheet.Cells {
		if at.Row >= 1 && at.Row <= sheet.MaxRow && at.Col >= 1 && at.Col <= sheet.MaxCol {
			coords = append(coords, at)
		}
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].Row != coords[j].Row {
			return coords[i].Row < coords[j].Row
		}
		return coords[i].Col < coords[j].Col
	})

	display := make(map[workbook.Coord]string, len(coords))
	found := false
	for _, at := range coords {
		cell := sheet.Cells[at]
		display[at] = g.annotate(cell, opts)
		if !cell.HasContent() {
			continue
		}
		if !found {
			g.Bounds = workbook.Range{MinRow: at.Row, MinCol: at.Col, MaxRow: at.Row, MaxCol: at.Col}
			found = true
			continue
		}
		g.Bounds.MinRow = min(g.Bounds.MinRow, at.Row)
		g.Bounds.MaxRow = max(g.Bounds.MaxRow, at.Row)
		g.Bounds.MinCol = min(g.Bounds.MinCol, at.Col)
		g.Bounds.MaxCol = max(g.Bounds.MaxCol, at.Col)
	}

	if !found {
		g.empty = true
		return g
	}

	g.text = make([][]string, g.Bounds.Rows())
	for i := range g.text {
		row := make([]string, g.Bounds.Cols())
		for j := range row {
			row[j] = display[workbook.Coord{Row: g.Bounds.MinRow + i, Col: g.Bounds.MinCol + j}]
		}
		g.text[i] = row
	}
	return g
}

// annotate returns the cell's display value followed by its tags in the
// order formula, comment, hyperlink.
func (g *Grid) annotate(c workbook.Cell, opts Options) string {
	text := workbook.FormatValue(c.Value)
	if c.Formula != "" && !opts.placeholder(c.Formula) {
		text += g.Tags.Assign(KindFormula, c.Formula)
	}
	if c.Comment != "" {
		text += g.Tags.Assign(KindComment, c.Comment)
	}
	if c.Hyperlink != "" {
		text += g.Tags.Assign(KindHyperlink, c.Hyperlink)
	}
	return text
}
