// Package workbook defines the read-only spreadsheet model the exporters work on.
// It is independent of any particular file-format library: readers in
// internal/formats populate it and everything downstream only consumes it.
package workbook

import (
	"fmt"
	"strings"
)

// Coord addresses a cell by 1-based row and column.
type Coord struct {
	Row int
	Col int
}

// Cell is a single worksheet cell.
//
// When Formula is set, Value holds the cached result computed by the
// spreadsheet application; it is never recomputed here.
type Cell struct {
	Value     any
	Formula   string
	Comment   string
	Hyperlink string
}

// IsEmpty reports whether the cell carries no value, formula, comment or link.
func (c Cell) IsEmpty() bool {
	return c.Value == nil && c.Formula == "" && c.Comment == "" && c.Hyperlink == ""
}

// HasContent reports whether the cell counts towards a sheet's bounding box:
// non-blank display text, a comment, a hyperlink, or any formula (even one
// whose cached value renders blank).
func (c Cell) HasContent() bool {
	if c.Formula != "" || c.Comment != "" || c.Hyperlink != "" {
		return true
	}
	return strings.TrimSpace(FormatValue(c.Value)) != ""
}

// NamedRange is a defined name. Scope is empty for workbook-level names and
// holds the sheet name for sheet-local ones.
type NamedRange struct {
	Name     string `json:"name"`
	RefersTo string `json:"refers_to"`
	Scope    string `json:"scope,omitempty"`
}

// ConditionalFormat groups the rules applied to one target range.
type ConditionalFormat struct {
	Range string
	Rules []Rule
}

// Sheet is one worksheet. MaxRow and MaxCol are the extent declared by the
// source file, which may be larger than the area actually holding content.
type Sheet struct {
	Name        string
	MaxRow      int
	MaxCol      int
	Cells       map[Coord]Cell
	Merged      []Range
	CondFormats []ConditionalFormat
	NamedRanges []NamedRange
}

// NewSheet returns an empty sheet ready for SetCell.
func NewSheet(name string) *Sheet {
	return &Sheet{Name: name, Cells: make(map[Coord]Cell)}
}

// Cell returns the cell at row, col; unknown coordinates yield the empty cell.
func (s *Sheet) Cell(row, col int) Cell {
	return s.Cells[Coord{Row: row, Col: col}]
}

// SetCell stores c at row, col and grows the declared extent to cover it.
// Empty cells are not stored.
func (s *Sheet) SetCell(row, col int, c Cell) {
	if s.Cells == nil {
		s.Cells = make(map[Coord]Cell)
	}
	if row > s.MaxRow {
		s.MaxRow = row
	}
	if col > s.MaxCol {
		s.MaxCol = col
	}
	if c.IsEmpty() {
		delete(s.Cells, Coord{Row: row, Col: col})
		return
	}
	s.Cells[Coord{Row: row, Col: col}] = c
}

// Bounds returns the tightest rectangle enclosing every cell with content.
// ok is false when the sheet has no such cell.
func (s *Sheet) Bounds() (r Range, ok bool) {
	for at, c := range s.Cells {
		if !c.HasContent() {
			continue
		}
		if !ok {
			r = Range{MinRow: at.Row, MinCol: at.Col, MaxRow: at.Row, MaxCol: at.Col}
			ok = true
			continue
		}
		r.MinRow = min(r.MinRow, at.Row)
		r.MaxRow = max(r.MaxRow, at.Row)
		r.MinCol = min(r.MinCol, at.Col)
		r.MaxCol = max(r.MaxCol, at.Col)
	}
	return r, ok
}

// Workbook is an ordered list of sheets as declared in the source file.
type Workbook struct {
	Path   string
	Sheets []*Sheet
}

// GetSheet returns a specific sheet by name. Returns an error if the sheet is not found.
func (wb *Workbook) GetSheet(name string) (*Sheet, error) {
	for _, s := range wb.Sheets {
		if s.Name == name {
			return s, nil
		}
	}

	available := make([]string, len(wb.Sheets))
	for i, s := range wb.Sheets {
		available[i] = s.Name
	}
	return nil, fmt.Errorf("sheet %q not found, available sheets: %v", name, available)
}
