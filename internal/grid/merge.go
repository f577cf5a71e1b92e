package grid

import "github.com/klytics/sheetlens/internal/workbook"

// Span describes a cell's role in a merged region. Primary cells carry the
// region size; every other member is suppressed.
type Span struct {
	Primary bool
	ColSpan int
	RowSpan int
}

// MergeIndex maps every coordinate covered by a merged region to its Span.
type MergeIndex struct {
	cells   map[workbook.Coord]Span
	regions int
}

// IndexMerges builds the index. Overlapping regions are not detected; the
// later region wins for shared coordinates.
func IndexMerges(ranges []workbook.Range) *MergeIndex {
	idx := &MergeIndex{cells: make(map[workbook.Coord]Span), regions: len(ranges)}
	for _, r := range ranges {
		for row := r.MinRow; row <= r.MaxRow; row++ {
			for col := r.MinCol; col <= r.MaxCol; col++ {
				idx.cells[workbook.Coord{Row: row, Col: col}] = Span{}
			}
		}
		idx.cells[workbook.Coord{Row: r.MinRow, Col: r.MinCol}] = Span{
			Primary: true,
			ColSpan: r.Cols(),
			RowSpan: r.Rows(),
		}
	}
	return idx
}

// Lookup returns the span at row, col. ok is false for unmerged cells.
func (m *MergeIndex) Lookup(row, col int) (Span, bool) {
	if m == nil {
		return Span{}, false
	}
	s, ok := m.cells[workbook.Coord{Row: row, Col: col}]
	return s, ok
}

// Suppressed reports whether row, col is a non-primary merged cell.
func (m *MergeIndex) Suppressed(row, col int) bool {
	s, ok := m.Lookup(row, col)
	return ok && !s.Primary
}

// Len returns the number of indexed regions.
func (m *MergeIndex) Len() int {
	if m == nil {
		return 0
	}
	return m.regions
}
