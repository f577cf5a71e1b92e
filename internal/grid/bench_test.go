package grid

import (
	"fmt"
	"testing"

	"github.com/klytics/sheetlens/internal/workbook"
)

// largeSheet builds a rows x cols sheet with a tagged cell every tenth row
// and a merged block every fiftieth.
func largeSheet(rows, cols int) *workbook.Sheet {
	s := workbook.NewSheet("Large")
	for r := 1; r <= rows; r++ {
		for c := 1; c <= cols; c++ {
			cell := workbook.Cell{Value: fmt.Sprintf("R%dC%d", r, c)}
			if r%10 == 0 && c == 1 {
				cell.Formula = fmt.Sprintf("=SUM(B%d:B%d)", r-9, r-1)
			}
			if r%10 == 5 && c == 2 {
				cell.Comment = "check"
				cell.Value = "数据"
			}
			s.SetCell(r, c, cell)
		}
		if r%50 == 0 {
			s.Merged = append(s.Merged, workbook.Range{MinRow: r, MinCol: 3, MaxRow: r, MaxCol: 5})
		}
	}
	return s
}

func BenchmarkScan(b *testing.B) {
	sheet := largeSheet(1000, 20)
	opts := Options{Prefixes: DefaultPrefixes}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Scan(sheet, opts)
	}
}

func BenchmarkRenderFixed(b *testing.B) {
	g := Scan(largeSheet(1000, 20), Options{Prefixes: DefaultPrefixes})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		RenderFixed(g, Width)
	}
}

func BenchmarkRenderFlat(b *testing.B) {
	g := Scan(largeSheet(1000, 20), Options{Prefixes: DefaultPrefixes})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		RenderFlat(g)
	}
}

func BenchmarkRenderRich(b *testing.B) {
	g := Scan(largeSheet(1000, 20), Options{Prefixes: DefaultPrefixes})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		RenderRich(g)
	}
}

func BenchmarkWidth(b *testing.B) {
	s := "Quarterly revenue 四半期の売上 2024"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Width(s)
	}
}
