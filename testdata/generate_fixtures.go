//go:build ignore

// This program generates the sample workbook used by benchmarks and manual
// testing: go run testdata/generate_fixtures.go
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/klytics/sheetlens/internal/formats/xlsx"
	"github.com/klytics/sheetlens/internal/workbook"
)

func main() {
	if err := xlsx.WriteFile(sample(), "testdata/sample.xlsx"); err != nil {
		fmt.Fprintf(os.Stderr, "Error generating sample.xlsx: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("Test fixtures generated successfully.")
}

func sample() *workbook.Workbook {
	revenue := workbook.NewSheet("Revenue")
	revenue.SetCell(1, 1, workbook.Cell{Value: "Revenue by quarter"})
	revenue.Merged = append(revenue.Merged, workbook.Range{MinRow: 1, MinCol: 1, MaxRow: 1, MaxCol: 4})

	header := []string{"Quarter", "Product", "Revenue", "Growth"}
	for i, h := range header {
		revenue.SetCell(2, i+1, workbook.Cell{Value: h})
	}
	rows := []struct {
		quarter, product string
		revenue          int64
		growth           float64
	}{
		{"Q1 2024", "Enterprise", 1250000, 0.12},
		{"Q1 2024", "SMB", 450000, 0.08},
		{"Q2 2024", "Enterprise", 1380000, 0.10},
		{"Q2 2024", "SMB", 520000, 0.16},
		{"Q3 2024", "Enterprise", 1450000, 0.05},
		{"Q3 2024", "SMB", 580000, 0.12},
		{"Q4 2024", "Enterprise", 1620000, 0.12},
		{"Q4 2024", "SMB", 640000, 0.10},
	}
	for i, r := range rows {
		row := i + 3
		revenue.SetCell(row, 1, workbook.Cell{Value: r.quarter})
		revenue.SetCell(row, 2, workbook.Cell{Value: r.product})
		revenue.SetCell(row, 3, workbook.Cell{Value: r.revenue})
		revenue.SetCell(row, 4, workbook.Cell{Value: r.growth})
	}
	last := len(rows) + 2
	revenue.SetCell(last+1, 2, workbook.Cell{Value: "Total", Comment: "Sum of all quarters"})
	revenue.SetCell(last+1, 3, workbook.Cell{Value: int64(7890000), Formula: fmt.Sprintf("=SUM(C3:C%d)", last)})
	revenue.SetCell(last+2, 1, workbook.Cell{Value: "Source", Hyperlink: "https://example.com/finance/2024"})
	revenue.NamedRanges = []workbook.NamedRange{{Name: "RevenueData", RefersTo: fmt.Sprintf("Revenue!$C$3:$C$%d", last)}}
	revenue.CondFormats = []workbook.ConditionalFormat{{
		Range: fmt.Sprintf("D3:D%d", last),
		Rules: []workbook.Rule{{Kind: workbook.RuleCell, Operator: ">", Formulas: []string{"0.15"}, FontColor: "006100", FillColor: "C6EFCE"}},
	}}

	summary := workbook.NewSheet("Summary")
	summary.SetCell(1, 1, workbook.Cell{Value: "Metric"})
	summary.SetCell(1, 2, workbook.Cell{Value: "Value"})
	summary.SetCell(2, 1, workbook.Cell{Value: "Total Revenue"})
	summary.SetCell(2, 2, workbook.Cell{Value: int64(7890000), Formula: "=Revenue!C" + fmt.Sprint(last+1)})
	summary.SetCell(3, 1, workbook.Cell{Value: "Report date"})
	summary.SetCell(3, 2, workbook.Cell{Value: time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC)})
	summary.SetCell(4, 1, workbook.Cell{Value: "Notes"})
	summary.SetCell(4, 2, workbook.Cell{Value: "Enterprise led growth\nSMB steady"})

	regional := workbook.NewSheet("地域")
	regional.SetCell(1, 1, workbook.Cell{Value: "地域"})
	regional.SetCell(1, 2, workbook.Cell{Value: "売上"})
	regional.SetCell(2, 1, workbook.Cell{Value: "東京"})
	regional.SetCell(2, 2, workbook.Cell{Value: int64(3200000)})
	regional.SetCell(3, 1, workbook.Cell{Value: "大阪"})
	regional.SetCell(3, 2, workbook.Cell{Value: int64(1800000)})

	return &workbook.Workbook{Sheets: []*workbook.Sheet{revenue, summary, regional, workbook.NewSheet("Empty")}}
}
