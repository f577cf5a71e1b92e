package xlsx

import (
	"fmt"
	"sort"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/klytics/sheetlens/internal/workbook"
)

// WriteFile creates a new .xlsx file from the given workbook model: values,
// formulas (with their cached values), comments, hyperlinks, merged ranges,
// defined names and conditional formats.
func WriteFile(wb *workbook.Workbook, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	for i, sheet := range wb.Sheets {
		sheetName := sheet.Name
		if sheetName == "" {
			sheetName = fmt.Sprintf("Sheet%d", i+1)
		}

		if i == 0 {
			// Rename default sheet
			defaultSheet := f.GetSheetName(0)
			if err := f.SetSheetName(defaultSheet, sheetName); err != nil {
				return fmt.Errorf("could not rename sheet: %w", err)
			}
		} else {
			if _, err := f.NewSheet(sheetName); err != nil {
				return fmt.Errorf("could not create sheet %q: %w", sheetName, err)
			}
		}

		if err := writeSheet(f, sheetName, sheet); err != nil {
			return fmt.Errorf("could not write sheet %q: %w", sheetName, err)
		}
	}

	for _, sheet := range wb.Sheets {
		for _, nr := range sheet.NamedRanges {
			err := f.SetDefinedName(&excelize.DefinedName{Name: nr.Name, RefersTo: nr.RefersTo, Scope: nr.Scope})
			if err != nil && !strings.Contains(err.Error(), "already exist") {
				return fmt.Errorf("could not define name %q: %w", nr.Name, err)
			}
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("could not save %s: %w", path, err)
	}

	return nil
}

func writeSheet(f *excelize.File, name string, sheet *workbook.Sheet) error {
	coords := make([]workbook.Coord, 0, len(sheet.Cells))
	for at := range sheet.Cells {
		coords = append(coords, at)
	}
	sort.Slice(coords, func(i, j int) bool {
		if coords[i].Row != coords[j].Row {
			return coords[i].Row < coords[j].Row
		}
		return coords[i].Col < coords[j].Col
	})

	for _, at := range coords {
		cell := sheet.Cells[at]
		ref, err := excelize.CoordinatesToCellName(at.Col, at.Row)
		if err != nil {
			return fmt.Errorf("invalid cell coordinates: %w", err)
		}

		if cell.Value != nil {
			if err := f.SetCellValue(name, ref, cell.Value); err != nil {
				return fmt.Errorf("could not set cell %s: %w", ref, err)
			}
		}
		// The formula goes in after the value so the value stays as the cached result.
		if cell.Formula != "" {
			if err := f.SetCellFormula(name, ref, strings.TrimPrefix(cell.Formula, "=")); err != nil {
				return fmt.Errorf("could not set formula %s: %w", ref, err)
			}
		}
		if cell.Comment != "" {
			if err := f.AddComment(name, excelize.Comment{Cell: ref, Text: cell.Comment}); err != nil {
				return fmt.Errorf("could not add comment %s: %w", ref, err)
			}
		}
		if cell.Hyperlink != "" {
			if err := f.SetCellHyperLink(name, ref, cell.Hyperlink, "External"); err != nil {
				return fmt.Errorf("could not set hyperlink %s: %w", ref, err)
			}
		}
	}

	for _, rg := range sheet.Merged {
		from := workbook.CellName(rg.MinRow, rg.MinCol)
		to := workbook.CellName(rg.MaxRow, rg.MaxCol)
		if err := f.MergeCell(name, from, to); err != nil {
			return fmt.Errorf("could not merge %s:%s: %w", from, to, err)
		}
	}

	for _, cf := range sheet.CondFormats {
		opts := make([]excelize.ConditionalFormatOptions, 0, len(cf.Rules))
		for _, rule := range cf.Rules {
			o, err := formatOptions(f, rule)
			if err != nil {
				return err
			}
			opts = append(opts, o)
		}
		if err := f.SetConditionalFormat(name, cf.Range, opts); err != nil {
			return fmt.Errorf("could not set conditional format on %s: %w", cf.Range, err)
		}
	}

	return nil
}

func formatOptions(f *excelize.File, rule workbook.Rule) (excelize.ConditionalFormatOptions, error) {
	o := excelize.ConditionalFormatOptions{Type: string(rule.Kind), Criteria: rule.Operator}

	switch rule.Kind {
	case workbook.RuleFormula:
		if len(rule.Formulas) > 0 {
			o.Criteria = rule.Formulas[0]
		}
	case workbook.RuleText, workbook.RuleTimePeriod:
		o.Value = rule.Text
	default:
		switch len(rule.Formulas) {
		case 0:
		case 1:
			o.Value = rule.Formulas[0]
		default:
			o.MinValue, o.MaxValue = rule.Formulas[0], rule.Formulas[1]
		}
	}

	if rule.FontColor != "" || rule.FillColor != "" {
		style := &excelize.Style{}
		if rule.FontColor != "" {
			style.Font = &excelize.Font{Color: rule.FontColor}
		}
		if rule.FillColor != "" {
			style.Fill = excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{rule.FillColor}}
		}
		id, err := f.NewConditionalStyle(style)
		if err != nil {
			return o, fmt.Errorf("could not create conditional style: %w", err)
		}
		o.Format = &id
	}
	return o, nil
}
