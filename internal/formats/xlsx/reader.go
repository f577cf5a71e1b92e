// Package xlsx reads .xlsx workbooks into the sheetlens workbook model and
// writes model workbooks back out (used for fixtures and samples).
package xlsx

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/klytics/sheetlens/internal/workbook"
)

// ReadFile reads an .xlsx file and returns its structured data.
func ReadFile(path string) (*workbook.Workbook, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s, check that the path is correct", path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not open %s, is this a valid .xlsx file? %w", path, err)
	}
	defer f.Close()

	wb, err := readWorkbook(f)
	if err != nil {
		return nil, err
	}
	wb.Path = path
	return wb, nil
}

// ReadBytes reads an .xlsx file from a byte slice and returns its structured data.
func ReadBytes(data []byte) (*workbook.Workbook, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("could not read Excel data: %w", err)
	}
	defer f.Close()

	return readWorkbook(f)
}

type reader struct {
	f          *excelize.File
	date1904   bool
	dateStyles map[int]bool
}

func readWorkbook(f *excelize.File) (*workbook.Workbook, error) {
	r := &reader{f: f, dateStyles: make(map[int]bool)}
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		r.date1904 = *props.Date1904
	}
	names := f.GetDefinedName()

	wb := &workbook.Workbook{}
	for _, name := range f.GetSheetList() {
		sheet, err := r.readSheet(name)
		if err != nil {
			return nil, fmt.Errorf("could not read sheet %q: %w", name, err)
		}
		sheet.NamedRanges = namesFor(name, names)
		wb.Sheets = append(wb.Sheets, sheet)
	}

	return wb, nil
}

func (r *reader) readSheet(name string) (*workbook.Sheet, error) {
	rows, err := r.f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	comments, err := r.comments(name)
	if err != nil {
		return nil, fmt.Errorf("comments: %w", err)
	}

	maxRow, maxCol := r.extent(name, rows)
	for ref := range comments {
		if col, row, err := excelize.CellNameToCoordinates(ref); err == nil {
			maxRow, maxCol = max(maxRow, row), max(maxCol, col)
		}
	}

	merged, err := r.merges(name)
	if err != nil {
		return nil, fmt.Errorf("merged cells: %w", err)
	}

	sheet := workbook.NewSheet(name)
	for row := 1; row <= maxRow; row++ {
		for col := 1; col <= maxCol; col++ {
			ref, _ := excelize.CoordinatesToCellName(col, row)

			cell := workbook.Cell{Comment: comments[ref]}
			if raw := rawAt(rows, row, col); raw != "" {
				if cell.Value, err = r.value(name, ref, raw); err != nil {
					return nil, fmt.Errorf("value at %s: %w", ref, err)
				}
			}

			// excelize resolves formula and hyperlink lookups inside a merged
			// region to its top-left cell.
			if !coveredByMerge(merged, row, col) {
				formula, err := r.f.GetCellFormula(name, ref)
				if err != nil {
					return nil, fmt.Errorf("formula at %s: %w", ref, err)
				}
				if formula != "" && !strings.HasPrefix(formula, "=") {
					formula = "=" + formula
				}
				cell.Formula = formula

				if ok, target, err := r.f.GetCellHyperLink(name, ref); err == nil && ok {
					cell.Hyperlink = target
				}
			}

			sheet.SetCell(row, col, cell)
		}
	}
	sheet.MaxRow, sheet.MaxCol = maxRow, maxCol
	sheet.Merged = merged
	if sheet.CondFormats, err = r.conditionalFormats(name); err != nil {
		return nil, fmt.Errorf("conditional formats: %w", err)
	}

	return sheet, nil
}

// extent returns the declared sheet size: the larger of the dimension record
// and the area covered by stored rows.
func (r *reader) extent(name string, rows [][]string) (int, int) {
	maxRow, maxCol := len(rows), 0
	for _, row := range rows {
		maxCol = max(maxCol, len(row))
	}

	dim, err := r.f.GetSheetDimension(name)
	if err != nil || dim == "" {
		return maxRow, maxCol
	}
	parts := strings.Split(dim, ":")
	col, row, err := excelize.CellNameToCoordinates(parts[len(parts)-1])
	if err != nil {
		return maxRow, maxCol
	}
	return max(maxRow, row), max(maxCol, col)
}

func rawAt(rows [][]string, row, col int) string {
	if row-1 >= len(rows) || col-1 >= len(rows[row-1]) {
		return ""
	}
	return rows[row-1][col-1]
}

// value converts a raw stored value into a typed one using the cell type and,
// for numbers, the number format to tell dates apart.
func (r *reader) value(sheet, ref, raw string) (any, error) {
	typ, err := r.f.GetCellType(sheet, ref)
	if err != nil {
		return nil, err
	}

	switch typ {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true"), nil
	case excelize.CellTypeDate:
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, nil
			}
		}
		return raw, nil
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeFormula, excelize.CellTypeError:
		return raw, nil
	}

	num, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw, nil
	}
	if r.isDate(sheet, ref) {
		if t, err := excelize.ExcelDateToTime(num, r.date1904); err == nil {
			return t, nil
		}
	}
	return workbook.NormalizeNumber(num), nil
}

func (r *reader) isDate(sheet, ref string) bool {
	styleID, err := r.f.GetCellStyle(sheet, ref)
	if err != nil || styleID == 0 {
		return false
	}
	if date, ok := r.dateStyles[styleID]; ok {
		return date
	}

	date := false
	if style, err := r.f.GetStyle(styleID); err == nil && style != nil {
		if style.CustomNumFmt != nil {
			date = isDateFormat(*style.CustomNumFmt)
		} else {
			date = isBuiltinDateFormat(style.NumFmt)
		}
	}
	r.dateStyles[styleID] = date
	return date
}

func isBuiltinDateFormat(id int) bool {
	switch {
	case id >= 14 && id <= 22, id >= 27 && id <= 36, id >= 45 && id <= 47, id >= 50 && id <= 58:
		return true
	}
	return false
}

// isDateFormat reports whether a custom number format code renders a date or
// time. Quoted literals, escapes and bracketed sections are ignored.
func isDateFormat(code string) bool {
	var b strings.Builder
	inQuote, inBracket, escaped := false, false, false
	for _, c := range code {
		switch {
		case escaped:
			escaped = false
		case c == '\\':
			escaped = true
		case c == '"':
			inQuote = !inQuote
		case inQuote:
		case c == '[':
			inBracket = true
		case c == ']':
			inBracket = false
		case inBracket:
		default:
			b.WriteRune(c)
		}
	}
	return strings.ContainsAny(strings.ToLower(b.String()), "ymdhs")
}

func (r *reader) comments(sheet string) (map[string]string, error) {
	list, err := r.f.GetComments(sheet)
	if err != nil {
		return nil, err
	}

	out := make(map[string]string, len(list))
	for _, c := range list {
		text := c.Text
		if text == "" {
			var b strings.Builder
			for _, run := range c.Paragraph {
				b.WriteString(run.Text)
			}
			text = b.String()
		}
		if text = strings.TrimSpace(text); text != "" {
			out[c.Cell] = text
		}
	}
	return out, nil
}

func (r *reader) merges(sheet string) ([]workbook.Range, error) {
	cells, err := r.f.GetMergeCells(sheet)
	if err != nil {
		return nil, err
	}

	var out []workbook.Range
	for _, mc := range cells {
		rg, err := workbook.ParseRange(mc.GetStartAxis() + ":" + mc.GetEndAxis())
		if err != nil {
			continue
		}
		out = append(out, rg)
	}
	return out, nil
}

// coveredByMerge reports whether row, col lies inside a merged region
// without being its top-left cell.
func coveredByMerge(merged []workbook.Range, row, col int) bool {
	for _, m := range merged {
		if m.Contains(row, col) && (row != m.MinRow || col != m.MinCol) {
			return true
		}
	}
	return false
}

func (r *reader) conditionalFormats(sheet string) ([]workbook.ConditionalFormat, error) {
	formats, err := r.f.GetConditionalFormats(sheet)
	if err != nil {
		return nil, err
	}

	refs := make([]string, 0, len(formats))
	for ref := range formats {
		refs = append(refs, ref)
	}
	sort.Strings(refs)

	var out []workbook.ConditionalFormat
	for _, ref := range refs {
		cf := workbook.ConditionalFormat{Range: ref}
		for _, opts := range formats[ref] {
			cf.Rules = append(cf.Rules, r.rule(opts))
		}
		out = append(out, cf)
	}
	return out, nil
}

func (r *reader) rule(o excelize.ConditionalFormatOptions) workbook.Rule {
	rule := workbook.Rule{Kind: workbook.RuleKind(o.Type)}

	switch rule.Kind {
	case workbook.RuleFormula:
		rule.Formulas = nonEmpty(o.Criteria)
	case workbook.RuleCell:
		rule.Operator = o.Criteria
		if o.Value != "" {
			rule.Formulas = []string{o.Value}
		} else {
			rule.Formulas = nonEmpty(o.MinValue, o.MaxValue)
		}
	case workbook.RuleText, workbook.RuleTimePeriod:
		rule.Operator = o.Criteria
		rule.Text = o.Value
	case workbook.RuleTwoColorScale, workbook.RuleThreeColor, workbook.RuleDataBar:
		rule.Formulas = nonEmpty(o.MinValue, o.MidValue, o.MaxValue)
	default:
		rule.Operator = o.Criteria
		rule.Formulas = nonEmpty(o.Value)
	}

	if o.Format != nil {
		if style, err := r.f.GetConditionalStyle(*o.Format); err == nil && style != nil {
			if style.Font != nil {
				rule.FontColor = style.Font.Color
			}
			if len(style.Fill.Color) > 0 {
				rule.FillColor = style.Fill.Color[0]
			}
		}
	}
	return rule
}

// namesFor returns the defined names visible on a sheet: names scoped to it
// and workbook-level names whose target lies on it. Built-in names such as
// print areas are skipped.
func namesFor(sheet string, names []excelize.DefinedName) []workbook.NamedRange {
	var out []workbook.NamedRange
	for _, dn := range names {
		if strings.HasPrefix(dn.Name, "_xlnm.") {
			continue
		}
		scope := dn.Scope
		if strings.EqualFold(scope, "Workbook") {
			scope = ""
		}
		switch {
		case scope == sheet:
		case scope == "" && workbook.RefSheet(dn.RefersTo) == sheet:
		default:
			continue
		}
		out = append(out, workbook.NamedRange{Name: dn.Name, RefersTo: dn.RefersTo, Scope: scope})
	}
	return out
}

func nonEmpty(values ...string) []string {
	var out []string
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
