// Package archive builds the structured, format-agnostic snapshot of a
// workbook and serialises it as JSON, YAML, TOML, plain text or CSV.
package archive

import (
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/klytics/sheetlens/internal/workbook"
)

// EmptyDimension marks a sheet without any cell content.
const EmptyDimension = "empty"

// Archive is the snapshot of a whole workbook.
type Archive struct {
	Workbook string   `json:"workbook" yaml:"workbook" toml:"workbook"`
	Sheets   []Record `json:"sheets" yaml:"sheets" toml:"sheets"`
}

// Record is the snapshot of one sheet. Cells are keyed by reference ("B2")
// and only hold cells that carry something.
type Record struct {
	Name                  string                `json:"name" yaml:"name" toml:"name"`
	Dimension             string                `json:"dimension" yaml:"dimension" toml:"dimension"`
	NamedRanges           map[string]string     `json:"named_ranges,omitempty" yaml:"named_ranges,omitempty" toml:"named_ranges,omitempty"`
	Cells                 map[string]CellRecord `json:"cells,omitempty" yaml:"cells,omitempty" toml:"cells,omitempty"`
	ConditionalFormatting []RuleRecord          `json:"conditional_formatting,omitempty" yaml:"conditional_formatting,omitempty" toml:"conditional_formatting,omitempty"`
}

// CellRecord holds the parts present on a cell. Value is the cached value
// for formula cells.
type CellRecord struct {
	Value     any    `json:"value,omitempty" yaml:"value,omitempty" toml:"value,omitempty"`
	Formula   string `json:"formula,omitempty" yaml:"formula,omitempty" toml:"formula,omitempty"`
	Comment   string `json:"comment,omitempty" yaml:"comment,omitempty" toml:"comment,omitempty"`
	Hyperlink string `json:"hyperlink,omitempty" yaml:"hyperlink,omitempty" toml:"hyperlink,omitempty"`
}

// RuleRecord is one conditional-formatting rule together with its range.
type RuleRecord struct {
	Range     string   `json:"range" yaml:"range" toml:"range"`
	Kind      string   `json:"kind" yaml:"kind" toml:"kind"`
	Operator  string   `json:"operator,omitempty" yaml:"operator,omitempty" toml:"operator,omitempty"`
	Formulas  []string `json:"formulas,omitempty" yaml:"formulas,omitempty" toml:"formulas,omitempty"`
	Text      string   `json:"text,omitempty" yaml:"text,omitempty" toml:"text,omitempty"`
	FontColor string   `json:"font_color,omitempty" yaml:"font_color,omitempty" toml:"font_color,omitempty"`
	FillColor string   `json:"fill_color,omitempty" yaml:"fill_color,omitempty" toml:"fill_color,omitempty"`
}

// Rule converts the record back into a model rule.
func (r RuleRecord) Rule() workbook.Rule {
	return workbook.Rule{
		Kind:      workbook.RuleKind(r.Kind),
		Operator:  r.Operator,
		Formulas:  r.Formulas,
		Text:      r.Text,
		FontColor: r.FontColor,
		FillColor: r.FillColor,
	}
}

// Build snapshots every sheet of wb from the raw cell data.
func Build(wb *workbook.Workbook) *Archive {
	a := &Archive{Sheets: make([]Record, 0, len(wb.Sheets))}
	if wb.Path != "" {
		a.Workbook = filepath.Base(wb.Path)
	}
	for _, s := range wb.Sheets {
		a.Sheets = append(a.Sheets, BuildRecord(s))
	}
	return a
}

// BuildRecord snapshots one sheet.
func BuildRecord(s *workbook.Sheet) Record {
	rec := Record{Name: s.Name, Dimension: EmptyDimension}
	if bounds, ok := s.Bounds(); ok {
		rec.Dimension = bounds.String()
	}

	for _, nr := range s.NamedRanges {
		if rec.NamedRanges == nil {
			rec.NamedRanges = make(map[string]string)
		}
		rec.NamedRanges[nr.Name] = nr.RefersTo
	}

	for at, c := range s.Cells {
		if c.IsEmpty() || at.Row > s.MaxRow || at.Col > s.MaxCol {
			continue
		}
		if rec.Cells == nil {
			rec.Cells = make(map[string]CellRecord)
		}
		rec.Cells[workbook.CellName(at.Row, at.Col)] = CellRecord{
			Value:     archiveValue(c.Value),
			Formula:   c.Formula,
			Comment:   c.Comment,
			Hyperlink: c.Hyperlink,
		}
	}

	for _, cf := range s.CondFormats {
		for _, rule := range cf.Rules {
			rec.ConditionalFormatting = append(rec.ConditionalFormatting, RuleRecord{
				Range:     cf.Range,
				Kind:      string(rule.Kind),
				Operator:  rule.Operator,
				Formulas:  rule.Formulas,
				Text:      rule.Text,
				FontColor: rule.FontColor,
				FillColor: rule.FillColor,
			})
		}
	}
	return rec
}

// archiveValue keeps values every syntax can represent and degrades the rest
// to their display text.
func archiveValue(v any) any {
	switch x := v.(type) {
	case nil, string, bool, int64:
		return x
	case int:
		return int64(x)
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return workbook.FormatValue(x)
		}
		return x
	case time.Time:
		return x
	default:
		return fmt.Sprint(v)
	}
}
