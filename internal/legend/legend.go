// Package legend formats the appendix printed under each sheet's grid: named
// ranges, the contents behind reference tags and conditional-format rules.
package legend

import (
	"fmt"
	"sort"
	"strings"

	"github.com/klytics/sheetlens/internal/grid"
	"github.com/klytics/sheetlens/internal/workbook"
)

// Style selects the markup of the legend.
type Style int

const (
	// Plain is used under the fixed-width text grid.
	Plain Style = iota
	// Markdown is used under both markdown tables.
	Markdown
)

// Labels are the section and field titles. They are configurable so output
// can be produced in any language.
type Labels struct {
	NamedRanges           string `mapstructure:"named_ranges"`
	References            string `mapstructure:"references"`
	Formulas              string `mapstructure:"formulas"`
	Comments              string `mapstructure:"comments"`
	Hyperlinks            string `mapstructure:"hyperlinks"`
	ConditionalFormatting string `mapstructure:"conditional_formatting"`
	Range                 string `mapstructure:"range"`
	Rule                  string `mapstructure:"rule"`
	Type                  string `mapstructure:"type"`
	Formula               string `mapstructure:"formula"`
	Operator              string `mapstructure:"operator"`
	Text                  string `mapstructure:"text"`
	FontColor             string `mapstructure:"font_color"`
	FillColor             string `mapstructure:"fill_color"`
}

// DefaultLabels returns the English labels.
func DefaultLabels() Labels {
	return Labels{
		NamedRanges:           "Named Ranges",
		References:            "References",
		Formulas:              "Formulas",
		Comments:              "Comments",
		Hyperlinks:            "Hyperlinks",
		ConditionalFormatting: "Conditional Formatting",
		Range:                 "Range",
		Rule:                  "Rule",
		Type:                  "Type",
		Formula:               "Formula",
		Operator:              "Operator",
		Text:                  "Text",
		FontColor:             "Font Color",
		FillColor:             "Fill Color",
	}
}

func (l Labels) facet(name workbook.FacetName) string {
	switch name {
	case workbook.FacetFormula:
		return l.Formula
	case workbook.FacetOperator:
		return l.Operator
	case workbook.FacetText:
		return l.Text
	case workbook.FacetFontColor:
		return l.FontColor
	default:
		return l.FillColor
	}
}

// Input is everything the legend of one sheet describes.
type Input struct {
	NamedRanges []workbook.NamedRange
	Formulas    []grid.Reference
	Comments    []grid.Reference
	Hyperlinks  []grid.Reference
	CondFormats []workbook.ConditionalFormat
}

// FromGrid collects the legend input for a scanned sheet.
func FromGrid(g *grid.Grid, sheet *workbook.Sheet) Input {
	return Input{
		NamedRanges: sheet.NamedRanges,
		Formulas:    g.Tags.References(grid.KindFormula),
		Comments:    g.Tags.References(grid.KindComment),
		Hyperlinks:  g.Tags.References(grid.KindHyperlink),
		CondFormats: sheet.CondFormats,
	}
}

// Compose renders the legend. Sections come in a fixed order (named ranges,
// references, conditional formatting) and any section or subsection without
// entries is left out, so a sheet with nothing to describe yields "".
func Compose(in Input, style Style, labels Labels) string {
	w := &writer{style: style}

	if len(in.NamedRanges) > 0 {
		w.section(labels.NamedRanges)
		names := append([]workbook.NamedRange(nil), in.NamedRanges...)
		sort.SliceStable(names, func(i, j int) bool { return names[i].Name < names[j].Name })
		for _, nr := range names {
			w.entry(nr.Name, nr.RefersTo, true)
		}
	}

	if len(in.Formulas)+len(in.Comments)+len(in.Hyperlinks) > 0 {
		w.section(labels.References)
		w.references(labels.Formulas, in.Formulas, true)
		w.references(labels.Comments, in.Comments, false)
		w.references(labels.Hyperlinks, in.Hyperlinks, false)
	}

	if len(in.CondFormats) > 0 {
		w.section(labels.ConditionalFormatting)
		for _, cf := range in.CondFormats {
			w.condFormat(cf, labels)
		}
	}

	return w.String()
}

type writer struct {
	strings.Builder
	style Style
}

func (w *writer) section(title string) {
	if w.style == Markdown {
		fmt.Fprintf(w, "\n### %s\n", title)
		return
	}
	fmt.Fprintf(w, "\n--- %s ---\n", title)
}

func (w *writer) subsection(title string) {
	if w.style == Markdown {
		fmt.Fprintf(w, "\n#### %s\n", title)
		return
	}
	fmt.Fprintf(w, "%s:\n", title)
}

func (w *writer) entry(key, value string, code bool) {
	if w.style == Markdown {
		if code {
			value = inlineCode(value)
		} else {
			value = strings.NewReplacer("\r\n", "<br>", "\n", "<br>").Replace(value)
		}
		fmt.Fprintf(w, "- **%s**: %s\n", inlineCode(key), value)
		return
	}
	fmt.Fprintf(w, "%s: %s\n", key, indentLines(value, "    "))
}

func (w *writer) references(title string, refs []grid.Reference, code bool) {
	if len(refs) == 0 {
		return
	}
	refs = append([]grid.Reference(nil), refs...)
	sort.SliceStable(refs, func(i, j int) bool { return refs[i].Seq < refs[j].Seq })

	w.subsection(title)
	for _, r := range refs {
		w.entry(r.Tag, r.Content, code)
	}
}

func (w *writer) condFormat(cf workbook.ConditionalFormat, labels Labels) {
	if w.style == Markdown {
		fmt.Fprintf(w, "- **%s**: %s\n", labels.Range, inlineCode(cf.Range))
	} else {
		fmt.Fprintf(w, "  - %s: %s\n", labels.Range, cf.Range)
	}

	for i, rule := range cf.Rules {
		if w.style == Markdown {
			fmt.Fprintf(w, "  - **%s #%d**\n", labels.Rule, i+1)
			fmt.Fprintf(w, "    - **%s**: %s\n", labels.Type, rule.Kind)
		} else {
			fmt.Fprintf(w, "    - %s #%d\n", labels.Rule, i+1)
			fmt.Fprintf(w, "      %s: %s\n", labels.Type, rule.Kind)
		}
		for _, f := range rule.Facets() {
			if w.style == Markdown {
				value := f.Value
				if f.Name == workbook.FacetFormula {
					value = inlineCode(value)
				}
				fmt.Fprintf(w, "    - **%s**: %s\n", labels.facet(f.Name), value)
			} else {
				fmt.Fprintf(w, "      %s: %s\n", labels.facet(f.Name), f.Value)
			}
		}
	}
}

// inlineCode wraps s in a markdown code span, widening the fence when s
// itself contains backticks.
func inlineCode(s string) string {
	s = strings.NewReplacer("\r\n", " ", "\n", " ").Replace(s)
	if !strings.Contains(s, "`") {
		return "`" + s + "`"
	}
	return "`` " + s + " ``"
}

func indentLines(s, indent string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "\n"+indent)
}
