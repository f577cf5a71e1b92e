package workbook

import "strings"

// RuleKind identifies the variant of a conditional-formatting rule.
type RuleKind string

// Rule kinds as named by the xlsx conditional-format vocabulary.
const (
	RuleCell          RuleKind = "cell"
	RuleFormula       RuleKind = "formula"
	RuleText          RuleKind = "text"
	RuleTimePeriod    RuleKind = "time_period"
	RuleAverage       RuleKind = "average"
	RuleDuplicate     RuleKind = "duplicate"
	RuleUnique        RuleKind = "unique"
	RuleTop           RuleKind = "top"
	RuleBottom        RuleKind = "bottom"
	RuleBlanks        RuleKind = "blanks"
	RuleNoBlanks      RuleKind = "no_blanks"
	RuleErrors        RuleKind = "errors"
	RuleNoErrors      RuleKind = "no_errors"
	RuleTwoColorScale RuleKind = "2_color_scale"
	RuleThreeColor    RuleKind = "3_color_scale"
	RuleDataBar       RuleKind = "data_bar"
	RuleIconSet       RuleKind = "icon_set"
)

// Rule is one conditional-formatting rule. Every field except Kind is optional.
type Rule struct {
	Kind      RuleKind
	Formulas  []string
	Operator  string
	Text      string
	FontColor string
	FillColor string
}

// FacetName names an optional part of a rule.
type FacetName int

// Facets in the order they are described.
const (
	FacetFormula FacetName = iota
	FacetOperator
	FacetText
	FacetFontColor
	FacetFillColor
)

// Facet is one populated optional part of a rule.
type Facet struct {
	Name  FacetName
	Value string
}

// Facets returns every populated facet of r in description order.
func (r Rule) Facets() []Facet {
	var out []Facet
	add := func(name FacetName, v string) {
		if v != "" {
			out = append(out, Facet{Name: name, Value: v})
		}
	}
	add(FacetFormula, strings.Join(nonEmpty(r.Formulas), ", "))
	add(FacetOperator, r.Operator)
	add(FacetText, r.Text)
	add(FacetFontColor, r.FontColor)
	add(FacetFillColor, r.FillColor)
	return out
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
