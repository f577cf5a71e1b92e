package archive

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/klytics/sheetlens/internal/legend"
	"github.com/klytics/sheetlens/internal/workbook"
)

// TextLabels are the titles used by the plain-text archive.
type TextLabels struct {
	Title      string `mapstructure:"archive_title"`
	File       string `mapstructure:"file"`
	Generated  string `mapstructure:"generated"`
	Sheet      string `mapstructure:"sheet"`
	Cells      string `mapstructure:"cells"`
	Cell       string `mapstructure:"cell"`
	Value      string `mapstructure:"value"`
	ShownValue string `mapstructure:"shown_value"`
	Comment    string `mapstructure:"comment"`
	Hyperlink  string `mapstructure:"hyperlink"`
	Empty      string `mapstructure:"empty_sheet"`
	NoRules    string `mapstructure:"no_rules"`
}

// DefaultTextLabels returns the English labels.
func DefaultTextLabels() TextLabels {
	return TextLabels{
		Title:      "Workbook Archive",
		File:       "File",
		Generated:  "Generated",
		Sheet:      "Sheet",
		Cells:      "Cells",
		Cell:       "Cell",
		Value:      "Value",
		ShownValue: "Shown Value",
		Comment:    "Comment",
		Hyperlink:  "Hyperlink",
		Empty:      "(this sheet is empty)",
		NoRules:    "(no conditional formatting)",
	}
}

// TextOptions controls EncodeText. A zero Generated time leaves the
// timestamp out of the header.
type TextOptions struct {
	Labels    TextLabels
	Legend    legend.Labels
	Generated time.Time
}

const (
	rule50 = "=================================================="
	rule40 = "----------------------------------------"
)

// EncodeText writes a human-readable listing of every non-empty cell (value,
// or formula with its shown value, plus comment and hyperlink), the named
// ranges and the conditional formats of each sheet.
func EncodeText(w io.Writer, a *Archive, opts TextOptions) error {
	l := opts.Labels
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "--- %s ---\n", l.Title)
	fmt.Fprintf(bw, "%s: %s\n", l.File, a.Workbook)
	if !opts.Generated.IsZero() {
		fmt.Fprintf(bw, "%s: %s\n", l.Generated, opts.Generated.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintf(bw, "%s\n\n", rule50)

	for _, rec := range a.Sheets {
		fmt.Fprintf(bw, "%s: %s\n%s\n\n", l.Sheet, rec.Name, rule40)

		fmt.Fprintf(bw, "%s:\n", l.Cells)
		if len(rec.Cells) == 0 {
			fmt.Fprintf(bw, "%s\n", l.Empty)
		}
		for _, ref := range sortedRefs(rec.Cells) {
			c := rec.Cells[ref]
			fmt.Fprintf(bw, "  - %s: %s\n", l.Cell, ref)
			shown := workbook.FormatValue(c.Value)
			if c.Formula != "" {
				fmt.Fprintf(bw, "    %s: %s\n", opts.Legend.Formula, c.Formula)
				fmt.Fprintf(bw, "    %s: %s\n", l.ShownValue, shown)
			} else if c.Value != nil {
				fmt.Fprintf(bw, "    %s: %s\n", l.Value, shown)
			}
			if c.Comment != "" {
				fmt.Fprintf(bw, "    %s: %s\n", l.Comment, strings.ReplaceAll(c.Comment, "\n", "\n      "))
			}
			if c.Hyperlink != "" {
				fmt.Fprintf(bw, "    %s: %s\n", l.Hyperlink, c.Hyperlink)
			}
		}

		in := legend.Input{}
		names := make([]string, 0, len(rec.NamedRanges))
		for name := range rec.NamedRanges {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			in.NamedRanges = append(in.NamedRanges, workbook.NamedRange{Name: name, RefersTo: rec.NamedRanges[name]})
		}
		in.CondFormats = groupRules(rec.ConditionalFormatting)

		bw.WriteString(legend.Compose(in, legend.Plain, opts.Legend))
		if len(in.CondFormats) == 0 {
			fmt.Fprintf(bw, "\n%s\n", l.NoRules)
		}
		fmt.Fprintf(bw, "%s\n\n", rule50)
	}

	return bw.Flush()
}

// groupRules regroups flat rule records by range, keeping first-seen order.
func groupRules(records []RuleRecord) []workbook.ConditionalFormat {
	var out []workbook.ConditionalFormat
	index := make(map[string]int)
	for _, r := range records {
		i, ok := index[r.Range]
		if !ok {
			i = len(out)
			index[r.Range] = i
			out = append(out, workbook.ConditionalFormat{Range: r.Range})
		}
		out[i].Rules = append(out[i].Rules, r.Rule())
	}
	return out
}

// sortedRefs orders cell references row-major: A1, B1, A2, ..., A10.
func sortedRefs(cells map[string]CellRecord) []string {
	type keyed struct {
		ref      string
		row, col int
	}
	keys := make([]keyed, 0, len(cells))
	for ref := range cells {
		rg, err := workbook.ParseRange(ref)
		if err != nil {
			keys = append(keys, keyed{ref: ref})
			continue
		}
		keys = append(keys, keyed{ref: ref, row: rg.MinRow, col: rg.MinCol})
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].row != keys[j].row {
			return keys[i].row < keys[j].row
		}
		if keys[i].col != keys[j].col {
			return keys[i].col < keys[j].col
		}
		return keys[i].ref < keys[j].ref
	})

	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.ref
	}
	return out
}
