package export

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/klytics/sheetlens/internal/archive"
	"github.com/klytics/sheetlens/internal/grid"
	"github.com/klytics/sheetlens/internal/legend"
	"github.com/klytics/sheetlens/internal/workbook"
)

// SheetView holds the rendered visual outputs of one sheet.
type SheetView struct {
	Name  string
	Empty bool
	// Bounds is the bounding box; zero when Empty.
	Bounds workbook.Range
	Fixed  string
	Flat   string
	Rich   string

	PlainLegend    string
	MarkdownLegend string
}

// Document is everything an export produces for one workbook, before it is
// written anywhere.
type Document struct {
	Source    string
	Generated time.Time
	Sheets    []SheetView
	Archive   *archive.Archive

	wb   *workbook.Workbook
	opts Options
}

// Build scans and renders every sheet. The archive is built from the raw
// cell data independently of the tagged display text.
func Build(wb *workbook.Workbook, opts Options) *Document {
	doc := &Document{
		Archive: archive.Build(wb),
		wb:      wb,
		opts:    opts,
	}
	if wb.Path != "" {
		doc.Source = filepath.Base(wb.Path)
	}
	if opts.Timestamp {
		doc.Generated = opts.now()
	}

	for _, sheet := range wb.Sheets {
		doc.Sheets = append(doc.Sheets, BuildSheet(sheet, opts))
	}
	return doc
}

// BuildSheet renders the visual outputs of a single sheet.
func BuildSheet(sheet *workbook.Sheet, opts Options) SheetView {
	g := grid.Scan(sheet, opts.Grid)
	view := SheetView{Name: sheet.Name, Empty: g.Empty()}
	if g.Empty() {
		return view
	}

	width := opts.Width
	if width == nil {
		width = grid.Width
	}
	view.Bounds = g.Bounds
	view.Fixed = grid.RenderFixed(g, width)
	view.Flat = grid.RenderFlat(g)
	view.Rich = grid.RenderRich(g)

	in := legend.FromGrid(g, sheet)
	view.PlainLegend = legend.Compose(in, legend.Plain, opts.Labels.Legend)
	view.MarkdownLegend = legend.Compose(in, legend.Markdown, opts.Labels.Legend)
	return view
}

const (
	heavyRule = "=================================================="
	lightRule = "----------------------------------------"
)

// Text returns the fixed-width visual document for all sheets.
func (d *Document) Text() string {
	l := d.opts.Labels
	var sb strings.Builder

	fmt.Fprintf(&sb, "--- %s ---\n", l.VisualTitle)
	fmt.Fprintf(&sb, "%s: %s\n", l.Text.File, d.Source)
	if !d.Generated.IsZero() {
		fmt.Fprintf(&sb, "%s: %s\n", l.Text.Generated, d.Generated.Format("2006-01-02 15:04:05"))
	}
	sb.WriteString(heavyRule + "\n\n")

	for _, v := range d.Sheets {
		fmt.Fprintf(&sb, "%s: %s\n%s\n\n", l.Text.Sheet, v.Name, lightRule)
		if v.Empty {
			sb.WriteString(l.NoData + "\n\n")
			continue
		}
		sb.WriteString(v.Fixed)
		sb.WriteString(v.PlainLegend)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Markdown returns the markdown visual document, using the rich table
// layout when rich is set.
func (d *Document) Markdown(rich bool) string {
	l := d.opts.Labels
	var sb strings.Builder

	for _, v := range d.Sheets {
		fmt.Fprintf(&sb, "## %s: %s\n\n", l.Text.Sheet, v.Name)
		if v.Empty {
			fmt.Fprintf(&sb, "*%s*\n\n", l.NoData)
			continue
		}
		if rich {
			sb.WriteString(v.Rich)
		} else {
			sb.WriteString(v.Flat)
		}
		sb.WriteString(v.MarkdownLegend)
		sb.WriteString("\n")
	}
	return sb.String()
}

// Render produces the whole-workbook output of f. CSV is per sheet and is
// produced with RenderCSV instead.
func (d *Document) Render(f Format) ([]byte, error) {
	var buf bytes.Buffer
	var err error

	switch f {
	case FormatText:
		buf.WriteString(d.Text())
	case FormatMarkdown:
		buf.WriteString(d.Markdown(false))
	case FormatMarkdownRich:
		buf.WriteString(d.Markdown(true))
	case FormatJSON:
		err = archive.EncodeJSON(&buf, d.Archive, d.opts.PrettyJSON)
	case FormatYAML:
		err = archive.EncodeYAML(&buf, d.Archive)
	case FormatTOML:
		err = archive.EncodeTOML(&buf, d.Archive)
	case FormatArchive:
		err = archive.EncodeText(&buf, d.Archive, archive.TextOptions{
			Labels:    d.opts.Labels.Text,
			Legend:    d.opts.Labels.Legend,
			Generated: d.Generated,
		})
	case FormatCSV:
		return nil, fmt.Errorf("%w: csv is written per sheet", ErrUnknownFormat)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, f)
	}

	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderCSV returns the delimited values of the named sheet.
func (d *Document) RenderCSV(sheet string) ([]byte, error) {
	s, err := d.wb.GetSheet(sheet)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := archive.WriteCSV(&buf, s); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
