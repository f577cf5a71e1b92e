package export

import (
	"fmt"
	"time"

	"github.com/klytics/sheetlens/internal/archive"
	"github.com/klytics/sheetlens/internal/grid"
	"github.com/klytics/sheetlens/internal/legend"
)

// Format is an output format name as used in configuration.
type Format string

const (
	// FormatText is the fixed-width text grid.
	FormatText Format = "text"
	// FormatMarkdown is the plain markdown pipe table.
	FormatMarkdown Format = "markdown"
	// FormatMarkdownRich is the markdown table, or HTML table when the sheet
	// has merged cells.
	FormatMarkdownRich Format = "markdown_rich"
	FormatJSON         Format = "json"
	FormatYAML         Format = "yaml"
	FormatTOML         Format = "toml"
	// FormatArchive is the plain-text archive listing.
	FormatArchive Format = "archive"
	// FormatCSV writes one delimited file per sheet.
	FormatCSV Format = "csv"
)

// AllFormats lists every recognised format.
var AllFormats = []Format{
	FormatText, FormatMarkdown, FormatMarkdownRich,
	FormatJSON, FormatYAML, FormatTOML, FormatArchive, FormatCSV,
}

// DefaultFormats are enabled when nothing is configured.
var DefaultFormats = []Format{
	FormatText, FormatMarkdown, FormatMarkdownRich,
	FormatJSON, FormatYAML, FormatTOML, FormatArchive,
}

// ParseFormat validates a single format name.
func ParseFormat(name string) (Format, error) {
	for _, f := range AllFormats {
		if string(f) == name {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}

// ParseFormats validates format names, dropping duplicates.
func ParseFormats(names []string) ([]Format, error) {
	seen := make(map[Format]bool, len(names))
	out := make([]Format, 0, len(names))
	for _, name := range names {
		f, err := ParseFormat(name)
		if err != nil {
			return nil, err
		}
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	return out, nil
}

// Labels are the texts used in the visual outputs besides the legend.
type Labels struct {
	VisualTitle string
	NoData      string
	Text        archive.TextLabels
	Legend      legend.Labels
}

// DefaultLabels returns the English labels.
func DefaultLabels() Labels {
	return Labels{
		VisualTitle: "Workbook Visual View",
		NoData:      "(no data in this sheet)",
		Text:        archive.DefaultTextLabels(),
		Legend:      legend.DefaultLabels(),
	}
}

// Options configures an export run.
type Options struct {
	Formats    []Format
	PrettyJSON bool
	OutputDir  string
	// Timestamp adds the generation time to the text headers. Turn it off
	// for byte-stable output.
	Timestamp bool
	Grid      grid.Options
	Width     grid.WidthFunc
	Labels    Labels
	// Now defaults to time.Now.
	Now func() time.Time
}

// DefaultOptions returns options matching the default configuration.
func DefaultOptions() Options {
	return Options{
		Formats:    DefaultFormats,
		PrettyJSON: true,
		OutputDir:  "output",
		Timestamp:  true,
		Grid:       grid.Options{Prefixes: grid.DefaultPrefixes},
		Width:      grid.Width,
		Labels:     DefaultLabels(),
	}
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

func (o Options) enabled(f Format) bool {
	for _, x := range o.Formats {
		if x == f {
			return true
		}
	}
	return false
}
