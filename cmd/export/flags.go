package export

import (
	"context"
	"time"

	"github.com/spf13/pflag"

	"github.com/klytics/sheetlens/internal/config"
	exp "github.com/klytics/sheetlens/internal/export"
	"github.com/klytics/sheetlens/internal/grid"
	"github.com/klytics/sheetlens/internal/history"
)

// Flags are the output flags shared by export, batch and watch.
type Flags struct {
	Formats     []string
	Output      string
	NoTimestamp bool
	Compact     bool
	Width       string
}

// Bind registers the flags on fs.
func (f *Flags) Bind(fs *pflag.FlagSet) {
	fs.StringSliceVarP(&f.Formats, "format", "f", nil, "Output formats: text, markdown, markdown_rich, json, yaml, toml, archive, csv")
	fs.StringVarP(&f.Output, "output", "o", "", "Output directory (default from config)")
	fs.BoolVar(&f.NoTimestamp, "no-timestamp", false, "Omit the generation time for byte-stable output")
	fs.BoolVar(&f.Compact, "compact", false, "Write compact JSON")
	fs.StringVar(&f.Width, "width", "", "Display width rule: cjk | unicode")
}

// Options resolves the export options from the config with the flags
// applied on top.
func (f *Flags) Options(cfg *config.Config) (exp.Options, error) {
	opts, err := cfg.ExportOptions()
	if err != nil {
		return opts, err
	}
	if len(f.Formats) > 0 {
		formats, err := exp.ParseFormats(f.Formats)
		if err != nil {
			return opts, err
		}
		opts.Formats = formats
	}
	if f.Output != "" {
		opts.OutputDir = f.Output
	}
	if f.NoTimestamp {
		opts.Timestamp = false
	}
	if f.Compact {
		opts.PrettyJSON = false
	}
	if f.Width != "" {
		width, err := grid.WidthRule(f.Width)
		if err != nil {
			return opts, err
		}
		opts.Width = width
	}
	return opts, nil
}

// Record appends the outcome of one export to the history journal.
func Record(ctx context.Context, j *history.Journal, command, path string, opts exp.Options, res *exp.Result, runErr error, elapsed time.Duration) error {
	entry := history.Entry{
		Command:    command,
		Workbook:   path,
		DurationMs: elapsed.Milliseconds(),
		Status:     history.StatusOK,
	}
	for _, f := range opts.Formats {
		entry.Formats = append(entry.Formats, string(f))
	}
	if res != nil {
		entry.Sheets = res.Sheets
		entry.EmptySheets = len(res.EmptySheets)
		entry.Files = res.Files
	}
	if runErr != nil {
		entry.Status = history.StatusError
		entry.Error = runErr.Error()
	}
	// cancelled runs are recorded too
	return j.Append(context.WithoutCancel(ctx), entry)
}
