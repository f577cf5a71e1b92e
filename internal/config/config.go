// Package config manages sheetlens configuration from files and environment.
package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/klytics/sheetlens/internal/archive"
	"github.com/klytics/sheetlens/internal/export"
	"github.com/klytics/sheetlens/internal/grid"
	"github.com/klytics/sheetlens/internal/history"
	"github.com/klytics/sheetlens/internal/legend"
)

// Config holds the application configuration.
type Config struct {
	Formats []string `mapstructure:"formats"`
	JSON    struct {
		Pretty bool `mapstructure:"pretty"`
	} `mapstructure:"json"`
	OutputDir    string   `mapstructure:"output_dir"`
	Timestamp    bool     `mapstructure:"timestamp"`
	Tags         Tags     `mapstructure:"tags"`
	Labels       Labels   `mapstructure:"labels"`
	Placeholders []string `mapstructure:"placeholders"`
	Width        string   `mapstructure:"width"`
	Batch        struct {
		Concurrency int `mapstructure:"concurrency"`
	} `mapstructure:"batch"`
	History struct {
		Enabled bool   `mapstructure:"enabled"`
		Path    string `mapstructure:"path"`
	} `mapstructure:"history"`
	Log struct {
		Level  string `mapstructure:"level"`
		Format string `mapstructure:"format"`
	} `mapstructure:"log"`
}

// Tags are the reference-tag prefixes.
type Tags struct {
	Formula   string `mapstructure:"formula"`
	Comment   string `mapstructure:"comment"`
	Hyperlink string `mapstructure:"hyperlink"`
}

// Labels are all configurable output texts.
type Labels struct {
	VisualTitle        string `mapstructure:"visual_title"`
	NoData             string `mapstructure:"no_data"`
	archive.TextLabels `mapstructure:",squash"`
	legend.Labels      `mapstructure:",squash"`
}

var configFile string

// Load reads the configuration from path, or ~/.sheetlens/config.yaml when
// path is empty, and applies SHEETLENS_* environment overrides. A missing
// file is created with the defaults.
func Load(path string) (*Config, error) {
	configFile = path

	viper.SetConfigFile(ConfigPath())
	if filepath.Ext(ConfigPath()) == "" {
		viper.SetConfigType("yaml")
	}

	for key, value := range defaults() {
		viper.SetDefault(key, value)
	}

	// Environment variable overrides
	viper.SetEnvPrefix("SHEETLENS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("could not read config %s: %w", ConfigPath(), err)
		}
		if err := SaveConfig(); err != nil {
			logrus.WithError(err).Warn("could not write default config")
		} else {
			logrus.WithField("path", ConfigPath()).Debug("wrote default config")
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("could not decode config: %w", err)
	}
	cfg.Formats = splitList(cfg.Formats)
	return &cfg, nil
}

// defaults returns every key with its default value.
func defaults() map[string]any {
	formats := make([]string, len(export.DefaultFormats))
	for i, f := range export.DefaultFormats {
		formats[i] = string(f)
	}
	l := export.DefaultLabels()

	return map[string]any{
		"formats":      formats,
		"json.pretty":  true,
		"output_dir":   "output",
		"timestamp":    true,
		"placeholders": []string{grid.DefaultPlaceholder},
		"width":        "cjk",

		"tags.formula":   grid.DefaultPrefixes.Formula,
		"tags.comment":   grid.DefaultPrefixes.Comment,
		"tags.hyperlink": grid.DefaultPrefixes.Hyperlink,

		"batch.concurrency": 4,
		"history.enabled":   true,
		"history.path":      filepath.Join(configDir(), "history.jsonl"),

		"log.level":  "info",
		"log.format": "text",

		"labels.visual_title":           l.VisualTitle,
		"labels.no_data":                l.NoData,
		"labels.archive_title":          l.Text.Title,
		"labels.file":                   l.Text.File,
		"labels.generated":              l.Text.Generated,
		"labels.sheet":                  l.Text.Sheet,
		"labels.cells":                  l.Text.Cells,
		"labels.cell":                   l.Text.Cell,
		"labels.value":                  l.Text.Value,
		"labels.shown_value":            l.Text.ShownValue,
		"labels.comment":                l.Text.Comment,
		"labels.hyperlink":              l.Text.Hyperlink,
		"labels.empty_sheet":            l.Text.Empty,
		"labels.no_rules":               l.Text.NoRules,
		"labels.named_ranges":           l.Legend.NamedRanges,
		"labels.references":             l.Legend.References,
		"labels.formulas":               l.Legend.Formulas,
		"labels.comments":               l.Legend.Comments,
		"labels.hyperlinks":             l.Legend.Hyperlinks,
		"labels.conditional_formatting": l.Legend.ConditionalFormatting,
		"labels.range":                  l.Legend.Range,
		"labels.rule":                   l.Legend.Rule,
		"labels.type":                   l.Legend.Type,
		"labels.formula":                l.Legend.Formula,
		"labels.operator":               l.Legend.Operator,
		"labels.text":                   l.Legend.Text,
		"labels.font_color":             l.Legend.FontColor,
		"labels.fill_color":             l.Legend.FillColor,
	}
}

// ExportOptions converts the configuration into export options.
func (c *Config) ExportOptions() (export.Options, error) {
	formats, err := export.ParseFormats(c.Formats)
	if err != nil {
		return export.Options{}, err
	}
	width, err := grid.WidthRule(c.Width)
	if err != nil {
		return export.Options{}, err
	}
	placeholders, err := grid.CompilePlaceholders(c.Placeholders)
	if err != nil {
		return export.Options{}, err
	}

	return export.Options{
		Formats:    formats,
		PrettyJSON: c.JSON.Pretty,
		OutputDir:  c.OutputDir,
		Timestamp:  c.Timestamp,
		Grid: grid.Options{
			Prefixes: grid.Prefixes{
				Formula:   c.Tags.Formula,
				Comment:   c.Tags.Comment,
				Hyperlink: c.Tags.Hyperlink,
			},
			Placeholders: placeholders,
		},
		Width: width,
		Labels: export.Labels{
			VisualTitle: c.Labels.VisualTitle,
			NoData:      c.Labels.NoData,
			Text:        c.Labels.TextLabels,
			Legend:      c.Labels.Labels,
		},
	}, nil
}

// ConfigureLogger applies the log settings to l. verbose forces debug level.
func (c *Config) ConfigureLogger(l *logrus.Logger, verbose bool) error {
	level, err := logrus.ParseLevel(c.Log.Level)
	if err != nil {
		return fmt.Errorf("invalid log.level: %w", err)
	}
	if verbose {
		level = logrus.DebugLevel
	}
	l.SetLevel(level)
	l.SetOutput(os.Stderr)

	switch c.Log.Format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	default:
		return fmt.Errorf("invalid log.format %q, expected text or json", c.Log.Format)
	}
	return nil
}

// Journal opens the export history journal described by the config.
func (c *Config) Journal() *history.Journal {
	return history.NewJournal(c.History.Path, c.History.Enabled)
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying c.
func NewContext(ctx context.Context, c *Config) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the config stored by NewContext, loading the default
// config file when there is none.
func FromContext(ctx context.Context) (*Config, error) {
	if ctx != nil {
		if c, ok := ctx.Value(ctxKey{}).(*Config); ok {
			return c, nil
		}
	}
	return Load(configFile)
}

// splitList accepts both YAML lists and comma or space separated strings
// (as they arrive from environment variables).
func splitList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, part := range strings.FieldsFunc(item, func(r rune) bool { return r == ',' || r == ' ' }) {
			out = append(out, part)
		}
	}
	return out
}

func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".sheetlens"
	}
	return filepath.Join(home, ".sheetlens")
}
