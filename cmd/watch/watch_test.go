package watch

import (
	"testing"

	"github.com/klytics/sheetlens/internal/export"
	w "github.com/klytics/sheetlens/internal/watch"
)

func TestRuleOptionsOverrides(t *testing.T) {
	base := export.DefaultOptions()
	opts, err := ruleOptions(base, w.Rule{ID: "r1", Formats: []string{"json", "csv"}, OutputDir: "exports"})
	if err != nil {
		t.Fatal(err)
	}
	if len(opts.Formats) != 2 || opts.Formats[0] != export.FormatJSON || opts.Formats[1] != export.FormatCSV {
		t.Errorf("formats = %v", opts.Formats)
	}
	if opts.OutputDir != "exports" {
		t.Errorf("output = %q", opts.OutputDir)
	}
	if base.OutputDir != "output" || len(base.Formats) != len(export.DefaultFormats) {
		t.Error("base options must not change")
	}
}

func TestRuleOptionsInherit(t *testing.T) {
	base := export.DefaultOptions()
	opts, err := ruleOptions(base, w.AnyWorkbook)
	if err != nil {
		t.Fatal(err)
	}
	if opts.OutputDir != base.OutputDir || len(opts.Formats) != len(base.Formats) {
		t.Errorf("opts = %+v", opts)
	}
}

func TestRuleOptionsBadFormat(t *testing.T) {
	if _, err := ruleOptions(export.DefaultOptions(), w.Rule{ID: "bad", Formats: []string{"pdf"}}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestRunningPIDWithoutFile(t *testing.T) {
	if _, ok := runningPID(t.TempDir()); ok {
		t.Error("no PID file means no watcher")
	}
}

func TestRunningPIDSelf(t *testing.T) {
	dir := t.TempDir()
	if err := w.WritePIDFile(dir); err != nil {
		t.Fatal(err)
	}
	if _, ok := runningPID(dir); !ok {
		t.Error("the test process itself is alive")
	}
}
