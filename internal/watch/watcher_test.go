package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func newWatcher(t *testing.T, config Config) *Watcher {
	t.Helper()
	w, err := New(config, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { w.Close() })
	return w
}

func TestNewWatcher(t *testing.T) {
	w := newWatcher(t, Config{Directories: []string{t.TempDir()}, Debounce: 100})
	if w.Config.Debounce != 100 {
		t.Errorf("debounce = %d", w.Config.Debounce)
	}
}

func TestDefaultDebounce(t *testing.T) {
	w := newWatcher(t, Config{})
	if w.Config.Debounce != DefaultDebounce {
		t.Errorf("expected default debounce %d, got %d", DefaultDebounce, w.Config.Debounce)
	}
}

func TestIsWorkbook(t *testing.T) {
	tests := map[string]bool{
		"/tmp/budget.xlsx":   true,
		"/tmp/macros.XLSM":   true,
		"/tmp/~$budget.xlsx": false,
		"/tmp/.~lock.xlsx":   false,
		"/tmp/notes.txt":     false,
		"/tmp/report.docx":   false,
		"/tmp/budget.xls":    false,
	}
	for path, want := range tests {
		if got := IsWorkbook(path); got != want {
			t.Errorf("IsWorkbook(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestMatchesRulePattern(t *testing.T) {
	rule := Rule{ID: "r1", Pattern: "budget_*.xlsx", Enabled: true}

	if !MatchesRule("/tmp/budget_2024.xlsx", rule) {
		t.Error("should match budget_2024.xlsx")
	}
	if MatchesRule("/tmp/invoice.xlsx", rule) {
		t.Error("should not match invoice.xlsx")
	}
	if MatchesRule("/tmp/budget_2024.csv", rule) {
		t.Error("should not match a non-workbook")
	}
}

func TestMatchesRuleEmptyPattern(t *testing.T) {
	if !MatchesRule("/tmp/anything.xlsx", Rule{}) {
		t.Error("empty pattern should match every workbook")
	}
}

func TestMatchesRuleIgnoresEnabled(t *testing.T) {
	if !MatchesRule("/tmp/test.xlsx", Rule{Pattern: "*.xlsx", Enabled: false}) {
		t.Error("MatchesRule should match regardless of Enabled")
	}
}

func TestProcessFirstMatchingRule(t *testing.T) {
	w := newWatcher(t, Config{Rules: []Rule{
		{ID: "off", Pattern: "*.xlsx", Enabled: false},
		{ID: "budget", Pattern: "budget*", Enabled: true},
		{ID: "all", Pattern: "*", Enabled: true},
	}})
	var got []string
	w.Handler = func(_ context.Context, path string, rule Rule) error {
		got = append(got, rule.ID)
		return nil
	}

	evt := w.process(context.Background(), "/tmp/budget.xlsx", "CREATE")
	if evt.Status != "exported" || evt.RuleID != "budget" {
		t.Errorf("event = %+v", evt)
	}
	evt = w.process(context.Background(), "/tmp/other.xlsx", "WRITE")
	if evt.RuleID != "all" {
		t.Errorf("rule = %q, want all", evt.RuleID)
	}
	if len(got) != 2 || got[0] != "budget" || got[1] != "all" {
		t.Errorf("handler calls = %v", got)
	}
	if len(w.Events()) != 2 {
		t.Errorf("events = %d, want 2", len(w.Events()))
	}
}

func TestProcessDefaultRule(t *testing.T) {
	w := newWatcher(t, Config{})
	called := false
	w.Handler = func(_ context.Context, _ string, rule Rule) error {
		called = rule.ID == AnyWorkbook.ID
		return nil
	}
	w.process(context.Background(), "/tmp/a.xlsx", "CREATE")
	if !called {
		t.Error("default rule should apply when none are configured")
	}
}

func TestProcessHandlerError(t *testing.T) {
	w := newWatcher(t, Config{})
	w.Handler = func(context.Context, string, Rule) error {
		return errors.New("corrupt workbook")
	}
	evt := w.process(context.Background(), "/tmp/bad.xlsx", "WRITE")
	if evt.Status != "error" || evt.Error != "corrupt workbook" {
		t.Errorf("event = %+v", evt)
	}
}

func TestProcessSkipped(t *testing.T) {
	w := newWatcher(t, Config{Rules: []Rule{{ID: "r1", Pattern: "budget*", Enabled: true}}})
	w.Handler = func(context.Context, string, Rule) error {
		t.Error("handler should not be called")
		return nil
	}
	evt := w.process(context.Background(), "/tmp/invoice.xlsx", "CREATE")
	if evt.Status != "skipped" || evt.RuleID != "" {
		t.Errorf("event = %+v", evt)
	}
}

func TestWatcherEvents(t *testing.T) {
	dir := t.TempDir()
	w := newWatcher(t, Config{Directories: []string{dir}, Debounce: 50})

	called := make(chan string, 1)
	w.Handler = func(_ context.Context, path string, _ Rule) error {
		called <- path
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	target := filepath.Join(dir, "test.xlsx")
	os.WriteFile(target, []byte("test"), 0o644)

	select {
	case path := <-called:
		if path != target {
			t.Errorf("expected %q, got %q", target, path)
		}
	case <-time.After(2 * time.Second):
		t.Error("timeout waiting for handler call")
	}
}

func TestWatcherSkipsNonWorkbooks(t *testing.T) {
	dir := t.TempDir()
	w := newWatcher(t, Config{Directories: []string{dir}, Debounce: 50})

	called := make(chan struct{}, 4)
	w.Handler = func(context.Context, string, Rule) error {
		called <- struct{}{}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)
	time.Sleep(100 * time.Millisecond)

	os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644)
	os.WriteFile(filepath.Join(dir, "~$budget.xlsx"), []byte("x"), 0o644)
	time.Sleep(200 * time.Millisecond)

	if len(called) != 0 {
		t.Error("handler should not be called for non-workbook files")
	}
}

func TestPIDFile(t *testing.T) {
	dir := t.TempDir()

	if err := WritePIDFile(dir); err != nil {
		t.Fatal(err)
	}
	pid, err := ReadPIDFile(dir)
	if err != nil {
		t.Fatal(err)
	}
	if pid != os.Getpid() {
		t.Errorf("expected PID %d, got %d", os.Getpid(), pid)
	}
	if err := RemovePIDFile(dir); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadPIDFile(dir); err == nil {
		t.Error("expected error after removing PID file")
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	dir := t.TempDir()
	config := Config{
		Directories: []string{"/tmp/books"},
		Rules: []Rule{
			{ID: "r1", Pattern: "*.xlsx", Formats: []string{"json", "markdown"}, OutputDir: "out", Enabled: true},
		},
		Recursive: true,
		Debounce:  750,
	}
	if err := SaveConfig(dir, config); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadConfig(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded.Directories) != 1 || loaded.Directories[0] != "/tmp/books" {
		t.Errorf("directories mismatch: %v", loaded.Directories)
	}
	if !loaded.Recursive || loaded.Debounce != 750 {
		t.Errorf("recursive/debounce mismatch: %+v", loaded)
	}
	if len(loaded.Rules) != 1 || len(loaded.Rules[0].Formats) != 2 || loaded.Rules[0].OutputDir != "out" {
		t.Errorf("rules mismatch: %+v", loaded.Rules)
	}
}

func TestLoadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "watch.yaml"), []byte("directories: [unterminated"), 0o644)
	if _, err := LoadConfig(dir); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestGetStatus(t *testing.T) {
	w := newWatcher(t, Config{
		Directories: []string{"/tmp/a", "/tmp/b"},
		Rules:       []Rule{{ID: "r1"}, {ID: "r2"}},
	})

	status := w.GetStatus()
	if status.Running {
		t.Error("watcher has not been started")
	}
	if len(status.Directories) != 2 {
		t.Errorf("expected 2 directories, got %d", len(status.Directories))
	}
	if status.Rules != 2 {
		t.Errorf("expected 2 rules, got %d", status.Rules)
	}
}
