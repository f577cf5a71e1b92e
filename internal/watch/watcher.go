// Package watch monitors directories for saved workbooks and re-exports them.
package watch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// DefaultDebounce is the quiet period in milliseconds before a changed
// workbook is processed.
const DefaultDebounce = 500

// Rule selects which workbooks are exported and how.
type Rule struct {
	ID        string   `yaml:"id" json:"id"`
	Pattern   string   `yaml:"pattern" json:"pattern"` // glob matched against the base name, e.g. "budget_*.xlsx"
	Formats   []string `yaml:"formats,omitempty" json:"formats,omitempty"`
	OutputDir string   `yaml:"output_dir,omitempty" json:"outputDir,omitempty"`
	Enabled   bool     `yaml:"enabled" json:"enabled"`
}

// Config holds the watcher configuration.
type Config struct {
	Directories []string `yaml:"directories" json:"directories"`
	Rules       []Rule   `yaml:"rules" json:"rules"`
	Recursive   bool     `yaml:"recursive" json:"recursive"`
	Debounce    int      `yaml:"debounce_ms" json:"debounceMs"`
}

// Event records one processed (or skipped) workbook change.
type Event struct {
	Time      time.Time `json:"time"`
	Path      string    `json:"path"`
	Operation string    `json:"operation"`
	RuleID    string    `json:"ruleId,omitempty"`
	Status    string    `json:"status"` // "exported", "error", "skipped"
	Error     string    `json:"error,omitempty"`
}

// Handler exports a workbook that matched rule.
type Handler func(ctx context.Context, path string, rule Rule) error

// Status is a snapshot of a running watcher.
type Status struct {
	Running     bool     `json:"running"`
	Directories []string `json:"directories"`
	Rules       int      `json:"rules"`
	EventCount  int      `json:"eventCount"`
	StartedAt   string   `json:"startedAt,omitempty"`
}

// Watcher monitors directories for workbook changes.
type Watcher struct {
	Config  Config
	Log     logrus.FieldLogger
	Handler Handler

	mu       sync.Mutex
	events   []Event
	started  time.Time
	ctx      context.Context
	fsw      *fsnotify.Watcher
	debounce map[string]*time.Timer
}

// workbookExtensions are the spreadsheet formats the reader understands.
var workbookExtensions = map[string]bool{
	".xlsx": true, ".xlsm": true,
}

// AnyWorkbook is the rule applied when a configuration lists none.
var AnyWorkbook = Rule{ID: "default", Pattern: "*", Enabled: true}

// New creates a Watcher. A nil log discards output.
func New(config Config, log logrus.FieldLogger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("could not create file watcher: %w", err)
	}
	if config.Debounce <= 0 {
		config.Debounce = DefaultDebounce
	}
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Watcher{
		Config:   config,
		Log:      log.WithField("component", "watch"),
		ctx:      context.Background(),
		fsw:      fsw,
		debounce: make(map[string]*time.Timer),
	}, nil
}

// Start watches the configured directories until ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	for _, dir := range w.Config.Directories {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("could not resolve %s: %w", dir, err)
		}
		if w.Config.Recursive {
			err = w.addRecursive(abs)
		} else {
			err = w.fsw.Add(abs)
		}
		if err != nil {
			w.fsw.Close()
			return fmt.Errorf("could not watch %s: %w", abs, err)
		}
	}

	w.mu.Lock()
	w.ctx = ctx
	w.started = time.Now()
	w.mu.Unlock()

	w.Log.WithFields(logrus.Fields{
		"directories": len(w.Config.Directories),
		"rules":       len(w.rules()),
	}).Info("watching for workbook changes")

	for {
		select {
		case <-ctx.Done():
			w.stopTimers()
			w.Log.Info("stopping watcher")
			return w.fsw.Close()
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.Log.WithError(err).Warn("watch error")
		}
	}
}

// Close releases the underlying file watcher without starting it.
func (w *Watcher) Close() error {
	w.stopTimers()
	return w.fsw.Close()
}

func (w *Watcher) addRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != dir {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	path := event.Name
	if !IsWorkbook(path) {
		return
	}

	delay := time.Duration(w.Config.Debounce) * time.Millisecond
	w.mu.Lock()
	if timer, ok := w.debounce[path]; ok {
		timer.Stop()
	}
	w.debounce[path] = time.AfterFunc(delay, func() {
		w.mu.Lock()
		delete(w.debounce, path)
		ctx := w.ctx
		w.mu.Unlock()
		w.process(ctx, path, event.Op.String())
	})
	w.mu.Unlock()
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.debounce {
		timer.Stop()
		delete(w.debounce, path)
	}
}

// IsWorkbook reports whether path names a spreadsheet worth exporting.
// Office lock files ("~$book.xlsx") are ignored.
func IsWorkbook(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, "~$") || strings.HasPrefix(base, ".~") {
		return false
	}
	return workbookExtensions[strings.ToLower(filepath.Ext(base))]
}

func (w *Watcher) rules() []Rule {
	if len(w.Config.Rules) == 0 {
		return []Rule{AnyWorkbook}
	}
	return w.Config.Rules
}

// process runs the first enabled matching rule against path.
func (w *Watcher) process(ctx context.Context, path, operation string) Event {
	evt := Event{Time: time.Now(), Path: path, Operation: operation, Status: "skipped"}
	log := w.Log.WithField("path", path)

	for _, rule := range w.rules() {
		if !rule.Enabled || !MatchesRule(path, rule) {
			continue
		}
		evt.RuleID = rule.ID
		evt.Status = "exported"
		if w.Handler != nil {
			if err := w.Handler(ctx, path, rule); err != nil {
				evt.Status = "error"
				evt.Error = err.Error()
				log.WithError(err).Error("export failed")
			} else {
				log.WithField("rule", rule.ID).Info("exported")
			}
		} else {
			log.WithField("rule", rule.ID).Debug("matched without handler")
		}
		break
	}
	if evt.Status == "skipped" {
		log.Debug("no rule matched")
	}

	w.mu.Lock()
	w.events = append(w.events, evt)
	w.mu.Unlock()
	return evt
}

// MatchesRule reports whether the workbook at path is selected by rule.
// Enabled is not consulted.
func MatchesRule(path string, rule Rule) bool {
	if !IsWorkbook(path) {
		return false
	}
	if rule.Pattern == "" {
		return true
	}
	matched, err := filepath.Match(rule.Pattern, filepath.Base(path))
	return err == nil && matched
}

// GetStatus returns the current watcher status.
func (w *Watcher) GetStatus() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	st := Status{
		Running:     !w.started.IsZero(),
		Directories: w.Config.Directories,
		Rules:       len(w.Config.Rules),
		EventCount:  len(w.events),
	}
	if !w.started.IsZero() {
		st.StartedAt = w.started.Format(time.RFC3339)
	}
	return st
}

// Events returns a copy of all recorded events.
func (w *Watcher) Events() []Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	events := make([]Event, len(w.events))
	copy(events, w.events)
	return events
}

const (
	pidFile    = ".sheetlens-watch.pid"
	configFile = "watch.yaml"
)

// WritePIDFile writes the current process ID into dir.
func WritePIDFile(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, pidFile), []byte(fmt.Sprintf("%d", os.Getpid())), 0o644)
}

// ReadPIDFile reads the PID recorded in dir.
func ReadPIDFile(dir string) (int, error) {
	data, err := os.ReadFile(filepath.Join(dir, pidFile))
	if err != nil {
		return 0, err
	}
	var pid int
	if _, err := fmt.Sscanf(string(data), "%d", &pid); err != nil {
		return 0, fmt.Errorf("invalid PID file: %w", err)
	}
	return pid, nil
}

// RemovePIDFile removes the PID file from dir.
func RemovePIDFile(dir string) error {
	return os.Remove(filepath.Join(dir, pidFile))
}

// SaveConfig writes the watcher config to dir/watch.yaml.
func SaveConfig(dir string, config Config) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, configFile), data, 0o644)
}

// LoadConfig reads dir/watch.yaml.
func LoadConfig(dir string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(dir, configFile))
	if err != nil {
		return nil, err
	}
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("invalid watch config: %w", err)
	}
	return &config, nil
}

// DefaultConfigDir returns ~/.sheetlens.
func DefaultConfigDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".sheetlens")
}
