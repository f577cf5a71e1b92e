// Package history keeps a JSON-lines journal of export runs so users can
// see what was exported, when, and where the files went.
package history

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Run outcomes.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// Entry is one export run.
type Entry struct {
	Timestamp   time.Time `json:"timestamp"`
	Machine     string    `json:"machine"`
	Command     string    `json:"command"` // "export", "batch" or "watch"
	Workbook    string    `json:"workbook"`
	Formats     []string  `json:"formats,omitempty"`
	Sheets      int       `json:"sheets"`
	EmptySheets int       `json:"empty_sheets,omitempty"`
	Files       []string  `json:"files,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
	Status      string    `json:"status"`
	Error       string    `json:"error,omitempty"`
}

// Journal appends entries to a file. A disabled journal does nothing.
type Journal struct {
	Path    string
	Enabled bool

	mu sync.Mutex
}

// NewJournal creates a journal writing to path.
func NewJournal(path string, enabled bool) *Journal {
	return &Journal{Path: path, Enabled: enabled}
}

// Append writes one entry. Timestamp and Machine are filled in when unset.
// Safe for concurrent use.
func (j *Journal) Append(ctx context.Context, entry Entry) error {
	if j == nil || !j.Enabled || j.Path == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.Machine == "" {
		entry.Machine, _ = os.Hostname()
	}
	if entry.Status == "" {
		entry.Status = StatusOK
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encoding history entry: %w", err)
	}
	data = append(data, '\n')

	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(j.Path), 0o755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}
	f, err := os.OpenFile(j.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening history: %w", err)
	}
	defer f.Close()
	_, err = f.Write(data)
	return err
}

// ReadEntries reads every entry from path, oldest first. A missing file
// yields no entries; malformed lines are skipped.
func ReadEntries(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var entries []Entry
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, sc.Err()
}

// Filter narrows a listing. Zero fields match everything.
type Filter struct {
	Since    time.Time
	Until    time.Time
	Workbook string // substring of the workbook path
	Command  string
	Status   string
}

// FilterEntries returns the entries matching f.
func FilterEntries(entries []Entry, f Filter) []Entry {
	var result []Entry
	for _, e := range entries {
		if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
			continue
		}
		if !f.Until.IsZero() && e.Timestamp.After(f.Until) {
			continue
		}
		if f.Workbook != "" && !strings.Contains(e.Workbook, f.Workbook) {
			continue
		}
		if f.Command != "" && e.Command != f.Command {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		result = append(result, e)
	}
	return result
}

// Last returns at most n entries from the end of entries.
func Last(entries []Entry, n int) []Entry {
	if n <= 0 || n >= len(entries) {
		return entries
	}
	return entries[len(entries)-n:]
}

// Size returns the journal size in bytes, or 0 if it does not exist.
func Size(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}

// Clear truncates the journal.
func Clear(path string) error {
	err := os.Truncate(path, 0)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
