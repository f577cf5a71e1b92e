// Package progress draws batch and export progress on stderr.
// Nothing is written unless stderr is a terminal, so piped output stays clean.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/mattn/go-runewidth"
)

// statusWidth bounds the trailing status text, in display cells.
const statusWidth = 32

// Bar renders a workbook counter with a success/failure tally.
type Bar struct {
	Total   int
	Current int
	Failed  int
	Label   string
	Width   int
	Enabled bool
	Out     io.Writer

	mu sync.Mutex
}

// New creates a progress bar writing to stderr. It is disabled when
// stderr is not a terminal, when SHEETLENS_NO_PROGRESS=1 or when
// SHEETLENS_JSON=true.
func New(label string, total int) *Bar {
	return &Bar{
		Total:   total,
		Label:   label,
		Width:   30,
		Enabled: shouldEnable(),
		Out:     os.Stderr,
	}
}

// Increment records one finished workbook and redraws.
func (b *Bar) Increment(status string) {
	b.advance(status, false)
}

// Fail records one workbook that could not be exported and redraws.
func (b *Bar) Fail(status string) {
	b.advance(status, true)
}

func (b *Bar) advance(status string, failed bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.Current < b.Total {
		b.Current++
		if failed {
			b.Failed++
		}
	}
	b.render(status)
}

// Set moves the bar to n.
func (b *Bar) Set(n int, status string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.Current = min(n, b.Total)
	b.render(status)
}

// Finish clears the bar and prints a summary line.
func (b *Bar) Finish(summary string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.Enabled {
		return
	}
	mark := color.GreenString("✓")
	if b.Failed > 0 {
		mark = color.YellowString("!")
	}
	fmt.Fprintf(b.out(), "\r\033[K%s %s\n", mark, summary)
}

func (b *Bar) render(status string) {
	if !b.Enabled {
		return
	}
	fmt.Fprint(b.out(), "\r\033[K"+b.line(status))
}

// line formats the bar without terminal control codes.
func (b *Bar) line(status string) string {
	filled := 0
	if b.Total > 0 {
		filled = min(b.Current*b.Width/b.Total, b.Width)
	}
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", b.Width-filled)
	text := fmt.Sprintf("%s [%s] %d/%d", b.Label, bar, b.Current, b.Total)
	if b.Failed > 0 {
		text += fmt.Sprintf(" (%d failed)", b.Failed)
	}
	if status != "" {
		text += "  " + runewidth.Truncate(status, statusWidth, "…")
	}
	return text
}

func (b *Bar) out() io.Writer {
	if b.Out == nil {
		return os.Stderr
	}
	return b.Out
}

// Pct returns the completed percentage (0-100).
func (b *Bar) Pct() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Total == 0 {
		return 0
	}
	return float64(b.Current) / float64(b.Total) * 100
}

// Spinner animates while a single workbook is being read.
type Spinner struct {
	Label   string
	Enabled bool
	Out     io.Writer

	mu      sync.Mutex
	done    chan struct{}
	stopped bool
}

// NewSpinner creates a spinner writing to stderr.
func NewSpinner(label string) *Spinner {
	return &Spinner{
		Label:   label,
		Enabled: shouldEnable(),
		Out:     os.Stderr,
		done:    make(chan struct{}),
	}
}

// Start begins the animation.
func (s *Spinner) Start() {
	if !s.Enabled {
		return
	}

	s.mu.Lock()
	s.stopped = false
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	go func() {
		frames := []rune{'⠋', '⠙', '⠹', '⠸', '⠼', '⠴', '⠦', '⠧', '⠇', '⠏'}
		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-done:
				return
			case <-ticker.C:
				s.mu.Lock()
				if !s.stopped {
					fmt.Fprintf(s.out(), "\r\033[K%c %s", frames[i%len(frames)], s.Label)
				}
				s.mu.Unlock()
			}
		}
	}()
}

// Stop halts the animation and prints result.
func (s *Spinner) Stop(result string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	select {
	case <-s.done:
	default:
		close(s.done)
	}
	if s.Enabled {
		fmt.Fprintf(s.out(), "\r\033[K%s %s\n", color.GreenString("✓"), result)
	}
}

// Update changes the label while the spinner runs.
func (s *Spinner) Update(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Label = label
}

func (s *Spinner) out() io.Writer {
	if s.Out == nil {
		return os.Stderr
	}
	return s.Out
}

func shouldEnable() bool {
	if os.Getenv("SHEETLENS_NO_PROGRESS") == "1" {
		return false
	}
	if os.Getenv("SHEETLENS_JSON") == "true" {
		return false
	}
	return isTTY()
}

func isTTY() bool {
	fd := os.Stderr.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
