// Package shell provides the interactive sheetlens REPL.
package shell

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/fatih/color"
)

// CommandRunner executes a sheetlens command line and writes its output.
// It is set by the cmd/shell package to avoid import cycles.
type CommandRunner func(ctx context.Context, args []string, stdout, stderr io.Writer) error

// DefaultRunner is the command runner used by shell sessions.
var DefaultRunner CommandRunner

// workbookCommands take a workbook path as their first argument; the
// session supplies the open workbook when it is omitted.
var workbookCommands = map[string]bool{"export": true, "show": true}

// Session holds the state of one interactive shell.
type Session struct {
	Workbook       string // set by "open"
	OutputDir      string // set by "set output"
	LastOutput     string
	CommandHistory []string
	HistoryFile    string
	StartTime      time.Time
	Out            io.Writer

	// KnownCommands is the list of top-level commands for completion.
	KnownCommands []string
}

// NewSession creates a session whose readline history lives under
// ~/.sheetlens.
func NewSession() (*Session, error) {
	home, _ := os.UserHomeDir()
	histFile := filepath.Join(home, ".sheetlens", "shell_history")
	os.MkdirAll(filepath.Dir(histFile), 0o755)

	return &Session{
		HistoryFile: histFile,
		StartTime:   time.Now(),
		Out:         os.Stdout,
		KnownCommands: []string{
			"export", "show", "batch", "watch", "config", "history",
			"completion", "version",
			"open", "close", "set", "help", "exit", "quit",
		},
	}, nil
}

// Run starts the REPL loop. It blocks until "exit" or Ctrl+D.
func (s *Session) Run(ctx context.Context) error {
	if DefaultRunner == nil {
		return fmt.Errorf("shell runner not configured")
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          s.prompt(),
		HistoryFile:     s.HistoryFile,
		AutoComplete:    readline.NewPrefixCompleter(s.buildCompleter()...),
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	fmt.Fprintln(s.Out, "sheetlens interactive shell")
	fmt.Fprintln(s.Out, "Type 'help' for commands, 'exit' to quit.")
	fmt.Fprintln(s.Out)

	for {
		line, err := rl.Readline()
		if err != nil {
			break
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		s.CommandHistory = append(s.CommandHistory, line)

		if line == "exit" || line == "quit" {
			fmt.Fprintf(s.Out, "\nSession ended. %d commands run in %s.\n",
				len(s.CommandHistory)-1, formatDuration(time.Since(s.StartTime)))
			return nil
		}
		if s.builtin(line) {
			rl.SetPrompt(s.prompt())
			continue
		}

		output, err := s.Eval(ctx, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s %s\n", color.RedString("Error:"), err)
		} else if output != "" {
			fmt.Fprint(s.Out, output)
			if !strings.HasSuffix(output, "\n") {
				fmt.Fprintln(s.Out)
			}
		}
	}
	return nil
}

// builtin handles session commands that never reach the runner.
func (s *Session) builtin(line string) bool {
	fields := strings.Fields(line)
	switch {
	case line == "help":
		s.printHelp()
	case line == "history":
		for i, cmd := range s.CommandHistory {
			fmt.Fprintf(s.Out, "  %d  %s\n", i+1, cmd)
		}
	case fields[0] == "open":
		if len(fields) != 2 {
			fmt.Fprintln(s.Out, "usage: open <workbook.xlsx>")
			return true
		}
		if _, err := os.Stat(fields[1]); err != nil {
			fmt.Fprintf(s.Out, "Cannot open %s: %v\n", fields[1], err)
			return true
		}
		s.Workbook = fields[1]
		fmt.Fprintf(s.Out, "Workbook: %s\n", s.Workbook)
	case line == "close":
		s.Workbook = ""
	case len(fields) == 3 && fields[0] == "set" && fields[1] == "output":
		s.OutputDir = fields[2]
		fmt.Fprintf(s.Out, "Output directory: %s\n", s.OutputDir)
	default:
		return false
	}
	return true
}

// Eval runs a single command line and returns what it printed.
func (s *Session) Eval(ctx context.Context, command string) (string, error) {
	if DefaultRunner == nil {
		return "", fmt.Errorf("shell runner not configured")
	}

	args := s.expand(strings.Fields(command))
	if len(args) == 0 {
		return "", nil
	}

	var stdout, stderr bytes.Buffer
	err := DefaultRunner(ctx, args, &stdout, &stderr)

	output := stdout.String()
	s.LastOutput = output

	if errOut := strings.TrimSpace(stderr.String()); errOut != "" && err != nil {
		return output, fmt.Errorf("%s", errOut)
	}
	return output, err
}

// expand fills in the open workbook and output directory for commands
// that were typed without them.
func (s *Session) expand(args []string) []string {
	if len(args) == 0 || !workbookCommands[args[0]] {
		return args
	}
	out := []string{args[0]}
	if s.Workbook != "" && !hasPositional(args[1:]) {
		out = append(out, s.Workbook)
	}
	out = append(out, args[1:]...)
	if args[0] == "export" && s.OutputDir != "" && !hasFlag(args[1:], "-o", "--output") {
		out = append(out, "--output", s.OutputDir)
	}
	return out
}

func hasPositional(args []string) bool {
	for i := 0; i < len(args); i++ {
		a := args[i]
		if !strings.HasPrefix(a, "-") {
			return true
		}
		// flags that take a separate value
		if !strings.Contains(a, "=") && (a == "-o" || a == "--output" || a == "-f" || a == "--format" || a == "-s" || a == "--sheet") {
			i++
		}
	}
	return false
}

func hasFlag(args []string, names ...string) bool {
	for _, a := range args {
		for _, n := range names {
			if a == n || strings.HasPrefix(a, n+"=") {
				return true
			}
		}
	}
	return false
}

// Complete returns tab-completion candidates for input.
func (s *Session) Complete(input string) []string {
	input = strings.TrimSpace(input)
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return s.KnownCommands
	}

	if len(parts) == 1 && !strings.HasSuffix(input, " ") {
		var matches []string
		for _, cmd := range s.KnownCommands {
			if strings.HasPrefix(cmd, parts[0]) {
				matches = append(matches, cmd)
			}
		}
		sort.Strings(matches)
		return matches
	}

	if len(parts) == 2 && !strings.HasSuffix(input, " ") {
		var matches []string
		for _, sub := range subcommandsFor(parts[0]) {
			if strings.HasPrefix(sub, parts[1]) {
				matches = append(matches, sub)
			}
		}
		return matches
	}

	if strings.HasPrefix(parts[len(parts)-1], "-") {
		return []string{"--json", "--verbose", "--help", "--format", "--output", "--sheet"}
	}
	return nil
}

func subcommandsFor(parent string) []string {
	subs := map[string][]string{
		"watch":      {"start", "status", "config"},
		"config":     {"init", "show", "set", "get", "reset", "validate", "path"},
		"history":    {"list", "clear", "status"},
		"completion": {"bash", "zsh", "fish", "powershell"},
		"set":        {"output"},
	}
	return subs[parent]
}

func (s *Session) prompt() string {
	if s.Workbook == "" {
		return "sheetlens> "
	}
	return fmt.Sprintf("sheetlens [%s]> ", filepath.Base(s.Workbook))
}

func (s *Session) printHelp() {
	fmt.Fprintln(s.Out, "Available commands:")
	fmt.Fprintln(s.Out)
	fmt.Fprintln(s.Out, "  Workbooks:  export, show, batch, watch")
	fmt.Fprintln(s.Out, "  Settings:   config, history")
	fmt.Fprintln(s.Out, "  System:     completion, version")
	fmt.Fprintln(s.Out)
	fmt.Fprintln(s.Out, "Shell commands:")
	fmt.Fprintln(s.Out, "  open <file>        use <file> when export/show omit a workbook")
	fmt.Fprintln(s.Out, "  close              forget the open workbook")
	fmt.Fprintln(s.Out, "  set output <dir>   default --output for export")
	fmt.Fprintln(s.Out, "  history            show command history")
	fmt.Fprintln(s.Out, "  exit               exit the shell")
}

func (s *Session) buildCompleter() []readline.PrefixCompleterInterface {
	var items []readline.PrefixCompleterInterface
	for _, cmd := range s.KnownCommands {
		var subItems []readline.PrefixCompleterInterface
		for _, sub := range subcommandsFor(cmd) {
			subItems = append(subItems, readline.PcItem(sub))
		}
		items = append(items, readline.PcItem(cmd, subItems...))
	}
	return items
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.0fs", d.Seconds())
	}
	return fmt.Sprintf("%dm %ds", int(d.Minutes()), int(d.Seconds())%60)
}
