// Package watch provides the "sheetlens watch" commands, which re-export
// workbooks whenever they are saved.
package watch

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cmdexport "github.com/klytics/sheetlens/cmd/export"
	"github.com/klytics/sheetlens/internal/config"
	"github.com/klytics/sheetlens/internal/export"
	"github.com/klytics/sheetlens/internal/output"
	w "github.com/klytics/sheetlens/internal/watch"
)

// NewCommand creates the "watch" command with subcommands.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Re-export workbooks automatically when they change",
		Long: `Watch directories for new or modified workbooks and export them with
the configured formats.

Example:
  sheetlens watch start ./reports --pattern 'budget_*.xlsx' -o exports/
  sheetlens watch status
  sheetlens watch stop`,
	}

	cmd.AddCommand(newStartCmd())
	cmd.AddCommand(newStopCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newConfigCmd())
	return cmd
}

func newStartCmd() *cobra.Command {
	var (
		flags      cmdexport.Flags
		patterns   []string
		recursive  bool
		debounce   int
		fromConfig bool
	)

	cmd := &cobra.Command{
		Use:   "start [directory...]",
		Short: "Start watching directories for workbook changes",
		Long: `Start watching directories. Each --pattern becomes a rule; without any,
every workbook is exported. With --saved the directories and rules of the
last run (stored in ~/.sheetlens/watch.yaml) are reused.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromContext(cmd.Context())
			if err != nil {
				return err
			}
			base, err := flags.Options(cfg)
			if err != nil {
				return err
			}
			configDir := w.DefaultConfigDir()

			var wc w.Config
			if fromConfig {
				saved, err := w.LoadConfig(configDir)
				if err != nil {
					return fmt.Errorf("no saved watcher configuration: %w", err)
				}
				wc = *saved
			} else {
				if len(args) == 0 {
					return fmt.Errorf("at least one directory is required (or use --saved)")
				}
				wc = w.Config{Directories: args, Recursive: recursive, Debounce: debounce}
				for i, p := range patterns {
					wc.Rules = append(wc.Rules, w.Rule{ID: fmt.Sprintf("pattern-%d", i+1), Pattern: p, Enabled: true})
				}
			}

			log := logrus.StandardLogger()
			watcher, err := w.New(wc, log)
			if err != nil {
				return err
			}
			journal := cfg.Journal()
			watcher.Handler = func(ctx context.Context, path string, rule w.Rule) error {
				opts, err := ruleOptions(base, rule)
				if err != nil {
					return err
				}
				start := time.Now()
				res, runErr := export.Run(ctx, path, opts, log)
				if err := cmdexport.Record(ctx, journal, "watch", path, opts, res, runErr, time.Since(start)); err != nil {
					log.WithError(err).Warn("could not record history")
				}
				if runErr == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "[%s] %s -> %d file(s)\n", rule.ID, path, len(res.Files))
				}
				return runErr
			}

			if err := w.WritePIDFile(configDir); err != nil {
				log.WithError(err).Warn("could not write PID file")
			}
			defer w.RemovePIDFile(configDir)
			if err := w.SaveConfig(configDir, wc); err != nil {
				log.WithError(err).Warn("could not save watcher configuration")
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s for workbooks, writing to %s\n",
				strings.Join(wc.Directories, ", "), base.OutputDir)
			fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl+C to stop")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return watcher.Start(ctx)
		},
	}

	flags.Bind(cmd.Flags())
	cmd.Flags().StringSliceVarP(&patterns, "pattern", "p", nil, "Base-name glob; one rule per pattern (default: every workbook)")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "Watch directories recursively")
	cmd.Flags().IntVar(&debounce, "debounce", w.DefaultDebounce, "Debounce interval in milliseconds")
	cmd.Flags().BoolVar(&fromConfig, "saved", false, "Reuse the directories and rules from the last run")
	return cmd
}

// ruleOptions applies a rule's format and output overrides to base.
func ruleOptions(base export.Options, rule w.Rule) (export.Options, error) {
	opts := base
	if len(rule.Formats) > 0 {
		formats, err := export.ParseFormats(rule.Formats)
		if err != nil {
			return opts, fmt.Errorf("rule %s: %w", rule.ID, err)
		}
		opts.Formats = formats
	}
	if rule.OutputDir != "" {
		opts.OutputDir = rule.OutputDir
	}
	return opts, nil
}

func newStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the running watcher",
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir := w.DefaultConfigDir()
			pid, err := w.ReadPIDFile(configDir)
			if err != nil {
				return fmt.Errorf("no watcher running (PID file not found)")
			}

			process, err := os.FindProcess(pid)
			if err != nil {
				return fmt.Errorf("could not find process %d: %w", pid, err)
			}
			if err := process.Signal(syscall.SIGTERM); err != nil {
				w.RemovePIDFile(configDir)
				return fmt.Errorf("could not stop watcher (PID %d): %w", pid, err)
			}
			w.RemovePIDFile(configDir)

			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return output.PrintJSON(cmd.OutOrStdout(), "watch stop", map[string]any{"stopped": true, "pid": pid})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stopped watcher (PID %d)\n", pid)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a watcher is running",
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir := w.DefaultConfigDir()
			pid, running := runningPID(configDir)
			jsonOut, _ := cmd.Flags().GetBool("json")
			out := cmd.OutOrStdout()

			if !running {
				if jsonOut {
					return output.PrintJSON(out, "watch status", map[string]any{"running": false})
				}
				fmt.Fprintln(out, "Watcher is not running")
				return nil
			}

			wc, _ := w.LoadConfig(configDir)
			status := map[string]any{"running": true, "pid": pid}
			if wc != nil {
				status["directories"] = wc.Directories
				status["rules"] = len(wc.Rules)
				status["recursive"] = wc.Recursive
			}
			if jsonOut {
				return output.PrintJSON(out, "watch status", status)
			}

			fmt.Fprintf(out, "Watcher is running (PID %d)\n", pid)
			if wc != nil {
				fmt.Fprintf(out, "  Directories: %s\n", strings.Join(wc.Directories, ", "))
				fmt.Fprintf(out, "  Rules:       %d\n", len(wc.Rules))
				fmt.Fprintf(out, "  Recursive:   %v\n", wc.Recursive)
			}
			return nil
		},
	}
}

// runningPID reports the recorded watcher PID if that process is alive.
// A stale PID file is removed.
func runningPID(configDir string) (int, bool) {
	pid, err := w.ReadPIDFile(configDir)
	if err != nil {
		return 0, false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return 0, false
	}
	if err := process.Signal(syscall.Signal(0)); err != nil {
		w.RemovePIDFile(configDir)
		return 0, false
	}
	return pid, true
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the saved watcher configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			wc, err := w.LoadConfig(w.DefaultConfigDir())
			if err != nil {
				return fmt.Errorf("no watcher configuration found (run 'sheetlens watch start' first)")
			}

			out := cmd.OutOrStdout()
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return output.PrintJSON(out, "watch config", wc)
			}

			fmt.Fprintf(out, "Directories: %s\n", strings.Join(wc.Directories, ", "))
			fmt.Fprintf(out, "Recursive:   %v\n", wc.Recursive)
			fmt.Fprintf(out, "Debounce:    %dms\n", wc.Debounce)
			fmt.Fprintf(out, "Rules:       %d\n", len(wc.Rules))
			for _, r := range wc.Rules {
				fmt.Fprintf(out, "  [%s] pattern=%q formats=%v output=%q enabled=%v\n",
					r.ID, r.Pattern, r.Formats, r.OutputDir, r.Enabled)
			}
			return nil
		},
	}
}
