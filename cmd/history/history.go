// Package history provides the "sheetlens history" commands for viewing
// past export runs.
package history

import (
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/klytics/sheetlens/internal/config"
	"github.com/klytics/sheetlens/internal/history"
	"github.com/klytics/sheetlens/internal/output"
)

// NewCommand creates the "history" command with all subcommands.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "View and manage the export history",
		Long: `Every export, batch and watch run is recorded in a JSON-lines journal
(history.path, default ~/.sheetlens/history.jsonl). Disable it with
'sheetlens config set history.enabled false'.`,
	}

	cmd.AddCommand(newListCmd())
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newStatusCmd())
	return cmd
}

func journalPath(cmd *cobra.Command) (string, error) {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return "", err
	}
	return cfg.History.Path, nil
}

func newListCmd() *cobra.Command {
	var (
		last     int
		command  string
		workbook string
		since    string
		failed   bool
	)

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"log"},
		Short:   "Show recent export runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := journalPath(cmd)
			if err != nil {
				return err
			}
			entries, err := history.ReadEntries(path)
			if err != nil {
				return err
			}

			filter := history.Filter{Command: command, Workbook: workbook}
			if since != "" {
				t, err := time.ParseInLocation("2006-01-02", since, time.Local)
				if err != nil {
					return fmt.Errorf("invalid --since date: %w (use YYYY-MM-DD)", err)
				}
				filter.Since = t
			}
			if failed {
				filter.Status = history.StatusError
			}
			filtered := history.Last(history.FilterEntries(entries, filter), last)

			out := cmd.OutOrStdout()
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return output.PrintJSON(out, "history list", filtered)
			}
			if len(filtered) == 0 {
				fmt.Fprintln(out, "No export runs recorded.")
				return nil
			}

			fmt.Fprintf(out, "Export history: %d runs\n", len(filtered))
			fmt.Fprintf(out, "File: %s\n\n", path)

			tbl := output.Table{Headers: []string{"TIMESTAMP", "COMMAND", "WORKBOOK", "SHEETS", "FILES", "DURATION", "STATUS"}}
			for _, e := range filtered {
				status := color.GreenString(e.Status)
				if e.Status == history.StatusError {
					status = color.RedString(e.Status) + " " + e.Error
				}
				tbl.Append(
					e.Timestamp.Local().Format("2006-01-02 15:04:05"),
					e.Command,
					filepath.Base(e.Workbook),
					strconv.Itoa(e.Sheets),
					strconv.Itoa(len(e.Files)),
					formatDuration(e.DurationMs),
					status,
				)
			}
			return tbl.Render(out)
		},
	}

	cmd.Flags().IntVar(&last, "last", 20, "Show last N runs (0 for all)")
	cmd.Flags().StringVar(&command, "command", "", "Filter by command: export, batch, watch")
	cmd.Flags().StringVar(&workbook, "workbook", "", "Filter by workbook path substring")
	cmd.Flags().StringVar(&since, "since", "", "Only runs since date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&failed, "failed", false, "Only failed runs")
	return cmd
}

func newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Clear the export history",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := journalPath(cmd)
			if err != nil {
				return err
			}
			if err := history.Clear(path); err != nil {
				return err
			}
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return output.PrintJSON(cmd.OutOrStdout(), "history clear", map[string]string{"cleared": path})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "History cleared: %s\n", path)
			return nil
		},
	}
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show history journal path and size",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromContext(cmd.Context())
			if err != nil {
				return err
			}
			path := cfg.History.Path
			size := history.Size(path)
			entries, _ := history.ReadEntries(path)

			out := cmd.OutOrStdout()
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				return output.PrintJSON(out, "history status", map[string]any{
					"path":    path,
					"enabled": cfg.History.Enabled,
					"size":    size,
					"entries": len(entries),
				})
			}

			fmt.Fprintf(out, "History:  %s\n", path)
			fmt.Fprintf(out, "Enabled:  %v\n", cfg.History.Enabled)
			if size == 0 {
				fmt.Fprintln(out, "Size:     empty (no entries)")
			} else {
				fmt.Fprintf(out, "Size:     %s\n", formatSize(size))
			}
			fmt.Fprintf(out, "Entries:  %d\n", len(entries))
			return nil
		},
	}
}

func formatDuration(ms int64) string {
	if ms >= 1000 {
		return fmt.Sprintf("%.1fs", float64(ms)/1000)
	}
	return fmt.Sprintf("%dms", ms)
}

func formatSize(bytes int64) string {
	if bytes < 1024 {
		return fmt.Sprintf("%d B", bytes)
	}
	if bytes < 1024*1024 {
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	}
	return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
}
