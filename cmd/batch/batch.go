// Package batch provides the "sheetlens batch" command, which exports many
// workbooks in parallel.
package batch

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	cmdexport "github.com/klytics/sheetlens/cmd/export"
	"github.com/klytics/sheetlens/internal/config"
	"github.com/klytics/sheetlens/internal/export"
	"github.com/klytics/sheetlens/internal/output"
	"github.com/klytics/sheetlens/internal/progress"
	"github.com/klytics/sheetlens/internal/watch"
)

type batchResultItem struct {
	File   string         `json:"file"`
	Status string         `json:"status"`
	Result *export.Result `json:"result,omitempty"`
	Error  string         `json:"error,omitempty"`
}

// NewCommand returns the batch subcommand.
func NewCommand() *cobra.Command {
	var (
		flags       cmdexport.Flags
		concurrency int
		failFast    bool
	)

	cmd := &cobra.Command{
		Use:   "batch <glob|directory> [glob|directory...]",
		Short: "Export every workbook matching the given patterns",
		Long: `Exports all workbooks matching one or more glob patterns or directories.

A workbook that fails is reported and the batch continues with the next
one, unless --fail-fast is set. Outputs of all workbooks share the output
directory, so workbook names must be unique.

Example:
  sheetlens batch 'reports/*.xlsx' -o exports/
  sheetlens batch ./q1 ./q2 --concurrency 8 -f json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromContext(cmd.Context())
			if err != nil {
				return err
			}
			opts, err := flags.Options(cfg)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("concurrency") {
				concurrency = cfg.Batch.Concurrency
			}
			concurrency = max(concurrency, 1)
			jsonFlag, _ := cmd.Flags().GetBool("json")
			log := logrus.StandardLogger()

			files, err := Expand(args)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				return fmt.Errorf("no workbooks matched %v", args)
			}
			if err := checkUniqueNames(files); err != nil {
				return err
			}

			bar := progress.New("Exporting", len(files))
			results := make([]batchResultItem, len(files))
			journal := cfg.Journal()
			ctx := cmd.Context()

			var (
				mu     sync.Mutex
				failed int
				wg     sync.WaitGroup
			)
			sem := make(chan struct{}, concurrency)
			start := time.Now()

			for i, file := range files {
				wg.Add(1)
				go func(idx int, f string) {
					defer wg.Done()
					sem <- struct{}{}
					defer func() { <-sem }()

					item := batchResultItem{File: f, Status: "ok"}
					mu.Lock()
					stop := failFast && failed > 0
					mu.Unlock()
					if stop || ctx.Err() != nil {
						item.Status = "skipped"
						results[idx] = item
						bar.Increment(filepath.Base(f))
						return
					}

					began := time.Now()
					res, runErr := export.Run(ctx, f, opts, log)
					if err := cmdexport.Record(ctx, journal, "batch", f, opts, res, runErr, time.Since(began)); err != nil {
						log.WithError(err).Warn("could not record history")
					}

					item.Result = res
					if runErr != nil {
						item.Status = "error"
						item.Error = runErr.Error()
						log.WithError(runErr).WithField("file", f).Error("export failed")
						mu.Lock()
						failed++
						mu.Unlock()
						bar.Fail(filepath.Base(f))
					} else {
						bar.Increment(filepath.Base(f))
					}
					results[idx] = item
				}(i, file)
			}
			wg.Wait()

			succeeded := 0
			for _, r := range results {
				if r.Status == "ok" {
					succeeded++
				}
			}
			bar.Finish(fmt.Sprintf("%d of %d workbooks exported in %s",
				succeeded, len(files), time.Since(start).Round(time.Millisecond)))

			if jsonFlag {
				if err := output.PrintJSON(cmd.OutOrStdout(), "batch", results); err != nil {
					return err
				}
			} else {
				tbl := output.Table{Headers: []string{"WORKBOOK", "STATUS", "SHEETS", "FILES", "DETAIL"}}
				for _, r := range results {
					sheets, written := "-", "-"
					if r.Result != nil {
						sheets = strconv.Itoa(r.Result.Sheets)
						written = strconv.Itoa(len(r.Result.Files))
					}
					tbl.Append(r.File, r.Status, sheets, written, r.Error)
				}
				if err := tbl.Render(cmd.OutOrStdout()); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "\nProcessed %d workbooks. %d succeeded, %d failed.\n",
					len(files), succeeded, failed)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d workbooks failed", failed, len(files))
			}
			return nil
		},
	}

	flags.Bind(cmd.Flags())
	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 4, "Number of parallel workers (default from config)")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Skip remaining workbooks after the first failure")
	return cmd
}

// Expand resolves glob patterns and directories into a sorted, duplicate
// free list of workbook paths.
func Expand(patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(path string) {
		if !watch.IsWorkbook(path) || seen[path] {
			return
		}
		seen[path] = true
		files = append(files, path)
	}

	for _, pattern := range patterns {
		if info, err := os.Stat(pattern); err == nil && info.IsDir() {
			entries, err := os.ReadDir(pattern)
			if err != nil {
				return nil, err
			}
			for _, e := range entries {
				if !e.IsDir() {
					add(filepath.Join(pattern, e.Name()))
				}
			}
			continue
		}

		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
		}
		for _, m := range matches {
			add(m)
		}
	}
	sort.Strings(files)
	return files, nil
}

// checkUniqueNames rejects batches where two workbooks would write the
// same output files.
func checkUniqueNames(files []string) error {
	owner := make(map[string]string, len(files))
	for _, f := range files {
		base := export.BaseName(f)
		if prev, ok := owner[base]; ok {
			return fmt.Errorf("%s and %s would overwrite each other's output; export them separately", prev, f)
		}
		owner[base] = f
	}
	return nil
}
