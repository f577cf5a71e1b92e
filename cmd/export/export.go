// Package export provides the "sheetlens export" command.
package export

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/klytics/sheetlens/internal/config"
	exp "github.com/klytics/sheetlens/internal/export"
	"github.com/klytics/sheetlens/internal/output"
	"github.com/klytics/sheetlens/internal/progress"
)

// NewCommand returns the export command.
func NewCommand() *cobra.Command {
	var flags Flags

	cmd := &cobra.Command{
		Use:   "export <workbook.xlsx>",
		Short: "Export a workbook to grids, legends and a structured archive",
		Long: `Reads an .xlsx workbook and writes one file per enabled format:

  text           <name>_visual.txt              fixed-width grid with legends
  markdown       <name>_visual_plain.md         Markdown tables
  markdown_rich  <name>_visual_rich.md          Markdown, or HTML tables when cells are merged
  json/yaml/toml <name>_archive.json/.yaml/.toml structured archive
  archive        <name>_archive.txt             plain-text cell listing
  csv            <name>_<sheet>.csv             values only, one file per sheet

Example:
  sheetlens export budget.xlsx
  sheetlens export budget.xlsx -f markdown_rich,json -o docs/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromContext(cmd.Context())
			if err != nil {
				return err
			}
			opts, err := flags.Options(cfg)
			if err != nil {
				return err
			}
			jsonFlag, _ := cmd.Flags().GetBool("json")
			path := args[0]
			log := logrus.StandardLogger()

			spin := progress.NewSpinner(fmt.Sprintf("Exporting %s", filepath.Base(path)))
			spin.Start()
			start := time.Now()
			res, runErr := exp.Run(cmd.Context(), path, opts, log)
			if runErr == nil {
				spin.Stop(fmt.Sprintf("Exported %d sheet(s)", res.Sheets))
			} else {
				spin.Stop("Export failed")
			}

			if err := Record(cmd.Context(), cfg.Journal(), "export", path, opts, res, runErr, time.Since(start)); err != nil {
				log.WithError(err).Warn("could not record history")
			}
			if runErr != nil {
				return runErr
			}

			if jsonFlag {
				return output.PrintJSON(cmd.OutOrStdout(), "export", res)
			}
			PrintResult(cmd, res)
			return nil
		},
	}

	flags.Bind(cmd.Flags())
	return cmd
}

// PrintResult lists the written files and any empty sheets.
func PrintResult(cmd *cobra.Command, res *exp.Result) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s: %d sheet(s), %d file(s) in %s\n",
		color.GreenString("✓"), res.Source, res.Sheets, len(res.Files), res.Duration.Round(time.Millisecond))
	for _, f := range res.Files {
		fmt.Fprintf(out, "  %s\n", f)
	}
	for _, name := range res.EmptySheets {
		fmt.Fprintf(out, "  %s sheet %q has no data\n", color.YellowString("!"), name)
	}
}
