// Package show provides the "sheetlens show" command, which renders a
// workbook to stdout without writing any files.
package show

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/klytics/sheetlens/internal/archive"
	"github.com/klytics/sheetlens/internal/config"
	"github.com/klytics/sheetlens/internal/export"
	"github.com/klytics/sheetlens/internal/formats/xlsx"
	"github.com/klytics/sheetlens/internal/grid"
	"github.com/klytics/sheetlens/internal/output"
	"github.com/klytics/sheetlens/internal/workbook"
)

type sheetSummary struct {
	Name        string `json:"name"`
	Dimension   string `json:"dimension"`
	Cells       int    `json:"cells"`
	Merges      int    `json:"merges"`
	NamedRanges int    `json:"named_ranges"`
	Rules       int    `json:"conditional_formats"`
}

// NewCommand returns the show command.
func NewCommand() *cobra.Command {
	var (
		format  string
		sheet   string
		width   string
		list    bool
		noPager bool
	)

	cmd := &cobra.Command{
		Use:   "show <workbook.xlsx>",
		Short: "Render a workbook to the terminal",
		Long: `Renders one output format to stdout instead of writing files.

Example:
  sheetlens show budget.xlsx
  sheetlens show budget.xlsx --sheet Summary --format markdown
  sheetlens show budget.xlsx --list`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromContext(cmd.Context())
			if err != nil {
				return err
			}
			opts, err := cfg.ExportOptions()
			if err != nil {
				return err
			}
			if width != "" {
				if opts.Width, err = grid.WidthRule(width); err != nil {
					return err
				}
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			jsonFlag, _ := cmd.Flags().GetBool("json")

			wb, err := xlsx.ReadFile(args[0])
			if err != nil {
				return &export.Error{Path: args[0], Stage: export.StageRead, Err: fmt.Errorf("%w: %w", export.ErrUnreadable, err)}
			}
			if sheet != "" {
				s, err := wb.GetSheet(sheet)
				if err != nil {
					return err
				}
				wb = &workbook.Workbook{Path: wb.Path, Sheets: []*workbook.Sheet{s}}
			}

			if list {
				summaries := summarize(wb)
				if jsonFlag {
					return output.PrintJSON(cmd.OutOrStdout(), "show", summaries)
				}
				tbl := output.Table{Headers: []string{"SHEET", "RANGE", "CELLS", "MERGES", "NAMES", "RULES"}}
				for _, s := range summaries {
					tbl.Append(s.Name, s.Dimension, strconv.Itoa(s.Cells), strconv.Itoa(s.Merges),
						strconv.Itoa(s.NamedRanges), strconv.Itoa(s.Rules))
				}
				return tbl.Render(cmd.OutOrStdout())
			}

			content, err := render(wb, f, opts)
			if err != nil {
				return err
			}
			if jsonFlag {
				return output.PrintJSON(cmd.OutOrStdout(), "show", map[string]string{
					"format":  string(f),
					"content": content,
				})
			}
			if !noPager && output.ShouldPage(content, output.DefaultPageHeight) {
				return output.Page(content)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), content)
			return err
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", string(export.FormatText), "Format to render")
	cmd.Flags().StringVarP(&sheet, "sheet", "s", "", "Render only this sheet")
	cmd.Flags().StringVar(&width, "width", "", "Display width rule: cjk | unicode")
	cmd.Flags().BoolVarP(&list, "list", "l", false, "List sheets with their extents instead of rendering")
	cmd.Flags().BoolVar(&noPager, "no-pager", false, "Never pipe output through a pager")
	return cmd
}

// render produces f for the whole workbook. CSV is rendered for the first
// sheet, so pair it with --sheet.
func render(wb *workbook.Workbook, f export.Format, opts export.Options) (string, error) {
	doc := export.Build(wb, opts)
	if f == export.FormatCSV {
		if len(wb.Sheets) == 0 {
			return "", nil
		}
		data, err := doc.RenderCSV(wb.Sheets[0].Name)
		return string(data), err
	}
	data, err := doc.Render(f)
	return string(data), err
}

func summarize(wb *workbook.Workbook) []sheetSummary {
	out := make([]sheetSummary, 0, len(wb.Sheets))
	for _, s := range wb.Sheets {
		rec := archive.BuildRecord(s)
		out = append(out, sheetSummary{
			Name:        s.Name,
			Dimension:   rec.Dimension,
			Cells:       len(rec.Cells),
			Merges:      len(s.Merged),
			NamedRanges: len(rec.NamedRanges),
			Rules:       len(rec.ConditionalFormatting),
		})
	}
	return out
}
