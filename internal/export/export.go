// Package export runs the whole pipeline for one workbook: read it, build
// the visual and structured outputs and write the enabled formats to disk.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/klytics/sheetlens/internal/formats/xlsx"
	"github.com/klytics/sheetlens/internal/workbook"
)

// Result summarises a finished export.
type Result struct {
	Source      string        `json:"source"`
	Sheets      int           `json:"sheets"`
	EmptySheets []string      `json:"empty_sheets,omitempty"`
	Files       []string      `json:"files"`
	Duration    time.Duration `json:"duration_ns"`
}

// Run exports the workbook at path. A workbook that cannot be read aborts
// the run before any file is written. Any later failure aborts the run as
// well; files already written are left in place.
func Run(ctx context.Context, path string, opts Options, log logrus.FieldLogger) (*Result, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	log = log.WithField("file", path)
	start := time.Now()
	if err := ctx.Err(); err != nil {
		return nil, &Error{Path: path, Stage: StageRead, Err: err}
	}

	log.Debug("reading workbook")
	wb, err := xlsx.ReadFile(path)
	if err != nil {
		return nil, &Error{Path: path, Stage: StageRead, Err: fmt.Errorf("%w: %w", ErrUnreadable, err)}
	}

	res, err := Write(ctx, wb, opts, log)
	if err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)
	log.WithFields(logrus.Fields{"files": len(res.Files), "duration": res.Duration}).Info("export finished")
	return res, nil
}

// Write renders an already loaded workbook and writes the enabled formats
// into opts.OutputDir.
func Write(ctx context.Context, wb *workbook.Workbook, opts Options, log logrus.FieldLogger) (*Result, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if len(opts.Formats) == 0 {
		opts.Formats = DefaultFormats
	}

	doc := Build(wb, opts)
	res := &Result{Source: wb.Path, Sheets: len(doc.Sheets)}
	for _, v := range doc.Sheets {
		log.WithFields(logrus.Fields{"sheet": v.Name, "bounds": boundsLabel(v)}).Debug("sheet scanned")
		if v.Empty {
			res.EmptySheets = append(res.EmptySheets, v.Name)
		}
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, &Error{Path: wb.Path, Stage: StageWrite, Err: fmt.Errorf("could not create output directory: %w", err)}
	}
	base := BaseName(wb.Path)

	for _, f := range opts.Formats {
		if err := ctx.Err(); err != nil {
			return nil, &Error{Path: wb.Path, Stage: StageWrite, Err: err}
		}

		if f == FormatCSV {
			names := CSVFileNames(base, doc.Sheets)
			for i, v := range doc.Sheets {
				data, err := doc.RenderCSV(v.Name)
				if err != nil {
					return nil, &Error{Path: wb.Path, Sheet: v.Name, Stage: StageRender, Err: err}
				}
				target := filepath.Join(opts.OutputDir, names[i])
				if err := writeFile(target, data); err != nil {
					return nil, &Error{Path: wb.Path, Sheet: v.Name, Stage: StageWrite, Err: err}
				}
				log.WithFields(logrus.Fields{"format": f, "path": target}).Debug("wrote output")
				res.Files = append(res.Files, target)
			}
			continue
		}

		data, err := doc.Render(f)
		if err != nil {
			return nil, &Error{Path: wb.Path, Stage: StageRender, Err: err}
		}
		target := filepath.Join(opts.OutputDir, FileName(base, f))
		if err := writeFile(target, data); err != nil {
			return nil, &Error{Path: wb.Path, Stage: StageWrite, Err: err}
		}
		log.WithFields(logrus.Fields{"format": f, "path": target}).Debug("wrote output")
		res.Files = append(res.Files, target)
	}

	return res, nil
}

func boundsLabel(v SheetView) string {
	if v.Empty {
		return "empty"
	}
	return v.Bounds.String()
}

// BaseName is the workbook file name without directory and extension.
func BaseName(path string) string {
	if path == "" {
		return "workbook"
	}
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// FileName returns the output file name of a whole-workbook format.
func FileName(base string, f Format) string {
	switch f {
	case FormatText:
		return base + "_visual.txt"
	case FormatMarkdown:
		return base + "_visual_plain.md"
	case FormatMarkdownRich:
		return base + "_visual_rich.md"
	case FormatJSON:
		return base + "_archive.json"
	case FormatYAML:
		return base + "_archive.yaml"
	case FormatTOML:
		return base + "_archive.toml"
	case FormatArchive:
		return base + "_archive.txt"
	}
	return base + "." + string(f)
}

var unsafeName = strings.NewReplacer(
	"/", "_", `\`, "_", ":", "_", "*", "_", "?", "_",
	`"`, "_", "<", "_", ">", "_", "|", "_", " ", "_",
)

// CSVFileName returns the per-sheet CSV file name. Characters that are not
// allowed in file names on common systems become underscores.
func CSVFileName(base, sheet string) string {
	return base + "_" + unsafeName.Replace(sheet) + ".csv"
}

// CSVFileNames returns one CSV file name per sheet. Sheets whose names
// collide after replacement get a numeric suffix ("_2", "_3", ...).
func CSVFileNames(base string, sheets []SheetView) []string {
	out := make([]string, len(sheets))
	used := make(map[string]bool, len(sheets))
	for i, v := range sheets {
		name := CSVFileName(base, v.Name)
		stem := strings.TrimSuffix(name, ".csv")
		for n := 2; used[strings.ToLower(name)]; n++ {
			name = fmt.Sprintf("%s_%d.csv", stem, n)
		}
		used[strings.ToLower(name)] = true
		out[i] = name
	}
	return out
}

func writeFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("could not write %s: %w", path, err)
	}
	return nil
}
