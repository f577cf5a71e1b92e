package archive

import (
	"encoding/csv"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/klytics/sheetlens/internal/workbook"
)

// WriteCSV writes the values of one sheet over its bounding box, one record
// per row. Formulas, comments and links are not included. The output starts
// with a UTF-8 byte order mark so spreadsheet applications detect the
// encoding of non-Latin text. An empty sheet produces only the mark.
func WriteCSV(w io.Writer, s *workbook.Sheet) error {
	bom := transform.NewWriter(w, unicode.UTF8BOM.NewEncoder())
	cw := csv.NewWriter(bom)

	if bounds, ok := s.Bounds(); ok {
		record := make([]string, bounds.Cols())
		for row := bounds.MinRow; row <= bounds.MaxRow; row++ {
			for col := bounds.MinCol; col <= bounds.MaxCol; col++ {
				record[col-bounds.MinCol] = workbook.FormatValue(s.Cell(row, col).Value)
			}
			if err := cw.Write(record); err != nil {
				return fmt.Errorf("could not write CSV row %d: %w", row, err)
			}
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("could not write CSV: %w", err)
	}
	return bom.Close()
}
