package export

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/klytics/sheetlens/internal/archive"
	"github.com/klytics/sheetlens/internal/formats/xlsx"
	"github.com/klytics/sheetlens/internal/workbook"
)

var fixedNow = time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func testOptions(t *testing.T) Options {
	t.Helper()
	opts := DefaultOptions()
	opts.OutputDir = t.TempDir()
	opts.Now = func() time.Time { return fixedNow }
	return opts
}

func sampleWorkbook() *workbook.Workbook {
	s1 := workbook.NewSheet("Sheet1")
	s1.SetCell(2, 2, workbook.Cell{Value: "Hi"})

	calc := workbook.NewSheet("Calc")
	calc.SetCell(1, 1, workbook.Cell{Value: int64(2), Formula: "=1+1"})
	calc.SetCell(1, 2, workbook.Cell{Value: "see note", Comment: "checked"})
	calc.SetCell(2, 1, workbook.Cell{Value: "Title"})
	calc.SetCell(2, 3, workbook.Cell{Value: "end"})
	calc.Merged = []workbook.Range{{MinRow: 2, MinCol: 1, MaxRow: 2, MaxCol: 2}}

	blank := workbook.NewSheet("Blank")
	blank.MaxRow, blank.MaxCol = 5, 5

	return &workbook.Workbook{Path: "/data/book.xlsx", Sheets: []*workbook.Sheet{s1, calc, blank}}
}

func TestBuildSheetViews(t *testing.T) {
	doc := Build(sampleWorkbook(), testOptions(t))

	if len(doc.Sheets) != 3 {
		t.Fatalf("expected 3 sheet views, got %d", len(doc.Sheets))
	}
	if doc.Sheets[0].Fixed != "  |  B\n--+---\n2 | Hi\n" {
		t.Errorf("Sheet1 fixed grid = %q", doc.Sheets[0].Fixed)
	}
	if !strings.Contains(doc.Sheets[1].PlainLegend, "[f1]: =1+1\n") {
		t.Errorf("Calc legend = %q", doc.Sheets[1].PlainLegend)
	}
	if !strings.Contains(doc.Sheets[1].Rich, `<td colspan="2" rowspan="1">Title</td>`) {
		t.Errorf("Calc rich = %q", doc.Sheets[1].Rich)
	}
	if !doc.Sheets[2].Empty {
		t.Error("Blank should be empty")
	}
	if doc.Archive.Sheets[2].Dimension != archive.EmptyDimension {
		t.Errorf("Blank archive dimension = %q", doc.Archive.Sheets[2].Dimension)
	}
}

func TestDocumentText(t *testing.T) {
	doc := Build(sampleWorkbook(), testOptions(t))
	out := doc.Text()

	for _, s := range []string{
		"--- Workbook Visual View ---\nFile: book.xlsx\nGenerated: 2026-03-01 09:30:00\n",
		"Sheet: Sheet1\n----------------------------------------\n\n  |  B\n--+---\n2 | Hi\n",
		"Sheet: Calc\n",
		"2[f1]",
		"see note[c1]",
		"Sheet: Blank\n----------------------------------------\n\n(no data in this sheet)\n",
	} {
		if !strings.Contains(out, s) {
			t.Errorf("missing %q in\n%s", s, out)
		}
	}
}

func TestDocumentNoTimestamp(t *testing.T) {
	opts := testOptions(t)
	opts.Timestamp = false
	doc := Build(sampleWorkbook(), opts)

	if strings.Contains(doc.Text(), "Generated:") {
		t.Error("timestamp should be omitted")
	}
	a, _ := doc.Render(FormatArchive)
	if bytes.Contains(a, []byte("Generated:")) {
		t.Error("archive timestamp should be omitted")
	}

	again := Build(sampleWorkbook(), opts)
	if doc.Text() != again.Text() {
		t.Error("output should be stable without a timestamp")
	}
}

func TestDocumentMarkdown(t *testing.T) {
	doc := Build(sampleWorkbook(), testOptions(t))

	plain := doc.Markdown(false)
	if !strings.Contains(plain, "## Sheet: Sheet1\n\n|  | B |\n|:--:|:--:|\n| **2** | Hi |\n") {
		t.Errorf("unexpected plain markdown:\n%s", plain)
	}
	if !strings.Contains(plain, "| **2** | Title |  | end |") {
		t.Errorf("suppressed cell should render empty:\n%s", plain)
	}
	if !strings.Contains(plain, "## Sheet: Blank\n\n*(no data in this sheet)*\n") {
		t.Errorf("missing no-data marker:\n%s", plain)
	}

	rich := doc.Markdown(true)
	if !strings.Contains(rich, "<table>") || !strings.Contains(rich, "*(no data in this sheet)*") {
		t.Errorf("unexpected rich markdown:\n%s", rich)
	}
	if !strings.Contains(rich, "## Sheet: Sheet1\n\n|  | B |") {
		t.Error("sheet without merges should use the pipe table in rich output")
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	doc := Build(sampleWorkbook(), testOptions(t))
	if _, err := doc.Render(Format("docx")); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
	if _, err := doc.Render(FormatCSV); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("csv is per sheet, got %v", err)
	}
}

func TestParseFormats(t *testing.T) {
	got, err := ParseFormats([]string{"json", "text", "json"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != FormatJSON || got[1] != FormatText {
		t.Errorf("ParseFormats = %v", got)
	}

	if _, err := ParseFormats([]string{"pdf"}); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("expected ErrUnknownFormat, got %v", err)
	}
}

func TestFileNames(t *testing.T) {
	tests := map[Format]string{
		FormatText:         "book_visual.txt",
		FormatMarkdown:     "book_visual_plain.md",
		FormatMarkdownRich: "book_visual_rich.md",
		FormatJSON:         "book_archive.json",
		FormatYAML:         "book_archive.yaml",
		FormatTOML:         "book_archive.toml",
		FormatArchive:      "book_archive.txt",
	}
	for f, want := range tests {
		if got := FileName("book", f); got != want {
			t.Errorf("FileName(%s) = %q, want %q", f, got, want)
		}
	}
	if got := CSVFileName("book", "Q1 / Sales"); got != "book_Q1___Sales.csv" {
		t.Errorf("CSVFileName = %q", got)
	}
	if got := BaseName("/x/y/Report.final.xlsx"); got != "Report.final" {
		t.Errorf("BaseName = %q", got)
	}
}

func writeWorkbook(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book.xlsx")
	if err := xlsx.WriteFile(sampleWorkbook(), path); err != nil {
		t.Fatalf("could not write fixture: %v", err)
	}
	return path
}

func TestRun(t *testing.T) {
	path := writeWorkbook(t)
	opts := testOptions(t)
	opts.Formats = AllFormats

	res, err := Run(context.Background(), path, opts, quietLogger())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if res.Sheets != 3 {
		t.Errorf("Sheets = %d", res.Sheets)
	}
	if len(res.EmptySheets) != 1 || res.EmptySheets[0] != "Blank" {
		t.Errorf("EmptySheets = %v", res.EmptySheets)
	}
	// 7 whole-workbook files plus one CSV per sheet.
	if len(res.Files) != 10 {
		t.Errorf("expected 10 files, got %d: %v", len(res.Files), res.Files)
	}
	for _, f := range res.Files {
		if _, err := os.Stat(f); err != nil {
			t.Errorf("missing output %s: %v", f, err)
		}
	}

	text, err := os.ReadFile(filepath.Join(opts.OutputDir, "book_visual.txt"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(text), "2 | Hi") {
		t.Errorf("visual text missing Sheet1 grid:\n%s", text)
	}

	f, err := os.Open(filepath.Join(opts.OutputDir, "book_archive.json"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	a, err := archive.DecodeJSON(f)
	if err != nil {
		t.Fatal(err)
	}
	if got := a.Sheets[1].Cells["A1"].Formula; got != "=1+1" {
		t.Errorf("archived formula = %q", got)
	}
}

func TestRunDefaultFormats(t *testing.T) {
	path := writeWorkbook(t)
	opts := testOptions(t)

	res, err := Run(context.Background(), path, opts, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Files) != len(DefaultFormats) {
		t.Errorf("expected %d files, got %d", len(DefaultFormats), len(res.Files))
	}
	if _, err := os.Stat(filepath.Join(opts.OutputDir, "book_Sheet1.csv")); !os.IsNotExist(err) {
		t.Error("csv should not be written by default")
	}
}

func TestRunUnreadable(t *testing.T) {
	opts := testOptions(t)
	bad := filepath.Join(t.TempDir(), "bad.xlsx")
	os.WriteFile(bad, []byte("not a workbook"), 0644)

	_, err := Run(context.Background(), bad, opts, quietLogger())
	if !errors.Is(err, ErrUnreadable) {
		t.Fatalf("expected ErrUnreadable, got %v", err)
	}
	var exportErr *Error
	if !errors.As(err, &exportErr) || exportErr.Stage != StageRead {
		t.Errorf("expected read-stage *Error, got %#v", err)
	}

	entries, _ := os.ReadDir(opts.OutputDir)
	if len(entries) != 0 {
		t.Errorf("no output should be written, found %d entries", len(entries))
	}
}

func TestRunCancelled(t *testing.T) {
	path := writeWorkbook(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, path, testOptions(t), quietLogger())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestErrorMessage(t *testing.T) {
	err := &Error{Path: "a.xlsx", Sheet: "S", Stage: StageRender, Err: errors.New("boom")}
	if got := err.Error(); got != `export a.xlsx failed at render (sheet "S"): boom` {
		t.Errorf("Error() = %q", got)
	}
}

func TestWriteCSVNameCollision(t *testing.T) {
	wb := &workbook.Workbook{Path: "book.xlsx"}
	for _, name := range []string{"Q1 Data", "Q1_Data", "a/b"} {
		s := workbook.NewSheet(name)
		s.SetCell(1, 1, workbook.Cell{Value: name})
		wb.Sheets = append(wb.Sheets, s)
	}
	opts := testOptions(t)
	opts.Formats = []Format{FormatCSV}

	res, err := Write(context.Background(), wb, opts, quietLogger())
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"book_Q1_Data.csv", "book_Q1_Data_2.csv", "book_a_b.csv"}
	if len(res.Files) != len(want) {
		t.Fatalf("files = %v", res.Files)
	}
	for i, name := range want {
		if filepath.Base(res.Files[i]) != name {
			t.Errorf("file %d = %s, want %s", i, filepath.Base(res.Files[i]), name)
		}
		data, err := os.ReadFile(res.Files[i])
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), wb.Sheets[i].Name) {
			t.Errorf("%s does not hold sheet %q: %q", name, wb.Sheets[i].Name, data)
		}
	}
}

func TestCSVFileNamesUnique(t *testing.T) {
	views := []SheetView{{Name: "a b"}, {Name: "a_b"}, {Name: "a_b_2"}}
	got := CSVFileNames("x", views)
	seen := map[string]bool{}
	for _, n := range got {
		if seen[n] {
			t.Errorf("duplicate name %s in %v", n, got)
		}
		seen[n] = true
	}
	if got[0] != "x_a_b.csv" || got[1] != "x_a_b_2.csv" {
		t.Errorf("names = %v", got)
	}
}
