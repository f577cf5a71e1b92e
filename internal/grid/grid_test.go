package grid

import (
	"regexp"
	"strings"
	"testing"

	"github.com/klytics/sheetlens/internal/workbook"
)

func TestWidth(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"abc", 3},
		{"中文", 4},
		{"中a", 3},
		{"ＡＢ", 4},
		{"あ", 1},
	}
	for _, tt := range tests {
		if got := Width(tt.in); got != tt.want {
			t.Errorf("Width(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestWidthProperties(t *testing.T) {
	for _, s := range []string{"一二三", "龥", "数据表格"} {
		if got, want := Width(s), 2*len([]rune(s)); got != want {
			t.Errorf("Width(%q) = %d, want %d", s, got, want)
		}
	}
	for _, s := range []string{"hello", "A1:B2", "  spaced  "} {
		if got := Width(s); got != len(s) {
			t.Errorf("Width(%q) = %d, want %d", s, got, len(s))
		}
	}
}

func TestWidthRule(t *testing.T) {
	cjk, err := WidthRule("")
	if err != nil {
		t.Fatal(err)
	}
	if cjk("あ") != 1 {
		t.Error("default rule should be the cjk rule")
	}

	uni, err := WidthRule("unicode")
	if err != nil {
		t.Fatal(err)
	}
	if uni("あ") != 2 {
		t.Errorf("unicode rule width of hiragana = %d, want 2", uni("あ"))
	}

	if _, err := WidthRule("proportional"); err == nil {
		t.Error("expected error for unknown rule")
	}
}

func TestAllocator(t *testing.T) {
	a := NewAllocator(DefaultPrefixes)

	if tag := a.Assign(KindFormula, "=1+1"); tag != "[f1]" {
		t.Errorf("first formula tag = %q", tag)
	}
	if tag := a.Assign(KindComment, "note"); tag != "[c1]" {
		t.Errorf("first comment tag = %q", tag)
	}
	if tag := a.Assign(KindFormula, "=2+2"); tag != "[f2]" {
		t.Errorf("second formula tag = %q", tag)
	}
	if tag := a.Assign(KindHyperlink, "https://example.com"); tag != "[h1]" {
		t.Errorf("first hyperlink tag = %q", tag)
	}

	refs := a.References(KindFormula)
	if len(refs) != 2 {
		t.Fatalf("expected 2 formula references, got %d", len(refs))
	}
	for i, r := range refs {
		if r.Seq != i+1 {
			t.Errorf("refs[%d].Seq = %d", i, r.Seq)
		}
	}
	if refs[1].Content != "=2+2" {
		t.Errorf("refs[1].Content = %q", refs[1].Content)
	}
	if a.Count(KindComment) != 1 || a.Count(KindHyperlink) != 1 {
		t.Error("counts per kind should be independent")
	}
}

func TestAllocatorCustomPrefixes(t *testing.T) {
	a := NewAllocator(Prefixes{Formula: "F", Comment: "N", Hyperlink: "L"})
	got := a.Assign(KindFormula, "x") + a.Assign(KindComment, "y") + a.Assign(KindHyperlink, "z")
	if got != "[F1][N1][L1]" {
		t.Errorf("tags = %q", got)
	}
}

func TestIndexMerges(t *testing.T) {
	idx := IndexMerges([]workbook.Range{{MinRow: 1, MinCol: 1, MaxRow: 2, MaxCol: 3}})

	span, ok := idx.Lookup(1, 1)
	if !ok || !span.Primary || span.ColSpan != 3 || span.RowSpan != 2 {
		t.Errorf("primary span = %+v, %v", span, ok)
	}
	for _, at := range []workbook.Coord{{Row: 1, Col: 2}, {Row: 2, Col: 1}, {Row: 2, Col: 3}} {
		if !idx.Suppressed(at.Row, at.Col) {
			t.Errorf("%+v should be suppressed", at)
		}
	}
	if _, ok := idx.Lookup(3, 1); ok {
		t.Error("A3 should not be merged")
	}
	if idx.Len() != 1 {
		t.Errorf("Len = %d", idx.Len())
	}

	var nilIdx *MergeIndex
	if nilIdx.Len() != 0 || nilIdx.Suppressed(1, 1) {
		t.Error("nil index should be empty")
	}
}

func sheetWith(name string, cells map[string]workbook.Cell) *workbook.Sheet {
	s := workbook.NewSheet(name)
	for ref, c := range cells {
		rg, err := workbook.ParseRange(ref)
		if err != nil {
			panic(err)
		}
		s.SetCell(rg.MinRow, rg.MinCol, c)
	}
	return s
}

func TestScanSingleCell(t *testing.T) {
	s := sheetWith("Sheet1", map[string]workbook.Cell{"B2": {Value: "Hi"}})
	g := Scan(s, Options{})

	if g.Empty() {
		t.Fatal("grid should not be empty")
	}
	if got := g.Bounds.String(); got != "B2:B2" {
		t.Errorf("bounds = %s, want B2:B2", got)
	}

	want := "  |  B\n--+---\n2 | Hi\n"
	if got := RenderFixed(g, Width); got != want {
		t.Errorf("RenderFixed =\n%q\nwant\n%q", got, want)
	}
}

func TestScanFormulaTag(t *testing.T) {
	s := sheetWith("Sheet1", map[string]workbook.Cell{"A1": {Value: int64(2), Formula: "=1+1"}})
	g := Scan(s, Options{})

	if got := g.Text(1, 1); got != "2[f1]" {
		t.Errorf("display = %q, want 2[f1]", got)
	}
	refs := g.Tags.References(KindFormula)
	if len(refs) != 1 || refs[0].Tag != "[f1]" || refs[0].Content != "=1+1" {
		t.Errorf("references = %+v", refs)
	}
}

func TestScanTagOrder(t *testing.T) {
	s := sheetWith("Sheet1", map[string]workbook.Cell{
		"A1": {Value: "x", Formula: "=A2", Comment: "c", Hyperlink: "https://a"},
		"B1": {Formula: "=A1"},
		"A2": {Comment: "second"},
	})
	g := Scan(s, Options{})

	if got := g.Text(1, 1); got != "x[f1][c1][h1]" {
		t.Errorf("A1 = %q", got)
	}
	if got := g.Text(1, 2); got != "[f2]" {
		t.Errorf("B1 = %q", got)
	}
	if got := g.Text(2, 1); got != "[c2]" {
		t.Errorf("A2 = %q", got)
	}
}

func TestScanTagsRestartPerSheet(t *testing.T) {
	a := sheetWith("A", map[string]workbook.Cell{"A1": {Formula: "=1"}, "A2": {Formula: "=2"}})
	b := sheetWith("B", map[string]workbook.Cell{"C3": {Formula: "=3"}})

	if n := Scan(a, Options{}).Tags.Count(KindFormula); n != 2 {
		t.Errorf("sheet A formulas = %d", n)
	}
	g := Scan(b, Options{})
	if got := g.Text(3, 3); got != "[f1]" {
		t.Errorf("sheet B C3 = %q, want [f1]", got)
	}
}

func TestScanBlankFormulaCounts(t *testing.T) {
	s := sheetWith("S", map[string]workbook.Cell{"D4": {Formula: `=""`, Value: ""}})
	g := Scan(s, Options{})
	if g.Empty() {
		t.Fatal("formula cell with blank value should count")
	}
	if g.Bounds.String() != "D4:D4" {
		t.Errorf("bounds = %s", g.Bounds)
	}
}

func TestScanWhitespaceOnlyIsEmpty(t *testing.T) {
	s := sheetWith("S", map[string]workbook.Cell{"A1": {Value: "   "}})
	if !Scan(s, Options{}).Empty() {
		t.Error("whitespace-only sheet should be empty")
	}
}

func TestScanEmptyExtent(t *testing.T) {
	s := workbook.NewSheet("Blank")
	s.MaxRow, s.MaxCol = 10, 5

	g := Scan(s, Options{})
	if !g.Empty() {
		t.Fatal("expected empty grid")
	}
	for name, out := range map[string]string{
		"fixed": RenderFixed(g, nil),
		"flat":  RenderFlat(g),
		"rich":  RenderRich(g),
	} {
		if out != "" {
			t.Errorf("%s render of empty grid = %q", name, out)
		}
	}
}

func TestScanIgnoresCellsOutsideExtent(t *testing.T) {
	s := sheetWith("S", map[string]workbook.Cell{"A1": {Value: "in"}, "E9": {Value: "out"}})
	s.MaxRow, s.MaxCol = 2, 2

	g := Scan(s, Options{})
	if g.Bounds.String() != "A1:A1" {
		t.Errorf("bounds = %s, want A1:A1", g.Bounds)
	}
}

func TestScanPlaceholderFormula(t *testing.T) {
	s := sheetWith("S", map[string]workbook.Cell{
		"A1": {Value: "v", Formula: `=IFERROR(__xludf.DUMMYFUNCTION("GOOGLEFINANCE(""X"")"),"v")`},
		"A2": {Value: int64(3), Formula: "=1+2"},
	})
	g := Scan(s, Options{Placeholders: []*regexp.Regexp{regexp.MustCompile(DefaultPlaceholder)}})

	if got := g.Text(1, 1); got != "v" {
		t.Errorf("placeholder cell = %q, want v", got)
	}
	if got := g.Text(2, 1); got != "3[f1]" {
		t.Errorf("A2 = %q, want 3[f1]", got)
	}
}

func TestCompilePlaceholders(t *testing.T) {
	res, err := CompilePlaceholders([]string{DefaultPlaceholder, "^=IMPORT"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res) != 2 {
		t.Errorf("expected 2 patterns, got %d", len(res))
	}
	if _, err := CompilePlaceholders([]string{"("}); err == nil {
		t.Error("expected error for invalid pattern")
	}
}

func mergedSheet() *workbook.Sheet {
	s := sheetWith("Report", map[string]workbook.Cell{
		"A1": {Value: "Title"},
		"A2": {Value: "x"},
		"B2": {Value: "y"},
	})
	s.Merged = []workbook.Range{{MinRow: 1, MinCol: 1, MaxRow: 1, MaxCol: 2}}
	return s
}

func TestRenderFlatMerged(t *testing.T) {
	g := Scan(mergedSheet(), Options{})

	want := "|  | A | B |\n" +
		"|:--:|:--:|:--:|\n" +
		"| **1** | Title |  |\n" +
		"| **2** | x | y |\n"
	if got := RenderFlat(g); got != want {
		t.Errorf("RenderFlat =\n%s\nwant\n%s", got, want)
	}
}

func TestRenderRichMerged(t *testing.T) {
	g := Scan(mergedSheet(), Options{})
	got := RenderRich(g)

	if !strings.HasPrefix(got, "<table>\n  <thead>\n    <tr>\n      <th></th>\n      <th>A</th>\n      <th>B</th>\n") {
		t.Errorf("unexpected table head:\n%s", got)
	}
	if n := strings.Count(got, `<td colspan="2" rowspan="1">Title</td>`); n != 1 {
		t.Errorf("expected one spanning Title cell, got %d in\n%s", n, got)
	}

	row1 := got[strings.Index(got, "<td><b>1</b></td>"):strings.Index(got, "<td><b>2</b></td>")]
	if strings.Count(row1, "<td") != 2 {
		t.Errorf("row 1 should have the label and one spanning cell:\n%s", row1)
	}
	if !strings.HasSuffix(got, "  </tbody>\n</table>\n") {
		t.Errorf("unexpected table tail:\n%s", got)
	}
}

func TestRenderRichWithoutMergesIsFlat(t *testing.T) {
	s := sheetWith("S", map[string]workbook.Cell{"A1": {Value: "a"}, "B2": {Value: "b"}})
	g := Scan(s, Options{})
	if RenderRich(g) != RenderFlat(g) {
		t.Error("rich output should equal flat output without merges")
	}
}

func TestSuppressedCellNeverRendered(t *testing.T) {
	s := sheetWith("S", map[string]workbook.Cell{
		"A1": {Value: "top"},
		"A2": {Value: "hidden"},
		"B2": {Value: "z"},
	})
	s.Merged = []workbook.Range{{MinRow: 1, MinCol: 1, MaxRow: 2, MaxCol: 1}}
	g := Scan(s, Options{})

	for name, out := range map[string]string{
		"fixed": RenderFixed(g, Width),
		"flat":  RenderFlat(g),
		"rich":  RenderRich(g),
	} {
		if strings.Contains(out, "hidden") {
			t.Errorf("%s output leaks suppressed cell text:\n%s", name, out)
		}
	}
	if !strings.Contains(RenderRich(g), `<td colspan="1" rowspan="2">top</td>`) {
		t.Errorf("missing rowspan cell:\n%s", RenderRich(g))
	}
}

func TestRenderFixedCJKAlignment(t *testing.T) {
	s := sheetWith("S", map[string]workbook.Cell{"B2": {Value: "中文"}, "C2": {Value: "x"}, "B3": {Value: "ab"}})
	g := Scan(s, Options{})
	lines := strings.Split(strings.TrimSuffix(RenderFixed(g, Width), "\n"), "\n")

	want := []string{
		"  |    B | C",
		"--+------+--",
		"2 | 中文 | x",
		"3 | ab   |  ",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines: %q", len(lines), lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestRenderFixedRowLabelWidth(t *testing.T) {
	s := sheetWith("S", map[string]workbook.Cell{"A9": {Value: "a"}, "A10": {Value: "b"}})
	out := RenderFixed(Scan(s, Options{}), Width)
	if !strings.Contains(out, "\n 9 | a\n10 | b\n") {
		t.Errorf("row labels not right-justified:\n%s", out)
	}
}

func TestRenderEscaping(t *testing.T) {
	s := sheetWith("S", map[string]workbook.Cell{"A1": {Value: "a|b\nc"}, "B1": {Value: "<i>"}})
	s.Merged = nil
	flat := RenderFlat(Scan(s, Options{}))
	if !strings.Contains(flat, `| a\|b<br>c | <i> |`) {
		t.Errorf("flat escaping wrong:\n%s", flat)
	}

	s.Merged = []workbook.Range{{MinRow: 5, MinCol: 5, MaxRow: 5, MaxCol: 6}}
	rich := RenderRich(Scan(s, Options{}))
	if !strings.Contains(rich, "<td>&lt;i&gt;</td>") || !strings.Contains(rich, "<td>a|b<br>c</td>") {
		t.Errorf("rich escaping wrong:\n%s", rich)
	}

	fixed := RenderFixed(Scan(s, Options{}), Width)
	if strings.Count(fixed, "\n") != 3 {
		t.Errorf("multi-line cell should stay on one row:\n%s", fixed)
	}
}
