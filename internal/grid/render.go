package grid

import (
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/klytics/sheetlens/internal/workbook"
)

// RenderFixed lays the grid out as monospace text: a header of column
// letters, a dashed separator and one line per row prefixed with its number.
// Columns are as wide as their widest cell measured with width.
func RenderFixed(g *Grid, width WidthFunc) string {
	if g.Empty() {
		return ""
	}
	if width == nil {
		width = Width
	}
	b := g.Bounds

	widths := make([]int, b.Cols())
	for i := range widths {
		widths[i] = width(workbook.ColumnName(b.MinCol + i))
	}
	for row := b.MinRow; row <= b.MaxRow; row++ {
		for col := b.MinCol; col <= b.MaxCol; col++ {
			widths[col-b.MinCol] = max(widths[col-b.MinCol], width(oneLine(g.Visible(row, col))))
		}
	}
	label := len(strconv.Itoa(b.MaxRow))

	var sb strings.Builder
	cells := make([]string, len(widths))

	for i, w := range widths {
		letter := workbook.ColumnName(b.MinCol + i)
		cells[i] = strings.Repeat(" ", w-width(letter)) + letter
	}
	sb.WriteString(strings.Repeat(" ", label) + " | " + strings.Join(cells, " | ") + "\n")

	for i, w := range widths {
		cells[i] = strings.Repeat("-", w)
	}
	sb.WriteString(strings.Repeat("-", label) + "-+-" + strings.Join(cells, "-+-") + "\n")

	for row := b.MinRow; row <= b.MaxRow; row++ {
		for col := b.MinCol; col <= b.MaxCol; col++ {
			text := oneLine(g.Visible(row, col))
			cells[col-b.MinCol] = text + strings.Repeat(" ", widths[col-b.MinCol]-width(text))
		}
		fmt.Fprintf(&sb, "%*d | %s\n", label, row, strings.Join(cells, " | "))
	}
	return sb.String()
}

// RenderFlat lays the grid out as a markdown pipe table. Spans are lost:
// suppressed merged cells become empty cells.
func RenderFlat(g *Grid) string {
	if g.Empty() {
		return ""
	}
	b := g.Bounds

	var sb strings.Builder
	writeMarkdownHeader(&sb, b)
	for row := b.MinRow; row <= b.MaxRow; row++ {
		cells := []string{fmt.Sprintf("**%d**", row)}
		for col := b.MinCol; col <= b.MaxCol; col++ {
			cells = append(cells, escapeMarkdown(g.Visible(row, col)))
		}
		sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return sb.String()
}

func writeMarkdownHeader(sb *strings.Builder, b workbook.Range) {
	header := []string{""}
	for col := b.MinCol; col <= b.MaxCol; col++ {
		header = append(header, workbook.ColumnName(col))
	}
	sb.WriteString("| " + strings.Join(header, " | ") + " |\n")
	sb.WriteString("|:--:|" + strings.Repeat(":--:|", b.Cols()) + "\n")
}

// RenderRich renders the same table as RenderFlat when the sheet has no
// merged regions. Otherwise it emits an HTML table in which each primary
// cell carries colspan and rowspan and suppressed cells are left out.
func RenderRich(g *Grid) string {
	if g.Empty() {
		return ""
	}
	if g.Merges.Len() == 0 {
		return RenderFlat(g)
	}
	b := g.Bounds

	var sb strings.Builder
	sb.WriteString("<table>\n  <thead>\n    <tr>\n      <th></th>\n")
	for col := b.MinCol; col <= b.MaxCol; col++ {
		fmt.Fprintf(&sb, "      <th>%s</th>\n", workbook.ColumnName(col))
	}
	sb.WriteString("    </tr>\n  </thead>\n  <tbody>\n")

	for row := b.MinRow; row <= b.MaxRow; row++ {
		fmt.Fprintf(&sb, "    <tr>\n      <td><b>%d</b></td>\n", row)
		for col := b.MinCol; col <= b.MaxCol; col++ {
			span, merged := g.Merges.Lookup(row, col)
			switch {
			case merged && !span.Primary:
				continue
			case merged:
				fmt.Fprintf(&sb, "      <td colspan=\"%d\" rowspan=\"%d\">%s</td>\n",
					span.ColSpan, span.RowSpan, escapeHTML(g.Text(row, col)))
			default:
				fmt.Fprintf(&sb, "      <td>%s</td>\n", escapeHTML(g.Text(row, col)))
			}
		}
		sb.WriteString("    </tr>\n")
	}
	sb.WriteString("  </tbody>\n</table>\n")
	return sb.String()
}

var (
	newlines = strings.NewReplacer("\r\n", "<br>", "\n", "<br>", "\r", "<br>")
	spaces   = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")
)

// oneLine keeps multi-line cell text on its grid row.
func oneLine(s string) string {
	return spaces.Replace(s)
}

func escapeMarkdown(s string) string {
	return newlines.Replace(strings.ReplaceAll(s, "|", `\|`))
}

func escapeHTML(s string) string {
	return newlines.Replace(html.EscapeString(s))
}
