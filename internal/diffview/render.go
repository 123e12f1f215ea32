package diffview

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"gitgutter/internal/differ"
)

const (
	glyphAdded    = "▍"
	glyphModified = "▍"
	glyphDeleted  = "▔"
	tabWidth      = 4
)

var (
	addedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	modifiedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("4"))
	deletedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	numberStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	cursorStyle   = lipgloss.NewStyle().Bold(true)
	eofStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Italic(true)
)

type RenderOptions struct {
	Width  int
	Cursor int
	// Highlighted holds pre-coloured text per document line. Missing entries
	// fall back to the plain row text.
	Highlighted []string
}

// RenderGutter draws rows as "<cursor><sign> <number> <text>", each clamped
// to opts.Width cells.
func RenderGutter(rows []GutterRow, opts RenderOptions) []string {
	width := opts.Width
	if width <= 0 {
		width = 1
	}

	maxLine := 0
	for _, row := range rows {
		if n := row.Number(); n > maxLine {
			maxLine = n
		}
	}
	numW := maxInt(3, digits(maxLine))

	out := make([]string, 0, len(rows))
	for i, row := range rows {
		out = append(out, renderRow(row, i == opts.Cursor, numW, width, opts.Highlighted))
	}
	return out
}

func renderRow(row GutterRow, isCursor bool, numW, width int, highlighted []string) string {
	cursorMark := " "
	if isCursor {
		cursorMark = cursorStyle.Render("▸")
	}

	num := ""
	if n := row.Number(); n > 0 {
		num = fmt.Sprintf("%d", n)
	}
	prefix := cursorMark + Sign(row.Marker) + " " + numberStyle.Render(fmt.Sprintf("%*s", numW, num)) + " "

	var text string
	switch {
	case row.EOF:
		text = eofStyle.Render("(end of file)")
	case row.Line < len(highlighted):
		text = expandTabs(highlighted[row.Line])
	default:
		text = expandTabs(row.Text)
	}

	line := ansi.Truncate(prefix+text, width, "")
	return padRight(line, width)
}

// Sign returns the styled gutter glyph for a marker, or a blank cell.
func Sign(kind differ.LineDiff) string {
	switch kind {
	case differ.Added:
		return addedStyle.Render(glyphAdded)
	case differ.Modified:
		return modifiedStyle.Render(glyphModified)
	case differ.Deleted:
		return deletedStyle.Render(glyphDeleted)
	default:
		return " "
	}
}

// StatsLine summarises a snapshot for status bars, e.g. "+3 ~1 -2". The last
// figure is the number of deletion points, not of removed lines.
func StatsLine(st differ.Stats) string {
	return strings.Join([]string{
		addedStyle.Render(fmt.Sprintf("+%d", st.Added)),
		modifiedStyle.Render(fmt.Sprintf("~%d", st.Modified)),
		deletedStyle.Render(fmt.Sprintf("-%d", st.Deleted)),
	}, " ")
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", strings.Repeat(" ", tabWidth))
}

func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

func digits(n int) int {
	if n <= 0 {
		return 1
	}
	d := 0
	for n > 0 {
		d++
		n /= 10
	}
	return d
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
