package diffview

import (
	"strings"

	"gitgutter/internal/differ"
	"gitgutter/internal/intern"
)

// Markers looks up the gutter classification of a document line. Both
// differ.LineDiffs and *differ.Snapshot satisfy it.
type Markers interface {
	Get(line int) (differ.LineDiff, bool)
}

// GutterRow is one rendered line of the document with its marker. Line is the
// 0-based document index; EOF rows have no text and carry deletions at the
// end of the file.
type GutterRow struct {
	Line   int
	Text   string
	Marker differ.LineDiff
	EOF    bool
}

// Number is the 1-based line number shown in the gutter, or 0 for EOF rows.
func (r GutterRow) Number() int {
	if r.EOF {
		return 0
	}
	return r.Line + 1
}

// BuildRows pairs every line of text with its marker. A deletion anchored at
// the line count produces a trailing EOF row.
func BuildRows(text string, markers Markers) []GutterRow {
	lines := intern.SplitLines(text)
	rows := make([]GutterRow, 0, len(lines)+1)
	for i, line := range lines {
		row := GutterRow{Line: i, Text: trimEOL(line)}
		if markers != nil {
			row.Marker, _ = markers.Get(i)
		}
		rows = append(rows, row)
	}
	if markers != nil {
		if kind, ok := markers.Get(len(lines)); ok && kind == differ.Deleted {
			rows = append(rows, GutterRow{Line: len(lines), Marker: differ.Deleted, EOF: true})
		}
	}
	return rows
}

// RowIndex returns the index of the row showing document line, clamped to
// the available rows.
func RowIndex(rows []GutterRow, line int) int {
	if len(rows) == 0 {
		return 0
	}
	if line < 0 {
		return 0
	}
	if line >= len(rows) {
		return len(rows) - 1
	}
	return line
}

func trimEOL(line string) string {
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r")
}
