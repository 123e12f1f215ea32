package diffview

import (
	"fmt"
	"strings"

	sgdiff "github.com/sourcegraph/go-diff/diff"

	"gitgutter/internal/differ"
)

// ParseUnifiedDiff turns a unified diff, such as `git diff` output, into
// gutter markers per new-side path. Deleted files are skipped.
func ParseUnifiedDiff(raw []byte) (map[string]differ.LineDiffs, error) {
	fileDiffs, err := sgdiff.ParseMultiFileDiff(raw)
	if err != nil {
		return nil, err
	}

	out := make(map[string]differ.LineDiffs, len(fileDiffs))
	for _, fd := range fileDiffs {
		if strings.TrimSpace(fd.NewName) == "/dev/null" {
			continue
		}
		path := normalizePath(fd)
		diffs := out[path]
		if diffs == nil {
			diffs = make(differ.LineDiffs)
			out[path] = diffs
		}
		for _, h := range fd.Hunks {
			if err := markHunk(diffs, h); err != nil {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
		}
	}
	return out, nil
}

func markHunk(diffs differ.LineDiffs, h *sgdiff.Hunk) error {
	// NewStartLine is 1-based, except for empty ranges where it names the
	// line before the hunk.
	line := int(h.NewStartLine) - 1
	if h.NewLines == 0 {
		line = int(h.NewStartLine)
	}

	lines := splitHunkBody(h.Body)
	for i := 0; i < len(lines); {
		text := lines[i]
		if text == "" {
			// Context line whose leading space was stripped.
			line++
			i++
			continue
		}
		switch text[0] {
		case ' ':
			line++
			i++

		case '-', '+':
			dels, adds := 0, 0
			for i < len(lines) && len(lines[i]) > 0 && (lines[i][0] == '-' || lines[i][0] == '+') {
				if lines[i][0] == '-' {
					dels++
				} else {
					adds++
				}
				i++
			}
			switch {
			case adds == 0:
				diffs[line] = differ.Deleted
			case dels == 0:
				for n := 0; n < adds; n++ {
					diffs[line+n] = differ.Added
				}
			default:
				for n := 0; n < adds; n++ {
					diffs[line+n] = differ.Modified
				}
			}
			line += adds

		case '\\':
			i++

		default:
			return fmt.Errorf("unexpected hunk line prefix %q", text)
		}
	}
	return nil
}

func normalizePath(fd *sgdiff.FileDiff) string {
	path := fd.NewName
	if path == "" || path == "/dev/null" {
		path = fd.OrigName
	}
	path = strings.TrimSpace(path)
	path = strings.TrimPrefix(path, "a/")
	path = strings.TrimPrefix(path, "b/")
	return path
}

func splitHunkBody(body []byte) []string {
	lines := strings.Split(strings.ReplaceAll(string(body), "\r\n", "\n"), "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
