package diffview

import (
	"bytes"
	"errors"
	"strings"

	sgdiff "github.com/sourcegraph/go-diff/diff"

	"gitgutter/internal/intern"
	"gitgutter/internal/linediff"
)

// ContextLines is the number of unchanged lines around each change in a patch.
const ContextLines = 3

var ErrTooLarge = errors.New("input exceeds diff budget")

type block struct {
	before, after linediff.Range
}

// FormatPatch renders the difference between base and doc as a unified diff
// for path. Identical inputs yield an empty string.
func FormatPatch(path, base, doc string, alg linediff.Algorithm) (string, error) {
	in := intern.New(base, doc, intern.DefaultLimits())
	input, ok := in.Lines()
	if !ok {
		return "", ErrTooLarge
	}

	var blocks []block
	linediff.Diff(alg, input, func(before, after linediff.Range) {
		blocks = append(blocks, block{before: before, after: after})
	})
	if len(blocks) == 0 {
		return "", nil
	}

	path = strings.TrimPrefix(path, "/")
	fd := &sgdiff.FileDiff{
		OrigName: "a/" + path,
		NewName:  "b/" + path,
		Extended: []string{"diff --git a/" + path + " b/" + path},
	}
	for _, group := range groupBlocks(blocks, ContextLines) {
		fd.Hunks = append(fd.Hunks, buildHunk(input, group, ContextLines))
	}

	out, err := sgdiff.PrintFileDiff(fd)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// groupBlocks merges blocks whose surrounding context would overlap.
func groupBlocks(blocks []block, context int) [][]block {
	var groups [][]block
	start := 0
	for i := 1; i <= len(blocks); i++ {
		if i < len(blocks) && blocks[i].before.Start-blocks[i-1].before.End <= 2*context {
			continue
		}
		groups = append(groups, blocks[start:i])
		start = i
	}
	return groups
}

func buildHunk(in *intern.Input, group []block, context int) *sgdiff.Hunk {
	first, last := group[0], group[len(group)-1]

	lead := min(context, first.before.Start)
	trail := min(context, len(in.Before)-last.before.End)
	origStart := first.before.Start - lead
	newStart := first.after.Start - lead
	origEnd := last.before.End + trail
	newEnd := last.after.End + trail

	var body bytes.Buffer
	var origNoNewlineAt int32
	writeLine := func(prefix byte, line string) {
		body.WriteByte(prefix)
		body.WriteString(line)
		if !strings.HasSuffix(line, "\n") {
			body.WriteByte('\n')
		}
	}

	b := origStart
	for _, blk := range group {
		for ; b < blk.before.Start; b++ {
			writeLine(' ', in.Line(in.Before[b]))
		}
		for ; b < blk.before.End; b++ {
			line := in.Line(in.Before[b])
			writeLine('-', line)
			if !strings.HasSuffix(line, "\n") {
				origNoNewlineAt = int32(body.Len())
			}
		}
		for a := blk.after.Start; a < blk.after.End; a++ {
			writeLine('+', in.Line(in.After[a]))
		}
	}
	for ; b < origEnd; b++ {
		writeLine(' ', in.Line(in.Before[b]))
	}

	// The printer marks a missing final newline on the new side when the
	// body itself lacks one.
	data := body.Bytes()
	if newEnd > 0 && !strings.HasSuffix(in.Line(in.After[newEnd-1]), "\n") && newEnd == len(in.After) {
		data = data[:len(data)-1]
		if int(origNoNewlineAt) > len(data) {
			origNoNewlineAt = 0
		}
	}

	return &sgdiff.Hunk{
		OrigStartLine:   hunkStart(origStart, origEnd),
		OrigLines:       int32(origEnd - origStart),
		NewStartLine:    hunkStart(newStart, newEnd),
		NewLines:        int32(newEnd - newStart),
		OrigNoNewlineAt: origNoNewlineAt,
		Body:            data,
	}
}

// hunkStart converts a 0-based range start to the unified diff convention,
// where an empty range names the line before it.
func hunkStart(start, end int) int32 {
	if end == start {
		return int32(start)
	}
	return int32(start + 1)
}
