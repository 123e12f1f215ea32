// Package linediff runs a sequence diff over interned lines and reports the
// unmatched blocks in before-to-after order.
package linediff

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/sergi/go-diff/diffmatchpatch"

	"gitgutter/internal/intern"
)

type Algorithm int

const (
	// Myers is the O(ND) bisecting diff of diffmatchpatch.
	Myers Algorithm = iota
	// Ratcliff is difflib's longest-matching-block (gestalt) matcher. It tends
	// to produce more readable blocks around moved code.
	Ratcliff
)

func (a Algorithm) String() string {
	switch a {
	case Myers:
		return "myers"
	case Ratcliff:
		return "ratcliff"
	default:
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
}

func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "myers":
		return Myers, nil
	case "ratcliff", "difflib":
		return Ratcliff, nil
	}
	return Myers, fmt.Errorf("unknown diff algorithm %q", s)
}

// Range is a half-open range of line indices.
type Range struct {
	Start int
	End   int
}

func (r Range) Len() int { return r.End - r.Start }
func (r Range) Empty() bool { return r.End <= r.Start }

// Diff calls fn once per unmatched block. Matched lines are never reported.
func Diff(alg Algorithm, in *intern.Input, fn func(before, after Range)) {
	switch alg {
	case Ratcliff:
		diffRatcliff(in, fn)
	default:
		if len(in.Lines) > maxRuneTokens {
			diffRatcliff(in, fn)
			return
		}
		diffMyers(in, fn)
	}
}

// Tokens are mapped onto valid runes, skipping the surrogate range, so that
// diffmatchpatch's string conversions never collapse two tokens into U+FFFD.
const (
	surrogateMin  = 0xD800
	surrogateSpan = 0x800
	maxRuneTokens = utf8.MaxRune - surrogateSpan
)

func tokenRunes(tokens []intern.Token) []rune {
	out := make([]rune, len(tokens))
	for i, t := range tokens {
		r := rune(t)
		if r >= surrogateMin {
			r += surrogateSpan
		}
		out[i] = r
	}
	return out
}

func diffMyers(in *intern.Input, fn func(before, after Range)) {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = 0

	diffs := dmp.DiffMainRunes(tokenRunes(in.Before), tokenRunes(in.After), false)

	var before, after int
	blockBefore, blockAfter := 0, 0
	flush := func() {
		if before > blockBefore || after > blockAfter {
			fn(Range{Start: blockBefore, End: before}, Range{Start: blockAfter, End: after})
		}
	}
	for _, d := range diffs {
		n := utf8.RuneCountInString(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			before += n
			after += n
			blockBefore, blockAfter = before, after
		case diffmatchpatch.DiffDelete:
			before += n
		case diffmatchpatch.DiffInsert:
			after += n
		}
	}
	flush()
}

func diffRatcliff(in *intern.Input, fn func(before, after Range)) {
	a := make([]string, len(in.Before))
	for i, t := range in.Before {
		a[i] = in.Line(t)
	}
	b := make([]string, len(in.After))
	for i, t := range in.After {
		b[i] = in.Line(t)
	}

	m := difflib.NewMatcherWithJunk(a, b, false, nil)
	for _, op := range m.GetOpCodes() {
		if op.Tag == 'e' {
			continue
		}
		fn(Range{Start: op.I1, End: op.I2}, Range{Start: op.J1, End: op.J2})
	}
}
