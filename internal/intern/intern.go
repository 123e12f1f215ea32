// Package intern turns a base text and a document text into comparable line
// tokens for the line diff algorithms.
package intern

import (
	"math"
	"strings"
)

const (
	MaxDiffLines = math.MaxUint16
	// Average line length is capped at 128 bytes for files with MaxDiffLines.
	MaxDiffBytes = MaxDiffLines * 128
)

// Limits bounds the combined size of base and document that will be diffed.
type Limits struct {
	MaxLines int
	MaxBytes int
}

func DefaultLimits() Limits {
	return Limits{MaxLines: MaxDiffLines, MaxBytes: MaxDiffBytes}
}

// LimitsFor derives a byte budget from a line budget and an average line length.
func LimitsFor(maxLines, avgLineBytes int) Limits {
	return Limits{MaxLines: maxLines, MaxBytes: maxLines * avgLineBytes}
}

type Token uint32

// Input is a tokenized (base, document) pair. Lines maps a token back to the
// line text it was interned from, including the line terminator.
type Input struct {
	Before []Token
	After  []Token
	Lines  []string
}

func (in *Input) Line(t Token) string {
	return in.Lines[t]
}

// Interner keeps the tokens of the base text across document updates so that
// an edit only re-interns the document.
type Interner struct {
	limits     Limits
	base       string
	doc        string
	tokens     map[string]Token
	input      Input
	baseTokens int
	baseValid  bool
	valid      bool
}

func New(base, doc string, limits Limits) *Interner {
	i := &Interner{
		limits: limits,
		tokens: make(map[string]Token),
	}
	i.UpdateDiffBase(base, doc)
	return i
}

func (i *Interner) Base() string     { return i.base }
func (i *Interner) Document() string { return i.doc }

// UpdateDiffBase replaces both texts and re-interns everything.
func (i *Interner) UpdateDiffBase(base, doc string) {
	i.base = base
	i.doc = doc
	i.reset()
	if !i.fits() {
		return
	}
	i.input.Before = i.internText(i.input.Before[:0], base)
	i.baseTokens = len(i.input.Lines)
	i.baseValid = true
	i.input.After = i.internText(i.input.After[:0], doc)
	i.valid = true
}

// UpdateDocument replaces the document text. Tokens only seen in the previous
// document are dropped; base tokens are kept.
func (i *Interner) UpdateDocument(doc string) {
	i.doc = doc
	if !i.fits() {
		i.valid = false
		return
	}
	if !i.baseValid {
		i.UpdateDiffBase(i.base, doc)
		return
	}
	for _, line := range i.input.Lines[i.baseTokens:] {
		delete(i.tokens, line)
	}
	clear(i.input.Lines[i.baseTokens:])
	i.input.Lines = i.input.Lines[:i.baseTokens]
	i.input.After = i.internText(i.input.After[:0], doc)
	i.valid = true
}

// Lines returns the tokenized pair, or false when the texts exceed the budget.
func (i *Interner) Lines() (*Input, bool) {
	if !i.valid {
		return nil, false
	}
	return &i.input, true
}

func (i *Interner) reset() {
	clear(i.tokens)
	clear(i.input.Lines)
	i.input.Lines = i.input.Lines[:0]
	i.input.Before = i.input.Before[:0]
	i.input.After = i.input.After[:0]
	i.baseTokens = 0
	i.baseValid = false
	i.valid = false
}

func (i *Interner) fits() bool {
	if len(i.base)+len(i.doc) > i.limits.MaxBytes {
		return false
	}
	return LineCount(i.base)+LineCount(i.doc) <= i.limits.MaxLines
}

func (i *Interner) internText(dst []Token, text string) []Token {
	for _, line := range SplitLines(text) {
		tok, ok := i.tokens[line]
		if !ok {
			tok = Token(len(i.input.Lines))
			i.tokens[line] = tok
			i.input.Lines = append(i.input.Lines, line)
		}
		dst = append(dst, tok)
	}
	return dst
}

// SplitLines splits text after every '\n'. The terminator stays on the line so
// that a final line without a newline differs from the same line with one.
func SplitLines(text string) []string {
	lines := make([]string, 0, LineCount(text))
	for text != "" {
		n := strings.IndexByte(text, '\n')
		if n < 0 {
			lines = append(lines, text)
			break
		}
		lines = append(lines, text[:n+1])
		text = text[n+1:]
	}
	return lines
}

func LineCount(text string) int {
	n := strings.Count(text, "\n")
	if text != "" && text[len(text)-1] != '\n' {
		n++
	}
	return n
}
