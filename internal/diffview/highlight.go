package diffview

import (
	"bytes"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
)

// Highlighter colours source lines for the terminal using the lexer that
// matches a file name.
type Highlighter struct {
	lexer     chroma.Lexer
	style     *chroma.Style
	formatter chroma.Formatter
}

// NewHighlighter returns nil when no lexer matches filename, in which case
// callers render plain text.
func NewHighlighter(filename, theme string) *Highlighter {
	lexer := lexers.Match(filename)
	if lexer == nil {
		return nil
	}
	style := styles.Get(theme)
	if style == nil {
		style = styles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}
	return &Highlighter{
		lexer:     chroma.Coalesce(lexer),
		style:     style,
		formatter: formatter,
	}
}

// Lines highlights text and returns one entry per line without terminators.
// Each line carries its own escape sequences, so lines can be truncated and
// rendered independently. On any lexer error it returns nil.
func (h *Highlighter) Lines(text string) []string {
	if h == nil || text == "" {
		return nil
	}
	iter, err := h.lexer.Tokenise(nil, text)
	if err != nil {
		return nil
	}

	tokenLines := chroma.SplitTokensIntoLines(iter.Tokens())
	out := make([]string, 0, len(tokenLines))
	var buf bytes.Buffer
	for _, tokens := range tokenLines {
		buf.Reset()
		if err := h.formatter.Format(&buf, h.style, chroma.Literator(tokens...)); err != nil {
			return nil
		}
		line := strings.ReplaceAll(buf.String(), "\n", "")
		out = append(out, strings.ReplaceAll(line, "\r", ""))
	}
	return out
}
