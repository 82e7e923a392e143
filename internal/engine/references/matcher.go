package references

import (
	"regexp"
	"strings"
)

// Match is one occurrence of a symbol or query in a file.
type Match struct {
	Path    string `json:"path"`
	Line    int    `json:"line"`
	Snippet string `json:"snippet"`
}

// WordMatcher compiles a case-sensitive whole-word pattern for symbol.
func WordMatcher(symbol string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + regexp.QuoteMeta(symbol) + `\b`)
}

// scanWords returns up to limit whole-word matches of re in text.
func scanWords(re *regexp.Regexp, path, text string, limit int) []Match {
	if limit <= 0 {
		return nil
	}
	locs := re.FindAllStringIndex(text, limit)
	out := make([]Match, 0, len(locs))
	lc := newLineCounter(text)
	for _, loc := range locs {
		out = append(out, lc.match(path, loc[0]))
	}
	return out
}

// scanLiteral returns up to limit non-overlapping occurrences of query.
func scanLiteral(query, path, text string, limit int) []Match {
	if query == "" || limit <= 0 {
		return nil
	}
	var out []Match
	lc := newLineCounter(text)
	for from := 0; len(out) < limit; {
		idx := strings.Index(text[from:], query)
		if idx < 0 {
			break
		}
		out = append(out, lc.match(path, from+idx))
		from += idx + len(query)
	}
	return out
}

// lineCounter turns byte offsets into 1-based lines. Offsets must be fed in
// ascending order.
type lineCounter struct {
	text  string
	pos   int
	line  int
	start int
}

func newLineCounter(text string) *lineCounter {
	return &lineCounter{text: text, line: 1}
}

func (c *lineCounter) match(path string, offset int) Match {
	for {
		nl := strings.IndexByte(c.text[c.pos:offset], '\n')
		if nl < 0 {
			break
		}
		c.pos += nl + 1
		c.start = c.pos
		c.line++
	}
	c.pos = offset
	end := strings.IndexByte(c.text[c.start:], '\n')
	lineText := c.text[c.start:]
	if end >= 0 {
		lineText = c.text[c.start : c.start+end]
	}
	return Match{Path: path, Line: c.line, Snippet: strings.TrimSpace(lineText)}
}
