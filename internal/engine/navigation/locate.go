package navigation

import (
	"regexp"
	"strings"

	"xplore/internal/engine/tags"
)

// Location is a navigation target. Line 0 means no precise line; Pattern,
// when set, is resolved against the file text on arrival.
type Location struct {
	Path    string `json:"path"`
	Line    int    `json:"line,omitempty"`
	Pattern string `json:"pattern,omitempty"`
}

// LocationOf converts a tag into a navigation target.
func LocationOf(t tags.Tag) Location {
	return Location{Path: t.Path, Line: t.Line, Pattern: t.Pattern}
}

var slashDelimited = regexp.MustCompile(`^/(.*)/[a-z]*$`)

// ResolveLine returns the 1-based line loc points at within text. A precise
// line wins; otherwise the pattern is compiled as a multiline regular
// expression. An invalid pattern, like a missing match, reports false.
func ResolveLine(loc Location, text string) (int, bool) {
	if loc.Line > 0 {
		return loc.Line, true
	}
	if loc.Pattern == "" {
		return 0, false
	}

	body := loc.Pattern
	if m := slashDelimited.FindStringSubmatch(body); m != nil {
		body = m[1]
	}
	re, err := regexp.Compile("(?m)" + body)
	if err != nil {
		return 0, false
	}
	match := re.FindStringIndex(text)
	if match == nil {
		return literalPatternLine(body, text)
	}
	return strings.Count(text[:match[0]], "\n") + 1, true
}

// literalPatternLine handles ctags search patterns whose body is literal
// text between ^ and $ anchors, which a regular expression misreads when
// the line holds metacharacters such as "*" or "[".
func literalPatternLine(body, text string) (int, bool) {
	anchoredStart := strings.HasPrefix(body, "^")
	anchoredEnd := strings.HasSuffix(body, "$") && !strings.HasSuffix(body, `\$`)
	lit := strings.TrimPrefix(body, "^")
	if anchoredEnd {
		lit = strings.TrimSuffix(lit, "$")
	}
	lit = strings.NewReplacer(`\/`, "/", `\\`, `\`, `\$`, "$").Replace(lit)
	if lit == "" {
		return 0, false
	}

	for i, line := range strings.Split(text, "\n") {
		line = strings.TrimSuffix(line, "\r")
		switch {
		case anchoredStart && anchoredEnd:
			if line == lit {
				return i + 1, true
			}
		case anchoredStart:
			if strings.HasPrefix(line, lit) {
				return i + 1, true
			}
		case anchoredEnd:
			if strings.HasSuffix(line, lit) {
				return i + 1, true
			}
		default:
			if strings.Contains(line, lit) {
				return i + 1, true
			}
		}
	}
	return 0, false
}
