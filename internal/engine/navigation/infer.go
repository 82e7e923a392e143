package navigation

import (
	"regexp"
	"strings"
)

var (
	whitespaceRun  = regexp.MustCompile(`\s+`)
	trailingPtrRef = regexp.MustCompile(`\s*[*&]+\s*$`)
	keywordType    = regexp.MustCompile(`\b(struct|class|enum|union)\s+([A-Za-z_][\w:]*)\s*$`)
	trailingIdent  = regexp.MustCompile(`([A-Za-z_][\w:<>]*?)\s*$`)
	genericSuffix  = regexp.MustCompile(`<.*>$`)
)

// InferTypeFromLine guesses the declared type of symbol from a C-like
// declaration line, e.g. "struct Foo *p = x" gives "Foo" for p. It returns
// "" when the symbol is missing or starts the line.
func InferTypeFromLine(line, symbol string) string {
	idx := strings.Index(line, symbol)
	if idx <= 0 {
		return ""
	}
	s := strings.TrimSpace(whitespaceRun.ReplaceAllString(line[:idx], " "))
	if eq := strings.Index(s, "="); eq >= 0 {
		s = strings.TrimSpace(s[:eq])
	}
	s = strings.TrimSpace(trailingPtrRef.ReplaceAllString(s, ""))

	if m := keywordType.FindStringSubmatch(s); m != nil {
		return m[2]
	}
	if m := trailingIdent.FindStringSubmatch(s); m != nil {
		return genericSuffix.ReplaceAllString(m[1], "")
	}
	return ""
}

// typeFromTypeRef strips the ctags "kind:" prefix of a typeref field, so
// "struct:Foo" becomes "Foo".
func typeFromTypeRef(typeref string) string {
	parts := strings.Split(typeref, ":")
	if len(parts) > 1 {
		return strings.Join(parts[1:], ":")
	}
	return typeref
}
