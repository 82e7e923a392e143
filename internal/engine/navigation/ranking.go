package navigation

import (
	"regexp"
	"strings"

	"xplore/internal/engine/tags"
	"xplore/internal/shared/util"
)

var (
	headerPath   = regexp.MustCompile(`(?i)\.(h|hpp|hh|hxx)$`)
	sourcePath   = regexp.MustCompile(`(?i)\.(c|cc|cpp|cxx|m|mm|java|go|rs|js|ts)$`)
	parenPattern = regexp.MustCompile(`\(.*\)`)
	validSymbol  = regexp.MustCompile(`^(?:[A-Za-z_][A-Za-z0-9_]*)(?:::[A-Za-z_][A-Za-z0-9_]*)*$`)
)

var (
	rankSourceExts = map[string]bool{"c": true, "cc": true, "cpp": true, "cxx": true, "m": true, "mm": true, "java": true, "go": true, "rs": true}
	rankHeaderExts = map[string]bool{"h": true, "hpp": true, "hh": true, "hxx": true}
	typeKinds      = map[string]bool{"class": true, "struct": true, "union": true, "enum": true, "typedef": true, "interface": true}
	declKinds      = map[string]bool{"declaration": true, "prototype": true, "typedef": true, "macro": true}
)

// ValidSymbol reports whether word is an identifier, optionally qualified
// with :: separators.
func ValidSymbol(word string) bool {
	return validSymbol.MatchString(word)
}

// SourceRank orders paths implementation-first: source 0, other 1, header 2.
func SourceRank(p string) int {
	ext := strings.ToLower(p[strings.LastIndex(p, ".")+1:])
	switch {
	case rankSourceExts[ext]:
		return 0
	case rankHeaderExts[ext]:
		return 2
	default:
		return 1
	}
}

func isHeader(p string) bool { return headerPath.MatchString(p) }
func isSource(p string) bool { return sourcePath.MatchString(p) }

func isFunctionKind(t tags.Tag) bool {
	k := strings.ToLower(t.Kind)
	return k == "function" || k == "method"
}

// likelySignature reports a tag that carries a signature or a pattern with
// a parenthesised argument list.
func likelySignature(t tags.Tag) bool {
	return t.Signature != "" || (t.Pattern != "" && parenPattern.MatchString(t.Pattern))
}

func looksDefinition(t tags.Tag) bool {
	if isFunctionKind(t) {
		return true
	}
	return isSource(t.Path) && likelySignature(t)
}

// LooksDefinition reports a function/method tag, or a tag in a source file
// with a function-like signature.
func LooksDefinition(t tags.Tag) bool { return looksDefinition(t) }

// LooksDeclaration reports a declaration-kind tag, or a non-function tag in
// a header.
func LooksDeclaration(t tags.Tag) bool { return looksDeclaration(t) }

func looksDeclaration(t tags.Tag) bool {
	if declKinds[strings.ToLower(t.Kind)] {
		return true
	}
	return isHeader(t.Path) && !isFunctionKind(t)
}

func definitionScore(t tags.Tag, activePath string) int {
	score := 0
	if isSource(t.Path) {
		score += 5
	}
	if !isHeader(t.Path) {
		score++
	}
	if util.Stem(t.Path) == util.Stem(activePath) {
		score += 2
	}
	if t.Path != activePath {
		score++
	}
	return score
}

func declarationScore(t tags.Tag, activePath string) int {
	score := 0
	if isHeader(t.Path) {
		score += 5
	}
	if util.Stem(t.Path) == util.Stem(activePath) {
		score += 2
	}
	if !isSource(t.Path) {
		score++
	}
	return score
}
