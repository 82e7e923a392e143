// Package scanner extracts include, import, source and make-include
// references from file text using per-language line heuristics.
package scanner

import (
	"regexp"
	"strings"
)

// Reference is one outgoing file reference found in a source file.
type Reference struct {
	Lang Family `json:"lang"`
	Name string `json:"name"`
	Line int    `json:"line"`
	Kind string `json:"kind"`
}

type familyScanner func(lines []string) []Reference

var scanners = map[Family]familyScanner{
	FamilyC:      scanC,
	FamilyPython: scanPython,
	FamilyJS:     scanJS,
	FamilyShell:  scanShell,
	FamilyMake:   scanMake,
}

var continuation = regexp.MustCompile(`\\\s*$`)

// Scan returns the references in text, with Line numbers counted over
// logical (continuation-joined) lines. Files of an unknown family yield an
// empty slice.
func Scan(filename, text string) []Reference {
	return ScanFamily(DetectFamily(filename), text)
}

// ScanFamily runs the rules for an explicit family.
func ScanFamily(family Family, text string) []Reference {
	fn, ok := scanners[family]
	if !ok {
		return []Reference{}
	}
	refs := fn(JoinContinuedLines(splitLines(text)))
	if refs == nil {
		refs = []Reference{}
	}
	return refs
}

func splitLines(text string) []string {
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// JoinContinuedLines merges physical lines ending in a backslash with the
// line that follows, replacing the backslash and trailing whitespace with
// one space. Every logical line is trimmed.
func JoinContinuedLines(raw []string) []string {
	out := make([]string, 0, len(raw))
	var buf strings.Builder
	for _, l := range raw {
		if continuation.MatchString(l) {
			buf.WriteString(continuation.ReplaceAllString(l, " "))
			continue
		}
		buf.WriteString(l)
		out = append(out, strings.TrimSpace(buf.String()))
		buf.Reset()
	}
	if rest := strings.TrimSpace(buf.String()); rest != "" {
		out = append(out, rest)
	}
	return out
}

func unquote(s string) string {
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}
	return s
}
