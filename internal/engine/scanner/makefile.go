package scanner

import (
	"regexp"
	"strings"
)

var (
	makeAssign    = regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*(?:\+?=)\s*(.+?)\s*$`)
	makeInclude   = regexp.MustCompile(`^\s*(?:-?include|sinclude)\s+(.+?)\s*$`)
	makeParenVar  = regexp.MustCompile(`\$\(([^)]+)\)`)
	makeBraceVar  = regexp.MustCompile(`\$\{([^}]+)\}`)
	makeArg       = regexp.MustCompile(`"([^"]+)"|'([^']+)'|(\S+)`)
	makeWildcard  = regexp.MustCompile(`[%*?]`)
	makeSourceVar = regexp.MustCompile(`^(SRC|SRCS|SOURCES|HDRS|HEADERS|OBJS|OBJECTS)$`)
)

type makeVars map[string]string

// collectMakeVars builds the variable table from every assignment in the
// file; repeated assignments are concatenated with a single space.
func collectMakeVars(lines []string) makeVars {
	vars := makeVars{}
	for _, l := range lines {
		if m := makeAssign.FindStringSubmatch(l); m != nil {
			if prev, ok := vars[m[1]]; ok && prev != "" {
				vars[m[1]] = prev + " " + m[2]
			} else {
				vars[m[1]] = m[2]
			}
		}
	}
	return vars
}

// expand substitutes $(VAR) and ${VAR}. Undefined variables expand to "".
func (v makeVars) expand(s string) string {
	lookup := func(re *regexp.Regexp) func(string) string {
		return func(match string) string {
			return v[re.FindStringSubmatch(match)[1]]
		}
	}
	s = makeParenVar.ReplaceAllStringFunc(s, lookup(makeParenVar))
	return makeBraceVar.ReplaceAllStringFunc(s, lookup(makeBraceVar))
}

func splitMakeArgs(s string) []string {
	var parts []string
	for _, m := range makeArg.FindAllStringSubmatch(s, -1) {
		for _, g := range m[1:] {
			if g != "" {
				parts = append(parts, g)
				break
			}
		}
	}
	return parts
}

func scanMake(lines []string) []Reference {
	vars := collectMakeVars(lines)

	var refs []Reference
	emit := func(raw string, line int, kind string) {
		for _, arg := range splitMakeArgs(vars.expand(raw)) {
			arg = unquote(arg)
			if arg == "" || makeWildcard.MatchString(arg) {
				continue
			}
			refs = append(refs, Reference{Lang: FamilyMake, Name: arg, Line: line, Kind: kind})
		}
	}

	for i, line := range lines {
		if m := makeInclude.FindStringSubmatch(line); m != nil {
			emit(m[1], i+1, "include")
			continue
		}
		if m := makeAssign.FindStringSubmatch(line); m != nil {
			key := strings.ToUpper(m[1])
			if makeSourceVar.MatchString(key) {
				emit(m[2], i+1, strings.ToLower(key))
			}
		}
	}
	return refs
}
