package scanner

import (
	"regexp"
	"strings"
)

var (
	shellSource = regexp.MustCompile(`^\s*(?:\.|source)\s+([^\s#;]+)`)
	shellVar    = regexp.MustCompile(`\$[A-Za-z_]\w*`)
)

func scanShell(lines []string) []Reference {
	var refs []Reference
	for i, line := range lines {
		m := shellSource.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		target := unquote(m[1])
		target = strings.TrimPrefix(target, "~/")
		target = shellVar.ReplaceAllString(target, "")
		if target == "" {
			continue
		}
		refs = append(refs, Reference{Lang: FamilyShell, Name: target, Line: i + 1, Kind: "source"})
	}
	return refs
}
