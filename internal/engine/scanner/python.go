package scanner

import (
	"regexp"
	"strings"
)

var (
	pyImport     = regexp.MustCompile(`^\s*import\s+([A-Za-z_][\w\.]*(?:\s*,\s*[A-Za-z_][\w\.]*)*)`)
	pyFromImport = regexp.MustCompile(`^\s*from\s+([A-Za-z_][\w\.]*)\s+import\s+([A-Za-z_\*\w\.,\s]+)`)
)

// FromImportSeparator joins module and imported name in from-import refs.
const FromImportSeparator = " → "

func scanPython(lines []string) []Reference {
	var refs []Reference
	for i, line := range lines {
		if m := pyImport.FindStringSubmatch(line); m != nil {
			for _, mod := range splitList(m[1]) {
				refs = append(refs, Reference{Lang: FamilyPython, Name: mod, Line: i + 1, Kind: "import"})
			}
			continue
		}
		if m := pyFromImport.FindStringSubmatch(line); m != nil {
			for _, name := range splitList(m[2]) {
				refs = append(refs, Reference{Lang: FamilyPython, Name: m[1] + FromImportSeparator + name, Line: i + 1, Kind: "from-import"})
			}
		}
	}
	return refs
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
