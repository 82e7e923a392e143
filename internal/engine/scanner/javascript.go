package scanner

import "regexp"

type jsRule struct {
	re    *regexp.Regexp
	group int
	kind  string
}

// Order matters: the first matching rule wins for a line.
var jsRules = []jsRule{
	{re: regexp.MustCompile(`^\s*import\s+.+?\s+from\s+['"]([^'"]+)['"]`), group: 1, kind: "import-from"},
	{re: regexp.MustCompile(`^\s*import\s+['"]([^'"]+)['"]`), group: 1, kind: "import"},
	{re: regexp.MustCompile(`(^|[^\w])require\s*\(\s*['"]([^'"]+)['"]\s*\)`), group: 2, kind: "require"},
	{re: regexp.MustCompile(`(^|[^\w])import\s*\(\s*['"]([^'"]+)['"]\s*\)`), group: 2, kind: "dynamic-import"},
}

func scanJS(lines []string) []Reference {
	var refs []Reference
	for i, line := range lines {
		for _, rule := range jsRules {
			if m := rule.re.FindStringSubmatch(line); m != nil {
				refs = append(refs, Reference{Lang: FamilyJS, Name: m[rule.group], Line: i + 1, Kind: rule.kind})
				break
			}
		}
	}
	return refs
}
