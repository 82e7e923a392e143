package scanner

import "regexp"

var includeDirective = regexp.MustCompile(`^\s*#\s*include\s*([<"])\s*([^>"]*[^>"\s])\s*[>"]`)

func scanC(lines []string) []Reference {
	var refs []Reference
	for i, line := range lines {
		if m := includeDirective.FindStringSubmatch(line); m != nil {
			refs = append(refs, Reference{Lang: FamilyC, Name: m[2], Line: i + 1, Kind: "include"})
		}
	}
	return refs
}
