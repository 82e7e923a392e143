package resolver

import (
	"strings"

	"xplore/internal/engine/scanner"
)

var defaultPreferredExts = extSet("h", "hpp", "hh", "hxx", "js", "ts", "jsx", "tsx", "py", "mk", "sh", "c", "cpp", "cc")

var familyPreferredExts = map[scanner.Family]map[string]bool{
	scanner.FamilyC:      extSet("h", "hpp", "hh", "hxx", "c", "cpp", "cc", "cxx"),
	scanner.FamilyPython: extSet("py", "pyw"),
	scanner.FamilyJS:     extSet("js", "ts", "jsx", "tsx", "mjs", "cjs"),
	scanner.FamilyShell:  extSet("sh", "bash", "zsh", "ksh"),
	scanner.FamilyMake:   extSet("mk", "mak", "c", "h", "cpp", "cc"),
}

func extSet(exts ...string) map[string]bool {
	m := make(map[string]bool, len(exts))
	for _, e := range exts {
		m[e] = true
	}
	return m
}

func preferredExts(f scanner.Family) map[string]bool {
	if m, ok := familyPreferredExts[f]; ok {
		return m
	}
	return defaultPreferredExts
}

var jsResolveSuffixes = []string{".js", ".ts", ".jsx", ".tsx", ".mjs", ".cjs", "/index.js", "/index.ts"}

// candidateNames expands a scanned reference into the file names worth
// trying, most specific first.
func candidateNames(ref scanner.Reference) []string {
	switch ref.Lang {
	case scanner.FamilyPython:
		module, name, hasName := strings.Cut(ref.Name, scanner.FromImportSeparator)
		modPath := strings.ReplaceAll(strings.TrimSpace(module), ".", "/")
		out := []string{modPath + ".py", modPath + "/__init__.py"}
		if hasName {
			name = strings.TrimSpace(name)
			if alias := strings.Index(name, " as "); alias >= 0 {
				name = strings.TrimSpace(name[:alias])
			}
			if name != "*" && name != "" {
				out = append(out, modPath+"/"+name+".py")
			}
		}
		return out
	case scanner.FamilyJS:
		if !isRelativeSpecifier(ref.Name) || hasKnownExt(ref.Name) {
			return []string{ref.Name}
		}
		out := make([]string, 0, len(jsResolveSuffixes)+1)
		for _, suffix := range jsResolveSuffixes {
			out = append(out, ref.Name+suffix)
		}
		return append(out, ref.Name)
	default:
		return []string{ref.Name}
	}
}

func isRelativeSpecifier(name string) bool {
	return strings.HasPrefix(name, "./") || strings.HasPrefix(name, "../") || strings.HasPrefix(name, "/")
}

func hasKnownExt(name string) bool {
	base := name[strings.LastIndex(name, "/")+1:]
	idx := strings.LastIndex(base, ".")
	if idx <= 0 {
		return false
	}
	switch strings.ToLower(base[idx+1:]) {
	case "js", "ts", "jsx", "tsx", "mjs", "cjs", "json", "css":
		return true
	}
	return false
}

// ResolveReference resolves a scanned reference, expanding language-specific
// module spellings before falling back to the raw name.
func ResolveReference(ref scanner.Reference, currentPath string, files FileIndex) (string, bool) {
	for _, name := range candidateNames(ref) {
		if p, ok := Resolve(name, currentPath, files); ok {
			return p, true
		}
	}
	return "", false
}
