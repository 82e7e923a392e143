package workspace

import "strings"

var searchableExts = map[string]bool{
	"c": true, "h": true, "cpp": true, "hpp": true, "hh": true, "hxx": true, "cc": true,
	"py": true, "js": true, "ts": true, "java": true, "go": true, "rs": true, "rb": true,
	"php": true, "sh": true, "mk": true, "mak": true, "rc": true, "vim": true, "lua": true,
	"json": true, "yaml": true, "yml": true, "toml": true, "md": true, "txt": true,
	"html": true, "css": true, "cfg": true, "in": true, "jsx": true, "tsx": true,
	"mjs": true, "cjs": true, "bash": true, "zsh": true, "ksh": true, "makefile": true,
	"make": true,
}

// IsSearchable reports whether a file is worth scanning as text: a known
// code or config extension, a file named makefile, or a text/* MIME type.
// Names without a dot are matched on the whole name.
func IsSearchable(name, mimeType string) bool {
	lower := strings.ToLower(name)
	if lower == "makefile" {
		return true
	}
	ext := lower
	if idx := strings.LastIndex(lower, "."); idx >= 0 {
		ext = lower[idx+1:]
	}
	if searchableExts[ext] {
		return true
	}
	return strings.HasPrefix(mimeType, "text/")
}

// SearchableFiles returns file paths eligible for workspace text search, in
// tree order, skipping anything the excluder rejects.
func (t *Tree) SearchableFiles(ex *Excluder) []string {
	var out []string
	for _, f := range t.files {
		if !IsSearchable(f.Name, f.MimeType) {
			continue
		}
		if ex.Path(f.Path) {
			continue
		}
		out = append(out, f.Path)
	}
	return out
}
