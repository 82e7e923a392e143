package tags

import "strings"

// Outline groups the symbols of a single file the way the outline panel
// shows them.
type Outline struct {
	Path      string `json:"path"`
	Macros    []Tag  `json:"macros"`
	Globals   []Tag  `json:"globals"`
	Classes   []Tag  `json:"classes"`
	Functions []Tag  `json:"functions"`
}

// Count returns the number of grouped symbols.
func (o Outline) Count() int {
	return len(o.Macros) + len(o.Globals) + len(o.Classes) + len(o.Functions)
}

// OutlineFor groups the tags of path. filter, when non-empty, keeps only
// names containing it case-insensitively.
func (s *Store) OutlineFor(path, filter string) Outline {
	out := Outline{Path: path}
	filter = strings.ToLower(strings.TrimSpace(filter))

	for _, t := range s.ByPath(path) {
		if filter != "" && !strings.Contains(strings.ToLower(t.Name), filter) {
			continue
		}
		switch strings.ToLower(t.Kind) {
		case "macro", "define", "preproc":
			out.Macros = append(out.Macros, t)
		case "function", "method":
			out.Functions = append(out.Functions, t)
		case "class", "struct", "union", "enum", "typedef", "interface":
			out.Classes = append(out.Classes, t)
		case "variable", "var":
			switch strings.ToLower(t.ScopeKind) {
			case "function", "method":
				// locals are not listed
			default:
				out.Globals = append(out.Globals, t)
			}
		}
	}
	return out
}
