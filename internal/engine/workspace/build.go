package workspace

import (
	"io/fs"
	"mime"
	"path"
	"sort"
	"strings"
)

// BuildFromFS walks fsys and produces tree nodes ordered hidden directories
// first, then directories, hidden files, and files, each group by
// lower-cased name. Excluded names are skipped.
func BuildFromFS(fsys fs.FS, ex *Excluder) ([]Node, error) {
	return buildDir(fsys, ".", ex)
}

func buildDir(fsys fs.FS, dir string, ex *Excluder) ([]Node, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		ci, cj := entryCategory(entries[i]), entryCategory(entries[j])
		if ci != cj {
			return ci < cj
		}
		return strings.ToLower(entries[i].Name()) < strings.ToLower(entries[j].Name())
	})

	nodes := make([]Node, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		rel := name
		if dir != "." {
			rel = path.Join(dir, name)
		}
		if entry.IsDir() {
			if ex.Dir(name) {
				continue
			}
			children, err := buildDir(fsys, rel, ex)
			if err != nil {
				return nil, err
			}
			nodes = append(nodes, Node{Name: name, Path: rel, Type: TypeDir, Children: children})
			continue
		}
		if ex.File(name) {
			continue
		}
		nodes = append(nodes, Node{
			Name:     name,
			Path:     rel,
			Type:     TypeFile,
			MimeType: mime.TypeByExtension(path.Ext(name)),
		})
	}
	return nodes, nil
}

func entryCategory(e fs.DirEntry) int {
	hidden := strings.HasPrefix(e.Name(), ".")
	switch {
	case e.IsDir() && hidden:
		return 0
	case e.IsDir():
		return 1
	case hidden:
		return 2
	default:
		return 3
	}
}
