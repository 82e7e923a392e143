package workspace

import (
	"fmt"
	"strings"

	"github.com/gobwas/glob"
)

var (
	DefaultExcludeDirs  = []string{".git", "node_modules", "__*"}
	DefaultExcludeFiles = []string{"*.out", "*.so", "*.so.1", "*.swa", "*.swp", "*.rej", "*.orig", "*~"}
)

// Excluder matches directory and file names against glob patterns.
type Excluder struct {
	dirs  []glob.Glob
	files []glob.Glob
}

func NewExcluder(dirPatterns, filePatterns []string) (*Excluder, error) {
	e := &Excluder{}
	for _, pattern := range dirPatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile dir exclude %q: %w", pattern, err)
		}
		e.dirs = append(e.dirs, g)
	}
	for _, pattern := range filePatterns {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile file exclude %q: %w", pattern, err)
		}
		e.files = append(e.files, g)
	}
	return e, nil
}

// DefaultExcluder returns the excluder for the built-in patterns.
func DefaultExcluder() *Excluder {
	e, err := NewExcluder(DefaultExcludeDirs, DefaultExcludeFiles)
	if err != nil {
		panic(err)
	}
	return e
}

func (e *Excluder) Dir(name string) bool {
	if e == nil {
		return false
	}
	return matchAny(e.dirs, name)
}

func (e *Excluder) File(name string) bool {
	if e == nil {
		return false
	}
	return matchAny(e.files, name)
}

// Path reports whether any directory segment or the final file name of a
// slash-separated path is excluded.
func (e *Excluder) Path(p string) bool {
	if e == nil {
		return false
	}
	segs := strings.Split(p, "/")
	for _, dir := range segs[:len(segs)-1] {
		if e.Dir(dir) {
			return true
		}
	}
	return e.File(segs[len(segs)-1])
}

func matchAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}
