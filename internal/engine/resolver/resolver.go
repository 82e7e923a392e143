// Package resolver maps an include/import/source reference name to a file
// in the workspace tree using path and basename heuristics. Resolution is a
// pure function of its inputs.
package resolver

import (
	"regexp"
	"sort"
	"strings"

	"xplore/internal/engine/scanner"
	"xplore/internal/shared/util"
)

// FileIndex is the subset of the workspace tree the resolver needs.
type FileIndex interface {
	Has(path string) bool
	WithSuffix(suffix string) []string
	ByBasename(base string) []string
}

var conventionalDir = regexp.MustCompile(`(?i)(^|/)(include|inc|headers?|src|scripts?)/`)

// Resolve returns the best workspace path for name as referenced from
// currentPath. Steps, first hit wins:
//  1. names with a slash or ./ ../ prefix, relative to currentPath's dir
//  2. exact path match
//  3. a unique file ending in "/"+basename
//  4. best-ranked case-insensitive basename match
func Resolve(name, currentPath string, files FileIndex) (string, bool) {
	name = util.NormalizeSlashes(strings.TrimSpace(name))
	if name == "" || files == nil {
		return "", false
	}

	if strings.Contains(name, "/") {
		rel := util.NormalizeWorkspacePath(util.Dirname(currentPath) + "/" + name)
		if rel != "" && files.Has(rel) {
			return rel, true
		}
	}

	if files.Has(name) {
		return name, true
	}

	base := util.Basename(name)
	if base == "" {
		return "", false
	}
	suffixMatches := files.WithSuffix("/" + base)
	if len(suffixMatches) == 1 {
		return suffixMatches[0], true
	}

	candidates := append([]string(nil), files.ByBasename(base)...)
	if len(candidates) > 0 {
		rankCandidates(candidates, currentPath)
		return candidates[0], true
	}
	if len(suffixMatches) > 0 {
		return suffixMatches[0], true
	}
	return "", false
}

// rankCandidates orders basename matches: same directory as currentPath,
// then conventional source directories, then extensions preferred for the
// referencing file's language, then shortest path.
func rankCandidates(candidates []string, currentPath string) {
	curDir := util.Dirname(currentPath)
	preferred := preferredExts(scanner.DetectFamily(currentPath))

	key := func(p string) [3]int {
		var k [3]int
		if util.Dirname(p) != curDir {
			k[0] = 1
		}
		if !conventionalDir.MatchString(p) {
			k[1] = 1
		}
		if !preferred[util.Ext(p)] {
			k[2] = 1
		}
		return k
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		ki, kj := key(candidates[i]), key(candidates[j])
		for n := range ki {
			if ki[n] != kj[n] {
				return ki[n] < kj[n]
			}
		}
		return len(candidates[i]) < len(candidates[j])
	})
}
