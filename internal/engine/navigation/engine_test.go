package navigation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xplore/internal/engine/scanner"
	"xplore/internal/engine/tags"
	"xplore/internal/engine/workspace"
)

func newEngine(t *testing.T, tagList []tags.Tag, paths ...string) *Engine {
	t.Helper()
	nodes := make([]workspace.Node, 0, len(paths))
	for _, p := range paths {
		nodes = append(nodes, workspace.Node{Type: workspace.TypeFile, Name: p, Path: p})
	}
	return NewEngine(tags.NewStoreFromTags(tagList), workspace.NewTree(nodes))
}

func TestDefinitionAndDeclarationEndToEnd(t *testing.T) {
	e := newEngine(t, []tags.Tag{
		{Name: "foo", Path: "a.c", Line: 10, Kind: "function"},
		{Name: "foo", Path: "a.h", Line: 3, Kind: "prototype"},
	})

	for _, active := range []string{"", "a.c", "a.h", "main.c", "lib/other.py"} {
		def := e.Definition("foo", active)
		require.Equal(t, StatusFound, def.Status, "definition from %q", active)
		best, _ := def.Best()
		assert.Equal(t, "a.c", best.Path)
		assert.Equal(t, 10, best.Line)

		decl := e.Declaration("foo", active)
		require.Equal(t, StatusFound, decl.Status, "declaration from %q", active)
		best, _ = decl.Best()
		assert.Equal(t, "a.h", best.Path)
		assert.Equal(t, 3, best.Line)
	}
}

func TestDefinitionRanking(t *testing.T) {
	t.Run("same stem wins", func(t *testing.T) {
		e := newEngine(t, []tags.Tag{
			{Name: "run", Path: "other.c", Line: 1, Kind: "function"},
			{Name: "run", Path: "util.c", Line: 2, Kind: "function"},
		})
		res := e.Definition("run", "util.h")
		require.Equal(t, StatusFound, res.Status)
		assert.Equal(t, "util.c", res.Candidates[0].Path)
	})

	t.Run("equal top returns ranked list", func(t *testing.T) {
		e := newEngine(t, []tags.Tag{
			{Name: "run", Path: "x.c", Line: 1, Kind: "function"},
			{Name: "run", Path: "y.c", Line: 1, Kind: "function"},
			{Name: "run", Path: "run.h", Line: 1, Kind: "prototype"},
		})
		res := e.Definition("run", "main.c")
		require.Equal(t, StatusAmbiguous, res.Status)
		require.Len(t, res.Candidates, 2, "only definition-like tags are ranked")
		assert.Equal(t, "x.c", res.Candidates[0].Path)
	})

	t.Run("source signature counts as definition", func(t *testing.T) {
		e := newEngine(t, []tags.Tag{
			{Name: "cb", Path: "a.h", Line: 4, Kind: "member"},
			{Name: "cb", Path: "b.c", Line: 9, Kind: "local", Pattern: "/^static int cb(void)$/"},
		})
		res := e.Definition("cb", "main.c")
		require.Equal(t, StatusFound, res.Status)
		assert.Equal(t, "b.c", res.Candidates[0].Path)
	})

	t.Run("non-definitions used when nothing else", func(t *testing.T) {
		e := newEngine(t, []tags.Tag{{Name: "count", Path: "a.h", Line: 2, Kind: "variable"}})
		res := e.Definition("count", "main.c")
		require.Equal(t, StatusFound, res.Status)
		assert.Equal(t, "a.h", res.Candidates[0].Path)
	})

	t.Run("duplicate local and workspace tag is not ambiguous", func(t *testing.T) {
		e := newEngine(t, []tags.Tag{{Name: "helper", Path: "main.c", Line: 5, Kind: "function"}})
		res := e.Definition("helper", "main.c")
		require.Equal(t, StatusFound, res.Status)
		assert.Len(t, res.Candidates, 1)
	})
}

func TestDefinitionFallbackAndInvalid(t *testing.T) {
	e := newEngine(t, nil)
	assert.Equal(t, StatusFallback, e.Definition("missing", "a.c").Status)
	assert.Equal(t, StatusFallback, e.Declaration("missing", "a.c").Status)

	for _, word := range []string{"", "1abc", "a b", "foo::", "a-b"} {
		assert.Equal(t, StatusInvalid, e.Definition(word, "a.c").Status, "word %q", word)
		assert.Equal(t, StatusInvalid, e.Implementations(word).Status, "word %q", word)
	}
	assert.True(t, ValidSymbol("ns::Type::method"))
}

func TestDeclarationFallsBackToHeaders(t *testing.T) {
	e := newEngine(t, []tags.Tag{
		{Name: "init", Path: "init.c", Line: 20, Kind: "function"},
		{Name: "init", Path: "init.h", Line: 4, Kind: "function"},
	})
	res := e.Declaration("init", "main.c")
	require.Equal(t, StatusFound, res.Status)
	assert.Equal(t, "init.h", res.Candidates[0].Path)

	onlySource := newEngine(t, []tags.Tag{{Name: "init", Path: "init.c", Line: 20, Kind: "function"}})
	assert.Equal(t, StatusFallback, onlySource.Declaration("init", "main.c").Status)
}

func TestTypeDefinition(t *testing.T) {
	e := newEngine(t, []tags.Tag{
		{Name: "w", Path: "main.c", Line: 3, Kind: "variable", TypeRef: "struct:Widget"},
		{Name: "Widget", Path: "widget.h", Line: 1, Kind: "struct"},
		{Name: "Widget", Path: "widget.c", Line: 8, Kind: "struct"},
		{Name: "Widget", Path: "widget.c", Line: 30, Kind: "function"},
		{Name: "Config", Path: "config.h", Line: 12, Kind: "typedef"},
	})

	res := e.TypeDefinition("w", "main.c", "")
	require.Equal(t, StatusFound, res.Status)
	assert.Equal(t, "Widget", res.TypeName)
	require.Len(t, res.Candidates, 2)
	assert.Equal(t, "widget.c", res.Candidates[0].Path)
	assert.Equal(t, 8, res.Candidates[0].Line)

	inferred := e.TypeDefinition("cfg", "main.c", "    const Config *cfg = load();")
	require.Equal(t, StatusFound, inferred.Status)
	assert.Equal(t, "Config", inferred.TypeName)
	assert.Equal(t, "config.h", inferred.Candidates[0].Path)

	unknown := e.TypeDefinition("cfg", "main.c", "cfg = 1")
	assert.Equal(t, StatusNotFound, unknown.Status)

	missingType := e.TypeDefinition("x", "main.c", "Missing *x;")
	assert.Equal(t, StatusNotFound, missingType.Status)
	assert.Equal(t, "Missing", missingType.TypeName)
}

func TestImplementationsAndSourceDefinition(t *testing.T) {
	e := newEngine(t, []tags.Tag{
		{Name: "run", Path: "run.h", Line: 2, Kind: "prototype", Signature: "(void)"},
		{Name: "run", Path: "run.c", Line: 10, Kind: "function"},
		{Name: "run", Path: "tool.py", Line: 1, Kind: "variable"},
		{Name: "solo", Path: "solo.go", Line: 3, Kind: "func", Pattern: "/^func solo() {$/"},
	})

	impls := e.Implementations("run")
	require.Equal(t, StatusAmbiguous, impls.Status)
	require.Len(t, impls.Candidates, 2)
	assert.Equal(t, "run.c", impls.Candidates[0].Path)
	assert.Equal(t, "run.h", impls.Candidates[1].Path)

	solo := e.Implementations("solo")
	require.Equal(t, StatusFound, solo.Status)

	assert.Equal(t, StatusNotFound, e.Implementations("nothing").Status)

	src := e.SourceDefinition("run")
	require.Equal(t, StatusAmbiguous, src.Status)
	require.Len(t, src.Candidates, 3)
	assert.Equal(t, []string{"run.c", "tool.py", "run.h"}, []string{src.Candidates[0].Path, src.Candidates[1].Path, src.Candidates[2].Path})
}

func TestFileCandidatesSubsetOfWorkspace(t *testing.T) {
	var list []tags.Tag
	for i := 0; i < 60; i++ {
		list = append(list, tags.Tag{
			Name: fmt.Sprintf("sym%d", i%5),
			Path: fmt.Sprintf("dir/f%d.c", i%7),
			Line: i + 1,
		})
	}
	e := newEngine(t, list)

	for s := 0; s < 6; s++ {
		symbol := fmt.Sprintf("sym%d", s)
		workspaceKeys := map[string]bool{}
		for _, tag := range e.Candidates(symbol, "", ScopeWorkspace) {
			workspaceKeys[tag.Key()] = true
		}
		for f := 0; f < 8; f++ {
			path := fmt.Sprintf("dir/f%d.c", f)
			for _, tag := range e.Candidates(symbol, path, ScopeFile) {
				assert.True(t, workspaceKeys[tag.Key()], "%s in %s missing from workspace scope", symbol, path)
				assert.Equal(t, path, tag.Path)
			}
		}
	}
}

func TestIncludes(t *testing.T) {
	e := newEngine(t, nil, "inc/foo.h", "src/a.c")
	text := "#include \"foo.h\"\n#include <missing.h>\n"

	got := e.Includes("src/a.c", text)
	require.Len(t, got, 2)
	assert.True(t, got[0].Resolved)
	assert.Equal(t, "inc/foo.h", got[0].Target)
	assert.False(t, got[1].Resolved)

	loc, ok := e.IncludeLocation(got[1].Ref, "src/a.c")
	assert.False(t, ok)
	assert.Equal(t, Location{Path: "src/a.c", Line: 2}, loc)

	loc, ok = e.IncludeLocation(scanner.Reference{Lang: scanner.FamilyC, Name: "foo.h", Line: 1, Kind: "include"}, "src/a.c")
	assert.True(t, ok)
	assert.Equal(t, Location{Path: "inc/foo.h"}, loc)
}

func TestSymbolsAndOutline(t *testing.T) {
	e := newEngine(t, []tags.Tag{
		{Name: "parse_args", Path: "a.c", Kind: "function"},
		{Name: "parse", Path: "b.c", Kind: "function"},
		{Name: "MAX", Path: "a.c", Kind: "macro"},
	})

	got := e.Symbols("parse", "a.c", ScopeWorkspace, 10)
	require.Len(t, got, 3)
	assert.Equal(t, "parse", got[0].Name)

	local := e.Symbols("", "a.c", ScopeFile, 10)
	assert.Len(t, local, 2)

	fallback := e.Symbols("", "unknown.c", ScopeFile, 10)
	assert.Len(t, fallback, 3, "file scope without tags falls back to workspace")

	outline := e.Outline("a.c", "")
	assert.Len(t, outline.Functions, 1)
	assert.Len(t, outline.Macros, 1)
}

func TestSourceRank(t *testing.T) {
	cases := map[string]int{
		"a.c": 0, "a.CPP": 0, "x.go": 0, "lib.rs": 0, "Main.java": 0,
		"a.h": 2, "a.hpp": 2, "a.hxx": 2,
		"a.py": 1, "Makefile": 1, "a.js": 1,
	}
	for p, want := range cases {
		assert.Equal(t, want, SourceRank(p), p)
	}
}
