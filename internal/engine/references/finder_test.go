package references

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xplore/internal/engine/tags"
	"xplore/internal/engine/workspace"
)

type mapFetcher struct {
	files map[string]string
	delay time.Duration

	inFlight atomic.Int32
	peak     atomic.Int32
	mu       sync.Mutex
	fetched  []string
}

func (m *mapFetcher) Fetch(ctx context.Context, path string) (string, error) {
	n := m.inFlight.Add(1)
	defer m.inFlight.Add(-1)
	for {
		p := m.peak.Load()
		if n <= p || m.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if m.delay > 0 {
		time.Sleep(m.delay)
	}
	m.mu.Lock()
	m.fetched = append(m.fetched, path)
	m.mu.Unlock()
	text, ok := m.files[path]
	if !ok {
		return "", errors.New("404 not found")
	}
	return text, nil
}

func fileTree(paths ...string) *workspace.Tree {
	nodes := make([]workspace.Node, 0, len(paths))
	for _, p := range paths {
		nodes = append(nodes, workspace.Node{
			Name: p[strings.LastIndex(p, "/")+1:],
			Path: p,
			Type: workspace.TypeFile,
		})
	}
	return workspace.NewTree(nodes)
}

func TestFindInFileWordBoundary(t *testing.T) {
	f := NewFinder(tags.NewStore(), &mapFetcher{}, nil, Limits{})
	got := f.FindInFile("x", "f.c", "xx x yx")
	require.Len(t, got, 1)
	assert.Equal(t, Match{Path: "f.c", Line: 1, Snippet: "xx x yx"}, got[0])
}

func TestFindInFileLinesAndSnippets(t *testing.T) {
	f := NewFinder(tags.NewStore(), &mapFetcher{}, nil, Limits{})
	text := "int foo;\n\n   foo(1); foo(2);\nfoofoo\n\tfoo"
	got := f.FindInFile("foo", "a.c", text)
	require.Len(t, got, 4)
	assert.Equal(t, []int{1, 3, 3, 5}, []int{got[0].Line, got[1].Line, got[2].Line, got[3].Line})
	assert.Equal(t, "foo(1); foo(2);", got[1].Snippet)
	assert.Equal(t, "foo", got[3].Snippet)
}

func TestFindInFileEscapesSymbol(t *testing.T) {
	f := NewFinder(tags.NewStore(), &mapFetcher{}, nil, Limits{})
	got := f.FindInFile("a.b", "x.py", "axb a.b")
	require.Len(t, got, 1)
}

func TestFindInFileCap(t *testing.T) {
	f := NewFinder(tags.NewStore(), &mapFetcher{}, nil, Limits{FileMatches: 3})
	got := f.FindInFile("a", "x", strings.Repeat("a ", 10))
	assert.Len(t, got, 3)
	assert.Empty(t, f.FindInFile("", "x", "a"))
}

func TestFindInWorkspace(t *testing.T) {
	store := tags.NewStoreFromTags([]tags.Tag{
		{Name: "foo", Path: "src/a.c", Line: 10, Kind: "function"},
		{Name: "foo", Path: "include/a.h", Line: 3, Kind: "prototype"},
		{Name: "bar", Path: "src/a.c", Line: 20, Kind: "function"},
	})
	fetcher := &mapFetcher{files: map[string]string{
		"src/b.c":           "void g(void) { foo(); }\n",
		"src/a.c":           "int foo(int x)\n{\n  return foo(x - 1);\n}\n",
		"include/a.h":       "int foo(int);\n",
		"node_modules/x.js": "foo()",
		"src/many.c":        strings.Repeat("foo\n", 30),
		"notes/readme.swp":  "foo",
	}}
	tree := fileTree("src/b.c", "src/a.c", "include/a.h", "src/broken.c", "node_modules/x.js", "src/many.c", "notes/readme.swp", "logo.png")
	f := NewFinder(store, fetcher, workspace.DefaultExcluder(), Limits{})

	report, err := f.FindInWorkspace(context.Background(), "foo", tree)
	require.NoError(t, err)

	require.Len(t, report.Definitions, 1)
	assert.Equal(t, "src/a.c", report.Definitions[0].Path)
	require.Len(t, report.Declarations, 1)
	assert.Equal(t, "include/a.h", report.Declarations[0].Path)

	// b.c, a.c, a.h, broken.c, many.c; excluded and binary files never fetched
	assert.Equal(t, 5, report.FilesScanned)
	assert.NotContains(t, fetcher.fetched, "node_modules/x.js")
	assert.NotContains(t, fetcher.fetched, "logo.png")

	require.Len(t, report.References, 1+2+1+20)
	for i := 1; i < len(report.References); i++ {
		prev, cur := report.References[i-1], report.References[i]
		ordered := prev.Path < cur.Path || (prev.Path == cur.Path && prev.Line <= cur.Line)
		assert.Truef(t, ordered, "references out of order at %d: %v then %v", i, prev, cur)
	}
	assert.Equal(t, Match{Path: "include/a.h", Line: 1, Snippet: "int foo(int);"}, report.References[0])
	assert.False(t, report.Truncated)
	assert.Equal(t, 2+len(report.References), report.Total())
}

func TestFindInWorkspaceCaps(t *testing.T) {
	files := map[string]string{}
	var paths []string
	for i := 0; i < 12; i++ {
		p := fmt.Sprintf("f%02d.c", i)
		paths = append(paths, p)
		files[p] = strings.Repeat("sym ", 5)
	}
	f := NewFinder(tags.NewStore(), &mapFetcher{files: files}, nil, Limits{WorkspaceFiles: 10, PerFile: 3, WorkspaceTotal: 25})

	report, err := f.FindInWorkspace(context.Background(), "sym", fileTree(paths...))
	require.NoError(t, err)
	assert.Equal(t, 10, report.FilesScanned)
	assert.Len(t, report.References, 25)
	assert.True(t, report.Truncated)
}

func TestFindInWorkspaceBoundsConcurrency(t *testing.T) {
	files := map[string]string{}
	var paths []string
	for i := 0; i < 20; i++ {
		p := fmt.Sprintf("f%02d.c", i)
		paths = append(paths, p)
		files[p] = "x"
	}
	fetcher := &mapFetcher{files: files, delay: 5 * time.Millisecond}
	f := NewFinder(tags.NewStore(), fetcher, nil, Limits{Concurrency: 3})

	report, err := f.FindInWorkspace(context.Background(), "x", fileTree(paths...))
	require.NoError(t, err)
	assert.Len(t, report.References, 20)
	assert.LessOrEqual(t, fetcher.peak.Load(), int32(3))
	assert.Len(t, fetcher.fetched, 20)
}

func TestFindInWorkspaceCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := NewFinder(tags.NewStore(), &mapFetcher{files: map[string]string{"a.c": "x"}}, nil, Limits{})
	_, err := f.FindInWorkspace(ctx, "x", fileTree("a.c"))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGrep(t *testing.T) {
	fetcher := &mapFetcher{files: map[string]string{
		"a.c": "x = a.b;\naxb\n",
		"b.c": "a.b a.b\n",
	}}
	f := NewFinder(tags.NewStore(), fetcher, nil, Limits{})

	var mu sync.Mutex
	var calls []int
	got, err := f.Grep(context.Background(), "a.b", fileTree("a.c", "b.c", "c.c"), func(done, total int) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 3, total)
		calls = append(calls, done)
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, Match{Path: "a.c", Line: 1, Snippet: "x = a.b;"}, got[0])
	assert.Equal(t, "b.c", got[1].Path)
	assert.Equal(t, []int{1, 2, 3}, calls)

	empty, err := f.Grep(context.Background(), "", fileTree("a.c"), nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMapBoundedPreservesOrder(t *testing.T) {
	items := []int{5, 1, 4, 2, 3}
	got := mapBounded(context.Background(), items, 2, func(_ context.Context, n int) int {
		time.Sleep(time.Duration(n) * time.Millisecond)
		return n * 10
	}, nil)
	assert.Equal(t, []int{50, 10, 40, 20, 30}, got)
}
