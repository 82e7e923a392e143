// Package session holds per-user browsing state (active location, history,
// request tokens) over a shared, read-only workspace.
package session

import (
	"sync/atomic"

	"xplore/internal/core/ports"
	"xplore/internal/engine/navigation"
	"xplore/internal/engine/references"
	"xplore/internal/engine/tags"
	"xplore/internal/engine/workspace"
	"xplore/internal/shared/observability"
)

// Workspace bundles the shared engine pieces every session reads from. The
// file tree is swapped atomically on reload.
type Workspace struct {
	Tags    *tags.Store
	Engine  *navigation.Engine
	Finder  *references.Finder
	Fetcher ports.ContentFetcher

	tree atomic.Pointer[workspace.Tree]
}

// NewWorkspace wires an engine and finder over store and fetcher. tree may
// be nil; an empty tree is used until SetTree is called.
func NewWorkspace(store *tags.Store, tree *workspace.Tree, fetcher ports.ContentFetcher, excluder *workspace.Excluder, limits references.Limits) *Workspace {
	if tree == nil {
		tree = workspace.NewTree(nil)
	}
	w := &Workspace{
		Tags:    store,
		Engine:  navigation.NewEngine(store, tree),
		Finder:  references.NewFinder(store, fetcher, excluder, limits),
		Fetcher: fetcher,
	}
	w.tree.Store(tree)
	observability.TreeFiles.Set(float64(tree.Len()))
	return w
}

// Tree returns the current file tree snapshot.
func (w *Workspace) Tree() *workspace.Tree { return w.tree.Load() }

// SetTree replaces the file tree snapshot.
func (w *Workspace) SetTree(tree *workspace.Tree) {
	if tree == nil {
		tree = workspace.NewTree(nil)
	}
	w.tree.Store(tree)
	w.Engine.SetFiles(tree)
	observability.TreeFiles.Set(float64(tree.Len()))
}
