// Package workspace holds the immutable file tree snapshot the browser
// navigates over.
package workspace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	domainerrors "xplore/internal/core/errors"
	"xplore/internal/shared/util"
)

const (
	TypeFile = "file"
	TypeDir  = "dir"
)

// Node is one entry of the file tree as published in tree.json.
type Node struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Type     string `json:"type"`
	MimeType string `json:"mimetype,omitempty"`
	Children []Node `json:"children,omitempty"`
}

func (n Node) IsDir() bool { return n.Type == TypeDir }

// Tree is a read-only snapshot with indexes for path lookups.
type Tree struct {
	roots  []Node
	files  []Node
	paths  map[string]int
	byBase map[string][]string
}

// NewTree indexes nodes. Paths are normalized to forward slashes.
func NewTree(nodes []Node) *Tree {
	t := &Tree{
		roots:  nodes,
		paths:  make(map[string]int),
		byBase: make(map[string][]string),
	}
	t.collect(nodes)
	return t
}

func (t *Tree) collect(nodes []Node) {
	for i := range nodes {
		n := &nodes[i]
		n.Path = util.NormalizeSlashes(n.Path)
		if n.IsDir() {
			t.collect(n.Children)
			continue
		}
		if _, seen := t.paths[n.Path]; seen {
			continue
		}
		t.paths[n.Path] = len(t.files)
		t.files = append(t.files, *n)
		base := strings.ToLower(util.Basename(n.Path))
		t.byBase[base] = append(t.byBase[base], n.Path)
	}
}

// Load decodes a tree.json document.
func Load(r io.Reader) (*Tree, error) {
	var nodes []Node
	if err := json.NewDecoder(r).Decode(&nodes); err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeValidationError, "decode file tree")
	}
	return NewTree(nodes), nil
}

func LoadFile(path string) (*Tree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeUnavailable, "open file tree"),
			domainerrors.CtxPath, path,
		)
	}
	defer f.Close()
	return Load(f)
}

func LoadURL(ctx context.Context, client *http.Client, url string) (*Tree, error) {
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domainerrors.Wrap(err, domainerrors.CodeValidationError, "build file tree request")
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, domainerrors.AddContext(
			domainerrors.Wrap(err, domainerrors.CodeUnavailable, "fetch file tree"),
			domainerrors.CtxURL, url,
		)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domainerrors.AddContext(
			domainerrors.New(domainerrors.CodeUnavailable, fmt.Sprintf("file tree returned status %d", resp.StatusCode)),
			domainerrors.CtxURL, url,
		)
	}
	return Load(resp.Body)
}

// Roots returns the top-level nodes.
func (t *Tree) Roots() []Node { return t.roots }

// Len returns the number of files.
func (t *Tree) Len() int { return len(t.files) }

// Files returns every file path in tree order.
func (t *Tree) Files() []string {
	out := make([]string, len(t.files))
	for i, f := range t.files {
		out[i] = f.Path
	}
	return out
}

// FileNodes returns every file node in tree order.
func (t *Tree) FileNodes() []Node { return t.files }

// Has reports whether path is a file in the tree.
func (t *Tree) Has(path string) bool {
	_, ok := t.paths[path]
	return ok
}

// Node returns the file node at path.
func (t *Tree) Node(path string) (Node, bool) {
	idx, ok := t.paths[path]
	if !ok {
		return Node{}, false
	}
	return t.files[idx], true
}

// ByBasename returns files whose final segment equals base, compared
// case-insensitively, in tree order.
func (t *Tree) ByBasename(base string) []string {
	return t.byBase[strings.ToLower(base)]
}

// WithSuffix returns files whose path ends with suffix, in tree order.
func (t *Tree) WithSuffix(suffix string) []string {
	var out []string
	for _, f := range t.files {
		if strings.HasSuffix(f.Path, suffix) {
			out = append(out, f.Path)
		}
	}
	return out
}

// Search filters the tree by a case-insensitive substring of node names.
// A matching directory keeps all of its children; otherwise a directory is
// kept only for its matching descendants.
func (t *Tree) Search(query string) []Node {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return t.roots
	}
	return searchNodes(q, t.roots)
}

func searchNodes(q string, nodes []Node) []Node {
	var out []Node
	for _, n := range nodes {
		nameMatch := strings.Contains(strings.ToLower(n.Name), q)
		if n.IsDir() {
			children := searchNodes(q, n.Children)
			if nameMatch || len(children) > 0 {
				copyNode := n
				if !nameMatch {
					copyNode.Children = children
				}
				out = append(out, copyNode)
			}
			continue
		}
		if nameMatch {
			out = append(out, n)
		}
	}
	return out
}
