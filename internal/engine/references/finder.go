// Package references finds textual occurrences of symbols in one file or
// across the workspace.
package references

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"xplore/internal/core/ports"
	"xplore/internal/engine/navigation"
	"xplore/internal/engine/tags"
	"xplore/internal/engine/workspace"
	"xplore/internal/shared/observability"
)

// Limits bounds the work done by a single search.
type Limits struct {
	FileMatches     int // matches kept by FindInFile
	WorkspaceFiles  int // files scanned by FindInWorkspace
	PerFile         int // matches kept per file in workspace and grep scans
	WorkspaceTotal  int // matches kept by FindInWorkspace overall
	Concurrency     int // in-flight fetches for FindInWorkspace
	GrepConcurrency int // in-flight fetches for Grep
}

// DefaultLimits returns the stock search bounds.
func DefaultLimits() Limits {
	return Limits{
		FileMatches:     500,
		WorkspaceFiles:  200,
		PerFile:         20,
		WorkspaceTotal:  500,
		Concurrency:     10,
		GrepConcurrency: 8,
	}
}

func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.FileMatches <= 0 {
		l.FileMatches = d.FileMatches
	}
	if l.WorkspaceFiles <= 0 {
		l.WorkspaceFiles = d.WorkspaceFiles
	}
	if l.PerFile <= 0 {
		l.PerFile = d.PerFile
	}
	if l.WorkspaceTotal <= 0 {
		l.WorkspaceTotal = d.WorkspaceTotal
	}
	if l.Concurrency <= 0 {
		l.Concurrency = d.Concurrency
	}
	if l.GrepConcurrency <= 0 {
		l.GrepConcurrency = d.GrepConcurrency
	}
	return l
}

// Report is the grouped result of a workspace reference search.
type Report struct {
	Symbol       string     `json:"symbol"`
	Definitions  []tags.Tag `json:"definitions"`
	Declarations []tags.Tag `json:"declarations"`
	References   []Match    `json:"references"`
	FilesScanned int        `json:"filesScanned"`
	Truncated    bool       `json:"truncated"`
}

// Total counts every entry across the three groups.
func (r Report) Total() int {
	return len(r.Definitions) + len(r.Declarations) + len(r.References)
}

// Finder runs reference and grep searches against a tag store and a content
// source.
type Finder struct {
	store    *tags.Store
	fetcher  ports.ContentFetcher
	excluder *workspace.Excluder
	limits   Limits
}

// NewFinder builds a Finder. A nil excluder disables path exclusion.
func NewFinder(store *tags.Store, fetcher ports.ContentFetcher, excluder *workspace.Excluder, limits Limits) *Finder {
	return &Finder{
		store:    store,
		fetcher:  fetcher,
		excluder: excluder,
		limits:   limits.withDefaults(),
	}
}

// FindInFile scans text, the content of path, for whole-word occurrences of
// symbol.
func (f *Finder) FindInFile(symbol, path, text string) []Match {
	if symbol == "" {
		return nil
	}
	start := time.Now()
	out := scanWords(WordMatcher(symbol), path, text, f.limits.FileMatches)
	observability.ReferenceSearchDuration.WithLabelValues("file").Observe(time.Since(start).Seconds())
	return out
}

// FindInWorkspace scans the searchable files of tree for symbol and groups
// the result with tag-derived definitions and declarations. Per-file fetch
// failures contribute no matches. The only error is a cancelled ctx.
func (f *Finder) FindInWorkspace(ctx context.Context, symbol string, tree *workspace.Tree) (Report, error) {
	ctx, span := observability.Tracer.Start(ctx, "references.FindInWorkspace",
		trace.WithAttributes(attribute.String("symbol", symbol)))
	defer span.End()
	start := time.Now()
	defer func() {
		observability.ReferenceSearchDuration.WithLabelValues("workspace").Observe(time.Since(start).Seconds())
	}()

	report := Report{Symbol: symbol}
	if symbol == "" {
		return report, nil
	}
	for _, t := range f.store.ByName(symbol) {
		if navigation.LooksDeclaration(t) {
			report.Declarations = append(report.Declarations, t)
		} else {
			report.Definitions = append(report.Definitions, t)
		}
	}

	var files []string
	if tree != nil {
		files = tree.SearchableFiles(f.excluder)
	}
	if len(files) > f.limits.WorkspaceFiles {
		files = files[:f.limits.WorkspaceFiles]
		report.Truncated = true
	}
	report.FilesScanned = len(files)

	re := WordMatcher(symbol)
	perFile := mapBounded(ctx, files, f.limits.Concurrency, func(ctx context.Context, path string) []Match {
		text, ok := f.fetch(ctx, path)
		if !ok {
			return nil
		}
		return scanWords(re, path, text, f.limits.PerFile)
	}, nil)

	for _, ms := range perFile {
		report.References = append(report.References, ms...)
	}
	sortMatches(report.References)
	if len(report.References) > f.limits.WorkspaceTotal {
		report.References = report.References[:f.limits.WorkspaceTotal]
		report.Truncated = true
	}
	span.SetAttributes(attribute.Int("references", len(report.References)))
	if err := ctx.Err(); err != nil {
		return report, err
	}
	return report, nil
}

// Grep searches every searchable file of tree for the literal query. progress,
// when non-nil, is called after each file with the number of files done.
func (f *Finder) Grep(ctx context.Context, query string, tree *workspace.Tree, progress func(done, total int)) ([]Match, error) {
	ctx, span := observability.Tracer.Start(ctx, "references.Grep")
	defer span.End()
	start := time.Now()
	defer func() {
		observability.ReferenceSearchDuration.WithLabelValues("grep").Observe(time.Since(start).Seconds())
	}()

	if query == "" || tree == nil {
		return nil, nil
	}
	files := tree.SearchableFiles(f.excluder)
	perFile := mapBounded(ctx, files, f.limits.GrepConcurrency, func(ctx context.Context, path string) []Match {
		text, ok := f.fetch(ctx, path)
		if !ok {
			return nil
		}
		return scanLiteral(query, path, text, f.limits.PerFile)
	}, progress)

	var out []Match
	for _, ms := range perFile {
		out = append(out, ms...)
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	return out, nil
}

func (f *Finder) fetch(ctx context.Context, path string) (string, bool) {
	if ctx.Err() != nil {
		return "", false
	}
	text, err := f.fetcher.Fetch(ctx, path)
	if err != nil {
		slog.Debug("skipping file in search", "path", path, "error", err)
		return "", false
	}
	return text, true
}

func sortMatches(ms []Match) {
	sort.SliceStable(ms, func(i, j int) bool {
		if ms[i].Path != ms[j].Path {
			return ms[i].Path < ms[j].Path
		}
		return ms[i].Line < ms[j].Line
	})
}
