// Package navigation answers definition, declaration, type, implementation
// and include queries over the tag store and file tree.
package navigation

import (
	"sort"
	"strings"
	"sync"
	"time"

	"xplore/internal/engine/resolver"
	"xplore/internal/engine/scanner"
	"xplore/internal/engine/tags"
	"xplore/internal/shared/observability"
)

type Operation string

const (
	OpDefinition       Operation = "definition"
	OpDeclaration      Operation = "declaration"
	OpTypeDefinition   Operation = "type_definition"
	OpImplementations  Operation = "implementations"
	OpSourceDefinition Operation = "source_definition"
)

type Status string

const (
	// StatusFound means Candidates[0] is the single target.
	StatusFound Status = "found"
	// StatusAmbiguous means several candidates tie for the top rank; the
	// full ranked list is returned for the user to choose.
	StatusAmbiguous Status = "ambiguous"
	StatusNotFound  Status = "not_found"
	// StatusFallback means no tag matched and the editor's built-in reveal
	// capability should be tried.
	StatusFallback Status = "fallback"
	// StatusInvalid means the cursor word is not a symbol; nothing happens.
	StatusInvalid Status = "invalid"
)

type Result struct {
	Operation  Operation  `json:"operation"`
	Status     Status     `json:"status"`
	Symbol     string     `json:"symbol"`
	TypeName   string     `json:"typeName,omitempty"`
	Candidates []tags.Tag `json:"candidates"`
}

// Best returns the top-ranked candidate.
func (r Result) Best() (tags.Tag, bool) {
	if len(r.Candidates) == 0 {
		return tags.Tag{}, false
	}
	return r.Candidates[0], true
}

// Scope selects where candidates are gathered from.
type Scope string

const (
	ScopeFile      Scope = "file"
	ScopeWorkspace Scope = "workspace"
)

type Engine struct {
	tags *tags.Store

	mu    sync.RWMutex
	files resolver.FileIndex
}

func NewEngine(store *tags.Store, files resolver.FileIndex) *Engine {
	return &Engine{tags: store, files: files}
}

// SetFiles swaps the file index used for include resolution.
func (e *Engine) SetFiles(files resolver.FileIndex) {
	e.mu.Lock()
	e.files = files
	e.mu.Unlock()
}

func (e *Engine) fileIndex() resolver.FileIndex {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.files
}

// Tags exposes the underlying store.
func (e *Engine) Tags() *tags.Store { return e.tags }

// Candidates returns tags named symbol in the active file (ScopeFile) or in
// the whole workspace.
func (e *Engine) Candidates(symbol, activePath string, scope Scope) []tags.Tag {
	if scope == ScopeFile {
		return e.tags.LocalByName(activePath, symbol)
	}
	return e.tags.ByName(symbol)
}

// pool merges file-local and workspace matches, local first, dropping
// duplicate locations.
func (e *Engine) pool(symbol, activePath string) []tags.Tag {
	local := e.Candidates(symbol, activePath, ScopeFile)
	global := e.Candidates(symbol, activePath, ScopeWorkspace)
	out := make([]tags.Tag, 0, len(local)+len(global))
	seen := make(map[string]struct{}, len(local)+len(global))
	for _, list := range [][]tags.Tag{local, global} {
		for _, t := range list {
			key := t.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}

func filter(list []tags.Tag, keep func(tags.Tag) bool) []tags.Tag {
	var out []tags.Tag
	for _, t := range list {
		if keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func sortBySourceRank(list []tags.Tag) {
	sort.SliceStable(list, func(i, j int) bool {
		return SourceRank(list[i].Path) < SourceRank(list[j].Path)
	})
}

// rankScored sorts by score descending then source rank ascending, and
// reports whether more than one candidate shares the top position.
func rankScored(list []tags.Tag, score func(tags.Tag) int) bool {
	sort.SliceStable(list, func(i, j int) bool {
		si, sj := score(list[i]), score(list[j])
		if si != sj {
			return si > sj
		}
		return SourceRank(list[i].Path) < SourceRank(list[j].Path)
	})
	if len(list) < 2 {
		return false
	}
	return score(list[0]) == score(list[1]) && SourceRank(list[0].Path) == SourceRank(list[1].Path)
}

func listResult(op Operation, symbol string, list []tags.Tag) Result {
	switch len(list) {
	case 0:
		return Result{Operation: op, Status: StatusNotFound, Symbol: symbol}
	case 1:
		return Result{Operation: op, Status: StatusFound, Symbol: symbol, Candidates: list}
	default:
		return Result{Operation: op, Status: StatusAmbiguous, Symbol: symbol, Candidates: list}
	}
}

func observe(op Operation, start time.Time, res Result) Result {
	observability.NavigationRequestsTotal.WithLabelValues(string(op), string(res.Status)).Inc()
	observability.NavigationDuration.WithLabelValues(string(op)).Observe(time.Since(start).Seconds())
	return res
}

// Definition ranks definition-like candidates: +5 source file, +1 not a
// header, +2 same file stem as activePath, +1 different file.
func (e *Engine) Definition(symbol, activePath string) Result {
	start := time.Now()
	if !ValidSymbol(symbol) {
		return observe(OpDefinition, start, Result{Operation: OpDefinition, Status: StatusInvalid, Symbol: symbol})
	}

	all := e.pool(symbol, activePath)
	if len(all) == 0 {
		return observe(OpDefinition, start, Result{Operation: OpDefinition, Status: StatusFallback, Symbol: symbol})
	}

	candidates := filter(all, looksDefinition)
	if len(candidates) == 0 {
		candidates = all
	}
	tied := rankScored(candidates, func(t tags.Tag) int { return definitionScore(t, activePath) })
	return observe(OpDefinition, start, topResult(OpDefinition, symbol, candidates, tied))
}

// Declaration mirrors Definition with header-first preference.
func (e *Engine) Declaration(symbol, activePath string) Result {
	start := time.Now()
	if !ValidSymbol(symbol) {
		return observe(OpDeclaration, start, Result{Operation: OpDeclaration, Status: StatusInvalid, Symbol: symbol})
	}

	all := e.pool(symbol, activePath)
	candidates := filter(all, looksDeclaration)
	if len(candidates) == 0 {
		candidates = filter(all, func(t tags.Tag) bool { return isHeader(t.Path) })
	}
	if len(candidates) == 0 {
		return observe(OpDeclaration, start, Result{Operation: OpDeclaration, Status: StatusFallback, Symbol: symbol})
	}

	tied := rankScored(candidates, func(t tags.Tag) int { return declarationScore(t, activePath) })
	return observe(OpDeclaration, start, topResult(OpDeclaration, symbol, candidates, tied))
}

func topResult(op Operation, symbol string, ranked []tags.Tag, tied bool) Result {
	status := StatusFound
	if tied {
		status = StatusAmbiguous
	}
	return Result{Operation: op, Status: status, Symbol: symbol, Candidates: ranked}
}

// TypeDefinition finds the type of symbol from a typeref on any matching
// tag, or failing that from lineText, and returns the type's tags ranked
// source-first. The first candidate is the target.
func (e *Engine) TypeDefinition(symbol, activePath, lineText string) Result {
	start := time.Now()
	if !ValidSymbol(symbol) {
		return observe(OpTypeDefinition, start, Result{Operation: OpTypeDefinition, Status: StatusInvalid, Symbol: symbol})
	}

	typeName := ""
	for _, t := range e.pool(symbol, activePath) {
		if t.TypeRef != "" {
			typeName = typeFromTypeRef(t.TypeRef)
			break
		}
	}
	if typeName == "" {
		typeName = InferTypeFromLine(lineText, symbol)
	}
	if typeName == "" {
		return observe(OpTypeDefinition, start, Result{Operation: OpTypeDefinition, Status: StatusNotFound, Symbol: symbol})
	}

	candidates := filter(e.tags.ByName(typeName), func(t tags.Tag) bool {
		return typeKinds[strings.ToLower(t.Kind)]
	})
	res := Result{Operation: OpTypeDefinition, Status: StatusNotFound, Symbol: symbol, TypeName: typeName}
	if len(candidates) > 0 {
		sortBySourceRank(candidates)
		res.Status = StatusFound
		res.Candidates = candidates
	}
	return observe(OpTypeDefinition, start, res)
}

// Implementations lists function-like tags named symbol, source-first.
func (e *Engine) Implementations(symbol string) Result {
	start := time.Now()
	if !ValidSymbol(symbol) {
		return observe(OpImplementations, start, Result{Operation: OpImplementations, Status: StatusInvalid, Symbol: symbol})
	}
	impls := filter(e.tags.ByName(symbol), func(t tags.Tag) bool {
		return isFunctionKind(t) || likelySignature(t)
	})
	sortBySourceRank(impls)
	return observe(OpImplementations, start, listResult(OpImplementations, symbol, impls))
}

// SourceDefinition lists every tag named symbol, implementation files first.
func (e *Engine) SourceDefinition(symbol string) Result {
	start := time.Now()
	if !ValidSymbol(symbol) {
		return observe(OpSourceDefinition, start, Result{Operation: OpSourceDefinition, Status: StatusInvalid, Symbol: symbol})
	}
	candidates := append([]tags.Tag(nil), e.tags.ByName(symbol)...)
	sortBySourceRank(candidates)
	return observe(OpSourceDefinition, start, listResult(OpSourceDefinition, symbol, candidates))
}

// Symbols runs the fuzzy symbol filter over the active file's tags
// (ScopeFile, when the file has any) or the whole workspace.
func (e *Engine) Symbols(query, activePath string, scope Scope, limit int) []tags.Tag {
	list := e.tags.All()
	if scope == ScopeFile {
		if local := e.tags.ByPath(activePath); len(local) > 0 {
			list = local
		}
	}
	return tags.FuzzyFilter(list, query, limit)
}

// Outline groups the symbols of path.
func (e *Engine) Outline(path, filter string) tags.Outline {
	return e.tags.OutlineFor(path, filter)
}

// IncludeTarget is a scanned reference and where it resolves.
type IncludeTarget struct {
	Ref      scanner.Reference `json:"ref"`
	Target   string            `json:"target,omitempty"`
	Resolved bool              `json:"resolved"`
}

// Includes scans text of path and resolves each reference against the tree.
func (e *Engine) Includes(path, text string) []IncludeTarget {
	refs := scanner.Scan(path, text)
	files := e.fileIndex()
	out := make([]IncludeTarget, 0, len(refs))
	for _, ref := range refs {
		target, ok := resolver.ResolveReference(ref, path, files)
		out = append(out, IncludeTarget{Ref: ref, Target: target, Resolved: ok})
	}
	return out
}

// IncludeLocation returns where following ref leads: the resolved file, or
// the reference's own line in activePath when nothing resolves.
func (e *Engine) IncludeLocation(ref scanner.Reference, activePath string) (Location, bool) {
	if target, ok := resolver.ResolveReference(ref, activePath, e.fileIndex()); ok {
		return Location{Path: target}, true
	}
	return Location{Path: activePath, Line: ref.Line}, false
}
