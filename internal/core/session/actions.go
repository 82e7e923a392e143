package session

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	domainerrors "xplore/internal/core/errors"
	"xplore/internal/engine/navigation"
	"xplore/internal/engine/references"
	"xplore/internal/engine/scanner"
	"xplore/internal/engine/tags"
	"xplore/internal/shared/observability"
)

// Outcome is the result of a jump request. View is set when the request
// led to a navigation; an ambiguous result leaves it nil so the caller can
// offer the candidates. FellBack is set when the editor's own capability
// handled a request the tag index could not.
type Outcome struct {
	Result   navigation.Result `json:"result"`
	View     *View             `json:"view,omitempty"`
	FellBack bool              `json:"fellBack,omitempty"`
}

// symbolOrCursor returns symbol, or the word under the editor cursor when
// symbol is empty.
func (s *Session) symbolOrCursor(symbol string) string {
	if symbol != "" {
		return symbol
	}
	if e := s.getEditor(); e != nil {
		return e.GetCursorWord()
	}
	return ""
}

// GoToDefinition jumps to the best definition of symbol (or the word under
// the cursor). With no tag candidates the editor's built-in definition
// lookup is tried.
func (s *Session) GoToDefinition(ctx context.Context, symbol string) (Outcome, error) {
	symbol = s.symbolOrCursor(symbol)
	res := s.ws.Engine.Definition(symbol, s.Active().Path)
	return s.follow(ctx, res)
}

// GoToDeclaration is GoToDefinition with header-first ranking.
func (s *Session) GoToDeclaration(ctx context.Context, symbol string) (Outcome, error) {
	symbol = s.symbolOrCursor(symbol)
	res := s.ws.Engine.Declaration(symbol, s.Active().Path)
	return s.follow(ctx, res)
}

// GoToTypeDefinition jumps to the type of symbol. lineText is the source
// line used for type inference; when empty the editor's line at the active
// position is used.
func (s *Session) GoToTypeDefinition(ctx context.Context, symbol, lineText string) (Outcome, error) {
	symbol = s.symbolOrCursor(symbol)
	active := s.Active()
	if lineText == "" && active.Line > 0 {
		lineText = s.lineText(active.Line)
	}
	res := s.ws.Engine.TypeDefinition(symbol, active.Path, lineText)
	if res.Status == navigation.StatusFound {
		// The first ranked type tag is the target even when several exist.
		res.Candidates = res.Candidates[:1]
	}
	return s.follow(ctx, res)
}

// GoToImplementation lists or jumps to function-like tags named symbol.
func (s *Session) GoToImplementation(ctx context.Context, symbol string) (Outcome, error) {
	symbol = s.symbolOrCursor(symbol)
	return s.follow(ctx, s.ws.Engine.Implementations(symbol))
}

// GoToSourceDefinition lists or jumps to every tag named symbol,
// implementation files first.
func (s *Session) GoToSourceDefinition(ctx context.Context, symbol string) (Outcome, error) {
	symbol = s.symbolOrCursor(symbol)
	return s.follow(ctx, s.ws.Engine.SourceDefinition(symbol))
}

// Open navigates to a candidate picked from an ambiguous result.
func (s *Session) Open(ctx context.Context, t tags.Tag) (View, error) {
	return s.NavigateTo(ctx, navigation.LocationOf(t), NavigateOptions{Record: true})
}

func (s *Session) follow(ctx context.Context, res navigation.Result) (Outcome, error) {
	out := Outcome{Result: res}
	switch res.Status {
	case navigation.StatusFound:
		best, _ := res.Best()
		view, err := s.NavigateTo(ctx, navigation.LocationOf(best), NavigateOptions{Record: true})
		if err != nil {
			return out, err
		}
		out.View = &view
	case navigation.StatusFallback:
		if e := s.getEditor(); e != nil {
			switch res.Operation {
			case navigation.OpDefinition:
				out.FellBack = e.RevealDefinition()
			case navigation.OpDeclaration:
				out.FellBack = e.RevealDeclaration()
			}
		}
	}
	return out, nil
}

// FindReferences searches the active file (ScopeFile) or the workspace for
// whole-word occurrences of symbol.
func (s *Session) FindReferences(ctx context.Context, symbol string, scope navigation.Scope) (references.Report, error) {
	symbol = s.symbolOrCursor(symbol)
	if !navigation.ValidSymbol(symbol) {
		return references.Report{Symbol: symbol}, domainerrors.AddContext(
			domainerrors.New(domainerrors.CodeValidationError, "not a symbol"),
			domainerrors.CtxSymbol, symbol,
		)
	}
	ctx, span := observability.Tracer.Start(ctx, "session.FindReferences",
		trace.WithAttributes(attribute.String("symbol", symbol), attribute.String("scope", string(scope))))
	defer span.End()
	s.touch()

	token := s.tokens.issue(ClassReferences)
	var (
		report references.Report
		err    error
	)
	if scope == navigation.ScopeFile {
		var path, text string
		path, text, err = s.currentText(ctx)
		if err == nil {
			report = references.Report{
				Symbol:       symbol,
				References:   s.ws.Finder.FindInFile(symbol, path, text),
				FilesScanned: 1,
			}
		}
	} else {
		report, err = s.ws.Finder.FindInWorkspace(ctx, symbol, s.ws.Tree())
	}
	if err != nil {
		return report, err
	}
	if err := s.tokens.check(ClassReferences, token); err != nil {
		return references.Report{}, err
	}
	return report, nil
}

// Grep runs a literal text search over the workspace.
func (s *Session) Grep(ctx context.Context, query string, progress func(done, total int)) ([]references.Match, error) {
	if query == "" {
		return nil, domainerrors.New(domainerrors.CodeValidationError, "query is required")
	}
	s.touch()
	token := s.tokens.issue(ClassGrep)
	matches, err := s.ws.Finder.Grep(ctx, query, s.ws.Tree(), progress)
	if err != nil {
		return matches, err
	}
	if err := s.tokens.check(ClassGrep, token); err != nil {
		return nil, err
	}
	return matches, nil
}

// Includes scans the active file for include/import references and
// resolves each against the file tree.
func (s *Session) Includes(ctx context.Context) ([]navigation.IncludeTarget, error) {
	token := s.tokens.issue(ClassIncludes)
	path, text, err := s.currentText(ctx)
	if err != nil {
		return nil, err
	}
	out := s.ws.Engine.Includes(path, text)
	if err := s.tokens.check(ClassIncludes, token); err != nil {
		return nil, err
	}
	return out, nil
}

// FollowInclude navigates to the file ref resolves to, or to the
// reference's own line when it does not resolve.
func (s *Session) FollowInclude(ctx context.Context, ref scanner.Reference) (View, bool, error) {
	loc, resolved := s.ws.Engine.IncludeLocation(ref, s.Active().Path)
	view, err := s.NavigateTo(ctx, loc, NavigateOptions{Record: resolved})
	return view, resolved, err
}

// Symbols runs the symbol palette filter scoped to the active file or the
// workspace.
func (s *Session) Symbols(query string, scope navigation.Scope, limit int) []tags.Tag {
	return s.ws.Engine.Symbols(query, s.Active().Path, scope, limit)
}

// Outline groups the symbols of path, or of the active file when path is
// empty.
func (s *Session) Outline(path, filter string) tags.Outline {
	if path == "" {
		path = s.Active().Path
	}
	return s.ws.Engine.Outline(path, filter)
}

// lineText returns line (1-based) of the active file from the editor, or
// from the text loaded by the last navigation when no editor is attached.
func (s *Session) lineText(line int) string {
	s.mu.Lock()
	editor, text := s.editor, s.text
	s.mu.Unlock()
	if editor != nil {
		return editor.GetLineText(line)
	}
	for i := 1; i < line; i++ {
		idx := strings.IndexByte(text, '\n')
		if idx < 0 {
			return ""
		}
		text = text[idx+1:]
	}
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = text[:idx]
	}
	return strings.TrimSuffix(text, "\r")
}

// idleFor reports how long the session has gone unused.
func (s *Session) idleFor(now time.Time) time.Duration {
	return now.Sub(s.LastUsed())
}
