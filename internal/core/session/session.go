package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	domainerrors "xplore/internal/core/errors"
	"xplore/internal/core/ports"
	"xplore/internal/engine/history"
	"xplore/internal/engine/navigation"
	"xplore/internal/engine/scanner"
	"xplore/internal/shared/observability"
)

// View is what the editor shows after a successful navigation.
type View struct {
	Location navigation.Location `json:"location"`
	// Precise is false when neither a line nor a matching pattern was
	// available and the file is shown from the top.
	Precise  bool   `json:"precise"`
	Language string `json:"language"`
	Text     string `json:"-"`
}

// NavigateOptions controls history recording for NavigateTo.
type NavigateOptions struct {
	// Record pushes the current location onto the back stack and clears
	// the forward stack. Back/forward replay does not record.
	Record bool
}

// Session is one user's browsing context. All methods are safe for
// concurrent use.
type Session struct {
	id string
	ws *Workspace

	mu      sync.Mutex
	editor  ports.Editor
	active  navigation.Location
	text    string
	history *history.History[navigation.Location]
	touched time.Time

	tokens tokens
}

// New creates a session over ws. editor may be nil for headless use.
func New(id string, ws *Workspace, editor ports.Editor, historyCapacity int) *Session {
	return &Session{
		id:      id,
		ws:      ws,
		editor:  editor,
		history: history.New[navigation.Location](historyCapacity),
		touched: time.Now(),
	}
}

func (s *Session) ID() string { return s.id }

// Workspace returns the shared workspace the session browses.
func (s *Session) Workspace() *Workspace { return s.ws }

// SetEditor attaches the editor capability used by at-cursor operations.
func (s *Session) SetEditor(e ports.Editor) {
	s.mu.Lock()
	s.editor = e
	s.mu.Unlock()
}

func (s *Session) getEditor() ports.Editor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.editor
}

// Active returns the location currently shown.
func (s *Session) Active() navigation.Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *Session) touch() {
	s.mu.Lock()
	s.touched = time.Now()
	s.mu.Unlock()
}

// LastUsed reports when the session last served a request.
func (s *Session) LastUsed() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.touched
}

// NavigateTo fetches loc's file and, only once the fetch succeeded, makes it
// the active location. On failure the session is left exactly as it was.
func (s *Session) NavigateTo(ctx context.Context, loc navigation.Location, opts NavigateOptions) (View, error) {
	ctx, span := observability.Tracer.Start(ctx, "session.NavigateTo",
		trace.WithAttributes(attribute.String("path", loc.Path), attribute.Bool("record", opts.Record)))
	defer span.End()
	s.touch()

	token := s.tokens.issue(ClassNavigate)
	view, err := s.load(ctx, loc)
	if err != nil {
		return View{}, err
	}

	s.mu.Lock()
	if err := s.tokens.check(ClassNavigate, token); err != nil {
		s.mu.Unlock()
		return View{}, err
	}
	if opts.Record && s.active.Path != "" {
		s.history.Record(s.active)
	}
	s.apply(view)
	editor := s.editor
	s.mu.Unlock()

	reveal(editor, view)
	return view, nil
}

// GoBack returns to the previous location. The current location moves to
// the forward stack.
func (s *Session) GoBack(ctx context.Context) (View, error) {
	return s.replay(ctx, true)
}

// GoForward re-applies a location undone by GoBack.
func (s *Session) GoForward(ctx context.Context) (View, error) {
	return s.replay(ctx, false)
}

func (s *Session) replay(ctx context.Context, back bool) (View, error) {
	name := "session.GoForward"
	if back {
		name = "session.GoBack"
	}
	ctx, span := observability.Tracer.Start(ctx, name)
	defer span.End()
	s.touch()

	token := s.tokens.issue(ClassNavigate)
	s.mu.Lock()
	peek := s.history.PeekForward
	if back {
		peek = s.history.PeekBack
	}
	target, ok := peek()
	s.mu.Unlock()
	if !ok {
		return View{}, domainerrors.New(domainerrors.CodeNotFound, "no history entry")
	}

	view, err := s.load(ctx, target)
	if err != nil {
		return View{}, err
	}

	s.mu.Lock()
	if err := s.tokens.check(ClassNavigate, token); err != nil {
		s.mu.Unlock()
		return View{}, err
	}
	if back {
		_, err = s.history.Back(s.active)
	} else {
		_, err = s.history.Forward(s.active)
	}
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, history.ErrEmpty) {
			return View{}, domainerrors.Wrap(err, domainerrors.CodeConflict, "history changed during navigation")
		}
		return View{}, err
	}
	s.apply(view)
	editor := s.editor
	s.mu.Unlock()

	reveal(editor, view)
	return view, nil
}

// load fetches loc's content and resolves the target line. It does not
// touch session state.
func (s *Session) load(ctx context.Context, loc navigation.Location) (View, error) {
	if loc.Path == "" {
		return View{}, domainerrors.New(domainerrors.CodeValidationError, "location path is required")
	}
	text, err := s.ws.Fetcher.Fetch(ctx, loc.Path)
	if err != nil {
		slog.Warn("navigation fetch failed", "path", loc.Path, "error", err)
		var de *domainerrors.DomainError
		if !errors.As(err, &de) {
			err = domainerrors.Wrap(err, domainerrors.CodeUnavailable, "fetch file")
		}
		return View{}, domainerrors.AddContext(err, domainerrors.CtxPath, loc.Path)
	}

	view := View{
		Location: loc,
		Language: scanner.DetectFamily(loc.Path).LanguageHint(),
		Text:     text,
	}
	if line, ok := navigation.ResolveLine(loc, text); ok {
		view.Location.Line = line
		view.Precise = true
	}
	return view, nil
}

// apply must be called with s.mu held.
func (s *Session) apply(view View) {
	s.active = view.Location
	s.text = view.Text
}

func reveal(editor ports.Editor, view View) {
	if editor == nil {
		return
	}
	editor.SetLanguageHint(view.Language)
	line := view.Location.Line
	if line < 1 {
		line = 1
	}
	editor.RevealPosition(line)
}

// CanGoBack and CanGoForward report whether the stacks hold entries.
func (s *Session) CanGoBack() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanGoBack()
}

func (s *Session) CanGoForward() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.history.CanGoForward()
}

// Snapshot returns the persistable part of the session.
func (s *Session) Snapshot() ports.HistoryState {
	s.mu.Lock()
	defer s.mu.Unlock()
	back, forward := s.history.Stacks()
	return ports.HistoryState{Active: s.active, Back: back, Forward: forward}
}

// Restore replaces the history stacks from a persisted state. The active
// file is not reloaded; the next navigation fetches it.
func (s *Session) Restore(state ports.HistoryState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = history.Restore(s.history.Capacity(), state.Back, state.Forward)
	if state.Active.Path != "" {
		s.active = state.Active
		s.text = ""
	}
}

// currentText returns the active file's text: the editor's buffer when one
// is attached, else the text loaded by the last navigation, else a fresh
// fetch.
func (s *Session) currentText(ctx context.Context) (string, string, error) {
	s.mu.Lock()
	editor, path, text := s.editor, s.active.Path, s.text
	s.mu.Unlock()

	if path == "" {
		return "", "", domainerrors.New(domainerrors.CodeValidationError, "no active file")
	}
	if editor != nil {
		return path, editor.GetCurrentText(), nil
	}
	if text != "" {
		return path, text, nil
	}
	fetched, err := s.ws.Fetcher.Fetch(ctx, path)
	if err != nil {
		return "", "", domainerrors.AddContext(err, domainerrors.CtxPath, path)
	}
	return path, fetched, nil
}
