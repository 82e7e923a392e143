package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	domainerrors "xplore/internal/core/errors"
	"xplore/internal/core/session"
	"xplore/internal/engine/navigation"
	"xplore/internal/engine/references"
	"xplore/internal/engine/scanner"
	"xplore/internal/engine/tags"
	"xplore/internal/engine/workspace"
	"xplore/internal/shared/util"
)

const (
	maxBodyBytes       = 1 << 20
	defaultSymbolLimit = 50
	maxSymbolLimit     = 1000
)

type route struct {
	method  string
	path    string
	id      string
	summary string
	params  []param
	body    *openapi3.Schema
	result  *openapi3.Schema
	handle  func(s *Server, w http.ResponseWriter, r *http.Request, sess *session.Session)
}

var (
	symbolParam = param{name: "symbol", desc: "Symbol to look up.", required: true}
	pathParam   = param{name: "path", desc: "Workspace path of the file the request is made from."}
	lineParam   = param{name: "line", desc: "1-based line within path.", integer: true}
	scopeParam  = param{name: "scope", desc: "Search scope.", enum: []any{"file", "workspace"}}
	textParam   = param{name: "text", desc: "Source line used to infer the type; defaults to the active line."}
	fuzzyParam  = param{name: "q", desc: "Fuzzy query; empty lists everything."}
	limitParam  = param{name: "limit", desc: "Maximum number of symbols.", integer: true}
	filterParam = param{name: "filter", desc: "Case-insensitive substring filter."}
	grepParam   = param{name: "q", desc: "Literal query.", required: true}
	treeParam   = param{name: "q", desc: "Case-insensitive name filter."}
)

var routes = []route{
	{
		method:  http.MethodGet,
		path:    "/api/definition",
		id:      "definition",
		summary: "Jump to the best definition of a symbol",
		params:  []param{symbolParam, pathParam, lineParam},
		result:  outcomeSchema,
		handle:  (*Server).handleDefinition,
	},
	{
		method:  http.MethodGet,
		path:    "/api/declaration",
		id:      "declaration",
		summary: "Jump to the best declaration of a symbol, headers first",
		params:  []param{symbolParam, pathParam, lineParam},
		result:  outcomeSchema,
		handle:  (*Server).handleDeclaration,
	},
	{
		method:  http.MethodGet,
		path:    "/api/typedef",
		id:      "typeDefinition",
		summary: "Jump to the type of a symbol",
		params:  []param{symbolParam, pathParam, lineParam, textParam},
		result:  outcomeSchema,
		handle:  (*Server).handleTypeDefinition,
	},
	{
		method:  http.MethodGet,
		path:    "/api/implementations",
		id:      "implementations",
		summary: "List or jump to function-like tags of a symbol",
		params:  []param{symbolParam, pathParam, lineParam},
		result:  outcomeSchema,
		handle:  (*Server).handleImplementations,
	},
	{
		method:  http.MethodGet,
		path:    "/api/source",
		id:      "sourceDefinition",
		summary: "List or jump to every tag of a symbol, implementation files first",
		params:  []param{symbolParam, pathParam, lineParam},
		result:  outcomeSchema,
		handle:  (*Server).handleSourceDefinition,
	},
	{
		method:  http.MethodGet,
		path:    "/api/references",
		id:      "references",
		summary: "Find whole-word references in the active file or the workspace",
		params:  []param{symbolParam, pathParam, lineParam, scopeParam},
		result:  reportSchema,
		handle:  (*Server).handleReferences,
	},
	{
		method:  http.MethodGet,
		path:    "/api/includes",
		id:      "includes",
		summary: "List include/import references of a file and where they resolve",
		params:  []param{pathParam},
		result:  includesSchema,
		handle:  (*Server).handleIncludes,
	},
	{
		method:  http.MethodPost,
		path:    "/api/includes/follow",
		id:      "followInclude",
		summary: "Open the file an include reference resolves to",
		body:    followSchema,
		result:  followResultSchema,
		handle:  (*Server).handleFollowInclude,
	},
	{
		method:  http.MethodGet,
		path:    "/api/symbols",
		id:      "symbols",
		summary: "Fuzzy filter symbols of the active file or the workspace",
		params:  []param{fuzzyParam, scopeParam, pathParam, limitParam},
		result:  arrayOf(tagSchema),
		handle:  (*Server).handleSymbols,
	},
	{
		method:  http.MethodGet,
		path:    "/api/outline",
		id:      "outline",
		summary: "Group the symbols of a file for the outline view",
		params:  []param{pathParam, filterParam},
		result:  outlineSchema,
		handle:  (*Server).handleOutline,
	},
	{
		method:  http.MethodGet,
		path:    "/api/grep",
		id:      "grep",
		summary: "Literal text search over searchable workspace files",
		params:  []param{grepParam},
		result:  grepSchema,
		handle:  (*Server).handleGrep,
	},
	{
		method:  http.MethodGet,
		path:    "/api/tree",
		id:      "tree",
		summary: "File tree, optionally filtered by name keeping the hierarchy",
		params:  []param{treeParam},
		result:  arrayOf(nodeSchema),
		handle:  (*Server).handleTree,
	},
	{
		method:  http.MethodPost,
		path:    "/api/navigate",
		id:      "navigate",
		summary: "Open a location, recording history by default",
		body:    navigateSchema,
		result:  viewSchema,
		handle:  (*Server).handleNavigate,
	},
	{
		method:  http.MethodPost,
		path:    "/api/open",
		id:      "open",
		summary: "Open a candidate picked from an ambiguous result",
		body:    tagSchema,
		result:  viewSchema,
		handle:  (*Server).handleOpen,
	},
	{
		method:  http.MethodGet,
		path:    "/api/history",
		id:      "history",
		summary: "Current back and forward stacks",
		result:  historySchema,
		handle:  (*Server).handleHistory,
	},
	{
		method:  http.MethodPost,
		path:    "/api/history/back",
		id:      "back",
		summary: "Go back to the previous location",
		result:  viewSchema,
		handle:  (*Server).handleBack,
	},
	{
		method:  http.MethodPost,
		path:    "/api/history/forward",
		id:      "forward",
		summary: "Re-open a location left by going back",
		result:  viewSchema,
		handle:  (*Server).handleForward,
	},
	{
		method:  http.MethodPost,
		path:    "/api/tags/reload",
		id:      "reloadTags",
		summary: "Reload the tag feed and the file tree",
		result:  reloadSchema,
		handle:  (*Server).handleReload,
	},
}

func intParam(q url.Values, name string) (int, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, domainerrors.AddContext(badRequest(name+" must be a non-negative integer"), name, raw)
	}
	return n, nil
}

func scopeOf(q url.Values) (navigation.Scope, error) {
	switch scope := navigation.Scope(q.Get("scope")); scope {
	case "":
		return navigation.ScopeWorkspace, nil
	case navigation.ScopeFile, navigation.ScopeWorkspace:
		return scope, nil
	default:
		return "", badRequest("scope must be file or workspace")
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return domainerrors.Wrap(err, domainerrors.CodeValidationError, "invalid JSON body")
	}
	return nil
}

// focus makes path (at line) the session's active location when the client
// reports a different one. It returns whether the session moved. Focusing
// is not recorded in history; only the navigation that follows is.
func (s *Server) focus(ctx context.Context, sess *session.Session, path string, line int) (bool, error) {
	path = util.NormalizeWorkspacePath(path)
	if path == "" {
		return false, nil
	}
	active := sess.Active()
	if active.Path == path && (line == 0 || line == active.Line) {
		return false, nil
	}
	_, err := sess.NavigateTo(ctx, navigation.Location{Path: path, Line: line}, session.NavigateOptions{})
	return err == nil, err
}

func (s *Server) focusFromQuery(ctx context.Context, sess *session.Session, q url.Values) (bool, error) {
	line, err := intParam(q, "line")
	if err != nil {
		return false, err
	}
	return s.focus(ctx, sess, q.Get("path"), line)
}

func (s *Server) jump(w http.ResponseWriter, r *http.Request, sess *session.Session, op navigation.Operation) {
	ctx := r.Context()
	q := r.URL.Query()
	symbol := strings.TrimSpace(q.Get("symbol"))
	if symbol == "" {
		writeError(w, badRequest("symbol is required"))
		return
	}
	moved, err := s.focusFromQuery(ctx, sess, q)
	if err != nil {
		writeError(w, err)
		return
	}

	var out session.Outcome
	switch op {
	case navigation.OpDefinition:
		out, err = sess.GoToDefinition(ctx, symbol)
	case navigation.OpDeclaration:
		out, err = sess.GoToDeclaration(ctx, symbol)
	case navigation.OpTypeDefinition:
		out, err = sess.GoToTypeDefinition(ctx, symbol, q.Get("text"))
	case navigation.OpImplementations:
		out, err = sess.GoToImplementation(ctx, symbol)
	case navigation.OpSourceDefinition:
		out, err = sess.GoToSourceDefinition(ctx, symbol)
	}
	if moved || out.View != nil {
		s.persist(ctx, sess)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDefinition(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.jump(w, r, sess, navigation.OpDefinition)
}

func (s *Server) handleDeclaration(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.jump(w, r, sess, navigation.OpDeclaration)
}

func (s *Server) handleTypeDefinition(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.jump(w, r, sess, navigation.OpTypeDefinition)
}

func (s *Server) handleImplementations(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.jump(w, r, sess, navigation.OpImplementations)
}

func (s *Server) handleSourceDefinition(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.jump(w, r, sess, navigation.OpSourceDefinition)
}

func (s *Server) handleReferences(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	ctx := r.Context()
	q := r.URL.Query()
	scope, err := scopeOf(q)
	if err != nil {
		writeError(w, err)
		return
	}
	if moved, err := s.focusFromQuery(ctx, sess, q); err != nil {
		writeError(w, err)
		return
	} else if moved {
		s.persist(ctx, sess)
	}
	report, err := sess.FindReferences(ctx, strings.TrimSpace(q.Get("symbol")), scope)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type includesResponse struct {
	Path     string                     `json:"path"`
	Includes []navigation.IncludeTarget `json:"includes"`
}

func (s *Server) handleIncludes(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	ctx := r.Context()
	if moved, err := s.focus(ctx, sess, r.URL.Query().Get("path"), 0); err != nil {
		writeError(w, err)
		return
	} else if moved {
		s.persist(ctx, sess)
	}
	includes, err := sess.Includes(ctx)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, includesResponse{Path: sess.Active().Path, Includes: includes})
}

type followRequest struct {
	Path string            `json:"path"`
	Ref  scanner.Reference `json:"ref"`
}

type followResponse struct {
	View     session.View `json:"view"`
	Resolved bool         `json:"resolved"`
}

func (s *Server) handleFollowInclude(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	ctx := r.Context()
	var req followRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(req.Ref.Name) == "" {
		writeError(w, badRequest("ref.name is required"))
		return
	}
	if _, err := s.focus(ctx, sess, req.Path, 0); err != nil {
		writeError(w, err)
		return
	}
	view, resolved, err := sess.FollowInclude(ctx, req.Ref)
	s.persist(ctx, sess)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, followResponse{View: view, Resolved: resolved})
}

func (s *Server) handleSymbols(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	q := r.URL.Query()
	scope, err := scopeOf(q)
	if err != nil {
		writeError(w, err)
		return
	}
	limit, err := intParam(q, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	if limit == 0 {
		limit = defaultSymbolLimit
	}
	limit = min(limit, maxSymbolLimit)

	path := util.NormalizeWorkspacePath(q.Get("path"))
	if path == "" {
		path = sess.Active().Path
	}
	if scope == navigation.ScopeFile && path == "" {
		writeError(w, badRequest("path is required for file scope"))
		return
	}
	list := sess.Workspace().Engine.Symbols(q.Get("q"), path, scope, limit)
	if list == nil {
		list = []tags.Tag{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleOutline(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	q := r.URL.Query()
	outline := sess.Outline(util.NormalizeWorkspacePath(q.Get("path")), q.Get("filter"))
	if outline.Path == "" {
		writeError(w, badRequest("path is required when no file is open"))
		return
	}
	writeJSON(w, http.StatusOK, outline)
}

type grepResponse struct {
	Query   string             `json:"query"`
	Matches []references.Match `json:"matches"`
}

func (s *Server) handleGrep(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	query := r.URL.Query().Get("q")
	matches, err := sess.Grep(r.Context(), query, nil)
	if err != nil {
		writeError(w, err)
		return
	}
	if matches == nil {
		matches = []references.Match{}
	}
	writeJSON(w, http.StatusOK, grepResponse{Query: query, Matches: matches})
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	nodes := sess.Workspace().Tree().Search(r.URL.Query().Get("q"))
	if nodes == nil {
		nodes = []workspace.Node{}
	}
	writeJSON(w, http.StatusOK, nodes)
}

type navigateRequest struct {
	Path    string `json:"path"`
	Line    int    `json:"line"`
	Pattern string `json:"pattern"`
	Record  *bool  `json:"record"`
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	ctx := r.Context()
	var req navigateRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, err)
		return
	}
	loc := navigation.Location{
		Path:    util.NormalizeWorkspacePath(req.Path),
		Line:    req.Line,
		Pattern: req.Pattern,
	}
	if loc.Path == "" {
		writeError(w, badRequest("path is required"))
		return
	}
	if loc.Line < 0 {
		writeError(w, badRequest("line must be a non-negative integer"))
		return
	}
	record := req.Record == nil || *req.Record
	view, err := sess.NavigateTo(ctx, loc, session.NavigateOptions{Record: record})
	if err != nil {
		writeError(w, err)
		return
	}
	s.persist(ctx, sess)
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleOpen(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	ctx := r.Context()
	var t tags.Tag
	if err := decodeBody(w, r, &t); err != nil {
		writeError(w, err)
		return
	}
	t.Path = util.NormalizeWorkspacePath(t.Path)
	if t.Path == "" {
		writeError(w, badRequest("path is required"))
		return
	}
	view, err := sess.Open(ctx, t)
	if err != nil {
		writeError(w, err)
		return
	}
	s.persist(ctx, sess)
	writeJSON(w, http.StatusOK, view)
}

type historyResponse struct {
	Active       navigation.Location   `json:"active"`
	Back         []navigation.Location `json:"back"`
	Forward      []navigation.Location `json:"forward"`
	CanGoBack    bool                  `json:"canGoBack"`
	CanGoForward bool                  `json:"canGoForward"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	state := sess.Snapshot()
	writeJSON(w, http.StatusOK, historyResponse{
		Active:       state.Active,
		Back:         state.Back,
		Forward:      state.Forward,
		CanGoBack:    len(state.Back) > 0,
		CanGoForward: len(state.Forward) > 0,
	})
}

func (s *Server) handleBack(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.replay(w, r, sess, sess.GoBack)
}

func (s *Server) handleForward(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	s.replay(w, r, sess, sess.GoForward)
}

func (s *Server) replay(w http.ResponseWriter, r *http.Request, sess *session.Session, step func(context.Context) (session.View, error)) {
	view, err := step(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	s.persist(r.Context(), sess)
	writeJSON(w, http.StatusOK, view)
}

type reloadResponse struct {
	Lines     int `json:"lines"`
	Loaded    int `json:"loaded"`
	Dropped   int `json:"dropped"`
	Files     int `json:"files"`
	TreeFiles int `json:"treeFiles"`
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if s.reload == nil {
		writeError(w, domainerrors.New(domainerrors.CodeNotSupported, "reload is not configured"))
		return
	}
	stats, err := s.reload(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reloadResponse{
		Lines:     stats.Lines,
		Loaded:    stats.Loaded,
		Dropped:   stats.Dropped,
		Files:     stats.Files,
		TreeFiles: sess.Workspace().Tree().Len(),
	})
}
