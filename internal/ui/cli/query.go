package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	domainerrors "xplore/internal/core/errors"
	"xplore/internal/core/session"
	"xplore/internal/engine/navigation"
	"xplore/internal/engine/tags"
	"xplore/internal/shared/util"
)

const cliSessionFile = "cli-session"

// errNoResult marks a command that ran but found nothing to show. The
// message has already been printed.
var errNoResult = errors.New("no result")

// pickFunc chooses one candidate of an ambiguous result. ok is false when
// the user cancelled.
type pickFunc func(title string, candidates []tags.Tag) (t tags.Tag, ok bool, err error)

// query runs one command against a session. With a history store the
// session id is kept in the state directory so back/forward work across
// invocations.
type query struct {
	rt   *runtime
	opts cliOptions
	out  io.Writer
	pick pickFunc
}

func (q *query) run(ctx context.Context, name string, operands []string) error {
	sess := q.session(ctx)
	if q.pick == nil && q.opts.ui {
		q.pick = pickerFor(q.rt.cfg.Workspace.Dir)
	}

	if err := q.focus(ctx, sess); err != nil {
		return err
	}
	defer func() {
		if err := q.rt.manager.Persist(ctx, sess); err != nil {
			slog.Warn("failed to persist session history", "error", err)
		}
	}()

	switch name {
	case "def", "decl", "typedef", "impl", "source":
		symbol, err := operand(operands, "SYMBOL")
		if err != nil {
			return err
		}
		return q.jump(ctx, sess, name, symbol)
	case "refs":
		symbol, err := operand(operands, "SYMBOL")
		if err != nil {
			return err
		}
		report, err := sess.FindReferences(ctx, symbol, navigation.Scope(q.opts.scope))
		if err != nil {
			return err
		}
		return q.print(report, func(w io.Writer) { renderReport(w, report) })
	case "includes":
		includes, err := sess.Includes(ctx)
		if err != nil {
			return err
		}
		return q.print(includes, func(w io.Writer) { renderIncludes(w, sess.Active().Path, includes) })
	case "follow":
		return q.follow(ctx, sess, operands)
	case "symbols":
		found := sess.Symbols(strings.Join(operands, " "), navigation.Scope(q.opts.scope), q.opts.limit)
		return q.print(found, func(w io.Writer) { renderTags(w, found) })
	case "outline":
		path := ""
		if len(operands) > 0 {
			path = util.NormalizeWorkspacePath(operands[0])
		}
		outline := sess.Outline(path, "")
		if outline.Path == "" {
			return domainerrors.New(domainerrors.CodeValidationError, "outline needs a PATH or -path")
		}
		return q.print(outline, func(w io.Writer) { renderOutline(w, outline) })
	case "grep":
		needle := strings.Join(operands, " ")
		matches, err := sess.Grep(ctx, needle, nil)
		if err != nil {
			return err
		}
		return q.print(matches, func(w io.Writer) { renderMatches(w, matches) })
	case "tree":
		nodes := q.rt.ws.Tree().Search(strings.Join(operands, " "))
		return q.print(nodes, func(w io.Writer) { renderTree(w, nodes, 0) })
	case "open":
		target, err := operand(operands, "PATH[:LINE]")
		if err != nil {
			return err
		}
		loc, err := parseLocation(target)
		if err != nil {
			return err
		}
		view, err := sess.NavigateTo(ctx, loc, session.NavigateOptions{Record: true})
		if err != nil {
			return err
		}
		return q.print(view, func(w io.Writer) { renderView(w, view) })
	case "back", "forward":
		step := sess.GoBack
		if name == "forward" {
			step = sess.GoForward
		}
		view, err := step(ctx)
		if err != nil {
			return err
		}
		return q.print(view, func(w io.Writer) { renderView(w, view) })
	case "history":
		state := sess.Snapshot()
		return q.print(state, func(w io.Writer) { renderHistory(w, state) })
	default:
		return domainerrors.Newf(domainerrors.CodeValidationError, "unknown command %q", name)
	}
}

// session returns the CLI's session, restoring it from the state directory
// when history is persisted.
func (q *query) session(ctx context.Context) *session.Session {
	if q.rt.history == nil {
		sess, _ := q.rt.manager.Get(ctx, "")
		return sess
	}
	idPath := filepath.Join(q.rt.cfg.Paths.StateDir, cliSessionFile)
	id := ""
	if data, err := os.ReadFile(idPath); err == nil {
		id = strings.TrimSpace(string(data))
	}
	sess, created := q.rt.manager.Get(ctx, id)
	if created && sess.ID() != id {
		if err := os.WriteFile(idPath, []byte(sess.ID()+"\n"), 0o600); err != nil {
			slog.Warn("failed to save cli session id", "path", idPath, "error", err)
		}
	}
	return sess
}

// focus moves the session to -path/-line when they name a different place.
func (q *query) focus(ctx context.Context, sess *session.Session) error {
	path := util.NormalizeWorkspacePath(q.opts.path)
	if path == "" {
		return nil
	}
	active := sess.Active()
	if active.Path == path && (q.opts.line == 0 || q.opts.line == active.Line) {
		return nil
	}
	_, err := sess.NavigateTo(ctx, navigation.Location{Path: path, Line: q.opts.line}, session.NavigateOptions{Record: true})
	return err
}

func (q *query) jump(ctx context.Context, sess *session.Session, name, symbol string) error {
	var (
		out session.Outcome
		err error
	)
	switch name {
	case "def":
		out, err = sess.GoToDefinition(ctx, symbol)
	case "decl":
		out, err = sess.GoToDeclaration(ctx, symbol)
	case "typedef":
		out, err = sess.GoToTypeDefinition(ctx, symbol, "")
	case "impl":
		out, err = sess.GoToImplementation(ctx, symbol)
	case "source":
		out, err = sess.GoToSourceDefinition(ctx, symbol)
	}
	if err != nil {
		return err
	}

	if out.Result.Status == navigation.StatusAmbiguous && q.pick != nil {
		picked, ok, err := q.pick(fmt.Sprintf("%s %s", out.Result.Operation, symbol), out.Result.Candidates)
		if err != nil {
			return err
		}
		if ok {
			view, err := sess.Open(ctx, picked)
			if err != nil {
				return err
			}
			out.View = &view
		}
	}

	if err := q.print(out, func(w io.Writer) { renderOutcome(w, out) }); err != nil {
		return err
	}
	switch out.Result.Status {
	case navigation.StatusNotFound, navigation.StatusFallback, navigation.StatusInvalid:
		return errNoResult
	}
	return nil
}

func (q *query) follow(ctx context.Context, sess *session.Session, operands []string) error {
	raw, err := operand(operands, "N")
	if err != nil {
		return err
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return domainerrors.Newf(domainerrors.CodeValidationError, "include index must be a positive number, got %q", raw)
	}
	includes, err := sess.Includes(ctx)
	if err != nil {
		return err
	}
	if n > len(includes) {
		return domainerrors.AddContext(
			domainerrors.Newf(domainerrors.CodeNotFound, "file has %d includes", len(includes)),
			domainerrors.CtxPath, sess.Active().Path,
		)
	}
	view, resolved, err := sess.FollowInclude(ctx, includes[n-1].Ref)
	if err != nil {
		return err
	}
	if !resolved {
		slog.Warn("include did not resolve; showing the include line", "include", includes[n-1].Ref.Name)
	}
	return q.print(view, func(w io.Writer) { renderView(w, view) })
}

// print writes v as JSON with -json, otherwise runs render.
func (q *query) print(v any, render func(io.Writer)) error {
	if q.opts.jsonOut {
		enc := json.NewEncoder(q.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	render(q.out)
	return nil
}

func operand(operands []string, name string) (string, error) {
	if len(operands) == 0 || strings.TrimSpace(operands[0]) == "" {
		return "", domainerrors.Newf(domainerrors.CodeValidationError, "%s is required", name)
	}
	return strings.TrimSpace(operands[0]), nil
}

// parseLocation splits PATH[:LINE].
func parseLocation(raw string) (navigation.Location, error) {
	path, line := raw, 0
	if idx := strings.LastIndex(raw, ":"); idx > 0 {
		if n, err := strconv.Atoi(raw[idx+1:]); err == nil {
			if n < 1 {
				return navigation.Location{}, domainerrors.Newf(domainerrors.CodeValidationError, "line must be positive, got %d", n)
			}
			path, line = raw[:idx], n
		}
	}
	path = util.NormalizeWorkspacePath(path)
	if path == "" {
		return navigation.Location{}, domainerrors.New(domainerrors.CodeValidationError, "path is required")
	}
	return navigation.Location{Path: path, Line: line}, nil
}
