package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"xplore/internal/core/config"
	"xplore/internal/core/ports"
	"xplore/internal/core/session"
	"xplore/internal/engine/tags"
)

var workspaceFiles = map[string]string{
	"main.c": "#include \"a.h\"\nint main(void) { return foo(); }\n",
	"a.c":    "#include \"a.h\"\n\n\n\n\n\n\n\n\nint foo(void)\n{\n  return 1;\n}\n",
	"a.h":    "#pragma once\n\nint foo(void);\n",
	"b.c":    "\n\n\n\n\n\nint foo(void) { return 2; }\n",
}

const tagFeed = `{"name":"foo","path":"a.c","line":10,"kind":"function"}
{"name":"foo","path":"a.h","line":3,"kind":"prototype"}
{"name":"main","path":"main.c","line":2,"kind":"function"}
not json
`

func writeWorkspace(t *testing.T, feed string) (dir, tagsFile string) {
	t.Helper()
	root := t.TempDir()
	dir = filepath.Join(root, "src")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for name, body := range workspaceFiles {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	tagsFile = filepath.Join(root, "tags.ndjson")
	if err := os.WriteFile(tagsFile, []byte(feed), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir, tagsFile
}

func testConfig(t *testing.T, dir, tagsFile string, persist bool) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Workspace.Dir = dir
	cfg.Tags.File = tagsFile
	cfg.History.Persist = persist
	config.Resolve(cfg, filepath.Dir(tagsFile))
	if errs := config.Validate(cfg); len(errs) > 0 {
		t.Fatalf("invalid test config: %v", errs)
	}
	return cfg
}

func newTestRuntime(t *testing.T, cfg *config.Config) *runtime {
	t.Helper()
	rt, err := newRuntime(context.Background(), cfg)
	if err != nil {
		t.Fatalf("newRuntime: %v", err)
	}
	return rt
}

// runQuery runs one command in a fresh runtime, the way separate CLI
// invocations would.
func runQuery(t *testing.T, cfg *config.Config, opts cliOptions, args ...string) (string, error) {
	t.Helper()
	rt := newTestRuntime(t, cfg)
	defer rt.Close()
	var out bytes.Buffer
	opts.args = args
	name, operands := opts.command()
	q := &query{rt: rt, opts: opts, out: &out}
	err := q.run(context.Background(), name, operands)
	return out.String(), err
}

func jsonOpts() cliOptions {
	return cliOptions{scope: "workspace", limit: 50, jsonOut: true}
}

func TestParseOptions(t *testing.T) {
	opts, err := parseOptions([]string{"-path", "main.c", "-line", "2", "-json", "definition", "foo"}, io.Discard)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	name, operands := opts.command()
	if name != "def" || len(operands) != 1 || operands[0] != "foo" {
		t.Fatalf("unexpected command %q %v", name, operands)
	}
	if opts.path != "main.c" || opts.line != 2 || !opts.jsonOut {
		t.Fatalf("unexpected options: %+v", opts)
	}

	cases := map[string][]string{
		"bad scope":       {"-scope", "module", "refs", "foo"},
		"negative line":   {"-path", "a.c", "-line", "-1", "def", "foo"},
		"line needs path": {"-line", "3", "def", "foo"},
		"no command":      {"-json"},
		"unknown flag":    {"-nope", "def", "foo"},
	}
	for name, args := range cases {
		var stderr bytes.Buffer
		if _, err := parseOptions(args, &stderr); err == nil {
			t.Errorf("%s: expected error", name)
		}
		if stderr.Len() == 0 {
			t.Errorf("%s: expected a message on stderr", name)
		}
	}

	opts, err = parseOptions([]string{"-version"}, io.Discard)
	if err != nil || !opts.version {
		t.Fatalf("expected -version to parse without a command, got %+v %v", opts, err)
	}
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	cwd := t.TempDir()
	cfg, path, err := loadConfig(defaultConfigPath, cwd)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "" {
		t.Fatalf("expected no config path, got %q", path)
	}
	if cfg.Paths.StateDir != filepath.Join(cwd, ".xplore") {
		t.Fatalf("state dir not resolved against cwd: %q", cfg.Paths.StateDir)
	}

	if _, _, err := loadConfig("missing.toml", cwd); err == nil {
		t.Fatal("expected an explicit missing config to fail")
	}
}

func TestLoadConfigResolvesRelativePaths(t *testing.T) {
	dir, tagsFile := writeWorkspace(t, tagFeed)
	root := filepath.Dir(tagsFile)
	body := "version = 1\n[workspace]\ndir = \"src\"\n[tags]\nfile = \"tags.ndjson\"\n"
	if err := os.WriteFile(filepath.Join(root, "xplore.toml"), []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, path, err := loadConfig(defaultConfigPath, root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != filepath.Join(root, "xplore.toml") {
		t.Fatalf("unexpected config path %q", path)
	}
	if cfg.Workspace.Dir != dir || cfg.Tags.File != tagsFile {
		t.Fatalf("paths not resolved: dir=%q tags=%q", cfg.Workspace.Dir, cfg.Tags.File)
	}
}

func TestApplyOverridesRejectsMissingWorkspace(t *testing.T) {
	cwd := t.TempDir()
	cfg := config.Default()
	config.Resolve(cfg, cwd)
	err := applyOverrides(cliOptions{workspace: "does-not-exist"}, cfg, cwd)
	if err == nil || !strings.Contains(err.Error(), "does not exist") {
		t.Fatalf("expected missing workspace error, got %v", err)
	}
}

func TestRuntimeRequiresContentSource(t *testing.T) {
	cfg := config.Default()
	config.Resolve(cfg, t.TempDir())
	if _, err := newRuntime(context.Background(), cfg); err == nil {
		t.Fatal("expected an error without workspace.dir or workspace.content_url")
	}
}

func TestRuntimeStartsWithoutTree(t *testing.T) {
	dir, tagsFile := writeWorkspace(t, tagFeed)
	cfg := testConfig(t, dir, tagsFile, false)
	cfg.Workspace.TreeFile = filepath.Join(filepath.Dir(tagsFile), "tree.json")

	rt := newTestRuntime(t, cfg)
	defer rt.Close()
	if rt.tags.Len() != 3 {
		t.Fatalf("expected 3 tags, got %d", rt.tags.Len())
	}
	if rt.ws.Tree().Len() != 0 {
		t.Fatalf("expected an empty tree, got %d files", rt.ws.Tree().Len())
	}

	tree := `[{"name":"a.c","path":"a.c","type":"file"},{"name":"a.h","path":"a.h","type":"file"}]`
	if err := os.WriteFile(cfg.Workspace.TreeFile, []byte(tree), 0o644); err != nil {
		t.Fatal(err)
	}
	rt.onChange(context.Background(), "", []string{cfg.Workspace.TreeFile})
	if !rt.ws.Tree().Has("a.c") || rt.ws.Tree().Len() != 2 {
		t.Fatalf("expected the tree file to load, got %d files", rt.ws.Tree().Len())
	}
}

func TestQueryDefinitionJSON(t *testing.T) {
	dir, tagsFile := writeWorkspace(t, tagFeed)
	cfg := testConfig(t, dir, tagsFile, false)

	opts := jsonOpts()
	opts.path = "main.c"
	opts.line = 2
	out, err := runQuery(t, cfg, opts, "def", "foo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var outcome session.Outcome
	if err := json.Unmarshal([]byte(out), &outcome); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if outcome.View == nil || outcome.View.Location.Path != "a.c" || outcome.View.Location.Line != 10 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}

	out, err = runQuery(t, cfg, opts, "decl", "nothing_here")
	if err != errNoResult {
		t.Fatalf("expected errNoResult, got %v", err)
	}
	if !strings.Contains(out, `"status": "fallback"`) {
		t.Fatalf("expected a fallback result, got %s", out)
	}
}

func TestQueryTextOutput(t *testing.T) {
	dir, tagsFile := writeWorkspace(t, tagFeed)
	cfg := testConfig(t, dir, tagsFile, false)

	opts := cliOptions{scope: "workspace", limit: 50, path: "main.c"}
	out, err := runQuery(t, cfg, opts, "includes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "a.h") || !strings.Contains(out, "1.") {
		t.Fatalf("unexpected includes output:\n%s", out)
	}

	out, err = runQuery(t, cfg, opts, "follow", "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "a.h") {
		t.Fatalf("unexpected follow output:\n%s", out)
	}

	out, err = runQuery(t, cfg, opts, "refs", "foo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"Definitions", "Declarations", "main.c:2"} {
		if !strings.Contains(out, want) {
			t.Fatalf("references output missing %q:\n%s", want, out)
		}
	}

	out, err = runQuery(t, cfg, cliOptions{scope: "workspace", limit: 50}, "tree")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for name := range workspaceFiles {
		if !strings.Contains(out, name) {
			t.Fatalf("tree output missing %s:\n%s", name, out)
		}
	}

	if _, err := runQuery(t, cfg, opts, "follow", "9"); err == nil {
		t.Fatal("expected an out of range include index to fail")
	}
	if _, err := runQuery(t, cfg, opts, "frobnicate"); err == nil {
		t.Fatal("expected an unknown command to fail")
	}
}

func TestQueryAmbiguousUsesPicker(t *testing.T) {
	feed := tagFeed + `{"name":"foo","path":"b.c","line":7,"kind":"function"}` + "\n"
	dir, tagsFile := writeWorkspace(t, feed)
	cfg := testConfig(t, dir, tagsFile, false)
	rt := newTestRuntime(t, cfg)
	defer rt.Close()

	var offered []tags.Tag
	var out bytes.Buffer
	q := &query{rt: rt, opts: jsonOpts(), out: &out, pick: func(title string, candidates []tags.Tag) (tags.Tag, bool, error) {
		offered = candidates
		for _, c := range candidates {
			if c.Path == "b.c" {
				return c, true, nil
			}
		}
		return tags.Tag{}, false, nil
	}}
	if err := q.run(context.Background(), "impl", []string{"foo"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(offered) != 2 {
		t.Fatalf("expected 2 candidates offered, got %d", len(offered))
	}
	var outcome session.Outcome
	if err := json.Unmarshal(out.Bytes(), &outcome); err != nil {
		t.Fatal(err)
	}
	if outcome.View == nil || outcome.View.Location.Path != "b.c" || outcome.View.Location.Line != 7 {
		t.Fatalf("expected the picked candidate to open, got %+v", outcome)
	}
}

func TestHistoryPersistsAcrossInvocations(t *testing.T) {
	dir, tagsFile := writeWorkspace(t, tagFeed)
	cfg := testConfig(t, dir, tagsFile, true)

	for _, target := range []string{"a.h:3", "a.c:10", "main.c:2"} {
		if _, err := runQuery(t, cfg, jsonOpts(), "open", target); err != nil {
			t.Fatalf("open %s: %v", target, err)
		}
	}

	steps := []struct {
		cmd  string
		path string
		line int
	}{
		{cmd: "back", path: "a.c", line: 10},
		{cmd: "forward", path: "main.c", line: 2},
		{cmd: "back", path: "a.c", line: 10},
	}
	for _, step := range steps {
		out, err := runQuery(t, cfg, jsonOpts(), step.cmd)
		if err != nil {
			t.Fatalf("%s: %v", step.cmd, err)
		}
		var view session.View
		if err := json.Unmarshal([]byte(out), &view); err != nil {
			t.Fatal(err)
		}
		if view.Location.Path != step.path || view.Location.Line != step.line {
			t.Fatalf("%s: expected %s:%d, got %+v", step.cmd, step.path, step.line, view.Location)
		}
	}

	out, err := runQuery(t, cfg, jsonOpts(), "history")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	var state ports.HistoryState
	if err := json.Unmarshal([]byte(out), &state); err != nil {
		t.Fatal(err)
	}
	if state.Active.Path != "a.c" || state.Active.Line != 10 || len(state.Back) != 1 || len(state.Forward) != 1 {
		t.Fatalf("unexpected history %+v", state)
	}
	if state.Back[0].Path != "a.h" || state.Back[0].Line != 3 {
		t.Fatalf("expected a.h:3 on the back stack, got %+v", state.Back)
	}
	if state.Forward[0].Path != "main.c" || state.Forward[0].Line != 2 {
		t.Fatalf("expected main.c:2 on the forward stack, got %+v", state.Forward)
	}

	if _, err := os.Stat(filepath.Join(cfg.Paths.StateDir, cliSessionFile)); err != nil {
		t.Fatalf("expected the cli session id to be saved: %v", err)
	}
}

func TestParseLocation(t *testing.T) {
	loc, err := parseLocation("./src/a.c:12")
	if err != nil || loc.Path != "src/a.c" || loc.Line != 12 {
		t.Fatalf("unexpected location %+v %v", loc, err)
	}
	loc, err = parseLocation("a.h")
	if err != nil || loc.Path != "a.h" || loc.Line != 0 {
		t.Fatalf("unexpected location %+v %v", loc, err)
	}
	if _, err := parseLocation("a.c:0"); err == nil {
		t.Fatal("expected line 0 to be rejected")
	}
}

func TestReloadAndWatchDispatch(t *testing.T) {
	dir, tagsFile := writeWorkspace(t, tagFeed)
	cfg := testConfig(t, dir, tagsFile, false)
	rt := newTestRuntime(t, cfg)
	defer rt.Close()

	if rt.tags.Len() != 3 {
		t.Fatalf("expected 3 tags, got %d", rt.tags.Len())
	}

	added := filepath.Join(dir, "c.c")
	if err := os.WriteFile(added, []byte("int c;\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	rt.onChange(context.Background(), "", []string{added})
	if !rt.ws.Tree().Has("c.c") {
		t.Fatal("expected the tree to pick up c.c")
	}

	feed := tagFeed + `{"name":"c","path":"c.c","line":1,"kind":"variable"}` + "\n"
	if err := os.WriteFile(tagsFile, []byte(feed), 0o644); err != nil {
		t.Fatal(err)
	}
	rt.onChange(context.Background(), "", []string{tagsFile})
	if rt.tags.Len() != 4 {
		t.Fatalf("expected 4 tags after reload, got %d", rt.tags.Len())
	}

	if err := os.Remove(added); err != nil {
		t.Fatal(err)
	}
	rt.onChange(context.Background(), "", []string{added})
	if rt.ws.Tree().Has("c.c") {
		t.Fatal("expected c.c to leave the tree")
	}
}
