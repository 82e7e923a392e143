package cli

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"xplore/internal/core/session"
	"xplore/internal/engine/navigation"
	"xplore/internal/engine/tags"
)

var pickerCandidates = []tags.Tag{
	{Name: "foo", Path: "a.c", Line: 10, Kind: "function"},
	{Name: "foo", Path: "lib/b.c", Line: 7, Kind: "function", Scope: "lib"},
}

func TestPicker_ChooseAndCancel(t *testing.T) {
	m := newPicker("implementations foo", pickerCandidates, "/src")
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	m = updated.(picker)
	if len(m.list.Items()) != 2 {
		t.Fatalf("expected 2 items, got %d", len(m.list.Items()))
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = updated.(picker)
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	chosen := updated.(picker)
	if chosen.chosen == nil || chosen.chosen.Path != "lib/b.c" {
		t.Fatalf("expected lib/b.c to be chosen, got %+v", chosen.chosen)
	}
	if cmd == nil {
		t.Fatal("expected a quit command after choosing")
	}
	if chosen.View() != "" {
		t.Fatal("expected an empty view once a candidate is chosen")
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	cancelled := updated.(picker)
	if !cancelled.quitting || cancelled.chosen != nil {
		t.Fatalf("expected esc to cancel, got %+v", cancelled)
	}
}

func TestPicker_SourceTarget(t *testing.T) {
	m := newPicker("t", pickerCandidates, "/src")
	target, ok := selectedSourceTarget(m)
	if !ok {
		t.Fatal("expected a source target")
	}
	if !strings.HasSuffix(target.file, "a.c") || target.line != 10 {
		t.Fatalf("unexpected target %+v", target)
	}

	remote := newPicker("t", pickerCandidates, "")
	if _, ok := selectedSourceTarget(remote); ok {
		t.Fatal("expected no source target without a local workspace")
	}
	updated, cmd := remote.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'o'}})
	if cmd != nil {
		t.Fatal("expected no editor command without a local workspace")
	}
	if updated.(picker).status == "" {
		t.Fatal("expected a status message")
	}

	updated, _ = m.Update(editorResultMsg{target: "a.c:10"})
	if !strings.Contains(updated.(picker).status, "a.c:10") {
		t.Fatalf("unexpected status %q", updated.(picker).status)
	}
}

func TestRenderOutcome(t *testing.T) {
	var buf bytes.Buffer
	view := session.View{
		Location: navigation.Location{Path: "a.c", Line: 3},
		Precise:  true,
		Language: "cpp",
		Text:     "one\ntwo\nthree\nfour\nfive\nsix\n",
	}
	renderOutcome(&buf, session.Outcome{
		Result: navigation.Result{Status: navigation.StatusFound, Candidates: pickerCandidates[:1]},
		View:   &view,
	})
	out := buf.String()
	for _, want := range []string{"a.c:3", "one", "three", "five"} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "six") {
		t.Fatalf("snippet should stop two lines after the target:\n%s", out)
	}

	buf.Reset()
	renderOutcome(&buf, session.Outcome{Result: navigation.Result{
		Operation:  navigation.OpImplementations,
		Status:     navigation.StatusAmbiguous,
		Symbol:     "foo",
		Candidates: pickerCandidates,
	}})
	if !strings.Contains(buf.String(), "2 candidates for foo") || !strings.Contains(buf.String(), "lib/b.c:7") {
		t.Fatalf("unexpected ambiguous output:\n%s", buf.String())
	}

	buf.Reset()
	renderOutcome(&buf, session.Outcome{Result: navigation.Result{
		Operation: navigation.OpTypeDefinition,
		Status:    navigation.StatusNotFound,
		Symbol:    "w",
		TypeName:  "widget",
	}})
	if !strings.Contains(buf.String(), "no type definition for w (type widget)") {
		t.Fatalf("unexpected not found output:\n%s", buf.String())
	}
}
