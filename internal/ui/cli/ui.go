package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"xplore/internal/core/ports"
	"xplore/internal/core/session"
	"xplore/internal/engine/navigation"
	"xplore/internal/engine/references"
	"xplore/internal/engine/tags"
	"xplore/internal/engine/workspace"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	pathStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981"))

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24"))

	missStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)

	currentLineStyle = lipgloss.NewStyle().Bold(true)
)

// snippetRadius is the number of lines shown on each side of a target line.
const snippetRadius = 2

func tagLocation(t tags.Tag) string {
	if t.HasLine() {
		return fmt.Sprintf("%s:%d", t.Path, t.Line)
	}
	return t.Path
}

func locationString(loc navigation.Location) string {
	if loc.Line > 0 {
		return fmt.Sprintf("%s:%d", loc.Path, loc.Line)
	}
	return loc.Path
}

func renderOutcome(w io.Writer, out session.Outcome) {
	res := out.Result
	if out.View != nil {
		renderView(w, *out.View)
		if res.Status == navigation.StatusFound && len(res.Candidates) > 1 {
			fmt.Fprintln(w, statusStyle.Render(fmt.Sprintf("%d more candidates", len(res.Candidates)-1)))
		}
		return
	}
	switch res.Status {
	case navigation.StatusAmbiguous:
		fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%d candidates for %s", len(res.Candidates), res.Symbol)))
		renderTags(w, res.Candidates)
	case navigation.StatusFallback:
		fmt.Fprintln(w, missStyle.Render(fmt.Sprintf("no tags for %s", res.Symbol)))
	case navigation.StatusInvalid:
		fmt.Fprintln(w, missStyle.Render(fmt.Sprintf("%q is not a symbol", res.Symbol)))
	default:
		what := strings.ReplaceAll(string(res.Operation), "_", " ")
		if res.TypeName != "" {
			fmt.Fprintln(w, missStyle.Render(fmt.Sprintf("no %s for %s (type %s)", what, res.Symbol, res.TypeName)))
			return
		}
		fmt.Fprintln(w, missStyle.Render(fmt.Sprintf("no %s for %s", what, res.Symbol)))
	}
}

// renderView prints the target location and a few lines around it.
func renderView(w io.Writer, view session.View) {
	header := pathStyle.Render(locationString(view.Location))
	if view.Language != "" {
		header += " " + statusStyle.Render(view.Language)
	}
	fmt.Fprintln(w, header)
	if !view.Precise {
		fmt.Fprintln(w, statusStyle.Render("target line not found; showing the top of the file"))
	}
	if view.Text == "" {
		return
	}

	lines := strings.Split(view.Text, "\n")
	target := view.Location.Line
	if target < 1 {
		target = 1
	}
	first := max(1, target-snippetRadius)
	last := min(len(lines), target+snippetRadius)
	for n := first; n <= last; n++ {
		text := strings.TrimRight(lines[n-1], "\r")
		row := fmt.Sprintf("%5d  %s", n, text)
		if n == target {
			row = currentLineStyle.Render(fmt.Sprintf("%5d> %s", n, text))
		}
		fmt.Fprintln(w, row)
	}
}

func renderTags(w io.Writer, list []tags.Tag) {
	if len(list) == 0 {
		fmt.Fprintln(w, statusStyle.Render("no symbols"))
		return
	}
	for _, t := range list {
		line := fmt.Sprintf("%s  %s %s", pathStyle.Render(tagLocation(t)), kindStyle.Render(t.Kind), t.Name)
		if t.Signature != "" {
			line += t.Signature
		}
		if t.Scope != "" {
			line += " " + statusStyle.Render("in "+t.Scope)
		}
		fmt.Fprintln(w, line)
	}
}

func renderMatches(w io.Writer, matches []references.Match) {
	if len(matches) == 0 {
		fmt.Fprintln(w, statusStyle.Render("no matches"))
		return
	}
	for _, m := range matches {
		fmt.Fprintf(w, "%s  %s\n", pathStyle.Render(fmt.Sprintf("%s:%d", m.Path, m.Line)), strings.TrimSpace(m.Snippet))
	}
}

func renderReport(w io.Writer, report references.Report) {
	sections := []struct {
		title string
		tags  []tags.Tag
	}{
		{"Definitions", report.Definitions},
		{"Declarations", report.Declarations},
	}
	for _, sec := range sections {
		if len(sec.tags) == 0 {
			continue
		}
		fmt.Fprintln(w, titleStyle.Render(sec.title))
		renderTags(w, sec.tags)
	}
	if len(report.References) > 0 {
		fmt.Fprintln(w, titleStyle.Render("References"))
		renderMatches(w, report.References)
	}
	summary := fmt.Sprintf("%d results for %s, %d files scanned", report.Total(), report.Symbol, report.FilesScanned)
	if report.Truncated {
		summary += " (truncated)"
	}
	fmt.Fprintln(w, statusStyle.Render(summary))
}

func renderIncludes(w io.Writer, path string, includes []navigation.IncludeTarget) {
	fmt.Fprintln(w, titleStyle.Render(path))
	if len(includes) == 0 {
		fmt.Fprintln(w, statusStyle.Render("no includes"))
		return
	}
	for i, inc := range includes {
		target := missStyle.Render("unresolved")
		if inc.Resolved {
			target = pathStyle.Render(inc.Target)
		}
		fmt.Fprintf(w, "%3d. %s %s -> %s\n", i+1, kindStyle.Render(inc.Ref.Kind), inc.Ref.Name, target)
	}
}

func renderOutline(w io.Writer, o tags.Outline) {
	fmt.Fprintln(w, titleStyle.Render(o.Path))
	groups := []struct {
		title string
		tags  []tags.Tag
	}{
		{"Macros", o.Macros},
		{"Globals", o.Globals},
		{"Classes", o.Classes},
		{"Functions", o.Functions},
	}
	for _, g := range groups {
		if len(g.tags) == 0 {
			continue
		}
		fmt.Fprintln(w, kindStyle.Render(g.title))
		for _, t := range g.tags {
			fmt.Fprintf(w, "  %-6d %s%s\n", t.Line, t.Name, t.Signature)
		}
	}
	if o.Count() == 0 {
		fmt.Fprintln(w, statusStyle.Render("no symbols"))
	}
}

func renderTree(w io.Writer, nodes []workspace.Node, depth int) {
	for _, n := range nodes {
		indent := strings.Repeat("  ", depth)
		if n.IsDir() {
			fmt.Fprintln(w, indent+titleStyle.Render(n.Name+"/"))
			renderTree(w, n.Children, depth+1)
			continue
		}
		fmt.Fprintln(w, indent+n.Name)
	}
}

func renderHistory(w io.Writer, state ports.HistoryState) {
	active := locationString(state.Active)
	if active == "" {
		active = "(none)"
	}
	fmt.Fprintf(w, "%s %s\n", titleStyle.Render("active"), pathStyle.Render(active))
	for i := len(state.Back) - 1; i >= 0; i-- {
		fmt.Fprintf(w, "  back %2d  %s\n", len(state.Back)-i, locationString(state.Back[i]))
	}
	for i := len(state.Forward) - 1; i >= 0; i-- {
		fmt.Fprintf(w, "  fwd  %2d  %s\n", len(state.Forward)-i, locationString(state.Forward[i]))
	}
}
