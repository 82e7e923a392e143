package cli

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"xplore/internal/engine/tags"
)

var docStyle = lipgloss.NewStyle().Margin(1, 2)

type item struct {
	tag tags.Tag
}

func (i item) Title() string { return i.tag.Name + i.tag.Signature }
func (i item) Description() string {
	desc := tagLocation(i.tag)
	if i.tag.Kind != "" {
		desc += "  " + i.tag.Kind
	}
	if i.tag.Scope != "" {
		desc += "  in " + i.tag.Scope
	}
	return desc
}
func (i item) FilterValue() string { return i.tag.Name + " " + i.tag.Path }

// picker lists the candidates of an ambiguous jump. Enter chooses one, o
// opens the highlighted one in $EDITOR, q or esc cancels.
type picker struct {
	list     list.Model
	root     string
	chosen   *tags.Tag
	quitting bool
	status   string
}

type editorResultMsg struct {
	target string
	err    error
}

func newPicker(title string, candidates []tags.Tag, root string) picker {
	items := make([]list.Item, 0, len(candidates))
	for _, t := range candidates {
		items = append(items, item{tag: t})
	}
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.Styles.Title = titleStyle
	return picker{list: l, root: root}
}

func (m picker) Init() tea.Cmd { return nil }

func (m picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v)
		return m, nil
	case editorResultMsg:
		if msg.err != nil {
			m.status = missStyle.Render(fmt.Sprintf("editor failed for %s: %v", msg.target, msg.err))
		} else {
			m.status = statusStyle.Render("returned from " + msg.target)
		}
		return m, nil
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		return handleKeyActions(msg, m)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m picker) View() string {
	if m.quitting || m.chosen != nil {
		return ""
	}
	view := m.list.View()
	if m.status != "" {
		view += "\n" + m.status
	}
	return docStyle.Render(view)
}

func (m picker) selected() (tags.Tag, bool) {
	it, ok := m.list.SelectedItem().(item)
	if !ok {
		return tags.Tag{}, false
	}
	return it.tag, true
}

// pickerFor returns a pickFunc running the picker full screen. root is the
// local workspace directory used to open files in an editor; it may be
// empty.
func pickerFor(root string) pickFunc {
	return func(title string, candidates []tags.Tag) (tags.Tag, bool, error) {
		p := tea.NewProgram(newPicker(title, candidates, root), tea.WithAltScreen())
		final, err := p.Run()
		if err != nil {
			return tags.Tag{}, false, err
		}
		m, ok := final.(picker)
		if !ok || m.chosen == nil {
			return tags.Tag{}, false, nil
		}
		return *m.chosen, true, nil
	}
}
