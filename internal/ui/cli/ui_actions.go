package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

func handleKeyActions(msg tea.KeyMsg, m picker) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q", "esc":
		m.quitting = true
		return m, tea.Quit
	case "enter":
		if t, ok := m.selected(); ok {
			m.chosen = &t
			return m, tea.Quit
		}
		return m, nil
	case "o":
		target, ok := selectedSourceTarget(m)
		if !ok {
			m.status = statusStyle.Render("No local file to open.")
			return m, nil
		}
		return m, jumpToSourceCmd(target)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

type sourceTarget struct {
	file string
	line int
}

// selectedSourceTarget maps the highlighted candidate to a file under the
// local workspace. Remote workspaces have nothing to open.
func selectedSourceTarget(m picker) (sourceTarget, bool) {
	if m.root == "" {
		return sourceTarget{}, false
	}
	t, ok := m.selected()
	if !ok || t.Path == "" {
		return sourceTarget{}, false
	}
	line := t.Line
	if line < 1 {
		line = 1
	}
	return sourceTarget{file: filepath.Join(m.root, filepath.FromSlash(t.Path)), line: line}, true
}

func jumpToSourceCmd(target sourceTarget) tea.Cmd {
	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	args := []string{target.file}
	if strings.Contains(editor, "vim") || strings.Contains(editor, "nvim") || strings.HasSuffix(editor, "/vi") || editor == "vi" {
		args = []string{fmt.Sprintf("+%d", target.line), target.file}
	}
	cmd := exec.Command(editor, args...)
	label := fmt.Sprintf("%s:%d", target.file, target.line)
	return tea.ExecProcess(cmd, func(err error) tea.Msg {
		return editorResultMsg{target: label, err: err}
	})
}
