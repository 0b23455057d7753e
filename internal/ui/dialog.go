package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"porthole/internal/prompt"
)

// dialogModel is one open prompt.
type dialogModel struct {
	req      *promptRequest
	selected int
}

func newDialogModel(req *promptRequest) *dialogModel {
	return &dialogModel{req: req}
}

// handleKey applies a key press. consumed is false when a non-modal dialog
// has no use for the key and the host should handle it. answered reports
// that the dialog closed with choice.
func (d *dialogModel) handleKey(msg tea.KeyMsg, keys KeyMap) (consumed, answered bool, choice int) {
	buttons := len(d.req.dialog.Buttons)
	switch {
	case key.Matches(msg, keys.Next):
		d.selected = (d.selected + 1) % buttons
		return true, false, 0
	case key.Matches(msg, keys.Prev):
		d.selected = (d.selected - 1 + buttons) % buttons
		return true, false, 0
	case key.Matches(msg, keys.Confirm):
		return true, true, d.selected
	case key.Matches(msg, keys.Dismiss):
		return true, true, d.req.dialog.Cancel
	}
	return d.req.dialog.Modal, false, 0
}

// View renders the dialog box.
func (d *dialogModel) View(termWidth int, render func(string) string) string {
	width := dialogContentWidth(termWidth)
	dlg := d.req.dialog

	var lines []string
	lines = append(lines, styleDialogTitle.Render(dlg.Title), "")
	if body := strings.TrimSpace(dlg.Body); body != "" {
		lines = append(lines, clampLines(render(body), width), "")
	}
	lines = append(lines, d.renderButtons())

	return styleDialog(dlg.Modal).
		Width(width + 2*dialogHPadding).
		Render(strings.Join(lines, "\n"))
}

func (d *dialogModel) renderButtons() string {
	parts := make([]string, len(d.req.dialog.Buttons))
	for i, label := range d.req.dialog.Buttons {
		style := styleButton
		if i == d.selected {
			style = styleButtonActive
		}
		parts[i] = style.Render(label)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

// promptRequest carries a dialog and the channel its answer goes to.
type promptRequest struct {
	dialog prompt.Dialog
	reply  chan int
}

// answer delivers choice without blocking. Only the first answer counts.
func (r *promptRequest) answer(choice int) {
	select {
	case r.reply <- choice:
	default:
	}
}
