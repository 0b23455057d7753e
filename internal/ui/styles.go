package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"
)

var (
	colorAccent  = lipgloss.AdaptiveColor{Light: "#7c4dff", Dark: "#a277ff"}
	colorText    = lipgloss.AdaptiveColor{Light: "#212121", Dark: "#edecee"}
	colorMuted   = lipgloss.AdaptiveColor{Light: "#757575", Dark: "#6d6d6d"}
	colorSuccess = lipgloss.AdaptiveColor{Light: "#00bfa5", Dark: "#61ffca"}
	colorWarning = lipgloss.AdaptiveColor{Light: "#ff9800", Dark: "#ffca85"}
	colorBorder  = lipgloss.AdaptiveColor{Light: "#e0e0e0", Dark: "#2d2d2d"}
	colorPanel   = lipgloss.AdaptiveColor{Light: "#f5f5f5", Dark: "#15141b"}
)

var (
	styleHeader  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	styleVersion = lipgloss.NewStyle().Foreground(colorMuted)
	styleBadge   = lipgloss.NewStyle().Foreground(colorPanel).Background(colorAccent).Padding(0, 1)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)
	styleStatus  = lipgloss.NewStyle().Foreground(colorText)
	styleGood    = lipgloss.NewStyle().Foreground(colorSuccess)
	styleWarn    = lipgloss.NewStyle().Foreground(colorWarning)

	styleButton       = lipgloss.NewStyle().Foreground(colorText).Padding(0, 2)
	styleButtonActive = lipgloss.NewStyle().Foreground(colorPanel).Background(colorAccent).Bold(true).Padding(0, 2)
	styleDialogTitle  = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
)

// Dialog content widths (before padding/border).
const (
	dialogMaxWidth = 64
	dialogMinWidth = 24
	dialogHPadding = 2
)

func styleDialog(modal bool) lipgloss.Style {
	border := colorBorder
	if modal {
		border = colorAccent
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(1, dialogHPadding)
}

// dialogContentWidth returns the text width inside a dialog for a terminal
// of termWidth columns.
func dialogContentWidth(termWidth int) int {
	w := dialogMaxWidth
	if termWidth > 0 {
		// border + padding on both sides
		if avail := termWidth - 2 - 2*dialogHPadding - 2; avail < w {
			w = avail
		}
	}
	if w < dialogMinWidth {
		w = dialogMinWidth
	}
	return w
}

// resolveMarkdownStyle maps "auto" to dark or light using the terminal
// background. Call it before the program takes over the terminal.
func resolveMarkdownStyle(style string) string {
	s := strings.ToLower(strings.TrimSpace(style))
	switch s {
	case "", "auto":
		if termenv.HasDarkBackground() {
			return "dark"
		}
		return "light"
	default:
		return s
	}
}

// buildMarkdownRenderer returns a renderer for release notes. Unknown styles
// and glamour failures fall back to plain word wrapping.
func buildMarkdownRenderer(style string, width int) func(string) string {
	fallback := func(input string) string {
		return wordwrap.String(input, width)
	}

	if style == "plain" || width <= 0 {
		return fallback
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fallback
	}
	return func(input string) string {
		out, err := renderer.Render(input)
		if err != nil {
			return fallback(input)
		}
		return strings.Trim(out, "\n")
	}
}

// clampLines truncates every line to width display cells.
func clampLines(s string, width int) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = ansi.Truncate(line, width, "…")
	}
	return strings.Join(lines, "\n")
}
