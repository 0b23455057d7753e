// Package ui is the terminal host surface porthole runs update delivery
// inside of.
//
// The app shows the running product and version, a status line fed by the
// update coordinator, and dialogs raised through Bridge. It never blocks on
// the update lifecycle: every interaction with it arrives as a message.
package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"porthole/internal/coordinator"
)

const (
	maxActivity   = 8
	toastDuration = 4 * time.Second
)

// Config holds the static facts the app displays.
type Config struct {
	ProductName   string
	Version       string
	Strategy      string
	MarkdownStyle string
}

// App is the bubbletea model of the host surface.
type App struct {
	cfg     Config
	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	width  int
	height int

	markdownStyle string
	render        func(string) string
	renderWidth   int

	status   string
	busy     bool
	activity []coordinator.Transition

	dialog *dialogModel
	queue  []*promptRequest

	toast    string
	toastSeq int
}

// NewApp creates the host model. The markdown style is resolved here, before
// the program owns the terminal.
func NewApp(cfg Config) *App {
	if strings.TrimSpace(cfg.ProductName) == "" {
		cfg.ProductName = coordinator.DefaultProductName
	}
	return &App{
		cfg:           cfg,
		keys:          DefaultKeyMap(),
		help:          help.New(),
		spinner:       spinner.New(spinner.WithSpinner(spinner.Dot)),
		markdownStyle: resolveMarkdownStyle(cfg.MarkdownStyle),
	}
}

// Init implements tea.Model.
func (m *App) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update implements tea.Model.
func (m *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case promptRequestMsg:
		if m.dialog == nil {
			m.dialog = newDialogModel(msg.req)
		} else {
			m.queue = append(m.queue, msg.req)
		}
		return m, nil

	case promptCancelMsg:
		m.withdraw(msg.req)
		return m, nil

	case StatusMsg:
		m.applyStatus(msg.Transition)
		return m, nil

	case ToastMsg:
		m.toastSeq++
		m.toast = msg.Text
		seq := m.toastSeq
		return m, tea.Tick(toastDuration, func(time.Time) tea.Msg { return toastExpiredMsg{seq: seq} })

	case toastExpiredMsg:
		if msg.seq == m.toastSeq {
			m.toast = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.dialog != nil {
		consumed, answered, choice := m.dialog.handleKey(msg, m.keys)
		if answered {
			m.dialog.req.answer(choice)
			m.nextDialog()
		}
		// ctrl+c always reaches the host, even past a modal dialog.
		if consumed && msg.String() != "ctrl+c" {
			return m, nil
		}
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m *App) nextDialog() {
	m.dialog = nil
	if len(m.queue) > 0 {
		m.dialog = newDialogModel(m.queue[0])
		m.queue = m.queue[1:]
	}
}

func (m *App) withdraw(req *promptRequest) {
	if m.dialog != nil && m.dialog.req == req {
		m.nextDialog()
		return
	}
	for i, queued := range m.queue {
		if queued == req {
			m.queue = append(m.queue[:i], m.queue[i+1:]...)
			return
		}
	}
}

func (m *App) applyStatus(tr coordinator.Transition) {
	m.busy = tr.To == coordinator.Checking || tr.To == coordinator.Downloading
	// Failures stay out of sight; the user just sees no notification.
	if tr.To == coordinator.CheckFailed || tr.From == coordinator.CheckFailed {
		m.status = ""
		return
	}
	if text := statusText(tr); text != "" {
		m.status = text
	}
	m.activity = append(m.activity, tr)
	if len(m.activity) > maxActivity {
		m.activity = m.activity[len(m.activity)-maxActivity:]
	}
}

// statusText describes a transition for the status line. Empty means keep
// the current text.
func statusText(tr coordinator.Transition) string {
	switch tr.To {
	case coordinator.Checking:
		return "Checking for updates"
	case coordinator.UpdateAvailable:
		return "Update available: " + strings.TrimPrefix(tr.Message, "version ")
	case coordinator.Downloading:
		return "Downloading update"
	case coordinator.Downloaded:
		return "Update downloaded"
	case coordinator.RestartRequested:
		return "Restarting to install update"
	case coordinator.OpenedDownloadPage:
		return "Opened download page"
	case coordinator.Deferred:
		return "Update postponed"
	case coordinator.NoUpdateFound:
		return "Up to date"
	default:
		return ""
	}
}

// View implements tea.Model.
func (m *App) View() string {
	if m.dialog != nil && m.dialog.req.dialog.Modal && m.width > 0 {
		box := m.dialog.View(m.width, m.renderer())
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}

	header := m.renderHeader()
	status := m.renderStatus()
	footer := m.renderFooter()

	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(status) - lipgloss.Height(footer) - 1
	if bodyHeight < 1 {
		bodyHeight = 1
	}

	var body string
	if m.dialog != nil {
		box := m.dialog.View(m.width, m.renderer())
		body = lipgloss.Place(max(m.width, lipgloss.Width(box)), bodyHeight, lipgloss.Right, lipgloss.Bottom, box)
	} else {
		body = lipgloss.NewStyle().Height(bodyHeight).Render(m.renderActivity())
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, "", body, status, footer)
}

func (m *App) renderHeader() string {
	parts := []string{styleHeader.Render(m.cfg.ProductName), styleVersion.Render(m.cfg.Version)}
	if m.cfg.Strategy != "" {
		parts = append(parts, styleBadge.Render(m.cfg.Strategy))
	}
	return strings.Join(parts, " ")
}

func (m *App) renderActivity() string {
	if len(m.activity) == 0 {
		return styleMuted.Render("No update activity yet.")
	}
	lines := make([]string, 0, len(m.activity))
	for _, tr := range m.activity {
		line := styleMuted.Render(tr.At.Format("15:04:05")) + "  " + tr.To.String()
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m *App) renderStatus() string {
	var line string
	switch {
	case m.busy:
		line = m.spinner.View() + " " + styleStatus.Render(m.status)
	case m.status == "Up to date":
		line = styleGood.Render("✓ " + m.status)
	case m.status != "":
		line = styleWarn.Render("● ") + styleStatus.Render(m.status)
	}
	if m.toast != "" {
		line = strings.TrimSpace(line + "  " + styleMuted.Render(m.toast))
	}
	return line
}

func (m *App) renderFooter() string {
	if m.dialog != nil {
		return m.help.View(dialogHelp{keys: m.keys})
	}
	return m.help.View(m.keys)
}

func (m *App) renderer() func(string) string {
	width := dialogContentWidth(m.width)
	if m.render == nil || m.renderWidth != width {
		m.render = buildMarkdownRenderer(m.markdownStyle, width)
		m.renderWidth = width
	}
	return m.render
}
