package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"porthole/internal/coordinator"
	"porthole/internal/prompt"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	m := NewApp(Config{ProductName: "Porthole", Version: "1.9.0", Strategy: "managed", MarkdownStyle: "plain"})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return m
}

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func openDialog(t *testing.T, m *App, d prompt.Dialog) *promptRequest {
	t.Helper()
	req := &promptRequest{dialog: d, reply: make(chan int, 1)}
	m.Update(promptRequestMsg{req: req})
	return req
}

func expectAnswer(t *testing.T, req *promptRequest, want int) {
	t.Helper()
	select {
	case got := <-req.reply:
		if got != want {
			t.Fatalf("answer = %d, want %d", got, want)
		}
	default:
		t.Fatalf("expected an answer %d, got none", want)
	}
}

func expectNoAnswer(t *testing.T, req *promptRequest) {
	t.Helper()
	select {
	case got := <-req.reply:
		t.Fatalf("unexpected answer %d", got)
	default:
	}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

var restartDialog = prompt.Dialog{
	Title:   "Update ready",
	Body:    "**Porthole v2.0.0** has been downloaded.",
	Buttons: []string{"Restart now", "Later"},
	Modal:   true,
	Cancel:  1,
}

var downloadDialog = prompt.Dialog{
	Title:   "Update available",
	Body:    "Porthole v2.0.0 is available.",
	Buttons: []string{"Download", "Later"},
	Modal:   false,
	Cancel:  1,
}

func TestDialogConfirmSelected(t *testing.T) {
	m := newTestApp(t)
	req := openDialog(t, m, restartDialog)

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	expectAnswer(t, req, 0)
	if m.dialog != nil {
		t.Fatal("dialog should close after answering")
	}
}

func TestDialogNavigateAndConfirm(t *testing.T) {
	m := newTestApp(t)
	req := openDialog(t, m, restartDialog)

	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	expectNoAnswer(t, req)
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	expectAnswer(t, req, 1)
}

func TestDialogNavigationWraps(t *testing.T) {
	m := newTestApp(t)
	req := openDialog(t, m, restartDialog)

	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	if m.dialog.selected != 1 {
		t.Fatalf("left from first button should wrap to last, got %d", m.dialog.selected)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyTab})
	if m.dialog.selected != 0 {
		t.Fatalf("tab from last button should wrap to first, got %d", m.dialog.selected)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	expectAnswer(t, req, 0)
}

func TestDialogEscapeAnswersCancel(t *testing.T) {
	m := newTestApp(t)
	req := openDialog(t, m, downloadDialog)

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	expectAnswer(t, req, downloadDialog.Cancel)
}

func TestModalDialogCapturesKeys(t *testing.T) {
	m := newTestApp(t)
	req := openDialog(t, m, restartDialog)

	_, cmd := m.Update(keyRunes("q"))
	if isQuit(cmd) {
		t.Fatal("modal dialog should swallow q")
	}
	_, _ = m.Update(keyRunes("?"))
	if m.help.ShowAll {
		t.Fatal("modal dialog should swallow ?")
	}
	expectNoAnswer(t, req)

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if !isQuit(cmd) {
		t.Fatal("ctrl+c should quit even with a modal dialog open")
	}
}

func TestNonModalDialogPassesOtherKeys(t *testing.T) {
	m := newTestApp(t)
	req := openDialog(t, m, downloadDialog)

	_, _ = m.Update(keyRunes("?"))
	if !m.help.ShowAll {
		t.Fatal("non-modal dialog should let ? through")
	}
	_, cmd := m.Update(keyRunes("q"))
	if !isQuit(cmd) {
		t.Fatal("non-modal dialog should let q through")
	}
	expectNoAnswer(t, req)
	if m.dialog == nil {
		t.Fatal("dialog should stay open")
	}
}

func TestDialogQueue(t *testing.T) {
	m := newTestApp(t)
	first := openDialog(t, m, restartDialog)
	second := openDialog(t, m, downloadDialog)

	if m.dialog.req != first {
		t.Fatal("first dialog should be active")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	expectAnswer(t, first, 1)
	if m.dialog == nil || m.dialog.req != second {
		t.Fatal("second dialog should become active")
	}
}

func TestPromptCancelWithdrawsDialog(t *testing.T) {
	m := newTestApp(t)
	first := openDialog(t, m, restartDialog)
	second := openDialog(t, m, downloadDialog)

	m.Update(promptCancelMsg{req: second})
	if len(m.queue) != 0 {
		t.Fatalf("queued dialog should be withdrawn, queue=%d", len(m.queue))
	}
	m.Update(promptCancelMsg{req: first})
	if m.dialog != nil {
		t.Fatal("active dialog should be withdrawn")
	}
	expectNoAnswer(t, first)
}

func TestViewRendersDialogs(t *testing.T) {
	m := newTestApp(t)
	openDialog(t, m, restartDialog)

	view := ansi.Strip(m.View())
	for _, want := range []string{"Update ready", "Restart now", "Later", "Porthole v2.0.0"} {
		if !strings.Contains(view, want) {
			t.Errorf("modal view missing %q:\n%s", want, view)
		}
	}

	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	openDialog(t, m, downloadDialog)
	view = ansi.Strip(m.View())
	for _, want := range []string{"Porthole", "1.9.0", "managed", "Download", "Update available"} {
		if !strings.Contains(view, want) {
			t.Errorf("non-modal view missing %q:\n%s", want, view)
		}
	}
}

func TestStatusLine(t *testing.T) {
	m := newTestApp(t)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	m.Update(StatusMsg{Transition: coordinator.Transition{From: coordinator.Idle, To: coordinator.Checking, At: at}})
	if !m.busy || m.status != "Checking for updates" {
		t.Fatalf("checking: busy=%v status=%q", m.busy, m.status)
	}

	m.Update(StatusMsg{Transition: coordinator.Transition{From: coordinator.Checking, To: coordinator.UpdateAvailable, At: at, Message: "version v2.0.0"}})
	if m.busy || m.status != "Update available: v2.0.0" {
		t.Fatalf("available: busy=%v status=%q", m.busy, m.status)
	}

	view := ansi.Strip(m.View())
	if !strings.Contains(view, "03:04:05  update-available") {
		t.Errorf("activity missing from view:\n%s", view)
	}
}

func TestStatusLineHidesFailures(t *testing.T) {
	m := newTestApp(t)
	m.Update(StatusMsg{Transition: coordinator.Transition{From: coordinator.Idle, To: coordinator.Checking}})
	m.Update(StatusMsg{Transition: coordinator.Transition{From: coordinator.Checking, To: coordinator.CheckFailed, Code: "transport_failure", Message: "dial tcp: timeout"}})
	m.Update(StatusMsg{Transition: coordinator.Transition{From: coordinator.CheckFailed, To: coordinator.Idle}})

	if m.status != "" || m.busy {
		t.Fatalf("failure should leave an empty, idle status line, got %q busy=%v", m.status, m.busy)
	}
	view := ansi.Strip(m.View())
	if strings.Contains(view, "timeout") || strings.Contains(view, "check-failed") {
		t.Errorf("failure details leaked into view:\n%s", view)
	}
}

func TestToastExpires(t *testing.T) {
	m := newTestApp(t)
	_, cmd := m.Update(ToastMsg{Text: "Link copied to clipboard"})
	if cmd == nil {
		t.Fatal("toast should schedule expiry")
	}
	if !strings.Contains(ansi.Strip(m.View()), "Link copied") {
		t.Fatal("toast should be visible")
	}

	m.Update(ToastMsg{Text: "second"})
	m.Update(toastExpiredMsg{seq: 1})
	if m.toast != "second" {
		t.Fatalf("stale expiry cleared newer toast: %q", m.toast)
	}
	m.Update(toastExpiredMsg{seq: 2})
	if m.toast != "" {
		t.Fatalf("toast should clear, got %q", m.toast)
	}
}

func TestBuildMarkdownRendererPlainFallback(t *testing.T) {
	text := "Release notes with a fairly long line that should wrap"
	width := 20
	render := buildMarkdownRenderer("plain", width)
	for _, line := range strings.Split(render(text), "\n") {
		if ansi.StringWidth(line) > width {
			t.Fatalf("line %q exceeds width %d", line, width)
		}
	}
}

func TestBuildMarkdownRendererDark(t *testing.T) {
	render := buildMarkdownRenderer("dark", 40)
	out := ansi.Strip(render("# Fixes\n\n- faster startup"))
	if !strings.Contains(out, "faster startup") {
		t.Fatalf("rendered markdown missing content: %q", out)
	}
}

func TestResolveMarkdownStyleKeepsExplicit(t *testing.T) {
	if got := resolveMarkdownStyle(" Light "); got != "light" {
		t.Fatalf("resolveMarkdownStyle = %q, want light", got)
	}
}

func TestClampLines(t *testing.T) {
	got := clampLines("short\nthis line is much too long", 10)
	for _, line := range strings.Split(got, "\n") {
		if ansi.StringWidth(line) > 10 {
			t.Fatalf("line %q exceeds width", line)
		}
	}
}

func TestDialogContentWidth(t *testing.T) {
	if got := dialogContentWidth(0); got != dialogMaxWidth {
		t.Fatalf("unknown width should use max, got %d", got)
	}
	if got := dialogContentWidth(200); got != dialogMaxWidth {
		t.Fatalf("wide terminal should cap at max, got %d", got)
	}
	if got := dialogContentWidth(20); got != dialogMinWidth {
		t.Fatalf("narrow terminal should floor at min, got %d", got)
	}
}
