package ui

import (
	"context"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"porthole/internal/coordinator"
	"porthole/internal/prompt"
)

// Bridge connects background work to a running App. It implements
// prompt.Prompter and feeds the status line.
type Bridge struct {
	mu   sync.Mutex
	send func(tea.Msg)

	done      chan struct{}
	closeOnce sync.Once
}

// NewBridge returns a bridge with no program attached.
func NewBridge() *Bridge {
	return &Bridge{done: make(chan struct{})}
}

// Attach routes messages to send, normally (*tea.Program).Send.
func (b *Bridge) Attach(send func(tea.Msg)) {
	b.mu.Lock()
	b.send = send
	b.mu.Unlock()
}

// Close marks the host as gone. Pending and future prompts return
// prompt.ErrNoHost.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

func (b *Bridge) sender() func(tea.Msg) {
	b.mu.Lock()
	defer b.mu.Unlock()
	select {
	case <-b.done:
		return nil
	default:
		return b.send
	}
}

// Prompt shows d in the app and waits for the user's choice.
func (b *Bridge) Prompt(ctx context.Context, d prompt.Dialog) (int, error) {
	if !d.Valid() {
		return 0, fmt.Errorf("invalid dialog %q: %d buttons, cancel index %d", d.Title, len(d.Buttons), d.Cancel)
	}
	send := b.sender()
	if send == nil {
		return d.Cancel, prompt.ErrNoHost
	}

	req := &promptRequest{dialog: d, reply: make(chan int, 1)}
	send(promptRequestMsg{req: req})

	select {
	case choice := <-req.reply:
		return choice, nil
	case <-ctx.Done():
		send(promptCancelMsg{req: req})
		return d.Cancel, ctx.Err()
	case <-b.done:
		return d.Cancel, prompt.ErrNoHost
	}
}

// Status forwards a lifecycle transition to the status line. It has the
// signature coordinator.WithObserver expects.
func (b *Bridge) Status(tr coordinator.Transition) {
	if send := b.sender(); send != nil {
		send(StatusMsg{Transition: tr})
	}
}

// Toast shows a short notice.
func (b *Bridge) Toast(text string) {
	if send := b.sender(); send != nil {
		send(ToastMsg{Text: text})
	}
}
