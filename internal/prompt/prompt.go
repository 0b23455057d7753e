// Package prompt describes the user-facing dialog capability.
package prompt

import (
	"context"
	"errors"
)

// ErrNoHost is returned when no surface is available to show a dialog.
var ErrNoHost = errors.New("no host surface to prompt on")

// Dialog is a question with a fixed set of buttons.
type Dialog struct {
	Title string
	// Body is markdown.
	Body    string
	Buttons []string
	// Modal dialogs capture all input until answered.
	Modal bool
	// Cancel is the button index reported when the dialog is dismissed.
	Cancel int
}

// Valid reports whether the dialog can be shown.
func (d Dialog) Valid() bool {
	return len(d.Buttons) > 0 && d.Cancel >= 0 && d.Cancel < len(d.Buttons)
}

// Prompter shows a dialog and blocks until the user picks a button or ctx
// is done. It returns the chosen button index.
type Prompter interface {
	Prompt(ctx context.Context, d Dialog) (int, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, d Dialog) (int, error)

// Prompt calls f.
func (f PrompterFunc) Prompt(ctx context.Context, d Dialog) (int, error) {
	return f(ctx, d)
}

// Headless is a Prompter for runs without a host surface. Every dialog
// fails with ErrNoHost, which callers treat as dismissal.
type Headless struct{}

// Prompt returns ErrNoHost.
func (Headless) Prompt(context.Context, Dialog) (int, error) {
	return 0, ErrNoHost
}
