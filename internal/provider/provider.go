// Package provider defines the managed-update capability the coordinator
// drives, and the implementations shipped with porthole.
//
// A provider owns everything between "is there a release?" and "the new
// binary is in place": querying, downloading, verifying, staging and the
// final swap. The coordinator only consumes its event stream and decides
// when to ask for the swap.
package provider

import "context"

// Kind identifies a provider event.
type Kind int

const (
	// KindAvailable means a newer release exists and is being fetched.
	KindAvailable Kind = iota
	// KindNotAvailable means the running build is current.
	KindNotAvailable
	// KindDownloaded means an update is staged and ready to install.
	KindDownloaded
	// KindError means the check or the download failed.
	KindError
)

// String returns the wire name of the event kind.
func (k Kind) String() string {
	switch k {
	case KindAvailable:
		return "available"
	case KindNotAvailable:
		return "not-available"
	case KindDownloaded:
		return "downloaded"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one notification from CheckAndNotify.
type Event struct {
	Kind    Kind
	Version string
	// Notes carries the release notes (markdown) when known.
	Notes string
	Err   error
}

// Provider is the managed-update capability.
type Provider interface {
	// CheckAndNotify starts a check and returns its event stream. The channel
	// is closed after one terminal event, or without any event when the
	// provider has nothing to do.
	CheckAndNotify(ctx context.Context) <-chan Event
	// QuitAndInstall installs the staged update, marks a relaunch as pending
	// and asks the host to quit.
	QuitAndInstall() error
	// ApplyOnExit installs a staged update without relaunching. Hosts call it
	// on normal exit. It is a no-op when nothing is staged.
	ApplyOnExit() error
	// Relaunch starts the installed binary when QuitAndInstall asked for a
	// restart. Hosts call it after ApplyOnExit, once the terminal is free.
	Relaunch() error
}

// Noop is the provider used for every strategy other than Managed.
type Noop struct{}

// CheckAndNotify returns a closed channel.
func (Noop) CheckAndNotify(context.Context) <-chan Event {
	ch := make(chan Event)
	close(ch)
	return ch
}

// QuitAndInstall does nothing.
func (Noop) QuitAndInstall() error { return nil }

// ApplyOnExit does nothing.
func (Noop) ApplyOnExit() error { return nil }

// Relaunch does nothing.
func (Noop) Relaunch() error { return nil }
