// Package opener hands URLs to the desktop.
package opener

import (
	"fmt"

	"github.com/atotto/clipboard"
	log "github.com/sirupsen/logrus"
	"github.com/skratchdot/open-golang/open"
)

// Opener opens a URL for the user.
type Opener interface {
	Open(url string) error
}

// System opens URLs in the default browser. When no browser handler is
// available the URL is copied to the clipboard instead, and Copied reports
// it so the host can tell the user.
type System struct {
	open   func(string) error
	copy   func(string) error
	Copied func(url string)
}

// NewSystem returns an opener backed by the platform handler.
func NewSystem() *System {
	return &System{open: open.Run, copy: clipboard.WriteAll}
}

// Open launches url, falling back to the clipboard.
func (s *System) Open(url string) error {
	err := s.open(url)
	if err == nil {
		return nil
	}
	log.WithError(err).WithField("url", url).Warn("no browser handler, copying link")

	if cerr := s.copy(url); cerr != nil {
		return fmt.Errorf("open %s: %v; copy to clipboard: %w", url, err, cerr)
	}
	if s.Copied != nil {
		s.Copied(url)
	}
	return nil
}
