package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

const (
	defaultSpinnerInterval = 120 * time.Millisecond
	defaultSpinnerDelay    = 250 * time.Millisecond
)

// progress reports what a one-shot command is waiting on.
type progress interface {
	Stage(message string)
	Stop()
}

type noProgress struct{}

func (noProgress) Stage(string) {}
func (noProgress) Stop()        {}

// lineSpinner redraws a single status line on w until stopped. Nothing is
// drawn before delay elapses, so fast queries leave no trace.
type lineSpinner struct {
	writer        io.Writer
	delay         time.Duration
	frameInterval time.Duration
	frames        []rune

	events chan string
	stopCh chan struct{}
	doneCh chan struct{}
	once   sync.Once

	mu       sync.Mutex
	frameIdx int
}

func newLineSpinner(w io.Writer, delay time.Duration) *lineSpinner {
	return newCustomLineSpinner(w, delay, defaultSpinnerInterval)
}

func newCustomLineSpinner(w io.Writer, delay, frameInterval time.Duration) *lineSpinner {
	if w == nil {
		w = io.Discard
	}
	sp := &lineSpinner{
		writer:        w,
		delay:         delay,
		frameInterval: frameInterval,
		frames:        []rune{'|', '/', '-', '\\'},
		events:        make(chan string, 8),
		stopCh:        make(chan struct{}),
		doneCh:        make(chan struct{}),
	}
	go sp.loop()
	return sp
}

func (s *lineSpinner) Stage(message string) {
	if s == nil {
		return
	}
	select {
	case <-s.stopCh:
		return
	default:
	}
	select {
	case s.events <- strings.TrimSpace(message):
	default:
	}
}

func (s *lineSpinner) Stop() {
	if s == nil {
		return
	}
	s.once.Do(func() {
		close(s.stopCh)
		<-s.doneCh
	})
}

func (s *lineSpinner) loop() {
	defer close(s.doneCh)

	var delayCh <-chan time.Time
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		delayCh = timer.C
	}

	ticker := time.NewTicker(s.frameInterval)
	defer ticker.Stop()

	var current string
	hasStage := false
	visible := s.delay == 0

	for {
		select {
		case <-s.stopCh:
			if visible && hasStage {
				s.clearLine()
			}
			return
		case msg := <-s.events:
			current = msg
			hasStage = true
			if visible {
				s.render(current)
			}
		case <-ticker.C:
			if visible && hasStage {
				s.render(current)
			}
		case <-delayCh:
			delayCh = nil
			visible = true
			if hasStage {
				s.render(current)
			}
		}
	}
}

func (s *lineSpinner) render(message string) {
	if message == "" {
		message = "Working..."
	}
	_, _ = fmt.Fprintf(s.writer, "\r\033[2K%c %s", s.nextFrame(), message)
}

func (s *lineSpinner) clearLine() {
	_, _ = fmt.Fprint(s.writer, "\r\033[2K")
}

func (s *lineSpinner) nextFrame() rune {
	s.mu.Lock()
	defer s.mu.Unlock()
	frame := s.frames[s.frameIdx%len(s.frames)]
	s.frameIdx++
	return frame
}
