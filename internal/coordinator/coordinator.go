// Package coordinator drives the update lifecycle of one process.
//
// A Coordinator is built once at startup with the strategy picked by the
// channel package and the capabilities it may use. Run performs at most one
// check per process. Every failure is absorbed: it is logged and journaled,
// and the user simply sees no update notification.
package coordinator

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"porthole/internal/channel"
	apperrors "porthole/internal/errors"
	"porthole/internal/journal"
	"porthole/internal/opener"
	"porthole/internal/prompt"
	"porthole/internal/provider"
	"porthole/internal/release"
	"porthole/internal/version"
)

// Button labels.
const (
	ButtonRestart  = "Restart now"
	ButtonDownload = "Download"
	ButtonLater    = "Later"
)

// DefaultProductName is used in dialog text when none is configured.
const DefaultProductName = "Porthole"

// Querier looks up the latest published release.
type Querier interface {
	FetchLatest(ctx context.Context, ownerRepo string) (*release.Info, error)
}

// Config is the fixed input of a lifecycle.
type Config struct {
	Strategy       channel.Strategy
	CurrentVersion string
	OwnerRepo      string
	ProductName    string
	// WebURL is the web host for release pages. Empty means github.com.
	WebURL string
}

// Snapshot is a point-in-time view of a Coordinator.
type Snapshot struct {
	CheckID  string
	Strategy channel.Strategy
	State    State
	Latest   string
	History  []Transition
}

// Coordinator owns the lifecycle state.
type Coordinator struct {
	cfg      Config
	provider provider.Provider
	releases Querier
	prompter prompt.Prompter
	opener   opener.Opener
	journal  journal.Recorder
	observer func(Transition)
	now      func() time.Time
	newID    func() string

	once sync.Once

	mu      sync.Mutex
	checkID string
	state   State
	latest  string
	history []Transition
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithProvider sets the managed-update provider.
func WithProvider(p provider.Provider) Option {
	return func(c *Coordinator) {
		if p != nil {
			c.provider = p
		}
	}
}

// WithReleases sets the release lookup used by the notify-only path.
func WithReleases(q Querier) Option {
	return func(c *Coordinator) { c.releases = q }
}

// WithPrompter sets the dialog capability.
func WithPrompter(p prompt.Prompter) Option {
	return func(c *Coordinator) {
		if p != nil {
			c.prompter = p
		}
	}
}

// WithOpener sets the link opener.
func WithOpener(o opener.Opener) Option {
	return func(c *Coordinator) { c.opener = o }
}

// WithJournal sets where transitions are recorded.
func WithJournal(r journal.Recorder) Option {
	return func(c *Coordinator) {
		if r != nil {
			c.journal = r
		}
	}
}

// WithObserver registers a callback invoked after every transition.
func WithObserver(fn func(Transition)) Option {
	return func(c *Coordinator) { c.observer = fn }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// WithIDGenerator overrides check ID generation.
func WithIDGenerator(fn func() string) Option {
	return func(c *Coordinator) {
		if fn != nil {
			c.newID = fn
		}
	}
}

// New creates a Coordinator in the Idle state. Capabilities that are not
// supplied default to inert implementations.
func New(cfg Config, opts ...Option) *Coordinator {
	if strings.TrimSpace(cfg.ProductName) == "" {
		cfg.ProductName = DefaultProductName
	}
	c := &Coordinator{
		cfg:      cfg,
		provider: provider.Noop{},
		prompter: prompt.Headless{},
		journal:  journal.Discard,
		now:      time.Now,
		newID:    uuid.NewString,
		state:    Idle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run performs the update check for this process and returns the state it
// settled in. Only the first call does any work; concurrent callers block
// until it finishes and later callers get the same result. Cancelling ctx
// abandons an in-flight check where it stands.
func (c *Coordinator) Run(ctx context.Context) State {
	c.once.Do(func() {
		c.mu.Lock()
		c.checkID = c.newID()
		c.mu.Unlock()

		switch c.cfg.Strategy {
		case channel.Managed:
			c.runManaged(ctx)
		case channel.NotifyOnly:
			c.runNotifyOnly(ctx)
		default:
			c.fields().Debug("update delivery disabled")
			c.record(ctx, Idle, "", "update delivery disabled")
		}
	})
	return c.State()
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Snapshot returns the current state together with its history.
func (c *Coordinator) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	history := make([]Transition, len(c.history))
	copy(history, c.history)
	return Snapshot{
		CheckID:  c.checkID,
		Strategy: c.cfg.Strategy,
		State:    c.state,
		Latest:   c.latest,
		History:  history,
	}
}

// runManaged consumes provider events until one terminal event arrives.
func (c *Coordinator) runManaged(ctx context.Context) {
	c.to(ctx, Checking, "", "")
	events := c.provider.CheckAndNotify(ctx)

	for {
		var ev provider.Event
		var ok bool
		select {
		case <-ctx.Done():
			c.fields().WithError(ctx.Err()).Info("update check abandoned")
			return
		case ev, ok = <-events:
		}

		if !ok {
			// Stream ended without a verdict.
			if c.State() == Downloading {
				c.fail(ctx, apperrors.New(apperrors.CodeProvider, "provider stopped before the download finished", nil))
				return
			}
			c.to(ctx, NoUpdateFound, "", "provider reported nothing")
			c.to(ctx, Idle, "", "")
			return
		}

		switch ev.Kind {
		case provider.KindAvailable:
			c.setLatest(ev.Version)
			c.to(ctx, UpdateAvailable, "", "version "+ev.Version)
			c.to(ctx, Downloading, "", "")
		case provider.KindNotAvailable:
			c.to(ctx, NoUpdateFound, "", "")
			c.to(ctx, Idle, "", "")
			return
		case provider.KindError:
			err := ev.Err
			if err == nil {
				err = apperrors.New(apperrors.CodeProvider, "provider error", nil)
			}
			c.fail(ctx, err)
			return
		case provider.KindDownloaded:
			if c.State() == Checking {
				c.setLatest(ev.Version)
				c.to(ctx, UpdateAvailable, "", "version "+ev.Version)
				c.to(ctx, Downloading, "", "")
			}
			c.to(ctx, Downloaded, "", "version "+ev.Version)
			c.confirmRestart(ctx, ev)
			return
		}
	}
}

func (c *Coordinator) confirmRestart(ctx context.Context, ev provider.Event) {
	idx, err := c.prompter.Prompt(ctx, prompt.Dialog{
		Title:   "Update ready",
		Body:    c.restartBody(ev),
		Buttons: []string{ButtonRestart, ButtonLater},
		Modal:   true,
		Cancel:  1,
	})
	if err != nil {
		c.fields().WithError(err).Debug("restart prompt unanswered, deferring")
	}
	if err != nil || idx != 0 {
		c.to(ctx, Deferred, "", "update stays staged until exit")
		return
	}

	c.to(ctx, RestartRequested, "", "")
	if err := c.provider.QuitAndInstall(); err != nil {
		code := apperrors.CodeOf(err)
		if code == apperrors.CodeUnknown {
			code = apperrors.CodeProvider
		}
		c.fields().WithError(err).WithField("code", code).Warn("install for restart failed")
		c.record(ctx, RestartRequested, code, err.Error())
	}
}

// runNotifyOnly queries the release feed and, when a newer release exists,
// offers the download page.
func (c *Coordinator) runNotifyOnly(ctx context.Context) {
	c.to(ctx, Checking, "", "")
	if c.releases == nil {
		c.fail(ctx, apperrors.New(apperrors.CodeConfigurationError, "no release source configured", nil))
		return
	}

	info, err := c.releases.FetchLatest(ctx, c.cfg.OwnerRepo)
	if err != nil {
		if ctx.Err() != nil {
			c.fields().WithError(err).Info("update check abandoned")
			return
		}
		c.fail(ctx, err)
		return
	}
	c.setLatest(info.Tag)

	if !version.IsNewer(info.Tag, c.cfg.CurrentVersion) {
		c.to(ctx, NoUpdateFound, "", "latest "+info.Tag)
		c.to(ctx, Idle, "", "")
		return
	}

	c.to(ctx, UpdateAvailable, "", "version "+info.Tag)
	c.to(ctx, AwaitingUserAck, "", "")

	idx, err := c.prompter.Prompt(ctx, prompt.Dialog{
		Title:   "Update available",
		Body:    c.notifyBody(info),
		Buttons: []string{ButtonDownload, ButtonLater},
		Modal:   false,
		Cancel:  1,
	})
	if err != nil {
		c.fields().WithError(err).Debug("download prompt unanswered, deferring")
	}
	if err != nil || idx != 0 {
		c.to(ctx, Deferred, "", "")
		return
	}

	url := release.DownloadPageURL(c.cfg.WebURL, c.cfg.OwnerRepo)
	if c.opener == nil {
		c.to(ctx, Deferred, apperrors.CodeConfigurationError, "no link opener configured")
		return
	}
	if err := c.opener.Open(url); err != nil {
		c.fields().WithError(err).WithField("url", url).Warn("could not open download page")
		c.to(ctx, Deferred, apperrors.CodeUnknown, err.Error())
		return
	}
	c.to(ctx, OpenedDownloadPage, "", url)
}

// fail moves to CheckFailed and then settles at Idle.
func (c *Coordinator) fail(ctx context.Context, err error) {
	code := apperrors.CodeOf(err)
	c.fields().WithError(err).WithField("code", code).Warn("update check failed")
	c.to(ctx, CheckFailed, code, err.Error())
	c.to(ctx, Idle, "", "")
}

// to applies a transition. Illegal edges are logged and ignored.
func (c *Coordinator) to(ctx context.Context, next State, code apperrors.Code, message string) {
	c.mu.Lock()
	from := c.state
	if !CanTransition(from, next) {
		c.mu.Unlock()
		c.fields().WithFields(log.Fields{"from": from, "to": next}).Error("illegal update state transition")
		return
	}
	tr := Transition{From: from, To: next, At: c.now(), Code: code, Message: message}
	c.state = next
	c.history = append(c.history, tr)
	observer := c.observer
	c.mu.Unlock()

	entry := c.fields().WithFields(log.Fields{"from": from, "state": next})
	if code != "" {
		entry = entry.WithField("code", code)
	}
	if message != "" {
		entry = entry.WithField("detail", message)
	}
	entry.Info("update state changed")

	c.write(ctx, tr.At, next, code, message)
	if observer != nil {
		observer(tr)
	}
}

// record journals a note about the current state without changing it.
func (c *Coordinator) record(ctx context.Context, state State, code apperrors.Code, message string) {
	c.write(ctx, c.now(), state, code, message)
}

func (c *Coordinator) write(ctx context.Context, at time.Time, state State, code apperrors.Code, message string) {
	c.mu.Lock()
	checkID := c.checkID
	c.mu.Unlock()

	err := c.journal.Record(context.WithoutCancel(ctx), journal.Entry{
		CheckID:    checkID,
		RecordedAt: at,
		Strategy:   c.cfg.Strategy.String(),
		State:      state.String(),
		Code:       string(code),
		Message:    message,
	})
	if err != nil {
		c.fields().WithError(err).Debug("journal write failed")
	}
}

func (c *Coordinator) setLatest(tag string) {
	c.mu.Lock()
	c.latest = tag
	c.mu.Unlock()
}

func (c *Coordinator) fields() *log.Entry {
	c.mu.Lock()
	checkID := c.checkID
	c.mu.Unlock()
	return log.WithFields(log.Fields{
		"check_id": checkID,
		"strategy": c.cfg.Strategy.String(),
	})
}

func (c *Coordinator) restartBody(ev provider.Event) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s %s** has been downloaded.\n\n", c.cfg.ProductName, ev.Version)
	fmt.Fprintf(&b, "Restart now to finish installing, or choose *%s* and it will be installed when %s exits.", ButtonLater, c.cfg.ProductName)
	if notes := strings.TrimSpace(ev.Notes); notes != "" {
		b.WriteString("\n\n---\n\n")
		b.WriteString(notes)
	}
	return b.String()
}

func (c *Coordinator) notifyBody(info *release.Info) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s %s** is available. You are running %s.\n\n", c.cfg.ProductName, info.Tag, c.cfg.CurrentVersion)
	b.WriteString("This copy cannot update itself. Choose *Download* to open the release page.")
	if notes := strings.TrimSpace(info.Body); notes != "" {
		b.WriteString("\n\n---\n\n")
		b.WriteString(notes)
	}
	return b.String()
}
