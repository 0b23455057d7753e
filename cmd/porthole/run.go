package main

import (
	"context"
	"errors"
	"fmt"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"porthole/internal/channel"
	"porthole/internal/config"
	"porthole/internal/coordinator"
	"porthole/internal/opener"
	"porthole/internal/provider"
	"porthole/internal/release"
	"porthole/internal/ui"
)

func newRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the host surface with background update delivery",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHost(cmd.Context())
		},
	}
}

type programRunner interface {
	Run() (tea.Model, error)
}

// lifecycle is the update run started alongside the host.
type lifecycle interface {
	Run(ctx context.Context) coordinator.State
}

// runHost wires the host surface to one update lifecycle and blocks until
// the user leaves.
func runHost(ctx context.Context) error {
	strategy := detectStrategy(currentEnvironment())
	ownerRepo := config.OwnerRepo()

	recorder, closeRecorder := openJournal(ctx)
	var closeOnce sync.Once
	closeJournal := func() { closeOnce.Do(closeRecorder) }
	defer closeJournal()

	client := newReleaseClient()
	bridge := ui.NewBridge()
	app := ui.NewApp(ui.Config{
		ProductName:   coordinator.DefaultProductName,
		Version:       Version,
		Strategy:      strategy.String(),
		MarkdownStyle: config.GetString(config.KeyMarkdownStyle),
	})
	prog := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(prog.Send)

	var prov provider.Provider = provider.Noop{}
	if strategy == channel.Managed {
		prov = provider.NewRelease(client, ownerRepo, Version,
			provider.WithProductID(config.GetString(config.KeyUpdateProductID)),
			provider.WithQuit(prog.Quit),
		)
	}

	browser := opener.NewSystem()
	browser.Copied = func(url string) {
		bridge.Toast(fmt.Sprintf("No browser found. Copied %s to the clipboard.", url))
	}

	coord := coordinator.New(coordinator.Config{
		Strategy:       strategy,
		CurrentVersion: Version,
		OwnerRepo:      ownerRepo,
		ProductName:    coordinator.DefaultProductName,
		WebURL:         release.WebURL(config.GetString(config.KeyUpdateAPIURL)),
	},
		coordinator.WithProvider(prov),
		coordinator.WithReleases(client),
		coordinator.WithPrompter(bridge),
		coordinator.WithOpener(browser),
		coordinator.WithJournal(recorder),
		coordinator.WithObserver(bridge.Status),
	)

	return runSession(ctx, prog, coord, bridge, prov, closeJournal)
}

// exitUpdater is the part of a provider the host drives after the UI has
// exited.
type exitUpdater interface {
	ApplyOnExit() error
	Relaunch() error
}

// runSession runs the host and the lifecycle, then finishes any update. The
// relaunch starts only after the UI gave the terminal back and
// closeResources ran.
func runSession(ctx context.Context, prog programRunner, run lifecycle, bridge interface{ Close() }, prov exitUpdater, closeResources func()) error {
	hostErr := runLifecycle(ctx, prog, run, bridge)
	return finishUpdate(prov, hostErr, closeResources)
}

func finishUpdate(prov exitUpdater, hostErr error, closeResources func()) error {
	if err := prov.ApplyOnExit(); err != nil {
		log.WithError(err).Warn("could not apply staged update on exit")
	}
	if closeResources != nil {
		closeResources()
	}
	if hostErr != nil {
		return hostErr
	}
	if err := prov.Relaunch(); err != nil {
		return fmt.Errorf("restart after update: %w", err)
	}
	return nil
}

// runLifecycle runs the host program and the update lifecycle side by side.
// Leaving the host cancels the lifecycle; the lifecycle finishing leaves the
// host running.
func runLifecycle(ctx context.Context, prog programRunner, run lifecycle, bridge interface{ Close() }) error {
	if prog == nil {
		return fmt.Errorf("program is nil")
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		defer cancel()
		defer bridge.Close()
		if _, err := prog.Run(); err != nil {
			if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("run UI: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		final := run.Run(ctx)
		log.WithField("state", final).Debug("update lifecycle finished")
		return nil
	})
	return g.Wait()
}
