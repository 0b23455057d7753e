package main

import (
	"context"
	"os"
	"runtime"
	"strings"

	log "github.com/sirupsen/logrus"

	"porthole/internal/channel"
	"porthole/internal/config"
	"porthole/internal/journal"
	"porthole/internal/release"
)

// environment holds the process facts strategy detection depends on.
type environment struct {
	goos       string
	version    string
	executable string
	lookupEnv  func(string) (string, bool)
}

func currentEnvironment() environment {
	exe, err := os.Executable()
	if err != nil {
		log.WithError(err).Debug("cannot locate executable")
	}
	return environment{
		goos:       runtime.GOOS,
		version:    Version,
		executable: exe,
		lookupEnv:  os.LookupEnv,
	}
}

// detectStrategy picks the update strategy for this run. The update.enabled
// setting is a kill switch that wins over classification.
func detectStrategy(env environment) channel.Strategy {
	if !config.GetBool(config.KeyUpdateEnabled) {
		log.Debug("update delivery switched off by configuration")
		return channel.Disabled
	}
	packaged := channel.IsPackaged(env.version, env.executable)
	signals := channel.DetectSignals(env.lookupEnv, config.GetString(config.KeyUpdatePortableEnv))
	strategy := channel.Classify(env.goos, packaged, signals)
	log.WithFields(log.Fields{
		"platform": env.goos,
		"packaged": packaged,
		"portable": signals.PortableDir != "",
		"strategy": strategy,
	}).Debug("update strategy selected")
	return strategy
}

func newReleaseClient() *release.Client {
	opts := []release.Option{
		release.WithBaseURL(config.GetString(config.KeyUpdateAPIURL)),
		release.WithProductID(config.GetString(config.KeyUpdateProductID)),
	}
	if timeout := config.GetDuration(config.KeyUpdateTimeout); timeout > 0 {
		opts = append(opts, release.WithTimeout(timeout))
	}
	return release.NewClient(opts...)
}

func journalPath() (string, error) {
	if path := strings.TrimSpace(config.GetString(config.KeyJournalPath)); path != "" {
		return path, nil
	}
	return journal.DefaultPath()
}

// openJournal opens the event journal. A journal that cannot be opened is
// replaced by journal.Discard so update delivery still runs.
func openJournal(ctx context.Context) (journal.Recorder, func()) {
	path, err := journalPath()
	if err == nil {
		var j *journal.Journal
		j, err = journal.Open(ctx, path)
		if err == nil {
			return j, func() { _ = j.Close() }
		}
	}
	log.WithError(err).Warn("event journal unavailable, events will not be recorded")
	return journal.Discard, func() {}
}
