package main

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"porthole/internal/config"
	"porthole/internal/logging"
	"porthole/internal/release"
)

type rootOptions struct {
	logLevel      string
	logFile       string
	repo          string
	noUpdate      bool
	markdownStyle string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "porthole",
		Short: "Application shell with built-in update delivery",
		Long: `Porthole runs its host surface and, in the background, checks for a newer
release once per start.

Installer builds download and stage updates and ask before restarting.
Portable Windows builds only announce new releases and link to the
download page. Development builds never check.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			logging.Close()
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runHost(cmd.Context())
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&opts.logFile, "log-file", "", `log file path, or "console" for stderr`)
	flags.StringVar(&opts.repo, "repo", "", "release repository as owner/repo")
	flags.BoolVar(&opts.noUpdate, "no-update", false, "disable update delivery for this run")
	flags.StringVar(&opts.markdownStyle, "markdown-style", "", "release notes style (auto, dark, light, plain)")

	cmd.AddCommand(
		newRunCommand(),
		newCheckCommand(),
		newEventsCommand(),
		newConfigCommand(),
		newRollbackCommand(),
		newVersionCommand(),
	)
	return cmd
}

// setup loads configuration with explicitly set flags on top, then
// installs the logger.
func (o *rootOptions) setup(cmd *cobra.Command) error {
	if err := config.Initialize(); err != nil {
		return fmt.Errorf("initialize config: %w", err)
	}

	overrides, err := o.overrides(cmd)
	if err != nil {
		return err
	}
	if err := config.ApplyOverrides(overrides); err != nil {
		return fmt.Errorf("apply flags: %w", err)
	}

	logPath := strings.TrimSpace(config.GetString(config.KeyLogFile))
	if logPath == "" && !runsHost(cmd) {
		logPath = logging.ConsoleOutput
	}
	if err := logging.Init(logging.Options{
		Level:      config.GetString(config.KeyLogLevel),
		Path:       logPath,
		MaxSizeMB:  config.GetInt(config.KeyLogMaxSizeMB),
		MaxBackups: config.GetInt(config.KeyLogMaxBackups),
		MaxAgeDays: config.GetInt(config.KeyLogMaxAgeDays),
	}); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	log.WithFields(log.Fields{"command": cmd.Name(), "version": Version}).Debug("porthole starting")
	return nil
}

// overrides collects the flags the user actually set.
func (o *rootOptions) overrides(cmd *cobra.Command) (map[string]any, error) {
	flags := cmd.Flags()
	out := map[string]any{}
	if flags.Changed("log-level") {
		out[config.KeyLogLevel] = o.logLevel
	}
	if flags.Changed("log-file") {
		out[config.KeyLogFile] = o.logFile
	}
	if flags.Changed("repo") {
		owner, repo, err := release.ParseOwnerRepo(o.repo)
		if err != nil {
			return nil, err
		}
		out[config.KeyUpdateOwner] = owner
		out[config.KeyUpdateRepo] = repo
	}
	if flags.Changed("no-update") && o.noUpdate {
		out[config.KeyUpdateEnabled] = false
	}
	if flags.Changed("markdown-style") {
		out[config.KeyMarkdownStyle] = o.markdownStyle
	}
	return out, nil
}

// runsHost reports whether cmd starts the host surface, which owns the
// terminal and therefore logs to a file.
func runsHost(cmd *cobra.Command) bool {
	return cmd == cmd.Root() || cmd.Name() == "run"
}
