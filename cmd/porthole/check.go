package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"porthole/internal/config"
	"porthole/internal/coordinator"
	apperrors "porthole/internal/errors"
	"porthole/internal/release"
	"porthole/internal/version"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

type checkOptions struct {
	format string
}

// checkReport is the outcome of one release query.
type checkReport struct {
	Repository      string     `json:"repository" yaml:"repository"`
	Strategy        string     `json:"strategy" yaml:"strategy"`
	Current         string     `json:"current" yaml:"current"`
	Latest          string     `json:"latest" yaml:"latest"`
	UpdateAvailable bool       `json:"update_available" yaml:"update_available"`
	PublishedAt     *time.Time `json:"published_at,omitempty" yaml:"published_at,omitempty"`
	DownloadPage    string     `json:"download_page,omitempty" yaml:"download_page,omitempty"`
	Notes           string     `json:"notes,omitempty" yaml:"notes,omitempty"`
}

func newCheckCommand() *cobra.Command {
	opts := &checkOptions{}

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Query the release feed once and report whether an update exists",
		Long: `Check performs a single release query and prints the result. It never
downloads or installs anything and runs whatever the build's update
strategy is.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "output", "o", formatText, "Output format: text, json, yaml")
	return cmd
}

func (o *checkOptions) run(cmd *cobra.Command) error {
	if err := validateFormat(o.format); err != nil {
		return err
	}

	var spin progress = noProgress{}
	if o.format == formatText && isTerminal(cmd.ErrOrStderr()) {
		spin = newLineSpinner(cmd.ErrOrStderr(), defaultSpinnerDelay)
	}

	repo := config.OwnerRepo()
	base := checkReport{
		Repository:   repo,
		Strategy:     detectStrategy(currentEnvironment()).String(),
		Current:      Version,
		DownloadPage: release.DownloadPageURL(release.WebURL(config.GetString(config.KeyUpdateAPIURL)), repo),
	}
	return runCheck(cmd.Context(), cmd.OutOrStdout(), newReleaseClient(), base, o.format, spin)
}

func validateFormat(format string) error {
	switch format {
	case formatText, formatJSON, formatYAML:
		return nil
	default:
		return fmt.Errorf("invalid output format %q (use text, json, or yaml)", format)
	}
}

// runCheck fills report from one query and writes it in format. A
// DownloadPage already set on report is kept.
func runCheck(ctx context.Context, w io.Writer, q coordinator.Querier, report checkReport, format string, spin progress) error {
	if spin == nil {
		spin = noProgress{}
	}
	spin.Stage(fmt.Sprintf("Asking %s for its latest release...", report.Repository))
	info, err := q.FetchLatest(ctx, report.Repository)
	spin.Stop()
	if err != nil {
		return fmt.Errorf("check for updates (%s): %w", apperrors.CodeOf(err).Category(), err)
	}

	report.Latest = info.Tag
	report.UpdateAvailable = version.IsNewer(info.Tag, report.Current)
	if report.DownloadPage == "" {
		report.DownloadPage = info.HTMLURL
	}
	if !info.PublishedAt.IsZero() {
		published := info.PublishedAt.UTC()
		report.PublishedAt = &published
	}
	if format != formatText {
		report.Notes = strings.TrimSpace(info.Body)
	}

	return writeReport(w, report, format)
}

func writeReport(w io.Writer, report checkReport, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(report); err != nil {
			return err
		}
		return enc.Close()
	}

	latest := report.Latest
	if report.PublishedAt != nil {
		latest = fmt.Sprintf("%s (published %s)", latest, report.PublishedAt.Format("2006-01-02"))
	}
	verdict := "no, you are up to date"
	if report.UpdateAvailable {
		verdict = "yes"
	}
	_, _ = fmt.Fprintf(w, "Repository:       %s\n", report.Repository)
	_, _ = fmt.Fprintf(w, "Strategy:         %s\n", report.Strategy)
	_, _ = fmt.Fprintf(w, "Current version:  %s\n", report.Current)
	_, _ = fmt.Fprintf(w, "Latest release:   %s\n", latest)
	_, _ = fmt.Fprintf(w, "Update available: %s\n", verdict)
	if report.UpdateAvailable && report.DownloadPage != "" {
		_, _ = fmt.Fprintf(w, "Download:         %s\n", report.DownloadPage)
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
