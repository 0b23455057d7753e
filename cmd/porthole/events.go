package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rodaine/table"
	"github.com/spf13/cobra"

	"porthole/internal/journal"
)

const defaultEventsLimit = 20

type eventsOptions struct {
	limit int
}

func newEventsCommand() *cobra.Command {
	opts := &eventsOptions{}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Show recently recorded update lifecycle events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := journalPath()
			if err != nil {
				return err
			}
			j, err := journal.Open(cmd.Context(), path)
			if err != nil {
				return err
			}
			defer func() { _ = j.Close() }()
			return listEvents(cmd.Context(), cmd.OutOrStdout(), j, opts.limit)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", defaultEventsLimit, "Maximum number of events to show")
	return cmd
}

type eventSource interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

var headerStyle = lipgloss.NewStyle().Bold(true)

// listEvents prints the newest entries first.
func listEvents(ctx context.Context, w io.Writer, src eventSource, limit int) error {
	if limit <= 0 {
		return fmt.Errorf("limit must be positive, got %d", limit)
	}
	entries, err := src.Recent(ctx, limit)
	if err != nil {
		return fmt.Errorf("read events: %w", err)
	}
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(w, "No update events recorded.")
		return nil
	}

	tbl := table.New("TIME", "CHECK", "STRATEGY", "STATE", "CODE", "MESSAGE").
		WithWriter(w).
		WithHeaderFormatter(func(format string, vals ...interface{}) string {
			return headerStyle.Render(fmt.Sprintf(format, vals...))
		})
	for _, e := range entries {
		tbl.AddRow(
			e.RecordedAt.Local().Format(time.DateTime),
			shortID(e.CheckID),
			e.Strategy,
			e.State,
			e.Code,
			strings.TrimSpace(e.Message),
		)
	}
	tbl.Print()
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
