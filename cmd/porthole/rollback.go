package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"porthole/internal/provider"
)

func newRollbackCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rollback",
		Short: "Restore the binary replaced by the last update",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			exe, err := os.Executable()
			if err != nil {
				return fmt.Errorf("locate executable: %w", err)
			}
			return runRollback(cmd.OutOrStdout(), exe)
		},
	}
}

// runRollback restores the backup of exe, resolving symlinks first so the
// real binary is replaced.
func runRollback(w io.Writer, exe string) error {
	resolved, err := filepath.EvalSymlinks(exe)
	if err != nil {
		return fmt.Errorf("resolve executable: %w", err)
	}
	if err := provider.Rollback(resolved); err != nil {
		if errors.Is(err, provider.ErrNoBackup) {
			return fmt.Errorf("nothing to roll back: %w", err)
		}
		return err
	}
	_, _ = fmt.Fprintf(w, "Restored the previous version of %s.\n", filepath.Base(resolved))
	return nil
}
