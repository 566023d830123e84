package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/JohnyZhand/CoraBooks"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Reconcile stale upload intents",
	Long: `Reconcile pending records older than the threshold against the object store.

For each stale pending record it:
  1. Promotes it when the object exists with the declared size
  2. Deletes the object and the record when the sizes differ
  3. Removes the record when no object was ever uploaded

Fresh and already committed records are left alone.`,
	RunE: runCleanup,
}

func init() {
	cleanupCmd.Flags().Duration("threshold", 6*time.Hour, "minimum age of a pending record before it is reconciled (env: CORABOOKS_CLEANUP_THRESHOLD)")
	rootCmd.AddCommand(cleanupCmd)
}

func runCleanup(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := appFromContext(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	threshold := a.cfg.Cleanup.Threshold
	slog.Info("starting cleanup", "threshold", threshold)

	result, err := a.service.Cleanup(ctx, corabooks.CleanupOptions{Threshold: threshold})
	if err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}

	slog.Info("cleanup complete",
		"scanned", result.Scanned,
		"kept", result.Kept,
		"removed", result.Removed,
		"promoted", result.Promoted,
		"deleted_objects", result.DeletedObjects,
	)
	fmt.Fprintf(cmd.OutOrStdout(), "scanned=%d kept=%d removed=%d promoted=%d deleted_objects=%d\n",
		result.Scanned, result.Kept, result.Removed, result.Promoted, result.DeletedObjects)
	return nil
}
