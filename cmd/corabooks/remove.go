package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/JohnyZhand/CoraBooks"
)

var removeCmd = &cobra.Command{
	Use:   "remove [flags] <id1> [id2] ...",
	Short: "Remove books from the library",
	Long: `Delete records and their stored objects.

Deleting the stored book and cover objects is best-effort; the record is
removed even when the object store is unreachable.

Examples:
  # Remove a single book, asking for confirmation
  corabooks remove 7c9e6679-7425-40de-944b-e07fc1f90ae7

  # Remove without confirmation
  corabooks remove --yes id1 id2`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRemove,
}

var removeYes bool

func init() {
	removeCmd.Flags().BoolVarP(&removeYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := appFromContext(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if !removeYes {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("Remove %d book(s)", len(args)),
			IsConfirm: true,
		}
		if _, promptErr := prompt.Run(); promptErr != nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
			return nil //nolint:nilerr // User cancelled, not an error
		}
	}

	removed := 0
	notFound := 0
	for _, id := range args {
		err := a.service.Delete(ctx, id)
		if errors.Is(err, corabooks.ErrNotFound) {
			notFound++
			slog.Warn("not found", "id", id)
			continue
		}
		if err != nil {
			return fmt.Errorf("remove %s: %w", id, err)
		}
		removed++
		slog.Debug("removed", "id", id)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "removed=%d not_found=%d\n", removed, notFound)
	return nil
}
