package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/boardq/internal/board"
	"github.com/lherron/boardq/internal/cli/appctx"
)

// NewRmCommand creates the rm command.
func NewRmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <item>...",
		Short: "Remove cards",
		Long: `Removes the given cards. Every reference is resolved before anything
is deleted, so a typo removes nothing.`,
		Args: cobra.MinimumNArgs(1),
		RunE: appctx.WithApp(appctx.WithBoard(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			snap := app.Session.Snapshot()
			ids := make([]string, 0, len(args))
			for _, ref := range args {
				itemID, err := resolveItem(snap, ref)
				if err != nil {
					return err
				}
				ids = append(ids, itemID)
			}

			for _, itemID := range ids {
				if _, err := app.Session.Apply(board.DeleteItem{ItemID: itemID}); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", itemID)
			}
			return nil
		}),
	}
}
