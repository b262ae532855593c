package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/boardq/internal/board"
	"github.com/lherron/boardq/internal/cli/appctx"
)

// NewMvCommand creates the mv command.
func NewMvCommand() *cobra.Command {
	var index int

	cmd := &cobra.Command{
		Use:   "mv <item> <bucket>",
		Short: "Move a card to another column",
		Long: `Moves a card into the given column, appended by default or inserted at
--index. Moving within the card's own column reorders it.`,
		Args: cobra.ExactArgs(2),
		RunE: appctx.WithApp(appctx.WithBoard(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			snap := app.Session.Snapshot()
			itemID, err := resolveItem(snap, args[0])
			if err != nil {
				return err
			}
			bucketID, err := resolveBucket(snap, args[1])
			if err != nil {
				return err
			}

			after, err := app.Session.Apply(board.MoveItem{ItemID: itemID, TargetBucketID: bucketID, TargetIndex: index})
			if err != nil {
				return err
			}
			moved, _ := after.Item(itemID)
			fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s #%d\n", itemID, bucketID, moved.Order)
			return nil
		}),
	}

	cmd.Flags().IntVar(&index, "index", board.Append, "Target slot in the column (default: append)")

	return cmd
}

// NewReorderCommand creates the reorder command.
func NewReorderCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <bucket> <from> <to>",
		Short: "Move the card at one slot of a column to another slot",
		Args:  cobra.ExactArgs(3),
		RunE: appctx.WithApp(appctx.WithBoard(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			bucketID, err := resolveBucket(app.Session.Snapshot(), args[0])
			if err != nil {
				return err
			}
			from, err := parseIndex("from", args[1])
			if err != nil {
				return err
			}
			to, err := parseIndex("to", args[2])
			if err != nil {
				return err
			}

			after, err := app.Session.Apply(board.ReorderWithinBucket{BucketID: bucketID, FromIndex: from, ToIndex: to})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", bucketID, after.ItemIDs(bucketID))
			return nil
		}),
	}
}
