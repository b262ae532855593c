package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/boardq/internal/adapter"
	"github.com/lherron/boardq/internal/board"
	"github.com/lherron/boardq/internal/cli/appctx"
)

// NewBucketCommand creates the bucket command group.
func NewBucketCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "bucket",
		Aliases: []string{"column"},
		Short:   "Manage columns",
	}

	cmd.AddCommand(newBucketAddCommand())
	cmd.AddCommand(newBucketRenameCommand())
	cmd.AddCommand(newBucketRmCommand())
	cmd.AddCommand(newBucketMvCommand())

	return cmd
}

func newBucketAddCommand() *cobra.Command {
	var color string

	cmd := &cobra.Command{
		Use:   "add <label>",
		Short: "Append a column",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.WithBoard(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			col := adapter.ColumnRecord{Label: args[0], Color: color}
			if err := col.Validate(); err != nil {
				return exitError(ExitUsage, err)
			}
			payload, err := col.Payload()
			if err != nil {
				return err
			}
			b, err := app.Session.Store().CreateBucket(payload)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), b.ID)
			return nil
		}),
	}

	cmd.Flags().StringVar(&color, "color", "", "Display color, e.g. bg-blue-500")

	return cmd
}

func newBucketRenameCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rename <bucket> <label>",
		Short: "Change a column's label, keeping its color",
		Args:  cobra.ExactArgs(2),
		RunE: appctx.WithApp(appctx.WithBoard(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			snap := app.Session.Snapshot()
			bucketID, err := resolveBucket(snap, args[0])
			if err != nil {
				return err
			}
			b, _ := snap.Bucket(bucketID)

			payload, err := relabel(b.Payload, args[1])
			if err != nil {
				return exitError(ExitUsage, err)
			}
			if _, err := app.Session.Apply(board.UpdateBucket{BucketID: bucketID, Payload: payload}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s renamed to %q\n", bucketID, args[1])
			return nil
		}),
	}
}

// relabel sets the label of a column payload, keeping every other field.
func relabel(payload json.RawMessage, label string) (json.RawMessage, error) {
	fields := map[string]json.RawMessage{}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &fields); err != nil {
			return nil, fmt.Errorf("bucket payload is not an object: %w", err)
		}
	}
	col := adapter.ColumnRecord{Label: label}
	if err := col.Validate(); err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(col.Label)
	if err != nil {
		return nil, err
	}
	fields["label"] = encoded
	return json.Marshal(fields)
}

func newBucketRmCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <bucket>",
		Short: "Remove a column; its cards move to the first remaining column",
		Args:  cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.WithBoard(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			bucketID, err := resolveBucket(app.Session.Snapshot(), args[0])
			if err != nil {
				return err
			}
			if _, err := app.Session.Apply(board.DeleteBucket{BucketID: bucketID}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", bucketID)
			return nil
		}),
	}
}

func newBucketMvCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mv <bucket> <position>",
		Short: "Move a column to another position",
		Args:  cobra.ExactArgs(2),
		RunE: appctx.WithApp(appctx.WithBoard(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			bucketID, err := resolveBucket(app.Session.Snapshot(), args[0])
			if err != nil {
				return err
			}
			position, err := parseIndex("position", args[1])
			if err != nil {
				return err
			}
			after, err := app.Session.Apply(board.MoveBucket{BucketID: bucketID, TargetPosition: position})
			if err != nil {
				return err
			}
			order := make([]string, 0, after.BucketCount())
			for _, b := range after.Buckets() {
				order = append(order, b.ID)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "columns: %v\n", order)
			return nil
		}),
	}
}
