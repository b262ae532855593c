package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lherron/boardq/internal/cli/appctx"
	"github.com/lherron/boardq/internal/snapshot"
)

type exportOptions struct {
	output  string
	revOnly bool
}

// NewExportCommand creates the export command.
func NewExportCommand() *cobra.Command {
	opts := &exportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the board as canonical JSON",
		Long: `Export writes the board as canonical JSON: buckets by position, items by
column then order, sorted keys, no insignificant whitespace. The same
board always exports to the same bytes, and the rev printed to stderr is
the SHA-256 of those bytes. The export is a valid 'init --seed' file.`,
		Args: cobra.NoArgs,
		RunE: appctx.WithApp(appctx.WithBoard(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			data, err := snapshot.CanonicalJSON(app.Session.Snapshot())
			if err != nil {
				return err
			}
			rev := snapshot.Rev(data)

			if opts.revOnly {
				fmt.Fprintln(cmd.OutOrStdout(), rev)
				return nil
			}
			if opts.output != "" {
				if err := os.WriteFile(opts.output, append(data, '\n'), 0644); err != nil {
					return fmt.Errorf("failed to write export: %w", err)
				}
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "rev: %s\n", rev)
			return nil
		}),
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write to a file instead of stdout")
	cmd.Flags().BoolVar(&opts.revOnly, "rev", false, "Print only the rev")

	return cmd
}
