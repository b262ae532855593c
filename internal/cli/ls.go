package cli

import (
	"github.com/spf13/cobra"

	"github.com/lherron/boardq/internal/cli/appctx"
	"github.com/lherron/boardq/internal/render"
)

type lsOptions struct {
	format    string
	json      bool
	search    string
	porcelain bool
}

// NewLsCommand creates the ls command.
func NewLsCommand() *cobra.Command {
	opts := &lsOptions{}

	cmd := &cobra.Command{
		Use:   "ls",
		Short: "List the board",
		Long: `Lists every card grouped by column, in board order.

Formats: table (default), outline, tsv, json, yaml. --search keeps only
cards whose name contains the query or whose phone contains its digits.`,
		Args: cobra.NoArgs,
		RunE: appctx.WithApp(appctx.WithBoard(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			format := opts.format
			if opts.json {
				format = string(render.FormatJSON)
			}
			f, err := render.ParseFormat(format)
			if err != nil {
				return exitError(ExitUsage, err)
			}
			r := render.NewRenderer(cmd.OutOrStdout(), render.Options{
				Format:    f,
				Porcelain: opts.porcelain,
				Query:     opts.search,
			})
			return r.Board(app.Session.Snapshot())
		}),
	}

	cmd.Flags().StringVarP(&opts.format, "format", "o", "table", "Output format: table, outline, tsv, json, yaml")
	cmd.Flags().BoolVar(&opts.json, "json", false, "Output as JSON (same as --format json)")
	cmd.Flags().StringVarP(&opts.search, "search", "s", "", "Only cards matching a name or phone fragment")
	cmd.Flags().BoolVar(&opts.porcelain, "porcelain", false, "Stable machine-readable output with full ids")

	return cmd
}
