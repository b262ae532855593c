package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/lherron/boardq/internal/cli/appctx"
	"github.com/lherron/boardq/internal/events"
	"github.com/lherron/boardq/internal/id"
	"github.com/lherron/boardq/internal/render"
)

type logOptions struct {
	json   bool
	limit  int
	cursor string
}

// NewLogCommand creates the log command.
func NewLogCommand() *cobra.Command {
	opts := &logOptions{}

	cmd := &cobra.Command{
		Use:   "log [ID]",
		Short: "Show the history of applied board writes",
		Long: `Show the event log, newest first. Every write that reached the local
database is recorded with its version; stale writes are not.

Examples:
  boardq log                 # Whole board
  boardq log c1 --limit 5    # One card
  boardq log --cursor <c>    # Next page
`,
		Args: cobra.MaximumNArgs(1),
		RunE: appctx.WithApp(appctx.DefaultOptions(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			q := events.Query{Limit: opts.limit, Cursor: opts.cursor}
			if len(args) == 1 {
				q.ResourceID = args[0]
			}
			page, err := events.NewWriter(app.DB.DB).List(q)
			if err != nil {
				return exitError(ExitUsage, err)
			}

			r := render.NewRenderer(cmd.OutOrStdout(), render.Options{})
			if opts.json {
				return r.RenderJSON(page)
			}

			rows := make([][]string, 0, len(page.Events))
			for _, e := range page.Events {
				rows = append(rows, []string{
					strconv.FormatInt(e.ID, 10),
					e.Timestamp,
					e.EventType,
					id.Short(e.ResourceID),
					strconv.FormatInt(e.Version, 10),
				})
			}
			if err := r.RenderTable([]string{"ID", "TIME", "EVENT", "RESOURCE", "VERSION"}, rows); err != nil {
				return err
			}
			if page.NextCursor != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "next: --cursor %s\n", page.NextCursor)
			}
			return nil
		}),
	}

	cmd.Flags().BoolVar(&opts.json, "json", false, "Output as JSON")
	cmd.Flags().IntVar(&opts.limit, "limit", 50, "Limit number of events (0 = unlimited)")
	cmd.Flags().StringVar(&opts.cursor, "cursor", "", "Pagination cursor from previous page")

	return cmd
}
