package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/boardq/internal/adapter"
	"github.com/lherron/boardq/internal/cli/appctx"
)

type addOptions struct {
	client   adapter.ClientRecord
	schedule adapter.Schedule
}

// NewAddCommand creates the add command.
func NewAddCommand() *cobra.Command {
	opts := &addOptions{}

	cmd := &cobra.Command{
		Use:   "add <bucket> --name <name>",
		Short: "Add a client card to the end of a column",
		Long: `Adds a card to the end of the given column. The column may be named by
id, label or id prefix. The new card's id is printed on success.`,
		Args: cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.WithBoard(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			store := app.Session.Store()
			bucketID, err := resolveBucket(store.Snapshot(), args[0])
			if err != nil {
				return err
			}

			rec := opts.client
			rec.Phone = adapter.NormalizePhone(rec.Phone)
			if opts.schedule.Date != "" || opts.schedule.Time != "" {
				s := opts.schedule
				rec.Scheduling = &s
			}
			if err := rec.Validate(); err != nil {
				return exitError(ExitUsage, err)
			}
			payload, err := rec.Payload()
			if err != nil {
				return err
			}

			item, err := store.CreateItem(bucketID, payload)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), item.ID)
			return nil
		}),
	}

	cmd.Flags().StringVar(&opts.client.Name, "name", "", "Client name (required)")
	cmd.Flags().StringVar(&opts.client.Phone, "phone", "", "Phone number; non-digits are stripped")
	cmd.Flags().StringVar(&opts.client.Description, "description", "", "Free-form notes")
	cmd.Flags().StringVar(&opts.client.Date, "date", "", "Contact date")
	cmd.Flags().StringVar(&opts.client.UserID, "user", "", "Owning user id")
	cmd.Flags().StringVar(&opts.schedule.Date, "schedule-date", "", "Follow-up date")
	cmd.Flags().StringVar(&opts.schedule.Time, "schedule-time", "", "Follow-up time")
	cmd.Flags().StringVar(&opts.schedule.Notes, "schedule-notes", "", "Follow-up notes")

	return cmd
}
