package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lherron/boardq/internal/remote"
	"github.com/lherron/boardq/internal/render"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// NewVersionCommand creates the version command.
func NewVersionCommand() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Displays version, commit, and build date information.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if asJSON {
				output := map[string]interface{}{
					"version":    Version,
					"commit":     GitCommit,
					"build_date": BuildDate,
					"supported_commands": []string{
						"init", "migrate", "ls", "add", "mv", "reorder", "rm",
						"bucket", "replay", "export", "log", "version",
					},
					"supported_formats": []string{
						string(render.FormatTable), string(render.FormatOutline), string(render.FormatTSV),
						string(render.FormatJSON), string(render.FormatYAML),
					},
					"supported_remotes": []string{
						remote.KindSQLite, remote.KindPostgres, remote.KindHTTP, remote.KindRedis,
					},
				}
				encoder := json.NewEncoder(cmd.OutOrStdout())
				encoder.SetIndent("", "  ")
				return encoder.Encode(output)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "boardq version %s\n", Version)
			fmt.Fprintf(cmd.OutOrStdout(), "  commit: %s\n", GitCommit)
			fmt.Fprintf(cmd.OutOrStdout(), "  built:  %s\n", BuildDate)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")

	return cmd
}
