package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/lherron/boardq/internal/board"
	"github.com/lherron/boardq/internal/cli/appctx"
	"github.com/lherron/boardq/internal/render"
	"github.com/lherron/boardq/internal/session"
)

type replayOptions struct {
	diff   bool
	dryRun bool
	width  float64
}

// NewReplayCommand creates the replay command.
func NewReplayCommand() *cobra.Command {
	opts := &replayOptions{}

	cmd := &cobra.Command{
		Use:   "replay <script.yaml>",
		Short: "Replay a recorded gesture script against the board",
		Long: `Replay feeds a YAML gesture script through a board session and prints
the resulting board. Steps carry millisecond offsets, so edge-paging
delays and cooldowns behave exactly as they would live.

Example script:

  name: move a lead forward
  viewport: 800
  steps:
    - {at: 0, event: drag_start, item: c1}
    - {at: 10, event: pointer, x: 790}
    - {at: 410, event: tick}
    - {at: 420, event: drag_over, target: col_2}
    - {at: 430, event: drag_end, target: col_2}

Events: drag_start, drag_over, drag_end, drag_cancel, pick_up, key_move
(dir: up|down|left|right), drop, pointer (x), tick, scroll (offset,
page_width), resize (width), move (item, bucket, index), reorder
(bucket, from, to), delete (item).

A failing step is reported and the replay continues. Changes are
persisted unless --dry-run is given.`,
		Args: cobra.ExactArgs(1),
		RunE: appctx.WithApp(appctx.WithBoard(), func(app *appctx.App, cmd *cobra.Command, args []string) error {
			return runReplay(app, cmd, args[0], opts)
		}),
	}

	cmd.Flags().BoolVar(&opts.diff, "diff", false, "Print a unified diff of the board before and after")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Do not persist any change")
	cmd.Flags().Float64Var(&opts.width, "width", 0, "Viewport width when the script sets none")

	return cmd
}

func runReplay(app *appctx.App, cmd *cobra.Command, path string, opts *replayOptions) error {
	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	f, err := os.Open(path)
	if err != nil {
		return exitError(ExitUsage, fmt.Errorf("failed to open script: %w", err))
	}
	script, err := session.LoadScript(f)
	f.Close()
	if err != nil {
		return exitError(ExitUsage, err)
	}
	events, err := script.Events(time.Unix(0, 0))
	if err != nil {
		return exitError(ExitUsage, err)
	}

	start := app.Session.Snapshot()
	sessOpts := []session.Option{
		session.WithLogger(app.Log),
		session.WithCancelPolicy(app.Config.CancelPolicy()),
		session.WithPager(app.Config.PagerSettings(), opts.width),
		session.WithPageHandler(func(index int) {
			fmt.Fprintf(out, "page -> %d\n", index)
		}),
	}
	if !opts.dryRun {
		sessOpts = append(sessOpts, session.WithScheduler(app.Scheduler))
	}
	sess, err := session.New(board.Seed{Buckets: start.Buckets(), Items: start.Items()}, sessOpts...)
	if err != nil {
		return err
	}

	// Events leads with the viewport resize when the script sets one; only
	// the script's own steps are numbered and counted.
	lead := len(events) - len(script.Steps)
	failed := 0
	for i, ev := range events {
		err := sess.Handle(ev)
		if i < lead {
			if err != nil {
				return exitError(ExitUsage, fmt.Errorf("apply viewport: %w", err))
			}
			continue
		}
		if err != nil {
			failed++
			fmt.Fprintf(errOut, "event %d (%s): %v\n", i+1-lead, ev.Kind, err)
		}
	}

	before := render.Outline(render.Views(start, ""), false)
	after := render.Outline(render.Views(sess.Snapshot(), ""), false)
	if opts.diff {
		diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(before),
			B:        difflib.SplitLines(after),
			FromFile: "before",
			ToFile:   "after",
			Context:  3,
		})
		if err != nil {
			return err
		}
		if diff == "" {
			fmt.Fprintln(out, "no changes")
		}
		fmt.Fprint(out, diff)
	} else {
		fmt.Fprint(out, after)
	}

	name := script.Name
	if name == "" {
		name = path
	}
	fmt.Fprintf(errOut, "replayed %s: %d event(s), %d failed\n", name, len(script.Steps), failed)
	return nil
}
