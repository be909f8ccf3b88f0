package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/phanxgames/gesture"
	"github.com/phanxgames/gesture/recording"
	"github.com/phanxgames/gesture/script"
)

// identifiers returns the built-in recognizers followed by the scripts in
// dir, if any.
func identifiers(dir string) ([]gesture.Identifier, error) {
	ids := builtins()
	if dir == "" {
		return ids, nil
	}
	scripts, err := script.LoadDir(dir)
	if err != nil {
		return nil, err
	}
	for _, s := range scripts {
		ids = append(ids, s)
	}
	return ids, nil
}

func newReplayCmd(a *app) *cobra.Command {
	var (
		scriptsDir string
		record     bool
	)

	cmd := &cobra.Command{
		Use:   "replay <script>",
		Short: "Replay a JSON or YAML contact script and print recognized gestures",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read script: %w", err)
			}
			runner, err := gesture.LoadTestScript(data)
			if err != nil {
				return err
			}
			ids, err := identifiers(scriptsDir)
			if err != nil {
				return err
			}

			clock := gesture.NewManualClock(time.Time{})
			arb := gesture.New(
				gesture.WithConfig(a.cfg),
				gesture.WithClock(clock),
				gesture.WithLogger(a.log),
			)
			defer arb.Close()

			if record {
				store, err := recording.Open(cmd.Context(), recording.Options{Path: a.cfg.Recording.Path, Logger: &a.log})
				if err != nil {
					return err
				}
				defer store.Close()
				arb.OnEpisodeEnd(store.Hook())
			}

			out := newPrinter(cmd.OutOrStdout())
			start := clock.Now()
			d := arb.NewDelegate()
			for _, id := range ids {
				d.On(id, func(ev *gesture.Event) error {
					out.line(ev.Identifier, "%6s  data=%v", clock.Now().Sub(start), ev.Data)
					return nil
				})
			}

			episodes := 0
			arb.OnEpisodeEnd(func(ep gesture.Episode) {
				episodes++
				out.muted("episode %s: %d contacts, %d matches, %s",
					ep.ID, len(ep.Sequences), len(ep.Matches), ep.Ended.Sub(ep.Started))
				for _, f := range ep.Faults {
					out.fault("fault: %v", f)
				}
			})

			out.title("replaying %s", args[0])
			runner.Run(gesture.NewInjector(arb, clock))
			out.title("%d episodes", episodes)
			return nil
		},
	}

	cmd.Flags().StringVar(&scriptsDir, "identifiers", "", "directory of JavaScript identifiers to load")
	cmd.Flags().BoolVar(&record, "record", false, "save episodes to the recording database")
	return cmd
}
