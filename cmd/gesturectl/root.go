package main

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/phanxgames/gesture"
)

// app holds state shared by every subcommand.
type app struct {
	configPath string
	verbosity  int

	cfg gesture.Config
	log zerolog.Logger
}

func (a *app) level() string {
	switch {
	case a.verbosity >= 3:
		return "trace"
	case a.verbosity == 2:
		return "debug"
	case a.verbosity == 1:
		return "info"
	default:
		return a.cfg.LogLevel
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "gesturectl",
		Short:         "Replay, serve and inspect touch gesture episodes",
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := gesture.LoadConfig(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = gesture.NewLogger(cmd.ErrOrStderr(), a.level())
			a.log.Debug().Str("command", cmd.Name()).Str("config", a.configPath).Msg("command started")
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "TOML config file")
	root.PersistentFlags().CountVarP(&a.verbosity, "verbose", "v", "Increase verbosity (-v, -vv, -vvv)")

	root.AddCommand(
		newReplayCmd(a),
		newServeCmd(a),
		newEpisodesCmd(a),
		newConfigCmd(a),
	)
	return root
}
