package main

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/phanxgames/gesture/recording"
)

func openStore(cmd *cobra.Command, a *app) (*recording.Store, error) {
	return recording.Open(cmd.Context(), recording.Options{Path: a.cfg.Recording.Path, Logger: &a.log})
}

func newEpisodesCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "episodes",
		Short: "Inspect recorded episodes",
	}
	cmd.AddCommand(newEpisodesListCmd(a), newEpisodesExportCmd(a), newEpisodesDeleteCmd(a))
	return cmd
}

func newEpisodesListCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded episodes, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd, a)
			if err != nil {
				return err
			}
			defer store.Close()

			list, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := newPrinter(cmd.OutOrStdout())
			if len(list) == 0 {
				out.muted("no episodes in %s", store.Path())
				return nil
			}
			for _, s := range list {
				out.line(s.ID.String()[:8], "%s  %-12s contacts=%d matches=%d faults=%d  %s",
					s.Started.Format("2006-01-02 15:04:05"), s.Target, s.Contacts, s.Matches, s.Faults, s.Duration())
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of episodes (0 for all)")
	return cmd
}

func newEpisodesExportCmd(a *app) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "export <id>",
		Short: "Print an episode as a replay script",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid episode id: %w", err)
			}
			store, err := openStore(cmd, a)
			if err != nil {
				return err
			}
			defer store.Close()

			rec, err := store.Load(cmd.Context(), id)
			if err != nil {
				return err
			}

			var data []byte
			switch format {
			case "json":
				data, err = json.MarshalIndent(rec.Script(), "", "  ")
				data = append(data, '\n')
			case "yaml":
				data, err = yaml.Marshal(rec.Script())
			default:
				return fmt.Errorf("unknown format %q", format)
			}
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "output format: yaml or json")
	return cmd
}

func newEpisodesDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a recorded episode",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid episode id: %w", err)
			}
			store, err := openStore(cmd, a)
			if err != nil {
				return err
			}
			defer store.Close()
			return store.Delete(cmd.Context(), id)
		},
	}
}
