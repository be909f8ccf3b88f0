package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/phanxgames/gesture"
	"github.com/phanxgames/gesture/recording"
	"github.com/phanxgames/gesture/wsbridge"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		addr       string
		scriptsDir string
		record     bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept contacts over a websocket and broadcast recognized gestures",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = a.cfg.Bridge.Addr
			}
			ids, err := identifiers(scriptsDir)
			if err != nil {
				return err
			}

			arb := gesture.New(gesture.WithConfig(a.cfg), gesture.WithLogger(a.log))
			defer arb.Close()

			if record {
				store, err := recording.Open(cmd.Context(), recording.Options{Path: a.cfg.Recording.Path, Logger: &a.log})
				if err != nil {
					return err
				}
				defer store.Close()
				arb.OnEpisodeEnd(store.Hook())
			}

			bridge := wsbridge.New(arb, wsbridge.WithLogger(a.log))
			defer bridge.Close()
			d := arb.NewDelegate()
			for _, id := range ids {
				d.On(id, bridge.Listener())
			}

			mux := http.NewServeMux()
			mux.Handle(a.cfg.Bridge.Path, bridge)
			srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				a.log.Info().Str("addr", addr).Str("path", a.cfg.Bridge.Path).Msg("bridge listening")
				errCh <- srv.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			case <-ctx.Done():
			}

			a.log.Info().Msg("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&scriptsDir, "identifiers", "", "directory of JavaScript identifiers to load")
	cmd.Flags().BoolVar(&record, "record", false, "save episodes to the recording database")
	return cmd
}
