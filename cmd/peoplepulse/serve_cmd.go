package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	appLog "peoplepulse/internal/log"
	"peoplepulse/internal/web"
)

func newServeCmd(root *rootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the calendar API and refresh sources on schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			appLog.Info("peoplepulse starting", "version", version)

			// Root context with cancellation on SIGINT/SIGTERM.
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
			defer signal.Stop(sigCh)
			go func() {
				select {
				case sig := <-sigCh:
					appLog.Info("signal received, shutting down", "signal", sig.String())
					cancel()
				case <-ctx.Done():
				}
			}()

			rt, err := root.load(ctx)
			if err != nil {
				return err
			}
			defer appLog.Sync()

			// CLI --listen overrides config file listen if provided.
			if listen != "" {
				rt.cfg.Listen = listen
			}

			if err := rt.refresher.Start(ctx, rt.cfg.RefreshCron); err != nil {
				return err
			}

			srv := web.NewServer(rt.cfg, rt.store, web.WithRefresher(rt.refresher))
			defer srv.Close()

			if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				appLog.Error("http server failed", err, "listen", rt.cfg.Listen)
				return err
			}
			appLog.Info("peoplepulse exiting")
			return nil
		},
	}

	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}
