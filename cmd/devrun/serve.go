package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Cyclone1070/devrun/internal/api"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the tool API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serveAction(cmd)
		},
	}
	cmd.Flags().String("addr", "", "Listen address (default from config api.addr)")
	cmd.Flags().String("api-key", "", "Require this X-API-Key (default from config api.api_key or $DEVRUN_API_KEY)")
	return cmd
}

func (a *app) serveAction(cmd *cobra.Command) error {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = a.config.API.Addr
	}
	key, _ := cmd.Flags().GetString("api-key")
	if key == "" {
		key = a.config.API.APIKey
	}
	if key == "" {
		key = os.Getenv("DEVRUN_API_KEY")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := api.NewServer(a.sup, key)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(addr)
	})
	g.Go(func() error {
		<-gctx.Done()
		a.log.Info("shutting down")

		timeout := time.Duration(a.config.API.ShutdownTimeoutMs) * time.Millisecond
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		if stopErr := a.sup.Shutdown(shutdownCtx); err == nil {
			err = stopErr
		}
		return err
	})
	return g.Wait()
}
