package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/adfharrison1/go-analytics/pkg/api"
	"github.com/adfharrison1/go-analytics/pkg/server"
)

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server (default command)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context())
		},
	}
}

// serve runs the HTTP server until SIGINT or SIGTERM, then drains requests
// and closes the backend.
func (a *app) serve(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := openBackend(ctx, a.cfg)
	if err != nil {
		return err
	}

	cfg := a.cfg.Server
	srv := server.NewServer(cfg.Addr(), api.NewHandler(b.store, b.indexer),
		server.WithRequestTimeout(cfg.RequestTimeout),
		server.WithTimeouts(cfg.ReadTimeout, cfg.WriteTimeout, cfg.IdleTimeout),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	if closeErr := b.close(); closeErr != nil {
		err = errors.Join(err, closeErr)
	}
	if err != nil {
		log.Error().Err(err).Msg("Server stopped with error")
		return err
	}
	log.Info().Msg("Server exited")
	return nil
}
