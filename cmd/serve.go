package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/devonwallerson/amlibrary-plays/internal/server"
	"github.com/devonwallerson/amlibrary-plays/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve runs the proxy backend until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	if port := cmd.Int("port"); port > 0 {
		r.config.Server.Port = port
	}

	if r.config.Credentials.AppleMusic.DeveloperToken == "" {
		return fmt.Errorf("%w: set credentials.apple_music.developer_token or APPLE_DEVELOPER_TOKEN", shared.ErrMissingCredentials)
	}

	handler, err := r.proxyRouter()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(r.config.Server.Addr(), handler, r.logger).Run(ctx)
}

// proxyRouter builds the proxy routes over an Apple Music client that holds only the developer token.
func (r *Runner) proxyRouter() (*server.ChiRouter, error) {
	music, err := r.musicService("")
	if err != nil {
		return nil, err
	}

	logger := shared.WithLogger(r.logger, "component", "proxy")

	router := server.NewChiRouter()
	router.Use(server.LoggingMiddleware(logger), server.CORSMiddleware(r.config.Server.AllowedOrigin))
	router.Handler(server.NewProxyHandler(music, logger))
	return router, nil
}
