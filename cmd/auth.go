package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/devonwallerson/amlibrary-plays/internal/server"
	"github.com/devonwallerson/amlibrary-plays/internal/session"
	"github.com/devonwallerson/amlibrary-plays/internal/shared"
	"github.com/urfave/cli/v3"
)

const authorizeTimeout = 2 * time.Minute

// AuthLogin signs in through MusicKit in the browser, replacing any configured user token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	r.config.Credentials.AppleMusic.UserToken = ""

	s, err := r.waitSession(ctx)
	if err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	if r.configPath != "" {
		r.writePlain("✓ Music user token saved to %s\n\n", r.configPath)
	}
	r.writePlain("Signed in to Apple Music as %s (%s)\n", s.App.Name, s.App.Build)
	r.writePlain("You can now use: libplays library sync\n")

	return nil
}

// AuthStatus reports which credentials are configured and optionally checks them against the API.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.AppleMusic

	r.writePlainHeader("Apple Music Authorization")
	r.writePlain("Developer token:  %s\n", maskToken(creds.DeveloperToken))
	r.writePlain("Music user token: %s\n", maskToken(creds.UserToken))

	if err := r.config.Validate(); err != nil {
		r.writePlain("Config: ✗ %v\n", err)
		return nil
	}
	r.writePlain("Config: ✓ valid\n")

	if !cmd.Bool("verify") {
		return nil
	}
	if creds.UserToken == "" {
		return fmt.Errorf("%w: run 'libplays auth login' first", shared.ErrNotAuthenticated)
	}

	provider, err := r.sessionProvider()
	if err != nil {
		return err
	}
	lib, err := r.libraryService(provider)
	if err != nil {
		return err
	}
	if _, err := provider.Wait(ctx); err != nil {
		return err
	}

	recent, err := lib.RecentlyPlayed(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	r.writePlain("Authentication: ✓ accepted (%d recently played songs)\n", len(recent))
	return nil
}

// authorizeInBrowser serves the MusicKit sign-in page on a local port, opens it and waits for the callback.
func (r *Runner) authorizeInBrowser(ctx context.Context, cfg session.Config) (string, error) {
	state := shared.GenerateID()

	authHandler := server.NewAuthorizeHandler(cfg, state, r.logger)
	router := server.NewChiRouter()
	router.Use(server.LoggingMiddleware(r.logger))
	router.Handler(authHandler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.AuthPort)
	ln, err := net.Listen("tcp", serverAddr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", serverAddr, err)
	}

	srvCtx, stop := context.WithCancel(ctx)
	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting authorization server at %v", serverAddr)
		serverErrors <- server.New(serverAddr, router, r.logger).Serve(srvCtx, ln)
	}()
	defer func() {
		stop()
		if err := <-serverErrors; err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	authURL := fmt.Sprintf("http://%s%s", ln.Addr(), server.AuthorizePath)

	r.writePlain("→ Opening browser for Apple Music sign in...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "url", authURL, "error", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(authorizeTimeout)
	defer timeout.Stop()

	var result server.AuthorizeResult

	select {
	case result = <-authHandler.Result():
	case err := <-serverErrors:
		serverErrors <- nil
		if err == nil {
			err = errors.New("server stopped")
		}
		return "", fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return "", fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if result.Error() != nil {
		return "", fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.UserToken == "" {
		return "", fmt.Errorf("no token received")
	}

	return result.UserToken, nil
}
