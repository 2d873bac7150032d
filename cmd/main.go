package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/log"
	"github.com/devonwallerson/amlibrary-plays/internal/services"
	"github.com/devonwallerson/amlibrary-plays/internal/shared"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v3"
)

func main() {
	logger := shared.NewLogger(nil)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("failed to load .env", "error", err)
	}

	runner := NewRunner(RunnerOpts{Logger: logger})

	app := &cli.Command{
		Name:     "libplays",
		Usage:    "Replay ranks, mix badges and play counts for your Apple Music library",
		Version:  "0.1.0",
		Flags:    []cli.Flag{configFlag(), verboseFlag()},
		Before:   runner.configure,
		Commands: runner.register(),
	}

	err := app.Run(context.Background(), os.Args)
	if cerr := runner.Close(); cerr != nil {
		logger.Warn("failed to close database", "error", cerr)
	}

	if err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		} else {
			logger.Fatalf("application error: %v", err)
		}
	}
}

// configure loads the config file named by --config (defaults when it does not exist yet),
// applies environment overrides and rebuilds the proxy client from the result.
func (r *Runner) configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	path := cmd.String("config")
	config := shared.DefaultConfig()
	if _, err := os.Stat(path); err == nil {
		loaded, err := shared.LoadConfig(path)
		if err != nil {
			return ctx, fmt.Errorf("failed to load %s: %w", path, err)
		}
		config = loaded
		r.logger.Debug("loaded config", "path", path)
	}
	config.OverrideFromEnv()

	r.config = config
	r.configPath = path
	r.api = services.NewAPIService(config.API.ProxyURL, r.httpClient)
	return ctx, nil
}
