package main

import (
	"context"
	"fmt"

	"github.com/devonwallerson/amlibrary-plays/internal/services"
	"github.com/devonwallerson/amlibrary-plays/internal/shared"
	"github.com/urfave/cli/v3"
)

// APISongs requests one page of library songs through the proxy.
func (r *Runner) APISongs(ctx context.Context, cmd *cli.Command) error {
	limit := cmd.Int("limit")
	offset := cmd.Int("offset")

	r.logger.Info("GET request", "path", "/api/songs", "limit", limit, "offset", offset)

	resp, err := r.proxyClient().Songs(ctx, limit, offset)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return r.writeResponse(resp, cmd.Bool("pretty"))
}

// APIRecommendations requests recommendation groups through the proxy.
func (r *Runner) APIRecommendations(ctx context.Context, cmd *cli.Command) error {
	ids := cmd.StringSlice("ids")

	r.logger.Info("GET request", "path", "/api/recommendations", "ids", ids)

	resp, err := r.proxyClient().Recommendations(ctx, ids)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	return r.writeResponse(resp, cmd.Bool("pretty"))
}

// proxyClient returns the proxy client carrying the configured user token.
func (r *Runner) proxyClient() *services.APIService {
	return r.api.WithUserToken(r.config.Credentials.AppleMusic.UserToken)
}

func (r *Runner) writeResponse(resp *services.APIResponse, pretty bool) error {
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d, body: %s", shared.ErrAPIRequest, resp.StatusCode, string(resp.Body))
	}

	if resp.IsJSON {
		return r.writeJSON(resp.JSONData, pretty)
	}

	r.output.Write(resp.Body)
	r.output.Write([]byte("\n"))
	return nil
}
