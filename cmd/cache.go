package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
)

// CacheStatus prints each cached dataset with its age and freshness.
func (r *Runner) CacheStatus(ctx context.Context, cmd *cli.Command) error {
	manifest, err := r.openManifest()
	if err != nil {
		return err
	}

	entries, err := manifest.Status()
	if err != nil {
		return fmt.Errorf("failed to read cache status: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(entries, true)
	}

	r.writePlainHeader(fmt.Sprintf("Cache (TTL %s)", manifest.TTL()))
	for _, e := range entries {
		if !e.Present {
			r.writePlain("%-16s missing\n", e.Key)
			continue
		}

		state := "fresh"
		if !e.Fresh {
			state = "stale"
		}
		r.writePlain("%-16s %-6s %8s old  %d bytes\n", e.Key, state, e.Age.Truncate(time.Second), e.Bytes)
	}

	if manifest.IsFresh() {
		r.writePlainln("✓ Cache is fresh; library commands will not call the API")
	} else {
		r.writePlainln("Cache is stale or incomplete; the next library command will refetch")
	}
	return nil
}

// CacheClear removes every cached dataset.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	manifest, err := r.openManifest()
	if err != nil {
		return err
	}

	if err := manifest.Clear(); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	r.logger.Info("cache cleared")
	return r.writePlain("✓ Cache cleared\n")
}
