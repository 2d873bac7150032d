package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/devonwallerson/amlibrary-plays/internal/formatter"
	"github.com/devonwallerson/amlibrary-plays/internal/models"
	"github.com/devonwallerson/amlibrary-plays/internal/palette"
	"github.com/devonwallerson/amlibrary-plays/internal/search"
	"github.com/devonwallerson/amlibrary-plays/internal/shared"
	"github.com/devonwallerson/amlibrary-plays/internal/stats"
	"github.com/urfave/cli/v3"
)

// statsOutput is the JSON shape of the stats command.
type statsOutput struct {
	*stats.Stats
	Gradient *palette.Gradient `json:"gradient,omitempty"`
	CSS      string            `json:"css,omitempty"`
}

// Stats selects one song and prints its replay ranks, mix badges and recently played status.
func (r *Runner) Stats(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: song query or ID", shared.ErrMissingArgument)
	}

	var report bool
	switch f := cmd.String("format"); f {
	case "":
	case string(formatter.FormatMarkdown), "markdown":
		report = true
	default:
		return fmt.Errorf("%w: unknown report format %q (want md)", shared.ErrInvalidArgument, f)
	}

	snap, lib, err := r.loadSnapshot(ctx, false)
	if err != nil {
		return err
	}

	track, err := findTrack(snap.Library, query, cmd.Bool("id"))
	if err != nil {
		return err
	}

	withPalette := cmd.Bool("palette") || report
	selector := r.newSelector(lib, withPalette)
	selector.SetLibrary(snap.Playlists, snap.RecentlyPlayed)

	job := selector.Begin(track)
	out := job.Run(ctx)
	selector.Finish(out)

	sel := selector.Current()
	if sel.Err != nil {
		return fmt.Errorf("failed to compute stats: %w", sel.Err)
	}
	if out.GradientErr != nil {
		r.logger.Warn("could not derive artwork palette", "error", out.GradientErr)
	}
	for _, name := range sel.Stats.Omitted {
		r.logger.Warn("playlist unavailable, left out of stats", "playlist", name)
	}

	switch {
	case cmd.Bool("json"):
		output := statsOutput{Stats: sel.Stats, Gradient: sel.Gradient}
		if sel.Gradient != nil {
			output.CSS = sel.Gradient.CSS()
		}
		return r.writeJSON(output, true)
	case report:
		size := r.config.Palette.ArtworkSize
		result, err := formatter.WriteStatsMarkdown(sel.Stats, sel.Gradient, cmd.String("output"), track.ArtworkURL(size, size))
		if err != nil {
			return err
		}
		r.writePlain("✓ Report written to %s\n", result.Directory)
		for _, f := range result.Files {
			r.writePlain("  %s\n", f)
		}
		return nil
	default:
		_, err := r.output.Write(formatter.StatsToText(sel.Stats, sel.Gradient))
		return err
	}
}

// findTrack resolves query to one library song, by ID or as the best search match.
func findTrack(library []models.Track, query string, byID bool) (models.Track, error) {
	if byID {
		for _, t := range library {
			if t.ID == query {
				return t, nil
			}
		}
		return models.Track{}, fmt.Errorf("%w: no library song with ID %s", shared.ErrTrackNotFound, query)
	}

	results := search.Top(library, query, 1)
	if len(results) == 0 {
		return models.Track{}, fmt.Errorf("%w: no library song matches %q", shared.ErrTrackNotFound, query)
	}
	return results[0], nil
}
