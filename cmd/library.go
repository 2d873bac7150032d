package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/devonwallerson/amlibrary-plays/internal/formatter"
	"github.com/devonwallerson/amlibrary-plays/internal/models"
	"github.com/devonwallerson/amlibrary-plays/internal/search"
	"github.com/devonwallerson/amlibrary-plays/internal/shared"
	"github.com/urfave/cli/v3"
)

// LibrarySync loads the library into the cache and prints a summary.
func (r *Runner) LibrarySync(ctx context.Context, cmd *cli.Command) error {
	force := cmd.Bool("force")

	r.logger.Info("syncing library", "force", force)

	snap, _, err := r.loadSnapshot(ctx, force)
	if err != nil {
		return err
	}

	tracked := 0
	for _, p := range snap.Playlists {
		if p.Tracked() {
			tracked++
		}
	}

	r.writePlainHeader("Library")
	r.writePlain("Songs:           %d\n", len(snap.Library))
	r.writePlain("Artists:         %d\n", len(snap.Artists))
	r.writePlain("Playlists:       %d tracked\n", tracked)
	r.writePlain("Recently played: %d\n", len(snap.RecentlyPlayed))
	return nil
}

// LibrarySearch prints the top matches for a query.
func (r *Runner) LibrarySearch(ctx context.Context, cmd *cli.Command) error {
	query := cmd.StringArg("query")
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}

	limit := cmd.Int("limit")
	if limit <= 0 {
		limit = r.config.Library.SearchLimit
	}

	snap, _, err := r.loadSnapshot(ctx, false)
	if err != nil {
		return err
	}

	results := search.Top(snap.Library, query, limit)
	if cmd.Bool("json") {
		return r.writeJSON(results, true)
	}

	if len(results) == 0 {
		return r.writePlain("No songs match %q\n", query)
	}

	r.writePlain("Found %d songs:\n\n", len(results))
	for i, t := range results {
		r.writeTrackLine(i+1, t)
	}
	return nil
}

func (r *Runner) writeTrackLine(n int, t models.Track) {
	r.writePlain("%d. %s - %s\n", n, t.Name, t.ArtistName)
	if t.AlbumName != "" {
		r.writePlain("   Album: %s\n", t.AlbumName)
	}
	plays := "-"
	if t.PlayCount != nil {
		plays = fmt.Sprint(*t.PlayCount)
	}
	r.writePlain("   ID: %s · %s · %s plays\n", t.ID, t.Length(), plays)
}

// LibraryArtists lists artists ranked by song count.
func (r *Runner) LibraryArtists(ctx context.Context, cmd *cli.Command) error {
	snap, _, err := r.loadSnapshot(ctx, false)
	if err != nil {
		return err
	}

	artists := snap.Artists
	if limit := cmd.Int("limit"); limit > 0 && limit < len(artists) {
		artists = artists[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(artists, true)
	}

	_, err = r.output.Write(formatter.ArtistsToText(artists))
	return err
}

// LibraryExport writes the library in the requested format.
func (r *Runner) LibraryExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	snap, _, err := r.loadSnapshot(ctx, false)
	if err != nil {
		return err
	}

	path, err := formatter.WriteLibraryExport(snap.Library, format, cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Info("library exported", "path", path, "songs", len(snap.Library))
	return r.writePlain("✓ Exported %d songs to %s\n", len(snap.Library), path)
}

// Recommendations lists personal recommendation groups.
func (r *Runner) Recommendations(ctx context.Context, cmd *cli.Command) error {
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

	recs, err := lib.Recommendations(ctx, cmd.StringSlice("ids"))
	if err != nil {
		return fmt.Errorf("failed to fetch recommendations: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(recs, true)
	}

	r.writePlain("Found %d recommendations:\n\n", len(recs))
	for i, rec := range recs {
		r.writePlain("%d. %s\n", i+1, rec.Title)
		if rec.Kind != "" {
			r.writePlain("   Kind: %s\n", rec.Kind)
		}
		r.writePlain("   ID: %s\n", rec.ID)
	}
	return nil
}
