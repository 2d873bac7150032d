package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/devonwallerson/amlibrary-plays/internal/cache"
	"github.com/devonwallerson/amlibrary-plays/internal/models"
	"github.com/devonwallerson/amlibrary-plays/internal/services"
	"github.com/devonwallerson/amlibrary-plays/internal/session"
	"github.com/devonwallerson/amlibrary-plays/internal/shared"
	"github.com/devonwallerson/amlibrary-plays/internal/stats"
	"golang.org/x/sync/errgroup"
)

// SessionSource reports the session once authorization has completed.
type SessionSource interface {
	Current() (*session.Session, error)
}

// EngineOpts configures a [LibraryEngine].
type EngineOpts struct {
	Library  services.Library
	Sessions SessionSource
	// Manifest is optional; without it every load goes to the network and nothing is written.
	Manifest *cache.Manifest
	Logger   *log.Logger
	// PrefetchPlaylistTracks loads track lists of tracked playlists up front instead of on first selection.
	PrefetchPlaylistTracks bool
	Concurrency            int
}

// LibraryEngine loads the library datasets, preferring the local cache.
type LibraryEngine struct {
	library     services.Library
	sessions    SessionSource
	manifest    *cache.Manifest
	logger      *log.Logger
	prefetch    bool
	concurrency int
}

// NewLibraryEngine creates a new LibraryEngine.
func NewLibraryEngine(opts EngineOpts) *LibraryEngine {
	e := &LibraryEngine{
		library:     opts.Library,
		sessions:    opts.Sessions,
		manifest:    opts.Manifest,
		logger:      opts.Logger,
		prefetch:    opts.PrefetchPlaylistTracks,
		concurrency: opts.Concurrency,
	}
	if e.logger == nil {
		e.logger = shared.NewLogger(nil)
	}
	if e.concurrency <= 0 {
		e.concurrency = stats.DefaultConcurrency
	}
	return e
}

// Load returns the library snapshot.
//
// While the cache manifest is fresh and force is false the cached snapshot is returned without any
// vendor request. Otherwise songs, tracked playlists and recently played tracks are fetched
// concurrently, the artist list is derived from the songs and each dataset that arrived is cached.
//
// A dataset that fails leaves its cache entry untouched. Load then returns the partial snapshot
// together with the joined errors of the failed datasets.
func (e *LibraryEngine) Load(ctx context.Context, progress chan<- ProgressUpdate, force bool) (*models.Snapshot, error) {
	if e.library == nil {
		return nil, fmt.Errorf("%w: library service not initialized", shared.ErrServiceUnavailable)
	}
	if e.sessions == nil {
		return nil, fmt.Errorf("%w: session provider not initialized", shared.ErrServiceUnavailable)
	}
	if _, err := e.sessions.Current(); err != nil {
		return nil, err
	}

	if !force && e.manifest != nil {
		snap, ok, err := e.manifest.Load()
		switch {
		case err != nil:
			e.logger.Warn("cache read failed, fetching from network", "error", err)
		case ok:
			e.logger.Debug("library served from cache", "songs", len(snap.Library))
			sendProgress(progress, cacheHitUpdate(snap))
			return snap, nil
		}
	}

	snap := &models.Snapshot{
		Library:        []models.Track{},
		Playlists:      []models.Playlist{},
		Artists:        []models.ArtistSummary{},
		RecentlyPlayed: []models.Track{},
	}

	var libErr, playlistErr, recentErr error
	var g errgroup.Group

	g.Go(func() error {
		sendProgress(progress, fetchingUpdate(FetchLibrary, "library songs"))
		lctx := services.WithPageObserver(ctx, func(_ string, loaded int) {
			sendProgress(progress, songsLoadedUpdate(loaded))
		})

		songs, err := e.library.LibrarySongs(lctx)
		if err != nil {
			libErr = fmt.Errorf("library songs: %w", err)
			sendProgress(progress, fetchFailedUpdate(FetchLibrary, "library songs", err))
			return nil
		}
		snap.Library = songs
		sendProgress(progress, fetchedUpdate(FetchLibrary, "songs", len(songs)))
		return nil
	})

	g.Go(func() error {
		sendProgress(progress, fetchingUpdate(FetchPlaylists, "playlists"))
		playlists, err := e.fetchPlaylists(ctx, progress)
		if err != nil {
			playlistErr = fmt.Errorf("playlists: %w", err)
			sendProgress(progress, fetchFailedUpdate(FetchPlaylists, "playlists", err))
			return nil
		}
		snap.Playlists = playlists
		sendProgress(progress, fetchedUpdate(FetchPlaylists, "tracked playlists", len(playlists)))
		return nil
	})

	g.Go(func() error {
		sendProgress(progress, fetchingUpdate(FetchRecent, "recently played"))
		recent, err := e.library.RecentlyPlayed(ctx)
		if err != nil {
			recentErr = fmt.Errorf("recently played: %w", err)
			sendProgress(progress, fetchFailedUpdate(FetchRecent, "recently played", err))
			return nil
		}
		snap.RecentlyPlayed = recent
		sendProgress(progress, fetchedUpdate(FetchRecent, "recently played tracks", len(recent)))
		return nil
	})

	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if libErr == nil {
		snap.Artists = stats.Artists(snap.Library)
		sendProgress(progress, artistsUpdate(snap.Artists))
	}

	e.save(progress, snap, libErr, playlistErr, recentErr)

	if err := errors.Join(libErr, playlistErr, recentErr); err != nil {
		e.logger.Error("library load incomplete", "error", err)
		return snap, err
	}

	e.logger.Info("library loaded", "songs", len(snap.Library), "playlists", len(snap.Playlists), "recent", len(snap.RecentlyPlayed))
	return snap, nil
}

// fetchPlaylists returns the tracked playlists, with their tracks when prefetching is enabled.
func (e *LibraryEngine) fetchPlaylists(ctx context.Context, progress chan<- ProgressUpdate) ([]models.Playlist, error) {
	all, err := e.library.LibraryPlaylists(ctx)
	if err != nil {
		return nil, err
	}

	tracked := make([]models.Playlist, 0, len(all))
	for _, p := range all {
		if p.Tracked() {
			tracked = append(tracked, p)
		}
	}

	if !e.prefetch {
		return tracked, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	total := len(tracked)
	for i, p := range tracked {
		g.Go(func() error {
			tracks, err := e.library.PlaylistTracks(gctx, p.ID)
			if err != nil {
				// Left unloaded; stats fetch it lazily on selection.
				e.logger.Warn("playlist prefetch failed", "playlist", p.Name, "error", err)
				return nil
			}
			tracked[i] = p.WithTracks(tracks)
			sendProgress(progress, playlistTracksUpdate(i+1, total, tracked[i]))
			return nil
		})
	}
	_ = g.Wait()

	return tracked, nil
}

// save writes every dataset whose fetch succeeded. Write failures are logged; the data is still usable.
func (e *LibraryEngine) save(progress chan<- ProgressUpdate, snap *models.Snapshot, libErr, playlistErr, recentErr error) {
	if e.manifest == nil {
		return
	}

	type dataset struct {
		key   string
		value any
	}

	var writes []dataset
	if libErr == nil {
		writes = append(writes, dataset{cache.LibraryKey, snap.Library}, dataset{cache.ArtistsKey, snap.Artists})
	}
	if playlistErr == nil {
		writes = append(writes, dataset{cache.PlaylistsKey, snap.Playlists})
	}
	if recentErr == nil {
		writes = append(writes, dataset{cache.RecentlyPlayedKey, snap.RecentlyPlayed})
	}

	for i, w := range writes {
		if err := e.manifest.SaveDataset(w.key, w.value); err != nil {
			e.logger.Warn("cache write failed", "key", w.key, "error", err)
			continue
		}
		sendProgress(progress, cacheWriteUpdate(i+1, len(writes), w.key))
	}
}
