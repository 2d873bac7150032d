package tasks

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/devonwallerson/amlibrary-plays/internal/cache"
	"github.com/devonwallerson/amlibrary-plays/internal/models"
	"github.com/devonwallerson/amlibrary-plays/internal/repositories"
	"github.com/devonwallerson/amlibrary-plays/internal/session"
	"github.com/devonwallerson/amlibrary-plays/internal/shared"
	tu "github.com/devonwallerson/amlibrary-plays/internal/testing"
)

var epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

func newTestManifest(t *testing.T) (*cache.Manifest, *tu.Clock) {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	shared.ConfigureDatabase(db, 1, 1)
	t.Cleanup(func() { db.Close() })

	if err := shared.RunMigrations(db); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	clock := tu.NewClock(epoch)
	return cache.NewManifest(cache.New(repositories.NewCacheEntryRepository(db), clock), cache.DefaultTTL), clock
}

func readySessions(t *testing.T) *session.Provider {
	t.Helper()
	p := session.NewProvider(session.Config{DeveloperToken: "dev", UserToken: "user"}, nil, shared.NewLogger(io.Discard))
	p.Start(context.Background())
	return p
}

func testLibrary() *tu.FakeLibrary {
	song := tu.NewTrack("i.1", "Midnight City", "M83", 243000, 1)
	other := tu.NewTrack("i.2", "Wait", "m83", 343000, 2)
	solo := tu.NewTrack("i.3", "Holocene", "Bon Iver", 337000, 3)

	return &tu.FakeLibrary{
		Songs: []models.Track{song, other, solo},
		Playlists: []models.Playlist{
			{ID: "p.1", Name: "Replay 2024", Tracks: []models.Track{solo, song}},
			{ID: "p.2", Name: "Road Trip", Tracks: []models.Track{other}},
			{ID: "p.3", Name: "Favorite Songs", Tracks: []models.Track{song}},
		},
		Recent: []models.Track{song},
	}
}

// recentFailure fails only the recently played dataset.
type recentFailure struct {
	*tu.FakeLibrary
}

func (r recentFailure) RecentlyPlayed(ctx context.Context) ([]models.Track, error) {
	return nil, shared.ErrAPIRequest
}

func drain(progress chan ProgressUpdate) []ProgressUpdate {
	var updates []ProgressUpdate
	for {
		select {
		case u := <-progress:
			updates = append(updates, u)
		default:
			return updates
		}
	}
}

func TestLibraryEngine_Load(t *testing.T) {
	ctx := context.Background()
	logger := shared.NewLogger(io.Discard)

	t.Run("session not ready", func(t *testing.T) {
		lib := testLibrary()
		provider := session.NewProvider(session.Config{DeveloperToken: "dev"}, nil, logger)
		engine := NewLibraryEngine(EngineOpts{Library: lib, Sessions: provider, Logger: logger})

		_, err := engine.Load(ctx, nil, false)
		if !errors.Is(err, session.ErrNotReady) {
			t.Errorf("expected ErrNotReady, got %v", err)
		}
		if lib.Calls("LibrarySongs") != 0 {
			t.Error("expected no vendor calls before the session is ready")
		}
	})

	t.Run("missing dependencies", func(t *testing.T) {
		engine := NewLibraryEngine(EngineOpts{Sessions: readySessions(t), Logger: logger})
		if _, err := engine.Load(ctx, nil, false); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}

		engine = NewLibraryEngine(EngineOpts{Library: testLibrary(), Logger: logger})
		if _, err := engine.Load(ctx, nil, false); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("fetches and caches", func(t *testing.T) {
		lib := testLibrary()
		manifest, _ := newTestManifest(t)
		engine := NewLibraryEngine(EngineOpts{Library: lib, Sessions: readySessions(t), Manifest: manifest, Logger: logger})

		progress := make(chan ProgressUpdate, 100)
		snap, err := engine.Load(ctx, progress, false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(snap.Library) != 3 {
			t.Errorf("expected 3 songs, got %d", len(snap.Library))
		}
		if len(snap.Playlists) != 2 {
			t.Errorf("expected only the 2 tracked playlists, got %+v", snap.Playlists)
		}
		for _, p := range snap.Playlists {
			if p.TracksLoaded {
				t.Errorf("expected %s to be loaded lazily", p.Name)
			}
		}
		if len(snap.Artists) != 2 || snap.Artists[0].SongCount != 2 {
			t.Errorf("expected M83 grouped case-insensitively, got %+v", snap.Artists)
		}
		if len(snap.RecentlyPlayed) != 1 {
			t.Errorf("expected 1 recent track, got %d", len(snap.RecentlyPlayed))
		}
		if !manifest.IsFresh() {
			t.Error("expected every dataset to be cached")
		}

		phases := map[Phase]bool{}
		for _, u := range drain(progress) {
			phases[u.Phase] = true
		}
		for _, p := range []Phase{FetchLibrary, FetchPlaylists, FetchRecent, DeriveArtists, CacheWrite} {
			if !phases[p] {
				t.Errorf("expected a %s update", p)
			}
		}
	})

	t.Run("serves fresh cache", func(t *testing.T) {
		lib := testLibrary()
		manifest, clock := newTestManifest(t)
		engine := NewLibraryEngine(EngineOpts{Library: lib, Sessions: readySessions(t), Manifest: manifest, Logger: logger})

		if _, err := engine.Load(ctx, nil, false); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		clock.Advance(29 * time.Minute)
		progress := make(chan ProgressUpdate, 10)
		snap, err := engine.Load(ctx, progress, false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if lib.Calls("LibrarySongs") != 1 || lib.Calls("RecentlyPlayed") != 1 {
			t.Error("expected the second load to skip the network")
		}
		if len(snap.Library) != 3 || len(snap.Artists) != 2 {
			t.Errorf("unexpected cached snapshot %+v", snap)
		}

		updates := drain(progress)
		if len(updates) != 1 || updates[0].Phase != CacheLoad {
			t.Errorf("expected a single cache update, got %+v", updates)
		}
	})

	t.Run("refetches when forced or expired", func(t *testing.T) {
		lib := testLibrary()
		manifest, clock := newTestManifest(t)
		engine := NewLibraryEngine(EngineOpts{Library: lib, Sessions: readySessions(t), Manifest: manifest, Logger: logger})

		for range 2 {
			if _, err := engine.Load(ctx, nil, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		}
		if got := lib.Calls("LibrarySongs"); got != 2 {
			t.Errorf("expected forced loads to fetch, got %d calls", got)
		}

		clock.Advance(30 * time.Minute)
		if _, err := engine.Load(ctx, nil, false); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if got := lib.Calls("LibrarySongs"); got != 3 {
			t.Errorf("expected an expired cache to fetch, got %d calls", got)
		}
	})

	t.Run("partial failure", func(t *testing.T) {
		lib := testLibrary()
		manifest, clock := newTestManifest(t)

		stale := []models.Track{tu.NewTrack("i.9", "Old", "Someone", 1000, 1)}
		if err := manifest.SaveDataset(cache.RecentlyPlayedKey, stale); err != nil {
			t.Fatalf("failed to seed cache: %v", err)
		}
		clock.Advance(time.Minute)

		engine := NewLibraryEngine(EngineOpts{Library: recentFailure{lib}, Sessions: readySessions(t), Manifest: manifest, Logger: logger})
		snap, err := engine.Load(ctx, nil, false)
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Fatalf("expected ErrAPIRequest, got %v", err)
		}
		if !strings.Contains(err.Error(), "recently played") {
			t.Errorf("expected the failed dataset to be named, got %v", err)
		}
		if snap == nil || len(snap.Library) != 3 || len(snap.Playlists) != 2 {
			t.Fatalf("expected the other datasets to arrive, got %+v", snap)
		}

		statuses, err := manifest.Status()
		if err != nil {
			t.Fatalf("failed to read status: %v", err)
		}
		for _, s := range statuses {
			if !s.Present {
				t.Errorf("expected %s to be present", s.Key)
			}
			if s.Key == cache.RecentlyPlayedKey && !s.WrittenAt.Equal(epoch) {
				t.Errorf("expected the failed dataset to keep its old entry, written %v", s.WrittenAt)
			}
			if s.Key == cache.LibraryKey && !s.WrittenAt.Equal(epoch.Add(time.Minute)) {
				t.Errorf("expected the library to be rewritten, written %v", s.WrittenAt)
			}
		}
	})

	t.Run("prefetches tracked playlists", func(t *testing.T) {
		lib := testLibrary()
		engine := NewLibraryEngine(EngineOpts{
			Library:                lib,
			Sessions:               readySessions(t),
			Logger:                 logger,
			PrefetchPlaylistTracks: true,
		})

		snap, err := engine.Load(ctx, nil, false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		for _, p := range snap.Playlists {
			if !p.TracksLoaded || len(p.Tracks) == 0 {
				t.Errorf("expected %s to carry its tracks", p.Name)
			}
		}
		if lib.Calls("PlaylistTracks:p.2") != 0 {
			t.Error("expected untracked playlists to be skipped")
		}
		if lib.Calls("PlaylistTracks:p.1") != 1 || lib.Calls("PlaylistTracks:p.3") != 1 {
			t.Error("expected one fetch per tracked playlist")
		}
	})

	t.Run("prefetch failure leaves playlist unloaded", func(t *testing.T) {
		lib := testLibrary()
		lib.PlaylistErrs = map[string]error{"p.1": shared.ErrAPIRequest}
		engine := NewLibraryEngine(EngineOpts{Library: lib, Sessions: readySessions(t), Logger: logger, PrefetchPlaylistTracks: true})

		snap, err := engine.Load(ctx, nil, false)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if snap.Playlists[0].TracksLoaded {
			t.Error("expected the failed playlist to stay unloaded")
		}
		if !snap.Playlists[1].TracksLoaded {
			t.Error("expected the other playlist to load")
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		engine := NewLibraryEngine(EngineOpts{Library: testLibrary(), Sessions: readySessions(t), Logger: logger})
		if _, err := engine.Load(cctx, nil, false); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestPhaseString(t *testing.T) {
	tests := []struct {
		phase Phase
		want  string
	}{
		{CacheLoad, "cache_load"},
		{FetchLibrary, "fetch_library"},
		{FetchPlaylistTracks, "fetch_playlist_tracks"},
		{CacheWrite, "cache_write"},
		{Phase(99), ""},
	}

	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.want {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.want)
		}
	}
}

func TestSendProgress(t *testing.T) {
	t.Run("nil channel", func(t *testing.T) {
		sendProgress(nil, songsLoadedUpdate(10))
	})

	t.Run("full channel does not block", func(t *testing.T) {
		progress := make(chan ProgressUpdate, 1)
		sendProgress(progress, songsLoadedUpdate(100))
		sendProgress(progress, songsLoadedUpdate(200))

		if u := <-progress; u.Message != "100 songs loaded so far" {
			t.Errorf("unexpected message %q", u.Message)
		}
	})
}
