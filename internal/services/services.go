// Library interface for reading a user's Apple Music data
package services

import (
	"context"

	"github.com/devonwallerson/amlibrary-plays/internal/models"
)

// UserTokenHeader carries the per-user credential on every personalized request.
const UserTokenHeader = "Music-User-Token"

// Library defines the per-user reads the loader and stats layers need.
type Library interface {
	// LibrarySongs retrieves every song in the user's library, in vendor order.
	LibrarySongs(ctx context.Context) ([]models.Track, error)

	// LibraryPlaylists retrieves playlist metadata (without tracks).
	LibraryPlaylists(ctx context.Context) ([]models.Playlist, error)

	// PlaylistTracks retrieves the ordered track list of one playlist.
	PlaylistTracks(ctx context.Context, playlistID string) ([]models.Track, error)

	// RecentlyPlayed retrieves recently played tracks.
	RecentlyPlayed(ctx context.Context) ([]models.Track, error)

	// Recommendations retrieves personal recommendation groups, optionally restricted to ids.
	Recommendations(ctx context.Context, ids []string) ([]models.Recommendation, error)

	// Name returns the name of the service
	Name() string
}

// PageGetter fetches one page of endpoint into out.
type PageGetter interface {
	GetPage(ctx context.Context, endpoint string, limit, offset int, out any) error
}
