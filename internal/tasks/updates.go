package tasks

import (
	"fmt"

	"github.com/devonwallerson/amlibrary-plays/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	CacheLoad Phase = iota
	FetchLibrary
	FetchPlaylists
	FetchPlaylistTracks
	FetchRecent
	DeriveArtists
	CacheWrite
	ComputeStats
	ExtractPalette
)

func (p Phase) String() string {
	switch p {
	case CacheLoad:
		return "cache_load"
	case FetchLibrary:
		return "fetch_library"
	case FetchPlaylists:
		return "fetch_playlists"
	case FetchPlaylistTracks:
		return "fetch_playlist_tracks"
	case FetchRecent:
		return "fetch_recent"
	case DeriveArtists:
		return "derive_artists"
	case CacheWrite:
		return "cache_write"
	case ComputeStats:
		return "compute_stats"
	case ExtractPalette:
		return "extract_palette"
	default:
		return ""
	}
}

func cacheHitUpdate(snap *models.Snapshot) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CacheLoad,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Loaded %d songs from cache", len(snap.Library)),
		Data:    snap,
	}
}

func songsLoadedUpdate(loaded int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchLibrary,
		Step:    loaded,
		Message: fmt.Sprintf("%d songs loaded so far", loaded),
	}
}

func fetchingUpdate(phase Phase, what string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Fetching %s...", what),
	}
}

func fetchedUpdate(phase Phase, what string, count int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetched %d %s", count, what),
	}
}

func fetchFailedUpdate(phase Phase, what string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   phase,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("✗ %s: %v", what, err),
	}
}

func playlistTracksUpdate(step, total int, p models.Playlist) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylistTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s (%d tracks)", step, total, p.Name, len(p.Tracks)),
	}
}

func artistsUpdate(artists []models.ArtistSummary) ProgressUpdate {
	return ProgressUpdate{
		Phase:   DeriveArtists,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Derived %d artists", len(artists)),
	}
}

func cacheWriteUpdate(step, total int, key string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CacheWrite,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Cached %s", step, total, key),
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default to ensure progress reporting never blocks execution.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
