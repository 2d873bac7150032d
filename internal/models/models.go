// package models defines the library data shared by the fetcher, cache, stats and UI layers
package models

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/devonwallerson/amlibrary-plays/internal/shared"
)

// Artwork is a templated image reference; URL contains {w} and {h} placeholders.
type Artwork struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Track is a library song as returned by the vendor API.
type Track struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	ArtistName     string   `json:"artist_name"`
	AlbumName      string   `json:"album_name"`
	ReleaseDate    string   `json:"release_date,omitempty"`
	DurationMillis int      `json:"duration_ms"`
	PlayCount      *int     `json:"play_count,omitempty"`
	ContentRating  string   `json:"content_rating,omitempty"`
	GenreNames     []string `json:"genre_names,omitempty"`
	TrackNumber    int      `json:"track_number"`
	Artwork        Artwork  `json:"artwork"`
}

// Key returns the normalized (name, artist) identity of the track.
func (t Track) Key() string {
	return shared.NormalizeTrackKey(t.Name, t.ArtistName)
}

// ArtworkURL fills the artwork template with the given dimensions.
//
// Returns "" when the track has no artwork.
func (t Track) ArtworkURL(w, h int) string {
	if t.Artwork.URL == "" {
		return ""
	}
	r := strings.NewReplacer("{w}", strconv.Itoa(w), "{h}", strconv.Itoa(h))
	return r.Replace(t.Artwork.URL)
}

// Duration returns the track length.
func (t Track) Duration() time.Duration {
	return time.Duration(t.DurationMillis) * time.Millisecond
}

// Length returns the track length as HH:MM:SS.
func (t Track) Length() string {
	return shared.FormatDuration(t.DurationMillis)
}

// Plays returns the play count, or 0 when the vendor did not report one.
func (t Track) Plays() int {
	if t.PlayCount == nil {
		return 0
	}
	return *t.PlayCount
}

// PlaylistKind classifies a playlist by its display name.
type PlaylistKind int

const (
	OtherPlaylist PlaylistKind = iota
	ReplayPlaylist
	FavoritesPlaylist
	RotationPlaylist
)

func (k PlaylistKind) String() string {
	switch k {
	case ReplayPlaylist:
		return "replay"
	case FavoritesPlaylist:
		return "favorites"
	case RotationPlaylist:
		return "rotation"
	default:
		return "other"
	}
}

const (
	FavoriteSongsName    = "Favorite Songs"
	HeavyRotationMixName = "Heavy Rotation Mix"
)

var replayPattern = regexp.MustCompile(`^Replay (\d{4})\b`)

// Playlist is a library playlist. Tracks are fetched lazily; TracksLoaded reports whether they are present.
type Playlist struct {
	ID           string  `json:"id"`
	Name         string  `json:"name"`
	Tracks       []Track `json:"tracks,omitempty"`
	TracksLoaded bool    `json:"tracks_loaded"`
}

// Kind returns the semantic category encoded in the playlist name.
func (p Playlist) Kind() PlaylistKind {
	switch {
	case replayPattern.MatchString(p.Name):
		return ReplayPlaylist
	case strings.Contains(p.Name, HeavyRotationMixName):
		return RotationPlaylist
	case strings.Contains(p.Name, FavoriteSongsName):
		return FavoritesPlaylist
	default:
		return OtherPlaylist
	}
}

// Year returns the recap year for "Replay <yyyy>" playlists and "" otherwise.
func (p Playlist) Year() string {
	if m := replayPattern.FindStringSubmatch(p.Name); m != nil {
		return m[1]
	}
	return ""
}

// Tracked reports whether the playlist is one of the vendor-curated recaps or mixes.
func (p Playlist) Tracked() bool {
	return p.Kind() != OtherPlaylist
}

// WithTracks returns a copy of p holding tracks.
func (p Playlist) WithTracks(tracks []Track) Playlist {
	p.Tracks = tracks
	p.TracksLoaded = true
	return p
}

// ArtistSummary is one entry of the artist list derived from the library.
type ArtistSummary struct {
	Name           string `json:"name"`
	SongCount      int    `json:"song_count"`
	PlayCount      int    `json:"play_count"`
	DurationMillis int    `json:"duration_ms"`
}

// Recommendation is a personal recommendation group from the vendor.
type Recommendation struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Kind  string `json:"kind,omitempty"`
}

// Snapshot holds the four cached datasets.
type Snapshot struct {
	Library        []Track         `json:"library"`
	Playlists      []Playlist      `json:"playlists"`
	Artists        []ArtistSummary `json:"artists"`
	RecentlyPlayed []Track         `json:"recently_played"`
}

// CacheEntry is one persisted dataset with the time it was written.
type CacheEntry struct {
	Key       string
	Payload   []byte
	WrittenAt time.Time
}
