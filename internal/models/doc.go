// Package models defines the library entities fetched from Apple Music.
//
//   - [Track] : a library song with its templated [Artwork]
//   - [Playlist] : a library playlist whose tracks are fetched lazily
//   - [ArtistSummary] : an entry of the artist list derived from the library
//   - [Snapshot] : the four datasets persisted by the cache manifest
//
// Playlist names carry meaning. "Replay 2022" is a yearly recap ([ReplayPlaylist]), while
// "Favorite Songs" and "Heavy Rotation Mix" are vendor mixes. [Playlist.Kind] classifies them and
// [Playlist.Tracked] selects the ones the stats view cares about.
//
// Tracks are immutable once fetched. The vendor library id does not line up across the library and
// playlist endpoints, so identity is decided by the stats package instead of by [Track.ID].
package models
