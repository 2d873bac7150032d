// Package services defines the [Library] interface for reading a user's Apple Music library and implements it
// against the Apple Music API.
//
// # Paging
//
// [FetchAll] walks a paged endpoint with a fixed page size, requesting offsets 0, P, 2P, ... one after
// another and stopping at the first page holding fewer than P items. N items at page size P therefore
// take N/P+1 requests (integer division).
//
// # Apple Music Implementation
//
// [MusicService] sends the developer token as a bearer credential through an [oauth2.Transport] with a
// static token source, and the user's token in the Music-User-Token header. Requests are paced by an
// optional [rate.Limiter].
//
// Vendor resources ([MusicSong], [MusicPlaylist], [MusicRecommendation]) are mapped to models.Track,
// models.Playlist and models.Recommendation.
//
// # Proxy Client
//
// [APIService] talks to the local proxy (see the serve command), which holds the developer token so the
// client only needs a user token.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : no user token
//   - [shared.ErrMissingCredentials] : no developer token
//   - [shared.ErrAPIRequest] : transport failure or non-2xx status (see [APIError])
//   - [shared.ErrInvalidArgument] : non-positive page size
package services
