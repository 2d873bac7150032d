// Package repositories implements SQLite persistence for the local dataset cache.
//
// Key Implementations:
//   - [CacheEntryRepository] : one row per dataset (library, playlists, artists, recently_played) holding the
//     JSON payload and the time it was written
//
// Writes are upserts, so a dataset always has at most one row and rewriting it refreshes written_at.
// Timestamps are stored in UTC.
package repositories
