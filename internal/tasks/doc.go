// Package tasks orchestrates library loading and track selection with real-time progress reporting.
//
// # Core Operations
//
//  1. [LibraryEngine.Load] : Load the four library datasets
//     - Serves the cached snapshot while the cache manifest is fresh
//     - Otherwise fetches songs, tracked playlists and recently played tracks concurrently
//     - Derives the artist list and writes each dataset that arrived
//     - Reports failed datasets in a joined error, leaving their cache entries untouched
//
//  2. [Selector] : Track selection lifecycle
//     - [Selector.Begin] starts a selection and returns a [Job], or nil when the track is already selected
//     - [Job.Run] computes stats and the artwork gradient concurrently
//     - [Selector.Finish] applies an outcome only while its selection is still current
//
// # Progress Reporting
//
// Operations use non-blocking channels for progress updates.
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data for advanced UI rendering.
// Updates use select with default to prevent blocking.
package tasks
