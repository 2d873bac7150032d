// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI walks through the app in four views:
//  1. [SignInView] : Wait for an Apple Music user token (browser authorization when none is configured)
//  2. [LoadingView] : Load the library from the cache or the API, showing a running song count
//  3. [SearchView] : Type a query and pick one of the top matches
//  4. [StatsView] : Show the selected song's stats over its artwork gradient
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the LibraryEngine; stats and gradients come from a tasks.Selector,
// so a selection that is superseded before it finishes never overwrites the newer one.
package ui
