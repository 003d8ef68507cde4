// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI is a small lookup loop:
//  1. [InputView] : Type a Spotify link, URI or free-text query
//  2. [LoadingView] : The lookup runs as a command off the UI loop
//  3. [ResultView] : Browse the rows of the result (tracks, albums, artists)
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Successful lookups are recorded in history when a recorder is configured.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, o, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
