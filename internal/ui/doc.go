// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view workflow for sorting a playlist:
//  1. [PlaylistListView] : Browse and select playlists
//  2. [ItemListView] : Preview the videos in playlist order
//  3. [SortView] : Pick a sort key and direction
//  4. [ConfirmView] : Create a new playlist or only preview the sorted order
//  5. [ProgressView] : Monitor real-time progress updates
//  6. [ResultView] : Display the sorted videos or the created playlist, with resume on partial failure
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the PlaylistEngine, providing non-blocking status reporting during inserts.
//
// Keyboard navigation uses vim-style bindings (j/k, enter, esc, y/n, r, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
