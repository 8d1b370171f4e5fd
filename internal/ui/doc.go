// Package ui implements an interactive watchlist browser using bubbletea's Elm architecture.
//
// The TUI has two views:
//  1. [ListView] : Browse, filter, and remove saved movies and shows
//  2. [ConfirmClearView] : Confirm wiping the local watchlist
//
// The [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Sync transitions flow through a channel from the watchlist store, so a sync started by a login elsewhere
// still shows up in the status line.
//
// Keyboard navigation uses vim-style bindings (j/k, /, x, s, c, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui
