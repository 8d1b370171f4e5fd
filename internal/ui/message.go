package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/watchx/internal/watchlist"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgSyncUpdate MsgKind = iota
	MsgSyncComplete
	MsgUpdatesClosed
)

// syncUpdateMsg is the constructor for [MsgSyncUpdate]
func syncUpdateMsg(update watchlist.SyncUpdate) Msg {
	return Msg{kind: MsgSyncUpdate, data: update}
}

// syncCompleteMsg is the constructor for [MsgSyncComplete]
func syncCompleteMsg(result watchlist.SyncResult) Msg {
	return Msg{kind: MsgSyncComplete, data: result}
}

// updatesClosedMsg is the constructor for [MsgUpdatesClosed]
func updatesClosedMsg() Msg {
	return Msg{kind: MsgUpdatesClosed}
}
