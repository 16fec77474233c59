package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/ytsort/internal/models"
	"github.com/desertthunder/ytsort/internal/tasks"
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
	MsgPlaylistsFetched MsgKind = iota
	MsgItemsFetched
	MsgProgressUpdate
	MsgRunComplete
)

type playlistsData struct {
	playlists []models.Playlist
	err       error
}

type itemsData struct {
	playlist models.Playlist
	items    []models.EnrichedItem
	err      error
}

type runData struct {
	result *tasks.SortResult
	err    error
}

// playlistsFetchedMsg is the constructor for [MsgPlaylistsFetched]
func playlistsFetchedMsg(playlists []models.Playlist, err error) Msg {
	return Msg{kind: MsgPlaylistsFetched, data: playlistsData{playlists, err}}
}

// itemsFetchedMsg is the constructor for [MsgItemsFetched]
func itemsFetchedMsg(playlist models.Playlist, items []models.EnrichedItem, err error) Msg {
	return Msg{kind: MsgItemsFetched, data: itemsData{playlist, items, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// runCompleteMsg is the constructor for [MsgRunComplete]
func runCompleteMsg(result *tasks.SortResult, err error) Msg {
	return Msg{kind: MsgRunComplete, data: runData{result, err}}
}
