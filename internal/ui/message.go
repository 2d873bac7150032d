package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/devonwallerson/amlibrary-plays/internal/models"
	"github.com/devonwallerson/amlibrary-plays/internal/session"
	"github.com/devonwallerson/amlibrary-plays/internal/tasks"
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
	MsgSessionReady MsgKind = iota
	MsgProgressUpdate
	MsgLibraryLoaded
	MsgSelectionDone
)

type sessionResult struct {
	session *session.Session
	err     error
}

type loadResult struct {
	snapshot *models.Snapshot
	err      error
}

// sessionReadyMsg is the constructor for [MsgSessionReady]
func sessionReadyMsg(s *session.Session, err error) Msg {
	return Msg{kind: MsgSessionReady, data: sessionResult{s, err}}
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// libraryLoadedMsg is the constructor for [MsgLibraryLoaded]
func libraryLoadedMsg(snap *models.Snapshot, err error) Msg {
	return Msg{kind: MsgLibraryLoaded, data: loadResult{snap, err}}
}

// selectionDoneMsg is the constructor for [MsgSelectionDone]
func selectionDoneMsg(out tasks.Outcome) Msg {
	return Msg{kind: MsgSelectionDone, data: out}
}
