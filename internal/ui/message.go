package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotx/internal/services"
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
	MsgLookupComplete MsgKind = iota
	MsgBrowserOpened
)

type lookupComplete struct {
	query  string
	result *services.Result
	err    error
}

// lookupCompleteMsg is the constructor for [MsgLookupComplete]
func lookupCompleteMsg(query string, result *services.Result, err error) Msg {
	return Msg{kind: MsgLookupComplete, data: lookupComplete{query, result, err}}
}

type browserOpened struct {
	url string
	err error
}

// browserOpenedMsg is the constructor for [MsgBrowserOpened]
func browserOpenedMsg(url string, err error) Msg {
	return Msg{kind: MsgBrowserOpened, data: browserOpened{url, err}}
}
