package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/trainx/internal/models"
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
	MsgDatasetLoaded MsgKind = iota
	MsgTrainingStarted
	MsgPollTick
	MsgProgressFetched
	MsgLinkOpened
)

type datasetLoaded struct {
	dataset *models.Dataset
	err     error
}

type trainingStarted struct {
	session *models.TrainingSession
	err     error
}

type progressFetched struct {
	gen      uint64
	progress *models.Progress
	err      error
}

type linkOpened struct {
	url string
	err error
}

// datasetLoadedMsg is the constructor for [MsgDatasetLoaded]
func datasetLoadedMsg(dataset *models.Dataset, err error) Msg {
	return Msg{kind: MsgDatasetLoaded, data: datasetLoaded{dataset, err}}
}

// trainingStartedMsg is the constructor for [MsgTrainingStarted]
func trainingStartedMsg(session *models.TrainingSession, err error) Msg {
	return Msg{kind: MsgTrainingStarted, data: trainingStarted{session, err}}
}

// pollTickMsg is the constructor for [MsgPollTick]. The payload is the polling generation.
func pollTickMsg(gen uint64) Msg {
	return Msg{kind: MsgPollTick, data: gen}
}

// progressFetchedMsg is the constructor for [MsgProgressFetched]
func progressFetchedMsg(gen uint64, p *models.Progress, err error) Msg {
	return Msg{kind: MsgProgressFetched, data: progressFetched{gen, p, err}}
}

// linkOpenedMsg is the constructor for [MsgLinkOpened]
func linkOpenedMsg(url string, err error) Msg {
	return Msg{kind: MsgLinkOpened, data: linkOpened{url, err}}
}
