// Package ui implements the interactive training page using bubbletea's Elm architecture.
//
// [Shell] is a single-route container: "/" mounts a [TrainPage]. Quitting unmounts the page,
// which closes its session and cancels pending requests.
//
// [TrainPage] composes bubbles components:
//   - filepicker : choose a dataset (.csv or .parquet)
//   - list : choose the model type, inert while training
//   - progress : show the run's completion percentage
//   - help : contextual key bindings
//
// HTTP calls run as commands and report back through the Msg union type. Polling uses tea.Tick
// and every tick and result carries the session's polling generation, so a restarted run never
// receives results from the one it replaced.
package ui
