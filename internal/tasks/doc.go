// Package tasks holds the training session state machine and a headless runner built on it.
//
// # Session
//
// [Session] owns the client-side state of one training page: selected dataset, model type,
// the "training in progress" gate, the run ID and the last progress. Callers feed it events:
//
//  1. [Session.HandleUpload] : file picker lifecycle (uploading, done, error, removed)
//  2. [Session.Begin] / [Session.Started] : gate and record a start-training call
//  3. [Session.Tick] / [Session.ApplyProgress] : drive the polling loop
//  4. [Session.Close] : end the page lifetime
//
// Each started run opens a polling generation. Ticks and results tagged with an older generation
// are dropped, and a tick is skipped while the previous poll is in flight, so at most one loop
// polls at a time and polls never overlap.
//
// Transitions queue [Notice] values which the caller drains with [Session.DrainNotices].
//
// # Progress Reporting
//
// [Trainer] runs one session to completion for the CLI. Updates are sent on a [ProgressUpdate]
// channel using select with default so reporting never blocks the run.
//
// # Run History
//
// The optional [RunRecorder] persists runs (repositories.RunHistory). Recording errors are logged at warn level.
package tasks
