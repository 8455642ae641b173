package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/trainx/internal/shared"
	"github.com/desertthunder/trainx/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive training page.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireAPI(); err != nil {
		return err
	}

	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log.TUIPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	shared.SetLogLevel(fileLogger, r.logger.GetLevel())
	r.SetLogger(fileLogger)

	recorder, closeHistory := r.recorder()
	defer closeHistory()

	shell := ui.NewShell(ui.PageOpts{
		Context:  ctx,
		API:      r.api,
		Interval: r.config.Polling.Interval,
		Tracking: r.config.Tracking,
		Recorder: recorder,
		BaseURL:  r.baseURL,
		StartDir: cmd.String("dir"),
		Open:     r.open,
		Logger:   fileLogger,
	})
	defer shell.Unmount()

	p := tea.NewProgram(shell, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
