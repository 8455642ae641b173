package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/trainx/internal/shared"
)

// RootPath is the only route the shell serves.
const RootPath = "/"

// Page is a mountable screen. Close is called when the page is unmounted.
type Page interface {
	tea.Model
	Close()
}

// Route builds a fresh page for a path.
type Route func() Page

// Shell is the application container. It mounts one page per route and unmounts it on quit.
type Shell struct {
	routes map[string]Route
	path   string
	page   Page
	quit   key.Binding
}

// NewShell creates a shell with "/" mapped to a [TrainPage] built from opts.
func NewShell(opts PageOpts) *Shell {
	s := &Shell{
		routes: map[string]Route{
			RootPath: func() Page { return NewTrainPage(opts) },
		},
		quit: newKeyMap().quit,
	}
	_ = s.Mount(RootPath)
	return s
}

// Mount unmounts the current page and mounts the page for path.
func (s *Shell) Mount(path string) error {
	route, ok := s.routes[path]
	if !ok {
		return fmt.Errorf("%w: no route for %q", shared.ErrInvalidArgument, path)
	}
	s.Unmount()
	s.path = path
	s.page = route()
	return nil
}

// Unmount closes the mounted page, if any.
func (s *Shell) Unmount() {
	if s.page != nil {
		s.page.Close()
		s.page = nil
	}
}

// Path returns the mounted route.
func (s *Shell) Path() string { return s.path }

// Page returns the mounted page.
func (s *Shell) Page() Page { return s.page }

func (s *Shell) Init() tea.Cmd {
	if s.page == nil {
		return nil
	}
	return s.page.Init()
}

func (s *Shell) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && key.Matches(k, s.quit) {
		s.Unmount()
		return s, tea.Quit
	}
	if s.page == nil {
		return s, nil
	}

	_, cmd := s.page.Update(msg)
	return s, cmd
}

func (s *Shell) View() string {
	if s.page == nil {
		return ""
	}
	return s.page.View()
}
