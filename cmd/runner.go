package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/trainx/internal/models"
	"github.com/desertthunder/trainx/internal/repositories"
	"github.com/desertthunder/trainx/internal/services"
	"github.com/desertthunder/trainx/internal/shared"
	"github.com/desertthunder/trainx/internal/tasks"
	"github.com/hokaccha/go-prettyjson"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config  *shared.Config
	api     services.TrainingAPI
	baseURL string
	logger  *log.Logger
	output  io.Writer
	prompt  func(ctx context.Context) (models.ModelType, error)
	open    func(url string) error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config  *shared.Config
	API     services.TrainingAPI
	BaseURL string
	Logger  *log.Logger
	Output  io.Writer
	Prompt  func(ctx context.Context) (models.ModelType, error)
	Open    func(url string) error
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.BaseURL == "" {
		opts.BaseURL = opts.Config.API.BaseURL
	}
	if opts.Prompt == nil {
		opts.Prompt = promptModelType
	}
	if opts.Open == nil {
		opts.Open = shared.OpenBrowser
	}

	return &Runner{
		config:  opts.Config,
		api:     opts.API,
		baseURL: opts.BaseURL,
		logger:  opts.Logger,
		output:  opts.Output,
		prompt:  opts.Prompt,
		open:    opts.Open,
	}
}

// SetLogger replaces the logger used by command actions.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, trainCommand, progressCommand, historyCommand, openCommand, mockCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// history opens the run database. Callers close the returned database.
func (r *Runner) history() (*repositories.RunHistory, *sql.DB, error) {
	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, nil, err
	}
	return repositories.NewRunHistory(repositories.NewRunRepository(db)), db, nil
}

// recorder returns run history for best-effort recording, or nil when the database is unavailable.
func (r *Runner) recorder() (tasks.RunRecorder, func()) {
	h, db, err := r.history()
	if err != nil {
		r.logger.Warn("run history unavailable", "path", r.config.Database.Path, "error", err)
		return nil, func() {}
	}
	return h, func() { db.Close() }
}

func (r *Runner) requireAPI() error {
	if r.api == nil {
		return fmt.Errorf("%w: training API not initialized", shared.ErrServiceUnavailable)
	}
	return nil
}

// promptModelType asks for a model type with an interactive select.
func promptModelType(ctx context.Context) (models.ModelType, error) {
	selected := string(models.DefaultModelType)
	options := make([]huh.Option[string], 0, len(models.ModelTypes()))
	for _, m := range models.ModelTypes() {
		options = append(options, huh.NewOption(m.Label(), string(m)))
	}

	sel := huh.NewSelect[string]().
		Title("Model type").
		Options(options...).
		Value(&selected)

	if err := huh.NewForm(huh.NewGroup(sel)).RunWithContext(ctx); err != nil {
		return "", err
	}
	return models.ParseModelType(selected)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

// writePrettyJSON writes colorized, indented JSON for terminal display.
func (r *Runner) writePrettyJSON(data any) error {
	output, err := prettyjson.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
