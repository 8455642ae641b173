package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/trainx/internal/models"
	"github.com/desertthunder/trainx/internal/services"
	"github.com/desertthunder/trainx/internal/shared"
	"github.com/desertthunder/trainx/internal/tasks"
)

const maxNotices = 5

// Pane identifies the focused input on the page.
type Pane int

const (
	FilePane Pane = iota
	ModelPane
)

// PageOpts holds the dependencies of a [TrainPage].
type PageOpts struct {
	Context  context.Context
	API      services.TrainingAPI
	Interval time.Duration
	Tracking shared.TrackingConfig
	Recorder tasks.RunRecorder
	BaseURL  string
	StartDir string
	Open     func(url string) error
	Logger   *log.Logger
}

// TrainPage is the training page: a dataset picker, a model type list, a progress bar and notifications.
//
// All state transitions go through its [tasks.Session]. HTTP calls run as commands and their results
// come back as messages tagged with the polling generation.
type TrainPage struct {
	ctx      context.Context
	cancel   context.CancelFunc
	api      services.TrainingAPI
	interval time.Duration
	tracking shared.TrackingConfig
	recorder tasks.RunRecorder
	baseURL  string
	open     func(string) error
	logger   *log.Logger

	session *tasks.Session
	focus   Pane
	files   filepicker.Model
	models  list.Model
	bar     progress.Model
	help    help.Model
	keys    keyMap
	notices []tasks.Notice
	width   int
}

// NewTrainPage creates the page and its session.
func NewTrainPage(opts PageOpts) *TrainPage {
	parent := opts.Context
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	interval := opts.Interval
	if interval <= 0 {
		interval = tasks.DefaultPollInterval
	}
	open := opts.Open
	if open == nil {
		open = shared.OpenBrowser
	}
	logger := opts.Logger
	if logger == nil {
		logger = shared.NewLogger(io.Discard)
	}

	fp := filepicker.New()
	fp.AllowedTypes = models.DatasetExtensions
	fp.AutoHeight = false
	fp.SetHeight(8)
	fp.CurrentDirectory = opts.StartDir
	if fp.CurrentDirectory == "" {
		if wd, err := os.Getwd(); err == nil {
			fp.CurrentDirectory = wd
		}
	}

	ml := list.New(modelItems(), list.NewDefaultDelegate(), 40, 12)
	ml.Title = "Model type"
	ml.SetShowHelp(false)
	ml.SetShowStatusBar(false)
	ml.SetFilteringEnabled(false)

	return &TrainPage{
		ctx:      ctx,
		cancel:   cancel,
		api:      opts.API,
		interval: interval,
		tracking: opts.Tracking,
		recorder: opts.Recorder,
		baseURL:  opts.BaseURL,
		open:     open,
		logger:   logger,
		session:  tasks.NewSession(),
		focus:    FilePane,
		files:    fp,
		models:   ml,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Session exposes the page state.
func (p *TrainPage) Session() *tasks.Session { return p.session }

// Notices returns the notifications currently displayed, oldest first.
func (p *TrainPage) Notices() []tasks.Notice { return p.notices }

// Close stops polling and cancels in-flight requests.
func (p *TrainPage) Close() {
	p.session.Close()
	p.cancel()
}

// Init reads the starting directory for the file picker.
func (p *TrainPage) Init() tea.Cmd {
	return p.files.Init()
}

// Update handles incoming messages and updates the page state.
func (p *TrainPage) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		p.width = msg.Width
		p.help.Width = msg.Width
		return p, nil
	case tea.KeyMsg:
		return p.handleKeys(msg)
	case Msg:
		return p.handleMsg(msg)
	}

	var cmd tea.Cmd
	p.files, cmd = p.files.Update(msg)
	return p, cmd
}

func (p *TrainPage) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, p.keys.focus):
		if p.focus == FilePane {
			p.focus = ModelPane
		} else {
			p.focus = FilePane
		}
		return p, nil
	case key.Matches(msg, p.keys.start):
		return p, p.startTraining()
	case key.Matches(msg, p.keys.open):
		return p, p.openLink()
	case key.Matches(msg, p.keys.remove):
		p.upload(tasks.UploadEvent{Status: tasks.UploadRemoved})
		return p, nil
	}

	if p.focus == ModelPane {
		return p, p.updateModels(msg)
	}
	return p, p.updateFiles(msg)
}

func (p *TrainPage) updateFiles(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	p.files, cmd = p.files.Update(msg)

	if ok, path := p.files.DidSelectFile(msg); ok {
		p.upload(tasks.UploadEvent{Status: tasks.UploadUploading})
		return tea.Batch(cmd, loadDataset(path))
	}
	if ok, path := p.files.DidSelectDisabledFile(msg); ok {
		p.upload(tasks.UploadEvent{
			Status:  tasks.UploadError,
			Message: fmt.Sprintf("%s is not a supported dataset (%s)", path, strings.Join(models.DatasetExtensions, ", ")),
		})
	}
	return cmd
}

// updateModels forwards navigation to the model list. The list is inert while training.
func (p *TrainPage) updateModels(msg tea.Msg) tea.Cmd {
	if p.session.Training() {
		return nil
	}

	var cmd tea.Cmd
	p.models, cmd = p.models.Update(msg)
	if item, ok := p.models.SelectedItem().(modelItem); ok {
		if err := p.session.SelectModelType(item.model); err != nil {
			p.logger.Warn("model type rejected", "model", item.model, "error", err)
		}
	}
	return cmd
}

func (p *TrainPage) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgDatasetLoaded:
		data := msg.data.(datasetLoaded)
		if data.err != nil {
			p.upload(tasks.UploadEvent{Status: tasks.UploadError, Message: data.err.Error()})
		} else {
			p.upload(tasks.UploadEvent{Status: tasks.UploadDone, File: data.dataset})
		}
		return p, nil

	case MsgTrainingStarted:
		data := msg.data.(trainingStarted)
		gen, ok := p.session.Started(data.session, data.err)
		p.drain()
		if !ok {
			if data.err != nil {
				p.logger.Error("start training failed", "error", data.err)
			}
			return p, nil
		}
		p.logger.Info("training started", "run_id", p.session.RunID(), "model", p.session.ModelType())
		if p.recorder != nil {
			if err := p.recorder.RecordStart(p.session.RunID(), p.session.Dataset(), p.session.ModelType(), p.baseURL); err != nil {
				p.logger.Warn("history record failed", "run_id", p.session.RunID(), "error", err)
			}
		}
		return p, p.tick(gen)

	case MsgPollTick:
		gen := msg.data.(uint64)
		if !p.session.Polling(gen) {
			return p, nil
		}
		if !p.session.Tick(gen) {
			p.logger.Debug("poll skipped, previous request in flight", "gen", gen)
			return p, p.tick(gen)
		}
		return p, tea.Batch(p.fetchProgress(gen, p.session.RunID()), p.tick(gen))

	case MsgProgressFetched:
		data := msg.data.(progressFetched)
		if !p.session.Polling(data.gen) {
			return p, nil
		}
		p.session.ApplyProgress(data.gen, data.progress, data.err)
		p.drain()
		p.record(data)
		return p, nil

	case MsgLinkOpened:
		data := msg.data.(linkOpened)
		if data.err != nil {
			p.push(tasks.Notice{Level: tasks.NoticeError, Title: "Could not open browser", Detail: data.err.Error()})
		}
		return p, nil
	}
	return p, nil
}

func (p *TrainPage) record(data progressFetched) {
	if p.recorder == nil {
		return
	}
	runID := p.session.RunID()
	var err error
	switch {
	case data.err != nil:
		err = p.recorder.RecordProgress(runID, models.Progress{
			RunID:    runID,
			Progress: p.session.Progress(),
			Status:   models.StatusFailed,
			Message:  services.ErrorMessage(data.err),
		})
	case data.progress != nil:
		err = p.recorder.RecordProgress(runID, *data.progress)
	}
	if err != nil {
		p.logger.Warn("history record failed", "run_id", runID, "error", err)
	}
}

func (p *TrainPage) upload(ev tasks.UploadEvent) {
	p.session.HandleUpload(ev)
	p.drain()
}

func (p *TrainPage) drain() {
	for _, n := range p.session.DrainNotices() {
		p.push(n)
	}
}

func (p *TrainPage) push(n tasks.Notice) {
	p.notices = append(p.notices, n)
	if len(p.notices) > maxNotices {
		p.notices = p.notices[len(p.notices)-maxNotices:]
	}
}

func (p *TrainPage) startTraining() tea.Cmd {
	req, err := p.session.Begin()
	p.drain()
	if err != nil {
		if !errors.Is(err, shared.ErrNoDataset) {
			p.logger.Debug("start ignored", "error", err)
		}
		return nil
	}

	api, ctx := p.api, p.ctx
	return func() tea.Msg {
		if api == nil {
			return trainingStartedMsg(nil, fmt.Errorf("%w: training API not configured", shared.ErrServiceUnavailable))
		}
		session, err := api.StartTraining(ctx, req)
		return trainingStartedMsg(session, err)
	}
}

func (p *TrainPage) tick(gen uint64) tea.Cmd {
	return tea.Tick(p.interval, func(time.Time) tea.Msg {
		return pollTickMsg(gen)
	})
}

func (p *TrainPage) fetchProgress(gen uint64, runID string) tea.Cmd {
	api, ctx := p.api, p.ctx
	return func() tea.Msg {
		prog, err := api.GetProgress(ctx, runID)
		return progressFetchedMsg(gen, prog, err)
	}
}

func (p *TrainPage) openLink() tea.Cmd {
	link, ok := p.session.TrackingLink(p.tracking)
	if !ok {
		return nil
	}
	open := p.open
	return func() tea.Msg {
		return linkOpenedMsg(link, open(link))
	}
}

func loadDataset(path string) tea.Cmd {
	return func() tea.Msg {
		if !models.SupportedDataset(path) {
			return datasetLoadedMsg(nil, fmt.Errorf("%w: %s", shared.ErrInvalidDataset, path))
		}
		d, err := models.NewDatasetFromPath(path)
		return datasetLoadedMsg(d, err)
	}
}

// View renders the page.
func (p *TrainPage) View() string {
	var b strings.Builder

	b.WriteString(styles.title.Render("Train a model"))
	b.WriteString("\n")

	b.WriteString(p.renderFiles())
	b.WriteString("\n")
	b.WriteString(p.renderModels())
	b.WriteString("\n\n")
	b.WriteString(p.renderRun())

	if len(p.notices) > 0 {
		b.WriteString("\n\n")
		for _, n := range p.notices {
			b.WriteString(styles.notice(n))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(p.help.View(p.keys))
	return b.String()
}

func (p *TrainPage) renderFiles() string {
	selected := styles.help.Render("no dataset selected")
	if d := p.session.Dataset(); d != nil {
		selected = fmt.Sprintf("%s %s", styles.label.Render("Dataset:"), d.Name)
	}
	content := fmt.Sprintf("%s\n%s\n%s", styles.label.Render("Upload dataset ("+strings.Join(models.DatasetExtensions, ", ")+")"), p.files.View(), selected)
	return styles.panel(content, p.focus == FilePane)
}

func (p *TrainPage) renderModels() string {
	content := p.models.View()
	if p.session.Training() {
		content += "\n" + styles.help.Render("locked while training")
	} else {
		content += "\n" + fmt.Sprintf("%s %s", styles.label.Render("Selected:"), p.session.ModelType().Label())
	}
	return styles.panel(content, p.focus == ModelPane)
}

func (p *TrainPage) renderRun() string {
	var b strings.Builder

	switch {
	case p.session.Training():
		b.WriteString(styles.warn.Render("Training..."))
	case p.session.CanStart():
		b.WriteString(styles.ok.Render("[s] Start training"))
	default:
		b.WriteString(styles.help.Render("[s] Start training"))
	}

	if p.session.RunID() == "" {
		return b.String()
	}

	fmt.Fprintf(&b, "\n%s %s\n", styles.label.Render("Run:"), p.session.RunID())
	b.WriteString(p.bar.ViewAs(float64(p.session.Progress()) / 100))

	if last := p.session.LastProgress(); last != nil && last.Status == models.StatusCompleted {
		fmt.Fprintf(&b, "\n%s %s", styles.label.Render("Accuracy:"), last.AccuracyString())
	}
	if link, ok := p.session.TrackingLink(p.tracking); ok {
		fmt.Fprintf(&b, "\n%s %s", styles.label.Render("MLflow:"), link)
	}
	return b.String()
}
