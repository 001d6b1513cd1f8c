// Package tui provides a Bubble Tea terminal user interface for the downloader.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"mslearn-downloader/internal/config"
	"mslearn-downloader/internal/download"
	"mslearn-downloader/internal/job"
	"mslearn-downloader/internal/model"
	"mslearn-downloader/internal/render"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#0078D4")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	itemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateSubmitting
	StateDownloading
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	logs      []LogEntry
	err       error

	ctx    context.Context
	cancel context.CancelFunc

	manager *download.Manager
	tracker *job.Tracker
	events  chan download.ProgressEvent

	jobID string
	snap  model.Job

	verbose bool

	width  int
	height int
}

// NewModel creates a new TUI model.
func NewModel(settings *config.Settings, log *logrus.Logger) (Model, error) {
	ti := textinput.New()
	ti.Placeholder = "learn.intro-to-power-automate learn.create-flows"
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#0078D4"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	renderer, err := render.NewHTMLRenderer()
	if err != nil {
		cancel()
		return Model{}, err
	}

	events := make(chan download.ProgressEvent, 256)
	tracker := job.NewTracker(settings.Jobs, log)
	manager := download.NewManager(settings, tracker, renderer, log, func(event download.ProgressEvent) {
		select {
		case events <- event:
		default:
		}
	})

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  settings,
		logs:      make([]LogEntry, 0),
		ctx:       ctx,
		cancel:    cancel,
		manager:   manager,
		tracker:   tracker,
		events:    events,
	}, nil
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// SubmitDoneMsg is sent when the job has been registered.
	SubmitDoneMsg struct {
		JobID string
		Err   error
	}

	// TickMsg drives periodic polling of the job tracker.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 20
		if m.progress.Width > 80 {
			m.progress.Width = 80
		}
		if m.progress.Width < 20 {
			m.progress.Width = 20
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateDownloading || m.state == StateSubmitting {
				if m.jobID != "" {
					m.tracker.Cancel(m.jobID)
				}
				m.state = StateError
				m.err = fmt.Errorf("cancelled by user")
			}

		case "enter":
			if m.state == StateInput && m.textInput.Value() != "" {
				m.state = StateSubmitting
				return m, tea.Batch(m.submitJob(), m.spinner.Tick)
			}

		case "v":
			if m.state == StateInput {
				m.verbose = !m.verbose
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				// Reset for a new job
				m.state = StateInput
				m.logs = nil
				m.err = nil
				m.jobID = ""
				m.snap = model.Job{}
				m.textInput.SetValue("")
				m.textInput.Focus()
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case SubmitDoneMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
		} else {
			m.jobID = msg.JobID
			m.state = StateDownloading
			cmds = append(cmds, m.tickProgress())
		}

	case TickMsg:
		m.drainEvents()
		if m.jobID != "" && m.state == StateDownloading {
			snap, err := m.tracker.Snapshot(m.jobID)
			if err == nil {
				m.snap = snap
			}
			if m.snap.Status == model.JobCompleted {
				m.state = StateComplete
			} else if m.snap.Status == model.JobFailed {
				m.state = StateError
				m.err = fmt.Errorf("%s", m.snap.Reason)
			} else {
				progressCmd := m.progress.SetPercent(float64(m.snap.Progress) / 100)
				cmds = append(cmds, progressCmd, m.tickProgress())
			}
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	// Update text input
	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// drainEvents moves buffered manager events into the visible log.
func (m *Model) drainEvents() {
	for {
		select {
		case event := <-m.events:
			if event.Level == download.LevelVerbose && !m.verbose {
				continue
			}
			m.logs = append(m.logs, LogEntry{Message: event.Message, Level: event.Level})
			if len(m.logs) > 10 {
				m.logs = m.logs[len(m.logs)-10:]
			}
		default:
			return
		}
	}
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Microsoft Learn Downloader"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Download training content for offline reading"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateSubmitting:
		b.WriteString(m.viewSubmitting())
	case StateDownloading:
		b.WriteString(m.viewDownloading())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Enter catalog item uids (space separated):"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	verboseCheck := "[ ]"
	if m.verbose {
		verboseCheck = "[x]"
	}
	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Verbose output (v)\n", verboseCheck))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Output path: %s", m.settings.Storage.OutputDir)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewSubmitting() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Submitting job..."))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewDownloading() string {
	var b strings.Builder

	if m.snap.TotalItems > 0 {
		b.WriteString(successStyle.Render(fmt.Sprintf("Downloading %d item(s):", m.snap.TotalItems)))
		b.WriteString("\n")
		for _, item := range m.snap.Items {
			b.WriteString(itemStyle.Render(fmt.Sprintf("  - %s [%s]", item.Title, item.Status)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(m.progress.ViewAs(float64(m.snap.Progress) / 100))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf("%d%% | %s", m.snap.Progress, m.snap.Message)))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	succeeded := 0
	for _, item := range m.snap.Items {
		if item.Status != "failed" {
			succeeded++
		}
	}

	return boxStyle.Render(fmt.Sprintf(
		"Download complete\n\n"+
			"Items: %d/%d\n"+
			"Output: %s",
		succeeded,
		m.snap.TotalItems,
		m.settings.Storage.OutputDir,
	))
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "-"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "x"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "+"
		case download.LevelInfo:
			style = infoStyle
			prefix = ">"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: start - v: verbose - esc: quit"
	case StateSubmitting, StateDownloading:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new download - q: quit"
	}
	return ""
}

// submitJob registers the typed uids as a new job.
func (m *Model) submitJob() tea.Cmd {
	return func() tea.Msg {
		fields := strings.FieldsFunc(m.textInput.Value(), func(r rune) bool {
			return r == ' ' || r == ',' || r == '\n'
		})

		var items []model.ItemRequest
		for _, uid := range fields {
			if uid = strings.TrimSpace(uid); uid != "" {
				items = append(items, model.ItemRequest{UID: uid})
			}
		}
		if len(items) == 0 {
			return SubmitDoneMsg{Err: fmt.Errorf("no item uids given")}
		}

		id, err := m.manager.Submit(m.ctx, items)
		return SubmitDoneMsg{JobID: id, Err: err}
	}
}

// Run starts the TUI application.
func Run(settings *config.Settings, log *logrus.Logger) error {
	m, err := NewModel(settings, log)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
