// Package tui provides a Bubble Tea terminal user interface for track-converter.
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
	"github.com/handiism/track-converter/internal/config"
	"github.com/handiism/track-converter/internal/convert"
	"github.com/handiism/track-converter/internal/transcode"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
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

	setStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

// maxLogs is how many log lines stay on screen.
const maxLogs = 10

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateInitializing
	StateConverting
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   convert.ProgressLevel
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	logs      []LogEntry
	sets      []string
	summary   *convert.Summary
	err       error

	ctx    context.Context
	cancel context.CancelFunc

	converter *convert.Converter
	events    chan convert.ProgressEvent

	doneJobs  int32
	totalJobs int32

	// Options
	overwrite bool
	playlist  bool
	dryRun    bool
	verbose   bool

	width  int
	height int
}

// NewModel creates a new TUI model. configPath pre-fills the config input.
func NewModel(configPath string) Model {
	ti := textinput.New()
	ti.Placeholder = "track-convert.json"
	ti.SetValue(configPath)
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		logs:      make([]LogEntry, 0),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// ProgressMsg carries one converter event.
	ProgressMsg struct {
		Event convert.ProgressEvent
	}

	// InitDoneMsg is sent when descriptors are loaded and jobs planned.
	InitDoneMsg struct {
		Sets      []string
		Converter *convert.Converter
		Err       error
	}

	// ConvertDoneMsg is sent when the run finishes.
	ConvertDoneMsg struct {
		Summary *convert.Summary
		Err     error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = min(max(msg.Width-20, 20), 80)
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
			if m.state == StateConverting || m.state == StateInitializing {
				m.cancel()
			}

		case "enter":
			if m.state == StateInput {
				m.state = StateInitializing
				m.events = make(chan convert.ProgressEvent, 64)
				return m, tea.Batch(
					initialize(m.ctx, m.textInput.Value(), m.options(), m.events),
					waitForEvent(m.events),
					m.spinner.Tick,
				)
			}

		case "f", "p", "d", "v":
			// Option keys only act while the text input is blurred.
			if m.state == StateInput && !m.textInput.Focused() {
				m.toggle(msg.String())
				return m, nil
			}

		case "tab":
			if m.state == StateInput {
				if m.textInput.Focused() {
					m.textInput.Blur()
				} else {
					cmds = append(cmds, m.textInput.Focus())
				}
				return m, tea.Batch(cmds...)
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				m.state = StateInput
				m.logs = nil
				m.sets = nil
				m.err = nil
				m.summary = nil
				m.doneJobs = 0
				m.totalJobs = 0
				m.converter = nil
				m.ctx, m.cancel = context.WithCancel(context.Background())
				return m, m.textInput.Focus()
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case ProgressMsg:
		if msg.Event.Level != convert.LevelVerbose || m.verbose {
			m.logs = append(m.logs, LogEntry{Message: msg.Event.Message, Level: msg.Event.Level})
			if len(m.logs) > maxLogs {
				m.logs = m.logs[len(m.logs)-maxLogs:]
			}
		}
		cmds = append(cmds, waitForEvent(m.events))

	case InitDoneMsg:
		if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
		} else {
			m.sets = msg.Sets
			m.converter = msg.Converter
			m.doneJobs, m.totalJobs = m.converter.GetProgress()
			m.state = StateConverting
			cmds = append(cmds, run(m.ctx, m.converter), m.tickProgress())
		}

	case ConvertDoneMsg:
		m.summary = msg.Summary
		if m.converter != nil {
			m.doneJobs, m.totalJobs = m.converter.GetProgress()
		}
		switch {
		case m.ctx.Err() != nil:
			m.state = StateError
			m.err = fmt.Errorf("cancelled by user")
		case msg.Err != nil:
			m.state = StateError
			m.err = msg.Err
		default:
			m.state = StateComplete
		}

	case TickMsg:
		if m.converter != nil && m.state == StateConverting {
			m.doneJobs, m.totalJobs = m.converter.GetProgress()
			cmds = append(cmds, m.progress.SetPercent(m.percent()), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	if m.state == StateInput && m.textInput.Focused() {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) toggle(key string) {
	switch key {
	case "f":
		m.overwrite = !m.overwrite
	case "p":
		m.playlist = !m.playlist
	case "d":
		m.dryRun = !m.dryRun
	case "v":
		m.verbose = !m.verbose
	}
}

func (m Model) options() func(*config.Settings) {
	overwrite, playlist, dryRun, verbose := m.overwrite, m.playlist, m.dryRun, m.verbose
	return func(s *config.Settings) {
		s.Overwrite = s.Overwrite || overwrite
		s.CreatePlaylist = s.CreatePlaylist || playlist
		s.DryRun = s.DryRun || dryRun
		s.Verbose = s.Verbose || verbose
	}
}

func (m Model) percent() float64 {
	if m.totalJobs == 0 {
		return 0
	}
	return float64(m.doneJobs) / float64(m.totalJobs)
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

	b.WriteString(titleStyle.Render("♪ Track Converter"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Convert and tag audio from JSON descriptors"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateInitializing:
		b.WriteString(m.viewInitializing())
	case StateConverting:
		b.WriteString(m.viewConverting())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func checkbox(on bool) string {
	if on {
		return "[×]"
	}
	return "[ ]"
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Config file (empty for defaults):"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Overwrite existing files (f)\n", checkbox(m.overwrite)))
	b.WriteString(fmt.Sprintf("  %s Create playlists (p)\n", checkbox(m.playlist)))
	b.WriteString(fmt.Sprintf("  %s Dry run (d)\n", checkbox(m.dryRun)))
	b.WriteString(fmt.Sprintf("  %s Verbose output (v)\n", checkbox(m.verbose)))

	return b.String()
}

func (m Model) viewInitializing() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Loading descriptors..."))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewConverting() string {
	var b strings.Builder

	if len(m.sets) > 0 {
		b.WriteString(successStyle.Render(fmt.Sprintf("Loaded %d set(s):", len(m.sets))))
		b.WriteString("\n")
		for _, set := range m.sets {
			b.WriteString(setStyle.Render(fmt.Sprintf("  ♪ %s", set)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(m.progress.ViewAs(m.percent()))
	b.WriteString("\n")
	b.WriteString(infoStyle.Render(fmt.Sprintf("Files: %d/%d", m.doneJobs, m.totalJobs)))
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	if m.summary == nil {
		return boxStyle.Render("Nothing to do.")
	}

	var lines []string
	title := "✨ Conversion complete"
	if m.summary.DryRun {
		title = "✨ Dry run complete"
	}
	lines = append(lines, title, "")
	for _, set := range m.summary.Sets {
		lines = append(lines, fmt.Sprintf("%s: %s", set.Name, set))
	}
	lines = append(lines, "", fmt.Sprintf("Time: %s", m.summary.Duration.Round(time.Millisecond)))

	var b strings.Builder
	b.WriteString(boxStyle.Render(strings.Join(lines, "\n")))
	if m.summary.HasFailures() {
		b.WriteString("\n\n")
		b.WriteString(m.renderLogs())
	}
	return b.String()
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("✗ Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}
	b.WriteString("\n\n")
	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "•"
		switch log.Level {
		case convert.LevelError:
			style = errorStyle
			prefix = "✗"
		case convert.LevelWarning:
			style = warningStyle
			prefix = "!"
		case convert.LevelSuccess:
			style = successStyle
			prefix = "✓"
		case convert.LevelInfo:
			style = infoStyle
			prefix = "›"
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
		return "enter: start • tab: toggle input focus • f/p/d/v: options • esc: quit"
	case StateInitializing, StateConverting:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new run • q: quit"
	}
	return ""
}

// initialize loads settings and descriptors and plans the jobs.
func initialize(ctx context.Context, configPath string, apply func(*config.Settings), events chan<- convert.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		settings := config.DefaultSettings()
		if configPath != "" {
			var err error
			if settings, err = config.Load(configPath); err != nil {
				return InitDoneMsg{Err: err}
			}
		}
		apply(settings)
		if err := settings.Validate(); err != nil {
			return InitDoneMsg{Err: err}
		}
		if err := transcode.CheckDeps(transcode.OptionsFromSettings(settings)); err != nil && !settings.DryRun {
			return InitDoneMsg{Err: err}
		}

		conv := convert.NewConverter(settings, func(event convert.ProgressEvent) {
			select {
			case events <- event:
			case <-ctx.Done():
			}
		})
		if err := conv.Initialize(ctx); err != nil {
			return InitDoneMsg{Err: err}
		}

		return InitDoneMsg{Sets: conv.GetSetNames(), Converter: conv}
	}
}

// run starts the conversion in the background.
func run(ctx context.Context, conv *convert.Converter) tea.Cmd {
	return func() tea.Msg {
		summary, err := conv.Run(ctx)
		return ConvertDoneMsg{Summary: summary, Err: err}
	}
}

// waitForEvent delivers the next converter event as a ProgressMsg.
func waitForEvent(events <-chan convert.ProgressEvent) tea.Cmd {
	return func() tea.Msg {
		return ProgressMsg{Event: <-events}
	}
}

// Run starts the TUI application.
func Run(configPath string) error {
	p := tea.NewProgram(NewModel(configPath), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
