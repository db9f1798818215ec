package ui

import (
	"context"
	"time"

	"bag-reindex/internal/reindex"
	"bag-reindex/internal/report"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Runner performs one reindex, reporting state transitions to observe.
type Runner func(ctx context.Context, observe func(reindex.State)) (reindex.Result, error)

type Model struct {
	run    Runner
	style  string
	ctx    context.Context
	cancel context.CancelFunc
	stages chan reindex.State

	spinner  spinner.Model
	viewport viewport.Model
	help     help.Model
	keys     keyMap

	width  int
	height int

	stage    reindex.State
	quitting bool
	done     bool
	result   reindex.Result
	err      error
}

type stageMsg struct{ state reindex.State }
type doneMsg struct {
	result reindex.Result
	err    error
}

func NewModel(run Runner, glamourStyle string) Model {
	ctx, cancel := context.WithCancel(context.Background())

	sp := spinner.New()
	sp.Spinner = spinner.Points

	vp := viewport.New(80, 20)

	h := help.New()
	h.ShowAll = false

	return Model{
		run:      run,
		style:    glamourStyle,
		ctx:      ctx,
		cancel:   cancel,
		stages:   make(chan reindex.State, 8),
		spinner:  sp,
		viewport: vp,
		help:     h,
		keys:     defaultKeys(),
		stage:    reindex.StateIdle,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.runCmd(), m.waitForStage())
}

func (m Model) runCmd() tea.Cmd {
	return func() tea.Msg {
		defer close(m.stages)
		res, err := m.run(m.ctx, func(s reindex.State) {
			m.stages <- s
		})
		return doneMsg{result: res, err: err}
	}
}

func (m Model) waitForStage() tea.Cmd {
	return func() tea.Msg {
		s, ok := <-m.stages
		if !ok {
			return nil
		}
		return stageMsg{state: s}
	}
}

func (m Model) Done() bool {
	return m.done
}

// Result returns the outcome once Done reports true.
func (m Model) Result() (reindex.Result, error) {
	return m.result, m.err
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		if m.done {
			m.setReport()
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.cancel()
			if m.done {
				return m, tea.Quit
			}
			// Quit once the run has stopped so its outcome is not lost.
			m.quitting = true
			return m, nil
		}
		if !m.done {
			return m, nil
		}

	case stageMsg:
		m.stage = msg.state
		return m, m.waitForStage()

	case doneMsg:
		m.done = true
		m.result = msg.result
		m.err = msg.err
		m.stage = msg.result.State
		m.setReport()
		if m.quitting {
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	m.viewport.Width = m.width
	m.viewport.Height = max(m.height-3, 3)
	m.help.Width = m.width
}

func (m *Model) setReport() {
	if m.err != nil {
		m.viewport.SetContent("")
		return
	}
	md := report.BuildReindexMarkdown(m.result, time.Now())
	m.viewport.SetContent(report.Render(md, m.style, max(m.viewport.Width-4, 20)))
	m.viewport.GotoTop()
}

func (m Model) View() string {
	if !m.done {
		label := stageLabel(m.stage)
		if m.quitting {
			label = "canceling..."
		}
		return m.spinner.View() + " " + label + "\n\n" + m.help.View(m.keys)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		report.Badge(m.result.State, m.err),
		m.viewport.View(),
		m.help.View(m.keys),
	)
}

func stageLabel(s reindex.State) string {
	switch s {
	case reindex.StateDiscovering:
		return "discovering segment files..."
	case reindex.StateBootstrapping:
		return "reading baseline metadata..."
	case reindex.StateAggregating:
		return "rebuilding file list and bag size..."
	case reindex.StatePersisted:
		return "writing metadata..."
	default:
		return "starting..."
	}
}

type keyMap struct {
	Up   key.Binding
	Down key.Binding
	Quit key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "scroll down"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "esc", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// Run drives the model until the user quits and returns the reindex
// outcome. Quitting mid-run cancels it and waits for it to stop, so the
// result reflects what was actually written.
func Run(run Runner, glamourStyle string) (reindex.Result, error) {
	final, err := tea.NewProgram(NewModel(run, glamourStyle), tea.WithAltScreen()).Run()
	if err != nil {
		return reindex.Result{}, err
	}
	m := final.(Model)
	if !m.Done() {
		return reindex.Result{}, context.Canceled
	}
	return m.Result()
}
