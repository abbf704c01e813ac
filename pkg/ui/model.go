package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sp1d3rx/atui/pkg/aws"
	"github.com/sp1d3rx/atui/pkg/history"
	"github.com/sp1d3rx/atui/pkg/logging"
	"github.com/sp1d3rx/atui/pkg/presets"
	"github.com/sp1d3rx/atui/pkg/session"
)

// EventLog reads back persisted transitions for display. Satisfied by the
// history store; nil when running without persistence.
type EventLog interface {
	Events(instanceID string, limit int) ([]history.Event, error)
}

// UIState represents the different views of the UI
type UIState int

const (
	StateInstances   UIState = iota // instance table view
	StateDetail                     // per-instance forwards view
	StateAddForward                 // add-forward form
	StateQuitConfirm                // confirm stopping active forwards on quit
)

const tickInterval = time.Second

type tickMsg time.Time

type instancesLoadedMsg struct {
	instances []aws.Instance
	err       error
}

type consoleFinishedMsg struct {
	instanceID string
	err        error
}

// Model represents the state of the UI. It is the single caller into the
// session manager; every mutation goes through Update on the bubbletea
// goroutine.
type Model struct {
	uiState UIState

	profile   string
	region    string
	available bool

	manager     *session.Manager
	history     EventLog
	presetCfg   presets.Config
	historyNote string

	// instances view
	instances     []aws.Instance
	instanceTable table.Model
	loading       bool

	// detail view
	detailInstance aws.Instance
	detailSessions []session.ForwardSession
	detailEvents   []history.Event
	detailTable    table.Model

	// add-forward form
	nameInput   textinput.Model
	remoteInput textinput.Model
	localInput  textinput.Model
	hostInput   textinput.Model
	formFocus   int
	presetIndex int // -1 = custom
	formReturn  UIState

	// quit confirm
	quitSessions []session.ForwardSession

	commandPreview string
	errorMsg       string
	statusMsg      string
	activityLog    []string

	width  int
	height int
}

// Params wires the model's collaborators.
type Params struct {
	Profile     string
	Region      string
	Available   bool
	Manager     *session.Manager
	History     EventLog // nil when running without persistence
	Presets     presets.Config
	HistoryNote string // e.g. the history DB path, or a degradation warning
}

func NewModel(params Params) *Model {
	tableStyles := table.DefaultStyles()
	tableStyles.Header = tableStyles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color(ColorBorder)).
		BorderBottom(true).
		Bold(false)
	tableStyles.Selected = tableStyles.Selected.
		Foreground(lipgloss.Color(ColorSelectedFg)).
		Background(lipgloss.Color(ColorSelectedBg)).
		Bold(false)

	m := &Model{
		uiState:     StateInstances,
		profile:     params.Profile,
		region:      params.Region,
		available:   params.Available,
		manager:     params.Manager,
		history:     params.History,
		presetCfg:   params.Presets,
		historyNote: params.HistoryNote,
		presetIndex: -1,
		width:       80,
		height:      24,
		loading:     true,
	}

	m.instanceTable = table.New(
		table.WithColumns(m.instanceColumns()),
		table.WithFocused(true),
		table.WithHeight(10),
		table.WithStyles(tableStyles),
	)
	m.detailTable = table.New(
		table.WithColumns(m.detailColumns()),
		table.WithHeight(8),
		table.WithStyles(tableStyles),
	)

	nameInput := textinput.New()
	nameInput.Placeholder = "forward name"
	nameInput.CharLimit = 64
	remoteInput := textinput.New()
	remoteInput.Placeholder = "remote port"
	remoteInput.CharLimit = 5
	localInput := textinput.New()
	localInput.Placeholder = "local port"
	localInput.CharLimit = 5
	hostInput := textinput.New()
	hostInput.Placeholder = "remote host (optional)"
	hostInput.CharLimit = 253
	m.nameInput = nameInput
	m.remoteInput = remoteInput
	m.localInput = localInput
	m.hostInput = hostInput

	if !m.available {
		m.appendLog("aws CLI not found. Running in simulated mode; forwards cannot start.")
	}
	if m.historyNote != "" {
		m.appendLog(m.historyNote)
	}
	m.appendLog("Press Enter on an instance to manage its port forwards.")

	return m
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadInstancesCmd(), tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) loadInstancesCmd() tea.Cmd {
	profile, region, available := m.profile, m.region, m.available
	return func() tea.Msg {
		if !available {
			return instancesLoadedMsg{instances: aws.MockInstances(region)}
		}
		instances, err := aws.NewEC2Service(profile, region).ListInstances()
		return instancesLoadedMsg{instances: instances, err: err}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeTables()
		return m, nil

	case tickMsg:
		// the periodic tick is what surfaces externally-terminated forwards
		m.manager.Tick()
		m.drainManagerChanges()
		return m, tickCmd()

	case instancesLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.instances = nil
			m.errorMsg = fmt.Sprintf("Failed to load instances: %v", msg.err)
			m.appendLog(m.errorMsg)
		} else {
			m.instances = msg.instances
			mode := ""
			if !m.available {
				mode = "simulated "
			}
			m.statusMsg = fmt.Sprintf("Loaded %d %sinstances from %s (%s).", len(m.instances), mode, m.region, m.profile)
			m.appendLog(m.statusMsg)
		}
		m.refreshInstanceTable()
		m.updateCommandPreview()
		return m, nil

	case consoleFinishedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("SSM session for %s exited: %v", msg.instanceID, msg.err)
		} else {
			m.statusMsg = fmt.Sprintf("SSM session ended for %s.", msg.instanceID)
		}
		m.appendLog(m.statusMsg)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.requestQuit()
		}
		switch m.uiState {
		case StateInstances:
			return m.updateInstances(msg)
		case StateDetail:
			return m.updateDetail(msg)
		case StateAddForward:
			return m.updateAddForward(msg)
		case StateQuitConfirm:
			return m.updateQuitConfirm(msg)
		}
	}

	return m, nil
}

// requestQuit quits immediately when nothing is active, otherwise asks for
// confirmation first. Shutdown itself is unconditional; the prompt is purely
// UI policy.
func (m *Model) requestQuit() (tea.Model, tea.Cmd) {
	active := m.manager.ListActive()
	if len(active) == 0 {
		return m, tea.Quit
	}
	m.quitSessions = active
	m.uiState = StateQuitConfirm
	return m, nil
}

// Cleanup stops any forwards still active when the program exits through a
// path that skipped the confirm view. Shutdown is idempotent.
func (m *Model) Cleanup() {
	if m.manager == nil {
		return
	}
	entries := m.manager.Shutdown()
	if len(entries) > 0 {
		logging.LogDebug("Cleanup stopped %d forward(s) on exit", len(entries))
	}
}
