// Package ui provides the Bubble Tea dashboard for platen.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"platen/internal/config"
	"platen/internal/controller"
	"platen/internal/health"
	"platen/internal/ledger"
	"platen/internal/prefs"
	"platen/internal/readiness"
	"platen/internal/selection"
)

// View represents the current active view.
type View int

const (
	ViewOrders View = iota
	ViewLogs
)

// Reloader refreshes the order rows from the ledger service. The bool
// reports whether the rows came from the offline snapshot instead of the
// live service; implementations rehydrate the selection and readiness
// stores before returning.
type Reloader interface {
	Reload(ctx context.Context) (*ledger.OrdersResponse, bool, error)
}

// Options configures the UI.
type Options struct {
	Context    context.Context
	Controller *controller.Controller
	Selections *selection.Store
	Health     *health.Store
	Channels   []config.Channel
	Reloader   Reloader
	Orders     *ledger.OrdersResponse
	Offline    bool
	Channel    string
	LogPath    string
	PrefsPath  string
	ExportDir  string
	PollTick   time.Duration
	ThemeName  string
}

// Model is the root application state for Bubble Tea.
type Model struct {
	// Configuration
	ctx         context.Context
	controller  *controller.Controller
	selections  *selection.Store
	healthStore *health.Store
	channels    []config.Channel
	reloader    Reloader
	logPath     string
	prefsPath   string
	exportDir   string
	pollTick    time.Duration
	keys        keyMap

	// UI state
	theme       Theme
	currentView View
	width       int
	height      int
	ready       bool
	focused     int // index into channels
	showHelp    bool

	// Data state
	rows        map[string][]ledger.Order
	offline     bool
	lastUpdated time.Time

	// Orders state
	cursors     map[string]int
	filterInput textinput.Model
	filterOpen  bool

	// Busy affordance
	spinner spinner.Model

	// Status note
	note      string
	noteKind  noteKind
	noteUntil time.Time

	// Reload arming while unsaved changes exist
	reloadArmedAt time.Time

	// Log state
	logState    logState
	logViewport viewport.Model
}

// New creates a new Bubble Tea model.
func New(opts Options) Model {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pollTick := opts.PollTick
	if pollTick == 0 {
		pollTick = DefaultPollInterval
	}

	themeName := opts.ThemeName
	if themeName == "" {
		themeName = "Nightfox"
	}

	prefsPath := opts.PrefsPath
	if prefsPath == "" {
		prefsPath = prefs.DefaultPath()
	}

	theme := GetTheme(themeName)

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(theme.Info))

	fi := textinput.New()
	fi.Prompt = "/"
	fi.CharLimit = 64

	m := Model{
		ctx:         ctx,
		controller:  opts.Controller,
		selections:  opts.Selections,
		healthStore: opts.Health,
		channels:    opts.Channels,
		reloader:    opts.Reloader,
		logPath:     opts.LogPath,
		prefsPath:   prefsPath,
		exportDir:   opts.ExportDir,
		pollTick:    pollTick,
		keys:        DefaultKeyMap(),
		theme:       theme,
		currentView: ViewOrders,
		rows:        indexRows(opts.Orders),
		offline:     opts.Offline,
		lastUpdated: time.Now(),
		cursors:     make(map[string]int),
		filterInput: fi,
		spinner:     sp,
		logState:    newLogState(),
	}

	for i, ch := range m.channels {
		if ch.ID == opts.Channel {
			m.focused = i
			break
		}
	}
	return m
}

// indexRows flattens an orders payload into per-channel row slices.
func indexRows(orders *ledger.OrdersResponse) map[string][]ledger.Order {
	rows := make(map[string][]ledger.Order)
	if orders == nil {
		return rows
	}
	for _, src := range orders.Sources {
		rows[src.Source] = src.Orders
	}
	return rows
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tea.EnterAltScreen,
		tickCmd(m.pollTick),
		m.spinner.Tick,
	)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.initLogViewport()
		}
		m.ready = true
		m.updateLogViewport()
		return m, nil

	case tickMsg:
		return m.handleTick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case ordersMsg:
		return m.handleOrders(msg)

	case actionMsg:
		return m.handleAction(msg)

	case exportMsg:
		return m.handleExport(msg)

	case logEntriesMsg:
		m.handleLogEntries(msg)
		return m, nil
	}

	return m, nil
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	if m.showHelp {
		return m.renderHelp()
	}

	return m.renderMain()
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any key closes the help overlay.
	if m.showHelp {
		m.showHelp = false
		return m, nil
	}

	// An open filter input captures everything except its own controls.
	if m.filterOpen && m.currentView == ViewOrders {
		return m.handleFilterKey(msg)
	}

	// Global keys
	switch msg.String() {
	case "ctrl+c", "e":
		m.persistPrefs()
		return m, tea.Quit

	case "h", "?":
		m.showHelp = true
		return m, nil

	case "T":
		m.theme = GetTheme(NextTheme(m.theme.Name))
		m.spinner.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Info))
		m.persistPrefs()
		return m, nil

	case "tab":
		m.focusChannel(m.focused + 1)
		return m, nil

	case "shift+tab":
		m.focusChannel(m.focused - 1)
		return m, nil

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		m.focusChannel(int(msg.String()[0] - '1'))
		return m, nil

	case "q":
		m.currentView = ViewOrders
		return m, nil

	case "l":
		m.currentView = ViewLogs
		return m, m.refreshLogs()

	case "esc":
		if m.currentView == ViewOrders && m.filterInput.Value() != "" {
			m.filterInput.Reset()
			m.clampCursor()
			return m, nil
		}
		m.currentView = ViewOrders
		return m, nil
	}

	// View-specific keys
	switch m.currentView {
	case ViewOrders:
		return m.handleOrdersKey(msg)
	case ViewLogs:
		return m.handleLogsKey(msg)
	}

	return m, nil
}

// focusChannel moves channel focus, wrapping at both ends.
func (m *Model) focusChannel(i int) {
	n := len(m.channels)
	if n == 0 {
		return
	}
	if i >= n {
		i = 0
	}
	if i < 0 {
		i = n - 1
	}
	m.focused = i
}

// channelID returns the focused channel's id, or "" with no channels.
func (m *Model) channelID() string {
	if len(m.channels) == 0 {
		return ""
	}
	return m.channels[m.focused].ID
}

// focusedChannel returns the focused channel's configuration.
func (m *Model) focusedChannel() config.Channel {
	if len(m.channels) == 0 {
		return config.Channel{}
	}
	return m.channels[m.focused]
}

// persistPrefs saves the cosmetic preferences. Failures are ignored.
func (m *Model) persistPrefs() {
	if m.prefsPath == "" {
		return
	}
	_ = prefs.Save(m.prefsPath, prefs.Prefs{
		Theme:   m.theme.Name,
		Channel: m.channelID(),
	})
}

// handleTick processes the polling tick. Order rows only move on an
// explicit reload; the tick redraws the clock, expires the status note
// and keeps a following log view fresh.
func (m Model) handleTick() (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if m.currentView == ViewLogs && m.logState.follow {
		if cmd := m.refreshLogs(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	cmds = append(cmds, tickCmd(m.pollTick))
	return m, tea.Batch(cmds...)
}

// handleOrders applies a finished reload.
func (m Model) handleOrders(msg ordersMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.setNote(noteDanger, "reload failed: "+msg.err.Error())
		return m, nil
	}
	m.rows = indexRows(msg.orders)
	m.offline = msg.offline
	m.lastUpdated = time.Now()
	m.clampCursor()
	if msg.offline {
		m.setNote(noteInfo, "service unreachable, showing cached orders (read-only)")
	} else {
		m.setNote(noteSuccess, fmt.Sprintf("reloaded %s", msg.orders.Period))
	}
	return m, nil
}

// handleAction applies a finished print sequence.
func (m Model) handleAction(msg actionMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		switch {
		case errors.Is(msg.err, controller.ErrBusy):
			// A race with another trigger press. The first press won;
			// nothing to report.
		case errors.Is(msg.err, controller.ErrNotEligible):
			m.setNote(noteInfo, "no prepared batch to mark printed")
		case errors.Is(msg.err, controller.ErrUnsupported):
			m.setNote(noteInfo, "not enabled for this channel")
		default:
			m.setNote(noteDanger, msg.err.Error())
		}
		return m, nil
	}

	label := m.channelLabel(msg.channel)
	switch {
	case msg.prepare != nil:
		note := fmt.Sprintf("%s: prepared %d %s", label, msg.prepare.Count,
			pluralize(msg.prepare.Count, "order", "orders"))
		if msg.prepare.PrintCommand != "" {
			note += " · " + msg.prepare.PrintCommand
		}
		m.setNote(noteSuccess, note)
	case msg.run != nil:
		note := fmt.Sprintf("%s: opened print batch, %d %s", label, msg.run.Count,
			pluralize(msg.run.Count, "order", "orders"))
		if msg.run.MissingCount > 0 {
			note += fmt.Sprintf(" (%d missing PDF)", msg.run.MissingCount)
		}
		m.setNote(noteSuccess, note)
	case msg.complete != nil:
		m.setNote(noteSuccess, fmt.Sprintf("%s: marked %d %s printed", label,
			msg.complete.Count, pluralize(msg.complete.Count, "order", "orders")))
	}
	return m, nil
}

// handleExport applies a finished workbook export.
func (m Model) handleExport(msg exportMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.setNote(noteDanger, "export failed: "+msg.err.Error())
		return m, nil
	}
	m.setNote(noteSuccess, "exported "+msg.path)
	return m, nil
}

// channelLabel resolves a channel id to its display name.
func (m *Model) channelLabel(id string) string {
	for _, ch := range m.channels {
		if ch.ID == id {
			return ch.DisplayName()
		}
	}
	return id
}

// channelReadiness returns the readiness snapshot for a channel id.
func (m *Model) channelReadiness(id string) readiness.Channel {
	if m.controller == nil {
		return readiness.Channel{}
	}
	return m.controller.Readiness(id)
}

// renderMain renders the full UI.
func (m Model) renderMain() string {
	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	b.WriteString(m.renderCommandBar())
	b.WriteString("\n")

	b.WriteString(m.renderContent())

	return b.String()
}

// renderContent renders the main content area based on current view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewOrders:
		return m.renderOrders()
	case ViewLogs:
		return m.renderLogs()
	default:
		return ""
	}
}

// contentHeight returns the rows left for the active view below the
// header and command bar.
func (m Model) contentHeight() int {
	h := m.height - 2
	if h < 0 {
		return 0
	}
	return h
}

// Messages

type tickMsg time.Time

// ordersMsg carries a finished reload.
type ordersMsg struct {
	orders  *ledger.OrdersResponse
	offline bool
	err     error
}

// Commands

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func reloadCmd(ctx context.Context, r Reloader) tea.Cmd {
	return func() tea.Msg {
		if r == nil {
			return ordersMsg{err: errors.New("no reloader configured")}
		}
		orders, offline, err := r.Reload(ctx)
		return ordersMsg{orders: orders, offline: offline, err: err}
	}
}

// Run starts the Bubble Tea program.
func Run(opts Options) error {
	m := New(opts)
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
