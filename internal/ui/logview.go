package ui

import (
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"platen/internal/logtail"
)

// logState holds the log view's entries and filter settings.
type logState struct {
	entries []logtail.Entry
	follow  bool
	all     bool       // no level filter
	level   slog.Level // minimum level when all is false
	lastErr error

	version  int // bumped when entries or the filter change
	rendered int // version last written into the viewport
}

func newLogState() logState {
	return logState{follow: true, all: true}
}

// levelLabel names the active level filter for the command bar.
func (s logState) levelLabel() string {
	if s.all {
		return "All"
	}
	switch s.level {
	case slog.LevelDebug:
		return "Debug+"
	case slog.LevelWarn:
		return "Warn+"
	case slog.LevelError:
		return "Error"
	default:
		return "Info+"
	}
}

// cycleLevel advances the filter: All, Debug+, Info+, Warn+, Error, All.
func (s *logState) cycleLevel() {
	switch {
	case s.all:
		s.all = false
		s.level = slog.LevelDebug
	case s.level == slog.LevelDebug:
		s.level = slog.LevelInfo
	case s.level == slog.LevelInfo:
		s.level = slog.LevelWarn
	case s.level == slog.LevelWarn:
		s.level = slog.LevelError
	default:
		s.all = true
	}
	s.version++
}

// filtered returns the entries passing the level filter. Unparsed raw
// lines always pass so a corrupted file stays visible.
func (s logState) filtered() []logtail.Entry {
	if s.all {
		return s.entries
	}
	out := make([]logtail.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		if e.Raw != "" || e.Level >= s.level {
			out = append(out, e)
		}
	}
	return out
}

// initLogViewport sizes the viewport once the terminal size is known.
func (m *Model) initLogViewport() {
	m.logViewport = viewport.New(m.width, m.contentHeight())
}

// updateLogViewport resizes the viewport and re-renders its content when
// the entries or filter changed since the last render.
func (m *Model) updateLogViewport() {
	m.logViewport.Width = m.width
	m.logViewport.Height = m.contentHeight()

	if m.logState.version == m.logState.rendered {
		return
	}
	m.logState.rendered = m.logState.version

	entries := m.logState.filtered()
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, m.renderLogLine(e))
	}
	m.logViewport.SetContent(strings.Join(lines, "\n"))
	if m.logState.follow {
		m.logViewport.GotoBottom()
	}
}

// renderLogLine renders one record: time, level, message, then attrs.
func (m Model) renderLogLine(e logtail.Entry) string {
	styles := m.theme.Styles()

	if e.Raw != "" {
		return styles.MutedText.Render(truncate(e.Raw, m.width))
	}

	levelStyle := styles.Text
	switch {
	case e.Level >= slog.LevelError:
		levelStyle = styles.DangerText
	case e.Level >= slog.LevelWarn:
		levelStyle = styles.WarningText
	case e.Level < slog.LevelInfo:
		levelStyle = styles.FaintText
	}

	parts := []string{
		styles.FaintText.Render(e.Time.Format("15:04:05")),
		levelStyle.Render(padRight(e.Level.String(), 5)),
		styles.Text.Render(e.Message),
	}
	for _, k := range e.AttrKeys() {
		parts = append(parts, styles.MutedText.Render(k+"="+e.Attrs[k]))
	}
	return strings.Join(parts, " ")
}

// handleLogsKey processes keyboard input for the log view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case " ":
		m.logState.follow = !m.logState.follow
		if m.logState.follow {
			m.logViewport.GotoBottom()
			return m, m.refreshLogs()
		}
	case "f":
		m.logState.cycleLevel()
		m.updateLogViewport()
	case "j", "down":
		m.logState.follow = false
		m.logViewport.ScrollDown(1)
	case "k", "up":
		m.logState.follow = false
		m.logViewport.ScrollUp(1)
	case "ctrl+d":
		m.logState.follow = false
		m.logViewport.HalfPageDown()
	case "ctrl+u":
		m.logState.follow = false
		m.logViewport.HalfPageUp()
	case "g", "home":
		m.logState.follow = false
		m.logViewport.GotoTop()
	case "G", "end":
		m.logViewport.GotoBottom()
	}
	return m, nil
}

// handleLogEntries applies a finished log read.
func (m *Model) handleLogEntries(msg logEntriesMsg) {
	m.logState.lastErr = msg.err
	if msg.err == nil {
		m.logState.entries = msg.entries
		m.logState.version++
	}
	m.updateLogViewport()
}

// refreshLogs re-reads the tail of the dashboard's own log file.
func (m Model) refreshLogs() tea.Cmd {
	if m.logPath == "" {
		return nil
	}
	return readLogsCmd(m.logPath)
}

// renderLogs renders the log view.
func (m Model) renderLogs() string {
	styles := m.theme.Styles()
	if m.logState.lastErr != nil {
		return lipgloss.Place(m.width, m.contentHeight(), lipgloss.Center, lipgloss.Center,
			styles.DangerText.Render("log read failed: "+m.logState.lastErr.Error()))
	}
	if len(m.logState.entries) == 0 {
		return lipgloss.Place(m.width, m.contentHeight(), lipgloss.Center, lipgloss.Center,
			styles.MutedText.Render("No log records yet"))
	}
	return m.logViewport.View()
}

// Messages

// logEntriesMsg carries a finished log read.
type logEntriesMsg struct {
	entries []logtail.Entry
	err     error
}

// Commands

func readLogsCmd(path string) tea.Cmd {
	return func() tea.Msg {
		entries, err := logtail.Tail(path, LogTailLimit)
		return logEntriesMsg{entries: entries, err: err}
	}
}
