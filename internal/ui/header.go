package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// noteKind classifies the header status note.
type noteKind int

const (
	noteInfo noteKind = iota
	noteSuccess
	noteDanger
)

// setNote replaces the status note and restarts its expiry clock.
func (m *Model) setNote(kind noteKind, text string) {
	m.noteKind = kind
	m.note = text
	m.noteUntil = time.Now().Add(StatusMessageTTL)
}

// renderHeader renders the status bar with all information.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	compact := m.width < LayoutCompactWidth

	var parts []string

	// Logo
	parts = append(parts, bg.Render("platen", styles.Logo))

	// Ledger service reachability
	parts = append(parts, m.formatConnection(styles, bg))

	// Cached-rows banner
	if m.offline {
		parts = append(parts, bg.Render("OFFLINE CACHE", styles.DangerText.Bold(true)))
	}

	// Period
	if m.controller != nil {
		parts = append(parts,
			bg.Render("Period:", styles.MutedText)+bg.Space()+
				bg.Render(string(m.controller.Period()), styles.Text))
	}

	// Aggregate exclusion counts
	counts := m.selections.Counts()
	if compact {
		parts = append(parts,
			bg.Render("E:", styles.MutedText)+bg.Render(fmt.Sprintf("%d", counts.Excluded), styles.WarningText)+
				bg.Space()+bg.Render("I:", styles.MutedText)+bg.Render(fmt.Sprintf("%d", counts.Included), styles.Text))
	} else {
		parts = append(parts,
			bg.Render("Excluded:", styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d", counts.Excluded), styles.WarningText)+
				bg.Space()+bg.Render("•", styles.FaintText)+bg.Space()+
				bg.Render("Included:", styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d", counts.Included), styles.Text)+
				bg.Space()+bg.Render("•", styles.FaintText)+bg.Space()+
				bg.Render("Total:", styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d", counts.Total), styles.Text))
	}

	// Busy spinner while a print sequence is in flight
	if m.controller != nil && m.controller.Busy() {
		parts = append(parts, m.spinner.View()+bg.Render("working", styles.InfoText))
	}

	// Status note with expiry
	if note := m.renderNote(styles, bg, compact); note != "" {
		parts = append(parts, note)
	}

	// Hydration timestamp
	if ts := m.formatTimestamp(); ts != "" {
		parts = append(parts, bg.Render(ts, styles.MutedText))
	}

	return styles.Header.Width(m.width).Render(bg.Join(parts, "  "))
}

// formatConnection renders the health indicator from the poller's latest
// snapshot. A single missed poll keeps the ON light; two in a row flip it.
func (m Model) formatConnection(styles Styles, bg BgStyle) string {
	if m.healthStore == nil {
		return bg.Render("● --", styles.FaintText)
	}
	hs := m.healthStore.Snapshot()
	switch {
	case hs.IsOffline():
		out := bg.Render("● OFF", styles.DangerText)
		if reason := classifyConnectionError(hs.LastError); reason != "" {
			out += bg.Space() + bg.Render(reason, styles.DangerText.Bold(true))
		}
		return out
	case hs.Healthy:
		return bg.Render("● ON", styles.SuccessText)
	default:
		return bg.Render("● --", styles.FaintText)
	}
}

// renderNote renders the transient status note until it expires.
func (m Model) renderNote(styles Styles, bg BgStyle, compact bool) string {
	if m.note == "" || time.Now().After(m.noteUntil) {
		return ""
	}
	style := styles.InfoText
	switch m.noteKind {
	case noteSuccess:
		style = styles.SuccessText
	case noteDanger:
		style = styles.DangerText.Bold(true)
	}
	maxLen := 80
	if compact {
		maxLen = 40
	}
	return bg.Render(truncate(m.note, maxLen), style)
}

// formatTimestamp formats the last hydration time with relative indicator.
func (m Model) formatTimestamp() string {
	if m.lastUpdated.IsZero() {
		return ""
	}

	timeSince := time.Since(m.lastUpdated)
	timeStr := m.lastUpdated.Format("15:04:05")

	if timeSince < time.Minute {
		timeStr += " (now)"
	} else if timeSince < time.Hour {
		timeStr += fmt.Sprintf(" (%dm ago)", int(timeSince.Minutes()))
	} else if timeSince < 24*time.Hour {
		timeStr += fmt.Sprintf(" (%dh ago)", int(timeSince.Hours()))
	}

	return timeStr
}

// classifyConnectionError returns a short description of the connection error.
func classifyConnectionError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "OFFLINE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"):
		return "TIMEOUT"
	default:
		return "ERROR"
	}
}

// renderCommandBar renders the command hints bar.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	busy := m.controller != nil && m.controller.Busy()

	type cmd struct {
		key, desc string
		gated     bool // dimmed while a sequence is in flight
	}
	var commands []cmd

	switch m.currentView {
	case ViewLogs:
		followLabel := "Pause"
		if !m.logState.follow {
			followLabel = "Follow"
		}
		commands = []cmd{
			{"Space", followLabel, false},
			{"f", m.logState.levelLabel(), false},
			{"j/k", "Scroll", false},
			{"q", "Orders", false},
			{"?", "More", false},
		}
	default: // ViewOrders
		commands = []cmd{
			{"Space", "Exclude", false},
			{"Enter", m.primaryHint(), true},
			{"c", "Printed", true},
			{"x", "Export", false},
			{"r", "Reload", true},
			{"/", "Filter", false},
			{"l", "Logs", false},
			{"?", "More", false},
		}
	}

	colon := bg.Sep(":")
	sep := bg.Spaces(2)

	segments := make([]string, 0, len(commands))
	for _, c := range commands {
		descStyle := styles.MutedText
		if busy && c.gated {
			descStyle = styles.FaintText
		}
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, descStyle))
	}

	// Show the active order filter
	if m.currentView == ViewOrders && strings.TrimSpace(m.filterInput.Value()) != "" {
		pattern := truncate(m.filterInput.Value(), 18)
		segments = append(segments, bg.Render("/"+pattern, styles.AccentText))
	}

	// Theme indicator
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, sep))
}

// primaryHint returns the focused channel's primary trigger wording.
func (m Model) primaryHint() string {
	if m.controller == nil || m.channelID() == "" {
		return "Prepare"
	}
	return m.controller.PrimaryLabel(m.channelID())
}
