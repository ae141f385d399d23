package ui

import (
	"context"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"platen/internal/controller"
	"platen/internal/export"
	"platen/internal/ledger"
	"platen/internal/readiness"
)

const busyNote = "another print sequence is running"

// toggleSelected flips the exclusion flag under the cursor. Toggles stay
// live while a sequence is in flight; only the offline snapshot is
// read-only.
func (m Model) toggleSelected() (tea.Model, tea.Cmd) {
	if m.offline {
		m.setNote(noteInfo, "offline: cached orders are read-only")
		return m, nil
	}
	order := m.selectedOrder()
	if order == nil || m.controller == nil {
		return m, nil
	}
	id := m.channelID()
	m.controller.ToggleExcluded(id, order.OrderID, !m.selections.IsExcluded(id, order.OrderID))
	return m, nil
}

// triggerPrimary routes the focused channel's primary trigger, decided at
// press time.
func (m Model) triggerPrimary() (tea.Model, tea.Cmd) {
	id := m.channelID()
	if id == "" || m.controller == nil {
		return m, nil
	}
	if m.controller.Busy() {
		m.setNote(noteInfo, busyNote)
		return m, nil
	}
	if m.controller.PrimaryAction(id) == readiness.ActionRunBulkPrint {
		return m, runPrintCmd(m.ctx, m.controller, id)
	}
	return m, savePrepareCmd(m.ctx, m.controller, id)
}

// triggerComplete records that the focused channel's batch was printed.
func (m Model) triggerComplete() (tea.Model, tea.Cmd) {
	id := m.channelID()
	if id == "" || m.controller == nil {
		return m, nil
	}
	if !m.controller.Capabilities(id).Completion {
		m.setNote(noteInfo, "completion is not tracked for this channel")
		return m, nil
	}
	if m.controller.Busy() {
		m.setNote(noteInfo, busyNote)
		return m, nil
	}
	return m, completePrintCmd(m.ctx, m.controller, id)
}

// triggerExport writes the current rows and flags to an xlsx workbook.
// The snapshot is assembled here so the file shows exactly what was on
// screen, then written off the update loop.
func (m Model) triggerExport() (tea.Model, tea.Cmd) {
	if m.controller == nil {
		return m, nil
	}
	period := m.controller.Period()
	snap := export.Snapshot{Period: period}
	for _, ch := range m.channels {
		state := m.channelReadiness(ch.ID)
		rows := make([]ledger.Order, len(m.rows[ch.ID]))
		copy(rows, m.rows[ch.ID])
		for i := range rows {
			rows[i].Excluded = m.selections.IsExcluded(ch.ID, rows[i].OrderID)
		}
		snap.Channels = append(snap.Channels, export.Channel{
			Source:    ch.ID,
			Label:     ch.DisplayName(),
			State:     state.State.String(),
			Dirty:     m.controller.Dirty(ch.ID),
			Completed: state.CompletionRecorded,
			Orders:    rows,
		})
	}
	path := filepath.Join(m.exportDir, export.DefaultFilename(period))
	return m, exportCmd(path, snap)
}

// triggerReload refetches the hydration. With unsaved exclusions the first
// press only arms the reload; a second press inside the confirm window
// goes through and discards them.
func (m Model) triggerReload() (tea.Model, tea.Cmd) {
	if m.controller == nil {
		return m, nil
	}
	if m.anyDirty() && time.Since(m.reloadArmedAt) > ReloadConfirmWindow {
		m.reloadArmedAt = time.Now()
		m.setNote(noteInfo, "unsaved exclusions would be lost, press r again to reload")
		return m, nil
	}
	m.reloadArmedAt = time.Time{}
	m.setNote(noteInfo, "reloading "+string(m.controller.Period()))
	return m, reloadCmd(m.ctx, m.reloader)
}

// anyDirty reports whether any channel has unsaved exclusion changes.
func (m *Model) anyDirty() bool {
	if m.controller == nil {
		return false
	}
	for _, ch := range m.channels {
		if m.controller.Dirty(ch.ID) {
			return true
		}
	}
	return false
}

// Messages

// actionMsg carries a finished print sequence. Exactly one outcome field
// is set on success.
type actionMsg struct {
	channel  string
	prepare  *controller.PrepareOutcome
	run      *controller.RunOutcome
	complete *controller.CompleteOutcome
	err      error
}

// exportMsg carries a finished workbook write.
type exportMsg struct {
	path string
	err  error
}

// Commands

func savePrepareCmd(ctx context.Context, c *controller.Controller, channel string) tea.Cmd {
	return func() tea.Msg {
		outcome, err := c.SaveAndPrepare(ctx, channel)
		return actionMsg{channel: channel, prepare: outcome, err: err}
	}
}

func runPrintCmd(ctx context.Context, c *controller.Controller, channel string) tea.Cmd {
	return func() tea.Msg {
		outcome, err := c.RunBulkPrint(ctx, channel)
		return actionMsg{channel: channel, run: outcome, err: err}
	}
}

func completePrintCmd(ctx context.Context, c *controller.Controller, channel string) tea.Cmd {
	return func() tea.Msg {
		outcome, err := c.CompletePrint(ctx, channel)
		return actionMsg{channel: channel, complete: outcome, err: err}
	}
}

func exportCmd(path string, snap export.Snapshot) tea.Cmd {
	return func() tea.Msg {
		return exportMsg{path: path, err: export.Save(path, snap)}
	}
}
