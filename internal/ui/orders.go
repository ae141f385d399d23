package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sahilm/fuzzy"

	"platen/internal/config"
	"platen/internal/ledger"
	"platen/internal/readiness"
)

// orderSource adapts order rows for fuzzy matching on id and title.
type orderSource []ledger.Order

func (s orderSource) String(i int) string { return s[i].OrderID + " " + s[i].Title }
func (s orderSource) Len() int            { return len(s) }

// visibleOrders returns the channel's rows with the filter applied. The
// filter only narrows the focused pane; other panes always show all rows.
func (m *Model) visibleOrders(channelID string) []ledger.Order {
	rows := m.rows[channelID]
	query := strings.TrimSpace(m.filterInput.Value())
	if query == "" || channelID != m.channelID() {
		return rows
	}
	matches := fuzzy.FindFrom(query, orderSource(rows))
	out := make([]ledger.Order, 0, len(matches))
	for _, match := range matches {
		out = append(out, rows[match.Index])
	}
	return out
}

// selectedOrder returns the row under the cursor in the focused pane.
func (m *Model) selectedOrder() *ledger.Order {
	rows := m.visibleOrders(m.channelID())
	cursor := m.cursors[m.channelID()]
	if cursor < 0 || cursor >= len(rows) {
		return nil
	}
	return &rows[cursor]
}

// clampCursor keeps every channel cursor inside its visible rows.
func (m *Model) clampCursor() {
	for _, ch := range m.channels {
		n := len(m.visibleOrders(ch.ID))
		if n == 0 {
			m.cursors[ch.ID] = 0
			continue
		}
		if m.cursors[ch.ID] >= n {
			m.cursors[ch.ID] = n - 1
		}
		if m.cursors[ch.ID] < 0 {
			m.cursors[ch.ID] = 0
		}
	}
}

// moveCursor moves the focused pane's cursor by delta, clamped.
func (m *Model) moveCursor(delta int) {
	id := m.channelID()
	n := len(m.visibleOrders(id))
	if n == 0 {
		return
	}
	cursor := m.cursors[id] + delta
	if cursor < 0 {
		cursor = 0
	}
	if cursor >= n {
		cursor = n - 1
	}
	m.cursors[id] = cursor
}

// handleOrdersKey processes keyboard input for the orders view.
func (m Model) handleOrdersKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		m.moveCursor(1)
	case "k", "up":
		m.moveCursor(-1)
	case "g", "home":
		m.cursors[m.channelID()] = 0
	case "G", "end":
		if n := len(m.visibleOrders(m.channelID())); n > 0 {
			m.cursors[m.channelID()] = n - 1
		}
	case "ctrl+d":
		m.moveCursor(m.contentHeight() / 2)
	case "ctrl+u":
		m.moveCursor(-m.contentHeight() / 2)

	case " ":
		return m.toggleSelected()

	case "enter":
		return m.triggerPrimary()

	case "c":
		return m.triggerComplete()

	case "x":
		return m.triggerExport()

	case "r":
		return m.triggerReload()

	case "/":
		m.filterOpen = true
		m.filterInput.Focus()
		return m, textinput.Blink
	}

	return m, nil
}

// handleFilterKey processes keys while the filter input is capturing.
func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.filterInput.Reset()
		m.filterInput.Blur()
		m.filterOpen = false
		m.clampCursor()
		return m, nil
	case "enter":
		m.filterInput.Blur()
		m.filterOpen = false
		return m, nil
	case "ctrl+c":
		m.persistPrefs()
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.clampCursor()
	return m, cmd
}

// renderOrders renders one titled box per channel, side by side, or just
// the focused pane on narrow terminals.
func (m Model) renderOrders() string {
	styles := m.theme.Styles()
	contentHeight := m.contentHeight()

	filterLine := m.renderFilterLine()
	if filterLine != "" {
		contentHeight--
	}

	if len(m.channels) == 0 {
		empty := styles.MutedText.Render("No channels configured")
		return lipgloss.Place(m.width, contentHeight, lipgloss.Center, lipgloss.Center, empty)
	}

	var panes []string
	if m.width < LayoutCompactWidth {
		panes = append(panes, m.renderChannelPane(m.focusedChannel(), m.width, contentHeight, true))
	} else {
		paneWidth := m.width / len(m.channels)
		for i, ch := range m.channels {
			w := paneWidth
			if i == len(m.channels)-1 {
				w = m.width - paneWidth*(len(m.channels)-1)
			}
			panes = append(panes, m.renderChannelPane(ch, w, contentHeight, i == m.focused))
		}
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, panes...)
	if filterLine != "" {
		return filterLine + "\n" + body
	}
	return body
}

// renderFilterLine renders the filter input when open or applied.
func (m Model) renderFilterLine() string {
	if !m.filterOpen && strings.TrimSpace(m.filterInput.Value()) == "" {
		return ""
	}
	styles := m.theme.Styles()
	line := m.filterInput.View()
	if !m.filterOpen {
		line = "/" + m.filterInput.Value() + styles.MutedText.Render("  (esc clears)")
	}
	return lipgloss.NewStyle().Width(m.width).Render(line)
}

// renderChannelPane renders one channel's orders and readiness footer.
func (m Model) renderChannelPane(ch config.Channel, width, height int, focused bool) string {
	bgColor := m.theme.SurfaceAlt
	if focused {
		bgColor = m.theme.FocusBg
	}

	innerWidth := width - 2
	innerHeight := height - 2
	rowArea := innerHeight - 1 // last line is the readiness footer

	rows := m.visibleOrders(ch.ID)
	cursor := m.cursors[ch.ID]

	// Keep the cursor visible in a stateless scroll window.
	start := 0
	if focused && rowArea > 0 && cursor >= rowArea {
		start = cursor - rowArea + 1
	}

	var lines []string
	if len(rows) == 0 {
		msg := "no orders"
		if strings.TrimSpace(m.filterInput.Value()) != "" && focused {
			msg = "no matches"
		}
		lines = append(lines, lipgloss.NewStyle().
			Foreground(lipgloss.Color(m.theme.Muted)).
			Background(lipgloss.Color(bgColor)).
			Render(msg))
	}
	for i := start; i < len(rows) && i-start < rowArea; i++ {
		selected := focused && i == cursor
		content := m.formatOrderRow(ch.ID, rows[i], innerWidth, bgColor, selected)
		rowBg := bgColor
		if selected {
			rowBg = m.theme.SelectionBg
		}
		lines = append(lines, lipgloss.NewStyle().
			Background(lipgloss.Color(rowBg)).
			Width(innerWidth).
			Render(content))
	}

	for len(lines) < rowArea {
		lines = append(lines, "")
	}
	lines = append(lines, m.renderPaneFooter(ch, innerWidth, bgColor))

	title := m.paneTitle(ch)
	return m.renderTitledBox(title, strings.Join(lines, "\n"), width, height, focused)
}

// paneTitle renders the channel pane title with row counts.
func (m Model) paneTitle(ch config.Channel) string {
	total := len(m.rows[ch.ID])
	visible := len(m.visibleOrders(ch.ID))
	if visible != total {
		return fmt.Sprintf("%s (%d/%d)", ch.DisplayName(), visible, total)
	}
	return fmt.Sprintf("%s (%d)", ch.DisplayName(), total)
}

// formatOrderRow formats one order row with inline colors.
// Format: "[x] order_id  title  amount  date"
func (m Model) formatOrderRow(channelID string, order ledger.Order, width int, bgColor string, selected bool) string {
	bg := NewBgStyle(bgColor)
	if selected {
		bg = NewBgStyle(m.theme.SelectionBg)
	}

	excluded := m.selections.IsExcluded(channelID, order.OrderID)
	mark := "[ ]"
	if excluded {
		mark = "[x]"
	}

	amount := formatYen(order.Amount)
	date := ""
	if width >= LayoutDateWidth {
		date = shortDate(order.OrderedAt)
	}

	// checkbox + id + amount + date plus the two-space joins
	fixed := len(mark) + len(order.OrderID) + len([]rune(amount)) + 6
	if date != "" {
		fixed += len(date) + 2
	}
	titleWidth := max(width-fixed, 8)

	var markStyle, idStyle, titleStyle, amountStyle, dateStyle lipgloss.Style
	if selected {
		selText := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		markStyle, idStyle, titleStyle, amountStyle, dateStyle = selText, selText, selText, selText, selText
	} else {
		styles := m.theme.Styles()
		markStyle = styles.WarningText
		idStyle = styles.MutedText
		titleStyle = styles.Text
		amountStyle = styles.Text
		dateStyle = styles.FaintText
		if excluded {
			titleStyle = styles.FaintText
			amountStyle = styles.FaintText
		} else {
			markStyle = styles.FaintText
		}
	}

	parts := []string{
		bg.Render(mark, markStyle),
		bg.Render(order.OrderID, idStyle),
		bg.Render(padRight(truncate(order.Title, titleWidth), titleWidth), titleStyle),
		bg.Render(amount, amountStyle),
	}
	if date != "" {
		parts = append(parts, bg.Render(date, dateStyle))
	}
	return bg.Join(parts, "  ")
}

// renderPaneFooter renders the readiness chip, dirty marker and counts.
func (m Model) renderPaneFooter(ch config.Channel, width int, bgColor string) string {
	bg := NewBgStyle(bgColor)
	styles := m.theme.Styles()

	state := m.channelReadiness(ch.ID)
	chip := styles.StatusStyle(footerChipKey(state)).Render(footerChipText(state))

	parts := []string{chip}
	if m.controller != nil && m.controller.Dirty(ch.ID) {
		parts = append(parts, bg.Render("*unsaved", styles.WarningText))
	}

	counts := m.selections.ChannelCounts(ch.ID)
	parts = append(parts, bg.Render(
		fmt.Sprintf("%d excl / %d total", counts.Excluded, counts.Total),
		styles.MutedText))

	return bg.Join(parts, "  ")
}

// footerChipKey picks the status color key for a readiness snapshot.
func footerChipKey(state readiness.Channel) string {
	if state.CompletionRecorded {
		return "completed"
	}
	return state.State.String()
}

// footerChipText renders the chip wording for a readiness snapshot.
func footerChipText(state readiness.Channel) string {
	if state.CompletionRecorded {
		return "printed"
	}
	switch state.State {
	case readiness.PreparedClean:
		return "prepared"
	case readiness.PreparedDirty:
		return "prepared*"
	default:
		return "not prepared"
	}
}

// shortDate trims an ISO date down to MM-DD for row display.
func shortDate(s string) string {
	if len(s) >= 10 {
		return s[5:10]
	}
	return s
}

// renderTitledBox renders content in a box with the title embedded in the
// top border: ┌─── Title ───┐. Focus switches to the focus border color
// and background.
func (m Model) renderTitledBox(title, content string, width, height int, focused bool) string {
	var borderColorStr, bgColorStr string
	if focused {
		borderColorStr = m.theme.BorderFocus
		bgColorStr = m.theme.FocusBg
	} else {
		borderColorStr = m.theme.Border
		bgColorStr = m.theme.SurfaceAlt
	}
	bg := NewBgStyle(bgColorStr)
	borderColor := lipgloss.Color(borderColorStr)
	bgColor := lipgloss.Color(bgColorStr)
	borderStyle := lipgloss.NewStyle().Foreground(borderColor)
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	// Build the top border with embedded title
	innerWidth := width - 2
	titleLen := len([]rune(title))
	leftPad := (innerWidth - titleLen - 2) / 2
	if leftPad < 0 {
		leftPad = 0
	}
	rightPad := innerWidth - titleLen - 2 - leftPad
	if rightPad < 0 {
		rightPad = 0
	}

	topBorder := bg.Render("┌", borderStyle) +
		bg.Render(strings.Repeat("─", leftPad), borderStyle) +
		bg.Render(" "+title+" ", titleStyle) +
		bg.Render(strings.Repeat("─", rightPad), borderStyle) +
		bg.Render("┐", borderStyle)

	bottomBorder := bg.Render("└", borderStyle) +
		bg.Render(strings.Repeat("─", innerWidth), borderStyle) +
		bg.Render("┘", borderStyle)

	contentStyle := lipgloss.NewStyle().Width(innerWidth).Background(bgColor)

	contentLines := strings.Split(content, "\n")
	boxHeight := height - 2

	var paddedLines []string
	for i := 0; i < boxHeight; i++ {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		paddedLines = append(paddedLines,
			bg.Render("│", borderStyle)+
				contentStyle.Render(line)+
				bg.Render("│", borderStyle))
	}

	return topBorder + "\n" + strings.Join(paddedLines, "\n") + "\n" + bottomBorder
}
