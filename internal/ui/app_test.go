package ui

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"platen/internal/config"
	"platen/internal/controller"
	"platen/internal/health"
	"platen/internal/ledger"
	"platen/internal/prefs"
	"platen/internal/readiness"
	"platen/internal/selection"
)

// stubGateway answers controller sequences with canned results.
type stubGateway struct {
	mu       sync.Mutex
	prepare  ledger.PrepareResult
	run      ledger.RunResult
	complete ledger.CompleteResult
	failWith error
	persists int
}

func (g *stubGateway) PersistExclusions(_ context.Context, _ ledger.Period, _ string, _ []ledger.ExclusionItem) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return g.failWith
	}
	g.persists++
	return nil
}

func (g *stubGateway) PreparePrint(_ context.Context, _ ledger.Period, _ string) (*ledger.PrepareResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return nil, g.failWith
	}
	out := g.prepare
	return &out, nil
}

func (g *stubGateway) RunBulkPrint(_ context.Context, _ ledger.Period, _ string) (*ledger.RunResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return nil, g.failWith
	}
	out := g.run
	return &out, nil
}

func (g *stubGateway) CompletePrint(_ context.Context, _ ledger.Period, _ string) (*ledger.CompleteResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failWith != nil {
		return nil, g.failWith
	}
	out := g.complete
	return &out, nil
}

func sampleHydration() *ledger.OrdersResponse {
	return &ledger.OrdersResponse{
		Period: "2026-03",
		Sources: []ledger.ChannelOrders{
			{
				Source: "amazon",
				Orders: []ledger.Order{
					{OrderID: "A-1", Title: "Thermal paper 80mm", Amount: 1480, OrderedAt: "2026-03-03"},
					{OrderID: "A-2", Title: "Label rolls 40x30", Amount: 5200, OrderedAt: "2026-03-05", Excluded: true},
					{OrderID: "A-3", Title: "Packing tape 50m", Amount: 398, OrderedAt: "2026-03-08"},
				},
			},
			{
				Source: "rakuten",
				Orders: []ledger.Order{
					{OrderID: "R-1", Title: "Cardboard 60 size", Amount: 2180, OrderedAt: "2026-03-04"},
				},
			},
		},
	}
}

func buildTestModel(t *testing.T, gw controller.Gateway, busy *controller.BusyLock) Model {
	t.Helper()

	orders := sampleHydration()
	sel := selection.NewStore()
	set := readiness.NewSet()
	for _, src := range orders.Sources {
		flags := make(map[string]bool, len(src.Orders))
		for _, o := range src.Orders {
			flags[o.OrderID] = o.Excluded
		}
		sel.Hydrate(src.Source, flags)
		set.Hydrate(src.Source, src.Prepared, src.Completed, true)
	}

	ctrl := controller.New(controller.Options{
		Period:     "2026-03",
		Gateway:    gw,
		Selections: sel,
		Readiness:  set,
		Busy:       busy,
		Capabilities: map[string]controller.Capabilities{
			"amazon":  {BulkRun: true, Completion: true},
			"rakuten": {BulkRun: true, Completion: false},
		},
	})

	m := New(Options{
		Controller: ctrl,
		Selections: sel,
		Health:     &health.Store{},
		Channels: []config.Channel{
			{ID: "amazon", Label: "Amazon"},
			{ID: "rakuten", Label: "Rakuten"},
		},
		Orders:    orders,
		PrefsPath: filepath.Join(t.TempDir(), "prefs.toml"),
		ExportDir: t.TempDir(),
		ThemeName: "Nightfox",
	})

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 32})
	return next.(Model)
}

func newTestModel(t *testing.T, gw controller.Gateway) Model {
	t.Helper()
	return buildTestModel(t, gw, nil)
}

func keyPress(t *testing.T, m Model, s string) (Model, tea.Cmd) {
	t.Helper()
	var msg tea.KeyMsg
	switch s {
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace}
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "shift+tab":
		msg = tea.KeyMsg{Type: tea.KeyShiftTab}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEscape}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return model, cmd
}

func TestSpaceTogglesExclusionAndDirtiness(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, &stubGateway{})

	m2, _ := keyPress(t, m, " ")
	if !m2.selections.IsExcluded("amazon", "A-1") {
		t.Fatalf("A-1 not excluded after space")
	}
	if !m2.controller.Dirty("amazon") {
		t.Fatalf("channel not dirty after a toggle")
	}

	// Flipping back restores the baseline, so dirtiness disappears.
	m3, _ := keyPress(t, m2, " ")
	if m3.selections.IsExcluded("amazon", "A-1") {
		t.Fatalf("A-1 still excluded after second space")
	}
	if m3.controller.Dirty("amazon") {
		t.Fatalf("channel still dirty after toggling back")
	}
}

func TestEnterRunsSaveAndPrepare(t *testing.T) {
	t.Parallel()

	gw := &stubGateway{prepare: ledger.PrepareResult{Count: 2, PrintCommand: "lpr receipts-amazon-2026-03.pdf"}}
	m := newTestModel(t, gw)

	m2, cmd := keyPress(t, m, "enter")
	if cmd == nil {
		t.Fatalf("enter produced no command")
	}

	msg := cmd()
	am, ok := msg.(actionMsg)
	if !ok {
		t.Fatalf("command produced %T, want actionMsg", msg)
	}
	if am.err != nil || am.prepare == nil {
		t.Fatalf("actionMsg = %+v, want prepare outcome", am)
	}

	next, _ := m2.Update(msg)
	m3 := next.(Model)
	if m3.noteKind != noteSuccess || !strings.Contains(m3.note, "prepared 2 orders") {
		t.Fatalf("note = %q (%d), want prepared success", m3.note, m3.noteKind)
	}
	if !strings.Contains(m3.note, "lpr receipts-amazon-2026-03.pdf") {
		t.Fatalf("note %q does not surface the print command", m3.note)
	}
	if got := m3.controller.Readiness("amazon").State; got != readiness.PreparedClean {
		t.Fatalf("state after prepare = %v, want PreparedClean", got)
	}
	if got := m3.controller.PrimaryLabel("amazon"); got != "open print batch" {
		t.Fatalf("primary label after prepare = %q, want open print batch", got)
	}
}

func TestEnterOnCleanBatchRunsBulkPrint(t *testing.T) {
	t.Parallel()

	gw := &stubGateway{
		prepare: ledger.PrepareResult{Count: 2},
		run:     ledger.RunResult{Count: 2, MissingCount: 1},
	}
	m := newTestModel(t, gw)

	// First enter prepares and leaves the channel clean.
	m2, cmd := keyPress(t, m, "enter")
	next, _ := m2.Update(cmd())
	m3 := next.(Model)

	// Second enter takes the fast reopen path.
	m4, cmd := keyPress(t, m3, "enter")
	msg := cmd()
	am := msg.(actionMsg)
	if am.run == nil {
		t.Fatalf("second enter actionMsg = %+v, want run outcome", am)
	}

	next, _ = m4.Update(msg)
	m5 := next.(Model)
	if !strings.Contains(m5.note, "opened print batch") || !strings.Contains(m5.note, "1 missing PDF") {
		t.Fatalf("note = %q, want batch reopened with missing count", m5.note)
	}
	if gw.persists != 1 {
		t.Fatalf("persist calls = %d, want 1 (reopen must not save)", gw.persists)
	}
}

func TestGatewayErrorSurfacesVerbatim(t *testing.T) {
	t.Parallel()

	gw := &stubGateway{failWith: errors.New("save failed: ledger rejected the period")}
	m := newTestModel(t, gw)

	m2, cmd := keyPress(t, m, "enter")
	next, _ := m2.Update(cmd())
	m3 := next.(Model)

	if m3.noteKind != noteDanger {
		t.Fatalf("noteKind = %d, want danger", m3.noteKind)
	}
	if m3.note != "save failed: ledger rejected the period" {
		t.Fatalf("note = %q, want the gateway text unchanged", m3.note)
	}
}

func TestBusyPressIsInert(t *testing.T) {
	t.Parallel()

	busy := controller.NewBusyLock()
	if !busy.TryAcquire() {
		t.Fatalf("could not hold the lock for the test")
	}
	defer busy.Release()

	m := buildTestModel(t, &stubGateway{}, busy)

	m2, cmd := keyPress(t, m, "enter")
	if cmd != nil {
		t.Fatalf("enter dispatched a command while busy")
	}
	if m2.note != busyNote {
		t.Fatalf("note = %q, want %q", m2.note, busyNote)
	}
}

func TestBusyRaceStaysQuiet(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, &stubGateway{})
	next, _ := m.Update(actionMsg{channel: "amazon", err: controller.ErrBusy})
	m2 := next.(Model)
	if m2.note != "" {
		t.Fatalf("note = %q, want none for a busy race", m2.note)
	}
}

func TestCompleteNeedsCapabilityAndEligibility(t *testing.T) {
	t.Parallel()

	gw := &stubGateway{complete: ledger.CompleteResult{Count: 2}}
	m := newTestModel(t, gw)

	// rakuten is configured without completion tracking.
	m2, _ := keyPress(t, m, "tab")
	m3, cmd := keyPress(t, m2, "c")
	if cmd != nil {
		t.Fatalf("complete dispatched for a channel without the capability")
	}
	if !strings.Contains(m3.note, "not tracked") {
		t.Fatalf("note = %q, want capability hint", m3.note)
	}

	// amazon has the capability but no eligible batch yet.
	m4, _ := keyPress(t, m3, "shift+tab")
	_, cmd = keyPress(t, m4, "c")
	if cmd == nil {
		t.Fatalf("complete produced no command for amazon")
	}
	am := cmd().(actionMsg)
	if !errors.Is(am.err, controller.ErrNotEligible) {
		t.Fatalf("complete before prepare error = %v, want ErrNotEligible", am.err)
	}

	next, _ := m4.Update(am)
	m5 := next.(Model)
	if !strings.Contains(m5.note, "no prepared batch") {
		t.Fatalf("note = %q, want quiet eligibility hint", m5.note)
	}
}

func TestReloadArmsWhenDirty(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, &stubGateway{})

	m2, _ := keyPress(t, m, " ") // unsaved change
	m3, cmd := keyPress(t, m2, "r")
	if cmd != nil {
		t.Fatalf("first reload press went through with unsaved changes")
	}
	if !strings.Contains(m3.note, "press r again") {
		t.Fatalf("note = %q, want arming hint", m3.note)
	}

	_, cmd = keyPress(t, m3, "r")
	if cmd == nil {
		t.Fatalf("second reload press inside the window did not go through")
	}
}

func TestReloadGoesStraightWhenClean(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, &stubGateway{})
	_, cmd := keyPress(t, m, "r")
	if cmd == nil {
		t.Fatalf("reload press produced no command on a clean screen")
	}
}

func TestOrdersMsgSwitchesToCachedRows(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, &stubGateway{})

	next, _ := m.Update(ordersMsg{orders: sampleHydration(), offline: true})
	m2 := next.(Model)
	if !m2.offline {
		t.Fatalf("offline flag not set from cached reload")
	}
	if !strings.Contains(m2.note, "cached") {
		t.Fatalf("note = %q, want cached-data hint", m2.note)
	}

	// Cached rows are read-only.
	m3, _ := keyPress(t, m2, " ")
	if m3.selections.IsExcluded("amazon", "A-1") {
		t.Fatalf("toggle went through on cached rows")
	}
	if !strings.Contains(m3.note, "read-only") {
		t.Fatalf("note = %q, want read-only hint", m3.note)
	}
}

func TestChannelFocusCycling(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, &stubGateway{})
	if m.channelID() != "amazon" {
		t.Fatalf("initial focus = %q, want amazon", m.channelID())
	}

	m2, _ := keyPress(t, m, "tab")
	if m2.channelID() != "rakuten" {
		t.Fatalf("focus after tab = %q, want rakuten", m2.channelID())
	}

	m3, _ := keyPress(t, m2, "tab")
	if m3.channelID() != "amazon" {
		t.Fatalf("focus after wrap = %q, want amazon", m3.channelID())
	}

	m4, _ := keyPress(t, m3, "shift+tab")
	if m4.channelID() != "rakuten" {
		t.Fatalf("focus after shift+tab = %q, want rakuten", m4.channelID())
	}

	m5, _ := keyPress(t, m4, "1")
	if m5.channelID() != "amazon" {
		t.Fatalf("focus after digit jump = %q, want amazon", m5.channelID())
	}
}

func TestHelpOverlayAnyKeyCloses(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, &stubGateway{})
	m2, _ := keyPress(t, m, "?")
	if !m2.showHelp {
		t.Fatalf("help overlay did not open")
	}
	m3, _ := keyPress(t, m2, "j")
	if m3.showHelp {
		t.Fatalf("help overlay still open after a key")
	}
}

func TestThemeCyclePersistsPreference(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, &stubGateway{})
	m2, _ := keyPress(t, m, "T")
	if m2.theme.Name != "Kanagawa" {
		t.Fatalf("theme after cycle = %q, want Kanagawa", m2.theme.Name)
	}

	saved, err := prefs.Load(m2.prefsPath)
	if err != nil {
		t.Fatalf("loading saved prefs: %v", err)
	}
	if saved.Theme != "Kanagawa" {
		t.Fatalf("persisted theme = %q, want Kanagawa", saved.Theme)
	}
}

func TestViewRendersEveryScreen(t *testing.T) {
	t.Parallel()

	m := newTestModel(t, &stubGateway{})
	if out := m.View(); out == "" {
		t.Fatalf("orders view rendered empty")
	}

	m.currentView = ViewLogs
	if out := m.View(); out == "" {
		t.Fatalf("log view rendered empty")
	}

	m.showHelp = true
	if out := m.View(); out == "" {
		t.Fatalf("help overlay rendered empty")
	}
}
