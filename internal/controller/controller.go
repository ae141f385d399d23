package controller

import (
	"context"
	"log/slog"
	"strings"

	"platen/internal/ledger"
	"platen/internal/readiness"
	"platen/internal/selection"
)

// Gateway is the slice of the ledger API the controller drives. It is
// implemented by *ledger.Client; tests substitute fakes.
type Gateway interface {
	PersistExclusions(ctx context.Context, period ledger.Period, channel string, items []ledger.ExclusionItem) error
	PreparePrint(ctx context.Context, period ledger.Period, channel string) (*ledger.PrepareResult, error)
	RunBulkPrint(ctx context.Context, period ledger.Period, channel string) (*ledger.RunResult, error)
	CompletePrint(ctx context.Context, period ledger.Period, channel string) (*ledger.CompleteResult, error)
}

// SelectionSource is the narrow view of selection state the sequences
// need. Keeping the controller behind it means the orchestration logic is
// tested without any rendering surface.
type SelectionSource interface {
	SetExcluded(channel, orderID string, excluded bool) bool
	ExcludedItems(channel string) []string
	IsDirty(channel string) bool
	SnapshotBaseline(channel string)
}

var (
	_ Gateway         = (*ledger.Client)(nil)
	_ SelectionSource = (*selection.Store)(nil)
)

// Capabilities toggles the optional flows per channel. Channels default to
// carrying both when built from configuration.
type Capabilities struct {
	// BulkRun enables the fast reopen path from a clean prepared state.
	// Without it the primary trigger always saves and prepares.
	BulkRun bool
	// Completion enables recording that a batch was physically printed.
	Completion bool
}

// Options configures a Controller.
type Options struct {
	Period       ledger.Period
	Gateway      Gateway
	Selections   SelectionSource
	Readiness    *readiness.Set
	Busy         *BusyLock
	Capabilities map[string]Capabilities
	Log          *slog.Logger
}

// Controller owns the print workflow for every configured channel: one
// instance, no ambient globals. Blocking methods are safe to call from
// separate goroutines; the BusyLock serializes remote side effects.
type Controller struct {
	period     ledger.Period
	gateway    Gateway
	selections SelectionSource
	readiness  *readiness.Set
	busy       *BusyLock
	caps       map[string]Capabilities
	log        *slog.Logger
}

// New builds a Controller. A nil Busy gets a fresh lock and a nil Log is
// discarded.
func New(opts Options) *Controller {
	busy := opts.Busy
	if busy == nil {
		busy = NewBusyLock()
	}
	log := opts.Log
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &Controller{
		period:     opts.Period,
		gateway:    opts.Gateway,
		selections: opts.Selections,
		readiness:  opts.Readiness,
		busy:       busy,
		caps:       opts.Capabilities,
		log:        log,
	}
}

// PrepareOutcome reports a finished save-and-prepare sequence.
type PrepareOutcome struct {
	Channel      string
	Count        int
	PrintCommand string
	ExcludedPDFs string
}

// RunOutcome reports a finished bulk-print run.
type RunOutcome struct {
	Channel      string
	Count        int
	MissingCount int
}

// CompleteOutcome reports a recorded completion.
type CompleteOutcome struct {
	Channel string
	Count   int
}

// SaveAndPrepare persists the channel's live exclusions and builds a fresh
// print batch. The sequence holds the BusyLock end to end; both remote
// calls must succeed for the channel to come out PreparedClean. Gateway
// errors are returned as-is so their message reaches the operator
// unchanged.
func (c *Controller) SaveAndPrepare(ctx context.Context, channel string) (*PrepareOutcome, error) {
	if !c.busy.TryAcquire() {
		c.log.Debug("save-and-prepare rejected", "channel", channel, "reason", "busy")
		return nil, ErrBusy
	}
	defer c.busy.Release()

	if err := c.validateScope(channel); err != nil {
		return nil, err
	}

	fence := c.readiness.Reset(channel)

	ids := c.selections.ExcludedItems(channel)
	items := make([]ledger.ExclusionItem, 0, len(ids))
	for _, id := range ids {
		items = append(items, ledger.ExclusionItem{Source: channel, OrderID: id})
	}

	if err := c.gateway.PersistExclusions(ctx, c.period, channel, items); err != nil {
		c.failSequence(channel, fence, "persist exclusions", err)
		return nil, err
	}

	result, err := c.gateway.PreparePrint(ctx, c.period, channel)
	if err != nil {
		c.failSequence(channel, fence, "prepare print", err)
		return nil, err
	}

	if c.readiness.PrepareSucceeded(channel, fence) {
		c.selections.SnapshotBaseline(channel)
	} else {
		c.log.Info("stale prepare result dropped", "channel", channel)
	}
	c.log.Info("print batch prepared",
		"channel", channel,
		"period", c.period,
		"excluded", len(items),
		"count", result.Count)
	return &PrepareOutcome{
		Channel:      channel,
		Count:        result.Count,
		PrintCommand: result.PrintCommand,
		ExcludedPDFs: result.ExcludedPDFsURL,
	}, nil
}

// RunBulkPrint reopens the channel's already-prepared batch. Readiness is
// left untouched whether the call succeeds or fails; the batch on the
// server is what it is.
func (c *Controller) RunBulkPrint(ctx context.Context, channel string) (*RunOutcome, error) {
	if !c.busy.TryAcquire() {
		c.log.Debug("bulk print rejected", "channel", channel, "reason", "busy")
		return nil, ErrBusy
	}
	defer c.busy.Release()

	if err := c.validateScope(channel); err != nil {
		return nil, err
	}
	if !c.caps[channel].BulkRun {
		return nil, ErrUnsupported
	}

	result, err := c.gateway.RunBulkPrint(ctx, c.period, channel)
	if err != nil {
		c.log.Warn("bulk print failed", "channel", channel, "error", err)
		return nil, err
	}
	c.log.Info("bulk print opened",
		"channel", channel,
		"period", c.period,
		"count", result.Count,
		"missing", result.MissingCount)
	return &RunOutcome{
		Channel:      channel,
		Count:        result.Count,
		MissingCount: result.MissingCount,
	}, nil
}

// CompletePrint records that the operator physically printed the batch.
// Without an eligible batch it is a no-op; readiness never changes, only
// the recorded flag.
func (c *Controller) CompletePrint(ctx context.Context, channel string) (*CompleteOutcome, error) {
	if !c.busy.TryAcquire() {
		c.log.Debug("complete rejected", "channel", channel, "reason", "busy")
		return nil, ErrBusy
	}
	defer c.busy.Release()

	if err := c.validateScope(channel); err != nil {
		return nil, err
	}
	if !c.caps[channel].Completion {
		return nil, ErrUnsupported
	}
	if !c.readiness.Get(channel).CompleteEligible {
		return nil, ErrNotEligible
	}

	fence := c.readiness.Seq(channel)
	result, err := c.gateway.CompletePrint(ctx, c.period, channel)
	if err != nil {
		c.log.Warn("complete failed", "channel", channel, "error", err)
		return nil, err
	}
	if !c.readiness.RecordCompletion(channel, fence) {
		c.log.Info("stale completion dropped", "channel", channel)
	}
	c.log.Info("print completion recorded",
		"channel", channel,
		"period", c.period,
		"count", result.Count)
	return &CompleteOutcome{Channel: channel, Count: result.Count}, nil
}

// ToggleExcluded flips one row's live flag. Toggles are always allowed,
// even while a sequence is in flight; the readiness machine only hears
// about flips that actually changed the stored value.
func (c *Controller) ToggleExcluded(channel, orderID string, excluded bool) {
	if c.selections.SetExcluded(channel, orderID, excluded) {
		c.readiness.MarkDirty(channel)
	}
}

// PrimaryAction routes the primary trigger for the channel, evaluated at
// press time. Channels without the bulk-run capability always take the
// save-and-prepare path.
func (c *Controller) PrimaryAction(channel string) readiness.Action {
	action := readiness.Decide(c.readiness.Get(channel).State)
	if action == readiness.ActionRunBulkPrint && !c.caps[channel].BulkRun {
		return readiness.ActionSaveAndPrepare
	}
	return action
}

// PrimaryLabel renders the primary trigger's wording for the channel.
func (c *Controller) PrimaryLabel(channel string) string {
	return readiness.Label(c.PrimaryAction(channel), c.selections.IsDirty(channel))
}

// Readiness returns the channel's readiness snapshot.
func (c *Controller) Readiness(channel string) readiness.Channel {
	return c.readiness.Get(channel)
}

// Dirty reports whether the channel's live selections differ from the last
// persisted baseline.
func (c *Controller) Dirty(channel string) bool {
	return c.selections.IsDirty(channel)
}

// Busy reports whether a gateway sequence is in flight.
func (c *Controller) Busy() bool {
	return c.busy.Held()
}

// Capabilities returns the channel's configured capabilities.
func (c *Controller) Capabilities(channel string) Capabilities {
	return c.caps[channel]
}

// Period returns the accounting period the controller operates on.
func (c *Controller) Period() ledger.Period {
	return c.period
}

func (c *Controller) validateScope(channel string) error {
	if c.period.IsZero() || strings.TrimSpace(channel) == "" {
		return ErrScopeMissing
	}
	if _, ok := c.caps[channel]; !ok {
		return ErrScopeMissing
	}
	return nil
}

func (c *Controller) failSequence(channel string, fence uint64, step string, err error) {
	if !c.readiness.PrepareFailed(channel, fence) {
		c.log.Info("stale failure dropped", "channel", channel, "step", step)
	}
	c.log.Warn("save-and-prepare failed",
		"channel", channel,
		"step", step,
		"error", err)
}
