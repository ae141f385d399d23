package readiness

// State classifies one channel's print readiness.
type State int

const (
	// NeverPrepared means no server batch is known to match any persisted
	// state, either because none was built yet or a prepare failed.
	NeverPrepared State = iota
	// PreparedClean means a server batch exists and the screen matches it.
	PreparedClean
	// PreparedDirty means a batch exists but selections drifted since.
	PreparedDirty
)

func (s State) String() string {
	switch s {
	case PreparedClean:
		return "prepared-clean"
	case PreparedDirty:
		return "prepared-dirty"
	default:
		return "never-prepared"
	}
}

// Action is what the primary trigger will perform when pressed.
type Action int

const (
	// ActionSaveAndPrepare persists the live exclusions and builds a batch.
	ActionSaveAndPrepare Action = iota
	// ActionRunBulkPrint reopens the already-prepared batch without saving.
	ActionRunBulkPrint
)

// Decide routes the primary trigger. Evaluated at press time, never cached:
// only a clean prepared state takes the fast reopen path, everything else
// runs the full save-then-prepare sequence.
func Decide(s State) Action {
	if s == PreparedClean {
		return ActionRunBulkPrint
	}
	return ActionSaveAndPrepare
}

// Label renders the primary trigger's wording. It is a pure projection of
// the routed action plus the store's dirty flag and is never tracked on
// its own.
func Label(a Action, dirty bool) string {
	if a == ActionRunBulkPrint {
		return "open print batch"
	}
	if dirty {
		return "update + prepare"
	}
	return "save + prepare"
}
