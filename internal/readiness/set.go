package readiness

import "sync"

// Channel is a value snapshot of one channel's readiness and batch flags.
type Channel struct {
	State State
	// CompleteEligible is true once a prepare has succeeded for the current
	// clean state, or hydration reported an existing prepared batch. It
	// gates the complete-print action.
	CompleteEligible bool
	// CompletionRecorded is true once the batch was marked printed. A later
	// successful prepare clears it.
	CompletionRecorded bool
}

// Set tracks readiness per channel. All transitions are in memory; nothing
// here is persisted. Each channel also carries a monotonically increasing
// sequence number bumped on hydration, so results of a gateway sequence
// that was in flight across a reload can be recognized as stale and
// dropped instead of clobbering the freshly derived state.
type Set struct {
	mu       sync.RWMutex
	channels map[string]*entry
}

type entry struct {
	ch  Channel
	seq uint64
}

// NewSet returns a Set with every channel implicitly NeverPrepared.
func NewSet() *Set {
	return &Set{channels: make(map[string]*entry)}
}

// Hydrate derives the channel's state from the server's batch hints. The
// selection store is clean immediately after its own hydration, so a
// reported prepared batch yields PreparedClean; the clean flag is taken
// explicitly to keep the derivation honest when callers hydrate the two
// stores out of step. Hydration advances the channel's fence.
func (s *Set) Hydrate(channel string, prepared, completed, clean bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ensure(channel)
	e.seq++
	e.ch = Channel{CompletionRecorded: completed}
	if prepared && clean {
		e.ch.State = PreparedClean
		e.ch.CompleteEligible = true
	}
}

// MarkDirty applies the toggle-changed event. Only a clean prepared state
// reacts; the other states already demand a fresh save-and-prepare.
func (s *Set) MarkDirty(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ensure(channel)
	if e.ch.State == PreparedClean {
		e.ch.State = PreparedDirty
		e.ch.CompleteEligible = false
	}
}

// Reset applies the optimistic transition at the start of a save-and-prepare
// sequence: the channel reads NeverPrepared and loses its completion flags
// until the sequence reports back. It returns the fence the sequence must
// present when applying its outcome.
func (s *Set) Reset(channel string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ensure(channel)
	e.ch = Channel{State: NeverPrepared}
	return e.seq
}

// Seq returns the channel's current fence without mutating anything.
func (s *Set) Seq(channel string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ensure(channel).seq
}

// PrepareSucceeded transitions the channel to PreparedClean with a fresh
// eligible, unprinted batch. The transition only applies while the fence is
// current; it reports whether it was applied.
func (s *Set) PrepareSucceeded(channel string, fence uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ensure(channel)
	if e.seq != fence {
		return false
	}
	e.ch = Channel{State: PreparedClean, CompleteEligible: true}
	return true
}

// PrepareFailed transitions the channel to NeverPrepared. Readiness cannot
// be assumed after a failed attempt, whichever of the two calls failed.
// Fenced like PrepareSucceeded; reports whether it was applied.
func (s *Set) PrepareFailed(channel string, fence uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ensure(channel)
	if e.seq != fence {
		return false
	}
	e.ch = Channel{State: NeverPrepared}
	return true
}

// RecordCompletion marks the prepared batch as physically printed. It never
// changes the readiness state. Fenced; reports whether it was applied.
func (s *Set) RecordCompletion(channel string, fence uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ensure(channel)
	if e.seq != fence {
		return false
	}
	e.ch.CompletionRecorded = true
	return true
}

// Get returns a value snapshot of the channel. Unknown channels read as
// NeverPrepared with no flags set.
func (s *Set) Get(channel string) Channel {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.channels[channel]; ok {
		return e.ch
	}
	return Channel{}
}

func (s *Set) ensure(channel string) *entry {
	e, ok := s.channels[channel]
	if !ok {
		e = &entry{}
		s.channels[channel] = e
	}
	return e
}
