package selection

import (
	"sort"
	"sync"
)

// Key identifies one order row within a channel.
type Key struct {
	Channel string
	OrderID string
}

// Counts tallies exclusion flags over live state.
type Counts struct {
	Excluded int
	Included int
	Total    int
}

// Store holds the live and baseline exclusion flags for every channel. The
// baseline mirrors the last server-persisted state; dirtiness is always
// derived by comparing the two, never tracked separately. Membership is
// seeded by Hydrate, but SetExcluded will create keys it has not seen.
type Store struct {
	mu       sync.RWMutex
	live     map[Key]bool
	baseline map[Key]bool
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		live:     make(map[Key]bool),
		baseline: make(map[Key]bool),
	}
}

// Hydrate replaces both live and baseline flags for the channel with the
// given set. The server payload is by definition the last persisted state,
// so a freshly hydrated channel is never dirty.
func (s *Store) Hydrate(channel string, flags map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dropChannelLocked(channel)
	for orderID, excluded := range flags {
		key := Key{Channel: channel, OrderID: orderID}
		s.live[key] = excluded
		s.baseline[key] = excluded
	}
}

// SetExcluded overwrites the live flag for the key and reports whether the
// stored value changed. Re-setting the current value is a no-op, so callers
// can treat the return as the "a toggle actually flipped" signal.
func (s *Store) SetExcluded(channel, orderID string, excluded bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := Key{Channel: channel, OrderID: orderID}
	prev := s.live[key]
	s.live[key] = excluded
	return prev != excluded
}

// IsExcluded reports the live flag for the key.
func (s *Store) IsExcluded(channel, orderID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.live[Key{Channel: channel, OrderID: orderID}]
}

// SnapshotBaseline copies the channel's live flags over its baseline. Called
// after a successful persist, when the server's stored state has caught up
// with the screen.
func (s *Store) SnapshotBaseline(channel string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.baseline {
		if key.Channel == channel {
			delete(s.baseline, key)
		}
	}
	for key, excluded := range s.live {
		if key.Channel == channel {
			s.baseline[key] = excluded
		}
	}
}

// IsDirty reports whether any of the channel's live flags differ from the
// baseline. A key present on only one side counts as differing when its
// present side is excluded, since the absent side reads as included.
func (s *Store) IsDirty(channel string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for key, excluded := range s.live {
		if key.Channel == channel && excluded != s.baseline[key] {
			return true
		}
	}
	for key, excluded := range s.baseline {
		if key.Channel != channel || !excluded {
			continue
		}
		if _, ok := s.live[key]; !ok {
			return true
		}
	}
	return false
}

// ExcludedItems returns the channel's live excluded order ids in sorted
// order, ready to serialize as a full-replace persist payload.
func (s *Store) ExcludedItems(channel string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var items []string
	for key, excluded := range s.live {
		if key.Channel == channel && excluded {
			items = append(items, key.OrderID)
		}
	}
	sort.Strings(items)
	return items
}

// Counts aggregates live flags across every channel. The dashboard shows a
// single shared tally regardless of which channel is focused.
func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c Counts
	for _, excluded := range s.live {
		c.Total++
		if excluded {
			c.Excluded++
		} else {
			c.Included++
		}
	}
	return c
}

// ChannelCounts tallies live flags for a single channel.
func (s *Store) ChannelCounts(channel string) Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var c Counts
	for key, excluded := range s.live {
		if key.Channel != channel {
			continue
		}
		c.Total++
		if excluded {
			c.Excluded++
		} else {
			c.Included++
		}
	}
	return c
}

func (s *Store) dropChannelLocked(channel string) {
	for key := range s.live {
		if key.Channel == channel {
			delete(s.live, key)
		}
	}
	for key := range s.baseline {
		if key.Channel == channel {
			delete(s.baseline, key)
		}
	}
}
