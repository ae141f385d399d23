// Package health tracks ledger service reachability for the dashboard.
// A background poller feeds the store; the UI reads value snapshots.
package health

import (
	"fmt"
	"sync"
	"time"

	"platen/internal/ledger"
)

// Snapshot represents the latest reachability data available to the UI.
type Snapshot struct {
	Healthy             bool
	Version             string
	LastChecked         time.Time
	LastError           error
	ConsecutiveFailures int // Number of consecutive poll failures
}

// IsOffline returns true when the API has been unreachable for multiple
// polls. A single miss is noise; two in a row flips the banner.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Store coordinates concurrent updates to the snapshot.
type Store struct {
	mu       sync.RWMutex
	snapshot Snapshot
}

// Update replaces the stored snapshot. When err is non-nil the previous
// report is kept but the error is recorded for visibility.
func (s *Store) Update(report *ledger.HealthResponse, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.snapshot.LastError = err
		s.snapshot.LastChecked = time.Now()
		s.snapshot.ConsecutiveFailures++
		return
	}

	if report != nil {
		s.snapshot.Healthy = report.Healthy()
		s.snapshot.Version = report.Version
	} else {
		s.snapshot.Healthy = false
	}
	s.snapshot.LastError = nil
	s.snapshot.LastChecked = time.Now()
	s.snapshot.ConsecutiveFailures = 0
}

// Snapshot returns a copy of the current snapshot.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	if s.snapshot.LastError != nil {
		snap.LastError = fmt.Errorf("%w", s.snapshot.LastError)
	}
	return snap
}
