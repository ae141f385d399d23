package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"platen/internal/health"
	"platen/internal/ledger"
)

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		name     string
		failures int
		base     time.Duration
		want     time.Duration
	}{
		{"zero failures", 0, 5 * time.Second, 5 * time.Second},
		{"negative failures", -1, 5 * time.Second, 5 * time.Second},
		{"one failure", 1, 5 * time.Second, 10 * time.Second},
		{"two failures", 2, 5 * time.Second, 20 * time.Second},
		{"three failures capped", 3, 5 * time.Second, 30 * time.Second}, // Would be 40s
		{"short base doubles", 2, 2 * time.Second, 8 * time.Second},
		{"many failures capped", 10, 2 * time.Second, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := calculateBackoff(tt.failures, tt.base)
			if got != tt.want {
				t.Errorf("calculateBackoff(%d, %v) = %v, want %v", tt.failures, tt.base, got, tt.want)
			}
		})
	}
}

func TestCalculateBackoff_MaxCap(t *testing.T) {
	// Backoff must never exceed maxBackoff regardless of input.
	base := 5 * time.Second
	for failures := 0; failures <= 20; failures++ {
		got := calculateBackoff(failures, base)
		if got > maxBackoff {
			t.Errorf("calculateBackoff(%d, %v) = %v, exceeds maxBackoff %v", failures, base, got, maxBackoff)
		}
	}
}

type fakeHealthChecker struct {
	report *ledger.HealthResponse
	err    error
}

func (f *fakeHealthChecker) FetchHealth(_ context.Context) (*ledger.HealthResponse, error) {
	return f.report, f.err
}

func TestPollTracksConsecutiveFailures(t *testing.T) {
	store := &health.Store{}
	fake := &fakeHealthChecker{err: errors.New("connection refused")}

	_ = poll(context.Background(), store, fake)
	if store.Snapshot().IsOffline() {
		t.Fatalf("offline after a single miss; one failure is noise")
	}

	_ = poll(context.Background(), store, fake)
	if !store.Snapshot().IsOffline() {
		t.Fatalf("not offline after two consecutive misses")
	}

	fake.err = nil
	fake.report = &ledger.HealthResponse{Status: "ok", Version: "1.2.0"}
	_ = poll(context.Background(), store, fake)

	snap := store.Snapshot()
	if snap.IsOffline() {
		t.Fatalf("still offline after a successful poll")
	}
	if !snap.Healthy || snap.Version != "1.2.0" {
		t.Fatalf("snapshot = %+v, want healthy with version", snap)
	}
}
