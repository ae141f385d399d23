package app

import (
	"context"
	"log/slog"
	"time"

	"platen/internal/health"
	"platen/internal/ledger"
	"platen/internal/logging"
)

const (
	defaultPollInterval = 5 * time.Second
	maxBackoff          = 30 * time.Second
)

// healthChecker is the one client call the poller needs.
type healthChecker interface {
	FetchHealth(ctx context.Context) (*ledger.HealthResponse, error)
}

// StartPoller launches a background goroutine that keeps the health store
// current. It returns immediately. While the service keeps failing the
// cadence backs off exponentially so a dead service is not hammered.
func StartPoller(ctx context.Context, store *health.Store, client healthChecker, interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	if log == nil {
		log = logging.Null()
	}
	go func() {
		for {
			wait := interval
			if err := poll(ctx, store, client); err != nil {
				failures := store.Snapshot().ConsecutiveFailures
				wait = calculateBackoff(failures, interval)
				log.Warn("health poll failed",
					"error", err,
					"consecutive", failures,
					"next_poll_in", wait)
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
	}()
}

// poll runs one health check and records the outcome.
func poll(ctx context.Context, store *health.Store, client healthChecker) error {
	report, err := client.FetchHealth(ctx)
	store.Update(report, err)
	return err
}

// calculateBackoff doubles the base interval per consecutive failure,
// capped at maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	if failures > 10 {
		return maxBackoff
	}
	backoff := base << uint(failures)
	if backoff > maxBackoff {
		return maxBackoff
	}
	return backoff
}
