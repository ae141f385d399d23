package app

import (
	"context"
	"log/slog"
	"time"

	"platen/internal/cache"
	"platen/internal/config"
	"platen/internal/ledger"
	"platen/internal/readiness"
	"platen/internal/selection"
	"platen/internal/ui"
)

// Session owns the hydration lifecycle: fetching the period's rows,
// mirroring them into the selection and readiness stores, and falling back
// to the offline cache when the service is unreachable. The UI triggers it
// again on every explicit reload.
type Session struct {
	client     *ledger.Client
	cache      *cache.Store // nil when the cache could not be opened
	selections *selection.Store
	readiness  *readiness.Set
	channels   []config.Channel
	period     ledger.Period
	log        *slog.Logger
}

var _ ui.Reloader = (*Session)(nil)

// Hydrate fetches the period's rows and rebuilds the in-memory stores from
// them. When the service is unreachable it serves the last cached snapshot
// instead; the bool reports that fallback. With neither source available
// the fetch error is returned.
func (s *Session) Hydrate(ctx context.Context) (*ledger.OrdersResponse, bool, error) {
	orders, err := s.client.FetchOrders(ctx, s.period)
	if err != nil {
		cached, savedAt, cacheErr := s.loadCached()
		if cacheErr != nil {
			return nil, false, err
		}
		s.log.Warn("serving cached snapshot",
			"period", s.period,
			"saved_at", savedAt.Format(time.RFC3339),
			"fetch_error", err)
		s.apply(cached)
		return cached, true, nil
	}

	if s.cache != nil {
		if err := s.cache.Save(orders); err != nil {
			s.log.Warn("cache save failed", "error", err)
		}
	}
	s.apply(orders)
	return orders, false, nil
}

// Reload implements ui.Reloader.
func (s *Session) Reload(ctx context.Context) (*ledger.OrdersResponse, bool, error) {
	return s.Hydrate(ctx)
}

func (s *Session) loadCached() (*ledger.OrdersResponse, time.Time, error) {
	if s.cache == nil {
		return nil, time.Time{}, cache.ErrNoSnapshot
	}
	return s.cache.Load(s.period)
}

// apply rebuilds the selection and readiness stores from a hydration
// payload. The payload is the persisted server state, so every channel
// starts clean; channels missing from the payload hydrate empty.
func (s *Session) apply(orders *ledger.OrdersResponse) {
	for _, ch := range s.channels {
		entry := orders.Channel(ch.ID)
		if entry == nil {
			s.selections.Hydrate(ch.ID, nil)
			s.readiness.Hydrate(ch.ID, false, false, true)
			continue
		}
		flags := make(map[string]bool, len(entry.Orders))
		for _, o := range entry.Orders {
			flags[o.OrderID] = o.Excluded
		}
		s.selections.Hydrate(ch.ID, flags)
		s.readiness.Hydrate(ch.ID, entry.Prepared, entry.Completed, true)
	}
}
