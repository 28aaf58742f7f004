package routestore

import (
	"context"
	"time"

	"mrtrack/internal/metrics"
)

// StartPolling launches the two refresh loops: route bundles on the route
// interval, live positions on the live interval. Only keys requested within
// the active window are refreshed, so abandoned selections age out instead
// of polling forever. Both loops stop when ctx is cancelled.
func (s *Store) StartPolling(ctx context.Context) {
	go s.routeLoop(ctx)
	go s.liveLoop(ctx)
}

func (s *Store) routeLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pollEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepRoutes(ctx)
		}
	}
}

func (s *Store) sweepRoutes(ctx context.Context) {
	cutoff := s.now().Add(-s.activeWindow)
	s.mu.Lock()
	var refreshed int
	keys := make([]Key, 0, len(s.entries))
	for k, e := range s.entries {
		if e.lastAccess.After(cutoff) {
			keys = append(keys, k)
			if !e.loading {
				seq, done := s.beginLocked(e)
				go s.fetch(ctx, k, seq, done)
				refreshed++
			}
		}
	}
	s.mu.Unlock()
	metrics.PollActiveKeys.Set(float64(len(keys)))
	if len(keys) > 0 {
		s.logf("routestore: poll keys=%d refreshed=%d next=%s", len(keys), refreshed, s.pollEvery)
	}
}

func (s *Store) liveLoop(ctx context.Context) {
	ticker := time.NewTicker(s.liveEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepLive(ctx)
		}
	}
}

func (s *Store) sweepLive(ctx context.Context) {
	cutoff := s.now().Add(-s.activeWindow)
	s.mu.Lock()
	seen := map[string]bool{}
	for k, e := range s.entries {
		if e.lastAccess.After(cutoff) {
			seen[k.MRID] = true
		}
	}
	s.mu.Unlock()

	var stored, errs int
	for mrID := range seen {
		pos, err := s.adapter.GetLive(ctx, mrID)
		if err != nil {
			errs++
			continue
		}
		s.live.Upsert(pos)
		stored++
	}
	if stored+errs > 0 {
		s.logf("routestore: live poll mrs=%d stored=%d errors=%d next=%s", len(seen), stored, errs, s.liveEvery)
	}
}
