// Package routestore is the keyed query layer between the UI handlers and
// the backend adapter: per-(mrID, date) cached bundles with in-flight
// deduplication, stale-while-revalidate refresh, bounded retries, and
// background polling. Consumers subscribe to snapshots; nothing here throws.
package routestore

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"mrtrack/internal/backend"
	"mrtrack/internal/metrics"
	"mrtrack/internal/model"
	"mrtrack/internal/normalize"
)

type Key struct {
	MRID string
	Date string
}

func (k Key) zero() bool { return k.MRID == "" || k.Date == "" }

func (k Key) String() string { return k.MRID + "|" + k.Date }

// Snapshot is what consumers see for a key. Err and Empty are data, never
// exceptions; during a refresh the previous bundle stays visible with
// Loading set.
type Snapshot struct {
	Points    []model.RoutePoint `json:"points"`
	Stats     model.RouteStats   `json:"stats"`
	Loading   bool               `json:"loading"`
	Err       string             `json:"error,omitempty"`
	Empty     bool               `json:"empty"`
	FetchedAt time.Time          `json:"fetched_at,omitempty"`
}

type entry struct {
	have       bool
	bundle     model.RouteBundle
	empty      bool
	err        string
	loading    bool
	inflight   chan struct{}
	issueSeq   uint64
	appliedSeq uint64
	lastAccess time.Time
}

type Store struct {
	adapter backend.Adapter
	norm    normalize.Normalizer
	mirror  *Mirror
	live    *LiveCache

	pollEvery    time.Duration
	liveEvery    time.Duration
	activeWindow time.Duration
	retries      int

	now  func() time.Time
	logf func(string, ...any)

	mu      sync.Mutex
	entries map[Key]*entry
}

// Options tune the store; zero values get defaults matching the product's
// polling contract (routes 30s, live 15s, 3 retries).
type Options struct {
	PollEvery    time.Duration
	LiveEvery    time.Duration
	ActiveWindow time.Duration
	Retries      int
	Mirror       *Mirror
	Now          func() time.Time
	Logf         func(string, ...any)
}

func New(adapter backend.Adapter, opts Options) *Store {
	if opts.PollEvery <= 0 {
		opts.PollEvery = 30 * time.Second
	}
	if opts.LiveEvery <= 0 {
		opts.LiveEvery = 15 * time.Second
	}
	if opts.ActiveWindow <= 0 {
		opts.ActiveWindow = 5 * time.Minute
	}
	if opts.Retries == 0 {
		opts.Retries = 3
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logf == nil {
		opts.Logf = log.Printf
	}
	s := &Store{
		adapter:      adapter,
		mirror:       opts.Mirror,
		live:         NewLiveCache(),
		pollEvery:    opts.PollEvery,
		liveEvery:    opts.LiveEvery,
		activeWindow: opts.ActiveWindow,
		retries:      opts.Retries,
		now:          opts.Now,
		logf:         opts.Logf,
		entries:      map[Key]*entry{},
	}
	s.norm = normalize.Normalizer{Now: opts.Now, Logf: opts.Logf}
	return s
}

// Live exposes the latest-position cache fed by the live poller.
func (s *Store) Live() *LiveCache { return s.live }

// Get returns the snapshot for a key, fetching on first use and kicking off
// a background revalidation when the cached bundle is older than the poll
// interval. An empty key stays idle and fetches nothing.
func (s *Store) Get(ctx context.Context, mrID, date string) Snapshot {
	k := Key{MRID: mrID, Date: date}
	if k.zero() {
		return Snapshot{}
	}

	s.mu.Lock()
	e := s.entry(k)
	e.lastAccess = s.now()

	if e.have || e.empty || (e.err != "" && !e.loading) {
		if e.err == "" && !e.empty {
			metrics.RouteCacheReads.WithLabelValues("cache").Inc()
		}
		fresh := s.now().Sub(e.bundle.FetchedAt) < s.pollEvery
		if !fresh && !e.loading {
			seq, done := s.beginLocked(e)
			go s.fetch(context.Background(), k, seq, done)
		}
		snap := snapshotLocked(e)
		s.mu.Unlock()
		return snap
	}

	// Cold key: join the in-flight fetch or start one and wait.
	var done chan struct{}
	if e.loading {
		done = e.inflight
	} else {
		var seq uint64
		seq, done = s.beginLocked(e)
		go s.fetch(context.Background(), k, seq, done)
	}
	s.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
	}

	s.mu.Lock()
	snap := snapshotLocked(e)
	s.mu.Unlock()
	return snap
}

// Refetch forces an out-of-band refresh and waits for it (or joins one that
// is already running).
func (s *Store) Refetch(ctx context.Context, mrID, date string) Snapshot {
	k := Key{MRID: mrID, Date: date}
	if k.zero() {
		return Snapshot{}
	}
	s.mu.Lock()
	e := s.entry(k)
	e.lastAccess = s.now()
	var done chan struct{}
	if e.loading {
		done = e.inflight
	} else {
		var seq uint64
		seq, done = s.beginLocked(e)
		go s.fetch(context.Background(), k, seq, done)
	}
	s.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
	}

	s.mu.Lock()
	snap := snapshotLocked(e)
	s.mu.Unlock()
	return snap
}

func (s *Store) entry(k Key) *entry {
	e := s.entries[k]
	if e == nil {
		e = &entry{}
		s.entries[k] = e
	}
	return e
}

// beginLocked issues a new fetch sequence number for the entry. Responses
// are applied in issue order: a result whose seq is not newer than the last
// applied one is discarded.
func (s *Store) beginLocked(e *entry) (uint64, chan struct{}) {
	e.issueSeq++
	e.loading = true
	e.inflight = make(chan struct{})
	return e.issueSeq, e.inflight
}

func snapshotLocked(e *entry) Snapshot {
	return Snapshot{
		Points:    e.bundle.Points,
		Stats:     e.bundle.Stats,
		Loading:   e.loading,
		Err:       e.err,
		Empty:     e.empty,
		FetchedAt: e.bundle.FetchedAt,
	}
}

// fetch runs one fetch cycle (with retries) and applies the outcome.
func (s *Store) fetch(ctx context.Context, k Key, seq uint64, done chan struct{}) {
	// Warm from the mirror first so a fresh replica shows data before the
	// upstream round trip completes. Only the very first fill uses it.
	if s.mirror != nil && seq == 1 {
		if bundle, ok := s.mirror.Load(ctx, k); ok {
			metrics.RouteCacheReads.WithLabelValues("mirror").Inc()
			s.applyBundle(k, seq, bundle, true)
		}
	}

	data, err := s.fetchWithRetry(ctx, k)
	if err != nil {
		s.applyError(k, seq, err, done)
		return
	}

	points := s.norm.Points(data.Points, k.MRID, k.Date)
	bundle := model.RouteBundle{
		Points:    points,
		Stats:     normalize.Stats(data.Stats),
		FetchedAt: s.now(),
	}
	metrics.RouteCacheReads.WithLabelValues("fetch").Inc()
	applied := s.applyBundle(k, seq, bundle, false)
	if applied && s.mirror != nil && len(points) > 0 {
		s.mirror.Save(ctx, k, bundle)
	}
	close(done)
}

func (s *Store) fetchWithRetry(ctx context.Context, k Key) (model.RouteData, error) {
	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryBackoff(attempt)):
			case <-ctx.Done():
				return model.RouteData{}, ctx.Err()
			}
		}
		data, err := s.adapter.GetRoute(ctx, k.MRID, k.Date)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !transient(err) {
			break
		}
		s.logf("routestore: mr=%s date=%s attempt=%d failed: %v", k.MRID, k.Date, attempt+1, err)
	}
	return model.RouteData{}, lastErr
}

// applyBundle installs a fetched bundle unless a newer fetch already landed.
// Returns whether the bundle was applied.
func (s *Store) applyBundle(k Key, seq uint64, bundle model.RouteBundle, fromMirror bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(k)
	if fromMirror {
		// Mirror data only pre-fills a completely cold entry.
		if e.appliedSeq != 0 || e.have {
			return false
		}
	} else {
		if seq <= e.appliedSeq {
			metrics.StaleDiscards.Inc()
			return false
		}
		e.appliedSeq = seq
		e.loading = false
	}
	e.bundle = bundle
	e.have = len(bundle.Points) > 0
	e.empty = len(bundle.Points) == 0
	e.err = ""
	return true
}

// applyError records a failed cycle. The previous bundle (if any) stays
// exposed so the UI keeps its last known good view.
func (s *Store) applyError(k Key, seq uint64, err error, done chan struct{}) {
	defer close(done)
	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entry(k)
	if seq <= e.appliedSeq {
		metrics.StaleDiscards.Inc()
		return
	}
	e.appliedSeq = seq
	e.loading = false
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		e.err = apiErr.Message
	} else {
		e.err = err.Error()
	}
}

// transient reports whether an upstream failure is worth retrying: network
// errors and 5xx, but not 4xx rejections.
func transient(err error) bool {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == 0 || apiErr.Status >= 500
	}
	return true
}

func retryBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 6 {
		attempt = 6
	}
	d := 500 * time.Millisecond * time.Duration(1<<attempt)
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	return d
}
