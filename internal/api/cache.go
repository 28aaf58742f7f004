package api

import (
	"context"
	"errors"
	"time"
)

var errCacheStopped = errors.New("response cache stopped")

// responseCache keeps fleet-wide API responses (analytics, activity) in
// memory so every dashboard tab polling at once does not multiply upstream
// calls. A single goroutine owns the map; lookups and fills travel over
// channels, so no mutex is needed and stale entries are trimmed lazily on
// access.
type responseCache struct {
	ttl      time.Duration
	requests chan cacheRequest
	quit     chan struct{}
	now      func() time.Time
}

type cacheRequest struct {
	ctx    context.Context
	key    string
	loader func(context.Context) ([]byte, error)
	reply  chan cacheReply
}

type cacheReply struct {
	data []byte
	err  error
}

type cacheEntry struct {
	data    []byte
	expires time.Time
}

// newResponseCache starts the owning goroutine. A zero ttl disables caching
// entirely and returns nil; callers treat a nil cache as pass-through.
func newResponseCache(ttl time.Duration) *responseCache {
	if ttl <= 0 {
		return nil
	}
	c := &responseCache{
		ttl:      ttl,
		requests: make(chan cacheRequest),
		quit:     make(chan struct{}),
		now:      time.Now,
	}
	go c.run()
	return c
}

func (c *responseCache) run() {
	entries := map[string]cacheEntry{}
	for {
		select {
		case <-c.quit:
			return
		case req := <-c.requests:
			if e, ok := entries[req.key]; ok && c.now().Before(e.expires) {
				req.reply <- cacheReply{data: e.data}
				continue
			}
			data, err := req.loader(req.ctx)
			if err == nil {
				entries[req.key] = cacheEntry{data: data, expires: c.now().Add(c.ttl)}
			}
			req.reply <- cacheReply{data: data, err: err}
		}
	}
}

// GetOrFill returns the cached bytes for key, filling via loader on miss.
// Nil receivers pass straight through to the loader.
func (c *responseCache) GetOrFill(ctx context.Context, key string, loader func(context.Context) ([]byte, error)) ([]byte, error) {
	if c == nil {
		return loader(ctx)
	}
	reply := make(chan cacheReply, 1)
	select {
	case c.requests <- cacheRequest{ctx: ctx, key: key, loader: loader, reply: reply}:
	case <-c.quit:
		return nil, errCacheStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case r := <-reply:
		return r.data, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *responseCache) Stop() {
	if c != nil {
		close(c.quit)
	}
}
