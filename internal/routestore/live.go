package routestore

import (
	"sync"

	"mrtrack/internal/model"
)

// LiveCache holds the latest known position per MR, fed by the 15s live
// poller. Readers never block on the upstream.
type LiveCache struct {
	mu sync.Mutex
	m  map[string]model.LivePosition
}

func NewLiveCache() *LiveCache { return &LiveCache{m: map[string]model.LivePosition{}} }

func (c *LiveCache) Upsert(pos model.LivePosition) {
	if pos.MRID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[pos.MRID] = pos
}

func (c *LiveCache) Get(mrID string) (model.LivePosition, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pos, ok := c.m[mrID]
	return pos, ok
}
