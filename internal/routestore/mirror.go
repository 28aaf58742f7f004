package routestore

import (
	"context"
	"encoding/json"
	"time"

	redis "github.com/redis/go-redis/v9"

	"mrtrack/internal/model"
)

// Mirror shares successful bundles between frontend replicas through Redis.
// It is strictly an optimization: every operation is best-effort and a nil
// Mirror disables the feature.
type Mirror struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewMirror(redisURL string, ttl time.Duration) (*Mirror, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Mirror{rdb: redis.NewClient(opt), ttl: ttl}, nil
}

func (m *Mirror) key(k Key) string { return "mrtrack:route:" + k.MRID + ":" + k.Date }

func (m *Mirror) Load(ctx context.Context, k Key) (model.RouteBundle, bool) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	raw, err := m.rdb.Get(ctx, m.key(k)).Bytes()
	if err != nil {
		return model.RouteBundle{}, false
	}
	var bundle model.RouteBundle
	if err := json.Unmarshal(raw, &bundle); err != nil {
		return model.RouteBundle{}, false
	}
	return bundle, true
}

func (m *Mirror) Save(ctx context.Context, k Key, bundle model.RouteBundle) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	data, err := json.Marshal(bundle)
	if err != nil {
		return
	}
	_ = m.rdb.Set(ctx, m.key(k), data, m.ttl).Err()
}
