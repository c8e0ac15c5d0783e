package cache

import (
	"fmt"

	"github.com/wonny/marketlens/pkg/config"
	"github.com/wonny/marketlens/pkg/redis"
)

// redisPrefix namespaces cache keys in a shared Redis
const redisPrefix = "marketlens"

// NewStore builds the store selected by CACHE_BACKEND.
// rc may be nil unless the backend is redis.
func NewStore(cfg *config.Config, rc *redis.Client) (Store, error) {
	switch cfg.Cache.Backend {
	case "memory":
		return NewMemoryStore(), nil
	case "redis":
		if rc == nil || !rc.Enabled() {
			return nil, fmt.Errorf("redis cache backend requires an enabled redis client")
		}
		return NewRedisStore(redis.NewCache(rc, redisPrefix)), nil
	case "file", "":
		return NewFileStore(cfg.Cache.Dir)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}
