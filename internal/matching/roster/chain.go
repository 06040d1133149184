package roster

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"osprey/internal/config"
	"osprey/internal/constants"
	"osprey/internal/logger"
	pkgerrors "osprey/pkg/errors"
)

// BuildProvider assembles the provider chain from config: a database or
// API base, the breaker around the API provider when enabled, and the
// cache in front when enabled. The second return value is the cache
// layer, nil when caching is off, so the caller can wire roster_synced
// invalidation to it.
func BuildProvider(
	cfg config.RosterConfig,
	cbCfg config.CircuitBreakerConfig,
	db *sql.DB,
	redisClient *redis.Client,
	log logger.Logger,
) (Provider, *CachedProvider, error) {
	var base Provider

	switch cfg.Provider {
	case constants.ProviderNameAPI:
		if cfg.API.URL == "" {
			return nil, nil, pkgerrors.ErrValidation.WithDetail("message", "roster.api.url is required for the api provider")
		}
		base = WrapWithCircuitBreaker(NewAPIProvider(cfg.API, log), cbCfg)

	case constants.ProviderNameDatabase, "":
		if db == nil {
			return nil, nil, pkgerrors.ErrValidation.WithDetail("message", "database connection is required for the database roster provider")
		}
		base = NewDatabaseProvider(db, log)

	default:
		return nil, nil, pkgerrors.ErrValidation.WithDetail(
			"message", fmt.Sprintf("unknown roster provider %q", cfg.Provider),
		)
	}

	if !cfg.CacheEnabled || redisClient == nil {
		return base, nil, nil
	}

	cached := NewCachedProvider(
		base,
		NewCacheStore(redisClient),
		time.Duration(cfg.CacheTTLSeconds)*time.Second,
		log,
	)
	return cached, cached, nil
}
