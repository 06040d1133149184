package roster

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"osprey/internal/constants"
	"osprey/internal/logger"
	pkgerrors "osprey/pkg/errors"
	"osprey/pkg/metrics"
)

// CacheStore is the key-value surface the roster cache needs. Get reports
// a miss with found=false rather than an error.
type CacheStore interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

type RedisCacheStore struct {
	client *redis.Client
}

func NewCacheStore(client *redis.Client) CacheStore {
	return &RedisCacheStore{client: client}
}

func (s *RedisCacheStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (s *RedisCacheStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisCacheStore) Del(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// CachedProvider puts a per-user roster cache in front of another
// provider. Cache trouble never fails a fetch; the inner provider is the
// source of truth and the cache is repopulated on the way out.
type CachedProvider struct {
	inner  Provider
	store  CacheStore
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedProvider(inner Provider, store CacheStore, ttl time.Duration, log logger.Logger) *CachedProvider {
	if ttl <= 0 {
		ttl = constants.DefaultTTLSeconds * time.Second
	}

	return &CachedProvider{
		inner:  inner,
		store:  store,
		ttl:    ttl,
		logger: log,
	}
}

func (p *CachedProvider) Name() string {
	return p.inner.Name()
}

func (p *CachedProvider) Fetch(ctx context.Context, userID string) ([]Contact, error) {
	key := cacheKey(userID)

	val, found, err := p.store.Get(ctx, key)
	if err != nil {
		p.logger.Warnw("Roster cache read failed", "error", err, "user_id", userID)
	} else if found {
		var contacts []Contact
		if err := json.Unmarshal(val, &contacts); err == nil {
			metrics.RosterCacheTotal.WithLabelValues("hit").Inc()
			return contacts, nil
		}
		// Unreadable entry: drop it and fall through to the inner provider
		p.logger.Warnw("Dropping unreadable cached roster", "user_id", userID)
		_ = p.store.Del(ctx, key)
	}
	metrics.RosterCacheTotal.WithLabelValues("miss").Inc()

	contacts, err := p.inner.Fetch(ctx, userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(contacts); err == nil {
		if err := p.store.Set(ctx, key, data, p.ttl); err != nil {
			p.logger.Warnw("Failed to cache roster", "error", err, "user_id", userID)
		}
	}

	return contacts, nil
}

// Invalidate drops the cached roster for one user. Wired to roster_synced
// config events so freshly synced contacts are visible on the next match.
func (p *CachedProvider) Invalidate(ctx context.Context, userID string) error {
	if err := p.store.Del(ctx, cacheKey(userID)); err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternal)
	}
	metrics.RosterCacheTotal.WithLabelValues("invalidated").Inc()
	return nil
}

func cacheKey(userID string) string {
	return constants.CacheKeyPrefixRoster + userID
}
