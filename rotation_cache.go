package goSession

import (
	"context"

	"github.com/MrEthical07/goSession/cache"
	"github.com/MrEthical07/goSession/internal"
	"github.com/MrEthical07/goSession/internal/stores"
)

// localRotationCache adapts a process-local [cache.TimeBounded] to the
// [RotationCache] contract. A rotation performed by one instance is
// invisible to other instances; use the Redis variant when scaling out.
type localRotationCache struct {
	c *cache.TimeBounded[string, Identity]
}

func (l localRotationCache) Put(_ context.Context, series, tokenValue string, identity Identity) error {
	l.c.Put(series+"|"+internal.HashTokenValue(tokenValue), identity)
	return nil
}

func (l localRotationCache) Get(_ context.Context, series, tokenValue string) (Identity, bool, error) {
	identity, ok := l.c.Get(series + "|" + internal.HashTokenValue(tokenValue))
	return identity, ok, nil
}

// redisRotationCache shares the rotation-grace window across engine
// instances through [stores.RotationCache].
type redisRotationCache struct {
	s *stores.RotationCache
}

func newRedisRotationCache(s *stores.RotationCache) RotationCache {
	return redisRotationCache{s: s}
}

func (r redisRotationCache) Put(ctx context.Context, series, tokenValue string, identity Identity) error {
	return r.s.Put(ctx, series, internal.HashTokenValue(tokenValue), stores.RotationRecord{
		UserID: identity.UserID,
		Login:  identity.Login,
	})
}

func (r redisRotationCache) Get(ctx context.Context, series, tokenValue string) (Identity, bool, error) {
	record, ok, err := r.s.Get(ctx, series, internal.HashTokenValue(tokenValue))
	if err != nil || !ok {
		return Identity{}, false, err
	}
	return Identity{UserID: record.UserID, Login: record.Login}, true, nil
}
