package assets

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/openanchor/gw-anchor-dispatcher/internal/logger"
)

// CachedAssetService is a Redis read-through cache in front of another
// AssetService. Cache failures fall back to the wrapped service.
type CachedAssetService struct {
	next AssetService
	rdb  *redis.Client
	ttl  time.Duration
}

// NewCachedAssetService wraps next with a Redis cache using the given TTL.
func NewCachedAssetService(next AssetService, rdb *redis.Client, ttl time.Duration) *CachedAssetService {
	return &CachedAssetService{next: next, rdb: rdb, ttl: ttl}
}

func cacheKey(code string) string {
	return fmt.Sprintf("assets:%s", AssetCode(code))
}

// GetAsset resolves from Redis first, falling back to the wrapped service
// and populating the cache on a miss.
func (s *CachedAssetService) GetAsset(ctx context.Context, code string) (*Asset, error) {
	key := cacheKey(code)

	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var a Asset
		if err := json.Unmarshal(data, &a); err == nil {
			return &a, nil
		}
		logger.Log.Warnw("corrupt asset cache entry, refetching", "key", key)
	} else if err != redis.Nil {
		logger.Log.Warnw("asset cache read failed", "key", key, "error", err)
	}

	a, err := s.next.GetAsset(ctx, code)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(a); err == nil {
		if err := s.rdb.Set(ctx, key, data, s.ttl).Err(); err != nil {
			logger.Log.Warnw("asset cache write failed", "key", key, "error", err)
		}
	}

	return a, nil
}
