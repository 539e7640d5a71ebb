// Package cache 定价建议的 Redis 缓存
package cache

import (
	"context"
	"time"

	"github.com/wyfcoding/smartstock/internal/pricing/domain"
	"github.com/wyfcoding/smartstock/pkg/cache"
)

// SuggestionCache 实现 domain.SuggestionCache
type SuggestionCache struct {
	rc *cache.RedisCache
}

// NewSuggestionCache 创建建议缓存
func NewSuggestionCache(rc *cache.RedisCache) *SuggestionCache {
	return &SuggestionCache{rc: rc}
}

func (c *SuggestionCache) Get(ctx context.Context, key string) (*domain.Suggestion, error) {
	var s domain.Suggestion
	ok, err := c.rc.GetJSON(ctx, key, &s)
	if err != nil || !ok {
		return nil, err
	}
	return &s, nil
}

func (c *SuggestionCache) Set(ctx context.Context, key string, s *domain.Suggestion, ttl time.Duration) error {
	return c.rc.SetJSON(ctx, key, s, ttl)
}

var _ domain.SuggestionCache = (*SuggestionCache)(nil)
