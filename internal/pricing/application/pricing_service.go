// Package application 定价建议用例
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wyfcoding/smartstock/internal/pricing/domain"
	"github.com/wyfcoding/smartstock/pkg/logger"
	"github.com/wyfcoding/smartstock/pkg/metrics"
)

// PricingService 读取商品快照并向顾问请求定价建议，只读，不修改库存与销售数据
type PricingService struct {
	products domain.ProductSource
	advisor  domain.Advisor
	cache    domain.SuggestionCache
	cacheTTL time.Duration
	metrics  *metrics.Metrics
}

// NewPricingService 创建 PricingService；advisor 为空表示功能未启用，cache 可为空
func NewPricingService(products domain.ProductSource, advisor domain.Advisor, cache domain.SuggestionCache, cacheTTL time.Duration, m *metrics.Metrics) *PricingService {
	return &PricingService{products: products, advisor: advisor, cache: cache, cacheTTL: cacheTTL, metrics: m}
}

// SuggestForProduct 返回商品的定价建议；顾问的任何失败统一返回 ErrAdvisorUnavailable
func (s *PricingService) SuggestForProduct(ctx context.Context, productID uint) (*domain.Suggestion, error) {
	snap, err := s.products.Snapshot(ctx, productID)
	if err != nil {
		return nil, err
	}
	if s.advisor == nil {
		s.metrics.RecordAdvisorRequest("disabled")
		return nil, fmt.Errorf("%w: advisor is disabled", domain.ErrAdvisorUnavailable)
	}

	key := snap.CacheKey()
	if s.cache != nil && s.cacheTTL > 0 {
		cached, err := s.cache.Get(ctx, key)
		if err != nil {
			logger.Warn(ctx, "Suggestion cache read failed", "product_id", productID, "error", err)
		} else if cached != nil {
			s.metrics.RecordAdvisorRequest("cache_hit")
			cached.Cached = true
			return cached, nil
		}
	}

	start := time.Now()
	sug, err := s.advisor.SuggestPrice(ctx, *snap)
	if err == nil {
		err = sug.Normalize(snap.SellingPrice)
	}
	if err != nil {
		s.metrics.RecordAdvisorRequest("error")
		logger.Error(ctx, "Pricing advisor failed", "product_id", productID, "error", err)
		if errors.Is(err, domain.ErrAdvisorUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrAdvisorUnavailable, err)
	}
	sug.ProductID = productID
	s.metrics.RecordAdvisorRequest("ok")
	logger.Info(ctx, "Pricing suggestion generated",
		"product_id", productID,
		"recommendation", sug.Recommendation,
		"new_price", sug.NewPrice.StringFixed(2),
		"elapsed", time.Since(start),
	)

	if s.cache != nil && s.cacheTTL > 0 {
		if err := s.cache.Set(ctx, key, sug, s.cacheTTL); err != nil {
			logger.Warn(ctx, "Suggestion cache write failed", "product_id", productID, "error", err)
		}
	}
	return sug, nil
}
