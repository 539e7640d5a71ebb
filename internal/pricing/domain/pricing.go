// Package domain 定价建议上下文：商品快照、建议结果与顾问接口
package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrAdvisorUnavailable 顾问调用失败、超时、熔断或返回无法解析的结果
	ErrAdvisorUnavailable = errors.New("pricing advisor unavailable")
	ErrProductNotFound    = errors.New("product not found")
)

// Recommendation 调价方向
type Recommendation string

const (
	RecommendIncrease Recommendation = "Increase"
	RecommendDecrease Recommendation = "Decrease"
	RecommendKeep     Recommendation = "Keep"
)

// 单次调价幅度上限
var maxPriceChange = decimal.NewFromFloat(0.20)

// ProductSnapshot 生成建议所需的商品状态
type ProductSnapshot struct {
	ProductID     uint
	Name          string
	CostPrice     decimal.Decimal
	SellingPrice  decimal.Decimal
	StockQuantity int
	UnitsSold     int
}

// CacheKey 商品状态变化后缓存自然失效
func (s ProductSnapshot) CacheKey() string {
	return fmt.Sprintf("pricing:suggestion:%d:%d:%d:%s:%s", s.ProductID, s.StockQuantity, s.UnitsSold,
		s.CostPrice.StringFixed(2), s.SellingPrice.StringFixed(2))
}

// Suggestion 定价建议，仅供参考，不修改任何商品数据
type Suggestion struct {
	ProductID      uint            `json:"product_id"`
	Recommendation Recommendation  `json:"recommendation"`
	CurrentPrice   decimal.Decimal `json:"current_price"`
	NewPrice       decimal.Decimal `json:"new_price"`
	Reason         string          `json:"reason"`
	Model          string          `json:"model,omitempty"`
	Cached         bool            `json:"cached"`
	GeneratedAt    time.Time       `json:"generated_at"`
}

// ParseRecommendation 忽略大小写与空白
func ParseRecommendation(s string) (Recommendation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "increase":
		return RecommendIncrease, nil
	case "decrease":
		return RecommendDecrease, nil
	case "keep":
		return RecommendKeep, nil
	}
	return "", fmt.Errorf("unknown recommendation %q", s)
}

// Normalize 校验顾问输出，并把新价格限制在当前价 ±20% 内、与建议方向一致
func (s *Suggestion) Normalize(current decimal.Decimal) error {
	s.CurrentPrice = current
	switch {
	case s.NewPrice.IsNegative():
		return fmt.Errorf("negative new price %s", s.NewPrice)
	case s.Recommendation == RecommendKeep:
		s.NewPrice = current
		return nil
	case s.NewPrice.IsZero():
		return fmt.Errorf("%s without a new price", s.Recommendation)
	case current.IsZero():
		s.NewPrice = s.NewPrice.Round(2)
		return nil
	}

	lo := current.Mul(decimal.NewFromInt(1).Sub(maxPriceChange))
	hi := current.Mul(decimal.NewFromInt(1).Add(maxPriceChange))
	p := decimal.Max(lo, decimal.Min(hi, s.NewPrice))
	switch {
	case s.Recommendation == RecommendIncrease && p.LessThan(current):
		p = current
	case s.Recommendation == RecommendDecrease && p.GreaterThan(current):
		p = current
	}
	s.NewPrice = p.Round(2)
	return nil
}

// Advisor 外部定价顾问
type Advisor interface {
	SuggestPrice(ctx context.Context, snapshot ProductSnapshot) (*Suggestion, error)
}

// SuggestionCache 建议缓存，未命中返回 (nil, nil)
type SuggestionCache interface {
	Get(ctx context.Context, key string) (*Suggestion, error)
	Set(ctx context.Context, key string, s *Suggestion, ttl time.Duration) error
}

// ProductSource 读取商品快照，商品不存在时返回 ErrProductNotFound
type ProductSource interface {
	Snapshot(ctx context.Context, productID uint) (*ProductSnapshot, error)
}
