// Package llm 基于 OpenAI 兼容 chat completions 接口（Groq）的定价顾问
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/wyfcoding/smartstock/internal/pricing/domain"
	"github.com/wyfcoding/smartstock/pkg/logger"
)

const systemPrompt = "You are a retail inventory optimizer. Your goal is to help clear slow-moving stock " +
	"through discounts or protect margins for low-stock items. Always respond with ONLY a valid JSON object."

const userPromptTemplate = `Analyze this product data:
Name: %s
Cost: %s
Current Price: %s
Total Sold: %d
Stock Level: %d

STRATEGY RULES:
1. If Stock is HIGH (e.g., > 10) and Sold is LOW (e.g., < 2), you MUST suggest 'Decrease' (a discount) to clear inventory.
2. If Selling Price is equal to or less than Cost, suggest 'Increase' to ensure a 20%% profit margin.
3. If Stock is low (< 3) but it's selling, suggest 'Keep' or 'Increase' due to high demand.
4. Keep all price changes realistic (within 5-20%% of the current price).

Return JSON format:
{"recommendation": "Increase/Decrease/Keep", "new_price": 0.0, "reason": "text"}`

// Config 顾问客户端配置
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
	// 连续失败多少次后熔断
	BreakerFailures int
	// 熔断打开时长
	BreakerOpen time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	ResponseFormat map[string]string `json:"response_format"`
	Temperature    float64           `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type advice struct {
	Recommendation string          `json:"recommendation"`
	NewPrice       decimal.Decimal `json:"new_price"`
	Reason         string          `json:"reason"`
}

// GroqAdvisor 实现 domain.Advisor
type GroqAdvisor struct {
	client  *resty.Client
	breaker *gobreaker.CircuitBreaker
	model   string
}

// NewGroqAdvisor 创建顾问客户端
func NewGroqAdvisor(cfg Config) *GroqAdvisor {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.BreakerFailures <= 0 {
		cfg.BreakerFailures = 3
	}
	if cfg.BreakerOpen <= 0 {
		cfg.BreakerOpen = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetAuthToken(cfg.APIKey).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")

	failures := uint32(cfg.BreakerFailures)
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "pricing-advisor",
		MaxRequests: 1,
		Timeout:     cfg.BreakerOpen,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn(context.Background(), "Circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
		},
	})
	return &GroqAdvisor{client: client, breaker: breaker, model: cfg.Model}
}

// SuggestPrice 请求一次定价建议；熔断打开时直接返回 ErrAdvisorUnavailable
func (a *GroqAdvisor) SuggestPrice(ctx context.Context, snap domain.ProductSnapshot) (*domain.Suggestion, error) {
	out, err := a.breaker.Execute(func() (interface{}, error) {
		return a.call(ctx, snap)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", domain.ErrAdvisorUnavailable, err)
		}
		return nil, err
	}
	return out.(*domain.Suggestion), nil
}

func (a *GroqAdvisor) call(ctx context.Context, snap domain.ProductSnapshot) (*domain.Suggestion, error) {
	req := chatRequest{
		Model: a.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf(userPromptTemplate,
				snap.Name, snap.CostPrice.StringFixed(2), snap.SellingPrice.StringFixed(2), snap.UnitsSold, snap.StockQuantity)},
		},
		ResponseFormat: map[string]string{"type": "json_object"},
		Temperature:    0.2,
	}

	var body chatResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&body).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("chat completion request: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("chat completion returned %d: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}
	if len(body.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	var adv advice
	if err := json.Unmarshal([]byte(body.Choices[0].Message.Content), &adv); err != nil {
		return nil, fmt.Errorf("malformed advisor reply: %w", err)
	}
	rec, err := domain.ParseRecommendation(adv.Recommendation)
	if err != nil {
		return nil, err
	}
	return &domain.Suggestion{
		Recommendation: rec,
		NewPrice:       adv.NewPrice,
		Reason:         strings.TrimSpace(adv.Reason),
		Model:          a.model,
		GeneratedAt:    time.Now(),
	}, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
