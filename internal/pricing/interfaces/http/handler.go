// Package http 定价建议的 HTTP 接口
package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/wyfcoding/smartstock/internal/pricing/application"
	"github.com/wyfcoding/smartstock/internal/pricing/domain"
	"github.com/wyfcoding/smartstock/pkg/logger"
	"github.com/wyfcoding/smartstock/pkg/middleware"
	"github.com/wyfcoding/smartstock/pkg/ratelimit"
	"github.com/wyfcoding/smartstock/pkg/response"
)

// PricingHandler 定价建议 HTTP 处理器
type PricingHandler struct {
	svc     *application.PricingService
	limiter ratelimit.Limiter
	limit   ratelimit.Limit
}

// NewPricingHandler 创建处理器，limiter 为空时不限流
func NewPricingHandler(svc *application.PricingService, limiter ratelimit.Limiter, perMinute int) *PricingHandler {
	return &PricingHandler{svc: svc, limiter: limiter, limit: ratelimit.PerMinute(perMinute)}
}

// RegisterRoutes 注册路由
func (h *PricingHandler) RegisterRoutes(router *gin.RouterGroup) {
	api := router.Group("/pricing")
	{
		api.GET("/products/:id/suggestion", middleware.RateLimitMiddleware(h.limiter, h.limit), h.GetSuggestion)
	}
}

// GetSuggestion 获取商品的定价建议
func (h *PricingHandler) GetSuggestion(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.Fail(c, http.StatusBadRequest, "ValidationError", "invalid id", false)
		return
	}

	sug, err := h.svc.SuggestForProduct(c.Request.Context(), uint(id))
	switch {
	case err == nil:
		response.Success(c, sug)
	case errors.Is(err, domain.ErrProductNotFound):
		response.Fail(c, http.StatusNotFound, "ProductNotFound", "product "+c.Param("id")+" not found", false)
	case errors.Is(err, domain.ErrAdvisorUnavailable):
		response.Fail(c, http.StatusBadGateway, "AdvisorUnavailable", "pricing advisor is unavailable", true)
	default:
		logger.Error(c.Request.Context(), "Failed to get pricing suggestion", "product_id", id, "error", err)
		response.Fail(c, http.StatusInternalServerError, "InternalError", "internal server error", false)
	}
}
