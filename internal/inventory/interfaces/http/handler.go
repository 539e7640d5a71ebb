// Package http 库存上下文的 HTTP 接口
package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/wyfcoding/smartstock/internal/inventory/application"
	"github.com/wyfcoding/smartstock/internal/inventory/domain"
	"github.com/wyfcoding/smartstock/pkg/middleware"
	"github.com/wyfcoding/smartstock/pkg/response"
)

// InventoryHandler 销售、商品、预警相关的 HTTP 处理器
type InventoryHandler struct {
	ledger   *application.SaleLedger
	commands *application.ProductCommandService
	queries  *application.InventoryQueryService
}

// NewInventoryHandler 创建 HTTP 处理器实例
func NewInventoryHandler(ledger *application.SaleLedger, commands *application.ProductCommandService, queries *application.InventoryQueryService) *InventoryHandler {
	return &InventoryHandler{ledger: ledger, commands: commands, queries: queries}
}

// RegisterRoutes 注册路由，router 已挂载认证中间件
func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	admin := middleware.RequireRole(middleware.RoleAdmin)

	sales := router.Group("/sales")
	{
		sales.POST("", h.SubmitSale) // 提交销售
		sales.GET("", h.ListSales)   // 最近销售
		sales.GET("/:id", h.GetSale) // 销售详情
	}

	products := router.Group("/products")
	{
		products.GET("", h.ListProducts)
		products.GET("/search", h.SearchProducts) // 收银台检索
		products.GET("/:id", h.GetProduct)
		products.POST("", h.CreateProduct)
		products.PUT("/:id", h.UpdateProduct)
		products.PUT("/:id/stock", h.UpdateStock)
		products.POST("/:id/deactivate", h.DeactivateProduct)
		products.DELETE("/:id", admin, h.DeleteProduct)
		products.GET("/:id/movements", h.ListMovements)
		products.GET("/:id/recommendations", h.Recommendations) // 常一起购买
	}

	router.GET("/alerts", h.ListAlerts)
	router.GET("/categories", h.ListCategories)
	router.POST("/inventory/optimize", admin, h.OptimizeMinLevels)
}

// SaleItemRequest 销售行，兼容 id 与 product_id 两种写法
type SaleItemRequest struct {
	ID        uint             `json:"id"`
	ProductID uint             `json:"product_id"`
	Quantity  int              `json:"quantity"`
	Price     *decimal.Decimal `json:"price"`
}

// SubmitSaleRequest 提交销售请求
type SubmitSaleRequest struct {
	Items       []SaleItemRequest `json:"items"`
	Total       *decimal.Decimal  `json:"total"`
	PaymentMode string            `json:"payment_mode" binding:"required"`
}

// SubmitSale 提交销售
func (h *InventoryHandler) SubmitSale(c *gin.Context) {
	var req SubmitSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, string(domain.KindValidation), err.Error(), false)
		return
	}
	items := make([]application.SaleLineInput, 0, len(req.Items))
	for i, it := range req.Items {
		id := it.ProductID
		if id == 0 {
			id = it.ID
		}
		if it.Price == nil {
			response.Fail(c, http.StatusBadRequest, string(domain.KindValidation),
				"item "+strconv.Itoa(i)+": price is required", false)
			return
		}
		items = append(items, application.SaleLineInput{ProductID: id, Quantity: it.Quantity, UnitPrice: *it.Price})
	}

	receipt, err := h.ledger.SubmitSale(c.Request.Context(), application.SubmitSaleCommand{
		ActorID:     middleware.ActorID(c),
		Items:       items,
		PaymentMode: req.PaymentMode,
		TotalAmount: req.Total,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, receipt)
}

// ListSales 最近 10 笔销售
func (h *InventoryHandler) ListSales(c *gin.Context) {
	sales, err := h.queries.ListRecentSales(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, sales)
}

// GetSale 销售详情
func (h *InventoryHandler) GetSale(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	sale, err := h.queries.GetSale(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, sale)
}

// ListProducts 商品列表，支持 q、category_id、low_stock、active_only、limit、offset
func (h *InventoryHandler) ListProducts(c *gin.Context) {
	f := domain.ProductFilter{
		Query:      c.Query("q"),
		LowStock:   c.Query("low_stock") == "true",
		ActiveOnly: c.Query("active_only") == "true",
	}
	if v := c.Query("category_id"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			response.Fail(c, http.StatusBadRequest, string(domain.KindValidation), "invalid category_id", false)
			return
		}
		cid := uint(id)
		f.CategoryID = &cid
	}
	f.Limit, _ = strconv.Atoi(c.Query("limit"))
	f.Offset, _ = strconv.Atoi(c.Query("offset"))

	products, err := h.queries.ListProducts(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, products)
}

// SearchProducts 按名称或 ID 检索在售且有库存的商品
func (h *InventoryHandler) SearchProducts(c *gin.Context) {
	products, err := h.queries.SearchProducts(c.Request.Context(), c.Query("q"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, products)
}

func (h *InventoryHandler) GetProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := h.queries.GetProduct(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, p)
}

// ProductRequest 新建或修改商品
type ProductRequest struct {
	Name          string          `json:"name" binding:"required"`
	CategoryID    *uint           `json:"category_id"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	StockQuantity int             `json:"stock_quantity"`
	MinStockLevel *int            `json:"min_stock_level"`
	Description   string          `json:"description"`
}

// CreateProduct 新建商品
func (h *InventoryHandler) CreateProduct(c *gin.Context) {
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, string(domain.KindValidation), err.Error(), false)
		return
	}
	p, err := h.commands.CreateProduct(c.Request.Context(), application.CreateProductCommand{
		ActorID:       middleware.ActorID(c),
		Name:          req.Name,
		CategoryID:    req.CategoryID,
		CostPrice:     req.CostPrice,
		SellingPrice:  req.SellingPrice,
		StockQuantity: req.StockQuantity,
		MinStockLevel: req.MinStockLevel,
		Description:   req.Description,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Created(c, p)
}

// UpdateProduct 修改商品资料，不修改库存；未提供阈值时保持原值
func (h *InventoryHandler) UpdateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req ProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, string(domain.KindValidation), err.Error(), false)
		return
	}
	p, err := h.commands.UpdateProduct(c.Request.Context(), application.UpdateProductCommand{
		ActorID:       middleware.ActorID(c),
		ProductID:     id,
		Name:          req.Name,
		CategoryID:    req.CategoryID,
		CostPrice:     req.CostPrice,
		SellingPrice:  req.SellingPrice,
		MinStockLevel: req.MinStockLevel,
		Description:   req.Description,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, p)
}

// UpdateStockRequest 设置库存
type UpdateStockRequest struct {
	Quantity *int   `json:"quantity" binding:"required"`
	Reason   string `json:"reason"`
}

// UpdateStock 直接设置库存数量
func (h *InventoryHandler) UpdateStock(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req UpdateStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, string(domain.KindValidation), err.Error(), false)
		return
	}
	qty, err := h.commands.UpdateStock(c.Request.Context(), application.UpdateStockCommand{
		ActorID:   middleware.ActorID(c),
		ProductID: id,
		Quantity:  *req.Quantity,
		Reason:    req.Reason,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"product_id": id, "stock_quantity": qty})
}

func (h *InventoryHandler) DeactivateProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.commands.DeactivateProduct(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"product_id": id, "active": false})
}

// DeleteProduct 删除商品，有销售记录时返回 409
func (h *InventoryHandler) DeleteProduct(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.commands.DeleteProduct(c.Request.Context(), id, middleware.ActorID(c)); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"product_id": id, "deleted": true})
}

func (h *InventoryHandler) ListMovements(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	mvs, err := h.queries.ListStockMovements(c.Request.Context(), id, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, mvs)
}

// Recommendations 常与该商品一起购买且有货的商品，没有时 data 为空
func (h *InventoryHandler) Recommendations(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	p, err := h.queries.FrequentlyBoughtWith(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"product_id": id, "frequently_bought_with": p})
}

func (h *InventoryHandler) ListAlerts(c *gin.Context) {
	alerts, err := h.queries.ListUnresolvedAlerts(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, alerts)
}

func (h *InventoryHandler) ListCategories(c *gin.Context) {
	cats, err := h.queries.ListCategories(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, cats)
}

// OptimizeMinLevels 按近 30 天销量重算阈值
func (h *InventoryHandler) OptimizeMinLevels(c *gin.Context) {
	changes, err := h.commands.OptimizeMinLevels(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, gin.H{"updated": len(changes), "changes": changes})
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		response.Fail(c, http.StatusBadRequest, string(domain.KindValidation), "invalid id", false)
		return 0, false
	}
	return uint(id), true
}
