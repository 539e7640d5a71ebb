// Package domain 包含库存与销售上下文的领域模型、领域规则和仓储接口
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// UncategorizedName 系统保留分类，删除分类时商品归入此分类
const UncategorizedName = "Uncategorized"

// Category 商品分类
type Category struct {
	ID          uint      `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Product 可销售的库存单位
// StockQuantity 允许为负，负数表示超卖，通过低库存预警暴露
type Product struct {
	ID            uint            `json:"id"`
	Name          string          `json:"name"`
	CategoryID    *uint           `json:"category_id,omitempty"`
	CategoryName  string          `json:"category_name,omitempty"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	StockQuantity int             `json:"stock_quantity"`
	MinStockLevel int             `json:"min_stock_level"`
	Description   string          `json:"description,omitempty"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// IsLowStock 库存是否处于或低于预警线
func (p *Product) IsLowStock() bool {
	return p.StockQuantity <= p.MinStockLevel
}

// Validate 校验商品可写字段
func (p *Product) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	switch {
	case p.Name == "":
		return NewError(KindValidation, "product name is required", nil)
	case len(p.Name) > 100:
		return NewError(KindValidation, "product name must be at most 100 characters", nil)
	case p.CostPrice.IsNegative():
		return NewError(KindValidation, "cost price must not be negative", nil)
	case p.SellingPrice.IsNegative():
		return NewError(KindValidation, "selling price must not be negative", nil)
	case !IsCents(p.CostPrice):
		return NewError(KindValidation, "cost price must have at most two decimal places", nil)
	case !IsCents(p.SellingPrice):
		return NewError(KindValidation, "selling price must have at most two decimal places", nil)
	case p.MinStockLevel < 0:
		return NewError(KindValidation, "min stock level must not be negative", nil)
	}
	return nil
}

// ProductFilter 商品查询条件
type ProductFilter struct {
	// 名称模糊匹配或按 ID 精确匹配
	Query       string
	CategoryID  *uint
	ActiveOnly  bool
	InStockOnly bool
	LowStock    bool
	Limit       int
	Offset      int
}

// ProductSalesStats 商品销售汇总，供定价建议使用
type ProductSalesStats struct {
	UnitsSold int
	Revenue   decimal.Decimal
}

// IsCents 金额最多两位小数，与 decimal(12,2) 列一致
func IsCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
