// Package mysql 提供库存上下文仓储接口的 GORM 实现（MySQL 为主，兼容 PostgreSQL 与 SQLite）
package mysql

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/smartstock/internal/inventory/domain"
)

// CategoryModel 分类表
type CategoryModel struct {
	ID          uint      `gorm:"primaryKey"`
	Name        string    `gorm:"column:name;type:varchar(50);uniqueIndex;not null;comment:分类名称"`
	Description string    `gorm:"column:description;type:varchar(255);comment:描述"`
	CreatedAt   time.Time `gorm:"column:created_at"`
}

func (CategoryModel) TableName() string { return "categories" }

// ProductModel 商品表
type ProductModel struct {
	ID            uint            `gorm:"primaryKey"`
	Name          string          `gorm:"column:name;type:varchar(100);index;not null;comment:商品名称"`
	CategoryID    *uint           `gorm:"column:category_id;index;comment:分类ID"`
	CostPrice     decimal.Decimal `gorm:"column:cost_price;type:decimal(12,2);not null;comment:进价"`
	SellingPrice  decimal.Decimal `gorm:"column:selling_price;type:decimal(12,2);not null;comment:售价"`
	StockQuantity int             `gorm:"column:stock_quantity;not null;comment:当前库存，可为负"`
	MinStockLevel int             `gorm:"column:min_stock_level;not null;comment:预警阈值"`
	Description   string          `gorm:"column:description;type:text;comment:描述"`
	Active        bool            `gorm:"column:active;not null;comment:是否在售"`
	CreatedAt     time.Time       `gorm:"column:created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at"`
}

func (ProductModel) TableName() string { return "products" }

// productRow 带分类名的商品查询结果
type productRow struct {
	ProductModel
	CategoryName string `gorm:"column:category_name"`
}

// SaleModel 销售头表，创建后不再修改
type SaleModel struct {
	ID          uint            `gorm:"primaryKey"`
	InvoiceNo   string          `gorm:"column:invoice_no;type:varchar(32);uniqueIndex;not null;comment:发票号"`
	TotalAmount decimal.Decimal `gorm:"column:total_amount;type:decimal(12,2);not null;comment:合计金额"`
	PaymentMode string          `gorm:"column:payment_mode;type:varchar(20);not null;comment:支付方式"`
	ActorID     string          `gorm:"column:actor_id;type:varchar(64);index;not null;comment:收银员"`
	CreatedAt   time.Time       `gorm:"column:created_at;index"`
}

func (SaleModel) TableName() string { return "sales" }

// SaleItemModel 销售行表，单价为成交时快照
type SaleItemModel struct {
	ID        uint            `gorm:"primaryKey"`
	SaleID    uint            `gorm:"column:sale_id;index;not null;comment:销售ID"`
	ProductID uint            `gorm:"column:product_id;index;not null;comment:商品ID"`
	Quantity  int             `gorm:"column:quantity;not null;comment:数量"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:decimal(12,2);not null;comment:成交单价"`
	Subtotal  decimal.Decimal `gorm:"column:subtotal;type:decimal(12,2);not null;comment:小计"`
}

func (SaleItemModel) TableName() string { return "sale_items" }

// AlertModel 预警表
// OpenKey 在预警未解除时等于商品 ID，解除后置空；唯一索引保证每个商品至多一条未解除预警
type AlertModel struct {
	ID         uint       `gorm:"primaryKey"`
	ProductID  uint       `gorm:"column:product_id;index;not null;comment:商品ID"`
	AlertType  string     `gorm:"column:alert_type;type:varchar(20);not null;comment:预警类型"`
	Message    string     `gorm:"column:message;type:varchar(255);not null;comment:预警文案"`
	IsResolved bool       `gorm:"column:is_resolved;not null;index;comment:是否已解除"`
	OpenKey    *uint      `gorm:"column:open_key;uniqueIndex:uk_alerts_open_key;comment:未解除预警唯一键"`
	CreatedAt  time.Time  `gorm:"column:created_at"`
	ResolvedAt *time.Time `gorm:"column:resolved_at"`
}

func (AlertModel) TableName() string { return "alerts" }

// StockMovementModel 库存流水表
type StockMovementModel struct {
	ID        uint      `gorm:"primaryKey"`
	ProductID uint      `gorm:"column:product_id;index;not null;comment:商品ID"`
	Type      string    `gorm:"column:type;type:varchar(20);not null;comment:变动类型"`
	Delta     int       `gorm:"column:delta;not null;comment:变动量"`
	Before    int       `gorm:"column:before_qty;not null;comment:变动前"`
	After     int       `gorm:"column:after_qty;not null;comment:变动后"`
	Reason    string    `gorm:"column:reason;type:varchar(255);comment:原因"`
	Reference string    `gorm:"column:reference;type:varchar(64);comment:关联单据"`
	ActorID   string    `gorm:"column:actor_id;type:varchar(64);not null;comment:操作人"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
}

func (StockMovementModel) TableName() string { return "stock_movements" }

// InvoiceSequenceModel 发票日序号
type InvoiceSequenceModel struct {
	Day string `gorm:"column:day;type:varchar(8);primaryKey;comment:日期 YYYYMMDD"`
	Seq int    `gorm:"column:seq;not null;comment:当日已用序号"`
}

func (InvoiceSequenceModel) TableName() string { return "invoice_sequences" }

func toProductModel(p *domain.Product) *ProductModel {
	return &ProductModel{
		ID:            p.ID,
		Name:          p.Name,
		CategoryID:    p.CategoryID,
		CostPrice:     p.CostPrice,
		SellingPrice:  p.SellingPrice,
		StockQuantity: p.StockQuantity,
		MinStockLevel: p.MinStockLevel,
		Description:   p.Description,
		Active:        p.Active,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func toProduct(m *ProductModel, categoryName string) *domain.Product {
	return &domain.Product{
		ID:            m.ID,
		Name:          m.Name,
		CategoryID:    m.CategoryID,
		CategoryName:  categoryName,
		CostPrice:     m.CostPrice,
		SellingPrice:  m.SellingPrice,
		StockQuantity: m.StockQuantity,
		MinStockLevel: m.MinStockLevel,
		Description:   m.Description,
		Active:        m.Active,
		CreatedAt:     m.CreatedAt,
		UpdatedAt:     m.UpdatedAt,
	}
}

func toCategory(m *CategoryModel) *domain.Category {
	return &domain.Category{ID: m.ID, Name: m.Name, Description: m.Description, CreatedAt: m.CreatedAt}
}

func toAlert(m *AlertModel) *domain.Alert {
	return &domain.Alert{
		ID:         m.ID,
		ProductID:  m.ProductID,
		Type:       domain.AlertType(m.AlertType),
		Message:    m.Message,
		Resolved:   m.IsResolved,
		CreatedAt:  m.CreatedAt,
		ResolvedAt: m.ResolvedAt,
	}
}

func toMovement(m *StockMovementModel) *domain.StockMovement {
	return &domain.StockMovement{
		ID:        m.ID,
		ProductID: m.ProductID,
		Type:      domain.MovementType(m.Type),
		Delta:     m.Delta,
		Before:    m.Before,
		After:     m.After,
		Reason:    m.Reason,
		Reference: m.Reference,
		ActorID:   m.ActorID,
		CreatedAt: m.CreatedAt,
	}
}
