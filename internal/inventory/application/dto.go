package application

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/smartstock/internal/inventory/domain"
)

// SaleLineInput 销售行输入
type SaleLineInput struct {
	ProductID uint
	Quantity  int
	UnitPrice decimal.Decimal
}

// SubmitSaleCommand 提交销售命令
type SubmitSaleCommand struct {
	ActorID     string
	Items       []SaleLineInput
	PaymentMode string
	// 调用方计算的合计，可为空
	TotalAmount *decimal.Decimal
}

// SaleReceipt 销售回执
type SaleReceipt struct {
	SaleID      uint              `json:"sale_id"`
	InvoiceNo   string            `json:"invoice_no"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	PaymentMode string            `json:"payment_mode"`
	CreatedAt   time.Time         `json:"created_at"`
	Items       []domain.SaleItem `json:"items"`
}

func newSaleReceipt(s *domain.Sale) *SaleReceipt {
	return &SaleReceipt{
		SaleID:      s.ID,
		InvoiceNo:   s.InvoiceNo,
		TotalAmount: s.TotalAmount,
		PaymentMode: string(s.PaymentMode),
		CreatedAt:   s.CreatedAt,
		Items:       s.Items,
	}
}

// CreateProductCommand 新建商品
type CreateProductCommand struct {
	ActorID       string
	Name          string
	CategoryID    *uint
	CostPrice     decimal.Decimal
	SellingPrice  decimal.Decimal
	StockQuantity int
	// 为空时使用默认阈值
	MinStockLevel *int
	Description   string
}

// UpdateProductCommand 修改商品资料，库存数量通过 UpdateStockCommand 修改
type UpdateProductCommand struct {
	ActorID       string
	ProductID     uint
	Name          string
	CategoryID    *uint
	CostPrice     decimal.Decimal
	SellingPrice  decimal.Decimal
	// 为空时保留当前阈值
	MinStockLevel *int
	Description   string
}

// UpdateStockCommand 直接设置库存数量
type UpdateStockCommand struct {
	ActorID   string
	ProductID uint
	Quantity  int
	Reason    string
}

// MinLevelChange 阈值优化结果
type MinLevelChange struct {
	ProductID     uint   `json:"product_id"`
	Name          string `json:"name"`
	UnitsSold30d  int    `json:"units_sold_30d"`
	PreviousLevel int    `json:"previous_level"`
	NewLevel      int    `json:"new_level"`
}

// ProductSnapshot 定价建议所需的商品快照
type ProductSnapshot struct {
	ProductID     uint
	Name          string
	CostPrice     decimal.Decimal
	SellingPrice  decimal.Decimal
	StockQuantity int
	MinStockLevel int
	UnitsSold     int
}
