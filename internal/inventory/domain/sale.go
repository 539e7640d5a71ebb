package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMode 支付方式
type PaymentMode string

const (
	PaymentCash   PaymentMode = "cash"
	PaymentCard   PaymentMode = "card"
	PaymentUPI    PaymentMode = "upi"
	PaymentWallet PaymentMode = "wallet"
)

// DeletedProductName 商品被删除后收据上显示的名称
const DeletedProductName = "Deleted Product"

// Sale 一笔已完成的销售，创建后不可修改
type Sale struct {
	ID          uint            `json:"id"`
	InvoiceNo   string          `json:"invoice_no"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	PaymentMode PaymentMode     `json:"payment_mode"`
	ActorID     string          `json:"actor_id"`
	CreatedAt   time.Time       `json:"created_at"`
	Items       []SaleItem      `json:"items,omitempty"`
}

// SaleItem 销售行，单价为售出时的快照
type SaleItem struct {
	ID          uint            `json:"id"`
	SaleID      uint            `json:"sale_id"`
	ProductID   uint            `json:"product_id"`
	ProductName string          `json:"product_name,omitempty"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// SaleSummary 最近销售列表项
type SaleSummary struct {
	ID          uint            `json:"id"`
	InvoiceNo   string          `json:"invoice_no"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	PaymentMode PaymentMode     `json:"payment_mode"`
	ActorID     string          `json:"actor_id"`
	ItemCount   int             `json:"item_count"`
	CreatedAt   time.Time       `json:"created_at"`
}

// SaleLine 提交销售时的一行
type SaleLine struct {
	ProductID uint
	Quantity  int
	UnitPrice decimal.Decimal
}

// ValidateSaleLines 在访问存储之前校验销售行与支付方式
func ValidateSaleLines(lines []SaleLine, mode PaymentMode, allowedModes []PaymentMode) error {
	if len(lines) == 0 {
		return NewError(KindValidation, "sale must contain at least one item", nil)
	}
	if !slices.Contains(allowedModes, mode) {
		return NewError(KindValidation, fmt.Sprintf("unsupported payment mode %q", mode), nil)
	}
	for i, l := range lines {
		if l.ProductID == 0 {
			return NewError(KindValidation, fmt.Sprintf("item %d: product id is required", i), nil)
		}
		if l.Quantity <= 0 {
			return &Error{
				Kind:      KindValidation,
				Message:   fmt.Sprintf("item %d: InvalidQuantity: quantity must be positive, got %d", i, l.Quantity),
				ProductID: l.ProductID,
			}
		}
		if l.UnitPrice.IsNegative() {
			return &Error{
				Kind:      KindValidation,
				Message:   fmt.Sprintf("item %d: unit price must not be negative", i),
				ProductID: l.ProductID,
			}
		}
		if !IsCents(l.UnitPrice) {
			return &Error{
				Kind:      KindValidation,
				Message:   fmt.Sprintf("item %d: unit price %s has more than two decimal places", i, l.UnitPrice),
				ProductID: l.ProductID,
			}
		}
	}
	return nil
}

// BuildSaleItems 计算每行小计与合计，单价须已通过 ValidateSaleLines 校验
func BuildSaleItems(lines []SaleLine) ([]SaleItem, decimal.Decimal) {
	items := make([]SaleItem, 0, len(lines))
	total := decimal.Zero
	for _, l := range lines {
		sub := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		items = append(items, SaleItem{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  sub,
		})
		total = total.Add(sub)
	}
	return items, total
}

// QuantityByProduct 按商品汇总数量，返回按 ID 升序的商品列表
// 同一商品出现在多行时只产生一次库存扣减
func QuantityByProduct(lines []SaleLine) ([]uint, map[uint]int) {
	qty := make(map[uint]int, len(lines))
	for _, l := range lines {
		qty[l.ProductID] += l.Quantity
	}
	ids := make([]uint, 0, len(qty))
	for id := range qty {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, qty
}

// FormatInvoiceNo 发票号：INV + 日期 + 当日三位序号
func FormatInvoiceNo(day time.Time, seq int) string {
	return fmt.Sprintf("INV%s%03d", day.Format("20060102"), seq)
}
