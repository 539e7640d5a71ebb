package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/smartstock/internal/inventory/domain"
	"github.com/wyfcoding/smartstock/pkg/db"
	"github.com/wyfcoding/smartstock/pkg/logger"
	"gorm.io/gorm"
)

type saleRepository struct {
	db *db.DB
}

// NewSaleRepository 创建销售仓储
func NewSaleRepository(database *db.DB) domain.SaleRepository {
	return &saleRepository{db: database}
}

func (r *saleRepository) Create(ctx context.Context, s *domain.Sale) error {
	conn := r.db.Conn(ctx)
	header := &SaleModel{
		InvoiceNo:   s.InvoiceNo,
		TotalAmount: s.TotalAmount,
		PaymentMode: string(s.PaymentMode),
		ActorID:     s.ActorID,
		CreatedAt:   s.CreatedAt,
	}
	if err := conn.Create(header).Error; err != nil {
		logger.Error(ctx, "sale_repository.create failed", "invoice_no", s.InvoiceNo, "error", err)
		return fmt.Errorf("failed to insert sale: %w", err)
	}
	s.ID, s.CreatedAt = header.ID, header.CreatedAt

	items := make([]SaleItemModel, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, SaleItemModel{
			SaleID:    header.ID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Subtotal:  it.Subtotal,
		})
	}
	if len(items) > 0 {
		if err := conn.Create(&items).Error; err != nil {
			return fmt.Errorf("failed to insert sale items: %w", err)
		}
	}
	for i := range s.Items {
		s.Items[i].ID = items[i].ID
		s.Items[i].SaleID = header.ID
	}
	return nil
}

type saleItemRow struct {
	SaleItemModel
	ProductName string `gorm:"column:product_name"`
}

func (r *saleRepository) Get(ctx context.Context, id uint) (*domain.Sale, error) {
	conn := r.db.Conn(ctx)
	var header SaleModel
	err := conn.Where("id = ?", id).Take(&header).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sale %d: %w", id, err)
	}

	var rows []saleItemRow
	err = conn.Model(&SaleItemModel{}).
		Select("sale_items.*, COALESCE(products.name, ?) AS product_name", domain.DeletedProductName).
		Joins("LEFT JOIN products ON products.id = sale_items.product_id").
		Where("sale_items.sale_id = ?", id).
		Order("sale_items.id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get items of sale %d: %w", id, err)
	}

	sale := &domain.Sale{
		ID:          header.ID,
		InvoiceNo:   header.InvoiceNo,
		TotalAmount: header.TotalAmount,
		PaymentMode: domain.PaymentMode(header.PaymentMode),
		ActorID:     header.ActorID,
		CreatedAt:   header.CreatedAt,
		Items:       make([]domain.SaleItem, 0, len(rows)),
	}
	for _, row := range rows {
		sale.Items = append(sale.Items, domain.SaleItem{
			ID:          row.ID,
			SaleID:      row.SaleID,
			ProductID:   row.ProductID,
			ProductName: row.ProductName,
			Quantity:    row.Quantity,
			UnitPrice:   row.UnitPrice,
			Subtotal:    row.Subtotal,
		})
	}
	return sale, nil
}

type saleSummaryRow struct {
	SaleModel
	ItemCount int `gorm:"column:item_count"`
}

func (r *saleRepository) ListRecent(ctx context.Context, limit int) ([]*domain.SaleSummary, error) {
	var rows []saleSummaryRow
	err := r.db.Conn(ctx).Model(&SaleModel{}).
		Select("sales.*, (SELECT COUNT(*) FROM sale_items WHERE sale_items.sale_id = sales.id) AS item_count").
		Order("sales.created_at DESC, sales.id DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent sales: %w", err)
	}
	out := make([]*domain.SaleSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, &domain.SaleSummary{
			ID:          row.ID,
			InvoiceNo:   row.InvoiceNo,
			TotalAmount: row.TotalAmount,
			PaymentMode: domain.PaymentMode(row.PaymentMode),
			ActorID:     row.ActorID,
			ItemCount:   row.ItemCount,
			CreatedAt:   row.CreatedAt,
		})
	}
	return out, nil
}

func (r *saleRepository) CountItemsByProduct(ctx context.Context, productID uint) (int64, error) {
	var n int64
	if err := r.db.Conn(ctx).Model(&SaleItemModel{}).Where("product_id = ?", productID).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count sale items of product %d: %w", productID, err)
	}
	return n, nil
}

func (r *saleRepository) UnitsSoldSince(ctx context.Context, since time.Time) (map[uint]int, error) {
	var rows []struct {
		ProductID uint
		Units     int
	}
	err := r.db.Conn(ctx).Model(&SaleItemModel{}).
		Select("sale_items.product_id AS product_id, SUM(sale_items.quantity) AS units").
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Where("sales.created_at >= ?", since).
		Group("sale_items.product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate units sold: %w", err)
	}
	out := make(map[uint]int, len(rows))
	for _, row := range rows {
		out[row.ProductID] = row.Units
	}
	return out, nil
}

func (r *saleRepository) StatsForProduct(ctx context.Context, productID uint) (*domain.ProductSalesStats, error) {
	var row struct {
		Units   int
		Revenue decimal.Decimal
	}
	err := r.db.Conn(ctx).Model(&SaleItemModel{}).
		Select("COALESCE(SUM(quantity), 0) AS units, COALESCE(SUM(subtotal), 0) AS revenue").
		Where("product_id = ?", productID).
		Scan(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sales of product %d: %w", productID, err)
	}
	return &domain.ProductSalesStats{UnitsSold: row.Units, Revenue: row.Revenue}, nil
}

func (r *saleRepository) CoPurchased(ctx context.Context, productID uint, limit int) ([]uint, error) {
	var rows []struct {
		ProductID uint
		Freq      int
	}
	err := r.db.Conn(ctx).Table("sale_items AS a").
		Select("b.product_id AS product_id, COUNT(*) AS freq").
		Joins("JOIN sale_items AS b ON a.sale_id = b.sale_id AND b.product_id <> a.product_id").
		Where("a.product_id = ?", productID).
		Group("b.product_id").
		Order("freq DESC, b.product_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate co-purchases of product %d: %w", productID, err)
	}
	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ProductID)
	}
	return ids, nil
}
