package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/wyfcoding/smartstock/internal/inventory/domain"
)

const (
	recentSalesLimit  = 10
	searchLimit       = 20
	defaultListLimit  = 100
	movementListLimit = 50
)

// InventoryQueryService 只读查询，不开启事务
type InventoryQueryService struct {
	products   domain.ProductRepository
	categories domain.CategoryRepository
	sales      domain.SaleRepository
	alerts     domain.AlertRepository
	movements  domain.MovementRepository
}

// NewInventoryQueryService 创建查询服务
func NewInventoryQueryService(
	products domain.ProductRepository,
	categories domain.CategoryRepository,
	sales domain.SaleRepository,
	alerts domain.AlertRepository,
	movements domain.MovementRepository,
) *InventoryQueryService {
	return &InventoryQueryService{
		products:   products,
		categories: categories,
		sales:      sales,
		alerts:     alerts,
		movements:  movements,
	}
}

func (s *InventoryQueryService) GetProduct(ctx context.Context, id uint) (*domain.Product, error) {
	p, err := s.products.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ProductNotFound(id)
	}
	return p, nil
}

func (s *InventoryQueryService) ListProducts(ctx context.Context, f domain.ProductFilter) ([]*domain.Product, error) {
	if f.Limit <= 0 {
		f.Limit = defaultListLimit
	}
	return s.products.List(ctx, f)
}

// SearchProducts 收银台检索：仅返回在售且有库存的商品
func (s *InventoryQueryService) SearchProducts(ctx context.Context, query string) ([]*domain.Product, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []*domain.Product{}, nil
	}
	return s.products.List(ctx, domain.ProductFilter{
		Query:       query,
		ActiveOnly:  true,
		InStockOnly: true,
		Limit:       searchLimit,
	})
}

func (s *InventoryQueryService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	return s.categories.List(ctx)
}

func (s *InventoryQueryService) ListUnresolvedAlerts(ctx context.Context) ([]*domain.Alert, error) {
	return s.alerts.ListUnresolved(ctx)
}

// ListStockMovements 商品的库存流水，最新在前
func (s *InventoryQueryService) ListStockMovements(ctx context.Context, productID uint, limit int) ([]*domain.StockMovement, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = movementListLimit
	}
	return s.movements.ListByProduct(ctx, productID, limit)
}

// GetSale 读取销售及其销售行，已删除商品显示为 Deleted Product
func (s *InventoryQueryService) GetSale(ctx context.Context, id uint) (*domain.Sale, error) {
	sale, err := s.sales.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sale == nil {
		return nil, domain.NewError(domain.KindSaleNotFound, fmt.Sprintf("sale %d not found", id), nil)
	}
	return sale, nil
}

func (s *InventoryQueryService) ListRecentSales(ctx context.Context) ([]*domain.SaleSummary, error) {
	return s.sales.ListRecent(ctx, recentSalesLimit)
}

// FrequentlyBoughtWith 与指定商品同单购买最多且仍可售的商品，没有时返回 nil
func (s *InventoryQueryService) FrequentlyBoughtWith(ctx context.Context, productID uint) (*domain.Product, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	ids, err := s.sales.CoPurchased(ctx, productID, searchLimit)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		p, err := s.products.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if p != nil && p.Active && p.StockQuantity > 0 {
			return p, nil
		}
	}
	return nil, nil
}

// ProductSnapshot 汇总商品当前状态与累计销量
func (s *InventoryQueryService) ProductSnapshot(ctx context.Context, productID uint) (*ProductSnapshot, error) {
	p, err := s.GetProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	stats, err := s.sales.StatsForProduct(ctx, productID)
	if err != nil {
		return nil, err
	}
	return &ProductSnapshot{
		ProductID:     p.ID,
		Name:          p.Name,
		CostPrice:     p.CostPrice,
		SellingPrice:  p.SellingPrice,
		StockQuantity: p.StockQuantity,
		MinStockLevel: p.MinStockLevel,
		UnitsSold:     stats.UnitsSold,
	}, nil
}
