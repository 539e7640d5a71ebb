package mysql

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/wyfcoding/smartstock/internal/inventory/domain"
	"github.com/wyfcoding/smartstock/pkg/db"
	"github.com/wyfcoding/smartstock/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type productRepository struct {
	db *db.DB
}

// NewProductRepository 创建商品仓储
func NewProductRepository(database *db.DB) domain.ProductRepository {
	return &productRepository{db: database}
}

func (r *productRepository) Create(ctx context.Context, p *domain.Product) error {
	m := toProductModel(p)
	if err := r.db.Conn(ctx).Create(m).Error; err != nil {
		logger.Error(ctx, "product_repository.create failed", "name", p.Name, "error", err)
		return fmt.Errorf("failed to create product: %w", err)
	}
	p.ID, p.CreatedAt, p.UpdatedAt = m.ID, m.CreatedAt, m.UpdatedAt
	return nil
}

func (r *productRepository) Update(ctx context.Context, p *domain.Product) error {
	err := r.db.Conn(ctx).Model(&ProductModel{}).Where("id = ?", p.ID).Updates(map[string]any{
		"name":            p.Name,
		"category_id":     p.CategoryID,
		"cost_price":      p.CostPrice,
		"selling_price":   p.SellingPrice,
		"min_stock_level": p.MinStockLevel,
		"description":     p.Description,
		"active":          p.Active,
	}).Error
	if err != nil {
		return fmt.Errorf("failed to update product %d: %w", p.ID, err)
	}
	return nil
}

func (r *productRepository) Get(ctx context.Context, id uint) (*domain.Product, error) {
	var row productRow
	err := r.withCategory(ctx).Where("products.id = ?", id).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return toProduct(&row.ProductModel, row.CategoryName), nil
}

// GetForUpdate 使用 SELECT ... FOR UPDATE 锁定商品行
func (r *productRepository) GetForUpdate(ctx context.Context, id uint) (*domain.Product, error) {
	var m ProductModel
	err := r.db.Conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock product %d: %w", id, err)
	}
	return toProduct(&m, ""), nil
}

func (r *productRepository) LockForUpdate(ctx context.Context, ids []uint) (map[uint]*domain.Product, error) {
	out := make(map[uint]*domain.Product, len(ids))
	for _, id := range ids {
		p, err := r.GetForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		if p != nil {
			out[id] = p
		}
	}
	return out, nil
}

func (r *productRepository) SetStock(ctx context.Context, id uint, quantity int) error {
	res := r.db.Conn(ctx).Model(&ProductModel{}).Where("id = ?", id).Update("stock_quantity", quantity)
	if res.Error != nil {
		return fmt.Errorf("failed to set stock for product %d: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ProductNotFound(id)
	}
	return nil
}

func (r *productRepository) SetMinLevel(ctx context.Context, id uint, minLevel int) error {
	res := r.db.Conn(ctx).Model(&ProductModel{}).Where("id = ?", id).Update("min_stock_level", minLevel)
	if res.Error != nil {
		return fmt.Errorf("failed to set min level for product %d: %w", id, res.Error)
	}
	return nil
}

func (r *productRepository) Delete(ctx context.Context, id uint) error {
	if err := r.db.Conn(ctx).Delete(&ProductModel{}, id).Error; err != nil {
		return fmt.Errorf("failed to delete product %d: %w", id, err)
	}
	return nil
}

func (r *productRepository) List(ctx context.Context, f domain.ProductFilter) ([]*domain.Product, error) {
	q := r.withCategory(ctx)
	if s := strings.TrimSpace(f.Query); s != "" {
		if id, err := strconv.ParseUint(s, 10, 64); err == nil {
			q = q.Where("(products.name LIKE ? OR products.id = ?)", "%"+s+"%", id)
		} else {
			q = q.Where("products.name LIKE ?", "%"+s+"%")
		}
	}
	if f.CategoryID != nil {
		q = q.Where("products.category_id = ?", *f.CategoryID)
	}
	if f.ActiveOnly {
		q = q.Where("products.active = ?", true)
	}
	if f.InStockOnly {
		q = q.Where("products.stock_quantity > 0")
	}
	if f.LowStock {
		q = q.Where("products.stock_quantity <= products.min_stock_level")
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}
	if f.Offset > 0 {
		q = q.Offset(f.Offset)
	}

	var rows []productRow
	if err := q.Order("products.name ASC, products.id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return toProducts(rows), nil
}

func (r *productRepository) ListByIDs(ctx context.Context, ids []uint) ([]*domain.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []productRow
	if err := r.withCategory(ctx).Where("products.id IN ?", ids).Order("products.id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list products by id: %w", err)
	}
	return toProducts(rows), nil
}

func (r *productRepository) ListAll(ctx context.Context) ([]*domain.Product, error) {
	var ms []ProductModel
	if err := r.db.Conn(ctx).Order("id ASC").Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	out := make([]*domain.Product, 0, len(ms))
	for i := range ms {
		out = append(out, toProduct(&ms[i], ""))
	}
	return out, nil
}

func (r *productRepository) withCategory(ctx context.Context) *gorm.DB {
	return r.db.Conn(ctx).Model(&ProductModel{}).
		Select("products.*, COALESCE(categories.name, '') AS category_name").
		Joins("LEFT JOIN categories ON categories.id = products.category_id")
}

func toProducts(rows []productRow) []*domain.Product {
	out := make([]*domain.Product, 0, len(rows))
	for i := range rows {
		out = append(out, toProduct(&rows[i].ProductModel, rows[i].CategoryName))
	}
	return out
}
