package mysql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wyfcoding/smartstock/internal/inventory/domain"
	"github.com/wyfcoding/smartstock/pkg/db"
	"gorm.io/gorm"
)

type alertRepository struct {
	db *db.DB
}

// NewAlertRepository 创建预警仓储
func NewAlertRepository(database *db.DB) domain.AlertRepository {
	return &alertRepository{db: database}
}

func (r *alertRepository) FindUnresolved(ctx context.Context, productID uint) (*domain.Alert, error) {
	var m AlertModel
	err := r.db.Conn(ctx).
		Where("product_id = ? AND is_resolved = ?", productID, false).
		Order("id ASC").
		Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find alert of product %d: %w", productID, err)
	}
	return toAlert(&m), nil
}

// Create 插入未解除预警；open_key 唯一索引拒绝同一商品的第二条未解除预警
func (r *alertRepository) Create(ctx context.Context, a *domain.Alert) error {
	key := a.ProductID
	m := &AlertModel{
		ProductID:  a.ProductID,
		AlertType:  string(a.Type),
		Message:    a.Message,
		IsResolved: false,
		OpenKey:    &key,
	}
	if err := r.db.Conn(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to create alert for product %d: %w", a.ProductID, err)
	}
	a.ID, a.CreatedAt = m.ID, m.CreatedAt
	return nil
}

func (r *alertRepository) UpdateMessage(ctx context.Context, id uint, message string) error {
	if err := r.db.Conn(ctx).Model(&AlertModel{}).Where("id = ?", id).Update("message", message).Error; err != nil {
		return fmt.Errorf("failed to update alert %d: %w", id, err)
	}
	return nil
}

func (r *alertRepository) ResolveAll(ctx context.Context, productID uint, at time.Time) (int64, error) {
	res := r.db.Conn(ctx).Model(&AlertModel{}).
		Where("product_id = ? AND is_resolved = ?", productID, false).
		Updates(map[string]any{"is_resolved": true, "resolved_at": at, "open_key": nil})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to resolve alerts of product %d: %w", productID, res.Error)
	}
	return res.RowsAffected, nil
}

type alertRow struct {
	AlertModel
	ProductName string `gorm:"column:product_name"`
}

func (r *alertRepository) ListUnresolved(ctx context.Context) ([]*domain.Alert, error) {
	return r.list(ctx, "alerts.is_resolved = ?", false)
}

func (r *alertRepository) ListByProduct(ctx context.Context, productID uint) ([]*domain.Alert, error) {
	return r.list(ctx, "alerts.product_id = ?", productID)
}

func (r *alertRepository) list(ctx context.Context, cond string, arg any) ([]*domain.Alert, error) {
	var rows []alertRow
	err := r.db.Conn(ctx).Model(&AlertModel{}).
		Select("alerts.*, COALESCE(products.name, ?) AS product_name", domain.DeletedProductName).
		Joins("LEFT JOIN products ON products.id = alerts.product_id").
		Where(cond, arg).
		Order("alerts.created_at DESC, alerts.id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	out := make([]*domain.Alert, 0, len(rows))
	for i := range rows {
		a := toAlert(&rows[i].AlertModel)
		a.ProductName = rows[i].ProductName
		out = append(out, a)
	}
	return out, nil
}

func (r *alertRepository) DeleteByProduct(ctx context.Context, productID uint) error {
	if err := r.db.Conn(ctx).Where("product_id = ?", productID).Delete(&AlertModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete alerts of product %d: %w", productID, err)
	}
	return nil
}
