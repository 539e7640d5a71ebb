package mysql

import (
	"context"
	"fmt"

	"github.com/wyfcoding/smartstock/internal/inventory/domain"
	"github.com/wyfcoding/smartstock/pkg/db"
)

type movementRepository struct {
	db *db.DB
}

// NewMovementRepository 创建库存流水仓储
func NewMovementRepository(database *db.DB) domain.MovementRepository {
	return &movementRepository{db: database}
}

func (r *movementRepository) Create(ctx context.Context, mv *domain.StockMovement) error {
	m := &StockMovementModel{
		ProductID: mv.ProductID,
		Type:      string(mv.Type),
		Delta:     mv.Delta,
		Before:    mv.Before,
		After:     mv.After,
		Reason:    mv.Reason,
		Reference: mv.Reference,
		ActorID:   mv.ActorID,
	}
	if err := r.db.Conn(ctx).Create(m).Error; err != nil {
		return fmt.Errorf("failed to record stock movement for product %d: %w", mv.ProductID, err)
	}
	mv.ID, mv.CreatedAt = m.ID, m.CreatedAt
	return nil
}

func (r *movementRepository) ListByProduct(ctx context.Context, productID uint, limit int) ([]*domain.StockMovement, error) {
	q := r.db.Conn(ctx).Where("product_id = ?", productID).Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var ms []StockMovementModel
	if err := q.Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("failed to list stock movements of product %d: %w", productID, err)
	}
	out := make([]*domain.StockMovement, 0, len(ms))
	for i := range ms {
		out = append(out, toMovement(&ms[i]))
	}
	return out, nil
}

func (r *movementRepository) DeleteByProduct(ctx context.Context, productID uint) error {
	if err := r.db.Conn(ctx).Where("product_id = ?", productID).Delete(&StockMovementModel{}).Error; err != nil {
		return fmt.Errorf("failed to delete stock movements of product %d: %w", productID, err)
	}
	return nil
}
