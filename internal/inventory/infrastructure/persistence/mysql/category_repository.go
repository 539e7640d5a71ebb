package mysql

import (
	"context"
	"errors"
	"fmt"

	"github.com/wyfcoding/smartstock/internal/inventory/domain"
	"github.com/wyfcoding/smartstock/pkg/db"
	"gorm.io/gorm"
)

type categoryRepository struct {
	db *db.DB
}

// NewCategoryRepository 创建分类仓储
func NewCategoryRepository(database *db.DB) domain.CategoryRepository {
	return &categoryRepository{db: database}
}

func (r *categoryRepository) Get(ctx context.Context, id uint) (*domain.Category, error) {
	var m CategoryModel
	err := r.db.Conn(ctx).Where("id = ?", id).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get category %d: %w", id, err)
	}
	return toCategory(&m), nil
}

func (r *categoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	var ms []CategoryModel
	if err := r.db.Conn(ctx).Order("name ASC").Find(&ms).Error; err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	out := make([]*domain.Category, 0, len(ms))
	for i := range ms {
		out = append(out, toCategory(&ms[i]))
	}
	return out, nil
}

func (r *categoryRepository) EnsureUncategorized(ctx context.Context) (*domain.Category, error) {
	m := CategoryModel{Name: domain.UncategorizedName, Description: "Default category"}
	err := r.db.Conn(ctx).Where(CategoryModel{Name: domain.UncategorizedName}).FirstOrCreate(&m).Error
	if err != nil {
		return nil, fmt.Errorf("failed to ensure %s category: %w", domain.UncategorizedName, err)
	}
	return toCategory(&m), nil
}
