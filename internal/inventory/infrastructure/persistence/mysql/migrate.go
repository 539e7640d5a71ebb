package mysql

import (
	"context"
	"fmt"

	"github.com/wyfcoding/smartstock/internal/inventory/domain"
	"github.com/wyfcoding/smartstock/pkg/db"
)

// Models 库存上下文的全部表模型
func Models() []any {
	return []any{
		&CategoryModel{},
		&ProductModel{},
		&SaleModel{},
		&SaleItemModel{},
		&AlertModel{},
		&StockMovementModel{},
		&InvoiceSequenceModel{},
	}
}

// Migrate 自动迁移表结构并写入保留分类
func Migrate(ctx context.Context, database *db.DB, extra ...any) error {
	models := append(Models(), extra...)
	if err := database.WithContext(ctx).AutoMigrate(models...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if _, err := NewCategoryRepository(database).EnsureUncategorized(ctx); err != nil {
		return err
	}
	return nil
}

var (
	_ domain.ProductRepository  = (*productRepository)(nil)
	_ domain.SaleRepository     = (*saleRepository)(nil)
	_ domain.AlertRepository    = (*alertRepository)(nil)
	_ domain.MovementRepository = (*movementRepository)(nil)
	_ domain.CategoryRepository = (*categoryRepository)(nil)
	_ domain.InvoiceSequencer   = (*invoiceSequencer)(nil)
	_ domain.TxManager          = (*db.DB)(nil)
)
