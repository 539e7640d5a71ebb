package domain

import (
	"context"
	"time"
)

// 所有仓储方法在 context 携带事务时加入该事务
// 查询未命中时返回 (nil, nil)

// TxManager 事务管理，已处于事务中时加入外层事务
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ProductRepository 商品仓储
type ProductRepository interface {
	Create(ctx context.Context, p *Product) error
	// Update 更新名称、分类、价格、描述、阈值与状态，不修改库存
	Update(ctx context.Context, p *Product) error
	Get(ctx context.Context, id uint) (*Product, error)
	// GetForUpdate 读取并对商品行加排他锁，直到事务结束
	GetForUpdate(ctx context.Context, id uint) (*Product, error)
	// LockForUpdate 按 ID 升序依次加锁，返回找到的商品
	LockForUpdate(ctx context.Context, ids []uint) (map[uint]*Product, error)
	SetStock(ctx context.Context, id uint, quantity int) error
	SetMinLevel(ctx context.Context, id uint, minLevel int) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, f ProductFilter) ([]*Product, error)
	ListByIDs(ctx context.Context, ids []uint) ([]*Product, error)
	ListAll(ctx context.Context) ([]*Product, error)
}

// CategoryRepository 分类仓储
type CategoryRepository interface {
	Get(ctx context.Context, id uint) (*Category, error)
	List(ctx context.Context) ([]*Category, error)
	// EnsureUncategorized 确保保留分类存在并返回
	EnsureUncategorized(ctx context.Context) (*Category, error)
}

// SaleRepository 销售仓储
type SaleRepository interface {
	// Create 写入销售头与所有销售行，回填 ID
	Create(ctx context.Context, s *Sale) error
	Get(ctx context.Context, id uint) (*Sale, error)
	ListRecent(ctx context.Context, limit int) ([]*SaleSummary, error)
	CountItemsByProduct(ctx context.Context, productID uint) (int64, error)
	UnitsSoldSince(ctx context.Context, since time.Time) (map[uint]int, error)
	StatsForProduct(ctx context.Context, productID uint) (*ProductSalesStats, error)
	// CoPurchased 与指定商品同单出现次数最多的商品 ID
	CoPurchased(ctx context.Context, productID uint, limit int) ([]uint, error)
}

// InvoiceSequencer 发票序号生成，在调用方事务内锁定当日计数
type InvoiceSequencer interface {
	Next(ctx context.Context, day time.Time) (int, error)
}

// AlertRepository 预警仓储
type AlertRepository interface {
	FindUnresolved(ctx context.Context, productID uint) (*Alert, error)
	Create(ctx context.Context, a *Alert) error
	UpdateMessage(ctx context.Context, id uint, message string) error
	// ResolveAll 解除该商品所有未解除预警，返回解除数量
	ResolveAll(ctx context.Context, productID uint, at time.Time) (int64, error)
	ListUnresolved(ctx context.Context) ([]*Alert, error)
	ListByProduct(ctx context.Context, productID uint) ([]*Alert, error)
	DeleteByProduct(ctx context.Context, productID uint) error
}

// MovementRepository 库存流水仓储
type MovementRepository interface {
	Create(ctx context.Context, m *StockMovement) error
	ListByProduct(ctx context.Context, productID uint, limit int) ([]*StockMovement, error)
	DeleteByProduct(ctx context.Context, productID uint) error
}
