package application

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/wyfcoding/smartstock/internal/inventory/domain"
	"github.com/wyfcoding/smartstock/pkg/logger"
	"github.com/wyfcoding/smartstock/pkg/metrics"
)

const (
	defaultStockReason = "Manual Update"
	optimizeWindowDays = 30
	optimizeCoverDays  = 7
	optimizeSafety     = 1.2
	optimizeFloor      = 5
)

// ProductCommandService 商品维护用例，库存与阈值的变化全部委托给 StockReconciler
type ProductCommandService struct {
	runner          *txRunner
	products        domain.ProductRepository
	categories      domain.CategoryRepository
	sales           domain.SaleRepository
	alerts          domain.AlertRepository
	movements       domain.MovementRepository
	reconciler      *StockReconciler
	defaultMinLevel int
	now             func() time.Time
}

// ProductCommandDeps 依赖集合
type ProductCommandDeps struct {
	Tx              domain.TxManager
	Products        domain.ProductRepository
	Categories      domain.CategoryRepository
	Sales           domain.SaleRepository
	Alerts          domain.AlertRepository
	Movements       domain.MovementRepository
	Reconciler      *StockReconciler
	Metrics         *metrics.Metrics
	TxOptions       TxOptions
	DefaultMinLevel int
	Now             func() time.Time
}

// NewProductCommandService 创建 ProductCommandService
func NewProductCommandService(d ProductCommandDeps) *ProductCommandService {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &ProductCommandService{
		runner:          newTxRunner(d.Tx, d.TxOptions, d.Metrics),
		products:        d.Products,
		categories:      d.Categories,
		sales:           d.Sales,
		alerts:          d.Alerts,
		movements:       d.Movements,
		reconciler:      d.Reconciler,
		defaultMinLevel: d.DefaultMinLevel,
		now:             now,
	}
}

// CreateProduct 新建商品，初始库存记为 INITIAL 流水并立即评估预警
func (s *ProductCommandService) CreateProduct(ctx context.Context, cmd CreateProductCommand) (*domain.Product, error) {
	minLevel := s.defaultMinLevel
	if cmd.MinStockLevel != nil {
		minLevel = *cmd.MinStockLevel
	}
	p := &domain.Product{
		Name:          cmd.Name,
		CategoryID:    cmd.CategoryID,
		CostPrice:     cmd.CostPrice,
		SellingPrice:  cmd.SellingPrice,
		MinStockLevel: minLevel,
		Description:   cmd.Description,
		Active:        true,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if cmd.StockQuantity < 0 {
		return nil, domain.NewError(domain.KindValidation, "initial stock must not be negative", nil)
	}

	err := s.runner.Run(ctx, "create product", func(ctx context.Context) error {
		if err := s.checkCategory(ctx, p.CategoryID); err != nil {
			return err
		}
		p.ID, p.StockQuantity = 0, 0
		if err := s.products.Create(ctx, p); err != nil {
			return err
		}
		qty, err := s.reconciler.SetQuantity(ctx, p.ID, cmd.StockQuantity, domain.StockChange{
			Type:    domain.MovementInitial,
			Reason:  "Initial stock",
			ActorID: cmd.ActorID,
		})
		p.StockQuantity = qty
		return err
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "Product created", "product_id", p.ID, "name", p.Name, "stock", p.StockQuantity)
	return p, nil
}

// UpdateProduct 修改商品资料，阈值变化时重新评估预警
func (s *ProductCommandService) UpdateProduct(ctx context.Context, cmd UpdateProductCommand) (*domain.Product, error) {
	var updated *domain.Product
	err := s.runner.Run(ctx, "update product", func(ctx context.Context) error {
		p, err := s.products.GetForUpdate(ctx, cmd.ProductID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.ProductNotFound(cmd.ProductID)
		}
		p.Name = cmd.Name
		p.CategoryID = cmd.CategoryID
		p.CostPrice = cmd.CostPrice
		p.SellingPrice = cmd.SellingPrice
		p.Description = cmd.Description
		if cmd.MinStockLevel != nil {
			p.MinStockLevel = *cmd.MinStockLevel
		}
		if err := p.Validate(); err != nil {
			return err
		}
		if err := s.checkCategory(ctx, p.CategoryID); err != nil {
			return err
		}
		if err := s.products.Update(ctx, p); err != nil {
			return err
		}
		if err := s.reconciler.ReevaluateThreshold(ctx, p.ID, p.MinStockLevel); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "Product updated", "product_id", updated.ID, "min_level", updated.MinStockLevel)
	return updated, nil
}

// UpdateStock 直接设置库存数量，原因写入库存流水
func (s *ProductCommandService) UpdateStock(ctx context.Context, cmd UpdateStockCommand) (int, error) {
	reason := cmd.Reason
	if reason == "" {
		reason = defaultStockReason
	}
	qty, err := s.reconciler.SetQuantity(ctx, cmd.ProductID, cmd.Quantity, domain.StockChange{
		Type:    domain.MovementAdjustment,
		Reason:  reason,
		ActorID: cmd.ActorID,
	})
	if err != nil {
		return 0, err
	}
	logger.Info(ctx, "Stock updated", "product_id", cmd.ProductID, "quantity", qty, "reason", reason)
	return qty, nil
}

// DeactivateProduct 下架商品，保留历史销售
func (s *ProductCommandService) DeactivateProduct(ctx context.Context, productID uint) error {
	return s.runner.Run(ctx, "deactivate product", func(ctx context.Context) error {
		p, err := s.products.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.ProductNotFound(productID)
		}
		if !p.Active {
			return nil
		}
		p.Active = false
		return s.products.Update(ctx, p)
	})
}

// DeleteProduct 删除商品，已有销售记录的商品拒绝删除
func (s *ProductCommandService) DeleteProduct(ctx context.Context, productID uint, actorID string) error {
	err := s.runner.Run(ctx, "delete product", func(ctx context.Context) error {
		p, err := s.products.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.ProductNotFound(productID)
		}
		n, err := s.sales.CountItemsByProduct(ctx, productID)
		if err != nil {
			return err
		}
		if n > 0 {
			return &domain.Error{
				Kind: domain.KindIntegrityConflict,
				Message: fmt.Sprintf("cannot delete product %q: it has %d sales records, mark it as inactive instead",
					p.Name, n),
				ProductID: productID,
			}
		}
		if err := s.alerts.DeleteByProduct(ctx, productID); err != nil {
			return err
		}
		if err := s.movements.DeleteByProduct(ctx, productID); err != nil {
			return err
		}
		return s.products.Delete(ctx, productID)
	})
	if err != nil {
		return err
	}
	logger.Info(ctx, "Product deleted", "product_id", productID, "actor_id", actorID)
	return nil
}

// OptimizeMinLevels 按近 30 天销量重新计算阈值：max(5, round(日均销量 * 7 * 1.2))
// 每个商品在独立事务中更新
func (s *ProductCommandService) OptimizeMinLevels(ctx context.Context) ([]MinLevelChange, error) {
	since := s.now().AddDate(0, 0, -optimizeWindowDays)
	sold, err := s.sales.UnitsSoldSince(ctx, since)
	if err != nil {
		return nil, err
	}
	if len(sold) == 0 {
		return nil, nil
	}
	ids := make([]uint, 0, len(sold))
	for id := range sold {
		ids = append(ids, id)
	}
	products, err := s.products.ListByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	changes := make([]MinLevelChange, 0, len(products))
	for _, p := range products {
		units := sold[p.ID]
		level := SuggestedMinLevel(units)
		if err := s.reconciler.ReevaluateThreshold(ctx, p.ID, level); err != nil {
			return changes, err
		}
		changes = append(changes, MinLevelChange{
			ProductID:     p.ID,
			Name:          p.Name,
			UnitsSold30d:  units,
			PreviousLevel: p.MinStockLevel,
			NewLevel:      level,
		})
	}
	logger.Info(ctx, "Min stock levels optimized", "products", len(changes))
	return changes, nil
}

// SuggestedMinLevel 根据 30 天销量给出阈值
func SuggestedMinLevel(unitsSold30d int) int {
	velocity := float64(unitsSold30d) / optimizeWindowDays
	level := int(math.RoundToEven(velocity * optimizeCoverDays * optimizeSafety))
	return max(optimizeFloor, level)
}

func (s *ProductCommandService) checkCategory(ctx context.Context, id *uint) error {
	if id == nil {
		return nil
	}
	c, err := s.categories.Get(ctx, *id)
	if err != nil {
		return err
	}
	if c == nil {
		return domain.NewError(domain.KindCategoryNotFound, fmt.Sprintf("category %d not found", *id), nil)
	}
	return nil
}
