package application

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/smartstock/internal/inventory/domain"
	"github.com/wyfcoding/smartstock/pkg/db"
	"github.com/wyfcoding/smartstock/pkg/logger"
	"github.com/wyfcoding/smartstock/pkg/metrics"
)

// StockReconciler 唯一允许修改库存数量与阈值的组件，每次修改后在同一事务内重新评估低库存预警
type StockReconciler struct {
	runner    *txRunner
	products  domain.ProductRepository
	alerts    domain.AlertRepository
	movements domain.MovementRepository
	publisher domain.EventPublisher
	metrics   *metrics.Metrics
	now       func() time.Time
}

// StockReconcilerDeps 依赖集合
type StockReconcilerDeps struct {
	Tx        domain.TxManager
	Products  domain.ProductRepository
	Alerts    domain.AlertRepository
	Movements domain.MovementRepository
	// 可选，为空时不发布事件
	Publisher domain.EventPublisher
	Metrics   *metrics.Metrics
	TxOptions TxOptions
	Now       func() time.Time
}

// NewStockReconciler 创建 StockReconciler
func NewStockReconciler(d StockReconcilerDeps) *StockReconciler {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &StockReconciler{
		runner:    newTxRunner(d.Tx, d.TxOptions, d.Metrics),
		products:  d.Products,
		alerts:    d.Alerts,
		movements: d.Movements,
		publisher: d.Publisher,
		metrics:   d.Metrics,
		now:       now,
	}
}

// ApplyDelta 按增量调整库存，结果可以为负
func (r *StockReconciler) ApplyDelta(ctx context.Context, productID uint, delta int, change domain.StockChange) (int, error) {
	var quantity int
	err := r.runner.Run(ctx, "apply stock delta", func(ctx context.Context) error {
		p, err := r.lock(ctx, productID)
		if err != nil {
			return err
		}
		quantity = p.StockQuantity + delta
		return r.writeQuantity(ctx, p, quantity, change)
	})
	return quantity, err
}

// SetQuantity 直接覆盖库存数量
func (r *StockReconciler) SetQuantity(ctx context.Context, productID uint, quantity int, change domain.StockChange) (int, error) {
	err := r.runner.Run(ctx, "set stock quantity", func(ctx context.Context) error {
		p, err := r.lock(ctx, productID)
		if err != nil {
			return err
		}
		return r.writeQuantity(ctx, p, quantity, change)
	})
	return quantity, err
}

// ReevaluateThreshold 写入新的预警阈值并重新评估预警
func (r *StockReconciler) ReevaluateThreshold(ctx context.Context, productID uint, minLevel int) error {
	if minLevel < 0 {
		return domain.NewError(domain.KindValidation, "min stock level must not be negative", nil)
	}
	return r.runner.Run(ctx, "reevaluate threshold", func(ctx context.Context) error {
		p, err := r.lock(ctx, productID)
		if err != nil {
			return err
		}
		if p.MinStockLevel != minLevel {
			if err := r.products.SetMinLevel(ctx, productID, minLevel); err != nil {
				return err
			}
		}
		return r.reconcileAlert(ctx, productID, p.StockQuantity, minLevel)
	})
}

func (r *StockReconciler) lock(ctx context.Context, productID uint) (*domain.Product, error) {
	p, err := r.products.GetForUpdate(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ProductNotFound(productID)
	}
	return p, nil
}

func (r *StockReconciler) writeQuantity(ctx context.Context, p *domain.Product, quantity int, change domain.StockChange) error {
	if err := r.products.SetStock(ctx, p.ID, quantity); err != nil {
		return err
	}
	if change.Type == "" {
		change.Type = domain.MovementAdjustment
	}
	mv := &domain.StockMovement{
		ProductID: p.ID,
		Type:      change.Type,
		Delta:     quantity - p.StockQuantity,
		Before:    p.StockQuantity,
		After:     quantity,
		Reason:    change.Reason,
		Reference: change.Reference,
		ActorID:   change.ActorID,
	}
	if err := r.movements.Create(ctx, mv); err != nil {
		return err
	}
	db.AfterCommit(ctx, func() { r.metrics.RecordStockAdjustment(string(change.Type)) })
	if quantity < 0 {
		logger.Warn(ctx, "Stock went negative", "product_id", p.ID, "quantity", quantity, "reference", change.Reference)
	}
	return r.reconcileAlert(ctx, p.ID, quantity, p.MinStockLevel)
}

// reconcileAlert 调用方已持有商品行锁
func (r *StockReconciler) reconcileAlert(ctx context.Context, productID uint, quantity, minLevel int) error {
	open, err := r.alerts.FindUnresolved(ctx, productID)
	if err != nil {
		return err
	}

	switch domain.DecideAlert(quantity, minLevel, open != nil) {
	case domain.AlertRefresh:
		msg := domain.LowStockMessage(quantity, minLevel)
		if open.Message == msg {
			return nil
		}
		return r.alerts.UpdateMessage(ctx, open.ID, msg)

	case domain.AlertCreate:
		a := &domain.Alert{
			ProductID: productID,
			Type:      domain.AlertTypeLowStock,
			Message:   domain.LowStockMessage(quantity, minLevel),
		}
		if err := r.alerts.Create(ctx, a); err != nil {
			// alerts 上唯一的唯一索引是 open_key
			if db.IsDuplicateKey(err) {
				return fmt.Errorf("%w: %v", errAlertRace, err)
			}
			return err
		}
		db.AfterCommit(ctx, func() {
			r.metrics.RecordAlertRaised()
			logger.Info(ctx, "Low stock alert raised", "product_id", productID, "quantity", quantity, "min_level", minLevel)
		})
		return r.publish(ctx, domain.EventLowStockAlertRaised, productID, domain.LowStockAlertRaisedEvent{
			AlertID:    a.ID,
			ProductID:  productID,
			Quantity:   quantity,
			MinLevel:   minLevel,
			OccurredOn: r.now(),
		})

	case domain.AlertResolve:
		n, err := r.alerts.ResolveAll(ctx, productID, r.now())
		if err != nil {
			return err
		}
		db.AfterCommit(ctx, func() {
			r.metrics.RecordAlertsResolved(int(n))
			logger.Info(ctx, "Low stock alert resolved", "product_id", productID, "quantity", quantity, "min_level", minLevel)
		})
		return r.publish(ctx, domain.EventLowStockAlertResolved, productID, domain.LowStockAlertResolvedEvent{
			ProductID:  productID,
			Quantity:   quantity,
			MinLevel:   minLevel,
			Resolved:   n,
			OccurredOn: r.now(),
		})
	}
	return nil
}

func (r *StockReconciler) publish(ctx context.Context, eventType string, productID uint, event any) error {
	if r.publisher == nil {
		return nil
	}
	return r.publisher.Publish(ctx, eventType, fmt.Sprintf("product-%d", productID), event)
}
