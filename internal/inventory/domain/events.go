package domain

import (
	"context"
	"time"
)

// 事件类型
const (
	EventSaleCompleted         = "inventory.sale.completed"
	EventLowStockAlertRaised   = "inventory.alert.raised"
	EventLowStockAlertResolved = "inventory.alert.resolved"
)

// SaleCompletedEvent 销售提交成功
type SaleCompletedEvent struct {
	SaleID      uint      `json:"sale_id"`
	InvoiceNo   string    `json:"invoice_no"`
	TotalAmount string    `json:"total_amount"`
	PaymentMode string    `json:"payment_mode"`
	ActorID     string    `json:"actor_id"`
	Units       int       `json:"units"`
	OccurredOn  time.Time `json:"occurred_on"`
}

// LowStockAlertRaisedEvent 新建低库存预警
type LowStockAlertRaisedEvent struct {
	AlertID    uint      `json:"alert_id"`
	ProductID  uint      `json:"product_id"`
	Quantity   int       `json:"quantity"`
	MinLevel   int       `json:"min_level"`
	OccurredOn time.Time `json:"occurred_on"`
}

// LowStockAlertResolvedEvent 低库存预警解除
type LowStockAlertResolvedEvent struct {
	ProductID  uint      `json:"product_id"`
	Quantity   int       `json:"quantity"`
	MinLevel   int       `json:"min_level"`
	Resolved   int64     `json:"resolved"`
	OccurredOn time.Time `json:"occurred_on"`
}

// EventPublisher 事件发布者，在调用方事务内写入，随事务一起提交或回滚
type EventPublisher interface {
	Publish(ctx context.Context, eventType, key string, event any) error
}
