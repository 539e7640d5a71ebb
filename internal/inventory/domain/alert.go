package domain

import (
	"fmt"
	"time"
)

// AlertType 预警类型
type AlertType string

const AlertTypeLowStock AlertType = "LOW_STOCK"

// Alert 低库存预警，同一商品同一时刻最多一条未解除的预警
type Alert struct {
	ID          uint       `json:"id"`
	ProductID   uint       `json:"product_id"`
	ProductName string     `json:"product_name,omitempty"`
	Type        AlertType  `json:"alert_type"`
	Message     string     `json:"message"`
	Resolved    bool       `json:"is_resolved"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// LowStockMessage 预警文案，始终反映最新的数量与阈值
func LowStockMessage(quantity, minLevel int) string {
	return fmt.Sprintf("Low stock: %d units remaining (min: %d)", quantity, minLevel)
}

// AlertAction 对预警应执行的动作
type AlertAction int

const (
	AlertNone AlertAction = iota
	AlertCreate
	AlertRefresh
	AlertResolve
)

func (a AlertAction) String() string {
	switch a {
	case AlertCreate:
		return "create"
	case AlertRefresh:
		return "refresh"
	case AlertResolve:
		return "resolve"
	}
	return "none"
}

// DecideAlert 根据最新库存与阈值决定预警动作
func DecideAlert(quantity, minLevel int, hasUnresolved bool) AlertAction {
	switch {
	case quantity <= minLevel && hasUnresolved:
		return AlertRefresh
	case quantity <= minLevel:
		return AlertCreate
	case hasUnresolved:
		return AlertResolve
	}
	return AlertNone
}
