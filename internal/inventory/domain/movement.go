package domain

import "time"

// MovementType 库存变动类型
type MovementType string

const (
	MovementInitial    MovementType = "INITIAL"
	MovementSale       MovementType = "SALE"
	MovementAdjustment MovementType = "ADJUSTMENT"
)

// StockChange 一次库存变动的审计上下文
type StockChange struct {
	Type    MovementType
	Reason  string
	ActorID string
	// 关联单据，如发票号
	Reference string
}

// StockMovement 库存变动流水，记录变动前后数量与原因
type StockMovement struct {
	ID        uint         `json:"id"`
	ProductID uint         `json:"product_id"`
	Type      MovementType `json:"type"`
	Delta     int          `json:"delta"`
	Before    int          `json:"before"`
	After     int          `json:"after"`
	Reason    string       `json:"reason,omitempty"`
	Reference string       `json:"reference,omitempty"`
	ActorID   string       `json:"actor_id"`
	CreatedAt time.Time    `json:"created_at"`
}
