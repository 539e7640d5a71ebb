// Package messaging 提供库存事件的 Outbox 写入与 Kafka 转发
package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/smartstock/internal/inventory/domain"
	"github.com/wyfcoding/smartstock/pkg/db"
)

// Outbox 消息状态
const (
	OutboxPending = "pending"
	OutboxSent    = "sent"
)

// OutboxMessage outbox 表
type OutboxMessage struct {
	ID        string    `gorm:"column:id;type:varchar(36);primaryKey"`
	EventType string    `gorm:"column:event_type;type:varchar(100);index;not null"`
	EventKey  string    `gorm:"column:event_key;type:varchar(64);not null"`
	Payload   string    `gorm:"column:payload;type:text;not null"`
	Status    string    `gorm:"column:status;type:varchar(20);index;not null"`
	Attempts  int       `gorm:"column:attempts;not null"`
	LastError string    `gorm:"column:last_error;type:varchar(255)"`
	CreatedAt time.Time `gorm:"column:created_at;index"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName 指定表名
func (OutboxMessage) TableName() string {
	return "inventory_outbox_messages"
}

// OutboxEventPublisher 实现 domain.EventPublisher，事件与业务数据在同一事务提交
type OutboxEventPublisher struct {
	db *db.DB
}

// NewOutboxEventPublisher 创建 OutboxEventPublisher
func NewOutboxEventPublisher(database *db.DB) *OutboxEventPublisher {
	return &OutboxEventPublisher{db: database}
}

// Publish 写入一条待转发事件
func (p *OutboxEventPublisher) Publish(ctx context.Context, eventType, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", eventType, err)
	}
	msg := &OutboxMessage{
		ID:        uuid.NewString(),
		EventType: eventType,
		EventKey:  key,
		Payload:   string(payload),
		Status:    OutboxPending,
	}
	if err := p.db.Conn(ctx).Create(msg).Error; err != nil {
		return fmt.Errorf("write outbox %s: %w", eventType, err)
	}
	return nil
}

var _ domain.EventPublisher = (*OutboxEventPublisher)(nil)
