package messaging

import (
	"context"
	"time"

	"github.com/wyfcoding/smartstock/pkg/db"
	"github.com/wyfcoding/smartstock/pkg/logger"
	"github.com/wyfcoding/smartstock/pkg/metrics"
	"github.com/wyfcoding/smartstock/pkg/mq"
	"gorm.io/gorm"
)

// OutboxRelay 轮询待发送事件并投递到 Kafka，投递失败的消息保留在表中等待下一轮
type OutboxRelay struct {
	db       *db.DB
	producer mq.Producer
	topic    string
	interval time.Duration
	batch    int
	metrics  *metrics.Metrics
}

// NewOutboxRelay 创建转发器
func NewOutboxRelay(database *db.DB, producer mq.Producer, topic string, interval time.Duration, batch int, m *metrics.Metrics) *OutboxRelay {
	if interval <= 0 {
		interval = time.Second
	}
	if batch <= 0 {
		batch = 100
	}
	return &OutboxRelay{db: database, producer: producer, topic: topic, interval: interval, batch: batch, metrics: m}
}

// Run 阻塞运行直到 ctx 取消
func (r *OutboxRelay) Run(ctx context.Context) error {
	logger.Info(ctx, "Outbox relay started", "topic", r.topic, "interval", r.interval)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info(context.Background(), "Outbox relay stopped")
			return nil
		case <-ticker.C:
			if _, err := r.RelayOnce(ctx); err != nil && ctx.Err() == nil {
				logger.Warn(ctx, "Outbox relay round failed", "error", err)
			}
		}
	}
}

// RelayOnce 投递一批待发送事件，返回成功数量
func (r *OutboxRelay) RelayOnce(ctx context.Context) (int, error) {
	var pending []OutboxMessage
	err := r.db.Conn(ctx).
		Where("status = ?", OutboxPending).
		Order("created_at ASC, id ASC").
		Limit(r.batch).
		Find(&pending).Error
	if err != nil || len(pending) == 0 {
		return 0, err
	}

	msgs := make([]mq.Message, 0, len(pending))
	ids := make([]string, 0, len(pending))
	for _, p := range pending {
		msgs = append(msgs, mq.Message{
			Key:     p.EventKey,
			Value:   []byte(p.Payload),
			Headers: map[string]string{"event_type": p.EventType, "event_id": p.ID},
		})
		ids = append(ids, p.ID)
	}

	if err := r.producer.Send(ctx, r.topic, msgs...); err != nil {
		r.metrics.RecordOutboxRelay("failed", len(ids))
		reason := err.Error()
		if len(reason) > 255 {
			reason = reason[:255]
		}
		if uerr := r.db.Conn(ctx).Model(&OutboxMessage{}).Where("id IN ?", ids).Updates(map[string]any{
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": reason,
		}).Error; uerr != nil {
			logger.Warn(ctx, "Failed to record outbox relay failure", "count", len(ids), "error", uerr)
		}
		return 0, err
	}

	if err := r.db.Conn(ctx).Model(&OutboxMessage{}).Where("id IN ?", ids).
		Update("status", OutboxSent).Error; err != nil {
		return 0, err
	}
	r.metrics.RecordOutboxRelay("sent", len(ids))
	logger.Debug(ctx, "Outbox messages relayed", "count", len(ids))
	return len(ids), nil
}
