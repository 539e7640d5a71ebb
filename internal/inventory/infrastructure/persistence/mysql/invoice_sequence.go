package mysql

import (
	"context"
	"fmt"
	"time"

	"github.com/wyfcoding/smartstock/internal/inventory/domain"
	"github.com/wyfcoding/smartstock/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type invoiceSequencer struct {
	db *db.DB
}

// NewInvoiceSequencer 创建发票序号生成器，必须在事务内调用
func NewInvoiceSequencer(database *db.DB) domain.InvoiceSequencer {
	return &invoiceSequencer{db: database}
}

// Next 锁定当日计数行并递增，序号随事务回滚而回退
func (s *invoiceSequencer) Next(ctx context.Context, day time.Time) (int, error) {
	if !db.InTx(ctx) {
		return 0, fmt.Errorf("invoice sequence requires a transaction")
	}
	key := day.Format("20060102")
	conn := s.db.Conn(ctx)

	if err := conn.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&InvoiceSequenceModel{Day: key, Seq: 0}).Error; err != nil {
		return 0, fmt.Errorf("failed to init invoice sequence %s: %w", key, err)
	}

	var m InvoiceSequenceModel
	if err := conn.Clauses(clause.Locking{Strength: "UPDATE"}).Where("day = ?", key).Take(&m).Error; err != nil {
		return 0, fmt.Errorf("failed to lock invoice sequence %s: %w", key, err)
	}
	if err := conn.Model(&InvoiceSequenceModel{}).Where("day = ?", key).
		Update("seq", gorm.Expr("seq + 1")).Error; err != nil {
		return 0, fmt.Errorf("failed to advance invoice sequence %s: %w", key, err)
	}
	return m.Seq + 1, nil
}
