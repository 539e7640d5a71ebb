package application

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/smartstock/internal/inventory/domain"
	"github.com/wyfcoding/smartstock/pkg/config"
	"github.com/wyfcoding/smartstock/pkg/logger"
	"github.com/wyfcoding/smartstock/pkg/metrics"
)

// SaleLedger 销售入账：在一个事务内写入销售、销售行并扣减库存，要么全部生效要么全部回滚
type SaleLedger struct {
	runner       *txRunner
	products     domain.ProductRepository
	sales        domain.SaleRepository
	invoices     domain.InvoiceSequencer
	reconciler   *StockReconciler
	publisher    domain.EventPublisher
	metrics      *metrics.Metrics
	totalPolicy  string
	paymentModes []domain.PaymentMode
	now          func() time.Time
}

// SaleLedgerDeps 依赖集合
type SaleLedgerDeps struct {
	Tx         domain.TxManager
	Products   domain.ProductRepository
	Sales      domain.SaleRepository
	Invoices   domain.InvoiceSequencer
	Reconciler *StockReconciler
	Publisher  domain.EventPublisher
	Metrics    *metrics.Metrics
	TxOptions  TxOptions
	// verify 或 trust，默认 verify
	TotalPolicy  string
	PaymentModes []string
	Now          func() time.Time
}

// NewSaleLedger 创建 SaleLedger
func NewSaleLedger(d SaleLedgerDeps) *SaleLedger {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	policy := d.TotalPolicy
	if policy == "" {
		policy = config.TotalPolicyVerify
	}
	modes := make([]domain.PaymentMode, 0, len(d.PaymentModes))
	for _, m := range d.PaymentModes {
		modes = append(modes, domain.PaymentMode(m))
	}
	if len(modes) == 0 {
		modes = []domain.PaymentMode{domain.PaymentCash, domain.PaymentCard, domain.PaymentUPI, domain.PaymentWallet}
	}
	return &SaleLedger{
		runner:       newTxRunner(d.Tx, d.TxOptions, d.Metrics),
		products:     d.Products,
		sales:        d.Sales,
		invoices:     d.Invoices,
		reconciler:   d.Reconciler,
		publisher:    d.Publisher,
		metrics:      d.Metrics,
		totalPolicy:  policy,
		paymentModes: modes,
		now:          now,
	}
}

// SubmitSale 提交一笔销售
func (l *SaleLedger) SubmitSale(ctx context.Context, cmd SubmitSaleCommand) (*SaleReceipt, error) {
	defer logger.LogDuration(ctx, "SubmitSale finished", "items", len(cmd.Items))()

	receipt, err := l.submit(ctx, cmd)
	if err != nil {
		kind, _ := domain.KindOf(err)
		l.metrics.RecordSaleFailure(string(kind))
		logger.Warn(ctx, "Sale rejected", "actor_id", cmd.ActorID, "kind", kind, "error", err)
		return nil, err
	}

	units := 0
	for _, it := range receipt.Items {
		units += it.Quantity
	}
	l.metrics.RecordSale(units, receipt.TotalAmount.InexactFloat64())
	logger.Info(ctx, "Sale completed",
		"sale_id", receipt.SaleID,
		"invoice_no", receipt.InvoiceNo,
		"total", receipt.TotalAmount.StringFixed(2),
		"payment_mode", receipt.PaymentMode,
		"units", units,
	)
	return receipt, nil
}

func (l *SaleLedger) submit(ctx context.Context, cmd SubmitSaleCommand) (*SaleReceipt, error) {
	if cmd.ActorID == "" {
		return nil, domain.NewError(domain.KindValidation, "actor is required", nil)
	}
	lines := make([]domain.SaleLine, 0, len(cmd.Items))
	for _, it := range cmd.Items {
		lines = append(lines, domain.SaleLine{ProductID: it.ProductID, Quantity: it.Quantity, UnitPrice: it.UnitPrice})
	}
	mode := domain.PaymentMode(cmd.PaymentMode)
	if err := domain.ValidateSaleLines(lines, mode, l.paymentModes); err != nil {
		return nil, err
	}

	_, computed := domain.BuildSaleItems(lines)
	total, err := l.resolveTotal(ctx, cmd.TotalAmount, computed)
	if err != nil {
		return nil, err
	}
	ids, qty := domain.QuantityByProduct(lines)

	var sale *domain.Sale
	err = l.runner.Run(ctx, "submit sale", func(ctx context.Context) error {
		locked, err := l.products.LockForUpdate(ctx, ids)
		if err != nil {
			return err
		}
		for _, id := range ids {
			p, ok := locked[id]
			if !ok {
				return domain.ProductNotFound(id)
			}
			if !p.Active {
				return &domain.Error{
					Kind:      domain.KindValidation,
					Message:   fmt.Sprintf("product %d is inactive", id),
					ProductID: id,
				}
			}
		}

		now := l.now()
		seq, err := l.invoices.Next(ctx, now)
		if err != nil {
			return err
		}
		items, _ := domain.BuildSaleItems(lines)
		s := &domain.Sale{
			InvoiceNo:   domain.FormatInvoiceNo(now, seq),
			TotalAmount: total,
			PaymentMode: mode,
			ActorID:     cmd.ActorID,
			CreatedAt:   now,
			Items:       items,
		}
		if err := l.sales.Create(ctx, s); err != nil {
			return err
		}

		units := 0
		for _, id := range ids {
			units += qty[id]
			if _, err := l.reconciler.ApplyDelta(ctx, id, -qty[id], domain.StockChange{
				Type:      domain.MovementSale,
				Reason:    "Sale",
				ActorID:   cmd.ActorID,
				Reference: s.InvoiceNo,
			}); err != nil {
				return err
			}
		}

		if l.publisher != nil {
			if err := l.publisher.Publish(ctx, domain.EventSaleCompleted, s.InvoiceNo, domain.SaleCompletedEvent{
				SaleID:      s.ID,
				InvoiceNo:   s.InvoiceNo,
				TotalAmount: s.TotalAmount.StringFixed(2),
				PaymentMode: string(s.PaymentMode),
				ActorID:     s.ActorID,
				Units:       units,
				OccurredOn:  now,
			}); err != nil {
				return err
			}
		}
		sale = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return newSaleReceipt(sale), nil
}

// resolveTotal 按策略处理调用方提交的合计金额
func (l *SaleLedger) resolveTotal(ctx context.Context, claimed *decimal.Decimal, computed decimal.Decimal) (decimal.Decimal, error) {
	if claimed == nil {
		return computed, nil
	}
	if claimed.IsNegative() {
		return decimal.Zero, domain.NewError(domain.KindValidation, "total amount must not be negative", nil)
	}
	if claimed.Round(2).Equal(computed.Round(2)) {
		return computed, nil
	}
	if l.totalPolicy == config.TotalPolicyTrust {
		logger.Warn(ctx, "Caller total differs from line items",
			"claimed", claimed.StringFixed(2), "computed", computed.StringFixed(2))
		return claimed.Round(2), nil
	}
	return decimal.Zero, domain.NewError(domain.KindValidation,
		fmt.Sprintf("total amount %s does not match line items %s", claimed.StringFixed(2), computed.StringFixed(2)), nil)
}
