// Package application 编排库存上下文的用例：销售入账、库存与预警对账、商品维护与查询
package application

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/wyfcoding/smartstock/internal/inventory/domain"
	"github.com/wyfcoding/smartstock/pkg/db"
	"github.com/wyfcoding/smartstock/pkg/logger"
	"github.com/wyfcoding/smartstock/pkg/metrics"
)

// errAlertRace 并发事务抢先创建了未解除预警，重试后会走更新分支
var errAlertRace = errors.New("concurrent unresolved alert insert")

// TxOptions 事务执行参数
type TxOptions struct {
	// 单次尝试的超时
	Timeout time.Duration
	// 瞬时错误的额外重试次数
	MaxRetries int
	// 重试退避的初始间隔
	InitialBackoff time.Duration
}

func (o TxOptions) withDefaults() TxOptions {
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 20 * time.Millisecond
	}
	return o
}

// txRunner 以有界时长执行事务，瞬时错误按指数退避重试，最终失败统一映射为 TransactionFailure
type txRunner struct {
	tx      domain.TxManager
	opts    TxOptions
	metrics *metrics.Metrics
}

func newTxRunner(tx domain.TxManager, opts TxOptions, m *metrics.Metrics) *txRunner {
	return &txRunner{tx: tx, opts: opts.withDefaults(), metrics: m}
}

func (r *txRunner) Run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if db.InTx(ctx) {
		return r.tx.WithTx(ctx, fn)
	}

	attempt := 0
	operation := func() (struct{}, error) {
		attempt++
		txCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()

		err := r.tx.WithTx(txCtx, fn)
		if err == nil {
			return struct{}{}, nil
		}
		if _, ok := domain.KindOf(err); ok {
			return struct{}{}, backoff.Permanent(err)
		}
		if ctx.Err() == nil && (errors.Is(err, errAlertRace) || errors.Is(err, context.DeadlineExceeded) || db.IsTransient(err)) {
			r.metrics.RecordTxRetry()
			logger.Warn(ctx, "Transaction hit transient error", "op", op, "attempt", attempt, "error", err)
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.opts.InitialBackoff
	b.MaxInterval = 20 * r.opts.InitialBackoff
	_, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(r.opts.MaxRetries+1)),
	)
	if err == nil {
		return nil
	}
	if _, ok := domain.KindOf(err); ok {
		return err
	}
	logger.Error(ctx, "Transaction failed", "op", op, "attempts", attempt, "error", err)
	return domain.NewError(domain.KindTransactionFailure, op+" could not be committed", err)
}
