package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/wyfcoding/smartstock/internal/inventory/domain"
)

// fakeTx 直接调用 fn，不开启真实事务
type fakeTx struct {
	calls int
}

func (f *fakeTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	return fn(ctx)
}

func testRunner(tx domain.TxManager, retries int) *txRunner {
	return newTxRunner(tx, TxOptions{Timeout: time.Second, MaxRetries: retries, InitialBackoff: time.Millisecond}, nil)
}

func TestTxRunnerRetriesTransientErrors(t *testing.T) {
	tx := &fakeTx{}
	attempts := 0
	err := testRunner(tx, 3).Run(context.Background(), "op", func(context.Context) error {
		attempts++
		if attempts < 3 {
			return &mysqldriver.MySQLError{Number: 1213, Message: "Deadlock found"}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if attempts != 3 || tx.calls != 3 {
		t.Errorf("attempts = %d, calls = %d, want 3", attempts, tx.calls)
	}
}

func TestTxRunnerRetriesAlertRace(t *testing.T) {
	attempts := 0
	err := testRunner(&fakeTx{}, 2).Run(context.Background(), "op", func(context.Context) error {
		attempts++
		if attempts == 1 {
			return fmt.Errorf("%w: UNIQUE constraint failed: alerts.open_key", errAlertRace)
		}
		return nil
	})
	if err != nil || attempts != 2 {
		t.Fatalf("err = %v, attempts = %d", err, attempts)
	}
}

func TestTxRunnerExhaustedRetriesBecomeTransactionFailure(t *testing.T) {
	attempts := 0
	err := testRunner(&fakeTx{}, 2).Run(context.Background(), "submit sale", func(context.Context) error {
		attempts++
		return errors.New("database is locked")
	})
	if !errors.Is(err, domain.ErrTransactionFailure) {
		t.Fatalf("err = %v, want TransactionFailure", err)
	}
	if !domain.Retryable(err) {
		t.Error("transaction failure should be retryable")
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestTxRunnerDoesNotRetryDomainErrors(t *testing.T) {
	attempts := 0
	err := testRunner(&fakeTx{}, 3).Run(context.Background(), "op", func(context.Context) error {
		attempts++
		return domain.ProductNotFound(9)
	})
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("err = %v, want ProductNotFound", err)
	}
	if attempts != 1 {
		t.Errorf("attempts = %d, want 1", attempts)
	}
}

func TestTxRunnerPermanentErrorFailsOnce(t *testing.T) {
	attempts := 0
	err := testRunner(&fakeTx{}, 3).Run(context.Background(), "op", func(context.Context) error {
		attempts++
		return errors.New("syntax error")
	})
	if !errors.Is(err, domain.ErrTransactionFailure) || attempts != 1 {
		t.Fatalf("err = %v, attempts = %d", err, attempts)
	}
}
