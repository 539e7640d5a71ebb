package db

import (
	"context"
	"errors"
	"fmt"
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

type widget struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func openTestDB(t *testing.T) *DB {
	t.Helper()
	d, err := Init(Config{Driver: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("init sqlite: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := d.AutoMigrate(&widget{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return d
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	if err := d.WithTx(ctx, func(ctx context.Context) error {
		return d.Conn(ctx).Create(&widget{Name: "kept"}).Error
	}); err != nil {
		t.Fatalf("commit: %v", err)
	}

	boom := errors.New("boom")
	err := d.WithTx(ctx, func(ctx context.Context) error {
		if err := d.Conn(ctx).Create(&widget{Name: "dropped"}).Error; err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	var count int64
	d.Conn(ctx).Model(&widget{}).Count(&count)
	if count != 1 {
		t.Fatalf("rows = %d, want 1", count)
	}
}

func TestWithTxJoinsOuterTransaction(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	err := d.WithTx(ctx, func(outer context.Context) error {
		outerTx, _ := TxFromContext(outer)
		if err := d.WithTx(outer, func(inner context.Context) error {
			innerTx, ok := TxFromContext(inner)
			if !ok || innerTx != outerTx {
				return fmt.Errorf("inner call did not join outer transaction")
			}
			return d.Conn(inner).Create(&widget{Name: "inner"}).Error
		}); err != nil {
			return err
		}
		return errors.New("abort outer")
	})
	if err == nil {
		t.Fatal("expected outer error")
	}

	var count int64
	d.Conn(ctx).Model(&widget{}).Count(&count)
	if count != 0 {
		t.Fatalf("inner write survived outer rollback: %d rows", count)
	}
}

func TestAfterCommitRunsOnlyOnCommit(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	var fired []string
	_ = d.WithTx(ctx, func(ctx context.Context) error {
		AfterCommit(ctx, func() { fired = append(fired, "committed") })
		return d.WithTx(ctx, func(ctx context.Context) error {
			AfterCommit(ctx, func() { fired = append(fired, "nested") })
			return nil
		})
	})
	_ = d.WithTx(ctx, func(ctx context.Context) error {
		AfterCommit(ctx, func() { fired = append(fired, "rolled back") })
		return errors.New("abort")
	})
	AfterCommit(ctx, func() { fired = append(fired, "no tx") })

	if fmt.Sprint(fired) != "[committed nested no tx]" {
		t.Fatalf("fired = %v", fired)
	}
}

func TestIsTransient(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{&mysqldriver.MySQLError{Number: 1213, Message: "Deadlock found"}, true},
		{fmt.Errorf("wrapped: %w", &mysqldriver.MySQLError{Number: 1205}), true},
		{&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry"}, false},
		{mysqldriver.ErrInvalidConn, true},
		{errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{gorm.ErrRecordNotFound, false},
	}
	for _, tc := range cases {
		if got := IsTransient(tc.err); got != tc.want {
			t.Errorf("IsTransient(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestIsDuplicateKey(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{fmt.Errorf("create alert: %w", gorm.ErrDuplicatedKey), true},
		{&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry"}, true},
		{&mysqldriver.MySQLError{Number: 1213, Message: "Deadlock found"}, false},
		{errors.New("UNIQUE constraint failed: alerts.open_key"), true},
		{gorm.ErrRecordNotFound, false},
	}
	for _, tc := range cases {
		if got := IsDuplicateKey(tc.err); got != tc.want {
			t.Errorf("IsDuplicateKey(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}
