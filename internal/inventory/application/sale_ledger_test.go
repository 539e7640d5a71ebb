package application

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/smartstock/internal/inventory/domain"
	"github.com/wyfcoding/smartstock/internal/inventory/infrastructure/messaging"
	persistence "github.com/wyfcoding/smartstock/internal/inventory/infrastructure/persistence/mysql"
	"github.com/wyfcoding/smartstock/pkg/config"
)

func TestSubmitSaleDecrementsStockAndRecordsItems(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tea := f.addProduct(t, "Tea", "4.50", 20, 5)
	milk := f.addProduct(t, "Milk", "1.20", 10, 2)

	receipt, err := f.ledger.SubmitSale(ctx, SubmitSaleCommand{
		ActorID:     "cashier-1",
		Items:       []SaleLineInput{line(tea.ID, 3, "4.50"), line(milk.ID, 2, "1.20")},
		PaymentMode: "cash",
	})
	if err != nil {
		t.Fatalf("SubmitSale: %v", err)
	}
	if want := decimal.RequireFromString("15.90"); !receipt.TotalAmount.Equal(want) {
		t.Errorf("total = %s, want %s", receipt.TotalAmount, want)
	}
	if receipt.InvoiceNo != "INV20260314001" {
		t.Errorf("invoice = %s, want INV20260314001", receipt.InvoiceNo)
	}
	if got := f.stock(t, tea.ID); got != 17 {
		t.Errorf("tea stock = %d, want 17", got)
	}
	if got := f.stock(t, milk.ID); got != 8 {
		t.Errorf("milk stock = %d, want 8", got)
	}

	sale, err := f.queries.GetSale(ctx, receipt.SaleID)
	if err != nil {
		t.Fatalf("GetSale: %v", err)
	}
	if len(sale.Items) != 2 || sale.Items[0].ProductName != "Tea" || sale.Items[0].Quantity != 3 {
		t.Fatalf("unexpected items: %+v", sale.Items)
	}
	if sale.ActorID != "cashier-1" {
		t.Errorf("actor = %s", sale.ActorID)
	}
}

func TestSubmitSaleKeepsPriceSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct(t, "Bread", "2.00", 10, 1)

	receipt, err := f.ledger.SubmitSale(ctx, SubmitSaleCommand{
		ActorID: "c", Items: []SaleLineInput{line(p.ID, 1, "1.75")}, PaymentMode: "card",
	})
	if err != nil {
		t.Fatalf("SubmitSale: %v", err)
	}
	if _, err := f.commands.UpdateProduct(ctx, UpdateProductCommand{
		ProductID: p.ID, Name: "Bread", SellingPrice: decimal.RequireFromString("3.00"),
	}); err != nil {
		t.Fatalf("UpdateProduct: %v", err)
	}

	sale, err := f.queries.GetSale(ctx, receipt.SaleID)
	if err != nil {
		t.Fatalf("GetSale: %v", err)
	}
	if !sale.Items[0].UnitPrice.Equal(decimal.RequireFromString("1.75")) {
		t.Errorf("unit price = %s, want 1.75", sale.Items[0].UnitPrice)
	}
}

func TestSubmitSaleIsAtomicWhenAProductIsMissing(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Soap", "3.00", 10, 2)
	outboxBefore := f.count(t, &messaging.OutboxMessage{})

	_, err := f.ledger.SubmitSale(context.Background(), SubmitSaleCommand{
		ActorID:     "c",
		Items:       []SaleLineInput{line(p.ID, 2, "3.00"), line(9999, 1, "1.00")},
		PaymentMode: "cash",
	})
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("err = %v, want ProductNotFound", err)
	}
	var de *domain.Error
	if !errors.As(err, &de) || de.ProductID != 9999 {
		t.Fatalf("error should name product 9999: %v", err)
	}
	if got := f.stock(t, p.ID); got != 10 {
		t.Errorf("stock = %d, want 10", got)
	}
	if n := f.count(t, &persistence.SaleModel{}); n != 0 {
		t.Errorf("sales = %d, want 0", n)
	}
	if n := f.count(t, &persistence.SaleItemModel{}); n != 0 {
		t.Errorf("sale items = %d, want 0", n)
	}
	if n := f.count(t, &messaging.OutboxMessage{}); n != outboxBefore {
		t.Errorf("outbox grew from %d to %d", outboxBefore, n)
	}
}

func TestSubmitSaleValidation(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Rice", "9.99", 10, 2)

	tests := []struct {
		name string
		cmd  SubmitSaleCommand
		want string
	}{
		{"empty", SubmitSaleCommand{ActorID: "c", PaymentMode: "cash"}, "at least one item"},
		{"zero quantity", SubmitSaleCommand{ActorID: "c", Items: []SaleLineInput{line(p.ID, 0, "9.99")}, PaymentMode: "cash"}, "InvalidQuantity"},
		{"negative quantity", SubmitSaleCommand{ActorID: "c", Items: []SaleLineInput{line(p.ID, -2, "9.99")}, PaymentMode: "cash"}, "InvalidQuantity"},
		{"payment mode", SubmitSaleCommand{ActorID: "c", Items: []SaleLineInput{line(p.ID, 1, "9.99")}, PaymentMode: "cheque"}, "payment mode"},
		{"no actor", SubmitSaleCommand{Items: []SaleLineInput{line(p.ID, 1, "9.99")}, PaymentMode: "cash"}, "actor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ledger.SubmitSale(context.Background(), tt.cmd)
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("err = %v, want ValidationError", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("err = %q, want mention of %q", err, tt.want)
			}
		})
	}
	if got := f.stock(t, p.ID); got != 10 {
		t.Errorf("stock = %d, want 10", got)
	}
}

func TestSubmitSaleSubtotalMatchesQuantityTimesPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct(t, "Candy", "0.34", 10, 1)

	_, err := f.ledger.SubmitSale(ctx, SubmitSaleCommand{
		ActorID: "c", Items: []SaleLineInput{line(p.ID, 3, "0.335")}, PaymentMode: "cash",
	})
	if !errors.Is(err, domain.ErrValidation) || !strings.Contains(err.Error(), "decimal places") {
		t.Fatalf("err = %v, want ValidationError for sub-cent price", err)
	}
	if n := f.count(t, &persistence.SaleModel{}); n != 0 {
		t.Fatalf("sales = %d, want 0", n)
	}
	if got := f.stock(t, p.ID); got != 10 {
		t.Fatalf("stock = %d, want 10", got)
	}

	receipt, err := f.ledger.SubmitSale(ctx, SubmitSaleCommand{
		ActorID: "c", Items: []SaleLineInput{line(p.ID, 3, "0.33")}, PaymentMode: "cash",
	})
	if err != nil {
		t.Fatalf("SubmitSale: %v", err)
	}
	sale, err := f.queries.GetSale(ctx, receipt.SaleID)
	if err != nil {
		t.Fatalf("GetSale: %v", err)
	}
	it := sale.Items[0]
	if want := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))); !it.Subtotal.Equal(want) {
		t.Errorf("subtotal %s != quantity*unit_price %s", it.Subtotal, want)
	}
	if !sale.TotalAmount.Equal(decimal.RequireFromString("0.99")) {
		t.Errorf("total = %s, want 0.99", sale.TotalAmount)
	}
}

func TestSubmitSaleRejectsInactiveProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct(t, "Old", "1.00", 10, 1)
	if err := f.commands.DeactivateProduct(ctx, p.ID); err != nil {
		t.Fatalf("DeactivateProduct: %v", err)
	}
	_, err := f.ledger.SubmitSale(ctx, SubmitSaleCommand{
		ActorID: "c", Items: []SaleLineInput{line(p.ID, 1, "1.00")}, PaymentMode: "cash",
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestSubmitSaleAllowsNegativeStockAndRaisesAlert(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Eggs", "0.30", 2, 1)

	if _, err := f.ledger.SubmitSale(context.Background(), SubmitSaleCommand{
		ActorID: "c", Items: []SaleLineInput{line(p.ID, 5, "0.30")}, PaymentMode: "upi",
	}); err != nil {
		t.Fatalf("SubmitSale: %v", err)
	}
	if got := f.stock(t, p.ID); got != -3 {
		t.Errorf("stock = %d, want -3", got)
	}
	open := f.unresolvedAlerts(t, p.ID)
	if len(open) != 1 {
		t.Fatalf("unresolved alerts = %d, want 1", len(open))
	}
	if open[0].Message != "Low stock: -3 units remaining (min: 1)" {
		t.Errorf("message = %q", open[0].Message)
	}
}

func TestRepeatedSalesKeepSingleAlertWithLatestMessage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct(t, "Juice", "2.00", 8, 5)

	for _, qty := range []int{4, 1, 1} {
		if _, err := f.ledger.SubmitSale(ctx, SubmitSaleCommand{
			ActorID: "c", Items: []SaleLineInput{line(p.ID, qty, "2.00")}, PaymentMode: "cash",
		}); err != nil {
			t.Fatalf("SubmitSale: %v", err)
		}
	}
	open := f.unresolvedAlerts(t, p.ID)
	if len(open) != 1 {
		t.Fatalf("unresolved alerts = %d, want 1", len(open))
	}
	if open[0].Message != domain.LowStockMessage(2, 5) {
		t.Errorf("message = %q", open[0].Message)
	}
}

func TestSaleExactlyAtThresholdRaisesAlert(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Chips", "1.00", 10, 5)
	if _, err := f.ledger.SubmitSale(context.Background(), SubmitSaleCommand{
		ActorID: "c", Items: []SaleLineInput{line(p.ID, 5, "1.00")}, PaymentMode: "cash",
	}); err != nil {
		t.Fatalf("SubmitSale: %v", err)
	}
	if n := len(f.unresolvedAlerts(t, p.ID)); n != 1 {
		t.Fatalf("unresolved alerts = %d, want 1", n)
	}
}

func TestDuplicateLinesDecrementOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct(t, "Pen", "0.50", 10, 1)

	receipt, err := f.ledger.SubmitSale(ctx, SubmitSaleCommand{
		ActorID:     "c",
		Items:       []SaleLineInput{line(p.ID, 2, "0.50"), line(p.ID, 3, "0.50")},
		PaymentMode: "cash",
	})
	if err != nil {
		t.Fatalf("SubmitSale: %v", err)
	}
	if got := f.stock(t, p.ID); got != 5 {
		t.Errorf("stock = %d, want 5", got)
	}
	if len(receipt.Items) != 2 {
		t.Errorf("items = %d, want 2", len(receipt.Items))
	}
	mvs, err := f.queries.ListStockMovements(ctx, p.ID, 0)
	if err != nil {
		t.Fatalf("ListStockMovements: %v", err)
	}
	if mvs[0].Type != domain.MovementSale || mvs[0].Delta != -5 || mvs[0].Reference != receipt.InvoiceNo {
		t.Errorf("latest movement = %+v", mvs[0])
	}
}

func TestInvoiceNumbersIncrementWithinDay(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Gum", "0.10", 100, 1)

	var got []string
	for range 3 {
		r, err := f.ledger.SubmitSale(context.Background(), SubmitSaleCommand{
			ActorID: "c", Items: []SaleLineInput{line(p.ID, 1, "0.10")}, PaymentMode: "wallet",
		})
		if err != nil {
			t.Fatalf("SubmitSale: %v", err)
		}
		got = append(got, r.InvoiceNo)
	}
	want := []string{"INV20260314001", "INV20260314002", "INV20260314003"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("invoice[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestTotalPolicy(t *testing.T) {
	claimed := decimal.RequireFromString("9.00")

	t.Run("verify rejects mismatch", func(t *testing.T) {
		f := newFixture(t)
		p := f.addProduct(t, "Cake", "5.00", 10, 1)
		_, err := f.ledger.SubmitSale(context.Background(), SubmitSaleCommand{
			ActorID: "c", Items: []SaleLineInput{line(p.ID, 2, "5.00")}, PaymentMode: "cash", TotalAmount: &claimed,
		})
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("err = %v, want ValidationError", err)
		}
		if got := f.stock(t, p.ID); got != 10 {
			t.Errorf("stock = %d, want 10", got)
		}
	})

	t.Run("verify accepts match", func(t *testing.T) {
		f := newFixture(t)
		p := f.addProduct(t, "Cake", "5.00", 10, 1)
		ok := decimal.RequireFromString("10.00")
		r, err := f.ledger.SubmitSale(context.Background(), SubmitSaleCommand{
			ActorID: "c", Items: []SaleLineInput{line(p.ID, 2, "5.00")}, PaymentMode: "cash", TotalAmount: &ok,
		})
		if err != nil {
			t.Fatalf("SubmitSale: %v", err)
		}
		if !r.TotalAmount.Equal(ok) {
			t.Errorf("total = %s", r.TotalAmount)
		}
	})

	t.Run("trust keeps caller total", func(t *testing.T) {
		f := newFixture(t, func(d *SaleLedgerDeps) { d.TotalPolicy = config.TotalPolicyTrust })
		p := f.addProduct(t, "Cake", "5.00", 10, 1)
		r, err := f.ledger.SubmitSale(context.Background(), SubmitSaleCommand{
			ActorID: "c", Items: []SaleLineInput{line(p.ID, 2, "5.00")}, PaymentMode: "cash", TotalAmount: &claimed,
		})
		if err != nil {
			t.Fatalf("SubmitSale: %v", err)
		}
		if !r.TotalAmount.Equal(claimed) {
			t.Errorf("total = %s, want %s", r.TotalAmount, claimed)
		}
	})
}

func TestSubmitSaleWritesOutboxEvents(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Salt", "0.80", 6, 5)
	if _, err := f.ledger.SubmitSale(context.Background(), SubmitSaleCommand{
		ActorID: "c", Items: []SaleLineInput{line(p.ID, 1, "0.80")}, PaymentMode: "cash",
	}); err != nil {
		t.Fatalf("SubmitSale: %v", err)
	}
	var types []string
	if err := f.db.Model(&messaging.OutboxMessage{}).Order("created_at ASC").Pluck("event_type", &types).Error; err != nil {
		t.Fatalf("pluck: %v", err)
	}
	want := map[string]bool{domain.EventSaleCompleted: false, domain.EventLowStockAlertRaised: false}
	for _, typ := range types {
		if _, ok := want[typ]; ok {
			want[typ] = true
		}
	}
	for typ, seen := range want {
		if !seen {
			t.Errorf("missing outbox event %s in %v", typ, types)
		}
	}
}

// sqlite 单连接下事务串行执行，这里只验证库存守恒与单条预警；
// 行锁争用与 open_key 冲突重试需要在 MySQL 上验证
func TestConcurrentSalesConserveStockAndRaiseOneAlert(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Water", "1.00", 30, 10)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := range workers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.ledger.SubmitSale(context.Background(), SubmitSaleCommand{
				ActorID: "c", Items: []SaleLineInput{line(p.ID, 3, "1.00")}, PaymentMode: "cash",
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("SubmitSale: %v", err)
		}
	}

	if got := f.stock(t, p.ID); got != 30-workers*3 {
		t.Errorf("stock = %d, want %d", got, 30-workers*3)
	}
	if n := len(f.unresolvedAlerts(t, p.ID)); n != 1 {
		t.Errorf("unresolved alerts = %d, want 1", n)
	}
	if n := f.count(t, &persistence.SaleModel{}); n != workers {
		t.Errorf("sales = %d, want %d", n, workers)
	}
}
