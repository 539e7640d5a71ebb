package application

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/smartstock/internal/inventory/domain"
	"github.com/wyfcoding/smartstock/internal/inventory/infrastructure/messaging"
	persistence "github.com/wyfcoding/smartstock/internal/inventory/infrastructure/persistence/mysql"
	"github.com/wyfcoding/smartstock/pkg/db"
	"github.com/wyfcoding/smartstock/pkg/metrics"
)

var testNow = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

type fixture struct {
	db         *db.DB
	products   domain.ProductRepository
	sales      domain.SaleRepository
	alerts     domain.AlertRepository
	movements  domain.MovementRepository
	reconciler *StockReconciler
	ledger     *SaleLedger
	commands   *ProductCommandService
	queries    *InventoryQueryService
	metrics    *metrics.Metrics
}

func newFixture(t *testing.T, mutate ...func(*SaleLedgerDeps)) *fixture {
	t.Helper()
	ctx := context.Background()
	d, err := db.Init(db.Config{Driver: "sqlite", DSN: ":memory:"})
	if err != nil {
		t.Fatalf("init sqlite: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	if err := persistence.Migrate(ctx, d, &messaging.OutboxMessage{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	m := metrics.New("smartstock-test")
	opts := TxOptions{Timeout: 5 * time.Second, MaxRetries: 3, InitialBackoff: time.Millisecond}
	clock := func() time.Time { return testNow }
	publisher := messaging.NewOutboxEventPublisher(d)

	f := &fixture{
		db:        d,
		products:  persistence.NewProductRepository(d),
		sales:     persistence.NewSaleRepository(d),
		alerts:    persistence.NewAlertRepository(d),
		movements: persistence.NewMovementRepository(d),
		metrics:   m,
	}
	categories := persistence.NewCategoryRepository(d)

	f.reconciler = NewStockReconciler(StockReconcilerDeps{
		Tx:        d,
		Products:  f.products,
		Alerts:    f.alerts,
		Movements: f.movements,
		Publisher: publisher,
		Metrics:   m,
		TxOptions: opts,
		Now:       clock,
	})
	ledgerDeps := SaleLedgerDeps{
		Tx:         d,
		Products:   f.products,
		Sales:      f.sales,
		Invoices:   persistence.NewInvoiceSequencer(d),
		Reconciler: f.reconciler,
		Publisher:  publisher,
		Metrics:    m,
		TxOptions:  opts,
		Now:        clock,
	}
	for _, fn := range mutate {
		fn(&ledgerDeps)
	}
	f.ledger = NewSaleLedger(ledgerDeps)
	f.commands = NewProductCommandService(ProductCommandDeps{
		Tx:              d,
		Products:        f.products,
		Categories:      categories,
		Sales:           f.sales,
		Alerts:          f.alerts,
		Movements:       f.movements,
		Reconciler:      f.reconciler,
		Metrics:         m,
		TxOptions:       opts,
		DefaultMinLevel: 5,
		Now:             clock,
	})
	f.queries = NewInventoryQueryService(f.products, categories, f.sales, f.alerts, f.movements)
	return f
}

func (f *fixture) addProduct(t *testing.T, name string, price string, stock, minLevel int) *domain.Product {
	t.Helper()
	p, err := f.commands.CreateProduct(context.Background(), CreateProductCommand{
		ActorID:       "admin",
		Name:          name,
		CostPrice:     decimal.RequireFromString(price).Div(decimal.NewFromInt(2)).Round(2),
		SellingPrice:  decimal.RequireFromString(price),
		StockQuantity: stock,
		MinStockLevel: &minLevel,
	})
	if err != nil {
		t.Fatalf("create product %s: %v", name, err)
	}
	return p
}

func (f *fixture) stock(t *testing.T, id uint) int {
	t.Helper()
	p, err := f.products.Get(context.Background(), id)
	if err != nil || p == nil {
		t.Fatalf("get product %d: %v", id, err)
	}
	return p.StockQuantity
}

func (f *fixture) unresolvedAlerts(t *testing.T, productID uint) []*domain.Alert {
	t.Helper()
	all, err := f.alerts.ListByProduct(context.Background(), productID)
	if err != nil {
		t.Fatalf("list alerts: %v", err)
	}
	var open []*domain.Alert
	for _, a := range all {
		if !a.Resolved {
			open = append(open, a)
		}
	}
	return open
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

func line(id uint, qty int, price string) SaleLineInput {
	return SaleLineInput{ProductID: id, Quantity: qty, UnitPrice: decimal.RequireFromString(price)}
}
