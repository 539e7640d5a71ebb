package application

import (
	"context"
	"errors"
	"testing"

	"github.com/wyfcoding/smartstock/internal/inventory/domain"
	persistence "github.com/wyfcoding/smartstock/internal/inventory/infrastructure/persistence/mysql"
)

func TestSearchProductsSkipsOutOfStockAndInactive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addProduct(t, "Green Tea", "3.00", 5, 1)
	f.addProduct(t, "Black Tea", "3.00", 0, 1)
	old := f.addProduct(t, "Iced Tea", "3.00", 5, 1)
	if err := f.commands.DeactivateProduct(ctx, old.ID); err != nil {
		t.Fatalf("DeactivateProduct: %v", err)
	}

	got, err := f.queries.SearchProducts(ctx, "tea")
	if err != nil {
		t.Fatalf("SearchProducts: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Green Tea" {
		t.Errorf("results = %+v", got)
	}
	if got, _ := f.queries.SearchProducts(ctx, "  "); len(got) != 0 {
		t.Errorf("blank query should return nothing, got %d", len(got))
	}
}

func TestListProductsLowStockFilter(t *testing.T) {
	f := newFixture(t)
	f.addProduct(t, "A", "1.00", 2, 5)
	f.addProduct(t, "B", "1.00", 50, 5)
	got, err := f.queries.ListProducts(context.Background(), domain.ProductFilter{LowStock: true})
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(got) != 1 || got[0].Name != "A" {
		t.Errorf("results = %+v", got)
	}
}

func TestGetSaleFallsBackForDeletedProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct(t, "Ghost", "1.00", 5, 1)
	r, err := f.ledger.SubmitSale(ctx, SubmitSaleCommand{
		ActorID: "c", Items: []SaleLineInput{line(p.ID, 1, "1.00")}, PaymentMode: "cash",
	})
	if err != nil {
		t.Fatalf("SubmitSale: %v", err)
	}
	if err := f.db.Delete(&persistence.ProductModel{}, p.ID).Error; err != nil {
		t.Fatalf("delete row: %v", err)
	}

	sale, err := f.queries.GetSale(ctx, r.SaleID)
	if err != nil {
		t.Fatalf("GetSale: %v", err)
	}
	if sale.Items[0].ProductName != domain.DeletedProductName {
		t.Errorf("name = %q", sale.Items[0].ProductName)
	}
	if _, err := f.queries.GetSale(ctx, 999); !errors.Is(err, domain.ErrSaleNotFound) {
		t.Errorf("err = %v, want SaleNotFound", err)
	}
}

func TestListRecentSalesNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct(t, "Cola", "1.50", 100, 1)
	for range 12 {
		if _, err := f.ledger.SubmitSale(ctx, SubmitSaleCommand{
			ActorID: "c", Items: []SaleLineInput{line(p.ID, 1, "1.50")}, PaymentMode: "cash",
		}); err != nil {
			t.Fatalf("SubmitSale: %v", err)
		}
	}
	got, err := f.queries.ListRecentSales(ctx)
	if err != nil {
		t.Fatalf("ListRecentSales: %v", err)
	}
	if len(got) != 10 {
		t.Fatalf("len = %d, want 10", len(got))
	}
	if got[0].InvoiceNo != "INV20260314012" || got[0].ItemCount != 1 {
		t.Errorf("newest = %+v", got[0])
	}
}

func TestFrequentlyBoughtWith(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	chips := f.addProduct(t, "Chips", "1.00", 50, 1)
	dip := f.addProduct(t, "Dip", "2.00", 50, 1)
	soda := f.addProduct(t, "Soda", "1.00", 50, 1)

	baskets := [][]SaleLineInput{
		{line(chips.ID, 1, "1.00"), line(dip.ID, 1, "2.00")},
		{line(chips.ID, 1, "1.00"), line(dip.ID, 1, "2.00")},
		{line(chips.ID, 1, "1.00"), line(soda.ID, 1, "1.00")},
	}
	for _, b := range baskets {
		if _, err := f.ledger.SubmitSale(ctx, SubmitSaleCommand{ActorID: "c", Items: b, PaymentMode: "cash"}); err != nil {
			t.Fatalf("SubmitSale: %v", err)
		}
	}

	got, err := f.queries.FrequentlyBoughtWith(ctx, chips.ID)
	if err != nil {
		t.Fatalf("FrequentlyBoughtWith: %v", err)
	}
	if got == nil || got.ID != dip.ID {
		t.Fatalf("got %+v, want Dip", got)
	}

	if _, err := f.commands.UpdateStock(ctx, UpdateStockCommand{ActorID: "admin", ProductID: dip.ID, Quantity: 0}); err != nil {
		t.Fatalf("UpdateStock: %v", err)
	}
	got, err = f.queries.FrequentlyBoughtWith(ctx, chips.ID)
	if err != nil {
		t.Fatalf("FrequentlyBoughtWith: %v", err)
	}
	if got == nil || got.ID != soda.ID {
		t.Fatalf("got %+v, want Soda", got)
	}
}

func TestProductSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct(t, "Honey", "8.00", 20, 4)
	if _, err := f.ledger.SubmitSale(ctx, SubmitSaleCommand{
		ActorID: "c", Items: []SaleLineInput{line(p.ID, 3, "8.00")}, PaymentMode: "card",
	}); err != nil {
		t.Fatalf("SubmitSale: %v", err)
	}
	snap, err := f.queries.ProductSnapshot(ctx, p.ID)
	if err != nil {
		t.Fatalf("ProductSnapshot: %v", err)
	}
	if snap.UnitsSold != 3 || snap.StockQuantity != 17 || snap.MinStockLevel != 4 {
		t.Errorf("snapshot = %+v", snap)
	}
}
