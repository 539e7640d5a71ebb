package application

import (
	"context"
	"errors"
	"testing"

	"github.com/wyfcoding/smartstock/internal/inventory/domain"
)

func TestApplyDeltaRestockResolvesAlert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct(t, "Oil", "6.00", 3, 5)

	if n := len(f.unresolvedAlerts(t, p.ID)); n != 1 {
		t.Fatalf("alerts after create = %d, want 1", n)
	}
	qty, err := f.reconciler.ApplyDelta(ctx, p.ID, 10, domain.StockChange{Type: domain.MovementAdjustment, Reason: "delivery", ActorID: "admin"})
	if err != nil {
		t.Fatalf("ApplyDelta: %v", err)
	}
	if qty != 13 {
		t.Errorf("quantity = %d, want 13", qty)
	}
	if n := len(f.unresolvedAlerts(t, p.ID)); n != 0 {
		t.Errorf("unresolved alerts = %d, want 0", n)
	}
	all, _ := f.alerts.ListByProduct(ctx, p.ID)
	if len(all) != 1 || all[0].ResolvedAt == nil {
		t.Errorf("resolved alert should be kept with a timestamp: %+v", all)
	}
}

func TestAlertRaisedAgainAfterResolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct(t, "Flour", "2.00", 3, 5)

	steps := []int{10, -10, 10, -10}
	for _, d := range steps {
		if _, err := f.reconciler.ApplyDelta(ctx, p.ID, d, domain.StockChange{}); err != nil {
			t.Fatalf("ApplyDelta(%d): %v", d, err)
		}
	}
	all, err := f.alerts.ListByProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListByProduct: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("alerts = %d, want 3", len(all))
	}
	if n := len(f.unresolvedAlerts(t, p.ID)); n != 1 {
		t.Errorf("unresolved alerts = %d, want 1", n)
	}
}

func TestSetQuantityRecordsMovement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct(t, "Sugar", "1.10", 12, 2)

	if _, err := f.reconciler.SetQuantity(ctx, p.ID, 4, domain.StockChange{Reason: "stock take", ActorID: "admin"}); err != nil {
		t.Fatalf("SetQuantity: %v", err)
	}
	mvs, err := f.movements.ListByProduct(ctx, p.ID, 10)
	if err != nil {
		t.Fatalf("ListByProduct: %v", err)
	}
	if len(mvs) != 2 {
		t.Fatalf("movements = %d, want 2", len(mvs))
	}
	latest := mvs[0]
	if latest.Type != domain.MovementAdjustment || latest.Before != 12 || latest.After != 4 || latest.Delta != -8 {
		t.Errorf("latest movement = %+v", latest)
	}
	if mvs[1].Type != domain.MovementInitial || mvs[1].After != 12 {
		t.Errorf("initial movement = %+v", mvs[1])
	}
}

func TestReevaluateThreshold(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.addProduct(t, "Tape", "3.00", 8, 5)

	if err := f.reconciler.ReevaluateThreshold(ctx, p.ID, 10); err != nil {
		t.Fatalf("raise threshold: %v", err)
	}
	open := f.unresolvedAlerts(t, p.ID)
	if len(open) != 1 || open[0].Message != domain.LowStockMessage(8, 10) {
		t.Fatalf("after raise: %+v", open)
	}

	if err := f.reconciler.ReevaluateThreshold(ctx, p.ID, 9); err != nil {
		t.Fatalf("lower threshold: %v", err)
	}
	open = f.unresolvedAlerts(t, p.ID)
	if len(open) != 1 || open[0].Message != domain.LowStockMessage(8, 9) {
		t.Fatalf("after refresh: %+v", open)
	}

	if err := f.reconciler.ReevaluateThreshold(ctx, p.ID, 3); err != nil {
		t.Fatalf("lower threshold: %v", err)
	}
	if n := len(f.unresolvedAlerts(t, p.ID)); n != 0 {
		t.Errorf("unresolved alerts = %d, want 0", n)
	}
	got, _ := f.products.Get(ctx, p.ID)
	if got.MinStockLevel != 3 {
		t.Errorf("min level = %d, want 3", got.MinStockLevel)
	}
}

func TestReconcilerUnknownProduct(t *testing.T) {
	f := newFixture(t)
	_, err := f.reconciler.ApplyDelta(context.Background(), 404, 1, domain.StockChange{})
	if !errors.Is(err, domain.ErrProductNotFound) {
		t.Fatalf("err = %v, want ProductNotFound", err)
	}
	if err := f.reconciler.ReevaluateThreshold(context.Background(), 1, -1); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}
