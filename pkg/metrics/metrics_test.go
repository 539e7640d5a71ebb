package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	return string(body)
}

func TestRecordSale(t *testing.T) {
	m := New("test")
	m.RecordSale(3, 45.5)
	m.RecordSale(1, 4.5)

	out := scrape(t, m)
	for _, want := range []string{
		`smartstock_sales_total{service="test"} 2`,
		`smartstock_sale_items_units_total{service="test"} 4`,
		`smartstock_sales_revenue_total{service="test"} 50`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordSale(1, 1)
	m.RecordAlertRaised()
	m.RecordHTTPRequest("GET", "/x", 200, time.Millisecond)
}

func TestHandlerExposesBusinessMetrics(t *testing.T) {
	m := New("test")
	m.RecordAlertRaised()
	m.RecordStockAdjustment("SALE")

	body := scrape(t, m)
	for _, want := range []string{
		"smartstock_low_stock_alerts_raised_total",
		`smartstock_stock_adjustments_total{service="test",type="SALE"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
