// Package metrics 提供服务的 Prometheus 指标集合，使用独立 Registry 暴露
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "smartstock"

// Metrics 指标集合
type Metrics struct {
	registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	SalesTotal          prometheus.Counter
	SaleItemsTotal      prometheus.Counter
	SalesRevenue        prometheus.Counter
	SaleFailuresTotal   *prometheus.CounterVec
	StockAdjustments    *prometheus.CounterVec
	AlertsRaisedTotal   prometheus.Counter
	AlertsResolvedTotal prometheus.Counter
	TxRetriesTotal      prometheus.Counter
	AdvisorRequests     *prometheus.CounterVec
	OutboxRelayedTotal  *prometheus.CounterVec
}

// New 创建并注册指标
func New(serviceName string) *Metrics {
	reg := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": serviceName}

	m := &Metrics{
		registry: reg,
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "http_requests_total",
			Help: "Total HTTP requests", ConstLabels: constLabels,
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Name: "http_request_duration_seconds",
			Help: "HTTP request duration in seconds", ConstLabels: constLabels,
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		SalesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sales_total",
			Help: "Committed sales", ConstLabels: constLabels,
		}),
		SaleItemsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sale_items_units_total",
			Help: "Units sold across committed sales", ConstLabels: constLabels,
		}),
		SalesRevenue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sales_revenue_total",
			Help: "Recorded revenue of committed sales", ConstLabels: constLabels,
		}),
		SaleFailuresTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sale_failures_total",
			Help: "Rejected or failed sale submissions by error kind", ConstLabels: constLabels,
		}, []string{"kind"}),
		StockAdjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "stock_adjustments_total",
			Help: "Stock quantity changes by movement type", ConstLabels: constLabels,
		}, []string{"type"}),
		AlertsRaisedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "low_stock_alerts_raised_total",
			Help: "Low stock alerts created", ConstLabels: constLabels,
		}),
		AlertsResolvedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "low_stock_alerts_resolved_total",
			Help: "Low stock alerts resolved", ConstLabels: constLabels,
		}),
		TxRetriesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "tx_retries_total",
			Help: "Transactions retried after a transient store error", ConstLabels: constLabels,
		}),
		AdvisorRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "price_advisor_requests_total",
			Help: "Price advisor calls by result", ConstLabels: constLabels,
		}, []string{"result"}),
		OutboxRelayedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "outbox_relayed_total",
			Help: "Outbox messages relayed by result", ConstLabels: constLabels,
		}, []string{"result"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.SalesTotal,
		m.SaleItemsTotal,
		m.SalesRevenue,
		m.SaleFailuresTotal,
		m.StockAdjustments,
		m.AlertsRaisedTotal,
		m.AlertsResolvedTotal,
		m.TxRetriesTotal,
		m.AdvisorRequests,
		m.OutboxRelayedTotal,
	)
	return m
}

// Registry 返回底层 Registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回 /metrics 处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest 记录一次 HTTP 请求
func (m *Metrics) RecordHTTPRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// RecordSale 记录一笔已提交的销售
func (m *Metrics) RecordSale(units int, revenue float64) {
	if m == nil {
		return
	}
	m.SalesTotal.Inc()
	m.SaleItemsTotal.Add(float64(units))
	m.SalesRevenue.Add(revenue)
}

// RecordSaleFailure 按错误类别记录失败的销售
func (m *Metrics) RecordSaleFailure(kind string) {
	if m == nil {
		return
	}
	m.SaleFailuresTotal.WithLabelValues(kind).Inc()
}

// RecordStockAdjustment 记录库存变动
func (m *Metrics) RecordStockAdjustment(movementType string) {
	if m == nil {
		return
	}
	m.StockAdjustments.WithLabelValues(movementType).Inc()
}

// RecordAlertRaised 记录新建预警
func (m *Metrics) RecordAlertRaised() {
	if m == nil {
		return
	}
	m.AlertsRaisedTotal.Inc()
}

// RecordAlertsResolved 记录解除的预警数量
func (m *Metrics) RecordAlertsResolved(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.AlertsResolvedTotal.Add(float64(n))
}

// RecordTxRetry 记录事务重试
func (m *Metrics) RecordTxRetry() {
	if m == nil {
		return
	}
	m.TxRetriesTotal.Inc()
}

// RecordAdvisorRequest 记录定价建议调用结果：ok, cached, unavailable
func (m *Metrics) RecordAdvisorRequest(result string) {
	if m == nil {
		return
	}
	m.AdvisorRequests.WithLabelValues(result).Inc()
}

// RecordOutboxRelay 记录 outbox 转发结果
func (m *Metrics) RecordOutboxRelay(result string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.OutboxRelayedTotal.WithLabelValues(result).Add(float64(n))
}
