// Package metrics exposes Prometheus collectors for the order engine, the
// stock ledger, the stores and HTTP traffic.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"bloomledger/internal/core/types"
)

const namespace = "bloomledger"

// Collector owns a private registry with all service metrics.
type Collector struct {
	registry *prometheus.Registry

	ordersPlaced   *prometheus.CounterVec
	orderRevenue   *prometheus.CounterVec
	ordersRejected *prometheus.CounterVec
	ordersCanceled *prometheus.CounterVec
	stockMoved     *prometheus.CounterVec
	txConflicts    *prometheus.CounterVec

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New creates a collector with Go and process collectors registered.
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		ordersPlaced: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_placed_total",
			Help:      "Orders committed, by branch.",
		}, []string{"branch"}),
		orderRevenue: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_revenue_total",
			Help:      "Sum of placed order totals in whole currency units, by branch.",
		}, []string{"branch"}),
		ordersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_rejected_total",
			Help:      "Order placements that failed, by error code.",
		}, []string{"reason"}),
		ordersCanceled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_canceled_total",
			Help:      "Orders canceled, by branch.",
		}, []string{"branch"}),
		stockMoved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stock_moved_units_total",
			Help:      "Absolute stock units moved, by direction.",
		}, []string{"direction"}),
		txConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tx_conflicts_total",
			Help:      "Transaction attempts retried after a conflict, by store.",
		}, []string{"store"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests, by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency, by route and method.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}

	c.registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		c.ordersPlaced, c.orderRevenue, c.ordersRejected, c.ordersCanceled,
		c.stockMoved, c.txConflicts,
		c.httpRequests, c.httpDuration,
	)
	return c
}

// Registry exposes the registry for extra collectors (pool stats).
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveOrderPlaced implements order.Metrics.
func (c *Collector) ObserveOrderPlaced(branch string, total types.Money) {
	c.ordersPlaced.WithLabelValues(branch).Inc()
	if f, _ := total.Float64(); f > 0 {
		c.orderRevenue.WithLabelValues(branch).Add(f)
	}
}

// ObserveOrderRejected implements order.Metrics.
func (c *Collector) ObserveOrderRejected(reason string) {
	c.ordersRejected.WithLabelValues(reason).Inc()
}

// ObserveOrderCanceled implements order.Metrics.
func (c *Collector) ObserveOrderCanceled(branch string) {
	c.ordersCanceled.WithLabelValues(branch).Inc()
}

// ObserveStockMovement implements stockledger.Metrics.
func (c *Collector) ObserveStockMovement(direction string, quantity int64) {
	if quantity < 0 {
		quantity = -quantity
	}
	c.stockMoved.WithLabelValues(direction).Add(float64(quantity))
}

// ObserveTxConflict implements the stores' ConflictObserver.
func (c *Collector) ObserveTxConflict(store string) {
	c.txConflicts.WithLabelValues(store).Inc()
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() gin.HandlerFunc {
	h := promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
	return gin.WrapH(h)
}

// Middleware records request counts and latency by route template.
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method
		c.httpRequests.WithLabelValues(route, method, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
	}
}
