package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bloomledger/internal/core/types"
)

func TestCollector_DomainCounters(t *testing.T) {
	c := New()

	c.ObserveOrderPlaced("Gangnam", types.MustMoney("50000"))
	c.ObserveOrderPlaced("Gangnam", types.MustMoney("12000"))
	c.ObserveOrderRejected("INSUFFICIENT_STOCK")
	c.ObserveOrderCanceled("Gangnam")
	c.ObserveStockMovement("out", -3)
	c.ObserveTxConflict("postgres")

	assert.Equal(t, 2.0, testutil.ToFloat64(c.ordersPlaced.WithLabelValues("Gangnam")))
	assert.Equal(t, 62000.0, testutil.ToFloat64(c.orderRevenue.WithLabelValues("Gangnam")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ordersRejected.WithLabelValues("INSUFFICIENT_STOCK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ordersCanceled.WithLabelValues("Gangnam")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.stockMoved.WithLabelValues("out")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.txConflicts.WithLabelValues("postgres")))
}

func TestCollector_MiddlewareAndHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := New()

	r := gin.New()
	r.Use(c.Middleware())
	r.GET("/items/:id", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })
	r.GET("/metrics", c.Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/42", nil))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("/items/:id", "GET", "200")))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "bloomledger_http_requests_total"))
	assert.True(t, strings.Contains(body, "go_goroutines"))
}
