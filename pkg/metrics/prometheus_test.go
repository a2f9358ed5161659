package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestPrometheusHandlerFunc(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := prometheus.NewRegistry()
	p := NewPrometheus(PrometheusOptions{Registry: reg, MetricsList: BusinessMetrics})

	r := gin.New()
	r.Use(p.HandlerFunc())
	r.GET("/items/:id", func(c *gin.Context) { c.String(http.StatusOK, c.Param("id")) })

	for _, path := range []string{"/items/1", "/items/2", "/missing"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Equal(t, 2.0, testutil.ToFloat64(p.reqCnt.WithLabelValues("200", http.MethodGet, "/items/:id")))
	require.Equal(t, 1.0, testutil.ToFloat64(p.reqCnt.WithLabelValues("404", http.MethodGet, "unmatched")))
}

func TestBusinessMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheus(PrometheusOptions{Registry: reg, MetricsList: BusinessMetrics})

	IncAuditWriteFailure("history")
	IncAuditWriteFailure("history")
	ObserveBusinessProcess("subscription", "create", time.Now().Add(-10*time.Millisecond))

	counter := MetricsAuditWriteFailures.MetricCollector.(*prometheus.CounterVec)
	require.Equal(t, 2.0, testutil.ToFloat64(counter.WithLabelValues("history")))
	require.Equal(t, 1, testutil.CollectAndCount(MetricsBusinessProcess.MetricCollector, "bp_dur"))
}

func TestPrometheusServerExposesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(PrometheusOptions{Registry: reg, MetricsList: BusinessMetrics})
	IncAuditWriteFailure("transaction")

	srv := httptest.NewServer(p.Server("").Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `audit_write_failures{kind="transaction"} 1`)
}

func TestNewMetricUnknownType(t *testing.T) {
	require.Panics(t, func() {
		NewMetric(&Metric{Name: "x", Type: "histogram"}, "")
	})
}
