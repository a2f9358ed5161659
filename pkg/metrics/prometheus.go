package metrics

// HTTP middleware adapted from github.com/zsais/go-gin-prometheus.

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var reqCnt = &Metric{
	ID:          "reqCnt",
	Name:        "req_total",
	Description: "How many HTTP requests processed, partitioned by status code, method and route.",
	Type:        TypeCounterVec,
	Args:        []string{"code", "method", "route"},
}

var reqDur = &Metric{
	ID:          "reqDur",
	Name:        "req_dur_ms",
	Description: "The HTTP request latencies in milliseconds.",
	Type:        TypeHistogramVec,
	Args:        []string{"code", "method", "route"},
}

var resSz = &Metric{
	ID:          "resSz",
	Name:        "resp_sz_bytes",
	Description: "The HTTP response sizes in bytes.",
	Type:        TypeSummaryVec,
	Args:        []string{"code", "method", "route"},
}

var reqSz = &Metric{
	ID:          "reqSz",
	Name:        "req_sz_bytes",
	Description: "The HTTP request sizes in bytes.",
	Type:        TypeSummaryVec,
	Args:        []string{"code", "method", "route"},
}

var httpMetrics = []*Metric{reqCnt, reqDur, resSz, reqSz}

const defaultMetricPath = "/metrics"

// RouteLabelFn maps a request to the "route" label. It must return a bounded
// set of values, typically the matched route template.
type RouteLabelFn func(c *gin.Context) string

type PrometheusOptions struct {
	Subsystem string
	// MetricsList is registered in addition to the HTTP metrics.
	MetricsList []*Metric
	MetricsPath string
	RouteLabel  RouteLabelFn
	// Registry defaults to the process wide prometheus registry.
	Registry *prometheus.Registry
	Logger   *zap.SugaredLogger
}

// Prometheus records HTTP metrics for a gin engine and exposes every
// registered collector on its own listener.
type Prometheus struct {
	reqCnt       *prometheus.CounterVec
	reqDur       *prometheus.HistogramVec
	reqSz, resSz *prometheus.SummaryVec

	metricsPath string
	routeLabel  RouteLabelFn
	registerer  prometheus.Registerer
	gatherer    prometheus.Gatherer
	logger      *zap.SugaredLogger
}

func NewPrometheus(options PrometheusOptions) *Prometheus {
	p := &Prometheus{
		metricsPath: options.MetricsPath,
		routeLabel:  options.RouteLabel,
		registerer:  prometheus.DefaultRegisterer,
		gatherer:    prometheus.DefaultGatherer,
		logger:      options.Logger,
	}
	if options.Registry != nil {
		p.registerer, p.gatherer = options.Registry, options.Registry
	}
	if p.metricsPath == "" {
		p.metricsPath = defaultMetricPath
	}
	if p.routeLabel == nil {
		p.routeLabel = func(c *gin.Context) string { return c.FullPath() }
	}
	if p.logger == nil {
		p.logger = zap.NewNop().Sugar()
	}

	p.registerMetrics(options.Subsystem, append(append([]*Metric{}, httpMetrics...), options.MetricsList...))
	return p
}

func (p *Prometheus) registerMetrics(subsystem string, list []*Metric) {
	for _, metricDef := range list {
		metric := NewMetric(metricDef, subsystem)
		if err := p.registerer.Register(metric); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				p.logger.Errorw("metric could not be registered", "metric", metricDef.Name, "err", err)
				continue
			}
			metric = are.ExistingCollector
		}
		switch metricDef {
		case reqCnt:
			p.reqCnt = metric.(*prometheus.CounterVec)
		case reqDur:
			p.reqDur = metric.(*prometheus.HistogramVec)
		case resSz:
			p.resSz = metric.(*prometheus.SummaryVec)
		case reqSz:
			p.reqSz = metric.(*prometheus.SummaryVec)
		}
		metricDef.MetricCollector = metric
	}
}

// HandlerFunc records one observation per request into the HTTP metrics.
// Requests that matched no route are labelled "unmatched".
func (p *Prometheus) HandlerFunc() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		size := computeApproximateRequestSize(c.Request)

		c.Next()

		status := strconv.Itoa(c.Writer.Status())
		route := p.routeLabel(c)
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method

		p.reqDur.WithLabelValues(status, method, route).Observe(MillisecondsSince(start))
		p.reqCnt.WithLabelValues(status, method, route).Inc()
		p.reqSz.WithLabelValues(status, method, route).Observe(float64(size))
		p.resSz.WithLabelValues(status, method, route).Observe(float64(c.Writer.Size()))
	}
}

// Handler serves the registry in the Prometheus text format.
func (p *Prometheus) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(p.metricsPath, promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{}))
	return mux
}

// Server returns the metrics listener; the caller owns its lifecycle. Keeping
// GET /metrics off the API engine keeps it out of the access log.
func (p *Prometheus) Server(addr string) *http.Server {
	return &http.Server{Addr: addr, Handler: p.Handler(), ReadHeaderTimeout: 5 * time.Second}
}

// From https://github.com/DanielHeckrath/gin-prometheus/blob/master/gin_prometheus.go
func computeApproximateRequestSize(r *http.Request) int {
	s := 0
	if r.URL != nil {
		s = len(r.URL.Path)
	}

	s += len(r.Method)
	s += len(r.Proto)
	for name, values := range r.Header {
		s += len(name)
		for _, value := range values {
			s += len(value)
		}
	}
	s += len(r.Host)

	// N.B. r.Form and r.MultipartForm are assumed to be included in r.URL.

	if r.ContentLength != -1 {
		s += int(r.ContentLength)
	}
	return s
}
