package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HistogramBuckets in milliseconds. Lifecycle operations are a handful of
// queries, so resolution is concentrated below one second.
var HistogramBuckets = []float64{
	1, 2.5, 5, 10, 25, 50, 75, 100, 150, 250, 500,
	1000, 2500, 5000, 10000,
}

type MetricType string

const (
	TypeCounterVec   MetricType = "counter_vec"
	TypeGaugeVec     MetricType = "gauge_vec"
	TypeHistogramVec MetricType = "histogram_vec"
	TypeSummaryVec   MetricType = "summary_vec"
)

// Metric is a definition for the name, description, type, ID, and
// prometheus.Collector type (i.e. CounterVec, Summary, etc) of each metric.
// MetricCollector is set once the metric is registered.
type Metric struct {
	MetricCollector prometheus.Collector
	ID              string
	Name            string
	Description     string
	Type            MetricType
	Args            []string
}

// NewMetric builds the collector described by m. It panics on an unknown type.
func NewMetric(m *Metric, subsystem string) prometheus.Collector {
	switch m.Type {
	case TypeCounterVec:
		return prometheus.NewCounterVec(prometheus.CounterOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description}, m.Args)
	case TypeGaugeVec:
		return prometheus.NewGaugeVec(prometheus.GaugeOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description}, m.Args)
	case TypeHistogramVec:
		return prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      m.Name,
			Help:      m.Description,
			Buckets:   HistogramBuckets,
		}, m.Args)
	case TypeSummaryVec:
		return prometheus.NewSummaryVec(prometheus.SummaryOpts{Subsystem: subsystem, Name: m.Name, Help: m.Description}, m.Args)
	default:
		panic("metrics: unknown metric type " + string(m.Type))
	}
}

var MetricsBusinessProcess = &Metric{
	ID:          "bpDur",
	Name:        "bp_dur",
	Description: "process latency in milliseconds",
	Type:        TypeHistogramVec,
	Args:        []string{"type", "subtype"},
}

var MetricsAuditWriteFailures = &Metric{
	ID:          "auditFail",
	Name:        "audit_write_failures",
	Description: "Audit entries that could not be written after the state change committed.",
	Type:        TypeCounterVec,
	Args:        []string{"kind"},
}

// BusinessMetrics are registered next to the HTTP metrics.
var BusinessMetrics = []*Metric{
	MetricsBusinessProcess,
	MetricsAuditWriteFailures,
}

// ObserveBusinessProcess records the latency of one business operation.
// Call it deferred with the start time. A no-op until the metric is registered.
func ObserveBusinessProcess(typ, subtype string, start time.Time) {
	if h, ok := MetricsBusinessProcess.MetricCollector.(*prometheus.HistogramVec); ok {
		h.WithLabelValues(typ, subtype).Observe(MillisecondsSince(start))
	}
}

func IncAuditWriteFailure(kind string) {
	if c, ok := MetricsAuditWriteFailures.MetricCollector.(*prometheus.CounterVec); ok {
		c.WithLabelValues(kind).Inc()
	}
}

func MillisecondsSince(t time.Time) float64 {
	return float64(time.Since(t)) / float64(time.Millisecond)
}
