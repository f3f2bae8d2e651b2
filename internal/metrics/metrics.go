// Package metrics provides Prometheus metrics for errtally scans.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/good-yellow-bee/errtally/internal/report"
)

const (
	namespace = "errtally"
	subsystem = "scan"
)

// Collector records scan outcomes on its own registry.
type Collector struct {
	registry *prometheus.Registry

	scans            *prometheus.CounterVec
	duration         prometheus.Histogram
	lines            prometheus.Counter
	levels           *prometheus.GaugeVec
	distinctMessages prometheus.Gauge
	lastSuccess      prometheus.Gauge
}

// NewCollector creates a Collector with all metrics registered.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		scans: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "total",
				Help:      "Total number of scans by result",
			},
			[]string{"result"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "duration_seconds",
				Help:      "Scan duration in seconds",
				Buckets:   []float64{.001, .005, .01, .05, .1, .5, 1, 5, 10, 30},
			},
		),
		lines: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "lines_total",
				Help:      "Total lines read across scans",
			},
		),
		levels: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "levels",
				Help:      "Headers on or after the threshold found by the last scan, by level",
			},
			[]string{"level"},
		),
		distinctMessages: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "messages_distinct",
				Help:      "Distinct messages found by the last scan",
			},
		),
		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful scan",
			},
		),
	}

	c.registry.MustRegister(
		c.scans,
		c.duration,
		c.lines,
		c.levels,
		c.distinctMessages,
		c.lastSuccess,
	)
	return c
}

// Registry returns the registry holding the collector's metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Observe records a successful scan. Level and message figures describe
// the last scan only; every scan reads the whole file again.
func (c *Collector) Observe(r *report.Report) {
	c.scans.WithLabelValues("success").Inc()
	c.duration.Observe(r.Duration.Seconds())
	c.lines.Add(float64(r.Lines))
	c.levels.Reset()
	for level, n := range r.Levels {
		c.levels.WithLabelValues(level).Set(float64(n))
	}
	c.distinctMessages.Set(float64(len(r.Messages)))
	c.lastSuccess.Set(float64(r.EndTime.Unix()))
}

// ObserveError records a failed scan.
func (c *Collector) ObserveError() {
	c.scans.WithLabelValues("error").Inc()
}

// WriteTextfile writes the current metrics in the node-exporter textfile
// format. The file is replaced atomically.
func (c *Collector) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
