package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Counter is a monotonically increasing metric. Calling Inc or Add on the
// vector itself targets the series with no label values, which only works
// for metrics created without labels.
type Counter interface {
	WithLabelValues(lvs ...string) Counter
	Inc()
	Add(val float64)
}

// Gauge is a metric that can go up and down.
type Gauge interface {
	WithLabelValues(lvs ...string) Gauge
	Set(val float64)
	Inc()
	Dec()
	Add(val float64)
	Sub(val float64)
	SetToCurrentTime()
}

// Histogram buckets observed values.
type Histogram interface {
	WithLabelValues(lvs ...string) ValueObserver
	Observe(val float64)
}

// Summary computes streaming quantiles of observed values.
type Summary interface {
	WithLabelValues(lvs ...string) ValueObserver
	Observe(val float64)
}

// ValueObserver is a single histogram or summary series.
type ValueObserver interface {
	Observe(val float64)
}

type counterVec struct {
	vec *prometheus.CounterVec
}

func (c *counterVec) WithLabelValues(lvs ...string) Counter {
	return counter{c.vec.WithLabelValues(lvs...)}
}

func (c *counterVec) Inc()            { c.vec.WithLabelValues().Inc() }
func (c *counterVec) Add(val float64) { c.vec.WithLabelValues().Add(val) }

// counter is a resolved series; further label values are ignored.
type counter struct {
	prometheus.Counter
}

func (c counter) WithLabelValues(...string) Counter { return c }

type gaugeVec struct {
	vec *prometheus.GaugeVec
}

func (g *gaugeVec) WithLabelValues(lvs ...string) Gauge {
	return gauge{g.vec.WithLabelValues(lvs...)}
}

func (g *gaugeVec) Set(val float64)   { g.vec.WithLabelValues().Set(val) }
func (g *gaugeVec) Inc()              { g.vec.WithLabelValues().Inc() }
func (g *gaugeVec) Dec()              { g.vec.WithLabelValues().Dec() }
func (g *gaugeVec) Add(val float64)   { g.vec.WithLabelValues().Add(val) }
func (g *gaugeVec) Sub(val float64)   { g.vec.WithLabelValues().Sub(val) }
func (g *gaugeVec) SetToCurrentTime() { g.vec.WithLabelValues().SetToCurrentTime() }

type gauge struct {
	prometheus.Gauge
}

func (g gauge) WithLabelValues(...string) Gauge { return g }

type histogramVec struct {
	vec *prometheus.HistogramVec
}

func (h *histogramVec) WithLabelValues(lvs ...string) ValueObserver {
	return h.vec.WithLabelValues(lvs...)
}

func (h *histogramVec) Observe(val float64) { h.vec.WithLabelValues().Observe(val) }

type summaryVec struct {
	vec *prometheus.SummaryVec
}

func (s *summaryVec) WithLabelValues(lvs ...string) ValueObserver {
	return s.vec.WithLabelValues(lvs...)
}

func (s *summaryVec) Observe(val float64) { s.vec.WithLabelValues().Observe(val) }
