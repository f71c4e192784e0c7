package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/pleszczy/kafka-avro/metrics"
)

func newTestMetrics(t *testing.T, cfg metrics.Config) *metrics.Metrics {
	t.Helper()
	if cfg.SystemMetricsAddress == nil {
		cfg.SystemMetricsAddress = metrics.Ptr("")
	}
	if cfg.ApplicationMetricsAddress == nil {
		cfg.ApplicationMetricsAddress = metrics.Ptr("")
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "test-service"
	}
	return metrics.NewMetrics(cfg)
}

// sample returns the value of the series matching name and labels: the
// value for counters and gauges, the sample count for histograms and
// summaries. ok is false when no series matches.
func sample(t *testing.T, g prometheus.Gatherer, name string, labels map[string]string) (value float64, ok bool) {
	t.Helper()
	families, err := g.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if !hasLabels(m, labels) {
				continue
			}
			switch {
			case m.Counter != nil:
				return m.GetCounter().GetValue(), true
			case m.Gauge != nil:
				return m.GetGauge().GetValue(), true
			case m.Histogram != nil:
				return float64(m.GetHistogram().GetSampleCount()), true
			case m.Summary != nil:
				return float64(m.GetSummary().GetSampleCount()), true
			}
		}
	}
	return 0, false
}

func mustSample(t *testing.T, g prometheus.Gatherer, name string, labels map[string]string) float64 {
	t.Helper()
	v, ok := sample(t, g, name, labels)
	require.Truef(t, ok, "no series %s%v", name, labels)
	return v
}

func hasLabels(m *dto.Metric, want map[string]string) bool {
	got := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		got[lp.GetName()] = lp.GetValue()
	}
	for k, v := range want {
		if got[k] != v {
			return false
		}
	}
	return true
}
