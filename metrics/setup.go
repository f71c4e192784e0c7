package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns two Prometheus registries and the HTTP servers exposing them.
// System metrics and application metrics are kept apart so they can be
// scraped and access-controlled separately.
type Metrics struct {
	// SystemServer serves Go runtime, process and build info metrics.
	// nil when the system endpoint is disabled.
	SystemServer *http.Server

	// ApplicationServer serves ApplicationRegistry. nil when the
	// application endpoint is disabled.
	ApplicationServer *http.Server

	// SystemRegistry holds the runtime collectors.
	SystemRegistry *prometheus.Registry

	// ApplicationRegistry holds the operation metrics and every metric
	// created through MetricsCollector. It exists even when the application
	// server is disabled, so callers can expose it on their own mux.
	ApplicationRegistry *prometheus.Registry

	registerer prometheus.Registerer
	namespace  string
}

// NewMetrics builds both registries and, for each enabled address, an
// *http.Server that serves it on /metrics. Servers are started by
// RegisterMetricsLifecycle or by the caller:
//
//	m := metrics.NewMetrics(metrics.Config{ServiceName: "orders"})
//	go m.ApplicationServer.ListenAndServe()
//
// Every series carries a constant service label.
func NewMetrics(cfg Config) *Metrics {
	serviceLabel := prometheus.Labels{"service": cfg.ServiceName}

	m := &Metrics{namespace: cfg.namespace()}

	if addr := addressOr(cfg.SystemMetricsAddress, DefaultSystemMetricsAddress); addr != "" {
		registry := prometheus.NewRegistry()
		prometheus.WrapRegistererWith(serviceLabel, registry).MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)

		m.SystemRegistry = registry
		m.SystemServer = newServer(addr, registry)
	}

	m.ApplicationRegistry = prometheus.NewRegistry()
	m.registerer = prometheus.WrapRegistererWith(serviceLabel, m.ApplicationRegistry)

	if addr := addressOr(cfg.ApplicationMetricsAddress, DefaultApplicationMetricsAddress); addr != "" {
		m.ApplicationServer = newServer(addr, m.ApplicationRegistry)
	}

	return m
}

func newServer(addr string, registry *prometheus.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return &http.Server{Addr: addr, Handler: mux}
}
