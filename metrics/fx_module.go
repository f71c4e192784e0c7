package metrics

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/fx"

	"github.com/pleszczy/kafka-avro/logger"
	"github.com/pleszczy/kafka-avro/observability"
)

// FXModule provides *Metrics, MetricsCollector and an
// observability.Observer backed by OperationObserver, and runs both metrics
// servers for the lifetime of the application.
//
// Because the observer is provided under the observability.Observer type,
// the schema_registry and kafka modules in the same application pick it up
// automatically.
//
//	app := fx.New(
//	    fx.Supply(metrics.Config{ServiceName: "orders"}),
//	    metrics.FXModule,
//	    schema_registry.FXModule,
//	)
var FXModule = fx.Module("metrics",
	fx.Provide(
		NewMetrics,
		fx.Annotate(
			func(m *Metrics) MetricsCollector { return m },
			fx.As(new(MetricsCollector)),
		),
		fx.Annotate(
			NewOperationObserver,
			fx.As(new(observability.Observer)),
		),
	),
	fx.Invoke(RegisterMetricsLifecycle),
)

// LifecycleParams groups the dependencies of RegisterMetricsLifecycle.
type LifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Metrics   *Metrics
	Logger    logger.Logger `optional:"true"`
}

// RegisterMetricsLifecycle starts the configured metrics servers in the
// background and shuts them down when the application stops.
func RegisterMetricsLifecycle(params LifecycleParams) {
	m := params.Metrics
	log := params.Logger
	if log == nil {
		log = logger.NewNop()
	}

	servers := []struct {
		name   string
		server *http.Server
	}{
		{"system", m.SystemServer},
		{"application", m.ApplicationServer},
	}

	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			for _, s := range servers {
				if s.server == nil {
					continue
				}
				log.InfoWithContext(ctx, "Starting metrics server", nil, map[string]interface{}{
					"endpoint": s.name,
					"address":  s.server.Addr,
				})
				go func(name string, srv *http.Server) {
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Error("Metrics server stopped unexpectedly", err, map[string]interface{}{
							"endpoint": name,
						})
					}
				}(s.name, s.server)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			for _, s := range servers {
				if s.server == nil {
					continue
				}
				log.InfoWithContext(ctx, "Shutting down metrics server", nil, map[string]interface{}{
					"endpoint": s.name,
				})
				if err := s.server.Shutdown(ctx); err != nil {
					log.ErrorWithContext(ctx, "Error shutting down metrics server", err, map[string]interface{}{
						"endpoint": s.name,
					})
				}
			}
			return nil
		},
	})
}
