package kafkaavro

import (
	"context"

	"go.uber.org/fx"

	"github.com/pleszczy/kafka-avro/kafka"
	"github.com/pleszczy/kafka-avro/logger"
	"github.com/pleszczy/kafka-avro/metrics"
	"github.com/pleszczy/kafka-avro/schema_registry"
	"github.com/pleszczy/kafka-avro/tracer"
)

// FXModule assembles the logger, tracer, metrics, schema registry and Kafka
// producer modules from a single kafkaavro.Config, and warms the schema
// cache on start.
//
// Add kafka.ConsumerModule to also get a consumer for Config.Kafka.Consumer.
//
// Usage:
//
//	cfg, err := kafkaavro.LoadConfig("")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	app := fx.New(
//	    fx.Supply(cfg),
//	    kafkaavro.FXModule,
//	    fx.Invoke(func(p kafka.MessageProducer) { ... }),
//	)
var FXModule = fx.Module("kafkaavro",
	fx.Provide(
		provideSections,
		func(l logger.Logger) kafka.Logger { return l },
		func(l logger.Logger) schema_registry.Logger { return l },
		func(l logger.Logger) tracer.Logger { return l },
		func(s *schema_registry.Serde) kafka.Encoder { return s },
		func(s *schema_registry.Serde) kafka.Decoder { return s },
		func(t *tracer.TracerClient) kafka.Propagator { return t },
	),
	logger.FXModule,
	tracer.FXModule,
	metrics.FXModule,
	schema_registry.FXModule,
	kafka.FXModule,
	fx.Invoke(RegisterPreloadLifecycle),
)

// Sections splits Config into the per-module configurations the
// component modules consume.
type Sections struct {
	fx.Out

	SchemaRegistry schema_registry.Config
	Resolver       schema_registry.ResolverConfig
	Kafka          kafka.Config
	Logger         logger.Config
	Tracer         tracer.Config
	Metrics        metrics.Config
}

func provideSections(cfg Config) Sections {
	return Sections{
		SchemaRegistry: cfg.SchemaRegistry,
		Resolver:       cfg.Resolver,
		Kafka:          cfg.Kafka,
		Logger:         cfg.Logger,
		Tracer:         cfg.Tracer,
		Metrics:        cfg.Metrics,
	}
}

// PreloadParams groups the dependencies of RegisterPreloadLifecycle.
type PreloadParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    Config
	Cache     *schema_registry.SchemaCache
	Logger    logger.Logger
}

// RegisterPreloadLifecycle preloads the schema cache when the application
// starts. A registry that cannot list its subjects fails the start.
func RegisterPreloadLifecycle(params PreloadParams) {
	if params.Config.SkipPreload {
		return
	}
	params.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			loaded, err := params.Cache.Preload(ctx, params.Config.FetchAllVersions)
			if err != nil {
				params.Logger.ErrorWithContext(ctx, "Failed to preload schemas", err)
				return err
			}
			params.Logger.InfoWithContext(ctx, "kafka-avro initialized", nil, map[string]interface{}{
				"schemas":      loaded,
				"all_versions": params.Config.FetchAllVersions,
			})
			return nil
		},
	})
}
