// Package logger is the zap-backed structured logger shared by the registry
// client, the schema cache and the Kafka producer and consumer.
//
// Every method takes a message, an optional error and any number of field
// maps. The *WithContext variants add trace_id and span_id from the active
// OpenTelemetry span when Config.EnableTracing is set.
//
//	log, err := logger.NewLoggerClient(logger.Config{Level: logger.Debug, ServiceName: "billing"})
//	if err != nil {
//	    return err
//	}
//	client = client.WithLogger(log.Named("schema_registry"))
//
// In an fx application supply a logger.Config and include FXModule.
package logger
