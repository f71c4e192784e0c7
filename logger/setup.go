package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerClient wraps a zap.Logger with the field-map API used across this
// module. It implements Logger.
type LoggerClient struct {
	// Zap is exposed for callers that need zap directly, for example to hand
	// a *zap.Logger to a third-party library.
	Zap *zap.Logger

	tracingEnabled bool
}

// NewLoggerClient builds a JSON logger writing to cfg.OutputPaths.
//
// Entries carry ISO8601 timestamps, upper-case levels, the caller, the
// process id and the configured service name.
//
// Example:
//
//	log, err := logger.NewLoggerClient(logger.Config{
//	    Level:       logger.Info,
//	    ServiceName: "orders-producer",
//	})
//	if err != nil {
//	    return err
//	}
//	log.Info("schema registry reachable", nil, map[string]interface{}{"url": registryURL})
func NewLoggerClient(cfg Config) (*LoggerClient, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	encoderCfg.EncodeCaller = zapcore.FullCallerEncoder
	encoderCfg.EncodeDuration = zapcore.MillisDurationEncoder

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLevel(cfg.Level)),
		Encoding:         "json",
		EncoderConfig:    encoderCfg,
		OutputPaths:      cfg.outputPaths(),
		ErrorOutputPaths: []string{"stderr"},
		InitialFields: map[string]interface{}{
			"pid":     os.Getpid(),
			"service": cfg.ServiceName,
		},
	}

	z, err := config.Build(zap.AddCaller(), zap.AddCallerSkip(cfg.callerSkip()))
	if err != nil {
		return nil, fmt.Errorf("failed to build zap logger: %w", err)
	}

	return &LoggerClient{Zap: z, tracingEnabled: cfg.EnableTracing}, nil
}

// NewFromZap wraps an existing zap logger. Tests use it with
// go.uber.org/zap/zaptest/observer cores.
func NewFromZap(z *zap.Logger, tracingEnabled bool) *LoggerClient {
	if z == nil {
		z = zap.NewNop()
	}
	return &LoggerClient{Zap: z, tracingEnabled: tracingEnabled}
}

// NewNop returns a LoggerClient that discards everything.
func NewNop() *LoggerClient {
	return NewFromZap(zap.NewNop(), false)
}

// ParseLevel maps a Config.Level string to a zap level, case-insensitively.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case Debug:
		return zapcore.DebugLevel
	case Warning, "warn":
		return zapcore.WarnLevel
	case Error:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Named returns a child logger whose entries carry a "component" field.
// Packages in this module use it to tag their output.
func (l *LoggerClient) Named(component string) *LoggerClient {
	return &LoggerClient{
		Zap:            l.Zap.Named(component).With(zap.String("component", component)),
		tracingEnabled: l.tracingEnabled,
	}
}

// Sync flushes buffered entries.
func (l *LoggerClient) Sync() error {
	return l.Zap.Sync()
}
