/*
Package observability builds the process logger and tracer provider.

PURPOSE:
  Logging always goes to stderr. The MCP transport speaks JSON-RPC on stdout,
  so a single stray log line there would corrupt the stream.

SEE ALSO:
  - tracing.go: OTLP trace export
*/
package observability

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/warp/inventory-ledger/config"
)

// NewLogger returns a JSON production logger, or a console development
// logger when cfg.Development is set.
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zc.Build(zap.AddStacktrace(zapcore.ErrorLevel))
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger.With(zap.String("service.name", ServiceName)), nil
}
