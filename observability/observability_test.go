package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/warp/inventory-ledger/config"
)

func TestNewLogger_Level(t *testing.T) {
	logger, err := NewLogger(config.LogConfig{Level: "warn"})
	require.NoError(t, err)
	defer logger.Sync()

	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestNewLogger_Development(t *testing.T) {
	logger, err := NewLogger(config.LogConfig{Level: "debug", Development: true})
	require.NoError(t, err)

	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewLogger_BadLevel(t *testing.T) {
	_, err := NewLogger(config.LogConfig{Level: "loud"})
	assert.Error(t, err)
}

func TestSetupTracing_NoEndpoint(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), config.OtelConfig{}, "test")
	require.NoError(t, err)
	require.NotNil(t, shutdown)

	assert.NoError(t, shutdown(context.Background()))
	assert.NoError(t, shutdown(context.Background()), "shutdown is safe to call twice")
}

func TestSetupTracing_WithEndpoint(t *testing.T) {
	// GIVEN: an endpoint nothing listens on; the exporter connects lazily
	cfg := config.OtelConfig{Endpoint: "127.0.0.1:1", Insecure: true}

	shutdown, err := SetupTracing(context.Background(), cfg, "test")

	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	// A cancelled flush may report an error; it must not hang.
	_ = shutdown(ctx)
}
