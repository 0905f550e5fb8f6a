package cli

import (
	"context"
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/warp/inventory-ledger/api"
	"github.com/warp/inventory-ledger/config"
	"github.com/warp/inventory-ledger/observability"
	"github.com/warp/inventory-ledger/store/mysql"
	"github.com/warp/inventory-ledger/store/sqlite"
	"github.com/warp/inventory-ledger/store/sqlstore"
)

// bindFlag binds f over key. An unset flag falls back to the environment,
// the file and the defaults.
func bindFlag(v *viper.Viper, key string, f *pflag.Flag) {
	if f != nil {
		_ = v.BindPFlag(key, f)
	}
}

// openStore opens the configured database and applies the schema.
func openStore(ctx context.Context, cfg config.DatabaseConfig) (api.Store, error) {
	pool := sqlstore.PoolConfig{
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}

	var (
		store *sqlstore.Store
		err   error
	)
	switch cfg.Driver {
	case "sqlite":
		store, err = sqlite.Open(ctx, sqlite.Config{Path: cfg.DSN, BusyTimeout: cfg.BusyTimeout, Pool: pool})
	case "mysql":
		store, err = mysql.Open(ctx, mysql.Config{DSN: cfg.DSN, Pool: pool})
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// runtime is what a long-running command needs, built in one place so the
// teardown order is fixed.
type runtime struct {
	logger        *zap.Logger
	store         api.Store
	shutdownTrace observability.ShutdownFunc
}

func newRuntime(ctx context.Context, cfg *config.Config) (*runtime, error) {
	logger, err := observability.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	shutdownTrace, err := observability.SetupTracing(ctx, cfg.Otel, version)
	if err != nil {
		// Tracing is optional; keep serving without it.
		logger.Error("failed to set up tracing", zap.Error(err))
	}

	store, err := openStore(ctx, cfg.Database)
	if err != nil {
		_ = shutdownTrace(ctx)
		_ = logger.Sync()
		return nil, fmt.Errorf("open %s store: %w", cfg.Database.Driver, err)
	}
	logger.Info("store opened", zap.String("driver", cfg.Database.Driver))

	return &runtime{logger: logger, store: store, shutdownTrace: shutdownTrace}, nil
}

func (rt *runtime) Close(ctx context.Context) {
	if err := rt.store.Close(); err != nil {
		rt.logger.Error("closing store", zap.Error(err))
	}
	if err := rt.shutdownTrace(ctx); err != nil {
		rt.logger.Error("flushing traces", zap.Error(err))
	}
	_ = rt.logger.Sync()
}
