package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mmynk/binarypay/internal/config"
	"github.com/mmynk/binarypay/internal/engine"
	"github.com/mmynk/binarypay/internal/models"
	"github.com/mmynk/binarypay/internal/runlock"
	"github.com/mmynk/binarypay/internal/storage"
	"github.com/mmynk/binarypay/internal/storage/postgres"
	"github.com/mmynk/binarypay/internal/storage/sqlite"
)

// openStore opens the configured database.
func openStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	var (
		store storage.Store
		err   error
	)
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		store, err = postgres.New(ctx, cfg.Database.DSN)
	default:
		store, err = sqlite.New(cfg.Database.DSN)
	}
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to initialize storage", err)
	}
	slog.Debug("Storage initialized", "driver", cfg.Database.Driver)
	return store, nil
}

// newEngine builds the orchestrator. The returned func releases the lock backend.
func newEngine(ctx context.Context, cfg config.Config, store storage.Store) (*engine.Engine, func(), error) {
	opts := []engine.Option{
		engine.WithWorkers(cfg.Engine.Workers),
		engine.WithStaleAfter(cfg.Lock.StaleAfter),
	}
	closeLock := func() {}

	if cfg.Lock.Backend == config.LockBackendRedis {
		locker, err := runlock.New(ctx, cfg.Lock.RedisAddr)
		if err != nil {
			return nil, nil, WrapExitError(ExitCommandError, "failed to initialize run lock", err)
		}
		opts = append(opts, engine.WithLocker(locker))
		closeLock = func() { locker.Close() }
		slog.Debug("Using redis run lock", "addr", cfg.Lock.RedisAddr)
	}

	e, err := engine.New(store, cfg.Plan, opts...)
	if err != nil {
		closeLock()
		return nil, nil, WrapExitError(ExitCommandError, "failed to initialize engine", err)
	}
	return e, closeLock, nil
}

// parseDay reads a --date flag, defaulting to today (UTC).
func parseDay(v string) (time.Time, error) {
	if v == "" {
		return models.Day(time.Now()), nil
	}
	d, err := models.ParseDate(v)
	if err != nil {
		return time.Time{}, WrapExitError(ExitCommandError, "invalid --date", err)
	}
	return d, nil
}

func plural(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}
