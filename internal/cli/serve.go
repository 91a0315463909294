package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"connectrpc.com/connect"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/binarypay/internal/auth"
	"github.com/mmynk/binarypay/internal/metrics"
	"github.com/mmynk/binarypay/internal/middleware"
	"github.com/mmynk/binarypay/internal/scheduler"
	"github.com/mmynk/binarypay/internal/service"
)

const shutdownTimeout = 15 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the settlement RPC API",
		Long: `Start the Connect RPC server, the /metrics endpoint and, when enabled in the
config, the daily scheduler.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), rootOpts)
		},
	}
}

func serve(ctx context.Context, opts *RootOptions) error {
	cfg := opts.Config
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	e, closeLock, err := newEngine(ctx, cfg, store)
	if err != nil {
		return err
	}
	defer closeLock()

	metrics.Init(nil)

	var jwtManager *auth.JWTManager
	if cfg.Auth.JWTSecret != "" {
		jwtManager = auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	} else {
		slog.Warn("JWT_SECRET not set, mutating procedures are unauthenticated")
	}

	mux := http.NewServeMux()
	path, handler := service.NewHandler(
		service.NewSettlementService(store, e),
		connect.WithInterceptors(
			middleware.RequireOperator(jwtManager, service.MutatingProcedures...),
			middleware.LoggingInterceptor(),
		),
	)
	mux.Handle(path, handler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// h2c serves HTTP/2 without TLS, which gRPC clients of the Connect handler need.
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h2c.NewHandler(middleware.Logging(middleware.CORS(mux)), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.Schedule.Enabled {
		sched, err := scheduler.New(e, cfg.Schedule.DailyAt, cfg.Schedule.DayOffset)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to initialize scheduler", err)
		}
		go sched.Start(ctx)
		slog.Info("Scheduler started", "daily_at", cfg.Schedule.DailyAt, "day_offset", cfg.Schedule.DayOffset)
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return WrapExitError(ExitFailure, "server failed", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return WrapExitError(ExitFailure, "shutdown failed", err)
	}
	return nil
}
