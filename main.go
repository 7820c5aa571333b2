package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/cobra"

	"github.com/s1natex/todos-api-GO/internal/config"
	"github.com/s1natex/todos-api-GO/internal/middleware"
	"github.com/s1natex/todos-api-GO/internal/telemetry"
	"github.com/s1natex/todos-api-GO/internal/todos"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		addr       string
		backend    string
	)

	cmd := &cobra.Command{
		Use:           "todos-api",
		Short:         "HTTP CRUD service for todo records",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), "config:", err)
				return err
			}
			if cmd.Flags().Changed("addr") {
				cfg.Addr = addr
			}
			if cmd.Flags().Changed("store") {
				cfg.Store.Backend = backend
				if err := cfg.Validate(); err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), "config:", err)
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg, os.Stdout)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", os.Getenv("TODOS_CONFIG"), "path to a .toml or .yaml config file")
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().StringVar(&backend, "store", "", "store backend: file, sqlite or memory (overrides config)")
	return cmd
}

func run(ctx context.Context, cfg config.Config, logOut io.Writer) error {
	logger := newLogger(cfg.LogLevel, logOut)
	slog.SetDefault(logger) // for third-party packages that use slog

	shutdownTracing, err := telemetry.SetupTracing(ctx, cfg.Tracing)
	if err != nil {
		logger.Error("tracing_setup_error", slog.String("error", err.Error()))
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(sctx); err != nil {
			logger.Warn("tracing_shutdown_error", slog.String("error", err.Error()))
		}
	}()

	store, closeStore, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("store_open_error", slog.String("backend", cfg.Store.Backend), slog.String("error", err.Error()))
		return err
	}
	defer func() { _ = closeStore() }()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newRouter(store, logger, cfg),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	logger.Info("server_listen", slog.String("addr", cfg.Addr), slog.String("store", cfg.Store.Backend))
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		logger.Error("server_error", slog.String("error", err.Error()))
		return err
	case <-ctx.Done():
	}

	logger.Info("server_shutdown")
	sctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error("server_shutdown_error", slog.String("error", err.Error()))
		return err
	}
	<-errCh
	return nil
}

// openStore builds the configured backend wrapped with store metrics.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (todos.Store, func() error, error) {
	noClose := func() error { return nil }

	switch cfg.Backend {
	case config.StoreFile:
		if _, err := os.Stat(cfg.File); err != nil {
			// the file is never created by the server; requests will fail until it exists
			logger.Warn("store_file_unavailable", slog.String("path", cfg.File), slog.String("error", err.Error()))
		}
		return todos.WithMetrics(todos.NewFileStore(cfg.File)), noClose, nil

	case config.StoreSQLite:
		dsn, err := todos.SQLiteFileDSN(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite dsn: %w", err)
		}
		s, err := todos.NewSQLiteStore(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := s.ApplyMigrations(ctx); err != nil {
			_ = s.Close()
			return nil, nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return todos.WithMetrics(s), s.Close, nil

	case config.StoreMemory:
		return todos.WithMetrics(todos.NewMemoryStore()), noClose, nil
	}
	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}

// newRouter wires the health and metrics endpoints, todo routes, and middleware stack
func newRouter(store todos.Store, logger *slog.Logger, cfg config.Config) *chi.Mux {
	r := chi.NewRouter()

	// ---- Middleware stack (order matters a bit) ----
	// RequestID first so downstream can include it (logger, errors, etc.)
	r.Use(chimw.RequestID)

	// Panic recovery: never crash the server; returns 500 on panics
	r.Use(chimw.Recoverer)

	// Timeouts: cancel handlers that exceed this duration
	r.Use(chimw.Timeout(cfg.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-Request-ID", "Trace-Id"},
		AllowCredentials: false,
		MaxAge:           300, // 5 minutes
	}))

	r.Use(middleware.RateLimitMiddleware(middleware.NewLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)))
	r.Use(middleware.TracingMiddleware)
	r.Use(middleware.MetricsMiddleware)
	r.Use(middleware.RequestLogger(logger))

	// ---- Routes ----

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", middleware.MetricsHandler())

	// GET/POST /todos, GET/PUT/DELETE /todos/{id}
	todos.RegisterRoutes(r, store, logger)

	return r
}

func newLogger(level string, out io.Writer) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: l,
	})
	return slog.New(handler)
}
