package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/alisaviation/metricboard/internal/config"
	"github.com/alisaviation/metricboard/internal/logger"
	"github.com/alisaviation/metricboard/internal/middleware"
	"github.com/alisaviation/metricboard/internal/models"
	"github.com/alisaviation/metricboard/internal/seed"
	"github.com/alisaviation/metricboard/internal/server"
	"github.com/alisaviation/metricboard/internal/storage"
)

func main() {
	opts, err := config.ParseServer(os.Args[1:], os.Stdout)
	if err != nil {
		if errors.Is(err, config.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := logger.Initialize(opts.Logging); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, opts, nil); err != nil {
		logger.Log.Error("Server stopped", zap.Error(err))
		logger.Log.Sync()
		os.Exit(1)
	}
}

// run serves the API until ctx is done. ready, when not nil, receives the
// listening address once the socket is bound.
func run(ctx context.Context, opts *config.ServerOptions, ready chan<- string) error {
	store, err := storage.Open(ctx, opts.Database.DSN)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Log.Warn("Error closing store", zap.Error(err))
		}
	}()

	if err := prepareStore(ctx, store, opts.Server); err != nil {
		return err
	}

	router := server.New(store).NewRouter(server.RouterOptions{
		CORS: middleware.CORSOptions{
			Origins:          opts.Server.CORSOrigins,
			Headers:          opts.Server.CORSHeaders,
			AllowCredentials: !opts.Server.CORSNoCreds,
		},
		PrometheusPath: opts.Server.PrometheusPath,
	})

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", opts.Server.Address)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", opts.Server.Address, err)
	}
	srv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Info("Starting server", zap.String("address", ln.Addr().String()))
		errCh <- srv.Serve(ln)
	}()
	if ready != nil {
		ready <- ln.Addr().String()
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Log.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), opts.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// prepareStore creates the schema and, unless disabled, seeds an empty store.
// An invalid seed file is logged and does not stop the server.
func prepareStore(ctx context.Context, store storage.Storage, opts config.Server) error {
	if opts.NoSeed {
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		return nil
	}

	_, err := seed.Bootstrap(ctx, store, opts.SeedFile)
	var vErr *models.ValidationError
	if errors.As(err, &vErr) {
		logger.Log.Error("Error seeding store", zap.String("path", opts.SeedFile), zap.Error(err))
		return nil
	}
	return err
}
