// Package server runs the HTTP (and optional gRPC) listeners until the
// process is asked to stop.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/shashiranjanraj/grocerylist/config"
	"github.com/shashiranjanraj/grocerylist/internal/kernel"
	"github.com/shashiranjanraj/grocerylist/pkg/cache"
	"github.com/shashiranjanraj/grocerylist/pkg/database"
	grpcsrv "github.com/shashiranjanraj/grocerylist/pkg/grpc"
	"github.com/shashiranjanraj/grocerylist/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

// Start boots the app and blocks until SIGINT/SIGTERM or a listener fails.
func Start(ctx context.Context) error {
	if err := config.Load(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	closeMongo, err := logger.AttachMongo()
	if err != nil {
		logger.Warn("mongo log sink disabled", "error", err)
	}
	defer closeMongo()

	db, err := database.Connect(ctx)
	if err != nil {
		return err
	}
	defer database.Close(db)

	sessions, closeSessions, err := SessionStore(ctx)
	if err != nil {
		return err
	}
	defer closeSessions()

	k, err := kernel.New(db, sessions)
	if err != nil {
		return err
	}
	go k.Run(ctx)

	srv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           k.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	if port := config.GRPCPort(); port != "" {
		g, _, err := grpcsrv.Start(port, database.Pinger(db))
		if err != nil {
			return err
		}
		defer grpcsrv.Stop(g)
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("grocerylist listening", "addr", srv.Addr, "env", config.AppEnv())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// SessionStore picks the session backend from SESSION_DRIVER. Outside
// production an unreachable Redis falls back to process memory.
func SessionStore(ctx context.Context) (cache.Store, func(), error) {
	if config.SessionDriver() == "memory" {
		return cache.NewMemoryStore(), func() {}, nil
	}

	rs, err := cache.Connect(ctx)
	if err != nil {
		if config.IsProduction() {
			return nil, nil, err
		}
		logger.Warn("redis unavailable, keeping sessions in memory", "error", err)
		return cache.NewMemoryStore(), func() {}, nil
	}
	return rs, func() { _ = rs.Close() }, nil
}
