// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/rngbench/pkg/logging"
	"github.com/AleutianAI/rngbench/services/rng/handlers"
	"github.com/AleutianAI/rngbench/services/rng/routes"
)

func runServe(cmd *cobra.Command, _ []string) error {
	if err := applyBenchFlags(cmd, settings); err != nil {
		return err
	}
	ctx := cmd.Context()
	logger := appLogger.Slog()

	defaults, err := settings.BenchParams()
	if err != nil {
		return err
	}

	stack, err := newTelemetryStack(ctx, settings, logger)
	if err != nil {
		return err
	}
	defer closeStack(stack, logger)

	store, err := openHistory(settings, false, logger)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}

	progress := handlers.NewProgressHub()
	defer progress.Close()

	r, err := newRunner(settings, store, stack, progress.Hook(), logger)
	if err != nil {
		return err
	}

	deps := routes.Deps{
		Runner:   r,
		Defaults: defaults,
		Metrics:  stack.MetricsHandler(),
		Progress: progress,
	}
	if store != nil {
		deps.Store = store
	}

	level, _ := logging.ParseLevel(settings.Logging.Level)
	debug := level == logging.LevelDebug
	srv := &http.Server{
		Addr:              settings.Server.Addr,
		Handler:           newRouter(deps, debug),
		ReadHeaderTimeout: 10 * time.Second,
	}
	// Shutdown does not track hijacked websocket connections.
	srv.RegisterOnShutdown(progress.Close)
	return serve(ctx, srv, settings.Server.ShutdownTimeout, logger)
}

// newRouter builds the gin engine with tracing and recovery middleware.
func newRouter(deps routes.Deps, debug bool) *gin.Engine {
	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("rngbench"))
	if debug {
		router.Use(gin.Logger())
	}
	routes.SetupRoutes(router, deps)
	return router
}

// serve runs srv until ctx is cancelled, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, timeout time.Duration, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down HTTP API")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
