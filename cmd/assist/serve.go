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
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/AleutianAI/AleutianStorefront/services/assist"
	"github.com/AleutianAI/AleutianStorefront/services/assist/config"
	"github.com/AleutianAI/AleutianStorefront/services/assist/tenant"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadServiceConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			return runServer(cmd.Context(), cfg)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", config.DefaultPort, "port to listen on")
	return cmd
}

// newEngine builds the gin engine with tracing, metrics and the /v1 routes.
func newEngine(handlers *assist.Handlers, debug bool) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("aleutian-assist"))
	if debug {
		router.Use(gin.Logger())
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	assist.RegisterRoutes(v1, handlers)
	return router
}

func runServer(parent context.Context, cfg *config.ServiceConfig) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if debugLogs {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger := slog.Default()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}

	if cfg.WatchData {
		w := tenant.NewWatcher(cfg.DataDir, a.registry, tenant.DefaultDebounce, logger)
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.Warn("Knowledge watcher stopped", slog.String("error", err.Error()))
			}
		}()
	}

	handlers := assist.NewHandlers(a.engine, a.registry, a.store)
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           newEngine(handlers, debugLogs),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting assist server", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutting down assist server")
	case serveErr = <-errCh:
		if serveErr != nil {
			logger.Error("Server failed", slog.String("error", serveErr.Error()))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", slog.String("error", err.Error()))
	}
	if err := a.Close(shutdownCtx); err != nil {
		logger.Warn("Escalation shutdown incomplete", slog.String("error", err.Error()))
	}
	return serveErr
}
