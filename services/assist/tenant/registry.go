// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/AleutianStorefront/services/assist/config"
	"github.com/AleutianAI/AleutianStorefront/services/assist/knowledge"
)

var tracer = otel.Tracer("aleutian.assist.tenant")

// Source loads the indexes of every tenant. knowledge.Loader satisfies it.
type Source interface {
	Load(ctx context.Context, cfg *config.TenantsConfig) (knowledge.Set, error)
}

// Registry owns the current Router and replaces it on reload.
//
// Description:
//
//	Readers call Current and keep the returned Router for the whole
//	request; a concurrent Reload builds a complete new Router and swaps the
//	pointer, so in-flight requests never observe a partial update.
//
// Thread Safety: Safe for concurrent use. Reloads are serialized.
type Registry struct {
	cfg    *config.TenantsConfig
	source Source
	logger *slog.Logger

	current  atomic.Pointer[Router]
	reloadMu sync.Mutex
}

// NewRegistry loads every knowledge source and builds the first Router.
//
// Inputs:
//
//	ctx - Cancellation for the initial load.
//	cfg - The validated tenant table.
//	source - Loads indexes. Usually a *knowledge.Loader.
//	logger - Nil uses slog.Default().
//
// Outputs:
//
//	*Registry - Ready to serve.
//	error - Non-nil if the initial load was cancelled or the table is inconsistent.
func NewRegistry(ctx context.Context, cfg *config.TenantsConfig, source Source, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	reg := &Registry{cfg: cfg, source: source, logger: logger}
	if _, err := reg.Reload(ctx); err != nil {
		return nil, err
	}
	return reg, nil
}

// NewStaticRegistry wraps an already built Router. Reload is a no-op that
// returns the same Router.
func NewStaticRegistry(r *Router) *Registry {
	reg := &Registry{logger: slog.Default()}
	reg.current.Store(r)
	return reg
}

// Current returns the active Router. Never nil after construction.
func (reg *Registry) Current() *Router {
	return reg.current.Load()
}

// Resolve is shorthand for Current().Resolve(selector).
func (reg *Registry) Resolve(selector string) *Context {
	return reg.Current().Resolve(selector)
}

// Reload rebuilds every index from the source and swaps the Router.
//
// Description:
//
//	A failed reload keeps the previous Router. Missing or malformed sources
//	are not failures; they load as empty indexes.
//
// Outputs:
//
//	*Router - The Router now active.
//	error - Non-nil when loading was cancelled or the Router could not be built.
func (reg *Registry) Reload(ctx context.Context) (*Router, error) {
	if reg.source == nil {
		return reg.Current(), nil
	}

	reg.reloadMu.Lock()
	defer reg.reloadMu.Unlock()

	ctx, span := tracer.Start(ctx, "tenant.Registry.Reload",
		trace.WithAttributes(attribute.Int("tenants", len(reg.cfg.Tenants))),
	)
	defer span.End()

	start := time.Now()
	router, err := reg.build(ctx)
	recordReload(router, time.Since(start), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		reg.logger.Error("knowledge reload failed, keeping previous data",
			slog.String("error", err.Error()),
		)
		return reg.Current(), err
	}

	reg.current.Store(router)
	reg.logger.Info("knowledge reloaded",
		slog.Int("tenants", len(reg.cfg.Tenants)),
		slog.Duration("duration", time.Since(start)),
	)
	return router, nil
}

func (reg *Registry) build(ctx context.Context) (*Router, error) {
	set, err := reg.source.Load(ctx, reg.cfg)
	if err != nil {
		return nil, fmt.Errorf("tenant registry: %w", err)
	}
	router, err := NewRouter(reg.cfg, set)
	if err != nil {
		return nil, fmt.Errorf("tenant registry: %w", err)
	}
	return router, nil
}
