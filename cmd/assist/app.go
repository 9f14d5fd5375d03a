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

	"github.com/AleutianAI/AleutianStorefront/services/assist/compose"
	"github.com/AleutianAI/AleutianStorefront/services/assist/config"
	"github.com/AleutianAI/AleutianStorefront/services/assist/dialogue"
	"github.com/AleutianAI/AleutianStorefront/services/assist/escalation"
	"github.com/AleutianAI/AleutianStorefront/services/assist/knowledge"
	"github.com/AleutianAI/AleutianStorefront/services/assist/tenant"
	"github.com/AleutianAI/AleutianStorefront/services/llm"
)

// app wires every collaborator of the assistant from a ServiceConfig.
type app struct {
	cfg        *config.ServiceConfig
	tenants    *config.TenantsConfig
	registry   *tenant.Registry
	store      *escalation.BadgerStore
	dispatcher *escalation.Dispatcher
	engine     *dialogue.Engine
}

func newApp(ctx context.Context, cfg *config.ServiceConfig, logger *slog.Logger) (*app, error) {
	rules, err := config.GetRules()
	if err != nil {
		return nil, err
	}

	tenants, err := loadTenants(cfg)
	if err != nil {
		return nil, err
	}

	registry, err := tenant.NewRegistry(ctx, tenants, knowledge.NewLoader(cfg.DataDir, logger), logger)
	if err != nil {
		return nil, fmt.Errorf("loading knowledge: %w", err)
	}

	// An empty path keeps tickets in memory for the life of the process.
	store, err := escalation.OpenBadgerStore(cfg.TicketDBPath, escalation.DefaultTicketTTL, logger)
	if err != nil {
		return nil, fmt.Errorf("opening ticket store: %w", err)
	}

	var notifier escalation.Notifier
	notifierName := "log"
	if cfg.WebhookURL != "" {
		notifier = escalation.NewWebhookNotifier(cfg.WebhookURL, cfg.NotifyTimeout)
		notifierName = "webhook"
	}
	dispatcher := escalation.NewDispatcher(escalation.DispatcherConfig{
		Notifier:      notifier,
		NotifierName:  notifierName,
		Store:         store,
		Timeout:       cfg.NotifyTimeout,
		RatePerSecond: cfg.NotifyRatePerSec,
		Logger:        logger,
	})

	composer, err := compose.New(rules, compose.WithListLimit(cfg.ListLimit), compose.WithLogger(logger))
	if err != nil {
		_ = dispatcher.Close(ctx)
		_ = store.Close()
		return nil, err
	}

	opts := []dialogue.Option{
		dialogue.WithSink(dispatcher),
		dialogue.WithLogger(logger),
		dialogue.WithExcerptLimit(cfg.ExcerptLimit),
	}
	if cfg.Generative {
		gen, err := llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:  cfg.OpenAIKey,
			Model:   cfg.OpenAIModel,
			BaseURL: cfg.OpenAIURL,
		})
		if err != nil {
			_ = dispatcher.Close(ctx)
			_ = store.Close()
			return nil, err
		}
		opts = append(opts, dialogue.WithGenerator(gen))
	}

	engine, err := dialogue.New(registry, rules, composer, opts...)
	if err != nil {
		_ = dispatcher.Close(ctx)
		_ = store.Close()
		return nil, err
	}

	for _, tc := range registry.Current().Tenants() {
		logger.Info("Tenant ready", slog.String("tenant", tc.Name), slog.Any("records", tc.Records()))
	}

	return &app{
		cfg:        cfg,
		tenants:    tenants,
		registry:   registry,
		store:      store,
		dispatcher: dispatcher,
		engine:     engine,
	}, nil
}

func loadTenants(cfg *config.ServiceConfig) (*config.TenantsConfig, error) {
	if cfg.TenantsFile != "" {
		return config.LoadTenantsFile(cfg.TenantsFile)
	}
	return config.GetTenants()
}

// Close drains pending notifications, then closes the ticket store.
func (a *app) Close(ctx context.Context) error {
	return errors.Join(a.dispatcher.Close(ctx), a.store.Close())
}
