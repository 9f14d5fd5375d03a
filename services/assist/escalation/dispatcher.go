// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package escalation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Dispatcher defaults.
const (
	DefaultNotifyTimeout = 10 * time.Second
	DefaultRatePerSecond = 5.0
	DefaultBurst         = 10
)

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	// Notifier receives every ticket. Required.
	Notifier Notifier

	// NotifierName labels metrics ("webhook", "log").
	NotifierName string

	// Store persists tickets before notification. Optional.
	Store Store

	// Timeout bounds one notification, including the rate-limit wait.
	Timeout time.Duration

	// RatePerSecond and Burst shape outbound notifications.
	RatePerSecond float64
	Burst         int

	Logger *slog.Logger
}

// Dispatcher hands tickets to a Notifier in the background.
//
// Description:
//
//	Dispatch persists the ticket, then returns immediately; delivery runs
//	on a goroutine owned by the Dispatcher under a timeout and a token-bucket
//	rate limit. Delivery failures are logged and counted, never returned to
//	the caller. Close stops intake and waits for in-flight deliveries.
//
// Thread Safety: Safe for concurrent use.
type Dispatcher struct {
	notifier Notifier
	name     string
	store    Store
	timeout  time.Duration
	limiter  *rate.Limiter
	logger   *slog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	// base is cancelled when Close gives up waiting.
	base   context.Context
	cancel context.CancelFunc
}

// NewDispatcher creates a Dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultNotifyTimeout
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = DefaultRatePerSecond
	}
	if cfg.Burst <= 0 {
		cfg.Burst = DefaultBurst
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Notifier == nil {
		cfg.Notifier = LogNotifier{Logger: cfg.Logger}
		if cfg.NotifierName == "" {
			cfg.NotifierName = "log"
		}
	}
	if cfg.NotifierName == "" {
		cfg.NotifierName = "custom"
	}

	base, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		notifier: cfg.Notifier,
		name:     cfg.NotifierName,
		store:    cfg.Store,
		timeout:  cfg.Timeout,
		limiter:  rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.Burst),
		logger:   cfg.Logger,
		base:     base,
		cancel:   cancel,
	}
}

// Dispatch records t and schedules its delivery.
//
// Description:
//
//	Never blocks on the notifier and never fails. After Close the ticket is
//	still stored but delivery is dropped with a warning.
func (d *Dispatcher) Dispatch(t Ticket) {
	ticketsTotal.WithLabelValues(t.Tenant).Inc()

	if d.store != nil {
		if err := d.store.Save(d.base, t); err != nil {
			d.logger.Error("ticket persistence failed",
				slog.String("ticket_id", t.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		notificationsTotal.WithLabelValues(d.name, "dropped").Inc()
		d.logger.Warn("ticket notification dropped, dispatcher closed",
			slog.String("ticket_id", t.ID),
		)
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go d.deliver(t)
}

func (d *Dispatcher) deliver(t Ticket) {
	defer d.wg.Done()

	ctx, cancel := context.WithTimeout(d.base, d.timeout)
	defer cancel()

	start := time.Now()
	if err := d.limiter.Wait(ctx); err != nil {
		notificationsTotal.WithLabelValues(d.name, "rate_limited").Inc()
		d.logger.Error("ticket notification not sent",
			slog.String("ticket_id", t.ID),
			slog.String("reason", "rate limit wait exceeded timeout"),
			slog.String("error", err.Error()),
		)
		return
	}

	err := d.notifier.Notify(ctx, t)
	notifyDuration.WithLabelValues(d.name).Observe(time.Since(start).Seconds())
	if err != nil {
		notificationsTotal.WithLabelValues(d.name, "error").Inc()
		d.logger.Error("ticket notification failed",
			slog.String("ticket_id", t.ID),
			slog.String("tenant", t.Tenant),
			slog.String("notifier", d.name),
			slog.String("error", err.Error()),
		)
		return
	}
	notificationsTotal.WithLabelValues(d.name, "ok").Inc()
	d.logger.Info("ticket notification sent",
		slog.String("ticket_id", t.ID),
		slog.String("notifier", d.name),
		slog.Duration("duration", time.Since(start)),
	)
}

// Close stops accepting deliveries and waits for in-flight ones.
//
// Inputs:
//
//	ctx - Bounds the wait. When it expires, in-flight deliveries are
//	      cancelled and Close waits for them to return.
//
// Outputs:
//
//	error - ctx.Err() when the wait was cut short, nil otherwise.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		<-done
		return ctx.Err()
	}
}
